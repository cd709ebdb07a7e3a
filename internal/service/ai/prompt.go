package ai

import (
	"strings"
)

const defaultSystemPrompt = "You are a helpful AI voice assistant. Everything you write is read aloud, " +
	"so answer in plain conversational sentences without markdown, lists, code blocks or emoji, " +
	"and keep replies short unless the user asks for detail."

// PromptTemplate defines the system instructions sent ahead of the conversation history.
type PromptTemplate struct {
	SystemPrompt string
	ContextRules []string
}

// PromptBuilder renders the system prompt for a turn.
type PromptBuilder struct {
	template PromptTemplate
}

// NewPromptBuilder uses systemPrompt when set, otherwise the built-in assistant prompt.
func NewPromptBuilder(systemPrompt string) *PromptBuilder {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &PromptBuilder{template: PromptTemplate{
		SystemPrompt: systemPrompt,
		ContextRules: []string{
			"If the user's words look garbled, they came from speech recognition; answer the most likely meaning or ask them to repeat.",
			"Never mention that you are reading a transcript.",
		},
	}}
}

// SystemPrompt builds the instructions for a conversation with historyLen prior messages.
func (b *PromptBuilder) SystemPrompt(historyLen int) string {
	var sb strings.Builder
	sb.WriteString(b.template.SystemPrompt)

	if len(b.template.ContextRules) > 0 {
		sb.WriteString("\n\nConversation rules:\n- ")
		sb.WriteString(strings.Join(b.template.ContextRules, "\n- "))
	}

	if historyLen > 1 {
		sb.WriteString("\n\nPlease continue our conversation naturally, remembering what we discussed earlier.")
	}
	return sb.String()
}
