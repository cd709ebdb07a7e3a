package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/zhouzirui/voicemate/backend/internal/config"
	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

const defaultHistoryLimit = 20

// Options tune how a Service builds prompts.
type Options struct {
	Name         string
	SystemPrompt string
	HistoryLimit int
	Timeout      time.Duration
}

// Service turns conversation history into an assistant reply through an eino chain.
type Service struct {
	chatModel model.ChatModel
	prompts   *PromptBuilder
	chain     compose.Runnable[map[string]any, *schema.Message]
	opts      Options
}

// NewService creates the chat model described by cfg and wraps it in a Service.
func NewService(ctx context.Context, cfg config.CompletionConfig, historyLimit int) (*Service, error) {
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewServiceWithModel(ctx, chatModel, Options{
		Name:         cfg.Provider,
		SystemPrompt: cfg.SystemPrompt,
		HistoryLimit: historyLimit,
		Timeout:      cfg.Timeout,
	})
}

// NewServiceWithModel compiles the prompt chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, provider.New(provider.KindNotConfigured, opts.Name, "chat model is nil")
	}
	if opts.HistoryLimit < 1 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.Name == "" {
		opts.Name = "llm"
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		prompts:   NewPromptBuilder(opts.SystemPrompt),
		chain:     runnable,
		opts:      opts,
	}, nil
}

// Name identifies the backing provider.
func (s *Service) Name() string {
	return s.opts.Name
}

// Complete generates the assistant reply for turns, ordered oldest first.
// Only the most recent HistoryLimit turns reach the model.
func (s *Service) Complete(ctx context.Context, turns []chat.Message) (string, error) {
	history := s.buildHistoryMessages(turns)
	if len(history) == 0 {
		return "", provider.New(provider.KindInvalidInput, s.opts.Name, "no conversation to complete")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  s.prompts.SystemPrompt(len(history)),
		"history": history,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", provider.Wrap(provider.KindUnavailable, s.opts.Name, fmt.Errorf("failed to run AI chain: %w", err))
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", provider.New(provider.KindUnavailable, s.opts.Name, "model returned an empty reply")
	}

	log.Printf("[ai] generated response provider=%s history=%d length=%d", s.opts.Name, len(history), len(response.Content))
	return strings.TrimSpace(response.Content), nil
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	startIdx := 0
	if len(messages) > s.opts.HistoryLimit {
		startIdx = len(messages) - s.opts.HistoryLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}
