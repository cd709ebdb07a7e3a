package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// OpenAIModelConfig configures an OpenAI-compatible chat endpoint, such as Gemini's.
type OpenAIModelConfig struct {
	Name        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// OpenAIChatModel adapts the openai-go client to eino's ChatModel interface.
type OpenAIChatModel struct {
	client openai.Client
	cfg    OpenAIModelConfig
}

var _ model.ChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel builds the model. Requests are never retried.
func NewOpenAIChatModel(cfg OpenAIModelConfig) (*OpenAIChatModel, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, provider.NotConfigured(cfg.Name, "api key")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, provider.NotConfigured(cfg.Name, "model")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIChatModel{client: openai.NewClient(opts...), cfg: cfg}, nil
}

// Generate sends the conversation and returns the first choice.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.cfg.Model),
		Messages: toOpenAIMessages(input),
	}
	if m.cfg.Temperature != nil {
		params.Temperature = openai.Float(*m.cfg.Temperature)
	}
	if m.cfg.TopP != nil {
		params.TopP = openai.Float(*m.cfg.TopP)
	}
	if m.cfg.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*m.cfg.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, m.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, provider.New(provider.KindUnavailable, m.cfg.Name, "response has no choices")
	}

	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream returns the full reply as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is unsupported; the assistant only produces spoken text.
func (m *OpenAIChatModel) BindTools(_ []*schema.ToolInfo) error {
	return fmt.Errorf("%s: tool calling is not supported", m.cfg.Name)
}

func (m *OpenAIChatModel) translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr := provider.FromStatus(m.cfg.Name, apiErr.StatusCode, apiErr.Message)
		perr.Err = err
		return perr
	}
	return provider.Wrap(provider.KindUnavailable, m.cfg.Name, err)
}

func toOpenAIMessages(input []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case schema.Assistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	return messages
}
