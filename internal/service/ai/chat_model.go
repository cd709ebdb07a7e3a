package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/zhouzirui/voicemate/backend/internal/config"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// NewChatModel 根据配置选择后端创建模型实例。
func NewChatModel(ctx context.Context, cfg config.CompletionConfig) (model.ChatModel, error) {
	if !cfg.Enabled() {
		return nil, provider.New(provider.KindNotConfigured, cfg.Provider, "completion credentials or model missing")
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewOpenAIChatModel(OpenAIModelConfig{
			Name:        config.ProviderGemini,
			APIKey:      cfg.GeminiAPIKey,
			BaseURL:     cfg.GeminiBaseURL,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.ProviderArk:
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
	}
}

func newArkChatModel(ctx context.Context, c config.CompletionConfig) (model.ChatModel, error) {
	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}
