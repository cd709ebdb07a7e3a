package speech

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/voicemate/backend/internal/analysis/text"
	"github.com/zhouzirui/voicemate/backend/internal/config"
	speechmodel "github.com/zhouzirui/voicemate/backend/internal/model/speech"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

const murfName = "murf"

// MurfClient 调用 Murf 生成语音，音频由 Murf 托管，返回可访问的地址。
type MurfClient struct {
	api      *restClient
	format   string
	maxChars int
}

// NewMurfClient 根据配置创建客户端，缺少密钥时返回 not_configured 错误。
func NewMurfClient(cfg config.SynthesisConfig) (*MurfClient, error) {
	api, err := newRESTClient(murfName, cfg.BaseURL, "api-key", cfg.APIKey, cfg.Timeout, "errorMessage", "message", "error")
	if err != nil {
		return nil, err
	}

	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 3000
	}

	return &MurfClient{api: api, format: cfg.Format, maxChars: maxChars}, nil
}

// MaxChars 返回单次合成允许的最大字符数。
func (c *MurfClient) MaxChars() int {
	return c.maxChars
}

type murfRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Style   string `json:"style,omitempty"`
	Format  string `json:"format,omitempty"`
}

type murfResponse struct {
	AudioFile               string  `json:"audioFile"`
	AudioLengthInSeconds    float64 `json:"audioLengthInSeconds"`
	ConsumedCharacterCount  int     `json:"consumedCharacterCount"`
	RemainingCharacterCount int     `json:"remainingCharacterCount"`
}

// Synthesize 合成一段文本；超出 MaxChars 的文本需要调用方先分块。
func (c *MurfClient) Synthesize(ctx context.Context, content, voiceID, style string) (*speechmodel.SynthesisResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, provider.New(provider.KindInvalidInput, murfName, "text is empty")
	}
	if n := utf8.RuneCountInString(content); n > c.maxChars {
		return nil, provider.New(provider.KindInvalidInput, murfName, fmt.Sprintf("text has %d characters, limit is %d", n, c.maxChars))
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, provider.New(provider.KindInvalidInput, murfName, "voice id is empty")
	}

	req := murfRequest{Text: content, VoiceID: voiceID, Style: style, Format: c.format}

	var resp murfResponse
	if err := c.api.doJSON(ctx, http.MethodPost, "/v1/speech/generate", req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioFile == "" {
		return nil, provider.New(provider.KindUnavailable, murfName, "response has no audio file")
	}

	log.Printf("[speech] murf voice=%s style=%s chars=%d remaining=%d", voiceID, style, resp.ConsumedCharacterCount, resp.RemainingCharacterCount)

	return &speechmodel.SynthesisResult{
		AudioURL:            resp.AudioFile,
		Duration:            resp.AudioLengthInSeconds,
		WordCount:           text.WordCount(content),
		Success:             true,
		CharactersUsed:      resp.ConsumedCharacterCount,
		CharactersRemaining: resp.RemainingCharacterCount,
	}, nil
}
