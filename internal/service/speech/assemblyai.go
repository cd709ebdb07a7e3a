package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/voicemate/backend/internal/config"
	speechmodel "github.com/zhouzirui/voicemate/backend/internal/model/speech"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

const assemblyAIName = "assemblyai"

// AssemblyAIClient 通过 AssemblyAI REST 接口完成离线转写：上传音频、创建任务、轮询结果。
type AssemblyAIClient struct {
	api          *restClient
	languageCode string
	pollInterval time.Duration
	timeout      time.Duration
}

// NewAssemblyAIClient 根据配置创建客户端，缺少密钥时返回 not_configured 错误。
func NewAssemblyAIClient(cfg config.TranscriptionConfig) (*AssemblyAIClient, error) {
	api, err := newRESTClient(assemblyAIName, cfg.BaseURL, "authorization", cfg.APIKey, 60*time.Second, "error", "message")
	if err != nil {
		return nil, err
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}

	return &AssemblyAIClient{
		api:          api,
		languageCode: strings.TrimSpace(cfg.LanguageCode),
		pollInterval: poll,
		timeout:      cfg.Timeout,
	}, nil
}

type assemblyUpload struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type assemblyTranscript struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          string   `json:"text"`
	Confidence    *float64 `json:"confidence"`
	LanguageCode  string   `json:"language_code"`
	AudioDuration *float64 `json:"audio_duration"`
	Error         string   `json:"error"`
}

// Transcribe 将整段音频转写为文本。
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte) (*speechmodel.TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, provider.New(provider.KindInvalidInput, assemblyAIName, "audio is empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var upload assemblyUpload
	if err := c.api.doJSON(ctx, http.MethodPost, "/v2/upload", audio, &upload); err != nil {
		return nil, err
	}
	if upload.UploadURL == "" {
		return nil, provider.New(provider.KindUnavailable, assemblyAIName, "upload returned no url")
	}

	var transcript assemblyTranscript
	req := assemblyTranscriptRequest{AudioURL: upload.UploadURL, LanguageCode: c.languageCode}
	if err := c.api.doJSON(ctx, http.MethodPost, "/v2/transcript", req, &transcript); err != nil {
		return nil, err
	}
	if transcript.ID == "" {
		return nil, provider.New(provider.KindUnavailable, assemblyAIName, "transcript request returned no id")
	}

	final, err := c.waitForTranscript(ctx, transcript)
	if err != nil {
		return nil, err
	}

	log.Printf("[speech] assemblyai transcript=%s status=%s chars=%d", final.ID, final.Status, len(final.Text))
	return normalizeTranscript(final), nil
}

func (c *AssemblyAIClient) waitForTranscript(ctx context.Context, transcript assemblyTranscript) (assemblyTranscript, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		switch transcript.Status {
		case "completed":
			return transcript, nil
		case "error":
			msg := transcript.Error
			if msg == "" {
				msg = "transcription failed"
			}
			return transcript, provider.New(provider.KindInvalidInput, assemblyAIName, msg)
		}

		select {
		case <-ctx.Done():
			err := ctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("transcript %s not ready: %w", transcript.ID, err)
			}
			return transcript, provider.Wrap(provider.KindUnavailable, assemblyAIName, err)
		case <-ticker.C:
		}

		var next assemblyTranscript
		if err := c.api.doJSON(ctx, http.MethodGet, "/v2/transcript/"+transcript.ID, nil, &next); err != nil {
			return transcript, err
		}
		if next.ID == "" {
			next.ID = transcript.ID
		}
		transcript = next
	}
}

func normalizeTranscript(t assemblyTranscript) *speechmodel.TranscriptionResult {
	text := strings.TrimSpace(t.Text)
	result := &speechmodel.TranscriptionResult{
		Text:         text,
		Success:      text != "",
		LanguageCode: t.LanguageCode,
		TranscriptID: t.ID,
	}
	if t.Confidence != nil {
		result.Confidence = *t.Confidence
	}
	if t.AudioDuration != nil {
		result.Duration = *t.AudioDuration
	}
	return result
}
