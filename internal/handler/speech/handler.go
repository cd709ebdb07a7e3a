package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/voicemate/backend/internal/analysis/text"
	"github.com/zhouzirui/voicemate/backend/internal/model/speech"
	"github.com/zhouzirui/voicemate/backend/internal/model/voice"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
	agentservice "github.com/zhouzirui/voicemate/backend/internal/service/agent"
	"github.com/zhouzirui/voicemate/backend/pkg/utils"
)

// Speaker 合成任意文本或回放转写结果
type Speaker interface {
	Speak(ctx context.Context, content, voice, style string) agentservice.TurnResult
	Echo(ctx context.Context, audio []byte) agentservice.TurnResult
}

// Options 语音接口的限制与默认值
type Options struct {
	MaxUploadBytes int64
	TTSMaxChars    int
	DefaultVoice   string
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speaker     Speaker
	transcriber agentservice.Transcriber
	voices      voice.Store
	opts        Options
}

// New 创建语音处理器；transcriber 为空时转写接口返回 503
func New(speaker Speaker, transcriber agentservice.Transcriber, voices voice.Store, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.TTSMaxChars <= 0 {
		opts.TTSMaxChars = 5000
	}
	return &Handler{speaker: speaker, transcriber: transcriber, voices: voices, opts: opts}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tts", func(tr chi.Router) {
		tr.Post("/generate", h.handleGenerate)
		tr.Get("/voices", h.handleVoices)
		tr.Post("/echo", h.handleEcho)
	})
	r.Post("/transcribe/file", h.handleTranscribe)
}

type generateResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	AudioURL  *string  `json:"audio_url"`
	AudioURLs []string `json:"audio_urls,omitempty"`
	WordCount int      `json:"word_count"`
	VoiceID   string   `json:"voice_id"`
	Style     string   `json:"style,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorType string   `json:"error_type,omitempty"`
}

// handleGenerate 文本转语音
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req speech.SynthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := text.Sanitize(req.Text)
	if content == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if n := utf8.RuneCountInString(content); n > h.opts.TTSMaxChars {
		utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("text too long (%d characters, max %d)", n, h.opts.TTSMaxChars))
		return
	}

	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = h.opts.DefaultVoice
	}
	style := strings.TrimSpace(req.Style)
	if h.voices != nil && style != "" {
		if v, ok := h.voices.FindByID(voiceID); ok && !v.SupportsStyle(style) {
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("voice %s does not support style %s", voiceID, style))
			return
		}
	}

	result := h.speaker.Speak(r.Context(), content, voiceID, style)
	resp := generateResponse{
		Success:   result.Success,
		Message:   result.Message,
		AudioURL:  result.AudioURL,
		AudioURLs: result.AudioURLs,
		WordCount: text.WordCount(content),
		VoiceID:   result.Voice,
		Style:     result.Style,
	}
	if !result.Success {
		resp.Error = result.ErrorMessage
		resp.ErrorType = string(result.ErrorKind)
		log.Printf("[speech] tts failed voice=%s kind=%s: %s", voiceID, result.ErrorKind, result.ErrorMessage)
		utils.RespondJSON(w, provider.HTTPStatus(result.ErrorKind), resp)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVoices(w http.ResponseWriter, _ *http.Request) {
	var (
		voices []voice.Voice
		styles []string
	)
	if h.voices != nil {
		voices = h.voices.List()
		styles = h.voices.Styles()
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"voices":        voices,
		"styles":        styles,
		"total":         len(voices),
		"default_voice": h.opts.DefaultVoice,
	})
}

// handleEcho 识别上传的音频并用回放声音读出
func (h *Handler) handleEcho(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readAudio(w, r)
	if !ok {
		return
	}

	result := h.speaker.Echo(r.Context(), upload.Data)
	status := http.StatusOK
	if !result.Success {
		status = provider.HTTPStatus(result.ErrorKind)
	}
	utils.RespondJSON(w, status, result)
}

type transcribeResponse struct {
	Success          bool    `json:"success"`
	Transcript       string  `json:"transcript"`
	Confidence       float64 `json:"confidence"`
	LanguageDetected string  `json:"language_detected,omitempty"`
	AudioDuration    float64 `json:"audio_duration,omitempty"`
	Filename         string  `json:"filename,omitempty"`
}

// handleTranscribe 只做语音识别
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if h.transcriber == nil {
		utils.RespondProviderError(w, provider.NotConfigured("transcription", "ASSEMBLYAI_API_KEY"))
		return
	}

	upload, ok := h.readAudio(w, r)
	if !ok {
		return
	}

	res, err := h.transcriber.Transcribe(r.Context(), upload.Data)
	if err != nil {
		log.Printf("[speech] transcription failed file=%s: %v", upload.Filename, err)
		utils.RespondProviderError(w, err)
		return
	}

	transcript := strings.TrimSpace(res.Text)
	utils.RespondJSON(w, http.StatusOK, transcribeResponse{
		Success:          transcript != "",
		Transcript:       transcript,
		Confidence:       res.Confidence,
		LanguageDetected: res.LanguageCode,
		AudioDuration:    res.Duration,
		Filename:         upload.Filename,
	})
}

func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) (*utils.AudioUpload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+1<<20)
	upload, err := utils.ReadAudioUpload(r, h.opts.MaxUploadBytes, "audio_file", "audio", "file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return upload, true
}
