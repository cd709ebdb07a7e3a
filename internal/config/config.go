package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server        ServerConfig
	Transcription TranscriptionConfig
	Completion    CompletionConfig
	Synthesis     SynthesisConfig
	Conversation  ConversationConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	transcription, err := loadTranscriptionConfig()
	if err != nil {
		return nil, err
	}

	completion, err := loadCompletionConfig()
	if err != nil {
		return nil, err
	}

	synthesis, err := loadSynthesisConfig()
	if err != nil {
		return nil, err
	}

	conversation, err := loadConversationConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:        server,
		Transcription: transcription,
		Completion:    completion,
		Synthesis:     synthesis,
		Conversation:  conversation,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	upload, err := parseOptionalIntEnv("AUDIO_MAX_UPLOAD_MB")
	if err != nil {
		return ServerConfig{}, err
	}
	maxUpload := int64(32) << 20
	if upload != nil {
		if *upload < 1 {
			return ServerConfig{}, fmt.Errorf("invalid AUDIO_MAX_UPLOAD_MB value %d: must be positive", *upload)
		}
		maxUpload = int64(*upload) << 20
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		return ServerConfig{Addr: port, MaxUploadBytes: maxUpload}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, MaxUploadBytes: maxUpload}, nil
}

// TranscriptionConfig 描述 AssemblyAI 语音识别配置。
type TranscriptionConfig struct {
	APIKey        string
	BaseURL       string
	LanguageCode  string
	PollInterval  time.Duration
	Timeout       time.Duration
	MinConfidence float64
}

// Enabled 表示是否提供了必需的密钥。
func (c TranscriptionConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadTranscriptionConfig() (TranscriptionConfig, error) {
	poll, err := parseDurationEnv("ASSEMBLYAI_POLL_INTERVAL", time.Second)
	if err != nil {
		return TranscriptionConfig{}, err
	}

	timeout, err := parseDurationEnv("ASSEMBLYAI_TIMEOUT", 2*time.Minute)
	if err != nil {
		return TranscriptionConfig{}, err
	}

	minConfidence := 0.0
	if override, err := parseOptionalFloatEnv("TRANSCRIPTION_MIN_CONFIDENCE"); err != nil {
		return TranscriptionConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return TranscriptionConfig{}, fmt.Errorf("invalid TRANSCRIPTION_MIN_CONFIDENCE value %v: must be within [0,1]", *override)
		}
		minConfidence = *override
	}

	return TranscriptionConfig{
		APIKey:        strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")),
		BaseURL:       getEnvOrDefault("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com"),
		LanguageCode:  getEnvOrDefault("ASSEMBLYAI_LANGUAGE_CODE", ""),
		PollInterval:  poll,
		Timeout:       timeout,
		MinConfidence: minConfidence,
	}, nil
}

const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// CompletionConfig 描述大模型相关配置，支持 Gemini（OpenAI 兼容接口）与 Ark 两种后端。
type CompletionConfig struct {
	Provider string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string

	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
	SystemPrompt string
}

// Enabled 表示所选后端的凭证是否齐全。
func (c CompletionConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	case ProviderArk:
		return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return false
	}
}

func loadCompletionConfig() (CompletionConfig, error) {
	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return CompletionConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return CompletionConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return CompletionConfig{}, err
	}

	timeout, err := parseDurationEnv("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return CompletionConfig{}, err
	}

	cfg := CompletionConfig{
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		ArkAPIKey:     strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:  strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:  strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:      strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:    getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:     getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
		Timeout:       timeout,
		SystemPrompt:  strings.TrimSpace(os.Getenv("LLM_SYSTEM_PROMPT")),
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("COMPLETION_PROVIDER")))
	switch provider {
	case "":
		// 未显式指定时，Gemini 优先；只有 Ark 凭证时使用 Ark。
		provider = ProviderGemini
		if cfg.GeminiAPIKey == "" && cfg.ArkModel != "" && (cfg.ArkAPIKey != "" || cfg.ArkAccessKey != "") {
			provider = ProviderArk
		}
	case ProviderGemini, ProviderArk:
	default:
		return CompletionConfig{}, fmt.Errorf("invalid COMPLETION_PROVIDER value %q: want %s or %s", provider, ProviderGemini, ProviderArk)
	}
	cfg.Provider = provider

	return cfg, nil
}

// SynthesisConfig 描述 Murf 语音合成配置。
type SynthesisConfig struct {
	APIKey          string
	BaseURL         string
	Format          string
	Voice           string
	Style           string
	FallbackVoice   string
	FallbackStyle   string
	EchoVoice       string
	QueryVoice      string
	AutoStyle       bool
	// StyleClassifier 使用大模型判断情绪，仅在 AutoStyle 开启时生效
	StyleClassifier bool
	MaxChars        int
	Timeout         time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c SynthesisConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadSynthesisConfig() (SynthesisConfig, error) {
	autoStyle, err := parseBoolEnv("MURF_AUTO_STYLE", false)
	if err != nil {
		return SynthesisConfig{}, err
	}

	classifier, err := parseBoolEnv("MURF_STYLE_CLASSIFIER", false)
	if err != nil {
		return SynthesisConfig{}, err
	}

	maxChars, err := parsePositiveIntEnv("MURF_MAX_CHARS", 3000)
	if err != nil {
		return SynthesisConfig{}, err
	}

	timeout, err := parseDurationEnv("MURF_TIMEOUT", 60*time.Second)
	if err != nil {
		return SynthesisConfig{}, err
	}

	return SynthesisConfig{
		APIKey:          strings.TrimSpace(os.Getenv("MURF_API_KEY")),
		BaseURL:         getEnvOrDefault("MURF_BASE_URL", "https://api.murf.ai"),
		Format:          getEnvOrDefault("MURF_FORMAT", "MP3"),
		Voice:           getEnvOrDefault("MURF_VOICE", "en-US-claire"),
		Style:           getEnvOrDefault("MURF_STYLE", "Cheerful"),
		FallbackVoice:   getEnvOrDefault("MURF_FALLBACK_VOICE", "en-US-ken"),
		FallbackStyle:   getEnvOrDefault("MURF_FALLBACK_STYLE", "Neutral"),
		EchoVoice:       getEnvOrDefault("MURF_ECHO_VOICE", "en-US-natalie"),
		QueryVoice:      getEnvOrDefault("MURF_QUERY_VOICE", "en-US-marcus"),
		AutoStyle:       autoStyle,
		StyleClassifier: classifier,
		MaxChars:        maxChars,
		Timeout:         timeout,
	}, nil
}

// ConversationConfig 描述会话与请求体限制。
type ConversationConfig struct {
	HistoryCap    int
	PromptHistory int
	TTSMaxChars   int
	QueryMaxChars int
}

func loadConversationConfig() (ConversationConfig, error) {
	historyCap, err := parsePositiveIntEnv("CHAT_HISTORY_CAP", 20)
	if err != nil {
		return ConversationConfig{}, err
	}

	promptHistory, err := parsePositiveIntEnv("CHAT_PROMPT_HISTORY", historyCap)
	if err != nil {
		return ConversationConfig{}, err
	}

	ttsMax, err := parsePositiveIntEnv("TTS_MAX_TEXT_CHARS", 5000)
	if err != nil {
		return ConversationConfig{}, err
	}

	queryMax, err := parsePositiveIntEnv("LLM_QUERY_MAX_CHARS", 8000)
	if err != nil {
		return ConversationConfig{}, err
	}

	return ConversationConfig{
		HistoryCap:    historyCap,
		PromptHistory: promptHistory,
		TTSMaxChars:   ttsMax,
		QueryMaxChars: queryMax,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	if *val < 1 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return *val, nil
}

// parseDurationEnv 接受 Go duration 字符串（"1500ms"）或整数秒。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
