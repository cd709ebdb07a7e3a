package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AUDIO_MAX_UPLOAD_MB",
		"ASSEMBLYAI_API_KEY", "ASSEMBLYAI_POLL_INTERVAL", "ASSEMBLYAI_TIMEOUT", "TRANSCRIPTION_MIN_CONFIDENCE",
		"COMPLETION_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
		"LLM_TEMPERATURE", "LLM_MAX_TOKENS",
		"MURF_API_KEY", "MURF_MAX_CHARS", "MURF_AUTO_STYLE", "MURF_STYLE_CLASSIFIER",
		"CHAT_HISTORY_CAP", "CHAT_PROMPT_HISTORY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Conversation.HistoryCap != 20 || cfg.Conversation.PromptHistory != 20 {
		t.Fatalf("unexpected history settings: %+v", cfg.Conversation)
	}
	if cfg.Synthesis.MaxChars != 3000 || cfg.Conversation.TTSMaxChars != 5000 || cfg.Conversation.QueryMaxChars != 8000 {
		t.Fatalf("unexpected limits: synth=%d tts=%d query=%d", cfg.Synthesis.MaxChars, cfg.Conversation.TTSMaxChars, cfg.Conversation.QueryMaxChars)
	}
	if cfg.Synthesis.Voice != "en-US-claire" || cfg.Synthesis.FallbackVoice != "en-US-ken" {
		t.Fatalf("unexpected voices: %+v", cfg.Synthesis)
	}
	if cfg.Transcription.PollInterval != time.Second || cfg.Transcription.MinConfidence != 0 {
		t.Fatalf("unexpected transcription config: %+v", cfg.Transcription)
	}
	if cfg.Completion.Provider != ProviderGemini {
		t.Fatalf("expected gemini provider by default, got %s", cfg.Completion.Provider)
	}
	if cfg.Transcription.Enabled() || cfg.Completion.Enabled() || cfg.Synthesis.Enabled() {
		t.Fatal("expected every adapter to be disabled without keys")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("ASSEMBLYAI_API_KEY", "aai")
	t.Setenv("ASSEMBLYAI_POLL_INTERVAL", "250ms")
	t.Setenv("ASSEMBLYAI_TIMEOUT", "30")
	t.Setenv("TRANSCRIPTION_MIN_CONFIDENCE", "0.4")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("MURF_API_KEY", "murf")
	t.Setenv("MURF_AUTO_STYLE", "true")
	t.Setenv("MURF_STYLE_CLASSIFIER", "1")
	t.Setenv("CHAT_HISTORY_CAP", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Transcription.PollInterval != 250*time.Millisecond || cfg.Transcription.Timeout != 30*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg.Transcription)
	}
	if cfg.Transcription.MinConfidence != 0.4 {
		t.Fatalf("unexpected min confidence: %v", cfg.Transcription.MinConfidence)
	}
	if !cfg.Completion.Enabled() || cfg.Completion.Temperature == nil || *cfg.Completion.Temperature != 0.7 {
		t.Fatalf("unexpected completion config: %+v", cfg.Completion)
	}
	if !cfg.Synthesis.Enabled() || !cfg.Synthesis.AutoStyle || !cfg.Synthesis.StyleClassifier {
		t.Fatalf("unexpected synthesis config: %+v", cfg.Synthesis)
	}
	if cfg.Conversation.HistoryCap != 10 || cfg.Conversation.PromptHistory != 10 {
		t.Fatalf("prompt history should follow the cap, got %+v", cfg.Conversation)
	}
}

func TestLoadPicksArkWhenOnlyArkConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARK_API_KEY", "ark")
	t.Setenv("ARK_MODEL", "doubao")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Completion.Provider != ProviderArk || !cfg.Completion.Enabled() {
		t.Fatalf("expected enabled ark provider, got %+v", cfg.Completion)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                         "80 80",
		"CHAT_HISTORY_CAP":             "0",
		"TRANSCRIPTION_MIN_CONFIDENCE": "1.5",
		"COMPLETION_PROVIDER":          "claude",
		"MURF_AUTO_STYLE":              "maybe",
		"ASSEMBLYAI_POLL_INTERVAL":     "soon",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
