package agent

import (
	"strings"
	"time"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// TurnResult aggregates one pass through the pipeline.
type TurnResult struct {
	SessionID      string        `json:"session_id"`
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
	Transcript     string        `json:"transcript"`
	ReplyText      string        `json:"reply_text"`
	LLMResponse    string        `json:"llm_response"`
	AudioURL       *string       `json:"audio_url"`
	AudioURLs      []string      `json:"audio_urls,omitempty"`
	Voice          string        `json:"voice_id,omitempty"`
	Style          string        `json:"style,omitempty"`
	MessageCount   int           `json:"message_count"`
	ErrorKind      provider.Kind `json:"error_type,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	FallbackUsed   bool          `json:"fallback_used"`
	FallbackReason Reason        `json:"fallback_reason,omitempty"`
	Stages         []StageTiming `json:"stages,omitempty"`
}

// StageTiming records how long one adapter call took.
type StageTiming struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// HasAudio reports whether synthesis produced a playable reference.
func (r *TurnResult) HasAudio() bool {
	return r.AudioURL != nil
}

func (r *TurnResult) setReply(text string) {
	r.ReplyText = text
	r.LLMResponse = text
}

// fail records err as the turn's error unless an earlier stage already did,
// and returns the reason that picks the fallback text.
func (r *TurnResult) fail(reason Reason, err error) Reason {
	if isConnectionError(err) {
		reason = ReasonConnection
	}
	if r.ErrorKind == "" {
		r.ErrorKind = provider.KindOf(err)
		r.ErrorMessage = err.Error()
	}
	if r.FallbackReason == "" {
		r.FallbackReason = reason
	}
	return reason
}

func (r *TurnResult) track(stage string, started time.Time, err error) {
	timing := StageTiming{Stage: stage, DurationMS: time.Since(started).Milliseconds()}
	if err != nil {
		timing.Error = err.Error()
	}
	r.Stages = append(r.Stages, timing)
}

type statusLine []string

func (s *statusLine) add(ok bool, success, failure string) {
	if ok {
		*s = append(*s, success)
	} else {
		*s = append(*s, failure)
	}
}

func (s statusLine) String() string {
	return strings.Join(s, " | ")
}
