package agent

import (
	"context"
	"errors"
	"net"
)

// Reason names which stage fell back to a canned reply.
type Reason string

const (
	ReasonTranscription Reason = "stt_error"
	ReasonCompletion    Reason = "llm_error"
	ReasonSynthesis     Reason = "tts_error"
	ReasonConnection    Reason = "connection_error"
	ReasonGeneral       Reason = "general_error"
)

var fallbackMessages = map[Reason]string{
	ReasonTranscription: "I'm having trouble hearing you right now. Please check your microphone and try again.",
	ReasonCompletion:    "I'm having trouble thinking right now. My AI brain needs a moment to reconnect.",
	ReasonSynthesis:     "I'm having trouble speaking right now, but I can still understand you.",
	ReasonConnection:    "I'm having trouble connecting to my services right now. Please try again in a moment.",
	ReasonGeneral:       "Something went wrong on my end. Let me try to help you differently.",
}

// FallbackMessage returns the user-facing text for reason.
func FallbackMessage(reason Reason) string {
	if msg, ok := fallbackMessages[reason]; ok {
		return msg
	}
	return fallbackMessages[ReasonGeneral]
}

// isConnectionError reports network failures and timeouts reaching a provider.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
