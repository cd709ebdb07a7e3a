package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies adapter failures the way callers need to react to them.
type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindUnavailable   Kind = "provider_unavailable"
	KindInvalidInput  Kind = "invalid_input"
	KindLowConfidence Kind = "low_confidence"
)

var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrUnavailable   = errors.New("provider unavailable")
	ErrInvalidInput  = errors.New("invalid input")
	ErrLowConfidence = errors.New("transcription confidence too low")
)

// Error is the normalized failure every adapter returns.
type Error struct {
	Kind       Kind
	Provider   string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotConfigured:
		return ErrNotConfigured
	case KindUnavailable:
		return ErrUnavailable
	case KindInvalidInput:
		return ErrInvalidInput
	case KindLowConfidence:
		return ErrLowConfidence
	default:
		return nil
	}
}

// New builds an Error without an underlying cause.
func New(kind Kind, providerName, message string) *Error {
	return &Error{Kind: kind, Provider: providerName, Message: message}
}

// Wrap attaches a kind and provider name to err. Wrapping an existing *Error keeps its kind.
func Wrap(kind Kind, providerName string, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: kind, Provider: providerName, Err: err}
}

// NotConfigured reports a missing credential for providerName.
func NotConfigured(providerName, setting string) *Error {
	return New(KindNotConfigured, providerName, setting+" is not set")
}

// FromStatus maps an HTTP status returned by a provider onto a Kind.
func FromStatus(providerName string, status int, message string) *Error {
	kind := KindUnavailable
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindNotConfigured
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		kind = KindUnavailable
	case status >= 400 && status < 500:
		kind = KindInvalidInput
	}
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, Provider: providerName, Message: message, StatusCode: status}
}

// KindOf classifies any error. Unknown errors count as provider_unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrLowConfidence):
		return KindLowConfidence
	}

	// transport failures, timeouts and cancellations all land here
	return KindUnavailable
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the status code handlers answer with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotConfigured:
		return http.StatusServiceUnavailable
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindLowConfidence:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Status is the health view of one adapter.
type Status struct {
	Name        string `json:"name"`
	Configured  bool   `json:"configured"`
	Initialized bool   `json:"initialized"`
	Error       string `json:"error,omitempty"`
}
