package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	err := New(KindInvalidInput, "murf", "text too long")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, "murf: invalid_input: text too long", err.Error())
}

func TestWrapKeepsCauseAndExistingKind(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := Wrap(KindUnavailable, "assemblyai", cause)

	require.ErrorIs(t, wrapped, cause)
	require.ErrorIs(t, wrapped, ErrUnavailable)

	inner := New(KindNotConfigured, "gemini", "GEMINI_API_KEY is not set")
	rewrapped := Wrap(KindUnavailable, "gemini", fmt.Errorf("complete: %w", inner))
	assert.Equal(t, KindNotConfigured, rewrapped.Kind)
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindNotConfigured},
		{http.StatusForbidden, KindNotConfigured},
		{http.StatusBadRequest, KindInvalidInput},
		{http.StatusUnprocessableEntity, KindInvalidInput},
		{http.StatusTooManyRequests, KindUnavailable},
		{http.StatusInternalServerError, KindUnavailable},
		{http.StatusServiceUnavailable, KindUnavailable},
	}

	for _, tc := range cases {
		err := FromStatus("murf", tc.status, "")
		assert.Equal(t, tc.want, err.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, err.StatusCode)
		assert.NotEmpty(t, err.Message)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindLowConfidence, KindOf(fmt.Errorf("stt: %w", ErrLowConfidence)))
	assert.Equal(t, KindNotConfigured, KindOf(fmt.Errorf("wrapped: %w", NotConfigured("murf", "MURF_API_KEY"))))
	assert.Equal(t, KindUnavailable, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindUnavailable, KindOf(errors.New("boom")))
	assert.True(t, Is(fmt.Errorf("x: %w", ErrInvalidInput), KindInvalidInput))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(KindNotConfigured))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindUnavailable))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidInput))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(KindLowConfidence))
}
