package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

type fixedStats chat.Stats

func (f fixedStats) Stats(context.Context) chat.Stats { return chat.Stats(f) }

func serve(h *Handler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthReportsServicesAndSessions(t *testing.T) {
	statuses := func() []provider.Status {
		return []provider.Status{
			{Name: "assemblyai", Configured: true, Initialized: true},
			{Name: "murf", Configured: true, Initialized: true},
		}
	}
	probe := func(context.Context) (float64, float64, error) { return 12.5, 40, nil }

	rec := serve(New(fixedStats{Sessions: 3, Messages: 14}, statuses, probe))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.ActiveSessions != 3 || body.TotalMessages != 14 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Host == nil || body.Host.CPUPercent != 12.5 {
		t.Fatalf("expected host usage, got %+v", body.Host)
	}
}

func TestHealthDegradedWhenAdapterMissing(t *testing.T) {
	statuses := func() []provider.Status {
		return []provider.Status{{Name: "murf", Error: "MURF_API_KEY is not set"}}
	}
	probe := func(context.Context) (float64, float64, error) { return 0, 0, errors.New("no /proc") }

	rec := serve(New(nil, statuses, probe))

	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", body.Status)
	}
	if body.Host != nil {
		t.Fatalf("host usage should be omitted when sampling fails")
	}
}
