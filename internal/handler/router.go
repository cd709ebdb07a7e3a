package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/voicemate/backend/internal/handler/agent"
	"github.com/zhouzirui/voicemate/backend/internal/handler/health"
	"github.com/zhouzirui/voicemate/backend/internal/handler/speech"
	middlewarePkg "github.com/zhouzirui/voicemate/backend/internal/middleware"
)

// Handlers 汇总各模块的路由处理器
type Handlers struct {
	Agent  *agent.Handler
	Speech *speech.Handler
	Health *health.Handler
}

// NewRouter wires HTTP routes to core services.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	if h.Health != nil {
		h.Health.RegisterRoutes(r)
	}
	if h.Agent != nil {
		h.Agent.RegisterRoutes(r)
	}
	if h.Speech != nil {
		h.Speech.RegisterRoutes(r)
	}

	return r
}
