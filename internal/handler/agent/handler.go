package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
	"github.com/zhouzirui/voicemate/backend/internal/model/speech"
	agentservice "github.com/zhouzirui/voicemate/backend/internal/service/agent"
	"github.com/zhouzirui/voicemate/backend/pkg/utils"
)

// Pipeline 是处理器依赖的对话流水线
type Pipeline interface {
	HandleTurn(ctx context.Context, sessionID string, audio []byte) agentservice.TurnResult
	QueryText(ctx context.Context, text string) agentservice.TurnResult
	QueryAudio(ctx context.Context, audio []byte) agentservice.TurnResult
}

// Sessions 是会话存储中处理器需要的部分
type Sessions interface {
	CreateSession(ctx context.Context) chat.Session
	History(ctx context.Context, sessionID string) []chat.Message
	Clear(ctx context.Context, sessionID string) int
	ListSessions(ctx context.Context) []chat.SessionSummary
	HistoryCap() int
}

// Options 限制上传与查询大小
type Options struct {
	MaxUploadBytes int64
	QueryMaxChars  int
}

// Handler 对话代理的HTTP处理器
type Handler struct {
	pipeline Pipeline
	sessions Sessions
	opts     Options
	ws       *WebSocketHandler
}

// New 创建对话处理器
func New(pipeline Pipeline, sessions Sessions, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.QueryMaxChars <= 0 {
		opts.QueryMaxChars = 8000
	}
	return &Handler{
		pipeline: pipeline,
		sessions: sessions,
		opts:     opts,
		ws:       NewWebSocketHandler(pipeline, opts.MaxUploadBytes),
	}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/agent", func(ar chi.Router) {
		ar.Post("/chat/{session_id}", h.handleChat)
		ar.Get("/history/{session_id}", h.handleHistory)
		ar.Delete("/history/{session_id}", h.handleClearHistory)
		ar.Get("/sessions", h.handleListSessions)
		ar.Post("/sessions", h.handleCreateSession)
		ar.Get("/ws/{session_id}", h.ws.handleWebSocket)
	})
	r.Post("/llm/query", h.handleQuery)
}

func sessionParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "session_id"))
}

// handleChat 处理一轮语音对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionParam(r)
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+1<<20)
	upload, err := utils.ReadAudioUpload(r, h.opts.MaxUploadBytes, "audio_file", "audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("[agent] chat turn session=%s file=%s bytes=%d", sessionID, upload.Filename, len(upload.Data))
	result := h.pipeline.HandleTurn(r.Context(), sessionID, upload.Data)
	utils.RespondJSON(w, http.StatusOK, result)
}

type historyResponse struct {
	SessionID    string         `json:"session_id"`
	MessageCount int            `json:"message_count"`
	Messages     []chat.Message `json:"messages"`
	MaxHistory   int            `json:"max_history"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionParam(r)
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	messages := h.sessions.History(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, historyResponse{
		SessionID:    sessionID,
		MessageCount: len(messages),
		Messages:     messages,
		MaxHistory:   h.sessions.HistoryCap(),
	})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionParam(r)
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	removed := h.sessions.Clear(r.Context(), sessionID)
	log.Printf("[agent] cleared session=%s removed=%d", sessionID, removed)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("Chat history cleared for session %s", sessionID),
		"session_id": sessionID,
		"removed":    removed,
	})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.ListSessions(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"total_sessions": len(sessions),
		"sessions":       sessions,
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.CreateSession(r.Context())
	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

// handleQuery 接受 JSON、表单文本或音频，返回单轮回复，不写入会话历史
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var prompt string
	switch mediaType {
	case "multipart/form-data":
		upload, err := utils.ReadAudioUpload(r, h.opts.MaxUploadBytes, "audio_file", "audio")
		if err == nil {
			utils.RespondJSON(w, http.StatusOK, h.pipeline.QueryAudio(r.Context(), upload.Data))
			return
		}
		if !errors.Is(err, utils.ErrNoAudio) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		prompt = r.FormValue("text")
	case "application/x-www-form-urlencoded":
		prompt = r.FormValue("text")
	default:
		var req speech.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		prompt = req.Text
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "text or audio is required")
		return
	}
	if n := utf8.RuneCountInString(prompt); n > h.opts.QueryMaxChars {
		utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("text too long (%d characters, max %d)", n, h.opts.QueryMaxChars))
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.pipeline.QueryText(r.Context(), prompt))
}
