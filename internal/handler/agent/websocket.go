package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 在一个连接上收集音频并逐轮返回结果
type WebSocketHandler struct {
	pipeline     Pipeline
	maxAudio     int64
	upgrader     websocket.Upgrader
	readTimeout  time.Duration
	pingInterval time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(pipeline Pipeline, maxAudio int64) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
		maxAudio: maxAudio,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		readTimeout:  readTimeout,
		pingInterval: pingInterval,
	}
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage 音频消息；audioData 为 base64
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	IsFinal   bool   `json:"isFinal"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn 串行化同一连接上的写操作
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

type connectionState struct {
	sessionID string
	buffer    bytes.Buffer
	turns     int
	busy      atomic.Bool
	wg        sync.WaitGroup
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionParam(r)
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	state := &connectionState{sessionID: sessionID}
	defer func() {
		cancel()
		state.wg.Wait()
	}()

	conn := &wsConn{conn: ws}
	ws.SetReadLimit(h.maxAudio + 1<<20)
	ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go pingLoop(ctx, ws, h.pingInterval)

	h.send(conn, "connected", sessionID, map[string]any{"session_id": sessionID})

	for {
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(h.readTimeout))

		switch msgType {
		case websocket.BinaryMessage:
			h.bufferAudio(conn, state, payload)
		case websocket.TextMessage:
			var msg inboundMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				h.sendError(conn, "invalid message")
				continue
			}
			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(conn, "session mismatch")
				continue
			}
			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *wsConn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		var audio AudioMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &audio); err != nil {
				h.sendError(conn, "invalid audio payload")
				return
			}
		}
		if !h.bufferAudio(conn, state, audio.AudioData) {
			return
		}
		if audio.IsFinal {
			h.startTurn(ctx, conn, state)
		}
	case "end":
		h.startTurn(ctx, conn, state)
	case "reset":
		state.buffer.Reset()
		h.send(conn, "reset", state.sessionID, nil)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

// bufferAudio 追加音频，超出上限时丢弃整段缓冲
func (h *WebSocketHandler) bufferAudio(conn *wsConn, state *connectionState, chunk []byte) bool {
	if len(chunk) == 0 {
		return true
	}
	if int64(state.buffer.Len()+len(chunk)) > h.maxAudio {
		state.buffer.Reset()
		h.sendError(conn, fmt.Sprintf("audio exceeds %d bytes", h.maxAudio))
		return false
	}
	state.buffer.Write(chunk)
	return true
}

// startTurn 取走缓冲音频并在后台运行一轮；同一连接同时只允许一轮
func (h *WebSocketHandler) startTurn(ctx context.Context, conn *wsConn, state *connectionState) {
	if state.buffer.Len() == 0 {
		h.sendError(conn, "no audio buffered")
		return
	}
	if !state.busy.CompareAndSwap(false, true) {
		h.sendError(conn, "turn already in progress")
		return
	}
	audio := bytes.Clone(state.buffer.Bytes())
	state.buffer.Reset()
	state.turns++
	turn := state.turns

	state.wg.Add(1)
	go func() {
		defer state.wg.Done()
		defer state.busy.Store(false)

		log.Printf("[websocket] running turn session=%s turn=%d bytes=%d", state.sessionID, turn, len(audio))
		result := h.pipeline.HandleTurn(ctx, state.sessionID, audio)
		if ctx.Err() != nil {
			return
		}
		h.send(conn, "result", state.sessionID, result)
	}()
}

func (h *WebSocketHandler) send(conn *wsConn, msgType, sessionID string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, message string) {
	h.send(conn, "error", "", map[string]string{"message": strings.TrimSpace(message)})
}

// pingLoop 定期发送ping；WriteControl 可与其它写操作并发调用
func pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
