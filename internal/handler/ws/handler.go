package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ruffie/backend/internal/middleware"
	"github.com/zhouzirui/ruffie/backend/internal/model/chat"
	"github.com/zhouzirui/ruffie/backend/internal/model/persona"
	"github.com/zhouzirui/ruffie/backend/internal/service/coach"
	"github.com/zhouzirui/ruffie/backend/internal/service/session"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler WebSocket教练处理器
type Handler struct {
	coachSvc *coach.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(coachSvc *coach.Service) *Handler {
	return &Handler{
		coachSvc: coachSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// 入站消息类型
const (
	TypeSubmit  = "submit"
	TypePersona = "persona"
	TypeClear   = "clear"
)

// 出站消息类型
const (
	TypeConnected = "connected"
	TypeTurn      = "turn"
	TypeRisk      = "risk"
	TypeIgnored   = "ignored"
	TypeCleared   = "cleared"
	TypeError     = "error"
)

type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Persona string `json:"persona,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection 串行化同一连接上的写操作，gorilla/websocket 不支持并发写。
type connection struct {
	conn      *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *connection) send(msgType string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (c *connection) sendError(message string) {
	c.send(TypeError, map[string]string{"message": message})
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer raw.Close()

	conn := &connection{conn: raw, sessionID: sess.ID}
	log.Printf("[websocket] new connection for session: %s", sess.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	conn.send(TypeConnected, map[string]any{
		"session": sess.View(),
		"turns":   chat.Views(sess.Conversation.Transcript()),
	})

	// 提交在独立的 goroutine 中执行，读循环继续处理人设切换与清空。
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		raw.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case TypeSubmit:
			inflight.Add(1)
			go func(content string) {
				defer inflight.Done()
				h.submit(ctx, conn, sess, content)
			}(msg.Content)
		case TypePersona:
			if err := sess.SetPersona(persona.Key(strings.TrimSpace(msg.Persona))); err != nil {
				conn.sendError("persona not found")
				continue
			}
			conn.send(TypePersona, sess.View())
		case TypeClear:
			h.coachSvc.Clear(sess)
			conn.send(TypeCleared, map[string]any{
				"turns": chat.Views(sess.Conversation.Transcript()),
			})
		default:
			conn.sendError("unsupported message type: " + msg.Type)
		}
	}
}

func (h *Handler) submit(ctx context.Context, conn *connection, sess *session.Session, content string) {
	result := h.coachSvc.SubmitWithObserver(ctx, sess, content, func(turn chat.Turn) {
		conn.send(TypeTurn, turn.View())
	})

	switch result.Outcome {
	case coach.OutcomeIgnored:
		conn.send(TypeIgnored, map[string]string{"content": content})
	case coach.OutcomeDiscarded:
		log.Printf("[websocket] session=%s reply discarded after clear", sess.ID)
	default:
		if result.Reply != nil {
			conn.send(TypeTurn, result.Reply.View())
		}
		if result.Entry != nil {
			conn.send(TypeRisk, result.Entry)
		}
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

