package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/hub"
	"github.com/skinguard/backend/internal/session"
)

// WebSocket message types for the live view protocol
const (
	// Client -> Server messages
	MsgTypeAnalyze = "analyze"
	MsgTypeReset   = "reset"
	MsgTypeDismiss = "dismiss"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeView      = "view"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope of every websocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DismissPayload names the notification to dismiss
type DismissPayload struct {
	NotificationID string `json:"notificationId"`
}

// WSErrorResponse is the payload of an error frame
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WebSocketHandler pushes a view snapshot on every controller change and
// accepts analyze/reset commands
type WebSocketHandler struct {
	sessionMgr     *session.Manager
	hub            *hub.Hub
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *slog.Logger
}

// NewWebSocketHandler creates a new live view handler
func NewWebSocketHandler(sessionMgr *session.Manager, h *hub.Hub, maxMessageSize int64, logger *slog.Logger) *WebSocketHandler {
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		hub:        h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

// wsConn serializes writes to one connection
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	return c.ws.WriteJSON(msg)
}

// HandleWebSocket upgrades the connection and streams the session view
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	sess, err := lookupSession(c, wsh.sessionMgr)
	if err != nil {
		return err
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.maxMessageSize)

	conn := &wsConn{ws: ws}
	logger := wsh.logger.With("session_id", sess.ID)
	logger.Info("websocket client connected")

	views, cancel := wsh.hub.Subscribe(sess.ID)
	defer cancel()

	conn.send(WSMessage{Type: MsgTypeConnected, ID: sess.ID})
	conn.send(WSMessage{Type: MsgTypeView, Payload: mustJSON(renderSession(sess))})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		wsh.readLoop(conn, sess, logger)
	}()

	for {
		select {
		case v, ok := <-views:
			if !ok {
				return nil
			}
			if err := conn.send(WSMessage{Type: MsgTypeView, Payload: mustJSON(renderView(sess.ID, v))}); err != nil {
				logger.Warn("websocket write failed", "err", err)
				return nil
			}
		case <-closed:
			logger.Info("websocket client disconnected")
			return nil
		}
	}
}

func (wsh *WebSocketHandler) readLoop(conn *wsConn, sess *session.Session, logger *slog.Logger) {
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket connection error", "err", err)
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeAnalyze:
			_, err := sess.Controller.StartSubmit(context.Background())
			if errors.Is(err, analysis.ErrAnalysisInProgress) {
				wsh.sendError(conn, msg.ID, "analysis already in progress", "CONFLICT")
			}
		case MsgTypeReset:
			sess.Controller.Reset()
		case MsgTypeDismiss:
			var payload DismissPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.NotificationID == "" {
				wsh.sendError(conn, msg.ID, "invalid dismiss payload", "INVALID_PAYLOAD")
				continue
			}
			sess.Controller.Notifier().Dismiss(payload.NotificationID)
		default:
			wsh.sendError(conn, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

func (wsh *WebSocketHandler) sendError(conn *wsConn, id, message, code string) {
	conn.send(WSMessage{
		Type:    MsgTypeError,
		ID:      id,
		Payload: mustJSON(WSErrorResponse{Message: message, Code: code}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
