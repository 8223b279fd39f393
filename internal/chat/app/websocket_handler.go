package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"
	"group_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type wsClient struct {
	send chan []byte
}

// ConnectionHub owns the outbound queue of every open websocket and implements Transport.
type ConnectionHub struct {
	mu         sync.RWMutex
	clients    map[string]*wsClient
	bufferSize int
}

// NewConnectionHub create ConnectionHub, each connection buffering up to bufferSize frames
func NewConnectionHub(bufferSize int) *ConnectionHub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &ConnectionHub{
		clients:    make(map[string]*wsClient),
		bufferSize: bufferSize,
	}
}

// Register opens the outbound queue of connectionID.
func (h *ConnectionHub) Register(connectionID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &wsClient{send: make(chan []byte, h.bufferSize)}
	h.clients[connectionID] = c
	return c.send
}

// Unregister closes the outbound queue; the write pump drains what is left and stops.
func (h *ConnectionHub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[connectionID]; ok {
		close(c.send)
		delete(h.clients, connectionID)
	}
}

// Send enqueues without blocking. A full queue drops the frame for that connection only.
func (h *ConnectionHub) Send(connectionID string, resp domain.WSResponse) bool {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal frame", zap.String("event", string(resp.Event)), zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connectionID]
	if !ok {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		metrics.FramesDropped.Inc()
		logger.Log.Warn("slow consumer, frame dropped",
			zap.String("connectionID", connectionID),
			zap.String("event", string(resp.Event)),
		)
		return false
	}
}

// Len number of open connections.
func (h *ConnectionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ChatWebsocketHandler bridges websocket connections and the session controller
type ChatWebsocketHandler struct {
	controller   *SessionController
	hub          *ConnectionHub
	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(controller *SessionController, hub *ConnectionHub, pingInterval time.Duration) *ChatWebsocketHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &ChatWebsocketHandler{
		controller:   controller,
		hub:          hub,
		pingInterval: pingInterval,
	}
}

// HandleConnection 是 WebSocket 連線的進入點, identity 已由 gate middleware 驗證
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	identity, ok := conn.Locals(middlewares.IdentityKey).(domain.Identity)
	if !ok {
		logger.Log.Error("websocket without identity", zap.String("remote", conn.RemoteAddr().String()))
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "Authentication required")
		return
	}

	connectionID := uuid.New().String()
	send := h.hub.Register(connectionID)

	ctxClose, cancel := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.writePump(ctxClose, conn, connectionID, send)
	}()

	defer func() {
		h.controller.Disconnect(connectionID)
		h.hub.Unregister(connectionID)
		cancel()
		<-pumpDone
		conn.Close()
		logger.Log.Info("websocket close", zap.String("connectionID", connectionID), zap.String("userID", identity.ID))
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket closed by client", zap.String("connectionID", connectionID), zap.Int("code", code))
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("connectionID", connectionID))
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	if _, err := h.controller.Connect(connectionID, identity); err != nil {
		logger.Log.Error("admit session", zap.String("connectionID", connectionID), zap.Error(err))
		return
	}

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("connectionID", connectionID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("connectionID", connectionID), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(connectionID, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(connectionID string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.controller.HandleFrame(connectionID, msg)

	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		h.sendError(connectionID, "unsupported message type")
	}
}

// writePump is the only writer of conn besides control frames.
func (h *ChatWebsocketHandler) writePump(ctx context.Context, conn *websocket.Conn, connectionID string, send <-chan []byte) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case b, ok := <-send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Log.Warn("write message error", zap.String("connectionID", connectionID), zap.Error(err))
				// unblock the read loop
				conn.Close()
				return
			}
		case <-ticker.C:
			// 定期發送 Ping
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Log.Warn("ping error", zap.String("connectionID", connectionID), zap.Error(err))
				conn.Close()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChatWebsocketHandler) sendError(connectionID string, errorMsg string) {
	h.hub.Send(connectionID, domain.WSResponse{
		Event: domain.Error,
		Data:  domain.ErrorResp{Message: errorMsg},
	})
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Warn("send close message", zap.Error(err))
	}
	conn.Close()
}
