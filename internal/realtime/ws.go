package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/wordchain-go/internal/model"
)

// maxInboundMessageSize bounds frames read from WebSocket clients, which only send control frames
const maxInboundMessageSize = 1024

// WebSocketServer upgrades requests and streams lobby events as JSON text frames
type WebSocketServer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketServer creates a WebSocketServer. A nil checkOrigin allows every origin.
func NewWebSocketServer(checkOrigin func(r *http.Request) bool, logger *slog.Logger) *WebSocketServer {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

// Serve upgrades the connection and blocks until the client goes away
func (s *WebSocketServer) Serve(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(hub, playerID, TransportWebSocket)
	hub.Register(client)

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(conn, client, closed)

	hub.Unregister(client)
	_ = conn.Close()
}

// writePump sends events and pings until the client or hub goes away
func (s *WebSocketServer) writePump(conn *websocket.Conn, client *Client, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "resync"))
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("failed to encode event", slog.String("error", err.Error()))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return
		}
	}
}

// readPump consumes control frames so pongs and closes are processed
func (s *WebSocketServer) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(maxInboundMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
	}
}
