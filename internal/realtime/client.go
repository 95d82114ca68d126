package realtime

import (
	"time"

	"github.com/mcoot/wordchain-go/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Time allowed to read the next pong from a WebSocket peer
	pongWait = 60 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256

	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Client is one observer of a lobby's event stream
type Client struct {
	hub         *Hub
	playerID    model.PlayerID
	transport   string
	send        chan model.Event
	connectedAt time.Time
}

// NewClient creates a new client
func NewClient(hub *Hub, playerID model.PlayerID, transport string) *Client {
	return &Client{
		hub:         hub,
		playerID:    playerID,
		transport:   transport,
		send:        make(chan model.Event, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Events returns the client's delivery channel. It is closed when the
// client is removed from the hub.
func (c *Client) Events() <-chan model.Event {
	return c.send
}
