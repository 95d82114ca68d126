package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mcoot/wordchain-go/internal/model"
)

const (
	// SubjectPrefix is prepended to the lobby code to form an event subject
	SubjectPrefix = "wordchain.lobby"

	// originHeader marks which instance published a message
	originHeader = "Wordchain-Origin"
)

// NATSConfig holds connection settings for the event relay
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default relay settings
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// DialNATS connects to NATS with reconnect logging
func DialNATS(cfg NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("wordchain-server"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", slog.String("error", err.Error()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSConn is the part of *nats.Conn the relay uses
type NATSConn interface {
	PublishMsg(m *nats.Msg) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSRelay fans events out across server instances over core NATS subjects.
// Delivery is best effort: an observer that misses an event sees a gap in Seq
// and resyncs from a snapshot.
type NATSRelay struct {
	conn    NATSConn
	deliver func(model.Event) bool
	origin  string
	logger  *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSRelay creates a relay. deliver receives events published by other instances.
func NewNATSRelay(conn NATSConn, deliver func(model.Event) bool, logger *slog.Logger) *NATSRelay {
	return &NATSRelay{
		conn:    conn,
		deliver: deliver,
		origin:  uuid.NewString(),
		logger:  logger.With(slog.String("component", "nats_relay")),
	}
}

// Subject returns the subject events for a lobby are published on
func Subject(code model.LobbyCode) string {
	return SubjectPrefix + "." + string(code)
}

// Start subscribes to the events of every lobby
func (r *NATSRelay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return nil
	}
	sub, err := r.conn.Subscribe(SubjectPrefix+".*", r.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe to lobby events: %w", err)
	}
	r.sub = sub
	r.logger.Info("relay subscribed", slog.String("origin", r.origin))
	return nil
}

// Forward publishes an event for the other instances
func (r *NATSRelay) Forward(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := nats.NewMsg(Subject(event.LobbyCode))
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set(originHeader, r.origin)
	msg.Data = data

	if err := r.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

func (r *NATSRelay) handleMsg(msg *nats.Msg) {
	if msg.Header.Get(originHeader) == r.origin {
		return
	}

	var event model.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		r.logger.Warn("dropping malformed relay message",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return
	}

	if code := strings.TrimPrefix(msg.Subject, SubjectPrefix+"."); event.LobbyCode != model.LobbyCode(code) {
		r.logger.Warn("dropping relay message for mismatched lobby",
			slog.String("subject", msg.Subject),
			slog.String("lobby_code", string(event.LobbyCode)))
		return
	}

	r.deliver(event)
}

// Close unsubscribes from lobby events. The connection itself is left open.
func (r *NATSRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		return nil
	}
	err := r.sub.Unsubscribe()
	r.sub = nil
	return err
}

var _ Relay = (*NATSRelay)(nil)
