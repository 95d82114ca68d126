package realtime

import (
	"context"
	"log/slog"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/game"
)

// Relay forwards events to the other server instances
type Relay interface {
	Forward(ctx context.Context, event model.Event) error
}

// Broadcaster delivers published events to the lobby hubs on this instance
// and, when a relay is set, to every other instance.
type Broadcaster struct {
	manager *HubManager
	relay   Relay
	logger  *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(manager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		manager: manager,
		logger:  logger.With(slog.String("component", "broadcaster")),
	}
}

// SetRelay sets the relay used to reach other instances
func (b *Broadcaster) SetRelay(relay Relay) {
	b.relay = relay
}

// Publish implements game.Publisher
func (b *Broadcaster) Publish(ctx context.Context, event model.Event) {
	delivered := b.manager.Deliver(event)
	b.logger.Debug("event published",
		slog.String("lobby_code", string(event.LobbyCode)),
		slog.String("event_type", string(event.Type)),
		slog.Int64("seq", event.Seq),
		slog.Bool("local_listeners", delivered))

	if b.relay == nil {
		return
	}
	if err := b.relay.Forward(ctx, event); err != nil {
		b.logger.Error("failed to relay event",
			slog.String("lobby_code", string(event.LobbyCode)),
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

var _ game.Publisher = (*Broadcaster)(nil)
