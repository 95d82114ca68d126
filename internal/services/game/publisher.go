package game

import (
	"context"

	"github.com/google/uuid"

	"github.com/mcoot/wordchain-go/internal/model"
)

// Publisher delivers session events to observers of a lobby.
// Events for one lobby are published in the order the writes were accepted.
type Publisher interface {
	Publish(ctx context.Context, event model.Event)
}

// NopPublisher discards all events
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(ctx context.Context, event model.Event) {}

// RatingApplier performs the post-game rating update, at most once per session
type RatingApplier interface {
	Apply(ctx context.Context, code model.LobbyCode) (*model.RatingChange, bool, error)
}

func (c *Controller) sessionEvent(eventType model.EventType, session *model.Session) model.Event {
	snapshot := *session
	return model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LobbyCode: session.LobbyCode,
		Seq:       session.Version,
		Timestamp: c.clock.Now(),
		Session:   &snapshot,
	}
}

func (c *Controller) moveEvent(session *model.Session, move *model.Move) model.Event {
	m := *move
	return model.Event{
		ID:        uuid.NewString(),
		Type:      model.EventMoveInserted,
		LobbyCode: session.LobbyCode,
		PlayerID:  move.PlayerID,
		Seq:       session.Version,
		Timestamp: c.clock.Now(),
		Move:      &m,
	}
}

func (c *Controller) ratingEvent(session *model.Session, change *model.RatingChange) model.Event {
	return model.Event{
		ID:        uuid.NewString(),
		Type:      model.EventRatingUpdated,
		LobbyCode: session.LobbyCode,
		Seq:       session.Version,
		Timestamp: c.clock.Now(),
		Rating:    change,
	}
}
