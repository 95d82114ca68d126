package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Lobby events
	EventPlayerJoined EventType = "player-joined"
	EventPlayerLeft   EventType = "player-left"

	// Session events
	EventStateChanged  EventType = "state-changed"  // Carries the full session
	EventMoveInserted  EventType = "move-inserted"  // Carries one move
	EventSessionEnded  EventType = "session-ended"  // Carries the finished session
	EventRatingUpdated EventType = "rating-updated" // Carries the rating change
)

// Event is a change notification delivered to every observer of a lobby.
// Seq is the session version after the write that produced it; lobby events carry 0.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	LobbyCode LobbyCode     `json:"lobby_code"`
	PlayerID  PlayerID      `json:"player_id,omitempty"` // The player who triggered or is affected
	Seq       int64         `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Session   *Session      `json:"session,omitempty"`
	Move      *Move         `json:"move,omitempty"`
	Rating    *RatingChange `json:"rating,omitempty"`
	Member    *LobbyMember  `json:"member,omitempty"`
}
