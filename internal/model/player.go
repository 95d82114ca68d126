package model

import "time"

// DefaultEloRating is the rating assigned to new players
const DefaultEloRating = 1200

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a game participant
type Player struct {
	ID          PlayerID  `json:"id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"` // true for unregistered players
	IsBot       bool      `json:"is_bot,omitempty"`
	BotStrategy string    `json:"bot_strategy,omitempty"` // name of the strategy a bot plays with
	EloRating   int       `json:"elo_rating"`
	GamesPlayed int       `json:"games_played"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegisteredPlayer extends Player with authentication data
// Stored separately for security (password never in memory with session)
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LeaderboardEntry is one row of the rating leaderboard
type LeaderboardEntry struct {
	Rank        int      `json:"rank"`
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
	EloRating   int      `json:"elo_rating"`
	GamesPlayed int      `json:"games_played"`
}

// AuthToken is a bearer session issued to a player
type AuthToken struct {
	Token     string    `json:"token"`
	PlayerID  PlayerID  `json:"player_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
