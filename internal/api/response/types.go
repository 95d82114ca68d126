package response

import (
	"time"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/auth"
	"github.com/mcoot/wordchain-go/internal/services/game"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	IsBot       bool   `json:"is_bot,omitempty"`
	EloRating   int    `json:"elo_rating"`
	GamesPlayed int    `json:"games_played"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		IsBot:       p.IsBot,
		EloRating:   p.EloRating,
		GamesPlayed: p.GamesPlayed,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// LobbyConfig represents lobby configuration
type LobbyConfig struct {
	StartingClockSeconds int            `json:"starting_clock_seconds"`
	Rule                 model.WordRule `json:"rule"`
}

// LobbyConfigFromModel converts model.LobbyConfig
func LobbyConfigFromModel(c model.LobbyConfig) LobbyConfig {
	return LobbyConfig{
		StartingClockSeconds: int(c.StartingClock / time.Second),
		Rule:                 c.Rule,
	}
}

// LobbyMember represents a lobby member
type LobbyMember struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	EloRating   int    `json:"elo_rating"`
	Role        string `json:"role"`
	IsHost      bool   `json:"is_host"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// LobbyMemberFromModel converts model.LobbyMember
func LobbyMemberFromModel(m model.LobbyMember) LobbyMember {
	return LobbyMember{
		PlayerID:    string(m.Player.ID),
		DisplayName: m.Player.DisplayName,
		EloRating:   m.Player.EloRating,
		Role:        string(m.Role),
		IsHost:      m.IsHost,
		IsBot:       m.Player.IsBot,
	}
}

// Lobby represents a lobby in API responses
type Lobby struct {
	Code    string        `json:"code"`
	State   string        `json:"state"`
	Config  LobbyConfig   `json:"config"`
	Members []LobbyMember `json:"members"`
}

// LobbyFromModel converts model.Lobby
func LobbyFromModel(l *model.Lobby) Lobby {
	members := make([]LobbyMember, len(l.Members))
	for i, m := range l.Members {
		members[i] = LobbyMemberFromModel(m)
	}

	return Lobby{
		Code:    string(l.Code),
		State:   string(l.State),
		Config:  LobbyConfigFromModel(l.Config),
		Members: members,
	}
}

// Session is the authoritative session state with clocks in milliseconds
type Session struct {
	LobbyCode     string         `json:"lobby_code"`
	Status        string         `json:"status"`
	Players       [2]string      `json:"players"`
	CurrentTurn   int            `json:"current_turn"`
	ActivePlayer  string         `json:"active_player"`
	Player1TimeMs int64          `json:"player1_time_ms"`
	Player2TimeMs int64          `json:"player2_time_ms"`
	Rule          model.WordRule `json:"rule"`
	GameStartedAt time.Time      `json:"game_started_at"`
	LastMoveAt    time.Time      `json:"last_move_at"`
	LastTickAt    time.Time      `json:"last_tick_at"`
	Winner        string         `json:"winner,omitempty"`
	EndReason     string         `json:"end_reason,omitempty"`
	EloUpdated    bool           `json:"elo_updated"`
	Version       int64          `json:"version"`
}

// SessionFromModel converts model.Session
func SessionFromModel(s *model.Session) Session {
	return Session{
		LobbyCode:     string(s.LobbyCode),
		Status:        string(s.Status),
		Players:       [2]string{string(s.Players[0]), string(s.Players[1])},
		CurrentTurn:   s.CurrentTurn,
		ActivePlayer:  string(s.ActivePlayer()),
		Player1TimeMs: s.Clocks[0].Milliseconds(),
		Player2TimeMs: s.Clocks[1].Milliseconds(),
		Rule:          s.Rule,
		GameStartedAt: s.GameStartedAt,
		LastMoveAt:    s.LastMoveAt,
		LastTickAt:    s.LastTickAt,
		Winner:        string(s.Winner),
		EndReason:     string(s.EndReason),
		EloUpdated:    s.EloUpdated,
		Version:       s.Version,
	}
}

// Move represents one recorded word
type Move struct {
	ID        string                 `json:"id"`
	Seq       int                    `json:"seq"`
	Word      string                 `json:"word"`
	PlayerID  string                 `json:"player_id"`
	IsValid   bool                   `json:"is_valid"`
	Score     *int                   `json:"score,omitempty"`
	Breakdown *model.ScoreBreakdown  `json:"breakdown,omitempty"`
	Lexical   *model.LexicalMetadata `json:"lexical,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// MoveFromModel converts model.Move
func MoveFromModel(m model.Move) Move {
	return Move{
		ID:        m.ID,
		Seq:       m.Seq,
		Word:      m.Word,
		PlayerID:  string(m.PlayerID),
		IsValid:   m.IsValid,
		Score:     m.Score,
		Breakdown: m.Breakdown,
		Lexical:   m.Lexical,
		CreatedAt: m.CreatedAt,
	}
}

// Snapshot is the catch-up view of a session
type Snapshot struct {
	Session Session `json:"session"`
	Moves   []Move  `json:"moves"`
	Scores  [2]int  `json:"scores"`
}

// SnapshotFromModel converts model.SessionSnapshot
func SnapshotFromModel(s *model.SessionSnapshot) Snapshot {
	moves := make([]Move, len(s.Moves))
	for i, m := range s.Moves {
		moves[i] = MoveFromModel(m)
	}
	return Snapshot{
		Session: SessionFromModel(&s.Session),
		Moves:   moves,
		Scores:  s.Scores,
	}
}

// MoveResponse is the response to a move submission
type MoveResponse struct {
	Move    Move    `json:"move"`
	Session Session `json:"session"`
}

// MoveResponseFromResult converts game.MoveResult
func MoveResponseFromResult(r *game.MoveResult) MoveResponse {
	return MoveResponse{
		Move:    MoveFromModel(r.Move),
		Session: SessionFromModel(&r.Session),
	}
}

// RatingChange is the outcome of a rating update
type RatingChange struct {
	Winner       string `json:"winner"`
	Loser        string `json:"loser"`
	Delta        int    `json:"delta"`
	WinnerRating int    `json:"winner_rating"`
	LoserRating  int    `json:"loser_rating"`
}

// RatingChangeFromModel converts model.RatingChange
func RatingChangeFromModel(c *model.RatingChange) *RatingChange {
	if c == nil {
		return nil
	}
	return &RatingChange{
		Winner:       string(c.Winner),
		Loser:        string(c.Loser),
		Delta:        c.Delta,
		WinnerRating: c.WinnerRating,
		LoserRating:  c.LoserRating,
	}
}

// EndSessionResponse reports whether this notification applied the rating update
type EndSessionResponse struct {
	Applied bool          `json:"applied"`
	Rating  *RatingChange `json:"rating,omitempty"`
}

// Leaderboard lists the top rated players
type Leaderboard struct {
	Entries []model.LeaderboardEntry `json:"entries"`
}

// GameHistory lists a player's finished sessions, newest first
type GameHistory struct {
	PlayerID string             `json:"player_id"`
	Games    []model.GameRecord `json:"games"`
}
