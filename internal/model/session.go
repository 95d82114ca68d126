package model

import "time"

// SessionStatus represents the current phase of a session
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionPaused   SessionStatus = "paused"
	SessionFinished SessionStatus = "finished" // Terminal
)

// EndReason records why a session finished
type EndReason string

const (
	EndReasonTime    EndReason = "time"
	EndReasonForfeit EndReason = "forfeit"
)

// Session is the authoritative state of one two-player game in a lobby.
// Only the clock of Players[CurrentTurn] is ever charged, and only while active.
type Session struct {
	LobbyCode     LobbyCode                `json:"lobby_code"`
	Status        SessionStatus            `json:"status"`
	Players       [SeatCount]PlayerID      `json:"players"`
	CurrentTurn   int                      `json:"current_turn"`
	Clocks        [SeatCount]time.Duration `json:"clocks"`
	StartingClock time.Duration            `json:"starting_clock"`
	Rule          WordRule                 `json:"rule"`

	GameStartedAt     time.Time  `json:"game_started_at"`
	LastMoveAt        time.Time  `json:"last_move_at"`
	LastTickAt        time.Time  `json:"last_tick_at"` // Active clock has been charged up to here
	LastClockReportAt time.Time  `json:"last_clock_report_at"`
	PausedAt          *time.Time `json:"paused_at,omitempty"`

	Winner     PlayerID  `json:"winner,omitempty"`
	EndReason  EndReason `json:"end_reason,omitempty"`
	EndedAt    time.Time `json:"ended_at,omitempty"`
	EloUpdated bool      `json:"elo_updated"`

	// Version increases by one on every stored write and guards conditional updates
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an active session with player 1 to move and both clocks full
func NewSession(code LobbyCode, players [SeatCount]PlayerID, cfg LobbyConfig, now time.Time) *Session {
	clock := cfg.StartingClock
	if clock <= 0 {
		clock = DefaultStartingClock
	}
	return &Session{
		LobbyCode:     code,
		Status:        SessionActive,
		Players:       players,
		CurrentTurn:   0,
		Clocks:        [SeatCount]time.Duration{clock, clock},
		StartingClock: clock,
		Rule:          cfg.Rule.Normalized(),
		GameStartedAt: now,
		LastMoveAt:    now,
		LastTickAt:    now,
		UpdatedAt:     now,
	}
}

// ActivePlayer returns the player whose turn it is
func (s *Session) ActivePlayer() PlayerID {
	return s.Players[s.CurrentTurn]
}

// SeatOf returns the seat index of the player, ok is false for non-players
func (s *Session) SeatOf(playerID PlayerID) (int, bool) {
	for i, p := range s.Players {
		if p == playerID {
			return i, true
		}
	}
	return 0, false
}

// Opponent returns the player in the other seat
func (s *Session) Opponent(seat int) PlayerID {
	return s.Players[1-seat]
}

// IsFinished returns true once the session reached its terminal state
func (s *Session) IsFinished() bool {
	return s.Status == SessionFinished
}

// Loser returns the losing player of a finished session
func (s *Session) Loser() PlayerID {
	if s.Winner == "" {
		return ""
	}
	if s.Players[0] == s.Winner {
		return s.Players[1]
	}
	return s.Players[0]
}

// Settle charges the time elapsed since LastTickAt to the active clock.
// Returns true if this exhausted the clock and finished the session.
func (s *Session) Settle(now time.Time) bool {
	if s.Status != SessionActive {
		return false
	}
	elapsed := now.Sub(s.LastTickAt)
	if elapsed <= 0 {
		return false
	}

	turn := s.CurrentTurn
	s.Clocks[turn] -= elapsed
	if s.Clocks[turn] < 0 {
		s.Clocks[turn] = 0
	}
	s.LastTickAt = now
	s.UpdatedAt = now

	if s.Clocks[turn] == 0 {
		// Whoever held the turn when time ran out loses
		s.Finish(s.Opponent(turn), EndReasonTime, now)
		return true
	}
	return false
}

// AcceptValidMove passes the turn after a valid move. The caller settles first.
func (s *Session) AcceptValidMove(now time.Time) error {
	if s.Status != SessionActive {
		return ErrInvalidState
	}
	s.CurrentTurn = 1 - s.CurrentTurn
	s.LastMoveAt = now
	s.LastTickAt = now
	s.UpdatedAt = now
	return nil
}

// Pause freezes both clocks
func (s *Session) Pause(now time.Time) error {
	if s.Status != SessionActive {
		return ErrInvalidState
	}
	s.Status = SessionPaused
	pausedAt := now
	s.PausedAt = &pausedAt
	s.UpdatedAt = now
	return nil
}

// Resume restarts the active clock from now
func (s *Session) Resume(now time.Time) error {
	if s.Status != SessionPaused {
		return ErrInvalidState
	}
	s.Status = SessionActive
	s.PausedAt = nil
	s.LastTickAt = now
	s.UpdatedAt = now
	return nil
}

// Forfeit ends the session with the other player as winner
func (s *Session) Forfeit(playerID PlayerID, now time.Time) error {
	seat, ok := s.SeatOf(playerID)
	if !ok {
		return ErrNotSeated
	}
	if s.Status == SessionFinished {
		return ErrInvalidState
	}
	s.Finish(s.Opponent(seat), EndReasonForfeit, now)
	return nil
}

// ApplyClockReport lowers the active player's clock to a client-reported value.
// Reports above the authoritative value are ignored; the server value wins.
func (s *Session) ApplyClockReport(seat int, remaining time.Duration, now time.Time, minInterval time.Duration) error {
	if s.Status != SessionActive {
		return ErrInvalidState
	}
	if seat != s.CurrentTurn {
		return ErrNotPlayersTurn
	}
	if !s.LastClockReportAt.IsZero() && now.Sub(s.LastClockReportAt) < minInterval {
		return ErrClockThrottled
	}

	s.LastClockReportAt = now
	s.UpdatedAt = now
	if remaining < 0 {
		remaining = 0
	}
	if remaining < s.Clocks[seat] {
		s.Clocks[seat] = remaining
	}
	if s.Clocks[seat] == 0 {
		s.Finish(s.Opponent(seat), EndReasonTime, now)
	}
	return nil
}

// Finish moves the session to its terminal state
func (s *Session) Finish(winner PlayerID, reason EndReason, now time.Time) {
	s.Status = SessionFinished
	s.Winner = winner
	s.EndReason = reason
	s.EndedAt = now
	s.PausedAt = nil
	s.UpdatedAt = now
}

// SessionSnapshot is the full catch-up state of a session
type SessionSnapshot struct {
	Session Session        `json:"session"`
	Moves   []Move         `json:"moves"`
	Scores  [SeatCount]int `json:"scores"`
}

// NewSnapshot derives scores and bundles the session with its move log
func NewSnapshot(session *Session, moves []Move) *SessionSnapshot {
	if moves == nil {
		moves = []Move{}
	}
	return &SessionSnapshot{
		Session: *session,
		Moves:   moves,
		Scores:  SessionScores(session, moves),
	}
}

// RatingChange records the result of a rating update
type RatingChange struct {
	LobbyCode    LobbyCode `json:"lobby_code"`
	Winner       PlayerID  `json:"winner"`
	Loser        PlayerID  `json:"loser"`
	Delta        int       `json:"delta"`
	WinnerRating int       `json:"winner_rating"`
	LoserRating  int       `json:"loser_rating"`
}
