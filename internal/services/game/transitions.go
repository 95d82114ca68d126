package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/wordchain-go/internal/model"
)

// ClockField names the per-seat clock a client reports on
type ClockField string

const (
	ClockFieldPlayer1 ClockField = "player1_time"
	ClockFieldPlayer2 ClockField = "player2_time"
)

// Seat returns the seat index the field refers to
func (f ClockField) Seat() (int, bool) {
	switch f {
	case ClockFieldPlayer1:
		return 0, true
	case ClockFieldPlayer2:
		return 1, true
	}
	return 0, false
}

// transition mutates a settled session. A nil transition only settles the clock.
type transition func(session *model.Session, now time.Time) error

// Tick charges elapsed time to the active clock and finishes the session when it runs out
func (c *Controller) Tick(ctx context.Context, code model.LobbyCode) (*model.Session, error) {
	return c.mutate(ctx, code, nil)
}

// TickAll ticks every unfinished session and returns how many were ticked
func (c *Controller) TickAll(ctx context.Context) (int, error) {
	codes, err := c.storage.ListActiveSessions(ctx)
	if err != nil {
		return 0, err
	}

	ticked := 0
	for _, code := range codes {
		if ctx.Err() != nil {
			return ticked, ctx.Err()
		}
		if _, err := c.Tick(ctx, code); err != nil {
			if errors.Is(err, model.ErrSessionNotFound) {
				continue
			}
			// One broken session must not stall the others
			c.logger.Warn("tick failed",
				slog.String("lobby_code", string(code)),
				slog.String("error", err.Error()),
			)
			continue
		}
		ticked++
	}
	return ticked, nil
}

// Pause freezes both clocks
func (c *Controller) Pause(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error) {
	return c.mutate(ctx, code, func(session *model.Session, now time.Time) error {
		if _, ok := session.SeatOf(playerID); !ok {
			return model.ErrNotSeated
		}
		return session.Pause(now)
	})
}

// Resume restarts the active player's clock
func (c *Controller) Resume(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error) {
	return c.mutate(ctx, code, func(session *model.Session, now time.Time) error {
		if _, ok := session.SeatOf(playerID); !ok {
			return model.ErrNotSeated
		}
		return session.Resume(now)
	})
}

// Forfeit ends the session in the opponent's favour
func (c *Controller) Forfeit(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error) {
	return c.mutate(ctx, code, func(session *model.Session, now time.Time) error {
		return session.Forfeit(playerID, now)
	})
}

// ReportClock accepts a client's view of its own remaining time.
// The report can only lower the authoritative clock.
func (c *Controller) ReportClock(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, field ClockField, remaining time.Duration) (*model.Session, error) {
	fieldSeat, ok := field.Seat()
	if !ok {
		return nil, model.ErrInvalidClockField
	}
	return c.mutate(ctx, code, func(session *model.Session, now time.Time) error {
		seat, ok := session.SeatOf(playerID)
		if !ok {
			return model.ErrNotSeated
		}
		if seat != fieldSeat {
			return model.ErrInvalidClockField
		}
		return session.ApplyClockReport(seat, remaining, now, c.cfg.MinClockReportInterval)
	})
}

// NotifySessionEnd is a client's claim that the game is over.
// The server settles its own clock first and only rates a session it agrees is finished.
// A non-empty reason must match how the server saw the session end.
func (c *Controller) NotifySessionEnd(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, finalStatus model.SessionStatus, reason model.EndReason) (*model.RatingChange, bool, error) {
	if finalStatus != model.SessionFinished {
		return nil, false, model.ErrInvalidState
	}
	session, err := c.mutate(ctx, code, nil)
	if err != nil {
		return nil, false, err
	}
	if _, ok := session.SeatOf(playerID); !ok {
		return nil, false, model.ErrNotSeated
	}
	if !session.IsFinished() {
		return nil, false, model.ErrSessionNotFinished
	}
	if reason != "" && reason != session.EndReason {
		return nil, false, fmt.Errorf("%w: session ended by %s, not %s", model.ErrInvalidState, session.EndReason, reason)
	}
	if c.ratings == nil {
		return nil, false, nil
	}

	change, applied, err := c.ratings.Apply(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if applied {
		c.publishRating(ctx, code, change)
	}
	return change, applied, nil
}

// DiscardSession removes a lobby's session and its moves
func (c *Controller) DiscardSession(ctx context.Context, code model.LobbyCode) error {
	unlock := c.locks.lock(code)
	defer unlock()
	return c.storage.DeleteSession(ctx, code)
}

// mutate settles the clock, applies fn and writes the result conditionally,
// retrying from a fresh read when another writer got in first.
func (c *Controller) mutate(ctx context.Context, code model.LobbyCode, fn transition) (*model.Session, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	for attempt := 1; attempt <= c.cfg.MaxWriteAttempts; attempt++ {
		session, err := c.storage.GetSession(ctx, code)
		if err != nil {
			return nil, err
		}
		if fn == nil && session.Status != model.SessionActive {
			return session, nil
		}

		expectedVersion := session.Version
		wasFinished := session.IsFinished()
		lastTick := session.LastTickAt
		now := c.clock.Now()

		expired := session.Settle(now)
		var opErr error
		if fn != nil {
			opErr = fn(session, now)
			if opErr != nil && !expired {
				return nil, opErr
			}
		} else if session.LastTickAt.Equal(lastTick) {
			// Nothing elapsed
			return session, nil
		}

		err = c.storage.UpdateSession(ctx, session, expectedVersion)
		if errors.Is(err, model.ErrSessionConflict) {
			c.logger.Debug("session write conflict",
				slog.String("lobby_code", string(code)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.publishTransition(ctx, session, wasFinished)
		if opErr != nil {
			return nil, opErr
		}
		return session, nil
	}
	return nil, model.ErrSessionConflict
}

// publishTransition announces a stored write and runs end-of-game work once
func (c *Controller) publishTransition(ctx context.Context, session *model.Session, wasFinished bool) {
	c.publisher.Publish(ctx, c.sessionEvent(model.EventStateChanged, session))
	if !wasFinished && session.IsFinished() {
		c.onFinished(ctx, session)
	}
}

func (c *Controller) onFinished(ctx context.Context, session *model.Session) {
	code := session.LobbyCode
	c.logger.Info("session finished",
		slog.String("lobby_code", string(code)),
		slog.String("winner", string(session.Winner)),
		slog.String("reason", string(session.EndReason)),
	)
	c.publisher.Publish(ctx, c.sessionEvent(model.EventSessionEnded, session))

	if lobby, err := c.storage.GetLobby(ctx, code); err == nil {
		lobby.State = model.LobbyStateFinished
		lobby.UpdatedAt = session.EndedAt
		if err := c.storage.SaveLobby(ctx, lobby); err != nil {
			c.logError("failed to update lobby state", code, err)
		}
	}

	if c.ratings != nil {
		change, applied, err := c.ratings.Apply(ctx, code)
		if err != nil {
			c.logError("rating update failed", code, err)
		} else if applied {
			c.publishRating(ctx, code, change)
		}
	}

	if c.archive != nil {
		snapshot, err := c.GetSnapshot(ctx, code)
		if err != nil {
			c.logError("failed to load session for archive", code, err)
			return
		}
		if err := c.archive.ArchiveSession(ctx, snapshot); err != nil {
			c.logError("failed to archive session", code, err)
		}
	}
}

func (c *Controller) publishRating(ctx context.Context, code model.LobbyCode, change *model.RatingChange) {
	// Rating bumps the session version; read it back so Seq stays monotonic
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		c.logError("failed to reload session after rating", code, err)
		return
	}
	c.publisher.Publish(ctx, c.ratingEvent(session, change))
}

func (c *Controller) logError(msg string, code model.LobbyCode, err error) {
	c.logger.Error(msg,
		slog.String("lobby_code", string(code)),
		slog.String("error", err.Error()),
	)
}
