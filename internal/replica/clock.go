package replica

import (
	"sync"
	"time"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
)

// DisplayClock interpolates the session clocks between authoritative updates.
// It is advisory only; every snapshot received from the server replaces its state.
type DisplayClock struct {
	clock clock.Clock

	mu         sync.RWMutex
	clocks     [model.SeatCount]time.Duration
	turn       int
	running    bool
	receivedAt time.Time
}

// NewDisplayClock creates a stopped display clock
func NewDisplayClock(c clock.Clock) *DisplayClock {
	return &DisplayClock{clock: c}
}

// Sync resets the display to an authoritative session state
func (d *DisplayClock) Sync(session model.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clocks = session.Clocks
	d.turn = session.CurrentTurn
	d.running = session.Status == model.SessionActive
	d.receivedAt = d.clock.Now()
}

// Remaining returns the clock of a seat as it should be displayed now
func (d *DisplayClock) Remaining(seat int) time.Duration {
	return d.RemainingAt(seat, d.clock.Now())
}

// RemainingAt returns the clock of a seat as it should be displayed at now.
// Only the active seat counts down, and never below zero.
func (d *DisplayClock) RemainingAt(seat int, now time.Time) time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if seat < 0 || seat >= model.SeatCount {
		return 0
	}
	remaining := d.clocks[seat]
	if !d.running || seat != d.turn {
		return remaining
	}
	if elapsed := now.Sub(d.receivedAt); elapsed > 0 {
		remaining -= elapsed
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Running reports whether the active clock is counting down
func (d *DisplayClock) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}
