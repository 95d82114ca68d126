package replica

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
)

func TestDisplayClock(t *testing.T) {
	fake := clock.NewFake()
	session := model.Session{
		Status:      model.SessionActive,
		CurrentTurn: 0,
		Clocks:      [model.SeatCount]time.Duration{120 * time.Second, 90 * time.Second},
	}

	t.Run("stopped until synced", func(t *testing.T) {
		d := NewDisplayClock(fake)
		assert.False(t, d.Running())
		assert.Equal(t, time.Duration(0), d.Remaining(0))
	})

	t.Run("only the active seat counts down", func(t *testing.T) {
		d := NewDisplayClock(fake)
		d.Sync(session)

		now := fake.Now().Add(5 * time.Second)
		assert.Equal(t, 115*time.Second, d.RemainingAt(0, now))
		assert.Equal(t, 90*time.Second, d.RemainingAt(1, now))
	})

	t.Run("clamped at zero", func(t *testing.T) {
		d := NewDisplayClock(fake)
		d.Sync(session)

		assert.Equal(t, time.Duration(0), d.RemainingAt(0, fake.Now().Add(10*time.Minute)))
	})

	t.Run("frozen while paused", func(t *testing.T) {
		paused := session
		paused.Status = model.SessionPaused
		d := NewDisplayClock(fake)
		d.Sync(paused)

		assert.Equal(t, 120*time.Second, d.RemainingAt(0, fake.Now().Add(30*time.Second)))
	})

	t.Run("authoritative sync replaces interpolation", func(t *testing.T) {
		d := NewDisplayClock(fake)
		d.Sync(session)

		fake.Advance(10 * time.Second)
		assert.Equal(t, 110*time.Second, d.Remaining(0))

		// Server says less time remains than interpolated
		corrected := session
		corrected.Clocks[0] = 100 * time.Second
		d.Sync(corrected)
		assert.Equal(t, 100*time.Second, d.Remaining(0))
	})

	t.Run("out of range seat", func(t *testing.T) {
		d := NewDisplayClock(fake)
		d.Sync(session)
		assert.Equal(t, time.Duration(0), d.Remaining(2))
		assert.Equal(t, time.Duration(0), d.Remaining(-1))
	})
}
