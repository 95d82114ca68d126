package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock provides time operations that can be faked in tests.
// Tests use clockwork.NewFakeClockAt and advance it explicitly.
type Clock = clockwork.Clock

// New creates a Clock backed by the system clock
func New() Clock {
	return clockwork.NewRealClock()
}

// Epoch is the fixed start time used by fake clocks in tests
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// NewFake creates a fake clock set to Epoch
func NewFake() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(Epoch)
}
