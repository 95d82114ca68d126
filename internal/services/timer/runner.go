package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
)

const (
	// DefaultInterval is how often active sessions are ticked
	DefaultInterval = time.Second
	// DefaultSweepInterval is how often idle per-lobby resources are swept
	DefaultSweepInterval = time.Minute
	// DefaultHubIdle is how long a stream hub may sit without clients
	DefaultHubIdle = 5 * time.Minute
)

var (
	ErrAlreadyRunning = errors.New("tick runner already running")
	ErrNotRunning     = errors.New("tick runner not running")
)

// Ticker advances every active session's clock
type Ticker interface {
	TickAll(ctx context.Context) (int, error)
}

// Sweeper drops stream hubs that nobody has listened to for idleFor
type Sweeper interface {
	CleanupEmptyHubs(idleFor time.Duration) int
}

// Runner drives session clocks in the background so that a player who
// disconnects still runs out of time.
type Runner struct {
	ticker   Ticker
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	sweeper    Sweeper
	sweepEvery time.Duration
	hubIdle    time.Duration
	lastSweep  time.Time
}

// New creates a new tick Runner
func New(ticker Ticker, clock clock.Clock, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		ticker:   ticker,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// SetSweeper makes the loop call s every sweepEvery. Call before Start.
func (r *Runner) SetSweeper(s Sweeper, sweepEvery, hubIdle time.Duration) {
	r.sweeper = s
	r.sweepEvery = sweepEvery
	r.hubIdle = hubIdle
}

// Start launches the tick loop until ctx is done or Stop is called
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.lastSweep = r.clock.Now()
	r.mu.Unlock()

	// Created here so a fake clock sees the ticker as soon as Start returns
	ticker := r.clock.NewTicker(r.interval)

	r.wg.Add(1)
	go r.run(ctx, ticker, r.stopChan)

	r.logger.Info("tick runner started", slog.Duration("interval", r.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight tick to finish
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("tick runner stopped")
	return nil
}

func (r *Runner) run(ctx context.Context, ticker clockTicker, stop <-chan struct{}) {
	defer r.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.Chan():
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	ticked, err := r.ticker.TickAll(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		r.logger.Error("tick failed", slog.String("error", err.Error()))
	case ticked > 0:
		r.logger.Debug("sessions ticked", slog.Int("count", ticked))
	}

	if r.sweeper != nil && r.clock.Since(r.lastSweep) >= r.sweepEvery {
		r.lastSweep = r.clock.Now()
		r.sweeper.CleanupEmptyHubs(r.hubIdle)
	}
}

type clockTicker interface {
	Chan() <-chan time.Time
	Stop()
}
