package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
)

// RetryingGateway retries failed lookups with a fixed backoff.
// Once attempts are exhausted the error wraps model.ErrLexiconUnavailable.
type RetryingGateway struct {
	next     Gateway
	attempts int
	backoff  time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

// NewRetrying wraps a gateway. attempts below 1 means a single try.
func NewRetrying(next Gateway, attempts int, backoff time.Duration, clk clock.Clock, logger *slog.Logger) *RetryingGateway {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingGateway{
		next:     next,
		attempts: attempts,
		backoff:  backoff,
		clock:    clk,
		logger:   logger,
	}
}

// Lookup implements Gateway
func (g *RetryingGateway) Lookup(ctx context.Context, word string) (Entry, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		entry, err := g.next.Lookup(ctx, word)
		if err == nil {
			return entry, nil
		}
		lastErr = err

		g.logger.Warn("lexicon lookup failed",
			slog.String("word", word),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt == g.attempts || g.backoff <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return Entry{}, fmt.Errorf("%w: %w", model.ErrLexiconUnavailable, ctx.Err())
		case <-g.clock.After(g.backoff):
		}
	}
	return Entry{}, fmt.Errorf("%w: %w", model.ErrLexiconUnavailable, lastErr)
}
