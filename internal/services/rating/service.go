package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// maxApplyAttempts bounds re-reads after losing a rating write race
const maxApplyAttempts = 3

// Service applies post-game rating updates exactly once per session
type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a new RatingService
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Apply moves both players' ratings for a finished session.
// applied is false when the update had already been made, which is not an error.
func (s *Service) Apply(ctx context.Context, code model.LobbyCode) (change *model.RatingChange, applied bool, err error) {
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		session, err := s.storage.GetSession(ctx, code)
		if err != nil {
			return nil, false, err
		}
		if !session.IsFinished() || session.Winner == "" {
			return nil, false, model.ErrSessionNotFinished
		}
		if session.EloUpdated {
			return nil, false, nil
		}

		winner, err := s.storage.GetPlayer(ctx, session.Winner)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load winner: %w", err)
		}
		loser, err := s.storage.GetPlayer(ctx, session.Loser())
		if err != nil {
			return nil, false, fmt.Errorf("failed to load loser: %w", err)
		}

		update := storage.RatingUpdate{
			Winner: winner.ID,
			Loser:  loser.ID,
			Delta:  Delta(winner.EloRating, loser.EloRating, winner.GamesPlayed, loser.GamesPlayed),
		}
		change, err = s.storage.ApplyRating(ctx, session, session.Version, update)
		if errors.Is(err, model.ErrRatingConflict) {
			// Someone else wrote first; re-read to see whether it was this update
			s.logger.Debug("rating update conflict",
				slog.String("lobby_code", string(code)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, false, err
		}

		s.logger.Info("ratings updated",
			slog.String("lobby_code", string(code)),
			slog.String("winner", string(change.Winner)),
			slog.String("loser", string(change.Loser)),
			slog.Int("delta", change.Delta),
		)
		return change, true, nil
	}
	return nil, false, model.ErrRatingConflict
}

// Leaderboard returns the top rated players
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.storage.TopRatings(ctx, limit)
}
