package handler

import (
	"net/http"

	"github.com/mcoot/wordchain-go/internal/api/response"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/rating"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardHandler serves the rating leaderboard
type LeaderboardHandler struct {
	ratingService *rating.Service
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(ratingService *rating.Service) *LeaderboardHandler {
	return &LeaderboardHandler{ratingService: ratingService}
}

// Get handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultLeaderboardLimit, maxLeaderboardLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.ratingService.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	response.JSON(w, http.StatusOK, response.Leaderboard{Entries: entries})
}
