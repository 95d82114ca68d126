package bot

import (
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
)

// GreedyStrategy plays whichever candidate scores highest against the last valid word
type GreedyStrategy struct {
	scorer *scoring.Engine
}

// NewGreedyStrategy creates a new GreedyStrategy
func NewGreedyStrategy(scorer *scoring.Engine) *GreedyStrategy {
	return &GreedyStrategy{scorer: scorer}
}

// ChooseWord returns the best scoring candidate; ties go to the earliest
func (s *GreedyStrategy) ChooseWord(snapshot *model.SessionSnapshot, candidates []string) (string, bool) {
	previous := model.LastValidWord(snapshot.Moves)

	best, bestScore := "", -1
	for _, word := range candidates {
		if score := s.scorer.Score(word, previous).Total; score > bestScore {
			best, bestScore = word, score
		}
	}
	return best, bestScore >= 0
}
