package bot

import (
	"github.com/mcoot/wordchain-go/internal/dependencies/random"
	"github.com/mcoot/wordchain-go/internal/model"
)

// RandomStrategy plays any acceptable word
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseWord returns a random candidate
func (s *RandomStrategy) ChooseWord(snapshot *model.SessionSnapshot, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[s.random.Intn(len(candidates))], true
}
