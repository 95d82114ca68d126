package scoring

import (
	"fmt"
	"math"
	"os"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/wordchain-go/internal/model"
)

// Weights tunes the three score components
type Weights struct {
	LengthExponent   float64 `yaml:"length_exponent"`
	LengthMultiplier float64 `yaml:"length_multiplier"`
	LevenExponent    float64 `yaml:"leven_exponent"`
	LevenBase        float64 `yaml:"leven_base"`
	RarityExponent   float64 `yaml:"rarity_exponent"`
	RarityMultiplier float64 `yaml:"rarity_multiplier"`
}

// DefaultWeights returns the standard scoring weights
func DefaultWeights() Weights {
	return Weights{
		LengthExponent:   1.5,
		LengthMultiplier: 2,
		LevenExponent:    1.5,
		LevenBase:        5,
		RarityExponent:   1.2,
		RarityMultiplier: 0.25,
	}
}

// LoadWeights reads weights from a YAML file.
// Fields missing from the file keep their default value.
func LoadWeights(path string) (Weights, error) {
	weights := DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("failed to read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("failed to parse scoring weights: %w", err)
	}
	return weights, nil
}

// rarityCeiling is the weight above which a letter earns no rarity bonus
const rarityCeiling = 12.0

// unknownLetterWeight applies to anything outside A-Z
const unknownLetterWeight = 5.0

// letterWeights is English letter frequency in percent
var letterWeights = map[rune]float64{
	'E': 12, 'T': 9.1, 'A': 8.2, 'O': 7.5, 'I': 7.0, 'N': 6.7, 'S': 6.3,
	'H': 6.1, 'R': 6.0, 'D': 4.3, 'L': 4.0, 'C': 2.8, 'U': 2.8, 'M': 2.4,
	'W': 2.4, 'F': 2.2, 'G': 2.0, 'Y': 2.0, 'P': 1.9, 'B': 1.5, 'V': 1.0,
	'K': 0.8, 'J': 0.15, 'X': 0.15, 'Q': 0.1, 'Z': 0.07,
}

// LetterWeight returns the frequency weight of a letter, case-insensitive
func LetterWeight(r rune) float64 {
	if w, ok := letterWeights[unicode.ToUpper(r)]; ok {
		return w
	}
	return unknownLetterWeight
}

// Result is the score of one word
type Result struct {
	Total       int
	LengthScore int
	LevenBonus  int
	RarityBonus int
}

// Breakdown converts the result into the stored move breakdown
func (r Result) Breakdown() *model.ScoreBreakdown {
	return &model.ScoreBreakdown{
		LengthScore: r.LengthScore,
		LevenBonus:  r.LevenBonus,
		RarityBonus: r.RarityBonus,
	}
}

// Engine scores words. It is pure and safe for concurrent use.
type Engine struct {
	weights Weights
}

// New creates an Engine with the given weights
func New(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Weights returns the weights the engine scores with
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score rewards long words, words far from the previous word, and rare letters.
// An empty previous word means there is nothing to chain from.
func (e *Engine) Score(current, previous string) Result {
	result := Result{
		LengthScore: e.lengthScore(current),
		LevenBonus:  e.levenBonus(current, previous),
		RarityBonus: e.rarityBonus(current),
	}
	result.Total = result.LengthScore + result.LevenBonus + result.RarityBonus
	return result
}

func (e *Engine) lengthScore(word string) int {
	n := len([]rune(word))
	if n == 0 {
		return 0
	}
	return int(math.Round(math.Pow(float64(n), e.weights.LengthExponent) * e.weights.LengthMultiplier))
}

func (e *Engine) levenBonus(current, previous string) int {
	if previous == "" {
		return 0
	}
	longest := max(len([]rune(current)), len([]rune(previous)))
	normalized := float64(Levenshtein(current, previous)) / float64(longest)
	return int(math.Round(math.Exp(normalized*e.weights.LevenExponent) * e.weights.LevenBase))
}

func (e *Engine) rarityBonus(word string) int {
	var sum float64
	for _, r := range word {
		base := rarityCeiling - LetterWeight(r)
		if base < 0 {
			base = 0
		}
		sum += math.Pow(base, e.weights.RarityExponent)
	}
	return int(math.Round(sum * e.weights.RarityMultiplier))
}

// Levenshtein returns the edit distance between two words with unit costs
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
