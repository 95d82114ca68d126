package model

// Bot strategy constants
const (
	BotStrategyRandom = "random" // Any acceptable word
	BotStrategyGreedy = "greedy" // Highest scoring acceptable word
)

// ValidBotStrategies returns all valid bot strategy names
func ValidBotStrategies() []string {
	return []string{BotStrategyRandom, BotStrategyGreedy}
}
