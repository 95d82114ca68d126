package rating

import "math"

// KFactor shrinks as a player accumulates games
func KFactor(gamesPlayed int) int {
	switch {
	case gamesPlayed < 10:
		return 64
	case gamesPlayed < 25:
		return 32
	case gamesPlayed < 100:
		return 24
	default:
		return 16
	}
}

// Delta returns the points the winner takes from the loser, using the
// average K-factor of both players
func Delta(winnerElo, loserElo, winnerGames, loserGames int) int {
	averageK := float64(KFactor(winnerGames)+KFactor(loserGames)) / 2
	expected := 1 / (1 + math.Pow(10, float64(loserElo-winnerElo)/400))
	return int(math.Round(averageK * (1 - expected)))
}
