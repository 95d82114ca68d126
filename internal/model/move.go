package model

import (
	"strings"
	"time"
	"unicode"
)

// ScoreBreakdown splits a move's score into its components
type ScoreBreakdown struct {
	LengthScore int `json:"length_score"`
	LevenBonus  int `json:"leven_bonus"`
	RarityBonus int `json:"rarity_bonus"`
}

// LexicalMetadata is what the lexicon knows about a word
type LexicalMetadata struct {
	PartOfSpeech string `json:"part_of_speech,omitempty"`
	Definition   string `json:"definition,omitempty"`
	Phonetics    string `json:"phonetics,omitempty"`
}

// Move is a single word submission. Immutable once stored; invalid moves are kept.
type Move struct {
	ID        string           `json:"id"`
	LobbyCode LobbyCode        `json:"lobby_code"`
	Seq       int              `json:"seq"` // 1-based position in the session's move log
	Word      string           `json:"word"`
	PlayerID  PlayerID         `json:"player_id"`
	CreatedAt time.Time        `json:"created_at"`
	IsValid   bool             `json:"is_valid"`
	Score     *int             `json:"score,omitempty"`
	Breakdown *ScoreBreakdown  `json:"breakdown,omitempty"`
	Lexical   *LexicalMetadata `json:"lexical,omitempty"`
}

// NormalizeWord returns the canonical form used for lookups and uniqueness
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// IsWellFormedWord reports whether a normalized word is non-empty and made of letters only
func IsWellFormedWord(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ContainsWord reports whether the word was already played, valid or not
func ContainsWord(moves []Move, word string) bool {
	word = NormalizeWord(word)
	for _, m := range moves {
		if NormalizeWord(m.Word) == word {
			return true
		}
	}
	return false
}

// LastValidWord returns the most recent valid word, or "" if none
func LastValidWord(moves []Move) string {
	for i := len(moves) - 1; i >= 0; i-- {
		if moves[i].IsValid {
			return moves[i].Word
		}
	}
	return ""
}

// SessionScores sums valid move scores per seat
func SessionScores(session *Session, moves []Move) [SeatCount]int {
	var scores [SeatCount]int
	for _, m := range moves {
		if !m.IsValid || m.Score == nil {
			continue
		}
		if seat, ok := session.SeatOf(m.PlayerID); ok {
			scores[seat] += *m.Score
		}
	}
	return scores
}
