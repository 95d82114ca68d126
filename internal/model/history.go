package model

import "time"

// DictionaryEntry is one word of the local lexicon
type DictionaryEntry struct {
	Word         string `json:"word"`
	PartOfSpeech string `json:"part_of_speech,omitempty"`
	Definition   string `json:"definition,omitempty"`
	Phonetics    string `json:"phonetics,omitempty"`
}

// GameRecord summarizes a finished session from one player's point of view
type GameRecord struct {
	LobbyCode     LobbyCode `json:"lobby_code"`
	Opponent      PlayerID  `json:"opponent"`
	Won           bool      `json:"won"`
	EndReason     EndReason `json:"end_reason"`
	Score         int       `json:"score"`
	OpponentScore int       `json:"opponent_score"`
	MoveCount     int       `json:"move_count"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}
