package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound    = errors.New("player not found")
	ErrAuthTokenNotFound = errors.New("auth token not found")

	// Lobby errors
	ErrLobbyNotFound       = errors.New("lobby not found")
	ErrLobbyFull           = errors.New("lobby is full")
	ErrAlreadyInLobby      = errors.New("player is already in lobby")
	ErrNotInLobby          = errors.New("player is not in lobby")
	ErrNotHost             = errors.New("player is not the host")
	ErrGameInProgress      = errors.New("game is in progress")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")
	ErrInvalidRule         = errors.New("invalid word rule")
	ErrInvalidConfig       = errors.New("invalid lobby config")
	ErrNotBot              = errors.New("player is not a bot")
	ErrUnknownStrategy     = errors.New("unknown bot strategy")

	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotSeated          = errors.New("player is not seated in this session")
	ErrNotPlayersTurn     = errors.New("not this player's turn")
	ErrDuplicateWord      = errors.New("word already played in this session")
	ErrInvalidState       = errors.New("session is not in a state that allows this")
	ErrMalformedWord      = errors.New("word must be non-empty and alphabetic")
	ErrLexiconUnavailable = errors.New("lexicon unavailable")
	ErrSessionConflict    = errors.New("session was modified concurrently")
	ErrClockThrottled     = errors.New("clock report too frequent")
	ErrInvalidClockField  = errors.New("invalid player time field")
	ErrSessionNotFinished = errors.New("session is not finished")

	// ErrRatingConflict marks a lost race to apply a rating update; resolved internally
	ErrRatingConflict = errors.New("rating update conflict")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)
