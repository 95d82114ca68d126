package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotHost             = "NOT_HOST"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeLobbyNotFound       = "LOBBY_NOT_FOUND"
	CodeLobbyFull           = "LOBBY_FULL"
	CodeAlreadyInLobby      = "ALREADY_IN_LOBBY"
	CodeNotInLobby          = "NOT_IN_LOBBY"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNotBot              = "NOT_BOT"
	CodeUnknownStrategy     = "UNKNOWN_STRATEGY"

	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeNotSeated          = "NOT_SEATED"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeDuplicateWord      = "DUPLICATE_WORD"
	CodeInvalidState       = "INVALID_STATE"
	CodeInvalidWord        = "INVALID_WORD"
	CodeLexiconUnavailable = "LEXICON_UNAVAILABLE"
	CodeSessionConflict    = "SESSION_CONFLICT"
	CodeClockThrottled     = "CLOCK_THROTTLED"
	CodeInvalidClockField  = "INVALID_CLOCK_FIELD"
	CodeSessionNotFinished = "SESSION_NOT_FINISHED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Session errors
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "No session in this lobby"}}
	case errors.Is(err, model.ErrNotSeated):
		return &httpError{http.StatusForbidden, APIError{CodeNotSeated, "Only seated players can do this"}}
	case errors.Is(err, model.ErrNotPlayersTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrDuplicateWord):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateWord, "Word already played in this session"}}
	case errors.Is(err, model.ErrInvalidState):
		return &httpError{http.StatusConflict, APIError{CodeInvalidState, "Session does not allow this right now"}}
	case errors.Is(err, model.ErrMalformedWord):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidWord, "Word must be non-empty and alphabetic"}}
	case errors.Is(err, model.ErrLexiconUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeLexiconUnavailable, "Dictionary is unavailable, try again"}}
	case errors.Is(err, model.ErrSessionConflict):
		return &httpError{http.StatusConflict, APIError{CodeSessionConflict, "Session changed concurrently, try again"}}
	case errors.Is(err, model.ErrClockThrottled):
		return &httpError{http.StatusTooManyRequests, APIError{CodeClockThrottled, "Clock updates are limited to one per second"}}
	case errors.Is(err, model.ErrInvalidClockField):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidClockField, "player_time_field must name your own clock"}}
	case errors.Is(err, model.ErrSessionNotFinished):
		return &httpError{http.StatusConflict, APIError{CodeSessionNotFinished, "Session has not finished"}}

	// Lobby and player errors
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrLobbyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLobbyNotFound, "Lobby not found"}}
	case errors.Is(err, model.ErrLobbyFull):
		return &httpError{http.StatusConflict, APIError{CodeLobbyFull, "Both seats are taken"}}
	case errors.Is(err, model.ErrAlreadyInLobby):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInLobby, "Already in this lobby"}}
	case errors.Is(err, model.ErrNotInLobby):
		return &httpError{http.StatusNotFound, APIError{CodeNotInLobby, "Not in this lobby"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Session already started"}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusConflict, APIError{CodeInsufficientPlayers, "Both seats must be filled"}}
	case errors.Is(err, model.ErrNotBot):
		return &httpError{http.StatusBadRequest, APIError{CodeNotBot, "Player is not a bot"}}
	case errors.Is(err, model.ErrUnknownStrategy):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownStrategy, err.Error()}}
	case errors.Is(err, model.ErrInvalidRule), errors.Is(err, model.ErrInvalidConfig):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidConfig, err.Error()}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidDisplayName), errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) error {
	return &httpError{http.StatusServiceUnavailable, APIError{CodeServiceUnavailable, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
