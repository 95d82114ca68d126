package storage

import (
	"context"

	"github.com/mcoot/wordchain-go/internal/model"
)

// Storage defines the interface for data persistence.
// Session writes are conditional on the caller's expected Version; a stored
// write always sets Version to expectedVersion+1 on the passed session.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Auth token operations
	SaveAuthToken(ctx context.Context, token *model.AuthToken) error
	GetAuthToken(ctx context.Context, token string) (*model.AuthToken, error)
	DeleteAuthToken(ctx context.Context, token string) error

	// Lobby operations
	SaveLobby(ctx context.Context, lobby *model.Lobby) error
	GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error)
	DeleteLobby(ctx context.Context, code model.LobbyCode) error
	LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error)

	// Session operations

	// CreateSession stores a new session at version 1.
	// Returns false without writing if the lobby already has a session.
	CreateSession(ctx context.Context, session *model.Session) (bool, error)
	GetSession(ctx context.Context, code model.LobbyCode) (*model.Session, error)
	// UpdateSession returns model.ErrSessionConflict if the stored version differs
	UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error
	// CommitMove appends the move and writes the session as one conditional write.
	// Returns model.ErrDuplicateWord if the word is already in the log.
	CommitMove(ctx context.Context, session *model.Session, move *model.Move, expectedVersion int64) error
	// GetMoves returns the move log ordered by Seq
	GetMoves(ctx context.Context, code model.LobbyCode) ([]model.Move, error)
	// ListActiveSessions returns codes of sessions that are not finished
	ListActiveSessions(ctx context.Context) ([]model.LobbyCode, error)
	DeleteSession(ctx context.Context, code model.LobbyCode) error

	// Rating operations

	// ApplyRating flips EloUpdated on the session, moves both ratings by
	// update.Delta and counts the game for both players, all in one conditional write.
	// Returns model.ErrRatingConflict if the version moved or the rating was already applied.
	ApplyRating(ctx context.Context, session *model.Session, expectedVersion int64, update RatingUpdate) (*model.RatingChange, error)
	// TopRatings returns the highest rated players, best first
	TopRatings(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// Dictionary operations
	GetDictionaryEntries(ctx context.Context) ([]model.DictionaryEntry, error)
	SaveDictionaryEntries(ctx context.Context, entries []model.DictionaryEntry) error
}

// RatingUpdate describes a rating transfer from loser to winner
type RatingUpdate struct {
	Winner model.PlayerID
	Loser  model.PlayerID
	Delta  int
}

// Archive keeps finished sessions for history queries
type Archive interface {
	ArchiveSession(ctx context.Context, snapshot *model.SessionSnapshot) error
	PlayerHistory(ctx context.Context, playerID model.PlayerID, limit int) ([]model.GameRecord, error)
	Close() error
}
