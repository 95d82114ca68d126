// Package postgres archives finished sessions for match history.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Archive is a Postgres-backed store of finished sessions
type Archive struct {
	db *sql.DB
}

// Ensure Archive implements the interface
var _ storage.Archive = (*Archive)(nil)

// New creates an Archive over an existing connection (for testing)
func New(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// Open connects to Postgres, applies migrations and returns the Archive
func Open(ctx context.Context, dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// Migrate applies the embedded schema migrations
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

const insertSessionQuery = `
	INSERT INTO archived_sessions
		(lobby_code, player1_id, player2_id, winner_id, end_reason,
		 player1_score, player2_score, move_count, started_at, ended_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (lobby_code, started_at) DO NOTHING
	RETURNING id`

const insertMoveQuery = `
	INSERT INTO archived_moves (session_id, seq, word, player_id, is_valid, score, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// ArchiveSession stores a finished session and its move log.
// Archiving the same session twice is a no-op.
func (a *Archive) ArchiveSession(ctx context.Context, snapshot *model.SessionSnapshot) error {
	session := snapshot.Session
	if !session.IsFinished() {
		return model.ErrSessionNotFinished
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var sessionID int64
	err = tx.QueryRowContext(ctx, insertSessionQuery,
		string(session.LobbyCode),
		string(session.Players[0]),
		string(session.Players[1]),
		string(session.Winner),
		string(session.EndReason),
		snapshot.Scores[0],
		snapshot.Scores[1],
		len(snapshot.Moves),
		session.GameStartedAt,
		session.EndedAt,
	).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already archived
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}

	for _, m := range snapshot.Moves {
		var score sql.NullInt64
		if m.Score != nil {
			score = sql.NullInt64{Int64: int64(*m.Score), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertMoveQuery,
			sessionID, m.Seq, m.Word, string(m.PlayerID), m.IsValid, score, m.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to archive move %d: %w", m.Seq, err)
		}
	}

	return tx.Commit()
}

const playerHistoryQuery = `
	SELECT lobby_code, player1_id, player2_id, winner_id, end_reason,
	       player1_score, player2_score, move_count, started_at, ended_at
	FROM archived_sessions
	WHERE player1_id = $1 OR player2_id = $1
	ORDER BY ended_at DESC
	LIMIT $2`

// PlayerHistory returns the player's most recent finished sessions, newest first
func (a *Archive) PlayerHistory(ctx context.Context, playerID model.PlayerID, limit int) ([]model.GameRecord, error) {
	rows, err := a.db.QueryContext(ctx, playerHistoryQuery, string(playerID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.GameRecord{}
	for rows.Next() {
		var (
			code, p1, p2, winner, reason string
			score1, score2, moveCount    int
			startedAt, endedAt           time.Time
		)
		if err := rows.Scan(&code, &p1, &p2, &winner, &reason, &score1, &score2, &moveCount, &startedAt, &endedAt); err != nil {
			return nil, err
		}

		record := model.GameRecord{
			LobbyCode: model.LobbyCode(code),
			Won:       winner == string(playerID),
			EndReason: model.EndReason(reason),
			MoveCount: moveCount,
			StartedAt: startedAt,
			EndedAt:   endedAt,
		}
		if p1 == string(playerID) {
			record.Opponent, record.Score, record.OpponentScore = model.PlayerID(p2), score1, score2
		} else {
			record.Opponent, record.Score, record.OpponentScore = model.PlayerID(p1), score2, score1
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
