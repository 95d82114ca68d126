package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// Config tunes the session state machine
type Config struct {
	// MinClockReportInterval is the minimum spacing of accepted client clock reports
	MinClockReportInterval time.Duration
	// MaxWriteAttempts bounds retries of a conditional write that lost a race
	MaxWriteAttempts int
}

// DefaultConfig returns the default controller configuration
func DefaultConfig() Config {
	return Config{
		MinClockReportInterval: time.Second,
		MaxWriteAttempts:       5,
	}
}

// Controller is the authoritative turn/timer state machine for sessions.
// Writes to one session are serialized per lobby and committed with a
// conditional write on the session version.
type Controller struct {
	storage   storage.Storage
	lexicon   lexicon.Gateway
	scorer    *scoring.Engine
	ratings   RatingApplier
	archive   storage.Archive // Optional
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
	locks     *lobbyLocks
}

// NewController creates a new GameController
func NewController(
	storage storage.Storage,
	lexicon lexicon.Gateway,
	scorer *scoring.Engine,
	ratings RatingApplier,
	clock clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.MaxWriteAttempts < 1 {
		cfg.MaxWriteAttempts = 1
	}
	return &Controller{
		storage:   storage,
		lexicon:   lexicon,
		scorer:    scorer,
		ratings:   ratings,
		publisher: NopPublisher{},
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
		locks:     newLobbyLocks(),
	}
}

// SetPublisher sets where session events are delivered
func (c *Controller) SetPublisher(p Publisher) {
	c.publisher = p
}

// SetArchive enables archiving of finished sessions
func (c *Controller) SetArchive(a storage.Archive) {
	c.archive = a
}

// InitSession starts the lobby's session on first call and returns the
// existing one on every later call. Only seated players may call it.
func (c *Controller) InitSession(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error) {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}
	seats, ok := lobby.Seats()
	if !ok {
		return nil, model.ErrInsufficientPlayers
	}
	if seats[0] != playerID && seats[1] != playerID {
		return nil, model.ErrNotSeated
	}

	unlock := c.locks.lock(code)
	defer unlock()

	session := model.NewSession(code, seats, lobby.Config, c.clock.Now())
	created, err := c.storage.CreateSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if !created {
		return c.storage.GetSession(ctx, code)
	}

	lobby.State = model.LobbyStateInGame
	lobby.UpdatedAt = session.GameStartedAt
	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		c.logger.Error("failed to update lobby state",
			slog.String("lobby_code", string(code)),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Info("session started",
		slog.String("lobby_code", string(code)),
		slog.String("player1", string(seats[0])),
		slog.String("player2", string(seats[1])),
		slog.Duration("starting_clock", session.StartingClock),
	)

	c.publisher.Publish(ctx, c.sessionEvent(model.EventStateChanged, session))
	return session, nil
}

// GetSession returns the stored session of a lobby
func (c *Controller) GetSession(ctx context.Context, code model.LobbyCode) (*model.Session, error) {
	return c.storage.GetSession(ctx, code)
}

// GetSnapshot returns the session with its full move log and derived scores
func (c *Controller) GetSnapshot(ctx context.Context, code model.LobbyCode) (*model.SessionSnapshot, error) {
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	moves, err := c.storage.GetMoves(ctx, code)
	if err != nil {
		return nil, err
	}
	return model.NewSnapshot(session, moves), nil
}

// MoveResult is the outcome of an accepted submission
type MoveResult struct {
	Move    model.Move
	Session model.Session
}

// SubmitMove records a word for the player whose turn it is.
// Known words that satisfy the lobby rule are scored and pass the turn;
// other words are recorded as invalid and the player keeps the turn.
// Rejections (wrong turn, duplicate, not active, malformed) record nothing.
func (c *Controller) SubmitMove(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, word string) (*MoveResult, error) {
	word = model.NormalizeWord(word)
	if !model.IsWellFormedWord(word) {
		return nil, model.ErrMalformedWord
	}

	// Cheap rejection before the lexicon is consulted
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	moves, err := c.storage.GetMoves(ctx, code)
	if err != nil {
		return nil, err
	}
	preview := *session
	if preview.Settle(c.clock.Now()) {
		// Clock ran out before the word arrived; make it official
		if _, err := c.Tick(ctx, code); err != nil {
			return nil, err
		}
		return nil, model.ErrInvalidState
	}
	if err := checkSubmission(&preview, moves, playerID, word); err != nil {
		return nil, err
	}

	entry, err := c.lexicon.Lookup(ctx, word)
	if err != nil {
		c.logger.Warn("lexicon unavailable",
			slog.String("lobby_code", string(code)),
			slog.String("word", word),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, model.ErrLexiconUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrLexiconUnavailable, err)
	}

	unlock := c.locks.lock(code)
	defer unlock()

	for attempt := 1; attempt <= c.cfg.MaxWriteAttempts; attempt++ {
		result, err := c.commitMove(ctx, code, playerID, word, entry)
		if errors.Is(err, model.ErrSessionConflict) {
			c.logger.Debug("move write conflict",
				slog.String("lobby_code", string(code)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return result, err
	}
	return nil, model.ErrSessionConflict
}

func checkSubmission(session *model.Session, moves []model.Move, playerID model.PlayerID, word string) error {
	if session.Status != model.SessionActive {
		return model.ErrInvalidState
	}
	if _, ok := session.SeatOf(playerID); !ok {
		return model.ErrNotSeated
	}
	if session.ActivePlayer() != playerID {
		return model.ErrNotPlayersTurn
	}
	if model.ContainsWord(moves, word) {
		return model.ErrDuplicateWord
	}
	return nil
}

// commitMove re-validates against fresh state and writes the move. Must hold the lobby lock.
func (c *Controller) commitMove(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, word string, entry lexicon.Entry) (*MoveResult, error) {
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	moves, err := c.storage.GetMoves(ctx, code)
	if err != nil {
		return nil, err
	}
	expectedVersion := session.Version
	now := c.clock.Now()

	if session.Settle(now) {
		if err := c.storage.UpdateSession(ctx, session, expectedVersion); err != nil {
			return nil, err
		}
		c.publishTransition(ctx, session, false)
		return nil, model.ErrInvalidState
	}
	if err := checkSubmission(session, moves, playerID, word); err != nil {
		return nil, err
	}

	move := model.Move{
		ID:        uuid.NewString(),
		LobbyCode: code,
		Seq:       len(moves) + 1,
		Word:      word,
		PlayerID:  playerID,
		CreatedAt: now,
		IsValid:   lexicon.Accepts(session.Rule, word, entry),
		Lexical:   entry.Metadata(),
	}
	if move.IsValid {
		result := c.scorer.Score(word, model.LastValidWord(moves))
		move.Score = &result.Total
		move.Breakdown = result.Breakdown()
		if err := session.AcceptValidMove(now); err != nil {
			return nil, err
		}
	}

	if err := c.storage.CommitMove(ctx, session, &move, expectedVersion); err != nil {
		return nil, err
	}

	c.logger.Info("move recorded",
		slog.String("lobby_code", string(code)),
		slog.String("player_id", string(playerID)),
		slog.String("word", word),
		slog.Bool("valid", move.IsValid),
		slog.Int("seq", move.Seq),
	)

	c.publisher.Publish(ctx, c.moveEvent(session, &move))
	c.publisher.Publish(ctx, c.sessionEvent(model.EventStateChanged, session))
	return &MoveResult{Move: move, Session: *session}, nil
}

// Interface for dependency injection
type ControllerInterface interface {
	InitSession(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error)
	GetSession(ctx context.Context, code model.LobbyCode) (*model.Session, error)
	GetSnapshot(ctx context.Context, code model.LobbyCode) (*model.SessionSnapshot, error)
	SubmitMove(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, word string) (*MoveResult, error)
	Tick(ctx context.Context, code model.LobbyCode) (*model.Session, error)
	TickAll(ctx context.Context) (int, error)
	Pause(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error)
	Resume(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error)
	Forfeit(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error)
	ReportClock(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, field ClockField, remaining time.Duration) (*model.Session, error)
	NotifySessionEnd(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, finalStatus model.SessionStatus, reason model.EndReason) (*model.RatingChange, bool, error)
	DiscardSession(ctx context.Context, code model.LobbyCode) error
}

var _ ControllerInterface = (*Controller)(nil)
