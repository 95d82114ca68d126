package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/random"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/realtime"
	"github.com/mcoot/wordchain-go/internal/services/auth"
	"github.com/mcoot/wordchain-go/internal/services/bot"
	"github.com/mcoot/wordchain-go/internal/services/dictionary"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
	"github.com/mcoot/wordchain-go/internal/services/rating"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
	"github.com/mcoot/wordchain-go/internal/services/timer"
	"github.com/mcoot/wordchain-go/internal/storage"
	"github.com/mcoot/wordchain-go/internal/storage/memory"
	"github.com/mcoot/wordchain-go/internal/storage/postgres"
	redisstorage "github.com/mcoot/wordchain-go/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Remote lexicon call settings
const (
	lexiconTimeout  = 3 * time.Second
	lexiconAttempts = 3
	lexiconBackoff  = 200 * time.Millisecond
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Archive storage.Archive // nil unless DatabaseURL is set

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	DictionaryService *dictionary.Service
	Lexicon           lexicon.Gateway
	ScoringEngine     *scoring.Engine
	RatingService     *rating.Service
	GameController    *game.Controller
	LobbyController   *lobby.Controller
	AuthService       *auth.Service
	BotService        *bot.Service
	TickRunner        *timer.Runner

	// Realtime
	HubManager  *realtime.HubManager
	Broadcaster *realtime.Broadcaster
	Relay       *realtime.NATSRelay // nil unless NATSURL is set

	natsConn *nats.Conn
	logger   *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// DictionaryPath is the path to the word file (optional)
	// If empty, dictionary must be loaded manually
	DictionaryPath string
	// LexiconURL points at a remote dictionary service (optional)
	// If empty, the local dictionary answers lookups
	LexiconURL string
	// ScoringConfigPath is a YAML file of scoring weights (optional)
	ScoringConfigPath string
	// StartingClock is the clock given to new lobbies (optional)
	StartingClock time.Duration
	// TickInterval is how often active sessions are ticked (optional)
	TickInterval time.Duration
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// DatabaseURL enables the Postgres match archive (optional)
	DatabaseURL string
	// NATSURL enables cross-instance event fan-out (optional)
	NATSURL string
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	weights := scoring.DefaultWeights()
	if cfg.ScoringConfigPath != "" {
		loaded, err := scoring.LoadWeights(cfg.ScoringConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load scoring config: %w", err)
		}
		weights = loaded
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	var gateway lexicon.Gateway
	if cfg.LexiconURL != "" {
		gateway = lexicon.NewRetrying(
			lexicon.NewHTTPGateway(cfg.LexiconURL, lexiconTimeout),
			lexiconAttempts, lexiconBackoff, clk, logger,
		)
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(dependencies{
		storage:      store,
		clock:        clk,
		random:       rnd,
		lexicon:      gateway,
		weights:      weights,
		auth:         authCfg,
		tickInterval: cfg.TickInterval,
		logger:       logger,
	})

	if cfg.StartingClock != 0 {
		if err := app.LobbyController.SetDefaultStartingClock(cfg.StartingClock); err != nil {
			return nil, fmt.Errorf("invalid starting clock %s: %w", cfg.StartingClock, err)
		}
	}

	if cfg.DictionaryPath != "" {
		if err := app.DictionaryService.LoadFromFile(ctx, cfg.DictionaryPath); err != nil {
			logger.Warn("could not load dictionary",
				slog.String("path", cfg.DictionaryPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if cfg.DatabaseURL != "" {
		archive, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.Archive = archive
		app.GameController.SetArchive(archive)
	}

	if cfg.NATSURL != "" {
		natsCfg := realtime.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		conn, err := realtime.DialNATS(natsCfg, logger)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.natsConn = conn
		if err := app.enableRelay(conn); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	return app, nil
}

// dependencies are the pieces New decides on before wiring
type dependencies struct {
	storage      storage.Storage
	clock        clock.Clock
	random       random.Random
	lexicon      lexicon.Gateway // nil means the local dictionary
	weights      scoring.Weights
	auth         auth.Config
	game         *game.Config
	tickInterval time.Duration
	logger       *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies) *App {
	logger := deps.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gameCfg := game.DefaultConfig()
	if deps.game != nil {
		gameCfg = *deps.game
	}

	// Create services
	dictService := dictionary.New(deps.storage, logger)
	gateway := deps.lexicon
	if gateway == nil {
		gateway = dictService
	}
	scoringEngine := scoring.New(deps.weights)
	ratingService := rating.New(deps.storage, logger)
	gameController := game.NewController(deps.storage, gateway, scoringEngine, ratingService, deps.clock, logger, gameCfg)
	lobbyController := lobby.NewController(deps.storage, gameController, deps.clock, deps.random, logger)
	authService := auth.New(deps.storage, deps.clock, deps.auth)
	// Bots draw their words from the local dictionary
	botService := bot.NewService(deps.storage, lobbyController, gameController, dictService, map[string]bot.Strategy{
		model.BotStrategyRandom: bot.NewRandomStrategy(deps.random),
		model.BotStrategyGreedy: bot.NewGreedyStrategy(scoringEngine),
	}, deps.clock, deps.random, logger)
	tickRunner := timer.New(gameController, deps.clock, deps.tickInterval, logger)

	// Every state change reaches the lobby's stream subscribers
	hubManager := realtime.NewHubManager(logger)
	broadcaster := realtime.NewBroadcaster(hubManager, logger)
	gameController.SetPublisher(broadcaster)
	lobbyController.SetPublisher(broadcaster)
	lobbyController.OnClosed(hubManager.RemoveHub)
	tickRunner.SetSweeper(hubManager, timer.DefaultSweepInterval, timer.DefaultHubIdle)

	return &App{
		Storage:           deps.storage,
		Clock:             deps.clock,
		Random:            deps.random,
		DictionaryService: dictService,
		Lexicon:           gateway,
		ScoringEngine:     scoringEngine,
		RatingService:     ratingService,
		GameController:    gameController,
		LobbyController:   lobbyController,
		AuthService:       authService,
		BotService:        botService,
		TickRunner:        tickRunner,
		HubManager:        hubManager,
		Broadcaster:       broadcaster,
		logger:            logger,
	}
}

// enableRelay forwards published events over NATS and delivers events
// from other instances to local subscribers
func (a *App) enableRelay(conn realtime.NATSConn) error {
	relay := realtime.NewNATSRelay(conn, a.HubManager.Deliver, a.logger)
	if err := relay.Start(); err != nil {
		return err
	}
	a.Relay = relay
	a.Broadcaster.SetRelay(relay)
	return nil
}

// Close releases everything the App opened. The tick runner is stopped if running.
func (a *App) Close() error {
	var errs []error

	if err := a.TickRunner.Stop(); err != nil && !errors.Is(err, timer.ErrNotRunning) {
		errs = append(errs, err)
	}
	if a.Relay != nil {
		if err := a.Relay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	a.HubManager.Close()
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := a.Storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
