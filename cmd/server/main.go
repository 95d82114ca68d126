package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/wordchain-go/internal/api"
	"github.com/mcoot/wordchain-go/internal/config"
	"github.com/mcoot/wordchain-go/internal/factory"
	redisstorage "github.com/mcoot/wordchain-go/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Build factory config from environment
	factoryCfg := factory.Config{
		DictionaryPath:    cfg.DictionaryPath,
		LexiconURL:        cfg.LexiconURL,
		ScoringConfigPath: cfg.ScoringConfig,
		StartingClock:     cfg.StartingClock,
		TickInterval:      cfg.TickInterval,
		Logger:            logger,
		StorageType:       cfg.StorageType,
		DatabaseURL:       cfg.DatabaseURL,
		NATSURL:           cfg.NATSURL,
	}
	if cfg.StorageType == config.StorageRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	// Clocks keep running for players who disconnect
	if err := app.TickRunner.Start(ctx); err != nil {
		logger.Error("failed to start tick runner", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AuthService:     app.AuthService,
		LobbyController: app.LobbyController,
		GameController:  app.GameController,
		RatingService:   app.RatingService,
		BotService:      app.BotService,
		HubManager:      app.HubManager,
		Archive:         app.Archive,
		AllowedOrigins:  cfg.CORSOrigins,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	logger.Info("server starting",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Bool("archive", app.Archive != nil),
		slog.Bool("relay", app.Relay != nil),
	)

	// Blocks until SIGINT/SIGTERM, then drains open requests
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return
	}

	logger.Info("server stopped")
}
