package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcoot/wordchain-go/internal/api/handler"
	"github.com/mcoot/wordchain-go/internal/api/middleware"
	"github.com/mcoot/wordchain-go/internal/realtime"
	"github.com/mcoot/wordchain-go/internal/services/auth"
	"github.com/mcoot/wordchain-go/internal/services/bot"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
	"github.com/mcoot/wordchain-go/internal/services/rating"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	LobbyController *lobby.Controller
	GameController  *game.Controller
	RatingService   *rating.Service
	BotService      *bot.Service // Optional
	HubManager      *realtime.HubManager
	Archive         storage.Archive // Optional
	AllowedOrigins  []string        // Empty allows any origin
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	corsHandler := newCORS(cfg.AllowedOrigins)

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.Archive)
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController, cfg.BotService)
	sessionHandler := handler.NewSessionHandler(cfg.GameController, cfg.BotService, cfg.Logger)
	streamHandler := handler.NewStreamHandler(
		cfg.LobbyController,
		cfg.HubManager,
		realtime.NewWebSocketServer(websocketOriginCheck(corsHandler), cfg.Logger),
	)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.RatingService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)
	playerProtected.HandleFunc("/{id}", playerHandler.Get).Methods(http.MethodGet)
	playerProtected.HandleFunc("/{id}/history", playerHandler.History).Methods(http.MethodGet)

	// Lobby routes (all require auth)
	lobbies := api.PathPrefix("/lobbies").Subrouter()
	lobbies.Use(authMiddleware)
	lobbies.HandleFunc("", lobbyHandler.Create).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}", lobbyHandler.Get).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}/join", lobbyHandler.Join).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/leave", lobbyHandler.Leave).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/config", lobbyHandler.UpdateConfig).Methods(http.MethodPatch)
	lobbies.HandleFunc("/{code}/members/{player_id}/role", lobbyHandler.SetRole).Methods(http.MethodPatch)
	lobbies.HandleFunc("/{code}/transfer-host", lobbyHandler.TransferHost).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/bots", lobbyHandler.AddBot).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/bots/{player_id}", lobbyHandler.RemoveBot).Methods(http.MethodDelete)

	// Session routes (all require auth)
	lobbies.HandleFunc("/{code}/session", sessionHandler.Init).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session", sessionHandler.Get).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}/session/moves", sessionHandler.SubmitMove).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session/pause", sessionHandler.Pause).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session/resume", sessionHandler.Resume).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session/forfeit", sessionHandler.Forfeit).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session/clock", sessionHandler.ReportClock).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/session/end", sessionHandler.End).Methods(http.MethodPost)

	// Event streams
	lobbies.HandleFunc("/{code}/events", streamHandler.Events).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	// Public routes
	api.HandleFunc("/leaderboard", leaderboardHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return corsHandler.Handler(r)
}

func newCORS(allowedOrigins []string) *cors.Cors {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins:   allowedOrigins,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
}

// websocketOriginCheck applies the CORS origin policy to WebSocket handshakes.
// Requests without an Origin header come from non-browser clients.
func websocketOriginCheck(c *cors.Cors) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if r.Header.Get("Origin") == "" {
			return true
		}
		return c.OriginAllowed(r)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
