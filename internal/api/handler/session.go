package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordchain-go/internal/api/middleware"
	"github.com/mcoot/wordchain-go/internal/api/request"
	"github.com/mcoot/wordchain-go/internal/api/response"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/bot"
	"github.com/mcoot/wordchain-go/internal/services/game"
)

// SessionHandler handles the game session endpoints of a lobby
type SessionHandler struct {
	gameController game.ControllerInterface
	botService     *bot.Service // Optional
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(gameController game.ControllerInterface, botService *bot.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		gameController: gameController,
		botService:     botService,
		logger:         logger,
	}
}

// Init handles POST /api/v1/lobbies/{code}/session
func (h *SessionHandler) Init(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	session, err := h.gameController.InitSession(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.processBotActions(r.Context(), code)

	response.JSON(w, http.StatusOK, response.SessionFromModel(session))
}

// Get handles GET /api/v1/lobbies/{code}/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.LobbyCode(mux.Vars(r)["code"])

	snapshot, err := h.gameController.GetSnapshot(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SnapshotFromModel(snapshot))
}

// SubmitMove handles POST /api/v1/lobbies/{code}/session/moves
func (h *SessionHandler) SubmitMove(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.SubmitMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	result, err := h.gameController.SubmitMove(r.Context(), code, player.ID, req.Word)
	if err != nil {
		WriteError(w, err)
		return
	}

	if result.Move.IsValid {
		h.processBotActions(r.Context(), code)
	}

	// Invalid words are recorded too; is_valid tells them apart
	response.JSON(w, http.StatusCreated, response.MoveResponseFromResult(result))
}

// Pause handles POST /api/v1/lobbies/{code}/session/pause
func (h *SessionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.gameController.Pause)
}

// Resume handles POST /api/v1/lobbies/{code}/session/resume
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.gameController.Resume)
}

// Forfeit handles POST /api/v1/lobbies/{code}/session/forfeit
func (h *SessionHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.gameController.Forfeit)
}

// ReportClock handles POST /api/v1/lobbies/{code}/session/clock
func (h *SessionHandler) ReportClock(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.ClockReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.NewValueMs == nil {
		WriteError(w, NewInvalidRequestError("new_value_ms is required"))
		return
	}

	remaining := time.Duration(*req.NewValueMs) * time.Millisecond
	session, err := h.gameController.ReportClock(r.Context(), code, player.ID, game.ClockField(req.PlayerTimeField), remaining)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SessionFromModel(session))
}

// End handles POST /api/v1/lobbies/{code}/session/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	reason := model.EndReason(req.Reason)
	switch reason {
	case "", model.EndReasonTime, model.EndReasonForfeit:
	default:
		WriteError(w, NewInvalidRequestError("reason must be time or forfeit"))
		return
	}

	change, applied, err := h.gameController.NotifySessionEnd(r.Context(), code, player.ID, model.SessionStatus(req.FinalStatus), reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Debug("session end notified",
		slog.String("lobby_code", string(code)),
		slog.String("player_id", string(player.ID)),
		slog.String("reason", req.Reason),
		slog.Bool("applied", applied))

	response.JSON(w, http.StatusOK, response.EndSessionResponse{
		Applied: applied,
		Rating:  response.RatingChangeFromModel(change),
	})
}

type playerTransition func(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Session, error)

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, fn playerTransition) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	session, err := fn(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	// A resumed session may be waiting on a bot
	h.processBotActions(r.Context(), code)

	response.JSON(w, http.StatusOK, response.SessionFromModel(session))
}

// processBotActions plays any bot turns that are now due. Bot moves reach
// subscribers through the controller's published events.
func (h *SessionHandler) processBotActions(ctx context.Context, code model.LobbyCode) {
	if h.botService == nil {
		return
	}

	actions, err := h.botService.ProcessBotActions(ctx, code)
	if err != nil {
		h.logger.Error("bot actions failed",
			slog.String("lobby_code", string(code)),
			slog.String("error", err.Error()))
		return
	}
	if len(actions) > 0 {
		h.logger.Debug("bots played",
			slog.String("lobby_code", string(code)),
			slog.Int("actions", len(actions)))
	}
}
