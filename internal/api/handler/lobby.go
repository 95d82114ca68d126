package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordchain-go/internal/api/middleware"
	"github.com/mcoot/wordchain-go/internal/api/request"
	"github.com/mcoot/wordchain-go/internal/api/response"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/bot"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
)

// LobbyHandler handles lobby-related endpoints
type LobbyHandler struct {
	lobbyController lobby.ControllerInterface
	botService      *bot.Service // Optional
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController lobby.ControllerInterface, botService *bot.Service) *LobbyHandler {
	return &LobbyHandler{
		lobbyController: lobbyController,
		botService:      botService,
	}
}

// Create handles POST /api/v1/lobbies
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.LobbyConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	created, err := h.lobbyController.CreateLobby(r.Context(), *player)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Apply config if provided
	if update := configUpdate(req); update.StartingClock != nil || update.Rule != nil {
		updated, err := h.lobbyController.UpdateConfig(r.Context(), created.Code, player.ID, update)
		if err != nil {
			// The lobby is unusable with a config the caller did not ask for
			_ = h.lobbyController.LeaveLobby(r.Context(), created.Code, player.ID)
			WriteError(w, err)
			return
		}
		created = updated
	}

	response.JSON(w, http.StatusCreated, response.LobbyFromModel(created))
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.LobbyCode(mux.Vars(r)["code"])

	l, err := h.lobbyController.GetLobby(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(l))
}

// Join handles POST /api/v1/lobbies/{code}/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	if _, err := h.lobbyController.JoinLobby(r.Context(), code, *player); err != nil {
		WriteError(w, err)
		return
	}

	l, err := h.lobbyController.GetLobby(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(l))
}

// Leave handles POST /api/v1/lobbies/{code}/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	if err := h.lobbyController.LeaveLobby(r.Context(), code, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// UpdateConfig handles PATCH /api/v1/lobbies/{code}/config
func (h *LobbyHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.LobbyConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	updated, err := h.lobbyController.UpdateConfig(r.Context(), code, player.ID, configUpdate(req))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyConfigFromModel(updated.Config))
}

// SetRole handles PATCH /api/v1/lobbies/{code}/members/{player_id}/role
func (h *LobbyHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	requestingPlayer := middleware.MustGetPlayer(r.Context())
	vars := mux.Vars(r)
	code := model.LobbyCode(vars["code"])
	targetPlayerID := model.PlayerID(vars["player_id"])

	var req request.SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	role := model.LobbyMemberRole(req.Role)
	if role != model.RolePlayer && role != model.RoleSpectator {
		WriteError(w, NewInvalidRequestError("role must be player or spectator"))
		return
	}

	// Members may change their own role; the host may change anyone's
	if targetPlayerID != requestingPlayer.ID {
		l, err := h.lobbyController.GetLobby(r.Context(), code)
		if err != nil {
			WriteError(w, err)
			return
		}
		host := l.GetHost()
		if host == nil || host.Player.ID != requestingPlayer.ID {
			WriteError(w, model.ErrNotHost)
			return
		}
	}

	if err := h.lobbyController.SetRole(r.Context(), code, targetPlayerID, role); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// TransferHost handles POST /api/v1/lobbies/{code}/transfer-host
func (h *LobbyHandler) TransferHost(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.TransferHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.NewHostID == "" {
		WriteError(w, NewInvalidRequestError("new_host_id is required"))
		return
	}

	newHostID := model.PlayerID(req.NewHostID)
	if err := h.lobbyController.TransferHost(r.Context(), code, player.ID, newHostID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// AddBot handles POST /api/v1/lobbies/{code}/bots
func (h *LobbyHandler) AddBot(w http.ResponseWriter, r *http.Request) {
	if h.botService == nil {
		WriteError(w, NewServiceUnavailableError("bots are not enabled"))
		return
	}

	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.AddBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = model.BotStrategyRandom
	}

	if _, err := h.botService.AddBotToLobby(r.Context(), code, player.ID, strategy); err != nil {
		WriteError(w, err)
		return
	}

	l, err := h.lobbyController.GetLobby(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.LobbyFromModel(l))
}

// RemoveBot handles DELETE /api/v1/lobbies/{code}/bots/{player_id}
func (h *LobbyHandler) RemoveBot(w http.ResponseWriter, r *http.Request) {
	if h.botService == nil {
		WriteError(w, NewServiceUnavailableError("bots are not enabled"))
		return
	}

	player := middleware.MustGetPlayer(r.Context())
	vars := mux.Vars(r)
	code := model.LobbyCode(vars["code"])
	botPlayerID := model.PlayerID(vars["player_id"])

	if err := h.botService.RemoveBotFromLobby(r.Context(), code, player.ID, botPlayerID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

func configUpdate(req request.LobbyConfigRequest) lobby.ConfigUpdate {
	var update lobby.ConfigUpdate
	if req.StartingClockSeconds != nil {
		clock := time.Duration(*req.StartingClockSeconds) * time.Second
		update.StartingClock = &clock
	}
	update.Rule = req.Rule
	return update
}
