package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordchain-go/internal/api/middleware"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/realtime"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
)

// StreamHandler serves a lobby's event stream to its members
type StreamHandler struct {
	lobbyController lobby.ControllerInterface
	hubManager      *realtime.HubManager
	websocket       *realtime.WebSocketServer
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(lobbyController lobby.ControllerInterface, hubManager *realtime.HubManager, websocket *realtime.WebSocketServer) *StreamHandler {
	return &StreamHandler{
		lobbyController: lobbyController,
		hubManager:      hubManager,
		websocket:       websocket,
	}
}

// Events handles GET /api/v1/lobbies/{code}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	hub, player, ok := h.open(w, r)
	if !ok {
		return
	}

	// The stream outlives the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	realtime.ServeSSE(w, r, hub, player.ID)
}

// WebSocket handles GET /api/v1/lobbies/{code}/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	hub, player, ok := h.open(w, r)
	if !ok {
		return
	}

	h.websocket.Serve(w, r, hub, player.ID)
}

// open checks membership and returns the lobby's hub
func (h *StreamHandler) open(w http.ResponseWriter, r *http.Request) (*realtime.Hub, *model.Player, bool) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	l, err := h.lobbyController.GetLobby(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return nil, nil, false
	}
	if l.GetMember(player.ID) == nil {
		WriteError(w, NewForbiddenError("join the lobby to watch it"))
		return nil, nil, false
	}

	return h.hubManager.GetOrCreateHub(code), player, true
}
