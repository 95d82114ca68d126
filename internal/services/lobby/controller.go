package lobby

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/random"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/storage"
)

const (
	// LobbyCodeLength is the length of generated lobby codes
	LobbyCodeLength = 6
	// LobbyCodeAlphabet is the characters used in lobby codes (avoid confusing chars)
	LobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// Bounds on a configured starting clock
	MinStartingClock = 10 * time.Second
	MaxStartingClock = time.Hour
)

// Controller seats the two players of a session and manages lobby membership
type Controller struct {
	storage        storage.Storage
	gameController *game.Controller
	publisher      game.Publisher
	defaults       model.LobbyConfig
	clock          clock.Clock
	random         random.Random
	logger         *slog.Logger
	onClosed       func(model.LobbyCode)
}

// NewController creates a new LobbyController
func NewController(
	storage storage.Storage,
	gameController *game.Controller,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:        storage,
		gameController: gameController,
		publisher:      game.NopPublisher{},
		defaults:       model.DefaultLobbyConfig(),
		clock:          clock,
		random:         random,
		logger:         logger,
	}
}

// SetPublisher sets where membership events are delivered
func (c *Controller) SetPublisher(p game.Publisher) {
	c.publisher = p
}

// OnClosed registers fn to run after a lobby is deleted, e.g. to drop its stream hub
func (c *Controller) OnClosed(fn func(model.LobbyCode)) {
	c.onClosed = fn
}

// SetDefaultStartingClock sets the starting clock given to new lobbies
func (c *Controller) SetDefaultStartingClock(d time.Duration) error {
	if d < MinStartingClock || d > MaxStartingClock {
		return model.ErrInvalidConfig
	}
	c.defaults.StartingClock = d
	return nil
}

// CreateLobby creates a new lobby with the given player as host in seat one
func (c *Controller) CreateLobby(ctx context.Context, host model.Player) (*model.Lobby, error) {
	now := c.clock.Now()

	// Generate unique lobby code
	var code model.LobbyCode
	for {
		code = model.LobbyCode(c.random.String(LobbyCodeLength, LobbyCodeAlphabet))
		exists, err := c.storage.LobbyExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	lobby := &model.Lobby{
		Code:   code,
		State:  model.LobbyStateWaiting,
		Config: c.defaults,
		Members: []model.LobbyMember{
			{
				Player:   host,
				Role:     model.RolePlayer,
				IsHost:   true,
				JoinedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	c.logger.Info("lobby created",
		slog.String("lobby_code", string(code)),
		slog.String("host", string(host.ID)),
	)
	return lobby, nil
}

// GetLobby retrieves a lobby by code
func (c *Controller) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	return c.storage.GetLobby(ctx, code)
}

// JoinLobby adds a player to a lobby. The first two players take the seats;
// everyone after that, or anyone joining once a session exists, spectates.
func (c *Controller) JoinLobby(ctx context.Context, code model.LobbyCode, player model.Player) (*model.LobbyMember, error) {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	if lobby.GetMember(player.ID) != nil {
		return nil, model.ErrAlreadyInLobby
	}

	role := model.RolePlayer
	if lobby.State != model.LobbyStateWaiting || len(lobby.GetPlayers()) >= model.SeatCount {
		role = model.RoleSpectator
	}

	now := c.clock.Now()
	member := model.LobbyMember{
		Player:   player,
		Role:     role,
		IsHost:   false,
		JoinedAt: now,
	}
	lobby.Members = append(lobby.Members, member)
	lobby.UpdatedAt = now

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}

	c.publishMember(ctx, model.EventPlayerJoined, code, member)
	return &member, nil
}

// LeaveLobby removes a player from a lobby. A seated player leaving a
// running session forfeits it.
func (c *Controller) LeaveLobby(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) error {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	member := lobby.GetMember(playerID)
	if member == nil {
		return model.ErrNotInLobby
	}
	left := *member

	if left.Role == model.RolePlayer && lobby.State == model.LobbyStateInGame {
		_, err := c.gameController.Forfeit(ctx, code, playerID)
		if err != nil && !errors.Is(err, model.ErrInvalidState) && !errors.Is(err, model.ErrSessionNotFound) {
			return err
		}
		// The finished session rewrote the lobby state
		if lobby, err = c.storage.GetLobby(ctx, code); err != nil {
			return err
		}
	}

	for i, m := range lobby.Members {
		if m.Player.ID == playerID {
			lobby.Members = append(lobby.Members[:i], lobby.Members[i+1:]...)
			break
		}
	}

	if len(lobby.Members) == 0 {
		if err := c.gameController.DiscardSession(ctx, code); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
			c.logger.Warn("failed to discard session",
				slog.String("lobby_code", string(code)),
				slog.String("error", err.Error()),
			)
		}
		if err := c.storage.DeleteLobby(ctx, code); err != nil {
			return err
		}
		c.logger.Info("lobby closed", slog.String("lobby_code", string(code)))
		if c.onClosed != nil {
			c.onClosed(code)
		}
		return nil
	}

	// If host left, assign new host
	if left.IsHost {
		lobby.Members[0].IsHost = true
	}

	lobby.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return err
	}

	c.publishMember(ctx, model.EventPlayerLeft, code, left)
	return nil
}

// SetRole changes a member's role (player/spectator) before the session starts
func (c *Controller) SetRole(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, role model.LobbyMemberRole) error {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	if lobby.State != model.LobbyStateWaiting {
		return model.ErrGameInProgress
	}

	member := lobby.GetMember(playerID)
	if member == nil {
		return model.ErrNotInLobby
	}
	if role == model.RolePlayer && member.Role != model.RolePlayer && len(lobby.GetPlayers()) >= model.SeatCount {
		return model.ErrLobbyFull
	}

	member.Role = role
	lobby.UpdatedAt = c.clock.Now()

	return c.storage.SaveLobby(ctx, lobby)
}

// TransferHost makes another member the host
func (c *Controller) TransferHost(ctx context.Context, code model.LobbyCode, requestingPlayer model.PlayerID, newHostID model.PlayerID) error {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	// Verify requester is current host
	currentHost := lobby.GetHost()
	if currentHost == nil || currentHost.Player.ID != requestingPlayer {
		return model.ErrNotHost
	}

	// Verify new host is in lobby
	newHost := lobby.GetMember(newHostID)
	if newHost == nil {
		return model.ErrNotInLobby
	}

	currentHost.IsHost = false
	newHost.IsHost = true
	lobby.UpdatedAt = c.clock.Now()

	return c.storage.SaveLobby(ctx, lobby)
}

// ConfigUpdate is a partial lobby config change; nil fields are left as they are
type ConfigUpdate struct {
	StartingClock *time.Duration
	Rule          *model.WordRule
}

// UpdateConfig changes the starting clock or word rule. Host only, before the session starts.
func (c *Controller) UpdateConfig(ctx context.Context, code model.LobbyCode, requestingPlayer model.PlayerID, update ConfigUpdate) (*model.Lobby, error) {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	host := lobby.GetHost()
	if host == nil || host.Player.ID != requestingPlayer {
		return nil, model.ErrNotHost
	}

	if lobby.State != model.LobbyStateWaiting {
		return nil, model.ErrGameInProgress
	}

	cfg := lobby.Config
	if update.StartingClock != nil {
		if *update.StartingClock < MinStartingClock || *update.StartingClock > MaxStartingClock {
			return nil, model.ErrInvalidConfig
		}
		cfg.StartingClock = *update.StartingClock
	}
	if update.Rule != nil {
		if err := update.Rule.Validate(); err != nil {
			return nil, err
		}
		cfg.Rule = update.Rule.Normalized()
	}

	lobby.Config = cfg
	lobby.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

func (c *Controller) publishMember(ctx context.Context, eventType model.EventType, code model.LobbyCode, member model.LobbyMember) {
	c.publisher.Publish(ctx, model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		LobbyCode: code,
		PlayerID:  member.Player.ID,
		Timestamp: c.clock.Now(),
		Member:    &member,
	})
}

// Interface for dependency injection
type ControllerInterface interface {
	CreateLobby(ctx context.Context, host model.Player) (*model.Lobby, error)
	GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error)
	JoinLobby(ctx context.Context, code model.LobbyCode, player model.Player) (*model.LobbyMember, error)
	LeaveLobby(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) error
	SetRole(ctx context.Context, code model.LobbyCode, playerID model.PlayerID, role model.LobbyMemberRole) error
	TransferHost(ctx context.Context, code model.LobbyCode, requestingPlayer model.PlayerID, newHostID model.PlayerID) error
	UpdateConfig(ctx context.Context, code model.LobbyCode, requestingPlayer model.PlayerID, update ConfigUpdate) (*model.Lobby, error)
}

var _ ControllerInterface = (*Controller)(nil)
