package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/random"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
	"github.com/mcoot/wordchain-go/internal/storage"
)

const (
	// PlayerIDAlphabet is the character set for generating bot player IDs
	PlayerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// PlayerIDLength is the length of generated bot player IDs
	PlayerIDLength = 16
	// MaxBotIterations is a safety limit for the ProcessBotActions loop
	MaxBotIterations = 1000
)

// ActionType represents the type of action a bot took
type ActionType string

const (
	ActionMove    ActionType = "move"
	ActionForfeit ActionType = "forfeit"
)

// Action represents a single action taken by a bot during ProcessBotActions
type Action struct {
	Type     ActionType
	PlayerID model.PlayerID
	Word     string
	Valid    bool
	Score    int
}

// WordSource lists the words a bot may draw from
type WordSource interface {
	Entries() []model.DictionaryEntry
}

// Service manages bot players in lobbies and plays their turns
type Service struct {
	storage         storage.Storage
	lobbyController lobby.ControllerInterface
	gameController  game.ControllerInterface
	words           WordSource
	strategies      map[string]Strategy
	clock           clock.Clock
	random          random.Random
	logger          *slog.Logger
}

// NewService creates a new bot Service
func NewService(
	store storage.Storage,
	lobbyController lobby.ControllerInterface,
	gameController game.ControllerInterface,
	words WordSource,
	strategies map[string]Strategy,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:         store,
		lobbyController: lobbyController,
		gameController:  gameController,
		words:           words,
		strategies:      strategies,
		clock:           clk,
		random:          rnd,
		logger:          logger.With(slog.String("component", "bot-service")),
	}
}

// CreateBotPlayer creates a new bot player and saves it to storage
func (s *Service) CreateBotPlayer(ctx context.Context, displayName string, strategy string) (*model.Player, error) {
	player := &model.Player{
		ID:          model.PlayerID("bot-" + s.random.String(PlayerIDLength, PlayerIDAlphabet)),
		DisplayName: displayName,
		IsGuest:     true,
		IsBot:       true,
		BotStrategy: strategy,
		EloRating:   model.DefaultEloRating,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	return player, nil
}

// AddBotToLobby creates a bot player and seats it in the lobby.
// Only the host can add bots, and only while a seat is free and no session has started.
func (s *Service) AddBotToLobby(ctx context.Context, code model.LobbyCode, requestingPlayerID model.PlayerID, strategy string) (*model.Player, error) {
	if _, ok := s.strategies[strategy]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownStrategy, strategy)
	}

	lob, err := s.lobbyController.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	host := lob.GetHost()
	if host == nil || host.Player.ID != requestingPlayerID {
		return nil, model.ErrNotHost
	}
	if lob.State != model.LobbyStateWaiting {
		return nil, model.ErrGameInProgress
	}
	// A bot spectating would never play
	if len(lob.GetPlayers()) >= model.SeatCount {
		return nil, model.ErrLobbyFull
	}

	botCount := 0
	for _, m := range lob.Members {
		if m.Player.IsBot {
			botCount++
		}
	}

	displayName := fmt.Sprintf("Bot %d", botCount+1)
	bot, err := s.CreateBotPlayer(ctx, displayName, strategy)
	if err != nil {
		return nil, err
	}

	if _, err := s.lobbyController.JoinLobby(ctx, code, *bot); err != nil {
		return nil, err
	}

	s.logger.Info("bot added to lobby",
		slog.String("lobby_code", string(code)),
		slog.String("bot_id", string(bot.ID)),
		slog.String("bot_name", displayName),
		slog.String("strategy", strategy),
	)

	return bot, nil
}

// RemoveBotFromLobby removes a bot player from the lobby.
// Only the host can remove bots, and only before the session starts.
func (s *Service) RemoveBotFromLobby(ctx context.Context, code model.LobbyCode, requestingPlayerID model.PlayerID, botPlayerID model.PlayerID) error {
	lob, err := s.lobbyController.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	host := lob.GetHost()
	if host == nil || host.Player.ID != requestingPlayerID {
		return model.ErrNotHost
	}
	if lob.State == model.LobbyStateInGame {
		return model.ErrGameInProgress
	}

	member := lob.GetMember(botPlayerID)
	if member == nil {
		return model.ErrNotInLobby
	}
	if !member.Player.IsBot {
		return model.ErrNotBot
	}

	return s.lobbyController.LeaveLobby(ctx, code, botPlayerID)
}

// ProcessBotActions plays every consecutive bot turn of the lobby's session.
// It stops at a human's turn or once the session is no longer active. A bot
// with no acceptable word left forfeits.
func (s *Service) ProcessBotActions(ctx context.Context, code model.LobbyCode) ([]Action, error) {
	var actions []Action

	for range MaxBotIterations {
		snapshot, err := s.gameController.GetSnapshot(ctx, code)
		if errors.Is(err, model.ErrSessionNotFound) {
			break
		}
		if err != nil {
			return actions, err
		}
		if snapshot.Session.Status != model.SessionActive {
			break
		}

		playerID := snapshot.Session.ActivePlayer()
		player, err := s.storage.GetPlayer(ctx, playerID)
		if err != nil {
			return actions, err
		}
		if !player.IsBot {
			break // Human's turn
		}

		word, ok := s.strategyForPlayer(player).ChooseWord(snapshot, s.candidates(snapshot))
		if !ok {
			if _, err := s.gameController.Forfeit(ctx, code, playerID); err != nil {
				return actions, err
			}
			s.logger.Info("bot forfeited",
				slog.String("lobby_code", string(code)),
				slog.String("bot_id", string(playerID)),
			)
			actions = append(actions, Action{Type: ActionForfeit, PlayerID: playerID})
			break
		}

		result, err := s.gameController.SubmitMove(ctx, code, playerID, word)
		if errors.Is(err, model.ErrInvalidState) {
			break // Clock ran out under the bot
		}
		if err != nil {
			return actions, err
		}

		action := Action{Type: ActionMove, PlayerID: playerID, Word: word, Valid: result.Move.IsValid}
		if result.Move.Score != nil {
			action.Score = *result.Move.Score
		}
		actions = append(actions, action)
	}

	return actions, nil
}

// candidates returns the unplayed words that satisfy the session's rule
func (s *Service) candidates(snapshot *model.SessionSnapshot) []string {
	var words []string
	for _, e := range s.words.Entries() {
		if model.ContainsWord(snapshot.Moves, e.Word) {
			continue
		}
		if lexicon.Accepts(snapshot.Session.Rule, e.Word, lexicon.FromDictionary(e)) {
			words = append(words, e.Word)
		}
	}
	return words
}

// strategyForPlayer returns the strategy for a bot player, falling back to
// random if the player's strategy is not registered
func (s *Service) strategyForPlayer(player *model.Player) Strategy {
	if st, ok := s.strategies[player.BotStrategy]; ok {
		return st
	}
	if st, ok := s.strategies[model.BotStrategyRandom]; ok {
		return st
	}
	return NewRandomStrategy(s.random)
}
