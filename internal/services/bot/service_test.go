package bot_test

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/mocks"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/bot"
	"github.com/mcoot/wordchain-go/internal/services/dictionary"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/services/lobby"
	"github.com/mcoot/wordchain-go/internal/services/rating"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
	"github.com/mcoot/wordchain-go/internal/storage/memory"
	"github.com/mcoot/wordchain-go/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store      *memory.Storage
	clock      *clockwork.FakeClock
	mockRandom *mocks.MockRandom

	dictionary      *dictionary.Service
	gameController  *game.Controller
	lobbyController *lobby.Controller
	botService      *bot.Service

	ctx context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.clock = clock.NewFake()
	s.mockRandom = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	s.ctx = context.Background()

	s.dictionary = dictionary.New(s.store, logger)
	s.dictionary.LoadWords([]string{"glass", "grass", "zebra", "zinc", "quartz"})

	scorer := scoring.New(scoring.DefaultWeights())
	s.gameController = game.NewController(s.store, s.dictionary, scorer, rating.New(s.store, logger), s.clock, logger, game.DefaultConfig())
	s.lobbyController = lobby.NewController(s.store, s.gameController, s.clock, s.mockRandom, logger)

	strategies := map[string]bot.Strategy{
		model.BotStrategyRandom: bot.NewRandomStrategy(s.mockRandom),
		model.BotStrategyGreedy: bot.NewGreedyStrategy(scorer),
	}
	s.botService = bot.NewService(s.store, s.lobbyController, s.gameController, s.dictionary, strategies, s.clock, s.mockRandom, logger)
}

func (s *ServiceSuite) createPlayer(id, name string) model.Player {
	p := model.Player{
		ID:          model.PlayerID(id),
		DisplayName: name,
		IsGuest:     true,
		EloRating:   model.DefaultEloRating,
		CreatedAt:   s.clock.Now(),
	}
	s.Require().NoError(s.store.SavePlayer(s.ctx, &p))
	return p
}

// lobbyWithBot creates a lobby hosted by "host" with a bot in the second seat
func (s *ServiceSuite) lobbyWithBot(strategy string) (*model.Lobby, *model.Player) {
	s.mockRandom.QueueString("LOBBY1", "abcdefghijklmnop")
	host := s.createPlayer("host", "Host")
	lob, err := s.lobbyController.CreateLobby(s.ctx, host)
	s.Require().NoError(err)

	botPlayer, err := s.botService.AddBotToLobby(s.ctx, lob.Code, host.ID, strategy)
	s.Require().NoError(err)
	return lob, botPlayer
}

func (s *ServiceSuite) TestCreateBotPlayer() {
	s.mockRandom.QueueString("abcdefghijklmnop")

	player, err := s.botService.CreateBotPlayer(s.ctx, "Bot 1", model.BotStrategyGreedy)
	s.Require().NoError(err)

	s.Equal("Bot 1", player.DisplayName)
	s.True(player.IsBot)
	s.True(player.IsGuest)
	s.Equal(model.BotStrategyGreedy, player.BotStrategy)
	s.Equal(model.DefaultEloRating, player.EloRating)
	s.Equal(model.PlayerID("bot-abcdefghijklmnop"), player.ID)

	retrieved, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.True(retrieved.IsBot)
	s.Equal(model.BotStrategyGreedy, retrieved.BotStrategy)
}

func (s *ServiceSuite) TestAddBotToLobby() {
	lob, botPlayer := s.lobbyWithBot(model.BotStrategyRandom)

	s.Equal("Bot 1", botPlayer.DisplayName)

	updated, err := s.lobbyController.GetLobby(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Len(updated.Members, 2)
	s.Equal(botPlayer.ID, updated.Members[1].Player.ID)
	s.Equal(model.RolePlayer, updated.Members[1].Role)
	s.True(updated.Members[1].Player.IsBot)

	seats, ok := updated.Seats()
	s.True(ok)
	s.Equal(botPlayer.ID, seats[1])
}

func (s *ServiceSuite) TestAddBotToLobby_UnknownStrategy() {
	s.mockRandom.QueueString("LOBBY1")
	host := s.createPlayer("host", "Host")
	lob, err := s.lobbyController.CreateLobby(s.ctx, host)
	s.Require().NoError(err)

	_, err = s.botService.AddBotToLobby(s.ctx, lob.Code, host.ID, "clairvoyant")
	s.ErrorIs(err, model.ErrUnknownStrategy)
}

func (s *ServiceSuite) TestAddBotToLobby_NotHost() {
	s.mockRandom.QueueString("LOBBY1")
	host := s.createPlayer("host", "Host")
	lob, err := s.lobbyController.CreateLobby(s.ctx, host)
	s.Require().NoError(err)

	other := s.createPlayer("other", "Other")
	_, err = s.lobbyController.JoinLobby(s.ctx, lob.Code, other)
	s.Require().NoError(err)

	_, err = s.botService.AddBotToLobby(s.ctx, lob.Code, other.ID, model.BotStrategyRandom)
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *ServiceSuite) TestAddBotToLobby_SeatsTaken() {
	s.mockRandom.QueueString("LOBBY1")
	host := s.createPlayer("host", "Host")
	lob, err := s.lobbyController.CreateLobby(s.ctx, host)
	s.Require().NoError(err)

	other := s.createPlayer("other", "Other")
	_, err = s.lobbyController.JoinLobby(s.ctx, lob.Code, other)
	s.Require().NoError(err)

	_, err = s.botService.AddBotToLobby(s.ctx, lob.Code, host.ID, model.BotStrategyRandom)
	s.ErrorIs(err, model.ErrLobbyFull)
}

func (s *ServiceSuite) TestAddBotToLobby_GameInProgress() {
	lob, _ := s.lobbyWithBot(model.BotStrategyRandom)
	_, err := s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)

	_, err = s.botService.AddBotToLobby(s.ctx, lob.Code, "host", model.BotStrategyRandom)
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ServiceSuite) TestRemoveBotFromLobby() {
	lob, botPlayer := s.lobbyWithBot(model.BotStrategyRandom)

	s.Require().NoError(s.botService.RemoveBotFromLobby(s.ctx, lob.Code, "host", botPlayer.ID))

	updated, err := s.lobbyController.GetLobby(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Len(updated.Members, 1)
}

func (s *ServiceSuite) TestRemoveBotFromLobby_Rejections() {
	lob, botPlayer := s.lobbyWithBot(model.BotStrategyRandom)
	spectator := s.createPlayer("watcher", "Watcher")
	_, err := s.lobbyController.JoinLobby(s.ctx, lob.Code, spectator)
	s.Require().NoError(err)

	s.ErrorIs(s.botService.RemoveBotFromLobby(s.ctx, lob.Code, spectator.ID, botPlayer.ID), model.ErrNotHost)
	s.ErrorIs(s.botService.RemoveBotFromLobby(s.ctx, lob.Code, "host", spectator.ID), model.ErrNotBot)
	s.ErrorIs(s.botService.RemoveBotFromLobby(s.ctx, lob.Code, "host", "nobody"), model.ErrNotInLobby)

	_, err = s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)
	s.ErrorIs(s.botService.RemoveBotFromLobby(s.ctx, lob.Code, "host", botPlayer.ID), model.ErrGameInProgress)
}

func (s *ServiceSuite) TestProcessBotActions_NoSession() {
	lob, _ := s.lobbyWithBot(model.BotStrategyRandom)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Empty(actions)
}

func (s *ServiceSuite) TestProcessBotActions_WaitsForHuman() {
	lob, _ := s.lobbyWithBot(model.BotStrategyRandom)
	_, err := s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Empty(actions)
}

func (s *ServiceSuite) TestProcessBotActions_RepliesToHuman() {
	lob, botPlayer := s.lobbyWithBot(model.BotStrategyGreedy)
	_, err := s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)
	_, err = s.gameController.SubmitMove(s.ctx, lob.Code, "host", "glass")
	s.Require().NoError(err)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Require().Len(actions, 1)
	s.Equal(bot.ActionMove, actions[0].Type)
	s.Equal(botPlayer.ID, actions[0].PlayerID)
	s.True(actions[0].Valid)
	s.Positive(actions[0].Score)
	s.NotEqual("glass", actions[0].Word)

	snapshot, err := s.gameController.GetSnapshot(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Len(snapshot.Moves, 2)
	s.Equal(model.PlayerID("host"), snapshot.Session.ActivePlayer())
	s.Equal(actions[0].Score, snapshot.Scores[1])
}

func (s *ServiceSuite) TestProcessBotActions_FollowsWordRule() {
	lob, _ := s.lobbyWithBot(model.BotStrategyRandom)
	rule := model.WordRule{Kind: model.RuleStartsWith, Text: "z"}
	_, err := s.lobbyController.UpdateConfig(s.ctx, lob.Code, "host", lobby.ConfigUpdate{Rule: &rule})
	s.Require().NoError(err)

	_, err = s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)
	_, err = s.gameController.SubmitMove(s.ctx, lob.Code, "host", "zebra")
	s.Require().NoError(err)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Require().Len(actions, 1)
	s.Equal("zinc", actions[0].Word)
}

func (s *ServiceSuite) TestProcessBotActions_ForfeitsWhenOutOfWords() {
	lob, botPlayer := s.lobbyWithBot(model.BotStrategyGreedy)
	s.dictionary.LoadWords([]string{"glass"})

	_, err := s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)
	_, err = s.gameController.SubmitMove(s.ctx, lob.Code, "host", "glass")
	s.Require().NoError(err)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Require().Len(actions, 1)
	s.Equal(bot.ActionForfeit, actions[0].Type)
	s.Equal(botPlayer.ID, actions[0].PlayerID)

	session, err := s.gameController.GetSession(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Equal(model.SessionFinished, session.Status)
	s.Equal(model.PlayerID("host"), session.Winner)
	s.Equal(model.EndReasonForfeit, session.EndReason)
}

func (s *ServiceSuite) TestProcessBotActions_IdleWhilePaused() {
	lob, _ := s.lobbyWithBot(model.BotStrategyRandom)
	_, err := s.gameController.InitSession(s.ctx, lob.Code, "host")
	s.Require().NoError(err)
	_, err = s.gameController.SubmitMove(s.ctx, lob.Code, "host", "glass")
	s.Require().NoError(err)
	_, err = s.gameController.Pause(s.ctx, lob.Code, "host")
	s.Require().NoError(err)

	actions, err := s.botService.ProcessBotActions(s.ctx, lob.Code)
	s.Require().NoError(err)
	s.Empty(actions)
}
