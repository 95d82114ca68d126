package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/mocks"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/game"
	"github.com/mcoot/wordchain-go/internal/services/rating"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
	"github.com/mcoot/wordchain-go/internal/storage/memory"
	"github.com/mcoot/wordchain-go/internal/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) Publish(ctx context.Context, event model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

type ControllerSuite struct {
	suite.Suite
	storage        *memory.Storage
	gameController *game.Controller
	clock          *clockwork.FakeClock
	random         *mocks.MockRandom
	events         *eventLog
	controller     *Controller
	ctx            context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	logger := testutil.NopLogger()
	s.clock = clock.NewFake()
	s.random = mocks.NewMockRandom()
	s.events = &eventLog{}
	s.gameController = game.NewController(
		s.storage,
		mocks.NewMockLexicon("glass"),
		scoring.New(scoring.DefaultWeights()),
		rating.New(s.storage, logger),
		s.clock,
		logger,
		game.DefaultConfig(),
	)
	s.controller = NewController(s.storage, s.gameController, s.clock, s.random, logger)
	s.controller.SetPublisher(s.events)
	s.ctx = context.Background()
}

func (s *ControllerSuite) createPlayer(id string, name string) model.Player {
	player := model.Player{
		ID:          model.PlayerID(id),
		DisplayName: name,
		IsGuest:     true,
		EloRating:   model.DefaultEloRating,
		CreatedAt:   s.clock.Now(),
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &player))
	return player
}

func (s *ControllerSuite) createLobby() (*model.Lobby, model.Player) {
	s.random.QueueString("ABC123")
	host := s.createPlayer("host-1", "Host")
	lobby, err := s.controller.CreateLobby(s.ctx, host)
	s.Require().NoError(err)
	return lobby, host
}

func (s *ControllerSuite) seatedLobby() (*model.Lobby, model.Player, model.Player) {
	lobby, host := s.createLobby()
	guest := s.createPlayer("player-1", "Player")
	_, err := s.controller.JoinLobby(s.ctx, lobby.Code, guest)
	s.Require().NoError(err)
	return lobby, host, guest
}

// CreateLobby tests

func (s *ControllerSuite) TestCreateLobbySucceeds() {
	lobby, host := s.createLobby()

	s.Equal(model.LobbyCode("ABC123"), lobby.Code)
	s.Equal(model.LobbyStateWaiting, lobby.State)
	s.Len(lobby.Members, 1)
	s.Equal(host.ID, lobby.Members[0].Player.ID)
	s.True(lobby.Members[0].IsHost)
	s.Equal(model.RolePlayer, lobby.Members[0].Role)
}

func (s *ControllerSuite) TestCreateLobbyIsPersisted() {
	lobby, _ := s.createLobby()

	retrieved, err := s.controller.GetLobby(s.ctx, lobby.Code)
	s.Require().NoError(err)
	s.Equal(lobby.Code, retrieved.Code)
}

func (s *ControllerSuite) TestCreateLobbyHasDefaultConfig() {
	lobby, _ := s.createLobby()

	s.Equal(model.DefaultStartingClock, lobby.Config.StartingClock)
	s.Equal(model.RuleAny, lobby.Config.Rule.Kind)
}

func (s *ControllerSuite) TestCreateLobbyUsesConfiguredStartingClock() {
	s.Require().NoError(s.controller.SetDefaultStartingClock(90 * time.Second))

	lobby, _ := s.createLobby()
	s.Equal(90*time.Second, lobby.Config.StartingClock)
}

func (s *ControllerSuite) TestSetDefaultStartingClockRejectsOutOfRange() {
	s.ErrorIs(s.controller.SetDefaultStartingClock(time.Second), model.ErrInvalidConfig)
	s.ErrorIs(s.controller.SetDefaultStartingClock(2*time.Hour), model.ErrInvalidConfig)
}

func (s *ControllerSuite) TestCreateLobbySkipsTakenCodes() {
	s.createLobby()
	s.random.QueueString("ABC123", "XYZ789")

	lobby, err := s.controller.CreateLobby(s.ctx, s.createPlayer("host-2", "Other"))
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("XYZ789"), lobby.Code)
}

// JoinLobby tests

func (s *ControllerSuite) TestJoinLobbyTakesSecondSeat() {
	lobby, host, guest := s.seatedLobby()

	updated, err := s.controller.GetLobby(s.ctx, lobby.Code)
	s.Require().NoError(err)
	s.Len(updated.Members, 2)
	s.Equal(model.RolePlayer, updated.GetMember(guest.ID).Role)

	seats, ok := updated.Seats()
	s.True(ok)
	s.Equal([model.SeatCount]model.PlayerID{host.ID, guest.ID}, seats)
}

func (s *ControllerSuite) TestJoinFullLobbyAsSpectator() {
	lobby, _, _ := s.seatedLobby()

	member, err := s.controller.JoinLobby(s.ctx, lobby.Code, s.createPlayer("player-2", "Third"))
	s.Require().NoError(err)
	s.Equal(model.RoleSpectator, member.Role)
}

func (s *ControllerSuite) TestJoinLobbyDuringGameAsSpectator() {
	lobby, host, _ := s.seatedLobby()
	_, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	member, err := s.controller.JoinLobby(s.ctx, lobby.Code, s.createPlayer("late", "Late"))
	s.Require().NoError(err)
	s.Equal(model.RoleSpectator, member.Role)
}

func (s *ControllerSuite) TestJoinLobbyPublishesEvent() {
	lobby, _, guest := s.seatedLobby()

	s.Require().Len(s.events.events, 1)
	event := s.events.events[0]
	s.Equal(model.EventPlayerJoined, event.Type)
	s.Equal(lobby.Code, event.LobbyCode)
	s.Equal(guest.ID, event.PlayerID)
	s.Require().NotNil(event.Member)
	s.Equal(model.RolePlayer, event.Member.Role)
}

func (s *ControllerSuite) TestJoinLobbyFailsIfAlreadyMember() {
	lobby, host := s.createLobby()

	_, err := s.controller.JoinLobby(s.ctx, lobby.Code, host)
	s.ErrorIs(err, model.ErrAlreadyInLobby)
}

func (s *ControllerSuite) TestJoinLobbyFailsIfNotFound() {
	_, err := s.controller.JoinLobby(s.ctx, "NOTFOUND", s.createPlayer("player-1", "Player"))
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

// LeaveLobby tests

func (s *ControllerSuite) TestLeaveLobbySucceeds() {
	lobby, _, guest := s.seatedLobby()

	err := s.controller.LeaveLobby(s.ctx, lobby.Code, guest.ID)
	s.Require().NoError(err)

	updated, _ := s.controller.GetLobby(s.ctx, lobby.Code)
	s.Len(updated.Members, 1)
	s.Nil(updated.GetMember(guest.ID))

	last := s.events.events[len(s.events.events)-1]
	s.Equal(model.EventPlayerLeft, last.Type)
	s.Equal(guest.ID, last.PlayerID)
}

func (s *ControllerSuite) TestLeaveLobbyDeletesEmptyLobby() {
	lobby, host := s.createLobby()

	err := s.controller.LeaveLobby(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	_, err = s.controller.GetLobby(s.ctx, lobby.Code)
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *ControllerSuite) TestOnClosedRunsOnlyWhenLobbyDeleted() {
	var closed []model.LobbyCode
	s.controller.OnClosed(func(code model.LobbyCode) { closed = append(closed, code) })
	lobby, host, guest := s.seatedLobby()

	s.Require().NoError(s.controller.LeaveLobby(s.ctx, lobby.Code, guest.ID))
	s.Empty(closed)

	s.Require().NoError(s.controller.LeaveLobby(s.ctx, lobby.Code, host.ID))
	s.Equal([]model.LobbyCode{lobby.Code}, closed)
}

func (s *ControllerSuite) TestLeaveLobbyTransfersHost() {
	lobby, host, guest := s.seatedLobby()

	err := s.controller.LeaveLobby(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	updated, _ := s.controller.GetLobby(s.ctx, lobby.Code)
	s.True(updated.Members[0].IsHost)
	s.Equal(guest.ID, updated.Members[0].Player.ID)
}

func (s *ControllerSuite) TestLeaveLobbyFailsIfNotMember() {
	lobby, _ := s.createLobby()

	err := s.controller.LeaveLobby(s.ctx, lobby.Code, "nonexistent")
	s.ErrorIs(err, model.ErrNotInLobby)
}

func (s *ControllerSuite) TestLeavingRunningSessionForfeits() {
	lobby, host, guest := s.seatedLobby()
	_, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)
	s.clock.Advance(5 * time.Second)

	err = s.controller.LeaveLobby(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	session, err := s.gameController.GetSession(s.ctx, lobby.Code)
	s.Require().NoError(err)
	s.Equal(model.SessionFinished, session.Status)
	s.Equal(guest.ID, session.Winner)
	s.Equal(model.EndReasonForfeit, session.EndReason)

	updated, err := s.controller.GetLobby(s.ctx, lobby.Code)
	s.Require().NoError(err)
	s.Equal(model.LobbyStateFinished, updated.State)
	s.Len(updated.Members, 1)
}

func (s *ControllerSuite) TestLastMemberLeavingDiscardsSession() {
	lobby, host, guest := s.seatedLobby()
	_, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.controller.LeaveLobby(s.ctx, lobby.Code, host.ID))
	s.Require().NoError(s.controller.LeaveLobby(s.ctx, lobby.Code, guest.ID))

	_, err = s.gameController.GetSession(s.ctx, lobby.Code)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// SetRole tests

func (s *ControllerSuite) TestSetRoleSucceeds() {
	lobby, _, guest := s.seatedLobby()

	err := s.controller.SetRole(s.ctx, lobby.Code, guest.ID, model.RoleSpectator)
	s.Require().NoError(err)

	updated, _ := s.controller.GetLobby(s.ctx, lobby.Code)
	s.Equal(model.RoleSpectator, updated.GetMember(guest.ID).Role)
}

func (s *ControllerSuite) TestSetRoleFailsWhenSeatsTaken() {
	lobby, _, _ := s.seatedLobby()
	third := s.createPlayer("player-2", "Third")
	_, err := s.controller.JoinLobby(s.ctx, lobby.Code, third)
	s.Require().NoError(err)

	err = s.controller.SetRole(s.ctx, lobby.Code, third.ID, model.RolePlayer)
	s.ErrorIs(err, model.ErrLobbyFull)
}

func (s *ControllerSuite) TestSetRoleFailsDuringGame() {
	lobby, host, guest := s.seatedLobby()
	_, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	err = s.controller.SetRole(s.ctx, lobby.Code, guest.ID, model.RoleSpectator)
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ControllerSuite) TestSetRoleFailsIfNotMember() {
	lobby, _ := s.createLobby()

	err := s.controller.SetRole(s.ctx, lobby.Code, "nonexistent", model.RoleSpectator)
	s.ErrorIs(err, model.ErrNotInLobby)
}

// TransferHost tests

func (s *ControllerSuite) TestTransferHostSucceeds() {
	lobby, host, guest := s.seatedLobby()

	err := s.controller.TransferHost(s.ctx, lobby.Code, host.ID, guest.ID)
	s.Require().NoError(err)

	updated, _ := s.controller.GetLobby(s.ctx, lobby.Code)
	s.False(updated.GetMember(host.ID).IsHost)
	s.True(updated.GetMember(guest.ID).IsHost)
}

func (s *ControllerSuite) TestTransferHostFailsIfNotHost() {
	lobby, host, guest := s.seatedLobby()

	err := s.controller.TransferHost(s.ctx, lobby.Code, guest.ID, host.ID)
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *ControllerSuite) TestTransferHostFailsIfTargetNotInLobby() {
	lobby, host := s.createLobby()

	err := s.controller.TransferHost(s.ctx, lobby.Code, host.ID, "nonexistent")
	s.ErrorIs(err, model.ErrNotInLobby)
}

// UpdateConfig tests

func (s *ControllerSuite) TestUpdateConfigSucceeds() {
	lobby, host := s.createLobby()
	clockValue := 90 * time.Second
	rule := model.WordRule{Kind: model.RuleStartsWith, Text: " GL "}

	updated, err := s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{
		StartingClock: &clockValue,
		Rule:          &rule,
	})
	s.Require().NoError(err)
	s.Equal(90*time.Second, updated.Config.StartingClock)
	s.Equal(model.WordRule{Kind: model.RuleStartsWith, Text: "gl"}, updated.Config.Rule)
}

func (s *ControllerSuite) TestUpdateConfigPartial() {
	lobby, host := s.createLobby()
	rule := model.WordRule{Kind: model.RuleMinLength, Length: 4}

	updated, err := s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{Rule: &rule})
	s.Require().NoError(err)
	s.Equal(model.DefaultStartingClock, updated.Config.StartingClock)
	s.Equal(4, updated.Config.Rule.Length)
}

func (s *ControllerSuite) TestUpdateConfigValidation() {
	lobby, host := s.createLobby()

	tooShort := time.Second
	_, err := s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{StartingClock: &tooShort})
	s.ErrorIs(err, model.ErrInvalidConfig)

	tooLong := 2 * time.Hour
	_, err = s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{StartingClock: &tooLong})
	s.ErrorIs(err, model.ErrInvalidConfig)

	rule := model.WordRule{Kind: model.RuleIncludes}
	_, err = s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{Rule: &rule})
	s.ErrorIs(err, model.ErrInvalidRule)
}

func (s *ControllerSuite) TestUpdateConfigFailsIfNotHost() {
	lobby, _, guest := s.seatedLobby()

	_, err := s.controller.UpdateConfig(s.ctx, lobby.Code, guest.ID, ConfigUpdate{})
	s.ErrorIs(err, model.ErrNotHost)
}

func (s *ControllerSuite) TestUpdateConfigFailsDuringGame() {
	lobby, host, _ := s.seatedLobby()
	_, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)

	_, err = s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{})
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ControllerSuite) TestConfiguredClockReachesSession() {
	lobby, host, _ := s.seatedLobby()
	clockValue := 30 * time.Second
	_, err := s.controller.UpdateConfig(s.ctx, lobby.Code, host.ID, ConfigUpdate{StartingClock: &clockValue})
	s.Require().NoError(err)

	session, err := s.gameController.InitSession(s.ctx, lobby.Code, host.ID)
	s.Require().NoError(err)
	s.Equal(30*time.Second, session.Clocks[0])
	s.Equal(30*time.Second, session.Clocks[1])
}
