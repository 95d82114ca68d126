// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// ContractSuite exercises the session, rating and dictionary operations of a backend.
// Run it with suite.Run(t, storagetest.NewContractSuite(newStorage)).
type ContractSuite struct {
	suite.Suite
	newStorage func() storage.Storage
	storage    storage.Storage
	ctx        context.Context
	now        time.Time
}

// NewContractSuite creates a suite that builds a fresh backend per test
func NewContractSuite(newStorage func() storage.Storage) *ContractSuite {
	return &ContractSuite{newStorage: newStorage}
}

func (s *ContractSuite) SetupTest() {
	s.storage = s.newStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ContractSuite) newSession(code model.LobbyCode) *model.Session {
	return model.NewSession(code, [model.SeatCount]model.PlayerID{"p1", "p2"}, model.DefaultLobbyConfig(), s.now)
}

func (s *ContractSuite) createSession(code model.LobbyCode) *model.Session {
	session := s.newSession(code)
	created, err := s.storage.CreateSession(s.ctx, session)
	s.Require().NoError(err)
	s.Require().True(created)
	return session
}

func move(code model.LobbyCode, seq int, word string, player model.PlayerID) *model.Move {
	return &model.Move{
		ID:        word + "-id",
		LobbyCode: code,
		Seq:       seq,
		Word:      word,
		PlayerID:  player,
		IsValid:   true,
	}
}

// Session tests

func (s *ContractSuite) TestCreateSessionStartsAtVersionOne() {
	session := s.createSession("ABCD")
	s.Equal(int64(1), session.Version)

	retrieved, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(int64(1), retrieved.Version)
	s.Equal(model.SessionActive, retrieved.Status)
	s.Equal(model.DefaultStartingClock, retrieved.Clocks[0])
	s.True(retrieved.GameStartedAt.Equal(s.now))
}

func (s *ContractSuite) TestCreateSessionIsIdempotent() {
	s.createSession("ABCD")

	second := s.newSession("ABCD")
	second.Clocks[0] = time.Second
	created, err := s.storage.CreateSession(s.ctx, second)
	s.Require().NoError(err)
	s.False(created)

	retrieved, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.DefaultStartingClock, retrieved.Clocks[0])
}

func (s *ContractSuite) TestGetSessionNotFound() {
	_, err := s.storage.GetSession(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ContractSuite) TestUpdateSessionBumpsVersion() {
	session := s.createSession("ABCD")
	session.Clocks[0] = 100 * time.Second

	err := s.storage.UpdateSession(s.ctx, session, 1)
	s.Require().NoError(err)
	s.Equal(int64(2), session.Version)

	retrieved, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(int64(2), retrieved.Version)
	s.Equal(100*time.Second, retrieved.Clocks[0])
}

func (s *ContractSuite) TestUpdateSessionStaleVersionConflicts() {
	session := s.createSession("ABCD")
	s.Require().NoError(s.storage.UpdateSession(s.ctx, session, 1))

	stale := s.newSession("ABCD")
	stale.Clocks[0] = time.Second
	err := s.storage.UpdateSession(s.ctx, stale, 1)
	s.ErrorIs(err, model.ErrSessionConflict)

	retrieved, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.DefaultStartingClock, retrieved.Clocks[0])
}

func (s *ContractSuite) TestUpdateSessionNotFound() {
	err := s.storage.UpdateSession(s.ctx, s.newSession("NOPE"), 1)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ContractSuite) TestCommitMoveAppendsInOrder() {
	session := s.createSession("ABCD")

	s.Require().NoError(s.storage.CommitMove(s.ctx, session, move("ABCD", 1, "glass", "p1"), 1))
	s.Require().NoError(s.storage.CommitMove(s.ctx, session, move("ABCD", 2, "grass", "p2"), 2))
	s.Equal(int64(3), session.Version)

	moves, err := s.storage.GetMoves(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Require().Len(moves, 2)
	s.Equal("glass", moves[0].Word)
	s.Equal("grass", moves[1].Word)
	s.Equal(2, moves[1].Seq)
}

func (s *ContractSuite) TestCommitMoveRejectsDuplicateWord() {
	session := s.createSession("ABCD")
	invalid := move("ABCD", 1, "glass", "p1")
	invalid.IsValid = false
	s.Require().NoError(s.storage.CommitMove(s.ctx, session, invalid, 1))

	err := s.storage.CommitMove(s.ctx, session, move("ABCD", 2, "glass", "p1"), 2)
	s.ErrorIs(err, model.ErrDuplicateWord)

	moves, err := s.storage.GetMoves(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Len(moves, 1)
}

func (s *ContractSuite) TestCommitMoveStaleVersionWritesNothing() {
	session := s.createSession("ABCD")
	s.Require().NoError(s.storage.UpdateSession(s.ctx, session, 1))

	err := s.storage.CommitMove(s.ctx, session, move("ABCD", 1, "glass", "p1"), 1)
	s.ErrorIs(err, model.ErrSessionConflict)

	moves, err := s.storage.GetMoves(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Empty(moves)
}

func (s *ContractSuite) TestConcurrentWritersOnlyOneWins() {
	s.createSession("ABCD")

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := s.newSession("ABCD")
			results <- s.storage.UpdateSession(s.ctx, session, 1)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrSessionConflict)
		}
	}
	s.Equal(1, succeeded)
}

func (s *ContractSuite) TestListActiveSessionsSkipsFinished() {
	s.createSession("AAAA")
	finished := s.createSession("BBBB")
	s.Require().NoError(finished.Forfeit("p1", s.now))
	s.Require().NoError(s.storage.UpdateSession(s.ctx, finished, 1))

	codes, err := s.storage.ListActiveSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.LobbyCode{"AAAA"}, codes)
}

func (s *ContractSuite) TestDeleteSession() {
	s.createSession("ABCD")
	s.Require().NoError(s.storage.DeleteSession(s.ctx, "ABCD"))

	_, err := s.storage.GetSession(s.ctx, "ABCD")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// Rating tests

func (s *ContractSuite) seedPlayers() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1", DisplayName: "Alice", EloRating: 1200}))
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p2", DisplayName: "Bob", EloRating: 1200}))
}

func (s *ContractSuite) finishedSession() *model.Session {
	session := s.createSession("ABCD")
	s.Require().NoError(session.Forfeit("p2", s.now))
	s.Require().NoError(s.storage.UpdateSession(s.ctx, session, 1))
	return session
}

func (s *ContractSuite) TestApplyRating() {
	s.seedPlayers()
	session := s.finishedSession()

	change, err := s.storage.ApplyRating(s.ctx, session, 2, storage.RatingUpdate{Winner: "p1", Loser: "p2", Delta: 32})
	s.Require().NoError(err)
	s.Equal(1232, change.WinnerRating)
	s.Equal(1168, change.LoserRating)
	s.True(session.EloUpdated)

	winner, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1232, winner.EloRating)
	s.Equal(1, winner.GamesPlayed)

	loser, err := s.storage.GetPlayer(s.ctx, "p2")
	s.Require().NoError(err)
	s.Equal(1168, loser.EloRating)
	s.Equal(1, loser.GamesPlayed)

	stored, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.True(stored.EloUpdated)
}

func (s *ContractSuite) TestApplyRatingTwiceConflicts() {
	s.seedPlayers()
	session := s.finishedSession()
	update := storage.RatingUpdate{Winner: "p1", Loser: "p2", Delta: 32}

	_, err := s.storage.ApplyRating(s.ctx, session, 2, update)
	s.Require().NoError(err)

	_, err = s.storage.ApplyRating(s.ctx, session, session.Version, update)
	s.ErrorIs(err, model.ErrRatingConflict)

	winner, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(1232, winner.EloRating)
}

func (s *ContractSuite) TestApplyRatingStaleVersionConflicts() {
	s.seedPlayers()
	session := s.finishedSession()

	_, err := s.storage.ApplyRating(s.ctx, session, 1, storage.RatingUpdate{Winner: "p1", Loser: "p2", Delta: 32})
	s.ErrorIs(err, model.ErrRatingConflict)
}

func (s *ContractSuite) TestTopRatings() {
	s.seedPlayers()
	session := s.finishedSession()
	_, err := s.storage.ApplyRating(s.ctx, session, 2, storage.RatingUpdate{Winner: "p1", Loser: "p2", Delta: 32})
	s.Require().NoError(err)

	entries, err := s.storage.TopRatings(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(model.PlayerID("p1"), entries[0].PlayerID)
	s.Equal(1, entries[0].Rank)
	s.Equal("Alice", entries[0].DisplayName)
	s.Equal(1232, entries[0].EloRating)
	s.Equal(model.PlayerID("p2"), entries[1].PlayerID)

	limited, err := s.storage.TopRatings(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *ContractSuite) TestTopRatingsEmpty() {
	entries, err := s.storage.TopRatings(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

// Dictionary tests

func (s *ContractSuite) TestSaveAndGetDictionaryEntries() {
	entries := []model.DictionaryEntry{
		{Word: "glass", PartOfSpeech: "noun", Definition: "a hard transparent material"},
		{Word: "run", PartOfSpeech: "verb"},
	}
	s.Require().NoError(s.storage.SaveDictionaryEntries(s.ctx, entries))

	retrieved, err := s.storage.GetDictionaryEntries(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch(entries, retrieved)
}

func (s *ContractSuite) TestGetDictionaryEntriesNotLoaded() {
	_, err := s.storage.GetDictionaryEntries(s.ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *ContractSuite) TestSaveDictionaryEntriesReplacesExisting() {
	s.Require().NoError(s.storage.SaveDictionaryEntries(s.ctx, []model.DictionaryEntry{{Word: "apple"}}))
	s.Require().NoError(s.storage.SaveDictionaryEntries(s.ctx, []model.DictionaryEntry{{Word: "cherry"}, {Word: "date"}}))

	retrieved, err := s.storage.GetDictionaryEntries(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.DictionaryEntry{{Word: "cherry"}, {Word: "date"}}, retrieved)
}

// Auth token tests

func (s *ContractSuite) TestAuthTokenRoundTrip() {
	token := &model.AuthToken{
		Token:     "sess_abc",
		PlayerID:  "p1",
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(time.Hour),
	}
	s.Require().NoError(s.storage.SaveAuthToken(s.ctx, token))

	got, err := s.storage.GetAuthToken(s.ctx, "sess_abc")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), got.PlayerID)
	s.True(token.ExpiresAt.Equal(got.ExpiresAt))

	s.Require().NoError(s.storage.DeleteAuthToken(s.ctx, "sess_abc"))
	_, err = s.storage.GetAuthToken(s.ctx, "sess_abc")
	s.ErrorIs(err, model.ErrAuthTokenNotFound)
}

func (s *ContractSuite) TestAuthTokenNotFound() {
	_, err := s.storage.GetAuthToken(s.ctx, "missing")
	s.ErrorIs(err, model.ErrAuthTokenNotFound)
}

// Player tests

func (s *ContractSuite) TestBotPlayerRoundTrip() {
	bot := &model.Player{
		ID:          "bot-1",
		DisplayName: "Bot 1",
		IsGuest:     true,
		IsBot:       true,
		BotStrategy: model.BotStrategyGreedy,
		EloRating:   model.DefaultEloRating,
		CreatedAt:   s.now,
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, bot))

	got, err := s.storage.GetPlayer(s.ctx, "bot-1")
	s.Require().NoError(err)
	s.True(got.IsBot)
	s.Equal(model.BotStrategyGreedy, got.BotStrategy)
	s.Equal(model.DefaultEloRating, got.EloRating)

	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "bot-1"))
	_, err = s.storage.GetPlayer(s.ctx, "bot-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ContractSuite) TestRegisteredPlayerLookups() {
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, &model.RegisteredPlayer{
		PlayerID:     "p1",
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    s.now,
	}))

	byID, err := s.storage.GetRegisteredPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), byName.PlayerID)

	_, err = s.storage.GetRegisteredPlayerByUsername(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Lobby tests

func (s *ContractSuite) TestLobbyLifecycle() {
	lobby := &model.Lobby{
		Code:      "ABC123",
		State:     model.LobbyStateWaiting,
		Config:    model.DefaultLobbyConfig(),
		CreatedAt: s.now,
	}
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	got, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.LobbyStateWaiting, got.State)
	s.Equal(model.DefaultStartingClock, got.Config.StartingClock)

	exists, err := s.storage.LobbyExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "ABC123"))
	_, err = s.storage.GetLobby(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrLobbyNotFound)

	exists, err = s.storage.LobbyExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)
}
