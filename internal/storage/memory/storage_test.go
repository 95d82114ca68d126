package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/storage"
	"github.com/mcoot/wordchain-go/internal/storage/storagetest"
)

func TestStorageContract(t *testing.T) {
	suite.Run(t, storagetest.NewContractSuite(func() storage.Storage { return New() }))
}

// IsolationSuite checks that callers never share state with the store
type IsolationSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	session *model.Session
}

func TestIsolationSuite(t *testing.T) {
	suite.Run(t, new(IsolationSuite))
}

func (s *IsolationSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.session = model.NewSession("ABCD", [model.SeatCount]model.PlayerID{"p1", "p2"}, model.DefaultLobbyConfig(), time.Now())
	created, err := s.storage.CreateSession(s.ctx, s.session)
	s.Require().NoError(err)
	s.Require().True(created)
}

func (s *IsolationSuite) TestGetSessionReturnsCopy() {
	got, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	got.Clocks[0] = 0
	got.CurrentTurn = 1

	again, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.DefaultStartingClock, again.Clocks[0])
	s.Equal(0, again.CurrentTurn)
}

func (s *IsolationSuite) TestCallerSessionNotAliased() {
	// The caller keeps mutating its own value after a write
	s.session.Clocks[1] = time.Second

	got, err := s.storage.GetSession(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal(model.DefaultStartingClock, got.Clocks[1])
}

func (s *IsolationSuite) TestGetMovesReturnsCopy() {
	s.Require().NoError(s.storage.CommitMove(s.ctx, s.session, &model.Move{Seq: 1, Word: "glass", PlayerID: "p1"}, 1))

	moves, err := s.storage.GetMoves(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Require().Len(moves, 1)
	moves[0].Word = "grass"

	again, err := s.storage.GetMoves(s.ctx, "ABCD")
	s.Require().NoError(err)
	s.Equal("glass", again[0].Word)
}

func (s *IsolationSuite) TestGetMovesUnknownSession() {
	_, err := s.storage.GetMoves(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrSessionNotFound)
}
