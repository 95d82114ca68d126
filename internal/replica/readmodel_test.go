package replica

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
)

type ReadModelSuite struct {
	suite.Suite
	clock *clockwork.FakeClock
	model *ReadModel
	base  model.Session
}

func TestReadModelSuite(t *testing.T) {
	suite.Run(t, new(ReadModelSuite))
}

func (s *ReadModelSuite) SetupTest() {
	s.clock = clock.NewFake()
	s.model = New("ABCD", s.clock)

	lobbyCfg := model.DefaultLobbyConfig()
	s.base = *model.NewSession("ABCD", [model.SeatCount]model.PlayerID{"alice", "bob"}, lobbyCfg, s.clock.Now())
	s.base.Version = 1
}

func score(n int) *int { return &n }

func (s *ReadModelSuite) move(seq int, word string, player model.PlayerID, valid bool, points int) model.Move {
	mv := model.Move{
		ID:        word,
		LobbyCode: "ABCD",
		Seq:       seq,
		Word:      word,
		PlayerID:  player,
		CreatedAt: s.clock.Now().Add(time.Duration(seq) * time.Second),
		IsValid:   valid,
	}
	if valid {
		mv.Score = score(points)
	}
	return mv
}

func (s *ReadModelSuite) sessionAt(version int64, turn int) model.Session {
	session := s.base
	session.Version = version
	session.CurrentTurn = turn
	session.LastMoveAt = s.base.LastMoveAt.Add(time.Duration(version) * time.Second)
	return session
}

func (s *ReadModelSuite) reset(moves ...model.Move) {
	s.model.Reset(model.NewSnapshot(&s.base, moves))
}

func (s *ReadModelSuite) TestEventsIgnoredBeforeSnapshot() {
	session := s.sessionAt(2, 1)
	applied := s.model.Apply(model.Event{Type: model.EventStateChanged, LobbyCode: "ABCD", Seq: 2, Session: &session})

	s.False(applied)
	s.True(s.model.Stale())
	_, ok := s.model.Session()
	s.False(ok)
}

func (s *ReadModelSuite) TestResetRebuildsState() {
	s.reset(s.move(1, "glass", "alice", true, 34))

	session, ok := s.model.Session()
	s.Require().True(ok)
	s.Equal(int64(1), session.Version)
	s.Len(s.model.Moves(), 1)
	s.Equal([model.SeatCount]int{34, 0}, s.model.Scores())
	s.False(s.model.Stale())
}

func (s *ReadModelSuite) TestResetDiscardsPreviousState() {
	s.reset(s.move(1, "glass", "alice", true, 34))
	s.model.ApplyMove(s.move(2, "grass", "bob", true, 40))

	s.reset()

	s.Empty(s.model.Moves())
	s.True(s.model.ApplyMove(s.move(1, "glass", "alice", true, 34)))
}

func (s *ReadModelSuite) TestApplyMoveIsIdempotent() {
	s.reset()

	s.True(s.model.ApplyMove(s.move(1, "glass", "alice", true, 34)))
	s.False(s.model.ApplyMove(s.move(1, "glass", "alice", true, 34)))
	s.False(s.model.ApplyMove(s.move(5, "GLASS", "bob", false, 0)), "duplicate word regardless of case")
	s.False(s.model.ApplyMove(s.move(1, "other", "bob", false, 0)), "duplicate seq")

	s.Len(s.model.Moves(), 1)
}

func (s *ReadModelSuite) TestMovesOrderedBySeq() {
	s.reset()

	s.model.ApplyMove(s.move(3, "zebra", "alice", true, 10))
	s.model.ApplyMove(s.move(1, "glass", "alice", true, 34))
	s.model.ApplyMove(s.move(2, "quiz", "bob", false, 0))

	moves := s.model.Moves()
	s.Require().Len(moves, 3)
	s.Equal("glass", moves[0].Word)
	s.Equal("quiz", moves[1].Word)
	s.Equal("zebra", moves[2].Word)
	s.Equal([model.SeatCount]int{44, 0}, s.model.Scores())
}

func (s *ReadModelSuite) TestApplySessionRejectsOlderVersions() {
	s.reset()

	newer := s.sessionAt(3, 1)
	older := s.sessionAt(2, 0)

	s.True(s.model.ApplySession(newer))
	s.False(s.model.ApplySession(older))
	s.False(s.model.ApplySession(newer), "same version is a duplicate")

	session, _ := s.model.Session()
	s.Equal(int64(3), session.Version)
	s.Equal(1, session.CurrentTurn)
}

func (s *ReadModelSuite) TestApplySessionRejectsEarlierLastMove() {
	s.reset()

	s.True(s.model.ApplySession(s.sessionAt(3, 1)))

	rewound := s.sessionAt(4, 0)
	rewound.LastMoveAt = s.base.LastMoveAt
	s.False(s.model.ApplySession(rewound))
}

func (s *ReadModelSuite) TestApplyDispatchesByType() {
	s.reset()

	mv := s.move(1, "glass", "alice", true, 34)
	session := s.sessionAt(2, 1)

	s.True(s.model.Apply(model.Event{Type: model.EventMoveInserted, LobbyCode: "ABCD", Seq: 2, Move: &mv}))
	s.True(s.model.Apply(model.Event{Type: model.EventStateChanged, LobbyCode: "ABCD", Seq: 2, Session: &session}))

	// Redelivery changes nothing
	s.False(s.model.Apply(model.Event{Type: model.EventMoveInserted, LobbyCode: "ABCD", Seq: 2, Move: &mv}))
	s.False(s.model.Apply(model.Event{Type: model.EventStateChanged, LobbyCode: "ABCD", Seq: 2, Session: &session}))

	s.False(s.model.Stale())
	s.Equal([model.SeatCount]int{34, 0}, s.model.Scores())
}

func (s *ReadModelSuite) TestApplyIgnoresOtherLobbies() {
	s.reset()
	mv := s.move(1, "glass", "alice", true, 34)

	s.False(s.model.Apply(model.Event{Type: model.EventMoveInserted, LobbyCode: "OTHER", Seq: 2, Move: &mv}))
	s.Empty(s.model.Moves())
}

func (s *ReadModelSuite) TestApplyIgnoresLobbyEvents() {
	s.reset()

	s.False(s.model.Apply(model.Event{Type: model.EventPlayerJoined, LobbyCode: "ABCD"}))
	s.False(s.model.Stale())
}

func (s *ReadModelSuite) TestGapMarksStale() {
	s.reset()

	session := s.sessionAt(5, 1)
	s.True(s.model.Apply(model.Event{Type: model.EventStateChanged, LobbyCode: "ABCD", Seq: 5, Session: &session}))
	s.True(s.model.Stale())

	fresh := s.sessionAt(5, 1)
	s.model.Reset(model.NewSnapshot(&fresh, nil))
	s.False(s.model.Stale())
}

func (s *ReadModelSuite) TestRatingAppliedOnce() {
	s.reset()

	change := model.RatingChange{LobbyCode: "ABCD", Winner: "alice", Loser: "bob", Delta: 32, WinnerRating: 1232, LoserRating: 1168}
	s.True(s.model.Apply(model.Event{Type: model.EventRatingUpdated, LobbyCode: "ABCD", Seq: 2, Rating: &change}))
	s.False(s.model.Apply(model.Event{Type: model.EventRatingUpdated, LobbyCode: "ABCD", Seq: 2, Rating: &change}))

	got, ok := s.model.Rating()
	s.Require().True(ok)
	s.Equal(1232, got.WinnerRating)
}

func (s *ReadModelSuite) TestResetDiscardsRating() {
	s.reset()
	change := model.RatingChange{LobbyCode: "ABCD", Winner: "alice", Loser: "bob", Delta: 32, WinnerRating: 1232, LoserRating: 1168}
	s.Require().True(s.model.Apply(model.Event{Type: model.EventRatingUpdated, LobbyCode: "ABCD", Seq: 2, Rating: &change}))

	s.reset()

	_, ok := s.model.Rating()
	s.False(ok)
	s.True(s.model.Apply(model.Event{Type: model.EventRatingUpdated, LobbyCode: "ABCD", Seq: 2, Rating: &change}))
}

func (s *ReadModelSuite) TestSessionEndedStopsDisplayClock() {
	s.reset()
	s.True(s.model.Clock().Running())

	ended := s.sessionAt(2, 0)
	ended.Finish("bob", model.EndReasonForfeit, s.clock.Now())
	s.True(s.model.Apply(model.Event{Type: model.EventSessionEnded, LobbyCode: "ABCD", Seq: 2, Session: &ended}))

	s.False(s.model.Clock().Running())
}
