// Package replica keeps a client-side read model of a session in step with the
// server's event stream. The server stays the source of truth: the model is
// rebuilt from snapshots and applies events idempotently, so redelivered or
// reordered events leave it unchanged.
package replica

import (
	"sort"
	"sync"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
)

// ReadModel is one observer's view of a lobby's session
type ReadModel struct {
	code  model.LobbyCode
	clock *DisplayClock

	mu      sync.RWMutex
	session *model.Session
	moves   []model.Move
	words   map[string]bool
	seqs    map[int]bool
	rating  *model.RatingChange
	stale   bool
}

// New creates an empty read model for a lobby. It needs a snapshot before events apply.
func New(code model.LobbyCode, c clock.Clock) *ReadModel {
	return &ReadModel{
		code:  code,
		clock: NewDisplayClock(c),
		words: make(map[string]bool),
		seqs:  make(map[int]bool),
		stale: true,
	}
}

// Reset replaces the model with an authoritative snapshot
func (m *ReadModel) Reset(snapshot *model.SessionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := snapshot.Session
	m.session = &session
	m.moves = nil
	m.words = make(map[string]bool)
	m.seqs = make(map[int]bool)
	m.rating = nil
	for _, mv := range snapshot.Moves {
		m.insertMove(mv)
	}
	m.stale = false
	m.clock.Sync(session)
}

// Apply folds one event into the model and reports whether anything changed.
// A gap in Seq marks the model stale; callers should fetch a snapshot and Reset.
func (m *ReadModel) Apply(event model.Event) bool {
	if event.LobbyCode != m.code {
		return false
	}

	m.mu.Lock()
	if m.session == nil {
		m.stale = true
		m.mu.Unlock()
		return false
	}
	if event.Seq > m.session.Version+1 {
		m.stale = true
	}
	m.mu.Unlock()

	switch event.Type {
	case model.EventStateChanged, model.EventSessionEnded:
		if event.Session == nil {
			return false
		}
		return m.ApplySession(*event.Session)
	case model.EventMoveInserted:
		if event.Move == nil {
			return false
		}
		return m.ApplyMove(*event.Move)
	case model.EventRatingUpdated:
		if event.Rating == nil {
			return false
		}
		return m.applyRating(*event.Rating)
	default:
		return false
	}
}

// ApplySession accepts a session state unless it is older than the one held.
// Equal versions are duplicates and change nothing.
func (m *ReadModel) ApplySession(session model.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		if session.Version <= m.session.Version {
			return false
		}
		if session.LastMoveAt.Before(m.session.LastMoveAt) {
			return false
		}
	}
	m.session = &session
	m.clock.Sync(session)
	return true
}

// ApplyMove appends a move if it is new and reports whether it was.
// Logic that must run once per move (sounds, notifications) keys off the result.
func (m *ReadModel) ApplyMove(move model.Move) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertMove(move)
}

func (m *ReadModel) insertMove(move model.Move) bool {
	word := model.NormalizeWord(move.Word)
	if m.words[word] || (move.Seq > 0 && m.seqs[move.Seq]) {
		return false
	}
	m.words[word] = true
	if move.Seq > 0 {
		m.seqs[move.Seq] = true
	}

	m.moves = append(m.moves, move)
	sort.SliceStable(m.moves, func(i, j int) bool {
		if m.moves[i].Seq != m.moves[j].Seq {
			return m.moves[i].Seq < m.moves[j].Seq
		}
		return m.moves[i].CreatedAt.Before(m.moves[j].CreatedAt)
	})
	return true
}

func (m *ReadModel) applyRating(change model.RatingChange) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rating != nil && *m.rating == change {
		return false
	}
	m.rating = &change
	return true
}

// Session returns a copy of the current session state
func (m *ReadModel) Session() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

// Moves returns the move log ordered by Seq
func (m *ReadModel) Moves() []model.Move {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Move(nil), m.moves...)
}

// Scores derives each seat's score from the move log
func (m *ReadModel) Scores() [model.SeatCount]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return [model.SeatCount]int{}
	}
	return model.SessionScores(m.session, m.moves)
}

// Rating returns the rating change once the session has been rated
func (m *ReadModel) Rating() (model.RatingChange, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rating == nil {
		return model.RatingChange{}, false
	}
	return *m.rating, true
}

// Stale reports whether events were missed since the last snapshot
func (m *ReadModel) Stale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stale
}

// Clock returns the interpolated display clock
func (m *ReadModel) Clock() *DisplayClock {
	return m.clock
}
