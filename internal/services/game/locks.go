package game

import (
	"sync"

	"github.com/mcoot/wordchain-go/internal/model"
)

// lobbyLocks serializes writes to one session within this process.
// An entry lives only while someone holds or waits for it.
type lobbyLocks struct {
	mu    sync.Mutex
	locks map[model.LobbyCode]*lobbyLock
}

type lobbyLock struct {
	mu   sync.Mutex
	refs int
}

func newLobbyLocks() *lobbyLocks {
	return &lobbyLocks{locks: make(map[model.LobbyCode]*lobbyLock)}
}

// lock blocks until the lobby is free and returns its unlock func
func (l *lobbyLocks) lock(code model.LobbyCode) func() {
	l.mu.Lock()
	entry, ok := l.locks[code]
	if !ok {
		entry = &lobbyLock{}
		l.locks[code] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.release(code, entry)
	}
}

func (l *lobbyLocks) release(code model.LobbyCode, entry *lobbyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, code)
	}
}
