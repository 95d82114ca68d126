package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wordchain-go/internal/model"
)

// waiters returns how many callers hold or wait for the lobby's lock
func (l *lobbyLocks) waiters(code model.LobbyCode) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.locks[code]; ok {
		return entry.refs
	}
	return 0
}

func TestLobbyLocksSerializeQueuedWriters(t *testing.T) {
	locks := newLobbyLocks()
	unlock := locks.lock("ABCD")

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock("ABCD")
			defer release()
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}()
	}

	require.Eventually(t, func() bool { return locks.waiters("ABCD") == 4 }, time.Second, time.Millisecond)

	// The holder finishing must hand the same lock to the queued writers
	unlock()
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Zero(t, locks.waiters("ABCD"))
	assert.Empty(t, locks.locks)
}

func TestLobbyLocksIndependentPerLobby(t *testing.T) {
	locks := newLobbyLocks()
	unlockA := locks.lock("ABCD")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		locks.lock("WXYZ")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another lobby blocked")
	}
	assert.Equal(t, 1, locks.waiters("ABCD"))
	assert.Zero(t, locks.waiters("WXYZ"))
}
