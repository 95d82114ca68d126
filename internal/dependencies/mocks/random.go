package mocks

import (
	"sync"

	"github.com/mcoot/wordchain-go/internal/dependencies/random"
)

var _ random.Random = (*MockRandom)(nil)

// MockRandom replays queued values. Once a queue runs dry Intn returns 0
// and String returns "".
type MockRandom struct {
	mu      sync.Mutex
	ints    []int
	strings []string
}

func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pop(&r.ints)
}

func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pop(&r.strings)
}

// QueueIntn queues bot word indexes
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ints = append(r.ints, values...)
}

// QueueString queues lobby codes and bot IDs in the order they will be drawn
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, values...)
}

func pop[T any](queue *[]T) T {
	var zero T
	if len(*queue) == 0 {
		return zero
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
