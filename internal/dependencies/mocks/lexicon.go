package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
)

// MockLexicon is a mock implementation of lexicon.Gateway for testing
type MockLexicon struct {
	mu sync.Mutex

	// Entries maps normalized words to their lexicon entry
	Entries map[string]lexicon.Entry

	// Errors is a queue of errors returned before any lookup succeeds
	Errors []error

	// Lookups records every word looked up, in order
	Lookups []string
}

// Ensure MockLexicon implements Gateway
var _ lexicon.Gateway = (*MockLexicon)(nil)

// NewMockLexicon creates a MockLexicon that knows the given words as nouns
func NewMockLexicon(words ...string) *MockLexicon {
	m := &MockLexicon{Entries: make(map[string]lexicon.Entry)}
	for _, w := range words {
		m.Add(w, "noun")
	}
	return m
}

// Add registers a word with the given part of speech
func (m *MockLexicon) Add(word, partOfSpeech string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[model.NormalizeWord(word)] = lexicon.Entry{
		Found:        true,
		PartOfSpeech: partOfSpeech,
		Definitions:  []string{"definition of " + word},
	}
}

// QueueError makes the next lookups fail with the given errors
func (m *MockLexicon) QueueError(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, errs...)
}

// Lookup returns the next queued error, or the registered entry
func (m *MockLexicon) Lookup(ctx context.Context, word string) (lexicon.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, word)
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		return lexicon.Entry{}, err
	}
	return m.Entries[model.NormalizeWord(word)], nil
}

// LookupCount returns how many lookups were made
func (m *MockLexicon) LookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Lookups)
}
