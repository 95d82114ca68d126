package dictionary

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
	"github.com/mcoot/wordchain-go/internal/storage"
)

// Service is a local lexicon backed by a word file or storage
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]model.DictionaryEntry
	loaded  bool
}

// Ensure Service implements the lexicon gateway
var _ lexicon.Gateway = (*Service)(nil)

// New creates a new DictionaryService
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		entries: make(map[string]model.DictionaryEntry),
	}
}

// LoadFromStorage loads dictionary entries from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	entries, err := s.storage.GetDictionaryEntries(ctx)
	if err != nil {
		return err
	}
	s.load(entries)
	return nil
}

// LoadFromFile loads entries from a file and saves them to storage.
// Each line is a word, optionally followed by tab-separated part of
// speech, definition and phonetics. Blank lines and lines starting
// with # are skipped.
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var entries []model.DictionaryEntry
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		entry, err := parseLine(text)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Save to storage for future use
	if err := s.storage.SaveDictionaryEntries(ctx, entries); err != nil {
		return err
	}

	s.load(entries)
	s.logger.Info("dictionary loaded",
		slog.String("path", path),
		slog.Int("word_count", len(entries)),
	)
	return nil
}

func parseLine(text string) (model.DictionaryEntry, error) {
	fields := strings.Split(text, "\t")
	for len(fields) < 4 {
		fields = append(fields, "")
	}
	word := model.NormalizeWord(fields[0])
	if !model.IsWellFormedWord(word) {
		return model.DictionaryEntry{}, fmt.Errorf("invalid word %q", fields[0])
	}
	return model.DictionaryEntry{
		Word:         word,
		PartOfSpeech: strings.ToLower(strings.TrimSpace(fields[1])),
		Definition:   strings.TrimSpace(fields[2]),
		Phonetics:    strings.TrimSpace(fields[3]),
	}, nil
}

// LoadWords directly loads bare words with no metadata (useful for testing)
func (s *Service) LoadWords(words []string) {
	entries := make([]model.DictionaryEntry, 0, len(words))
	for _, w := range words {
		entries = append(entries, model.DictionaryEntry{Word: w})
	}
	s.load(entries)
}

// LoadEntries directly loads entries (useful for testing)
func (s *Service) LoadEntries(entries []model.DictionaryEntry) {
	s.load(entries)
}

func (s *Service) load(entries []model.DictionaryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]model.DictionaryEntry, len(entries))
	for _, e := range entries {
		// Store lowercase for case-insensitive matching
		e.Word = model.NormalizeWord(e.Word)
		s.entries[e.Word] = e
	}
	s.loaded = true
}

// Lookup implements lexicon.Gateway. Fails until a dictionary is loaded.
func (s *Service) Lookup(ctx context.Context, word string) (lexicon.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return lexicon.Entry{}, model.ErrDictionaryNotLoaded
	}

	e, ok := s.entries[model.NormalizeWord(word)]
	if !ok {
		return lexicon.Entry{Found: false}, nil
	}
	return lexicon.FromDictionary(e), nil
}

// Entries returns every loaded entry sorted by word
func (s *Service) Entries() []model.DictionaryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.DictionaryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Word < entries[j].Word })
	return entries
}

// IsValidWord checks if a word exists in the dictionary
func (s *Service) IsValidWord(word string) bool {
	entry, err := s.Lookup(context.Background(), word)
	return err == nil && entry.Found
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
