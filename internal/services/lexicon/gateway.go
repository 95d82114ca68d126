// Package lexicon defines how the game asks whether a word exists and
// what it means, independent of where the answer comes from.
package lexicon

import (
	"context"
	"strings"

	"github.com/mcoot/wordchain-go/internal/model"
)

// Entry is the lexicon's answer for one word. PartOfSpeech is the primary
// sense; PartsOfSpeech lists every sense the lexicon knows, in order.
type Entry struct {
	Found         bool
	PartOfSpeech  string
	PartsOfSpeech []string
	Definitions   []string
	Phonetics     string
}

// HasPartOfSpeech reports whether any sense of the word is pos
func (e Entry) HasPartOfSpeech(pos string) bool {
	if strings.EqualFold(e.PartOfSpeech, pos) {
		return true
	}
	for _, p := range e.PartsOfSpeech {
		if strings.EqualFold(p, pos) {
			return true
		}
	}
	return false
}

// Metadata returns what gets stored on a move, or nil for unknown words
func (e Entry) Metadata() *model.LexicalMetadata {
	if !e.Found {
		return nil
	}
	meta := &model.LexicalMetadata{
		PartOfSpeech: e.PartOfSpeech,
		Phonetics:    e.Phonetics,
	}
	if len(e.Definitions) > 0 {
		meta.Definition = e.Definitions[0]
	}
	return meta
}

// FromDictionary converts a stored dictionary entry into a found Entry
func FromDictionary(e model.DictionaryEntry) Entry {
	entry := Entry{
		Found:        true,
		PartOfSpeech: e.PartOfSpeech,
		Phonetics:    e.Phonetics,
	}
	if e.Definition != "" {
		entry.Definitions = []string{e.Definition}
	}
	return entry
}

// Gateway looks words up. An error means the lexicon could not answer;
// an unknown word is a successful lookup with Found false.
type Gateway interface {
	Lookup(ctx context.Context, word string) (Entry, error)
}

// Accepts reports whether a found word also satisfies the lobby's word rule
func Accepts(rule model.WordRule, word string, entry Entry) bool {
	if !entry.Found {
		return false
	}
	rule = rule.Normalized()
	word = model.NormalizeWord(word)

	switch rule.Kind {
	case model.RuleAny:
		return true
	case model.RulePartOfSpeech:
		return entry.HasPartOfSpeech(rule.Text)
	case model.RuleIncludes:
		return strings.Contains(word, rule.Text)
	case model.RuleStartsWith:
		return strings.HasPrefix(word, rule.Text)
	case model.RuleMinLength:
		return len([]rune(word)) >= rule.Length
	default:
		return false
	}
}
