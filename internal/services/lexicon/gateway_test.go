package lexicon_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordchain-go/internal/dependencies/mocks"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/lexicon"
	"github.com/mcoot/wordchain-go/internal/testutil"
)

func TestAccepts(t *testing.T) {
	noun := lexicon.Entry{Found: true, PartOfSpeech: "noun"}
	nounOrVerb := lexicon.Entry{Found: true, PartOfSpeech: "noun", PartsOfSpeech: []string{"noun", "verb"}}

	tests := []struct {
		name     string
		rule     model.WordRule
		word     string
		entry    lexicon.Entry
		expected bool
	}{
		{"unknown word", model.WordRule{Kind: model.RuleAny}, "glass", lexicon.Entry{}, false},
		{"any", model.WordRule{Kind: model.RuleAny}, "glass", noun, true},
		{"empty kind means any", model.WordRule{}, "glass", noun, true},
		{"part of speech match", model.WordRule{Kind: model.RulePartOfSpeech, Text: "Noun"}, "glass", noun, true},
		{"part of speech mismatch", model.WordRule{Kind: model.RulePartOfSpeech, Text: "verb"}, "glass", noun, false},
		{"secondary part of speech", model.WordRule{Kind: model.RulePartOfSpeech, Text: "Verb"}, "glass", nounOrVerb, true},
		{"no sense matches", model.WordRule{Kind: model.RulePartOfSpeech, Text: "adjective"}, "glass", nounOrVerb, false},
		{"includes", model.WordRule{Kind: model.RuleIncludes, Text: "las"}, "glass", noun, true},
		{"includes missing", model.WordRule{Kind: model.RuleIncludes, Text: "z"}, "glass", noun, false},
		{"starts with", model.WordRule{Kind: model.RuleStartsWith, Text: "GL"}, "glass", noun, true},
		{"starts with missing", model.WordRule{Kind: model.RuleStartsWith, Text: "la"}, "glass", noun, false},
		{"min length met", model.WordRule{Kind: model.RuleMinLength, Length: 5}, "glass", noun, true},
		{"min length short", model.WordRule{Kind: model.RuleMinLength, Length: 6}, "glass", noun, false},
		{"unknown kind", model.WordRule{Kind: "rhymes_with", Text: "ass"}, "glass", noun, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lexicon.Accepts(tt.rule, tt.word, tt.entry))
		})
	}
}

func TestEntryMetadata(t *testing.T) {
	assert.Nil(t, lexicon.Entry{}.Metadata())

	meta := lexicon.Entry{
		Found:        true,
		PartOfSpeech: "noun",
		Definitions:  []string{"first", "second"},
		Phonetics:    "/ɡlæs/",
	}.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, "noun", meta.PartOfSpeech)
	assert.Equal(t, "first", meta.Definition)
	assert.Equal(t, "/ɡlæs/", meta.Phonetics)
}

// Retrying gateway tests

type RetrySuite struct {
	suite.Suite
	inner *mocks.MockLexicon
	clock *clockwork.FakeClock
	ctx   context.Context
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}

func (s *RetrySuite) SetupTest() {
	s.inner = mocks.NewMockLexicon("glass")
	s.clock = clockwork.NewFakeClock()
	s.ctx = context.Background()
}

func (s *RetrySuite) TestSucceedsFirstTry() {
	gw := lexicon.NewRetrying(s.inner, 3, 0, s.clock, testutil.NopLogger())

	entry, err := gw.Lookup(s.ctx, "glass")
	s.Require().NoError(err)
	s.True(entry.Found)
	s.Equal(1, s.inner.LookupCount())
}

func (s *RetrySuite) TestRetriesUntilSuccess() {
	s.inner.QueueError(errors.New("timeout"), errors.New("timeout"))
	gw := lexicon.NewRetrying(s.inner, 3, 0, s.clock, testutil.NopLogger())

	entry, err := gw.Lookup(s.ctx, "glass")
	s.Require().NoError(err)
	s.True(entry.Found)
	s.Equal(3, s.inner.LookupCount())
}

func (s *RetrySuite) TestExhaustedAttemptsAreUnavailable() {
	s.inner.QueueError(errors.New("a"), errors.New("b"), errors.New("c"))
	gw := lexicon.NewRetrying(s.inner, 2, 0, s.clock, testutil.NopLogger())

	_, err := gw.Lookup(s.ctx, "glass")
	s.ErrorIs(err, model.ErrLexiconUnavailable)
	s.ErrorContains(err, "b")
	s.Equal(2, s.inner.LookupCount())
}

func (s *RetrySuite) TestWaitsForBackoff() {
	s.inner.QueueError(errors.New("timeout"))
	gw := lexicon.NewRetrying(s.inner, 2, time.Second, s.clock, testutil.NopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := gw.Lookup(s.ctx, "glass")
		done <- err
	}()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(s.clock.BlockUntilContext(ctx, 1))
	s.Equal(1, s.inner.LookupCount())

	s.clock.Advance(time.Second)
	s.NoError(<-done)
	s.Equal(2, s.inner.LookupCount())
}

func (s *RetrySuite) TestCancelledDuringBackoff() {
	s.inner.QueueError(errors.New("timeout"))
	gw := lexicon.NewRetrying(s.inner, 2, time.Minute, s.clock, testutil.NopLogger())

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := gw.Lookup(ctx, "glass")
	s.ErrorIs(err, model.ErrLexiconUnavailable)
	s.ErrorIs(err, context.Canceled)
}

// HTTP gateway tests

func TestHTTPGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/glass":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{
				"word": "glass",
				"phonetics": [{"text": ""}, {"text": "/ɡlɑːs/"}],
				"meanings": [
					{"partOfSpeech": "noun", "definitions": [{"definition": "A hard transparent material."}]},
					{"partOfSpeech": "verb", "definitions": [{"definition": "To fit with glass."}]}
				]
			}]`))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "/huge":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"word": "huge", "phonetic": "`))
			_, _ = w.Write([]byte(strings.Repeat("a", 2<<20)))
			_, _ = w.Write([]byte(`"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw := lexicon.NewHTTPGateway(server.URL+"/", time.Second)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		entry, err := gw.Lookup(ctx, "glass")
		require.NoError(t, err)
		assert.True(t, entry.Found)
		assert.Equal(t, "noun", entry.PartOfSpeech)
		assert.Equal(t, []string{"noun", "verb"}, entry.PartsOfSpeech)
		assert.Equal(t, "/ɡlɑːs/", entry.Phonetics)
		assert.Equal(t, []string{"A hard transparent material.", "To fit with glass."}, entry.Definitions)
		assert.True(t, lexicon.Accepts(model.WordRule{Kind: model.RulePartOfSpeech, Text: "verb"}, "glass", entry))
	})

	t.Run("not found", func(t *testing.T) {
		entry, err := gw.Lookup(ctx, "glasz")
		require.NoError(t, err)
		assert.False(t, entry.Found)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := gw.Lookup(ctx, "broken")
		assert.Error(t, err)
	})

	t.Run("oversized response", func(t *testing.T) {
		_, err := gw.Lookup(ctx, "huge")
		assert.ErrorContains(t, err, "exceeds")
	})
}
