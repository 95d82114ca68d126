package factory

import (
	"github.com/jonboulle/clockwork"

	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/dependencies/mocks"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/auth"
	"github.com/mcoot/wordchain-go/internal/services/scoring"
	"github.com/mcoot/wordchain-go/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	FakeClock  *clockwork.FakeClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	fakeClock := clock.NewFake()
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(dependencies{
		storage: store,
		clock:   fakeClock,
		random:  mockRandom,
		weights: scoring.DefaultWeights(),
		auth:    auth.DefaultConfig(),
	})

	return &TestApp{
		App:        app,
		FakeClock:  fakeClock,
		MockRandom: mockRandom,
	}
}

// LoadTestDictionary loads a small dictionary for testing
func (t *TestApp) LoadTestDictionary() {
	t.DictionaryService.LoadEntries([]model.DictionaryEntry{
		{Word: "glass", PartOfSpeech: "noun", Definition: "a hard transparent material"},
		{Word: "grass", PartOfSpeech: "noun", Definition: "vegetation of short plants"},
		{Word: "brass", PartOfSpeech: "noun", Definition: "an alloy of copper and zinc"},
		{Word: "class", PartOfSpeech: "noun", Definition: "a group sharing qualities"},
		{Word: "clash", PartOfSpeech: "verb", Definition: "to come into conflict"},
		{Word: "flash", PartOfSpeech: "noun", Definition: "a sudden burst of light"},
		{Word: "zebra", PartOfSpeech: "noun", Definition: "a striped African horse"},
		{Word: "quartz", PartOfSpeech: "noun", Definition: "a hard mineral"},
		{Word: "jazz", PartOfSpeech: "noun", Definition: "a style of music"},
		{Word: "run", PartOfSpeech: "verb", Definition: "to move swiftly on foot"},
		{Word: "swim", PartOfSpeech: "verb", Definition: "to move through water"},
		{Word: "quickly", PartOfSpeech: "adverb", Definition: "at a fast speed"},
		{Word: "cat"},
		{Word: "cot"},
		{Word: "dog"},
	})
}
