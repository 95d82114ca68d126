package model

import "strings"

// RuleKind tags the variant of a WordRule
type RuleKind string

const (
	RuleAny          RuleKind = "any"            // Any dictionary word
	RulePartOfSpeech RuleKind = "part_of_speech" // Word must have the given part of speech (Text)
	RuleIncludes     RuleKind = "includes"       // Word must contain the substring Text
	RuleStartsWith   RuleKind = "starts_with"    // Word must start with the prefix Text
	RuleMinLength    RuleKind = "min_length"     // Word must have at least Length letters
)

// WordRule is an extra validity constraint a lobby places on words.
// Only the field matching Kind is meaningful.
type WordRule struct {
	Kind   RuleKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Length int      `json:"length,omitempty"`
}

// Validate checks that the rule is well-formed for its kind
func (r WordRule) Validate() error {
	switch r.Kind {
	case "", RuleAny:
		return nil
	case RulePartOfSpeech, RuleIncludes, RuleStartsWith:
		if strings.TrimSpace(r.Text) == "" {
			return ErrInvalidRule
		}
		return nil
	case RuleMinLength:
		if r.Length < 1 {
			return ErrInvalidRule
		}
		return nil
	default:
		return ErrInvalidRule
	}
}

// Normalized returns the rule with lowercase text and an explicit kind
func (r WordRule) Normalized() WordRule {
	if r.Kind == "" {
		r.Kind = RuleAny
	}
	r.Text = strings.ToLower(strings.TrimSpace(r.Text))
	return r
}
