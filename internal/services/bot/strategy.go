package bot

import "github.com/mcoot/wordchain-go/internal/model"

// Strategy defines how a bot picks its next word
type Strategy interface {
	// ChooseWord picks one of the candidates, which are all acceptable and
	// unplayed. ok is false when the bot has nothing to say.
	ChooseWord(snapshot *model.SessionSnapshot, candidates []string) (word string, ok bool)
}
