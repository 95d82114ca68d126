package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mcoot/wordchain-go/internal/api/response"
	"github.com/mcoot/wordchain-go/internal/model"
)

// API response types as the CLI sees them
type (
	Player           = response.Player
	AuthResult       = response.AuthResponse
	Lobby            = response.Lobby
	LobbyConfig      = response.LobbyConfig
	Session          = response.Session
	Snapshot         = response.Snapshot
	MoveResult       = response.MoveResponse
	EndSessionResult = response.EndSessionResponse
	Leaderboard      = response.Leaderboard
	GameHistory      = response.GameHistory
	seatClocks       = [model.SeatCount]time.Duration
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printPlayer(v.Player)
		fmt.Fprintf(o.w, "Token: %s\n", v.SessionToken)
	case Lobby:
		o.printLobby(v)
	case LobbyConfig:
		o.printLobbyConfig(v)
	case Session:
		o.printSession(v)
	case Snapshot:
		o.printSnapshot(v)
	case MoveResult:
		o.printMoveResult(v)
	case EndSessionResult:
		o.printEndSession(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case GameHistory:
		o.printHistory(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p Player) {
	guest := "no"
	if p.IsGuest {
		guest = "yes"
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guest)
	fmt.Fprintf(o.w, "Rating: %d (%d games)\n", p.EloRating, p.GamesPlayed)
}

func (o *Output) printLobby(l Lobby) {
	fmt.Fprintf(o.w, "Lobby: %s\n", l.Code)
	fmt.Fprintf(o.w, "State: %s\n", l.State)
	o.printLobbyConfig(l.Config)
	fmt.Fprintf(o.w, "Members (%d):\n", len(l.Members))
	for _, m := range l.Members {
		tags := ""
		if m.IsHost {
			tags += " [host]"
		}
		if m.IsBot {
			tags += " [bot]"
		}
		fmt.Fprintf(o.w, "  - %s (%s) %d - %s%s\n", m.DisplayName, m.PlayerID, m.EloRating, m.Role, tags)
	}
}

func (o *Output) printLobbyConfig(c LobbyConfig) {
	fmt.Fprintf(o.w, "Starting Clock: %s\n", time.Duration(c.StartingClockSeconds)*time.Second)
	fmt.Fprintf(o.w, "Rule: %s\n", formatRule(c.Rule))
}

func (o *Output) printSession(s Session) {
	fmt.Fprintf(o.w, "Session: %s (v%d)\n", s.LobbyCode, s.Version)
	fmt.Fprintf(o.w, "Status: %s\n", s.Status)
	fmt.Fprintf(o.w, "Rule: %s\n", formatRule(s.Rule))
	clocks := seatClocks{
		time.Duration(s.Player1TimeMs) * time.Millisecond,
		time.Duration(s.Player2TimeMs) * time.Millisecond,
	}
	o.printSeats(s.Players, clocks, s.CurrentTurn, nil)
	if s.Winner != "" {
		fmt.Fprintf(o.w, "Winner: %s (%s)\n", s.Winner, s.EndReason)
	}
}

// printSeats prints one line per player with their clock and, when known, their score
func (o *Output) printSeats(players [model.SeatCount]string, clocks seatClocks, turn int, scores *[model.SeatCount]int) {
	for seat, p := range players {
		marker := " "
		if seat == turn {
			marker = "*"
		}
		line := fmt.Sprintf("%s P%d %s  %s", marker, seat+1, p, formatClock(clocks[seat]))
		if scores != nil {
			line += fmt.Sprintf("  %d pts", scores[seat])
		}
		fmt.Fprintln(o.w, line)
	}
}

func (o *Output) printSnapshot(s Snapshot) {
	o.printSession(s.Session)
	fmt.Fprintf(o.w, "Scores: %d - %d\n", s.Scores[0], s.Scores[1])
	if len(s.Moves) > 0 {
		fmt.Fprintln(o.w, "Moves:")
		for _, m := range s.Moves {
			o.printMoveLine(m)
		}
	}
}

func (o *Output) printMoveLine(m response.Move) {
	if !m.IsValid {
		fmt.Fprintf(o.w, "  %3d. %-16s %s  invalid\n", m.Seq, m.Word, m.PlayerID)
		return
	}
	points := 0
	if m.Score != nil {
		points = *m.Score
	}
	fmt.Fprintf(o.w, "  %3d. %-16s %s  %d pts\n", m.Seq, m.Word, m.PlayerID, points)
}

func (o *Output) printMoveResult(r MoveResult) {
	if !r.Move.IsValid {
		fmt.Fprintf(o.w, "%q is not a valid word; still your turn\n", r.Move.Word)
	} else {
		points := 0
		if r.Move.Score != nil {
			points = *r.Move.Score
		}
		fmt.Fprintf(o.w, "%q scored %d points\n", r.Move.Word, points)
		if b := r.Move.Breakdown; b != nil {
			fmt.Fprintf(o.w, "  length %d, change %d, rarity %d\n", b.LengthScore, b.LevenBonus, b.RarityBonus)
		}
		if lex := r.Move.Lexical; lex != nil && lex.Definition != "" {
			fmt.Fprintf(o.w, "  %s: %s\n", lex.PartOfSpeech, lex.Definition)
		}
	}
	o.printSession(r.Session)
}

func (o *Output) printEndSession(r EndSessionResult) {
	if !r.Applied || r.Rating == nil {
		fmt.Fprintln(o.w, "Ratings already updated")
		return
	}
	fmt.Fprintf(o.w, "Ratings updated (+/-%d)\n", r.Rating.Delta)
	fmt.Fprintf(o.w, "  %s: %d\n", r.Rating.Winner, r.Rating.WinnerRating)
	fmt.Fprintf(o.w, "  %s: %d\n", r.Rating.Loser, r.Rating.LoserRating)
}

func (o *Output) printLeaderboard(l Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "No rated players yet")
		return
	}
	for _, e := range l.Entries {
		fmt.Fprintf(o.w, "%3d. %-20s %5d  (%d games)\n", e.Rank, e.DisplayName, e.EloRating, e.GamesPlayed)
	}
}

func (o *Output) printHistory(h GameHistory) {
	if len(h.Games) == 0 {
		fmt.Fprintln(o.w, "No finished games")
		return
	}
	for _, g := range h.Games {
		result := "lost"
		if g.Won {
			result = "won"
		}
		fmt.Fprintf(o.w, "%s  %s vs %s  %s %d-%d (%s, %d moves)\n",
			g.EndedAt.Format(time.DateTime), g.LobbyCode, g.Opponent, result, g.Score, g.OpponentScore, g.EndReason, g.MoveCount)
	}
}

func formatRule(r model.WordRule) string {
	switch r.Kind {
	case "", model.RuleAny:
		return "any word"
	case model.RuleMinLength:
		return fmt.Sprintf("%s %d", r.Kind, r.Length)
	default:
		return fmt.Sprintf("%s %q", r.Kind, r.Text)
	}
}

// formatClock renders a duration as m:ss, rounding down
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// parseRule reads a rule flag of the form kind[:value]
func parseRule(s string) (model.WordRule, error) {
	kind, value, _ := strings.Cut(strings.TrimSpace(s), ":")
	rule := model.WordRule{Kind: model.RuleKind(kind)}
	if rule.Kind == model.RuleMinLength {
		if _, err := fmt.Sscanf(value, "%d", &rule.Length); err != nil {
			return model.WordRule{}, fmt.Errorf("invalid rule %q: length must be a number", s)
		}
	} else {
		rule.Text = value
	}
	if err := rule.Validate(); err != nil {
		return model.WordRule{}, fmt.Errorf("invalid rule %q: %w", s, err)
	}
	return rule.Normalized(), nil
}
