package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordchain-go/internal/api/response"
	"github.com/mcoot/wordchain-go/internal/dependencies/clock"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/replica"
)

func newSessionWatchCmd() *cobra.Command {
	var (
		refresh time.Duration
		follow  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <code>",
		Short: "Follow a session live with ticking clocks",
		Long: `Follow a lobby's session from its event stream.

The view is rebuilt from a snapshot whenever events were missed, and the
active player's clock counts down locally between server updates.
Exits when the session ends unless --follow is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			code := args[0]

			body, err := client.Stream(ctx, lobbyPath(code, "events"))
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			w := newWatcher(model.LobbyCode(code), clock.New(), cmd.OutOrStdout(), fetchSnapshot(code))
			w.follow = follow
			if err := w.resync(ctx); err != nil {
				return err
			}
			if w.rated() && !follow {
				return nil
			}
			return w.run(ctx, body, refresh)
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Second, "How often to redraw the clocks (0 disables)")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep watching after the session ends")

	return cmd
}

// snapshotFetcher loads the authoritative session; nil means no session yet
type snapshotFetcher func(ctx context.Context) (*model.SessionSnapshot, error)

func fetchSnapshot(code string) snapshotFetcher {
	return func(ctx context.Context) (*model.SessionSnapshot, error) {
		var snap Snapshot
		err := client.Get(ctx, lobbyPath(code, "session"), &snap)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return snapshotToModel(snap), nil
	}
}

// watcher renders a replica read model as events arrive
type watcher struct {
	model  *replica.ReadModel
	out    io.Writer
	fetch  snapshotFetcher
	follow bool
}

func newWatcher(code model.LobbyCode, c clock.Clock, out io.Writer, fetch snapshotFetcher) *watcher {
	return &watcher{
		model: replica.New(code, c),
		out:   out,
		fetch: fetch,
	}
}

func (w *watcher) run(ctx context.Context, stream io.Reader, refresh time.Duration) error {
	msgs := make(chan sseMessage)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- readSSE(stream, func(msg sseMessage) error {
			select {
			case msgs <- msg:
				return nil
			case <-ctx.Done():
				return errStopStream
			}
		})
	}()

	var tick <-chan time.Time
	if refresh > 0 {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg := <-msgs:
			done, err := w.handle(ctx, msg)
			if err != nil || done {
				return err
			}
		case <-tick:
			if w.model.Clock().Running() {
				fmt.Fprintln(w.out, w.status())
			}
		case err := <-streamErr:
			if err == nil {
				fmt.Fprintln(w.out, "Stream closed")
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// handle applies one stream message and reports whether watching is over
func (w *watcher) handle(ctx context.Context, msg sseMessage) (bool, error) {
	if msg.Event == "connected" {
		return false, nil
	}

	var event model.Event
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return false, fmt.Errorf("bad %s event: %w", msg.Event, err)
	}

	if w.model.Apply(event) {
		w.render(event)
	}
	if w.model.Stale() {
		if err := w.resync(ctx); err != nil {
			return false, err
		}
	}

	return w.rated() && !w.follow, nil
}

// rated reports whether the session is over and its ratings applied
func (w *watcher) rated() bool {
	session, ok := w.model.Session()
	if !ok || session.Status != model.SessionFinished {
		return false
	}
	_, rated := w.model.Rating()
	return rated || session.EloUpdated
}

// resync replaces the read model with a fresh snapshot
func (w *watcher) resync(ctx context.Context) error {
	snap, err := w.fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if snap == nil {
		fmt.Fprintln(w.out, "Waiting for the session to start")
		return nil
	}

	w.model.Reset(snap)
	for _, mv := range w.model.Moves() {
		fmt.Fprintln(w.out, formatMove(mv))
	}
	fmt.Fprintln(w.out, w.status())
	return nil
}

func (w *watcher) render(event model.Event) {
	switch event.Type {
	case model.EventMoveInserted:
		fmt.Fprintln(w.out, formatMove(*event.Move))
	case model.EventStateChanged:
		fmt.Fprintln(w.out, w.status())
	case model.EventSessionEnded:
		s := event.Session
		fmt.Fprintf(w.out, "Session over: %s wins (%s)\n", s.Winner, s.EndReason)
		fmt.Fprintln(w.out, w.status())
	case model.EventRatingUpdated:
		r := event.Rating
		fmt.Fprintf(w.out, "Ratings: %s %d (+%d), %s %d (-%d)\n",
			r.Winner, r.WinnerRating, r.Delta, r.Loser, r.LoserRating, r.Delta)
	}
}

// status is a one-line summary of turn, clocks and scores
func (w *watcher) status() string {
	session, ok := w.model.Session()
	if !ok {
		return "No session"
	}
	scores := w.model.Scores()
	display := w.model.Clock()

	seats := make([]string, model.SeatCount)
	for seat, p := range session.Players {
		marker := ""
		if seat == session.CurrentTurn && session.Status == model.SessionActive {
			marker = "*"
		}
		seats[seat] = fmt.Sprintf("%s%s %s %d", marker, p, formatClock(display.Remaining(seat)), scores[seat])
	}
	return fmt.Sprintf("[%s] %s", session.Status, strings.Join(seats, " | "))
}

func formatMove(m model.Move) string {
	if !m.IsValid {
		return fmt.Sprintf("%3d. %-16s %s  invalid", m.Seq, m.Word, m.PlayerID)
	}
	points := 0
	if m.Score != nil {
		points = *m.Score
	}
	return fmt.Sprintf("%3d. %-16s %s  +%d", m.Seq, m.Word, m.PlayerID, points)
}

// snapshotToModel rebuilds the domain snapshot from its API form
func snapshotToModel(s Snapshot) *model.SessionSnapshot {
	session := sessionToModel(s.Session)
	moves := make([]model.Move, len(s.Moves))
	for i, m := range s.Moves {
		moves[i] = moveToModel(session.LobbyCode, m)
	}
	return &model.SessionSnapshot{Session: session, Moves: moves, Scores: s.Scores}
}

func sessionToModel(s Session) model.Session {
	return model.Session{
		LobbyCode:   model.LobbyCode(s.LobbyCode),
		Status:      model.SessionStatus(s.Status),
		Players:     [model.SeatCount]model.PlayerID{model.PlayerID(s.Players[0]), model.PlayerID(s.Players[1])},
		CurrentTurn: s.CurrentTurn,
		Clocks: [model.SeatCount]time.Duration{
			time.Duration(s.Player1TimeMs) * time.Millisecond,
			time.Duration(s.Player2TimeMs) * time.Millisecond,
		},
		Rule:          s.Rule,
		GameStartedAt: s.GameStartedAt,
		LastMoveAt:    s.LastMoveAt,
		LastTickAt:    s.LastTickAt,
		Winner:        model.PlayerID(s.Winner),
		EndReason:     model.EndReason(s.EndReason),
		EloUpdated:    s.EloUpdated,
		Version:       s.Version,
	}
}

func moveToModel(code model.LobbyCode, m response.Move) model.Move {
	return model.Move{
		ID:        m.ID,
		LobbyCode: code,
		Seq:       m.Seq,
		Word:      m.Word,
		PlayerID:  model.PlayerID(m.PlayerID),
		CreatedAt: m.CreatedAt,
		IsValid:   m.IsValid,
		Score:     m.Score,
		Breakdown: m.Breakdown,
		Lexical:   m.Lexical,
	}
}
