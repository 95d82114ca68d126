package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <code>",
		Short: "Stream raw events from a lobby",
		Long: `Connect to the lobby's event stream and print events as they arrive.

Events include:
  - player-joined / player-left: Lobby membership changed
  - state-changed: Session state changed (turn, clocks, pause)
  - move-inserted: A word was played
  - session-ended: The session finished
  - rating-updated: Ratings were applied

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			out := cmd.OutOrStdout()

			body, err := client.Stream(cmd.Context(), lobbyPath(code, "events"))
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			if !jsonOutput {
				fmt.Fprintf(out, "Connected to lobby %s\n", code)
			}

			err = readSSE(body, func(msg sseMessage) error {
				printEvent(out, msg, jsonOutput)
				return nil
			})
			if cmd.Context().Err() != nil {
				err = nil
			}
			if !jsonOutput {
				fmt.Fprintln(out, "Disconnected")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// sseMessage is one parsed server-sent event
type sseMessage struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event"`
	Data  string `json:"data"`
}

// errStopStream ends readSSE without an error
var errStopStream = errors.New("stop stream")

// readSSE parses a server-sent event stream, calling fn for every complete message.
// Comment lines are skipped and multi-line data is joined with newlines.
func readSSE(r io.Reader, fn func(sseMessage) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var msg sseMessage
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if msg.Event != "" || len(data) > 0 {
				msg.Data = strings.Join(data, "\n")
				if err := fn(msg); err != nil {
					if errors.Is(err, errStopStream) {
						return nil
					}
					return err
				}
			}
			msg = sseMessage{}
			data = nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			msg.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "id:"):
			msg.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

func printEvent(w io.Writer, msg sseMessage, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		line, _ := json.Marshal(struct {
			Time time.Time `json:"time"`
			sseMessage
		}{now, msg})
		fmt.Fprintln(w, string(line))
		return
	}

	display := strings.ReplaceAll(msg.Data, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", now.Format(time.DateTime), msg.Event, display)
}
