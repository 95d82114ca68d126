package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/game"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"game"},
		Short:   "Session commands",
	}

	cmd.AddCommand(newSessionInitCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionMoveCmd())
	cmd.AddCommand(newSessionTransitionCmd("pause", "Pause the session and stop the clocks"))
	cmd.AddCommand(newSessionTransitionCmd("resume", "Resume a paused session"))
	cmd.AddCommand(newSessionTransitionCmd("forfeit", "Concede the session to your opponent"))
	cmd.AddCommand(newSessionClockCmd())
	cmd.AddCommand(newSessionEndCmd())
	cmd.AddCommand(newSessionWatchCmd())

	return cmd
}

func newSessionInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <code>",
		Short: "Start the lobby's session, or return the one in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "session"), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show the session with its moves and scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Snapshot
			if err := client.Get(cmd.Context(), lobbyPath(args[0], "session"), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <code> <word>",
		Short: "Play a word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"word": args[1]}

			var result MoveResult
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "session", "moves"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionTransitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "session", action), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionClockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clock <code> <player1_time|player2_time> <remaining>",
		Short: "Report your remaining time, e.g. 2m30s",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := game.ClockField(args[1])
			if field != game.ClockFieldPlayer1 && field != game.ClockFieldPlayer2 {
				return fmt.Errorf("clock field must be %s or %s", game.ClockFieldPlayer1, game.ClockFieldPlayer2)
			}
			remaining, err := time.ParseDuration(args[2])
			if err != nil || remaining < 0 {
				return fmt.Errorf("invalid remaining time %q", args[2])
			}

			req := map[string]any{
				"player_time_field": string(field),
				"new_value_ms":      remaining.Milliseconds(),
			}
			var result Session
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "session", "clock"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newSessionEndCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "end <code>",
		Short: "Report a finished session so ratings are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"final_status": string(model.SessionFinished),
				"reason":       reason,
			}

			var result EndSessionResult
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "session", "end"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the session ended: time or forfeit")

	return cmd
}
