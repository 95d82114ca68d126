package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/wordchain-go/internal/model"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby management commands",
	}

	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyGetCmd())
	cmd.AddCommand(newLobbyJoinCmd())
	cmd.AddCommand(newLobbyLeaveCmd())
	cmd.AddCommand(newLobbyConfigCmd())
	cmd.AddCommand(newLobbyRoleCmd())
	cmd.AddCommand(newLobbyTransferHostCmd())
	cmd.AddCommand(newLobbyAddBotCmd())
	cmd.AddCommand(newLobbyRemoveBotCmd())

	return cmd
}

// lobbyConfigFlags binds the flags shared by create and config
type lobbyConfigFlags struct {
	clock time.Duration
	rule  string
}

func (f *lobbyConfigFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.clock, "clock", 0, "Starting clock per player, e.g. 3m (default: server default)")
	cmd.Flags().StringVar(&f.rule, "rule", "", "Word rule: any, starts_with:<prefix>, includes:<text>, part_of_speech:<pos>, min_length:<n>")
}

// request builds the config body; unset flags are omitted
func (f *lobbyConfigFlags) request() (map[string]any, error) {
	req := map[string]any{}
	if f.clock > 0 {
		req["starting_clock_seconds"] = int(f.clock / time.Second)
	}
	if f.rule != "" {
		rule, err := parseRule(f.rule)
		if err != nil {
			return nil, err
		}
		req["rule"] = rule
	}
	return req, nil
}

func newLobbyCreateCmd() *cobra.Command {
	var flags lobbyConfigFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}

			var result Lobby
			if err := client.Post(cmd.Context(), "/api/v1/lobbies", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get lobby details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Lobby
			if err := client.Get(cmd.Context(), lobbyPath(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newLobbyJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Lobby
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "join"), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newLobbyLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a lobby, forfeiting any session in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "leave"), nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Left lobby %s", args[0]))
			return nil
		},
	}
}

func newLobbyConfigCmd() *cobra.Command {
	var flags lobbyConfigFlags

	cmd := &cobra.Command{
		Use:   "config <code>",
		Short: "Update lobby configuration (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			if len(req) == 0 {
				return fmt.Errorf("at least one of --clock or --rule is required")
			}

			var result LobbyConfig
			if err := client.Patch(cmd.Context(), lobbyPath(args[0], "config"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newLobbyRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <code> <player-id> <player|spectator>",
		Short: "Set a member's role (host only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.LobbyMemberRole(args[2])
			if role != model.RolePlayer && role != model.RoleSpectator {
				return fmt.Errorf("role must be %s or %s", model.RolePlayer, model.RoleSpectator)
			}

			req := map[string]string{"role": string(role)}
			if err := client.Patch(cmd.Context(), lobbyPath(args[0], "members", args[1], "role"), req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("%s is now a %s", args[1], role))
			return nil
		},
	}
}

func newLobbyTransferHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-host <code> <player-id>",
		Short: "Hand the host role to another member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"new_host_id": args[1]}
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "transfer-host"), req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("%s is now host of %s", args[1], args[0]))
			return nil
		},
	}
}

func newLobbyAddBotCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "add-bot <code>",
		Short: "Seat a bot opponent (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"strategy": strategy}

			var result Lobby
			if err := client.Post(cmd.Context(), lobbyPath(args[0], "bots"), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", model.BotStrategyRandom,
		"How the bot picks words: "+strings.Join(model.ValidBotStrategies(), ", "))

	return cmd
}

func newLobbyRemoveBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-bot <code> <player-id>",
		Short: "Remove a bot before the session starts (host only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), lobbyPath(args[0], "bots", args[1]), nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Removed bot %s", args[1]))
			return nil
		},
	}
}
