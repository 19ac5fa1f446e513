package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/farmkeep/farmkeep/pkg/client"
)

func apiClient(g *GlobalFlags) *client.Client {
	cfg := client.DefaultConfig()
	if g.APIUrl != "" {
		cfg.BaseURL = g.APIUrl
	}
	if g.APITimeout > 0 {
		cfg.Timeout = g.APITimeout
	}
	return client.New(cfg)
}

func createStartCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <share-config.json>",
		Short: "Validate a share config and launch its worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			id, err := apiClient(g).Start(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Printf("share %s started\n", id)
			return nil
		},
	}
}

func createStopCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <share-id>",
		Short: "Send the graceful interrupt to a share's worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiClient(g).Stop(cmd.Context(), args[0])
		},
	}
}

func createRestartCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <share-id | '*'>",
		Short: "Stop a share and relaunch it from its config path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiClient(g).Restart(cmd.Context(), args[0])
		},
	}
}

func createDestroyCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <share-id>",
		Short: "Signal a share's worker and remove it from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiClient(g).Destroy(cmd.Context(), args[0])
		},
	}
}

func createStatusCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every registered share with its live state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := apiClient(g).Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(statuses)
		},
	}
}

func createKillallCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "killall",
		Short: "Destroy every share and terminate the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiClient(g).Killall(cmd.Context())
		},
	}
}

func createSaveCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "save [snapshot-path]",
		Short: "Persist the daemon's registry to a snapshot file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				var err error
				if path, err = absPath(args[0]); err != nil {
					return err
				}
			}
			return apiClient(g).Save(cmd.Context(), path)
		},
	}
}

func createLoadCommand(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load [snapshot-path]",
		Short: "Relaunch every share recorded in a snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				var err error
				if path, err = absPath(args[0]); err != nil {
					return err
				}
			}
			return apiClient(g).Load(cmd.Context(), path)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
