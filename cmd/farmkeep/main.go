package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds daemon-specific flags.
type ServeFlags struct {
	Daemonize bool
	PidFile   string
	LogFile   string
	Restore   bool
}

func buildRoot() *cobra.Command {
	global := &GlobalFlags{}
	serve := &ServeFlags{}

	root := &cobra.Command{
		Use:   "farmkeep",
		Short: "Supervisor for storage-farming share workers",
		Long: `Farmkeep validates share configurations, launches each share as an
isolated worker process, tracks lifecycle state, and persists the running
set across restarts.

Examples:
  farmkeep serve --config /etc/farmkeep/farmkeep.toml
  farmkeep start /etc/farmkeep/shares/alpha.json
  farmkeep status
  farmkeep restart '*'`,
	}
	root.PersistentFlags().StringVar(&global.ConfigPath, "config", "", "path to daemon TOML config (optional)")
	root.PersistentFlags().StringVar(&global.APIUrl, "api-url", "", "daemon API base URL (default http://127.0.0.1:4501/api)")
	root.PersistentFlags().DurationVar(&global.APITimeout, "api-timeout", 10*time.Second, "daemon API request timeout")

	root.AddCommand(
		createServeCommand(global, serve),
		createStartCommand(global),
		createStopCommand(global),
		createRestartCommand(global),
		createDestroyCommand(global),
		createStatusCommand(global),
		createKillallCommand(global),
		createSaveCommand(global),
		createLoadCommand(global),
	)
	return root
}
