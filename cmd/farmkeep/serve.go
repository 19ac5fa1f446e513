package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/farmkeep/farmkeep"
	"github.com/farmkeep/farmkeep/internal/logger"
)

func createServeCommand(g *GlobalFlags, f *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the farmkeep daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Daemonize {
				return daemonize(f.PidFile, f.LogFile)
			}
			return runServe(g, f)
		},
	}
	cmd.Flags().BoolVar(&f.Daemonize, "daemonize", false, "run detached in the background")
	cmd.Flags().StringVar(&f.PidFile, "pidfile", "", "write the daemon PID to this file")
	cmd.Flags().StringVar(&f.LogFile, "logfile", "", "append daemon output to this file")
	cmd.Flags().BoolVar(&f.Restore, "restore", true, "relaunch shares from the snapshot at startup")
	return cmd
}

func runServe(g *GlobalFlags, f *ServeFlags) error {
	cfg, err := farmkeep.LoadConfig(g.ConfigPath)
	if err != nil {
		return err
	}

	log := logger.Default(os.Stderr, slog.LevelInfo)
	slog.SetDefault(log)

	sup := farmkeep.New(log, farmkeep.Options{
		WorkerCommand: cfg.WorkerCommand,
		Log:           cfg.Log,
		KillallGrace:  cfg.KillallGrace,
	})
	if cfg.HistoryDSN != "" {
		sink, err := farmkeep.NewHistorySink(cfg.HistoryDSN)
		if err != nil {
			return fmt.Errorf("failed to open history sink: %w", err)
		}
		sup.SetRecorder(farmkeep.NewRecorder(sink))
	}
	if err := farmkeep.RegisterMetricsDefault(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.Restore {
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			if err := sup.LoadSnapshot(ctx, cfg.SnapshotPath); err != nil {
				log.Warn("snapshot restore incomplete", "error", err)
			}
		}
	}

	methods := farmkeep.Methods(sup, cfg.SnapshotPath)
	srv := farmkeep.NewHTTPServer(cfg.Listen, cfg.BasePath, methods)
	log.Info("farmkeep daemon listening", "addr", cfg.Listen, "base", cfg.BasePath)

	<-ctx.Done()

	// Persist the running set before shutting down so the next serve can
	// relaunch it.
	if err := sup.SaveSnapshot(cfg.SnapshotPath); err != nil {
		log.Error("failed to save snapshot on shutdown", "error", err)
	}
	return srv.Close()
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", p, err)
	}
	return abs, nil
}
