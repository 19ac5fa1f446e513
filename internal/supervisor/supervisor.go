// Package supervisor launches, monitors, and tears down share worker
// processes. It drives every registry state transition: RPC-style calls
// come in from one side, child process events from the other, and both meet
// at the guarded registry.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/farmkeep/farmkeep/internal/history"
	"github.com/farmkeep/farmkeep/internal/logger"
	"github.com/farmkeep/farmkeep/internal/metrics"
	"github.com/farmkeep/farmkeep/internal/registry"
	"github.com/farmkeep/farmkeep/internal/shareconf"
	"github.com/farmkeep/farmkeep/internal/snapshot"
)

// Wildcard is the id token that expands an operation to every registered
// share.
const Wildcard = "*"

// DefaultKillallGrace is how long killall lets log sinks flush before the
// supervisor process terminates itself.
const DefaultKillallGrace = 3 * time.Second

// DefaultRestartWait bounds how long a restart waits for the stopped
// worker's exit event before relaunching from the retained config path.
const DefaultRestartWait = 10 * time.Second

// Options configures a Supervisor.
type Options struct {
	// WorkerCommand is the command string used to launch share workers,
	// in the usual command syntax ("farmer", "sh -c '...'"). The share's
	// config path is appended for plain argv commands and always exported
	// as FARMKEEP_SHARE_CONFIG.
	WorkerCommand string
	// Log configures the rotating sinks receiving worker output. A share
	// config's loggerOutputFile overrides the derived path.
	Log logger.SinkConfig
	// KillallGrace overrides DefaultKillallGrace.
	KillallGrace time.Duration
	// RestartWait overrides DefaultRestartWait.
	RestartWait time.Duration
	// Exit is invoked by killall after the grace delay. Defaults to
	// os.Exit; injectable so killall is testable against a real process.
	Exit func(code int)
}

// Supervisor is the share process supervisor.
type Supervisor struct {
	reg      *registry.Registry
	loader   *shareconf.Loader
	recorder *history.Recorder
	log      *slog.Logger
	opts     Options

	mu       sync.Mutex
	children map[string]*child
}

// New constructs a Supervisor around the given registry. A nil logger
// discards supervisor logs.
func New(reg *registry.Registry, log *slog.Logger, opts Options) *Supervisor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.WorkerCommand == "" {
		opts.WorkerCommand = "farmer"
	}
	if opts.KillallGrace <= 0 {
		opts.KillallGrace = DefaultKillallGrace
	}
	if opts.RestartWait <= 0 {
		opts.RestartWait = DefaultRestartWait
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	return &Supervisor{
		reg:      reg,
		loader:   shareconf.NewLoader(reg),
		log:      log,
		opts:     opts,
		children: make(map[string]*child),
	}
}

// SetLoader replaces the config loader, keeping the registry-backed
// duplicate check unless the caller wired their own.
func (s *Supervisor) SetLoader(l *shareconf.Loader) { s.loader = l }

// SetRecorder wires history sinks for lifecycle events.
func (s *Supervisor) SetRecorder(r *history.Recorder) { s.recorder = r }

// Registry exposes the underlying share table for status readers.
func (s *Supervisor) Registry() *registry.Registry { return s.reg }

// Start runs the validated startup pipeline for the config at path, then
// launches the worker and inserts its record. The returned id is the
// share's derived node id. Start blocks through file I/O and the allocation
// validation round trip; callers treat it as asynchronous.
func (s *Supervisor) Start(ctx context.Context, configPath string) (string, error) {
	cfg, id, err := s.loader.Load(ctx, configPath)
	if err != nil {
		return "", err
	}
	// Reservation makes the duplicate check atomic with the insert below;
	// a concurrent Start for the same key material fails here.
	if err := s.reg.Reserve(id); err != nil {
		return "", err
	}
	rec, err := s.launch(id, cfg, configPath)
	if err != nil {
		s.reg.Release(id)
		return "", err
	}
	s.reg.Commit(rec)
	metrics.IncStart(id)
	metrics.SetRegisteredShares(s.reg.Len())
	s.record(ctx, history.EventStarted, id, rec.Proc.PID(), configPath, "")
	s.log.Info("share started", "id", id, "pid", rec.Proc.PID(), "config", configPath)
	return id, nil
}

// launch spawns the worker process and wires its log sink, IPC pipe, and
// event loop. The record it returns is not yet in the registry.
func (s *Supervisor) launch(id string, cfg shareconf.Config, configPath string) (*registry.Record, error) {
	cmd := buildWorkerCommand(s.opts.WorkerCommand, configPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	sinkCfg := s.opts.Log
	if cfg.LoggerOutputFile != "" {
		sinkCfg.Path = cfg.LoggerOutputFile
	}
	sink, sinkPath := sinkCfg.Sink(id)
	if sink != nil {
		// Combined stream: the worker's stdout and stderr share one sink.
		cmd.Stdout = sink
		cmd.Stderr = sink
	} else {
		null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		cmd.Stdout = null
		cmd.Stderr = null
	}

	ipcR, ipcW, err := os.Pipe()
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return nil, fmt.Errorf("failed to open ipc pipe: %w", err)
	}
	// The write end becomes fd 3 in the worker; status messages are
	// newline-delimited JSON written there.
	cmd.ExtraFiles = []*os.File{ipcW}
	cmd.Env = append(os.Environ(),
		"FARMKEEP_SHARE_CONFIG="+configPath,
		"FARMKEEP_SHARE_ID="+id,
	)

	if err := cmd.Start(); err != nil {
		_ = ipcR.Close()
		_ = ipcW.Close()
		if sink != nil {
			_ = sink.Close()
		}
		return nil, fmt.Errorf("failed to spawn worker for share %s: %w", id, err)
	}
	_ = ipcW.Close() // parent keeps only the read end

	c := &child{
		id:     id,
		cmd:    cmd,
		sink:   sink,
		ipc:    ipcR,
		events: make(chan childEvent, 16),
	}
	s.mu.Lock()
	s.children[id] = c
	s.mu.Unlock()

	go c.readIPC()
	go c.monitor()
	go s.runChild(c, configPath)

	return &registry.Record{
		ID:          id,
		ConfigPath:  configPath,
		Config:      cfg,
		Proc:        &handle{pid: cmd.Process.Pid},
		State:       registry.StateRunning,
		LogSinkPath: sinkPath,
	}, nil
}

// runChild is the per-child state machine. It consumes events in arrival
// order and applies the corresponding registry transitions until the
// process is gone.
func (s *Supervisor) runChild(c *child, configPath string) {
	for ev := range c.events {
		switch ev.kind {
		case eventMessage:
			if s.reg.MergeFarmerState(c.id, ev.msg) {
				metrics.IncFarmerStateMerge(c.id)
			}
		case eventExit:
			s.applyTransition(c, configPath, registry.StateStopped, history.EventStopped, ev.err)
			return
		case eventError:
			s.applyTransition(c, configPath, registry.StateErrored, history.EventErrored, ev.err)
			return
		}
	}
}

func (s *Supervisor) applyTransition(c *child, configPath string, to registry.State, et history.EventType, cause error) {
	s.mu.Lock()
	delete(s.children, c.id)
	s.mu.Unlock()

	prev, ok := s.reg.SetState(c.id, to)
	if !ok {
		// Record already destroyed; nothing left to transition.
		return
	}
	metrics.RecordStateTransition(c.id, string(prev), string(to))
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	if to == registry.StateErrored {
		metrics.IncError(c.id)
		s.log.Error("share worker faulted", "id", c.id, "error", cause)
	} else {
		metrics.IncStop(c.id)
		s.log.Info("share worker exited", "id", c.id, "detail", detail)
	}
	s.record(context.Background(), et, c.id, c.cmd.Process.Pid, configPath, detail)
}

// Stop sends the graceful interrupt to the share's worker. The registry
// entry stays; its state flips to stopped when the exit event arrives.
func (s *Supervisor) Stop(id string) error {
	rec, err := s.reg.Get(id)
	if err != nil {
		return err
	}
	if rec.Proc == nil {
		return &registry.NotRunningError{ID: id}
	}
	if err := rec.Proc.Signal(); err != nil {
		return fmt.Errorf("failed to signal share %s: %w", id, err)
	}
	s.log.Info("share stop requested", "id", id, "pid", rec.Proc.PID())
	return nil
}

// Destroy signals the worker and removes the record immediately, without
// waiting for the exit confirmation — the record is being discarded.
func (s *Supervisor) Destroy(ctx context.Context, id string) error {
	rec, err := s.reg.Remove(id)
	if err != nil {
		return err
	}
	_ = rec.Proc.Signal()
	metrics.IncDestroy(id)
	metrics.SetRegisteredShares(s.reg.Len())
	s.record(ctx, history.EventDestroyed, id, rec.Proc.PID(), rec.ConfigPath, "")
	s.log.Info("share destroyed", "id", id)
	return nil
}

// Restart stops a share and relaunches it from its retained config path so
// the original config is re-read and re-validated. The Wildcard id restarts
// every registered share concurrently.
func (s *Supervisor) Restart(ctx context.Context, id string) error {
	if id == Wildcard {
		ids := s.reg.IDs()
		var wg sync.WaitGroup
		errs := make([]error, len(ids))
		for i, one := range ids {
			wg.Add(1)
			go func(i int, one string) {
				defer wg.Done()
				errs[i] = s.restartOne(ctx, one)
			}(i, one)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
	return s.restartOne(ctx, id)
}

func (s *Supervisor) restartOne(ctx context.Context, id string) error {
	rec, err := s.reg.Get(id)
	if err != nil {
		return err
	}
	configPath := rec.ConfigPath
	if rec.State == registry.StateRunning {
		if err := s.Stop(id); err != nil {
			return err
		}
		if err := s.waitStopped(ctx, id); err != nil {
			return err
		}
	}
	_, err = s.Start(ctx, configPath)
	return err
}

// waitStopped polls until the share's record leaves the running state, so
// the relaunch passes the duplicate check.
func (s *Supervisor) waitStopped(ctx context.Context, id string) error {
	deadline := time.Now().Add(s.opts.RestartWait)
	for time.Now().Before(deadline) {
		rec, err := s.reg.Get(id)
		if err != nil || rec.State != registry.StateRunning {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return fmt.Errorf("share %s did not stop within %s", id, s.opts.RestartWait)
}

// Killall destroys every registered share, then schedules unconditional
// termination of the supervisor process after the grace delay so the log
// sinks can flush. This is irreversible self-termination.
func (s *Supervisor) Killall(ctx context.Context) error {
	var firstErr error
	for _, id := range s.reg.IDs() {
		if err := s.Destroy(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.log.Warn("killall complete, supervisor terminating", "grace", s.opts.KillallGrace)
	time.AfterFunc(s.opts.KillallGrace, func() { s.opts.Exit(0) })
	return firstErr
}

// SnapshotEntries returns the current registry as snapshot entries, ordered
// by id.
func (s *Supervisor) SnapshotEntries() []snapshot.Entry {
	recs := s.reg.Snapshot()
	entries := make([]snapshot.Entry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, snapshot.Entry{ID: r.ID, Path: r.ConfigPath})
	}
	return entries
}

// SaveSnapshot persists the registry's {id, path} pairs to path.
func (s *Supervisor) SaveSnapshot(path string) error {
	return snapshot.Save(path, s.SnapshotEntries())
}

// LoadSnapshot relaunches every share recorded in the snapshot at path.
// Individual relaunch failures are logged and joined; they do not abort the
// remaining entries.
func (s *Supervisor) LoadSnapshot(ctx context.Context, path string) error {
	return snapshot.Load(ctx, path, s.log, func(ctx context.Context, configPath string) error {
		_, err := s.Start(ctx, configPath)
		return err
	})
}

func (s *Supervisor) record(ctx context.Context, et history.EventType, id string, pid int, configPath, detail string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, history.Event{
		Type:       et,
		ShareID:    id,
		PID:        pid,
		ConfigPath: configPath,
		Detail:     detail,
	})
}
