package supervisor

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// A child's lifecycle is driven by an explicit event loop: IPC messages,
// exit, and fault events all arrive on one channel and are applied to the
// registry in arrival order. This keeps the state transitions serialized
// per share regardless of which goroutine observed the event.

type eventKind int

const (
	eventMessage eventKind = iota
	eventExit
	eventError
)

type childEvent struct {
	kind eventKind
	msg  map[string]any
	err  error
}

// child owns one launched worker process: its command, its combined log
// sink, and the parent end of the IPC status pipe.
type child struct {
	id     string
	cmd    *exec.Cmd
	sink   io.WriteCloser
	ipc    *os.File
	events chan childEvent
}

// handle is the registry's process handle for a child. Signals go to the
// whole process group; workers are stopped with SIGINT only, never killed.
type handle struct {
	pid int
}

func (h *handle) PID() int { return h.pid }

func (h *handle) Signal() error {
	return syscall.Kill(-h.pid, syscall.SIGINT)
}

// buildWorkerCommand constructs the *exec.Cmd for the configured worker
// command string. An explicit "sh -c ..." prefix is honored without adding
// another shell layer; shell metacharacters force /bin/sh -c; otherwise the
// string is split into plain argv and the config path is appended.
func buildWorkerCommand(cmdStr, configPath string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if after, ok := explicitShellArg(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", after)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	args := append(parts[1:], "--config", configPath)
	// #nosec G204
	return exec.Command(parts[0], args...)
}

// explicitShellArg detects a leading "sh -c <ARG>" and returns the script
// after -c, stripping one pair of wrapping quotes so redirections inside the
// script survive.
func explicitShellArg(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}

// readIPC decodes newline-delimited JSON status messages from the worker's
// IPC pipe and forwards them as message events until the pipe closes.
func (c *child) readIPC() {
	sc := bufio.NewScanner(c.ipc)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			// Malformed status lines are dropped; the worker owns its format.
			continue
		}
		c.events <- childEvent{kind: eventMessage, msg: msg}
	}
	_ = c.ipc.Close()
}

// monitor reaps the worker and classifies its end of life. Any observed
// process exit — clean, signaled, or non-zero — is an exit event; only a
// wait fault reported by the OS itself becomes an error event.
func (c *child) monitor() {
	err := c.cmd.Wait()
	_ = c.ipc.Close()
	if c.sink != nil {
		_ = c.sink.Close()
	}
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		c.events <- childEvent{kind: eventExit, err: err}
		return
	}
	c.events <- childEvent{kind: eventError, err: err}
}
