// Package ptymux is the PTY session manager: it owns every live agent
// session (each hosted in its own tmux multiplexer session), attaches at
// most one viewer at a time, and exposes cell-level terminal snapshots for
// rendering.
package ptymux

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// tmux wraps the real tmux CLI via os/exec: every operation is a subprocess
// invocation, errors are wrapped with context, and nothing here parses
// tmux's own config files.
type tmux struct {
	logger *slog.Logger
}

func newTmux(logger *slog.Logger) *tmux {
	if logger == nil {
		logger = slog.Default()
	}
	return &tmux{logger: logger}
}

// hasSession reports whether a session with the given name currently
// exists on the default tmux server.
func (t *tmux) hasSession(name string) bool {
	cmd := exec.Command("tmux", "has-session", "-t", name)
	return cmd.Run() == nil
}

// newSession creates a detached session named name, running command with
// args as its root command (not via a shell) in dir.
func (t *tmux) newSession(name, dir, command string, args []string) error {
	cmdArgs := append([]string{"new-session", "-d", "-s", name, "-c", dir, "--", command}, args...)
	cmd := exec.Command("tmux", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux new-session %s: %s (%w)", name, strings.TrimSpace(string(output)), err)
	}
	return nil
}

// killSession terminates a session. Killing an already-dead session is a
// no-op success.
func (t *tmux) killSession(name string) error {
	if !t.hasSession(name) {
		return nil
	}
	cmd := exec.Command("tmux", "kill-session", "-t", name)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux kill-session %s: %s (%w)", name, strings.TrimSpace(string(output)), err)
	}
	return nil
}

// attachArgs returns the argv for a subprocess that attaches to the named
// session: the external session's own attach subcommand, run inside a
// PTY the caller hosts.
func attachArgs(name string) (string, []string) {
	return "tmux", []string{"attach-session", "-t", name}
}

// resetServer kills the entire tmux server, used for the single
// spawn-failure retry against a clean multiplexer server.
func (t *tmux) resetServer() {
	cmd := exec.Command("tmux", "kill-server")
	_ = cmd.Run()
}
