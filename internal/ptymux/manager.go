package ptymux

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/jefehq/jefe/internal/notification"
	"github.com/jefehq/jefe/internal/theme"
)

const (
	readChunkSize        = 4096
	viewerJoinTimeout    = 500 * time.Millisecond
	notificationQueueLen = 32
)

// SlotNotification pairs a detected OSC notification with the slot whose
// attached viewer observed it.
type SlotNotification struct {
	Slot         int
	Notification notification.Notification
}

// AgentSession is one entry in the manager's session vector: everything
// needed to (re)create the multiplexer session it represents.
type AgentSession struct {
	WorkDir      string
	Profile      string
	Mode         string
	AgentCommand string
	killed       bool
}

func (s *AgentSession) sessionName(slot int) string {
	return fmt.Sprintf("jefe-%d", slot)
}

// attachedViewer is the one spawned process currently reading a session's
// output, plus the reader goroutine that feeds its shared terminal model.
type attachedViewer struct {
	slot     int
	cmd      *exec.Cmd
	ptyFile  *os.File
	term     *terminalModel
	mouse    MouseMode
	done     chan struct{}
	readerWg sync.WaitGroup
}

// Manager owns every live agent session and at most one attached viewer,
// per the PTY session manager's contract: terminal ownership for every
// agent, rendering for only the one currently viewed.
type Manager struct {
	mu sync.Mutex

	tmux     *tmux
	logger   *slog.Logger
	sessions []*AgentSession
	viewer   *attachedViewer
	defaults theme.Palette
	viewCols int
	viewRows int
	notifyCh chan SlotNotification
}

// NewManager returns a manager with no sessions and no attached viewer.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tmux:     newTmux(logger),
		logger:   logger,
		sessions: make([]*AgentSession, 0),
		defaults: theme.GreenScreen(),
		viewRows: 24,
		viewCols: 80,
		notifyCh: make(chan SlotNotification, notificationQueueLen),
	}
}

// Notifications returns the channel of OSC notifications detected in
// attached-viewer output. The dispatch loop drains it on each tick; a full
// queue drops the oldest-pending notification rather than blocking the
// reader goroutine.
func (m *Manager) Notifications() <-chan SlotNotification {
	return m.notifyCh
}

// AddSession creates a new multiplexer session running the agent CLI in
// workDir and returns its slot index. A stale session occupying the target
// name is killed first. Spawn failure is retried once against a freshly
// reset multiplexer server before being surfaced.
func (m *Manager) AddSession(workDir, profile, mode, agentCommand string) (slot int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot = len(m.sessions)
	session := &AgentSession{WorkDir: workDir, Profile: profile, Mode: mode, AgentCommand: agentCommand}
	name := session.sessionName(slot)

	args := buildInvocation(profile, mode)
	_ = m.tmux.killSession(name)
	if spawnErr := m.tmux.newSession(name, workDir, agentCommand, args); spawnErr != nil {
		m.logger.Warn("session spawn failed, retrying after server reset", "slot", slot, "error", spawnErr)
		m.tmux.resetServer()
		if retryErr := m.tmux.newSession(name, workDir, agentCommand, args); retryErr != nil {
			return -1, fmt.Errorf("add session: %w", retryErr)
		}
	}

	m.sessions = append(m.sessions, session)
	return slot, nil
}

// buildInvocation assembles the agent CLI argument list: --profile-load
// profile iff profile is non-empty, followed by the mode string split on
// whitespace.
func buildInvocation(profile, mode string) []string {
	var args []string
	if profile != "" {
		args = append(args, "--profile-load", profile)
	}
	if trimmed := strings.TrimSpace(mode); trimmed != "" {
		args = append(args, strings.Fields(trimmed)...)
	}
	return args
}

// IsAlive satisfies config.LivenessChecker: it conservatively reports false
// for any slot it cannot positively confirm is alive. It checks the
// multiplexer directly by the slot's canonical session name, so it works
// even for slots recovered from a persisted catalog before Seed has been
// called for this process.
func (m *Manager) IsAlive(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAliveLocked(slot)
}

func (m *Manager) isAliveLocked(slot int) bool {
	if slot < 0 {
		return false
	}
	if slot < len(m.sessions) {
		if s := m.sessions[slot]; s != nil && s.killed {
			return false
		}
	}
	return m.tmux.hasSession(fmt.Sprintf("jefe-%d", slot))
}

// Seed populates the manager's session vector from a loaded catalog so
// that kill/relaunch/attach operate on sessions this process did not
// itself create. slots is the full set of (slot, work_dir, profile, mode)
// tuples recovered from persisted agents; gaps are filled with empty
// placeholders so slot indices still line up with tmux session names.
func (m *Manager) Seed(slots map[int]AgentSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxSlot := -1
	for slot := range slots {
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	if maxSlot < 0 {
		return
	}

	if len(m.sessions) <= maxSlot {
		grown := make([]*AgentSession, maxSlot+1)
		copy(grown, m.sessions)
		m.sessions = grown
	}
	for slot, session := range slots {
		session := session
		m.sessions[slot] = &session
	}
	for i := range m.sessions {
		if m.sessions[i] == nil {
			m.sessions[i] = &AgentSession{}
		}
	}
}

// EnsureAttached makes slot the active viewer, tearing down any previous
// viewer first. If already attached to slot and the viewer is alive, it
// returns immediately.
func (m *Manager) EnsureAttached(slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viewer != nil && m.viewer.slot == slot && m.viewerAliveLocked() {
		return nil
	}

	m.teardownViewerLocked()

	if slot < 0 || slot >= len(m.sessions) {
		return fmt.Errorf("ensure attached: slot %d out of range", slot)
	}
	session := m.sessions[slot]
	name := session.sessionName(slot)

	if !m.tmux.hasSession(name) {
		args := buildInvocation(session.Profile, session.Mode)
		if err := m.tmux.newSession(name, session.WorkDir, session.AgentCommand, args); err != nil {
			return fmt.Errorf("ensure attached: recreate session: %w", err)
		}
	}

	viewer, err := m.spawnViewerLocked(slot, name)
	if err != nil {
		m.logger.Warn("viewer spawn failed, retrying after server reset", "slot", slot, "error", err)
		m.tmux.resetServer()
		viewer, err = m.spawnViewerLocked(slot, name)
		if err != nil {
			return fmt.Errorf("ensure attached: %w", err)
		}
	}

	m.viewer = viewer
	return nil
}

func (m *Manager) viewerAliveLocked() bool {
	if m.viewer == nil {
		return false
	}
	select {
	case <-m.viewer.done:
		return false
	default:
		return true
	}
}

func (m *Manager) spawnViewerLocked(slot int, sessionName string) (*attachedViewer, error) {
	command, args := attachArgs(sessionName)
	cmd := exec.Command(command, args...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(m.viewRows), Cols: uint16(m.viewCols)})
	if err != nil {
		return nil, err
	}

	v := &attachedViewer{
		slot:    slot,
		cmd:     cmd,
		ptyFile: ptmx,
		term:    newTerminalModel(m.viewRows, m.viewCols),
		done:    make(chan struct{}),
	}

	v.readerWg.Add(1)
	go m.readerLoop(v)

	return v, nil
}

// readerLoop reads raw viewer output in fixed-size chunks and advances the
// shared terminal model; it exits on EOF (PTY master closed during
// teardown) or any other read error.
func (m *Manager) readerLoop(v *attachedViewer) {
	defer v.readerWg.Done()
	defer close(v.done)

	var mouseMode MouseMode
	buf := make([]byte, readChunkSize)
	for {
		n, err := v.ptyFile.Read(buf)
		if n > 0 {
			v.term.process(buf[:n])
			for _, note := range notification.Detect(buf[:n]) {
				select {
				case m.notifyCh <- SlotNotification{Slot: v.slot, Notification: note}:
				default:
					select {
					case <-m.notifyCh:
					default:
					}
					select {
					case m.notifyCh <- SlotNotification{Slot: v.slot, Notification: note}:
					default:
					}
				}
			}
			if updated := DetectModeChanges(buf[:n], mouseMode); updated != mouseMode {
				mouseMode = updated
				m.SetViewerMouseMode(v.slot, mouseMode)
			}
		}
		if err != nil {
			if err != io.EOF {
				m.logger.Debug("viewer reader stopped", "slot", v.slot, "error", err)
			}
			return
		}
	}
}

// teardownViewerLocked kills the current viewer child, drops its PTY
// master, and joins the reader with a bounded wait; on timeout the handle
// is abandoned rather than blocking indefinitely.
func (m *Manager) teardownViewerLocked() {
	if m.viewer == nil {
		return
	}
	v := m.viewer
	m.viewer = nil

	if v.cmd != nil && v.cmd.Process != nil {
		_ = v.cmd.Process.Kill()
	}
	if v.ptyFile != nil {
		_ = v.ptyFile.Close()
	}

	joined := make(chan struct{})
	go func() {
		v.readerWg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(viewerJoinTimeout):
		m.logger.Warn("viewer reader join timed out, abandoning thread", "slot", v.slot)
	}

	if v.cmd != nil {
		_ = v.cmd.Wait()
	}
}

// TerminalSnapshot extracts a resolved cell grid for slot's viewer. If slot
// is not the current viewer, or the viewer is unreachable, it returns an
// empty grid sized to the last known viewport dimensions.
func (m *Manager) TerminalSnapshot(slot int) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viewer == nil || m.viewer.slot != slot {
		return emptySnapshot(m.viewRows, m.viewCols)
	}
	return m.viewer.term.snapshot(m.defaults, selection{})
}

func emptySnapshot(rows, cols int) Snapshot {
	cells := make([][]Cell, rows)
	for i := range cells {
		cells[i] = []Cell{}
	}
	return Snapshot{Rows: rows, Cols: cols, Cells: cells}
}

// WriteInput writes an already-encoded byte sequence to slot's viewer PTY.
// It is an error to write when slot is not the attached viewer.
func (m *Manager) WriteInput(slot int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viewer == nil || m.viewer.slot != slot {
		return fmt.Errorf("write input: slot %d is not attached", slot)
	}
	_, err := m.viewer.ptyFile.Write(data)
	return err
}

// ResizeAll resizes the active viewer's PTY and terminal model, and
// remembers the dimensions for the next spawned viewer. Failures are
// logged, never returned, matching the non-fatal resize contract.
func (m *Manager) ResizeAll(rows, cols int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.viewRows, m.viewCols = rows, cols
	if m.viewer == nil {
		return
	}
	m.viewer.term.resize(rows, cols)
	if err := pty.Setsize(m.viewer.ptyFile, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		m.logger.Warn("resize failed", "slot", m.viewer.slot, "error", err)
	}
}

// KillSession terminates slot's multiplexer session, tearing down the
// viewer first if it is the one currently attached. Killing an
// already-dead session is a no-op success.
func (m *Manager) KillSession(slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot < 0 || slot >= len(m.sessions) {
		return fmt.Errorf("kill session: slot %d out of range", slot)
	}

	if m.viewer != nil && m.viewer.slot == slot {
		m.teardownViewerLocked()
	}

	session := m.sessions[slot]
	if session == nil {
		session = &AgentSession{}
		m.sessions[slot] = session
	}
	if err := m.tmux.killSession(session.sessionName(slot)); err != nil {
		return fmt.Errorf("kill session: %w", err)
	}
	session.killed = true
	return nil
}

// RelaunchSession destroys and re-creates slot's session from its stored
// metadata. The slot retains its metadata regardless of outcome.
func (m *Manager) RelaunchSession(slot int, agentCommand string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slot < 0 || slot >= len(m.sessions) {
		return fmt.Errorf("relaunch session: slot %d out of range", slot)
	}
	session := m.sessions[slot]
	if session == nil {
		session = &AgentSession{}
		m.sessions[slot] = session
	}
	name := session.sessionName(slot)

	if m.viewer != nil && m.viewer.slot == slot {
		m.teardownViewerLocked()
	}
	_ = m.tmux.killSession(name)

	args := buildInvocation(session.Profile, session.Mode)
	if err := m.tmux.newSession(name, session.WorkDir, agentCommand, args); err != nil {
		m.logger.Warn("relaunch spawn failed, retrying after server reset", "slot", slot, "error", err)
		m.tmux.resetServer()
		if retryErr := m.tmux.newSession(name, session.WorkDir, agentCommand, args); retryErr != nil {
			return fmt.Errorf("relaunch session: %w", retryErr)
		}
	}
	session.killed = false
	return nil
}

// SetColorDefaults replaces the palette used for subsequent snapshots.
func (m *Manager) SetColorDefaults(p theme.Palette) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults = p
}

// SetViewerMouseMode records which mouse-reporting modes the active
// viewer's child has enabled, as observed by the ANSI parser. MouseToBytes
// callers should consult this before encoding.
func (m *Manager) SetViewerMouseMode(slot int, mode MouseMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewer != nil && m.viewer.slot == slot {
		m.viewer.mouse = mode
	}
}

// ViewerMouseMode returns the active viewer's recorded mouse mode, or the
// zero value (all modes disabled) if slot is not attached.
func (m *Manager) ViewerMouseMode(slot int) MouseMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewer != nil && m.viewer.slot == slot {
		return m.viewer.mouse
	}
	return MouseMode{}
}

// Close tears down the attached viewer and kills every managed session,
// matching the drop-terminates-everything lifecycle invariant.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownViewerLocked()
	for slot, session := range m.sessions {
		if session.killed {
			continue
		}
		_ = m.tmux.killSession(session.sessionName(slot))
		session.killed = true
	}
}
