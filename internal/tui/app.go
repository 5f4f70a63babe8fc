// Package tui renders Jefe's dashboard with tcell, the same direct
// cell-buffer approach the original TUI used: terminal snapshot cells are
// copied straight into the screen buffer rather than routed through a
// higher-level widget framework.
package tui

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/jefehq/jefe/internal/config"
	"github.com/jefehq/jefe/internal/domain"
	"github.com/jefehq/jefe/internal/notification"
	"github.com/jefehq/jefe/internal/presenter"
	"github.com/jefehq/jefe/internal/ptymux"
	"github.com/jefehq/jefe/internal/state"
	"github.com/jefehq/jefe/internal/theme"
)

// pollInterval is the PTY poll / render cadence.
const pollInterval = 33 * time.Millisecond

// App is the main event loop: it owns the host screen, the application
// state machine, and the PTY manager, and drives all three every tick.
type App struct {
	screen  tcell.Screen
	state   *state.State
	manager *ptymux.Manager
	store   *config.Store
	logger  *slog.Logger

	agentCommand string
	quit         bool
}

// New creates the TUI and initializes the host screen, which takes over the
// terminal; the event loop itself starts only when Run is called.
func New(st *state.State, manager *ptymux.Manager, store *config.Store, agentCommand string, logger *slog.Logger) (*App, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.EnableMouse()
	screen.Clear()

	if logger == nil {
		logger = slog.Default()
	}
	manager.SetColorDefaults(theme.ByName(st.Settings.ActiveTheme))

	return &App{
		screen:       screen,
		state:        st,
		manager:      manager,
		store:        store,
		logger:       logger,
		agentCommand: agentCommand,
	}, nil
}

// Run drives the main loop until quit is requested or the host screen is
// closed. It always finalizes the screen before returning, even on error.
func (a *App) Run() error {
	defer a.screen.Fini()

	eventCh := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventCh <- ev
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !a.quit {
		select {
		case ev := <-eventCh:
			a.handleHostEvent(ev)
		case <-ticker.C:
		}

		a.drainNotifications()
		a.reconcileLiveness()
		a.render()
	}
	return nil
}

// drainNotifications folds every pending OSC notification into the agent
// that owns its slot. Notifications for slots with no matching agent (the
// agent was deleted after the viewer last read output) are discarded.
func (a *App) drainNotifications() {
	for {
		select {
		case sn := <-a.manager.Notifications():
			ag := a.state.AgentBySlot(sn.Slot)
			if ag == nil {
				continue
			}
			ag.Notifications = append(ag.Notifications, domain.NotificationEvent{
				At:      time.Now(),
				Title:   sn.Notification.Title,
				Message: sn.Notification.Message,
			})
		default:
			return
		}
	}
}

func (a *App) handleHostEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		cols, rows := ev.Size()
		a.manager.ResizeAll(rows, cols)
	case *tcell.EventKey:
		a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	}
}

func (a *App) handleKey(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyF12 {
		a.state.Handle(state.Event{Type: state.EventToggleTerminalFocus})
		return
	}

	if a.state.TerminalFocus {
		a.forwardKeyToPTY(ev)
		return
	}

	if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q' && a.state.Screen == state.ScreenDashboard) {
		a.quit = true
		return
	}

	if a.state.Modal == state.ModalConfirmDeleteAgent || a.state.Modal == state.ModalConfirmDeleteRepo {
		var modalEv state.Event
		switch {
		case ev.Key() == tcell.KeyEnter:
			modalEv = state.Event{Type: state.EventConfirmDelete}
		case ev.Key() == tcell.KeyEscape:
			modalEv = state.Event{Type: state.EventCancelDelete}
		case ev.Key() == tcell.KeyRune && (ev.Rune() == ' ' || ev.Rune() == 'd'):
			modalEv = state.Event{Type: state.EventToggleCheckbox}
		default:
			return
		}
		a.runSideEffects(a.state.Handle(modalEv))
		return
	}

	formActive := a.state.Screen == state.ScreenNewAgent || a.state.Screen == state.ScreenNewRepository ||
		a.state.Screen == state.ScreenEditAgent || a.state.Screen == state.ScreenEditRepository

	var jefeEv state.Event
	switch ev.Key() {
	case tcell.KeyUp:
		jefeEv = state.Event{Type: state.EventUp}
	case tcell.KeyDown:
		jefeEv = state.Event{Type: state.EventDown}
	case tcell.KeyLeft:
		jefeEv = state.Event{Type: state.EventLeft}
	case tcell.KeyRight:
		jefeEv = state.Event{Type: state.EventRight}
	case tcell.KeyEnter:
		if formActive {
			jefeEv = state.Event{Type: state.EventSubmitForm}
		} else if a.state.Screen == state.ScreenSplit {
			jefeEv = state.Event{Type: state.EventToggleGrab}
		} else {
			jefeEv = a.dashboardRuneEvent('e')
		}
	case tcell.KeyF1:
		jefeEv = state.Event{Type: state.EventOpenHelp}
	case tcell.KeyEscape:
		jefeEv = state.Event{Type: state.EventBack}
	case tcell.KeyTab:
		jefeEv = state.Event{Type: state.EventNextField}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		jefeEv = state.Event{Type: state.EventBackspace}
	case tcell.KeyRune:
		if formActive {
			jefeEv = state.Event{Type: state.EventEditChar, Char: ev.Rune()}
		} else {
			jefeEv = a.dashboardRuneEvent(ev.Rune())
		}
	default:
		return
	}

	effects := a.state.Handle(jefeEv)
	a.runSideEffects(effects)
}

func (a *App) dashboardRuneEvent(r rune) state.Event {
	switch r {
	case '?', 'h':
		return state.Event{Type: state.EventOpenHelp}
	case '/':
		return state.Event{Type: state.EventOpenSearch}
	case 'n':
		return state.Event{Type: state.EventOpenNewAgent, RepoSlug: a.state.SelectedRepoSlug}
	case 'N':
		return state.Event{Type: state.EventOpenNewRepository}
	case 'e':
		if repo := a.state.SelectedRepository(); repo != nil {
			agentID := ""
			if ag := a.state.SelectedAgent(); ag != nil {
				agentID = ag.ID.String()
			}
			return state.Event{Type: state.EventOpenEdit, RepoSlug: repo.Slug, AgentID: agentID}
		}
	case 'd':
		if ag := a.state.SelectedAgent(); ag != nil {
			return state.Event{Type: state.EventRequestDelete, RepoSlug: a.state.SelectedRepoSlug, AgentID: ag.ID.String()}
		}
	case 'k':
		return state.Event{Type: state.EventKillAgent}
	case 'l':
		return state.Event{Type: state.EventRelaunchAgent}
	case 's':
		return state.Event{Type: state.EventOpenSplit}
	case 'r':
		return state.Event{Type: state.EventFocusSidebar}
	case 'a':
		return state.Event{Type: state.EventFocusAgentList}
	case 't':
		return state.Event{Type: state.EventFocusTerminal}
	case '1':
		return state.Event{Type: state.EventSetTheme, ThemeSlug: "green-screen"}
	case '2':
		return state.Event{Type: state.EventSetTheme, ThemeSlug: "amber"}
	case '3':
		return state.Event{Type: state.EventSetTheme, ThemeSlug: "paper"}
	}
	return state.Event{Type: state.EventCharInput, Char: r}
}

func (a *App) forwardKeyToPTY(ev *tcell.EventKey) {
	ag := a.state.SelectedAgent()
	if ag == nil || !ag.HasPTYSlot() {
		return
	}
	key := tcellKeyToJefeKey(ev)
	data, ok := ptymux.KeyToBytes(key)
	if !ok {
		return
	}
	if err := a.manager.WriteInput(ag.PTYSlot, data); err != nil {
		a.logger.Debug("write input failed", "error", err)
	}
}

func tcellKeyToJefeKey(ev *tcell.EventKey) ptymux.KeyEvent {
	mod := ev.Modifiers()
	k := ptymux.KeyEvent{Ctrl: mod&tcell.ModCtrl != 0, Alt: mod&tcell.ModAlt != 0, Shift: mod&tcell.ModShift != 0}

	switch ev.Key() {
	case tcell.KeyRune:
		k.Rune = ev.Rune()
	case tcell.KeyUp:
		k.Name = ptymux.KeyUp
	case tcell.KeyDown:
		k.Name = ptymux.KeyDown
	case tcell.KeyLeft:
		k.Name = ptymux.KeyLeft
	case tcell.KeyRight:
		k.Name = ptymux.KeyRight
	case tcell.KeyHome:
		k.Name = ptymux.KeyHome
	case tcell.KeyEnd:
		k.Name = ptymux.KeyEnd
	case tcell.KeyPgUp:
		k.Name = ptymux.KeyPageUp
	case tcell.KeyPgDn:
		k.Name = ptymux.KeyPageDown
	case tcell.KeyInsert:
		k.Name = ptymux.KeyInsert
	case tcell.KeyDelete:
		k.Name = ptymux.KeyDelete
	case tcell.KeyEnter:
		k.Name = ptymux.KeyEnter
	case tcell.KeyTab:
		k.Name = ptymux.KeyTab
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		k.Name = ptymux.KeyBackspace
	case tcell.KeyEscape:
		k.Name = ptymux.KeyEscape
	case tcell.KeyCtrlA, tcell.KeyCtrlB, tcell.KeyCtrlC, tcell.KeyCtrlD:
		k.Ctrl = true
		k.Rune = rune('a' + (int(ev.Key()) - int(tcell.KeyCtrlA)))
	}
	return k
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	ag := a.state.SelectedAgent()
	if !a.state.TerminalFocus || ag == nil || !ag.HasPTYSlot() {
		return
	}
	col, row := ev.Position()
	col -= 60 // the preview viewport starts at column 60 (see render)
	if col < 0 {
		return
	}
	button, action, ok := tcellMouseToJefe(ev)
	if !ok {
		return
	}
	mode := a.manager.ViewerMouseMode(ag.PTYSlot)
	data, encOK := ptymux.MouseToBytes(ptymux.MouseEvent{Button: button, Action: action, Col: col, Row: row}, mode)
	if !encOK {
		return
	}
	_ = a.manager.WriteInput(ag.PTYSlot, data)
}

func tcellMouseToJefe(ev *tcell.EventMouse) (ptymux.MouseButton, ptymux.MouseAction, bool) {
	buttons := ev.Buttons()
	switch {
	case buttons&tcell.Button1 != 0:
		return ptymux.MouseLeft, ptymux.MousePress, true
	case buttons&tcell.WheelUp != 0:
		return ptymux.MouseWheelUp, ptymux.MousePress, true
	case buttons&tcell.WheelDown != 0:
		return ptymux.MouseWheelDown, ptymux.MousePress, true
	case buttons == tcell.ButtonNone:
		return ptymux.MouseLeft, ptymux.MouseRelease, true
	}
	return 0, 0, false
}

func (a *App) runSideEffects(effects []state.SideEffect) {
	for _, e := range effects {
		switch e.Kind {
		case state.EffectCreateSession:
			slot, err := a.manager.AddSession(e.WorkDir, e.Profile, e.Mode, a.agentCommand)
			if err != nil {
				a.logger.Warn("add session failed", "agent", e.AgentID, "error", err)
				continue
			}
			a.attachSlotToAgent(e.AgentID, slot)
		case state.EffectKillSession:
			if err := a.manager.KillSession(e.Slot); err != nil {
				a.logger.Warn("kill session failed", "slot", e.Slot, "error", err)
			}
		case state.EffectRelaunchSession:
			if err := a.manager.RelaunchSession(e.Slot, a.agentCommand); err != nil {
				a.logger.Warn("relaunch failed", "agent", e.AgentID, "error", err)
				continue
			}
			a.setAgentStatus(e.AgentID, domain.StatusRunning)
		case state.EffectDeleteWorkDir:
			if err := os.RemoveAll(e.WorkDir); err != nil {
				a.logger.Warn("delete work dir failed", "work_dir", e.WorkDir, "error", err)
			}
		case state.EffectPersistCatalog:
			if err := a.store.SaveCatalog(a.state.Catalog); err != nil {
				a.logger.Warn("persist catalog failed", "error", err)
			}
		case state.EffectPersistSettings:
			if err := a.store.SaveSettings(a.state.Settings); err != nil {
				a.logger.Warn("persist settings failed", "error", err)
			}
			a.manager.SetColorDefaults(theme.ByName(a.state.Settings.ActiveTheme))
		}
	}
}

func (a *App) attachSlotToAgent(agentID string, slot int) {
	for _, repo := range a.state.Catalog.Repositories {
		for _, ag := range repo.Agents {
			if ag.ID.String() == agentID {
				ag.PTYSlot = slot
				ag.Status = domain.StatusRunning
				return
			}
		}
	}
}

func (a *App) setAgentStatus(agentID string, status domain.AgentStatus) {
	for _, repo := range a.state.Catalog.Repositories {
		for _, ag := range repo.Agents {
			if ag.ID.String() == agentID {
				ag.Status = status
				return
			}
		}
	}
}

func (a *App) reconcileLiveness() {
	a.state.ReconcileLiveness(a.manager.IsAlive)
}

func (a *App) render() {
	a.screen.Clear()
	width, height := a.screen.Size()

	a.renderSidebar(0, 0, 24, height-1)
	a.renderAgentList(24, 0, 36, height-1)
	a.renderPreview(60, 0, width-60, height-1)
	a.renderStatusLine(0, height-1, width)

	if a.state.Modal == state.ModalHelp {
		a.renderHelp(width, height)
	}

	a.screen.Show()
}

func (a *App) renderSidebar(x, y, w, h int) {
	style := tcell.StyleDefault
	row := y
	for _, repo := range a.state.Catalog.Repositories {
		marker := "  "
		if repo.Slug == a.state.SelectedRepoSlug {
			marker = "> "
		}
		a.drawText(x, row, marker+presenter.Truncate(repo.Name, w-2), style)
		row++
	}
}

func (a *App) renderAgentList(x, y, w, h int) {
	repo := a.state.SelectedRepository()
	if repo == nil {
		return
	}
	style := tcell.StyleDefault
	row := y
	for _, ag := range repo.Agents {
		marker := "  "
		if ag.ID.String() == a.state.SelectedAgentID {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s #%d %s", marker, presenter.StatusIcon(ag.Status), ag.DisplayID, ag.Name)
		a.drawText(x, row, presenter.Truncate(line, w), style)
		row++
	}
}

func (a *App) renderPreview(x, y, w, h int) {
	ag := a.state.SelectedAgent()
	if ag == nil || !ag.HasPTYSlot() {
		return
	}
	if err := a.manager.EnsureAttached(ag.PTYSlot); err != nil {
		a.logger.Debug("ensure attached failed", "error", err)
		return
	}
	snap := a.manager.TerminalSnapshot(ag.PTYSlot)
	for row := 0; row < snap.Rows && row < h; row++ {
		for col, cell := range snap.Cells[row] {
			if col >= w {
				break
			}
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(cell.FG.R), int32(cell.FG.G), int32(cell.FG.B))).
				Background(tcell.NewRGBColor(int32(cell.BG.R), int32(cell.BG.G), int32(cell.BG.B))).
				Bold(cell.Bold).
				Underline(cell.Underline)
			a.screen.SetContent(x+col, y+row, cell.Rune, nil, style)
		}
	}
}

func (a *App) renderStatusLine(x, y, w int) {
	style := tcell.StyleDefault.Reverse(true)
	text := "q quit  ? help  n new agent  d delete  k kill  l relaunch  s split  F12 terminal focus"
	if a.state.TerminalFocus {
		text = "[terminal focus]  F12 to release"
	}
	a.drawText(x, y, presenter.Truncate(text, w), style)
}

func (a *App) renderHelp(width, height int) {
	lines := []string{
		"q        quit",
		"? h F1   help",
		"1 2 3    theme",
		"F12      toggle terminal focus",
		"arrows   navigate",
		"r a t    focus repos / agents / terminal",
		"n / N    new agent / new repository",
		"e Enter  edit",
		"d        delete",
		"k        kill",
		"l        relaunch",
		"s        split view",
		"/        search",
	}
	boxW, boxH := 40, len(lines)+2
	boxX, boxY := (width-boxW)/2, (height-boxH)/2
	style := tcell.StyleDefault
	a.drawBox(boxX, boxY, boxW, boxH, style)
	for i, line := range lines {
		idx := i + a.state.HelpScrollOffset
		if idx < 0 || idx >= len(lines) {
			continue
		}
		a.drawText(boxX+2, boxY+1+i, lines[idx], style)
	}
}

func (a *App) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range text {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (a *App) drawBox(x, y, w, h int, style tcell.Style) {
	a.screen.SetContent(x, y, tcell.RuneULCorner, nil, style)
	a.screen.SetContent(x+w-1, y, tcell.RuneURCorner, nil, style)
	a.screen.SetContent(x, y+h-1, tcell.RuneLLCorner, nil, style)
	a.screen.SetContent(x+w-1, y+h-1, tcell.RuneLRCorner, nil, style)
	for i := x + 1; i < x+w-1; i++ {
		a.screen.SetContent(i, y, tcell.RuneHLine, nil, style)
		a.screen.SetContent(i, y+h-1, tcell.RuneHLine, nil, style)
	}
	for i := y + 1; i < y+h-1; i++ {
		a.screen.SetContent(x, i, tcell.RuneVLine, nil, style)
		a.screen.SetContent(x+w-1, i, tcell.RuneVLine, nil, style)
	}
}
