package state

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jefehq/jefe/internal/domain"
)

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Repositories: []*domain.Repository{
			{
				Name: "App", Slug: "app", BaseDir: "/work/app",
				Agents: []*domain.Agent{
					{ID: uuid.New(), DisplayID: 1, Name: "first", PTYSlot: -1},
					{ID: uuid.New(), DisplayID: 2, Name: "second", WorkDir: "/work/app/second", PTYSlot: 0, Status: domain.StatusRunning},
				},
			},
		},
	}
}

func TestNewSelectsFirstRepoAndComputesNextDisplayID(t *testing.T) {
	s := New(testCatalog())
	if s.SelectedRepoSlug != "app" {
		t.Errorf("SelectedRepoSlug = %q, want app", s.SelectedRepoSlug)
	}
	if s.nextDisplayID != 3 {
		t.Errorf("nextDisplayID = %d, want 3", s.nextDisplayID)
	}
}

func TestToggleTerminalFocusIsGlobal(t *testing.T) {
	s := New(testCatalog())
	s.Modal = ModalHelp
	s.Handle(Event{Type: EventToggleTerminalFocus})
	if !s.TerminalFocus {
		t.Error("terminal focus should toggle on regardless of modal")
	}
}

func TestHandleWhileTerminalFocusedIsNoop(t *testing.T) {
	s := New(testCatalog())
	s.TerminalFocus = true
	before := s.Screen
	beforeModal := s.Modal
	s.Handle(Event{Type: EventOpenHelp})
	if s.Screen != before {
		t.Error("events should not mutate screen while terminal focus is on")
	}
	if s.Modal != beforeModal {
		t.Error("events should not open a modal while terminal focus is on")
	}
}

func TestOpenNewAgentThenSubmitCreatesAgentAndSession(t *testing.T) {
	s := New(testCatalog())
	timeNow = func() time.Time { return time.Unix(0, 0) }
	defer func() { timeNow = time.Now }()

	s.Handle(Event{Type: EventOpenNewAgent, RepoSlug: "app"})
	if s.Screen != ScreenNewAgent {
		t.Fatalf("Screen = %v, want ScreenNewAgent", s.Screen)
	}

	s.Form.Focus = FieldName
	for _, r := range "third" {
		s.Handle(Event{Type: EventEditChar, Char: r})
	}

	effects := s.Handle(Event{Type: EventSubmitForm})
	if s.Screen != ScreenDashboard {
		t.Errorf("Screen after submit = %v, want ScreenDashboard", s.Screen)
	}

	repo := s.SelectedRepository()
	if len(repo.Agents) != 3 {
		t.Fatalf("agent count = %d, want 3", len(repo.Agents))
	}
	created := repo.Agents[2]
	if created.Name != "third" {
		t.Errorf("created agent name = %q, want third", created.Name)
	}
	if created.WorkDir != "/work/app/third" {
		t.Errorf("created agent work dir = %q, want /work/app/third", created.WorkDir)
	}

	var sawCreate, sawPersist bool
	for _, e := range effects {
		if e.Kind == EffectCreateSession {
			sawCreate = true
		}
		if e.Kind == EffectPersistCatalog {
			sawPersist = true
		}
	}
	if !sawCreate || !sawPersist {
		t.Errorf("effects = %+v, want CreateSession and PersistCatalog", effects)
	}
}

func TestWorkDirFollowsNameUntilManuallyEdited(t *testing.T) {
	s := New(testCatalog())
	s.Handle(Event{Type: EventOpenNewAgent, RepoSlug: "app"})

	s.Form.Focus = FieldName
	s.Handle(Event{Type: EventEditChar, Char: 'x'})
	if s.Form.Values[FieldWorkDir] != "/work/app/x" {
		t.Errorf("work dir = %q, want auto-derived", s.Form.Values[FieldWorkDir])
	}

	s.Form.Focus = FieldWorkDir
	s.Handle(Event{Type: EventEditChar, Char: '!'})
	if !s.Form.WorkDirManuallySet {
		t.Fatal("editing work dir directly should latch the manual flag")
	}

	s.Form.Focus = FieldName
	s.Handle(Event{Type: EventEditChar, Char: 'y'})
	if s.Form.Values[FieldWorkDir] == "/work/app/xy" {
		t.Error("work dir should stop following name edits once latched")
	}
}

func TestEditAgentDoesNotRewriteWorkDir(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	agentID := cat.Repositories[0].Agents[0].ID.String()

	s.Pane = PaneAgentList
	s.Handle(Event{Type: EventOpenEdit, RepoSlug: "app", AgentID: agentID})
	originalWorkDir := s.Form.Values[FieldWorkDir]

	s.Form.Focus = FieldName
	s.Handle(Event{Type: EventEditChar, Char: 'Z'})
	s.Handle(Event{Type: EventSubmitForm})

	updated := cat.Repositories[0].Agents[0]
	if updated.WorkDir != originalWorkDir {
		t.Errorf("WorkDir changed to %q after edit, want unchanged %q", updated.WorkDir, originalWorkDir)
	}
	if updated.Name != "firstZ" {
		t.Errorf("Name = %q, want firstZ", updated.Name)
	}
}

func TestDeleteAgentDefaultsCheckboxOnAndCascadesKill(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	s.Pane = PaneAgentList
	running := cat.Repositories[0].Agents[1]

	s.Handle(Event{Type: EventRequestDelete, AgentID: running.ID.String()})
	if !s.Form.AlsoDeleteWorkDir {
		t.Error("delete-agent checkbox should default to on")
	}

	s.SelectedAgentID = running.ID.String()
	effects := s.Handle(Event{Type: EventConfirmDelete})

	var sawKill, sawDeleteWorkDir bool
	for _, e := range effects {
		if e.Kind == EffectKillSession && e.Slot == 0 {
			sawKill = true
		}
		if e.Kind == EffectDeleteWorkDir && e.WorkDir == running.WorkDir {
			sawDeleteWorkDir = true
		}
	}
	if !sawKill {
		t.Errorf("effects = %+v, want a kill for the running agent's slot", effects)
	}
	if !sawDeleteWorkDir {
		t.Errorf("effects = %+v, want a delete-work-dir effect for %q", effects, running.WorkDir)
	}
	if len(cat.Repositories[0].Agents) != 1 {
		t.Errorf("agent count after delete = %d, want 1", len(cat.Repositories[0].Agents))
	}
}

func TestDeleteAgentSkipsWorkDirWhenCheckboxOff(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	s.Pane = PaneAgentList
	running := cat.Repositories[0].Agents[1]

	s.Handle(Event{Type: EventRequestDelete, AgentID: running.ID.String()})
	s.Handle(Event{Type: EventToggleCheckbox})
	s.SelectedAgentID = running.ID.String()
	effects := s.Handle(Event{Type: EventConfirmDelete})

	for _, e := range effects {
		if e.Kind == EffectDeleteWorkDir {
			t.Errorf("effects = %+v, want no delete-work-dir effect with checkbox off", effects)
		}
	}
}

func TestDeleteRepositoryCascadesToAllAgents(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	s.Pane = PaneSidebar

	s.Handle(Event{Type: EventRequestDelete, RepoSlug: "app"})
	effects := s.Handle(Event{Type: EventConfirmDelete})

	if len(cat.Repositories) != 0 {
		t.Errorf("repository count = %d, want 0", len(cat.Repositories))
	}
	var killCount int
	for _, e := range effects {
		if e.Kind == EffectKillSession {
			killCount++
		}
	}
	if killCount != 1 {
		t.Errorf("kill effects = %d, want 1 (only the running agent has a slot)", killCount)
	}
}

func TestReconcileLivenessTransitionsOnlyDeadSlots(t *testing.T) {
	cat := testCatalog()
	s := New(cat)

	changed := s.ReconcileLiveness(func(slot int) bool { return false })
	if !changed {
		t.Error("ReconcileLiveness should report a change")
	}
	if cat.Repositories[0].Agents[1].Status != domain.StatusDead {
		t.Errorf("running agent status = %v, want Dead", cat.Repositories[0].Agents[1].Status)
	}

	changedAgain := s.ReconcileLiveness(func(slot int) bool { return false })
	if changedAgain {
		t.Error("ReconcileLiveness should report no change once already Dead")
	}
}

func TestSplitGrabAndSwap(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	s.Handle(Event{Type: EventOpenSplit})
	s.Handle(Event{Type: EventToggleGrab})
	s.Handle(Event{Type: EventSwapDown})

	repo := cat.Repositories[0]
	if repo.Agents[0].Name != "second" || repo.Agents[1].Name != "first" {
		t.Errorf("agents after swap = [%s %s], want [second first]", repo.Agents[0].Name, repo.Agents[1].Name)
	}
}

func TestRelaunchSelectedAgentProducesEffect(t *testing.T) {
	cat := testCatalog()
	s := New(cat)
	s.SelectedAgentID = cat.Repositories[0].Agents[1].ID.String()

	effects := s.Handle(Event{Type: EventRelaunchAgent})
	if len(effects) != 1 || effects[0].Kind != EffectRelaunchSession {
		t.Errorf("effects = %+v, want a single RelaunchSession effect", effects)
	}
}

func TestSetThemeMutatesSettingsAndPersists(t *testing.T) {
	s := New(testCatalog())
	if s.Settings.ActiveTheme != "green-screen" {
		t.Fatalf("initial ActiveTheme = %q, want green-screen", s.Settings.ActiveTheme)
	}

	effects := s.Handle(Event{Type: EventSetTheme, ThemeSlug: "amber"})
	if s.Settings.ActiveTheme != "amber" {
		t.Errorf("ActiveTheme = %q, want amber", s.Settings.ActiveTheme)
	}
	if len(effects) != 1 || effects[0].Kind != EffectPersistSettings {
		t.Errorf("effects = %+v, want a single PersistSettings effect", effects)
	}

	// Re-selecting the already-active theme is a no-op: nothing to persist.
	noopEffects := s.Handle(Event{Type: EventSetTheme, ThemeSlug: "amber"})
	if len(noopEffects) != 0 {
		t.Errorf("effects = %+v, want none for re-selecting the active theme", noopEffects)
	}
}
