// Package integration exercises config, domain, state, and ptymux together
// against the end-to-end scenarios Jefe's dashboard must support, without
// requiring a real tmux binary or terminal.
package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jefehq/jefe/internal/config"
	"github.com/jefehq/jefe/internal/domain"
	"github.com/jefehq/jefe/internal/ptymux"
	"github.com/jefehq/jefe/internal/state"
)

func newStore(t *testing.T) *config.Store {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("JEFE_SETTINGS_DIR", dir)
	t.Setenv("JEFE_CATALOG_DIR", dir)
	t.Setenv("JEFE_SETTINGS_PATH", "")
	t.Setenv("JEFE_CATALOG_PATH", "")
	store, err := config.NewStore(nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func typeInto(s *state.State, field state.FormField, text string) {
	s.Form.Focus = field
	for _, r := range text {
		s.Handle(state.Event{Type: state.EventEditChar, Char: r})
	}
}

// fakeLiveness reports a fixed set of slots as alive.
type fakeLiveness map[int]bool

func (f fakeLiveness) IsAlive(slot int) bool { return f[slot] }

// TestCreatePersistRestart covers S1: creating a repository and an agent,
// persisting the catalog, then reloading it in a fresh process with all
// sessions externally killed.
func TestCreatePersistRestart(t *testing.T) {
	store := newStore(t)
	cat := domain.DefaultCatalog()
	s := state.New(cat)

	s.Handle(state.Event{Type: state.EventOpenNewRepository})
	typeInto(s, state.FieldName, "app")
	typeInto(s, state.FieldBaseDir, "/tmp/app")
	typeInto(s, state.FieldDefaultProfile, "default")
	s.Handle(state.Event{Type: state.EventSubmitForm})

	s.Handle(state.Event{Type: state.EventOpenNewAgent, RepoSlug: "app"})
	typeInto(s, state.FieldName, "Fix bug")
	effects := s.Handle(state.Event{Type: state.EventSubmitForm})

	repo := s.SelectedRepository()
	if repo == nil || len(repo.Agents) != 1 {
		t.Fatalf("expected one agent under app, got %+v", repo)
	}
	agent := repo.Agents[0]
	if agent.WorkDir != "/tmp/app/fix-bug" {
		t.Errorf("WorkDir = %q, want /tmp/app/fix-bug", agent.WorkDir)
	}
	if agent.DisplayID != 1 {
		t.Errorf("DisplayID = %d, want 1", agent.DisplayID)
	}

	var sawCreate bool
	for _, e := range effects {
		if e.Kind == state.EffectCreateSession {
			sawCreate = true
			agent.PTYSlot = 0
		}
	}
	if !sawCreate {
		t.Fatal("expected a CreateSession effect")
	}
	agent.Status = domain.StatusRunning

	if err := store.SaveCatalog(cat); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	reloaded := store.LoadCatalog()
	config.Reconcile(reloaded, fakeLiveness{}) // every session externally killed

	if len(reloaded.Repositories) != 1 || len(reloaded.Repositories[0].Agents) != 1 {
		t.Fatalf("reloaded catalog shape = %+v", reloaded)
	}
	reloadedAgent := reloaded.Repositories[0].Agents[0]
	if reloadedAgent.Status != domain.StatusDead {
		t.Errorf("Status = %v, want Dead", reloadedAgent.Status)
	}
	if reloadedAgent.DisplayID != 1 {
		t.Errorf("DisplayID after reload = %d, want 1", reloadedAgent.DisplayID)
	}
	if reloadedAgent.PTYSlot != 0 {
		t.Errorf("PTYSlot after reload = %d, want 0", reloadedAgent.PTYSlot)
	}
}

// TestKillAndRelaunch covers S2 at the reducer level: the manager itself is
// not exercised here since that requires a live tmux server, but the
// reducer's contract (kill emits EffectKillSession for the running slot,
// relaunch emits EffectRelaunchSession preserving work_dir/profile/mode) is
// verified directly.
func TestKillAndRelaunch(t *testing.T) {
	cat := &domain.Catalog{Repositories: []*domain.Repository{{
		Name: "app", Slug: "app", BaseDir: "/tmp/app",
		Agents: []*domain.Agent{{
			DisplayID: 1, Name: "fix-bug", WorkDir: "/tmp/app/fix-bug",
			Profile: "default", Mode: "--yolo", PTYSlot: 0, Status: domain.StatusRunning,
		}},
	}}}
	s := state.New(cat)
	s.SelectedAgentID = cat.Repositories[0].Agents[0].ID.String()

	killEffects := s.Handle(state.Event{Type: state.EventKillAgent})
	if len(killEffects) != 1 || killEffects[0].Kind != state.EffectKillSession || killEffects[0].Slot != 0 {
		t.Fatalf("kill effects = %+v", killEffects)
	}

	relaunchEffects := s.Handle(state.Event{Type: state.EventRelaunchAgent})
	if len(relaunchEffects) != 1 {
		t.Fatalf("relaunch effects = %+v", relaunchEffects)
	}
	re := relaunchEffects[0]
	if re.Kind != state.EffectRelaunchSession || re.Slot != 0 ||
		re.WorkDir != "/tmp/app/fix-bug" || re.Profile != "default" || re.Mode != "--yolo" {
		t.Errorf("relaunch effect = %+v, want slot 0 with original work_dir/profile/mode", re)
	}
}

// TestDeleteRepositoryCascade covers S3: deleting a repository removes all
// its agents and emits a kill effect for every agent that holds a slot.
func TestDeleteRepositoryCascade(t *testing.T) {
	cat := &domain.Catalog{Repositories: []*domain.Repository{{
		Name: "R", Slug: "r",
		Agents: []*domain.Agent{
			{DisplayID: 1, Name: "a1", PTYSlot: 0, Status: domain.StatusRunning},
			{DisplayID: 2, Name: "a2", PTYSlot: 1, Status: domain.StatusRunning},
		},
	}}}
	s := state.New(cat)
	s.Pane = state.PaneSidebar

	s.Handle(state.Event{Type: state.EventRequestDelete, RepoSlug: "r"})
	effects := s.Handle(state.Event{Type: state.EventConfirmDelete})

	if len(cat.Repositories) != 0 {
		t.Errorf("repositories after cascade delete = %d, want 0", len(cat.Repositories))
	}
	var killCount int
	for _, e := range effects {
		if e.Kind == state.EffectKillSession {
			killCount++
		}
	}
	if killCount != 2 {
		t.Errorf("kill effects = %d, want 2", killCount)
	}
}

// TestSplitGrabReorder covers S4: grabbing a row and swapping it down
// reorders the repository's agent slice; releasing the grab leaves the new
// order in place.
func TestSplitGrabReorder(t *testing.T) {
	cat := &domain.Catalog{Repositories: []*domain.Repository{{
		Name: "app", Slug: "app",
		Agents: []*domain.Agent{
			{DisplayID: 1, Name: "X", PTYSlot: 0, Status: domain.StatusRunning},
			{DisplayID: 2, Name: "Y", PTYSlot: 1, Status: domain.StatusRunning},
			{DisplayID: 3, Name: "Z", PTYSlot: 2, Status: domain.StatusRunning},
		},
	}}}
	s := state.New(cat)
	s.Pane = state.PaneAgentList

	// Opening split selects row 0 (X) by default; grabbing and swapping it
	// down once trades places with row 1 (Y).
	s.Handle(state.Event{Type: state.EventOpenSplit})
	s.Handle(state.Event{Type: state.EventToggleGrab})
	s.Handle(state.Event{Type: state.EventSwapDown})

	repo := cat.Repositories[0]
	names := []string{repo.Agents[0].Name, repo.Agents[1].Name, repo.Agents[2].Name}
	if names[0] != "Y" || names[1] != "X" || names[2] != "Z" {
		t.Fatalf("order after swap = %v, want [Y X Z]", names)
	}
	if !s.Split.Grabbed {
		t.Error("X should still be grabbed after the swap")
	}

	s.Handle(state.Event{Type: state.EventToggleGrab})
	if s.Split.Grabbed {
		t.Error("grab should clear after second toggle")
	}
	names = []string{repo.Agents[0].Name, repo.Agents[1].Name, repo.Agents[2].Name}
	if names[0] != "Y" || names[1] != "X" || names[2] != "Z" {
		t.Errorf("order changed after releasing grab: %v", names)
	}
}

// TestTerminalFocusGatesEncoding covers S5: while terminal focus is on, an
// arrow key encodes to the CSI sequence the PTY expects instead of moving
// dashboard selection, and the reducer itself ignores the event.
func TestTerminalFocusGatesEncoding(t *testing.T) {
	cat := &domain.Catalog{Repositories: []*domain.Repository{{
		Name: "app", Slug: "app",
		Agents: []*domain.Agent{{DisplayID: 1, Name: "a", PTYSlot: -1}},
	}}}
	s := state.New(cat)

	s.Handle(state.Event{Type: state.EventToggleTerminalFocus})
	if !s.TerminalFocus {
		t.Fatal("expected terminal focus on")
	}

	before := s.SelectedAgentID
	s.Handle(state.Event{Type: state.EventDown})
	if s.SelectedAgentID != before {
		t.Error("dashboard selection should not move while terminal is focused")
	}

	data, ok := ptymux.KeyToBytes(ptymux.KeyEvent{Name: ptymux.KeyUp})
	if !ok || string(data) != "\x1b[A" {
		t.Errorf("KeyToBytes(up) = %q, %v, want \\x1b[A, true", data, ok)
	}

	s.Handle(state.Event{Type: state.EventToggleTerminalFocus})
	if s.TerminalFocus {
		t.Fatal("expected terminal focus off after second toggle")
	}
}

// TestMalformedCatalogRecovers covers S6: a catalog file holding invalid
// YAML content falls back to an empty catalog instead of aborting startup,
// and a subsequent save overwrites it with a valid document.
func TestMalformedCatalogRecovers(t *testing.T) {
	store := newStore(t)
	if err := os.WriteFile(store.CatalogPath(), []byte("{ not: valid"), 0o644); err != nil {
		t.Fatalf("seed malformed catalog: %v", err)
	}

	cat := store.LoadCatalog()
	if len(cat.Repositories) != 0 {
		t.Fatalf("catalog after malformed load = %+v, want empty", cat)
	}

	s := state.New(cat)
	s.Handle(state.Event{Type: state.EventOpenNewRepository})
	typeInto(s, state.FieldName, "recovered")
	typeInto(s, state.FieldBaseDir, "/tmp/recovered")
	s.Handle(state.Event{Type: state.EventSubmitForm})

	if err := store.SaveCatalog(cat); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	raw, err := os.ReadFile(store.CatalogPath())
	if err != nil {
		t.Fatalf("read catalog after save: %v", err)
	}
	reloaded := store.LoadCatalog()
	if len(reloaded.Repositories) != 1 || reloaded.Repositories[0].Slug != "recovered" {
		t.Fatalf("reloaded catalog = %+v, raw = %s", reloaded, raw)
	}
	if !filepath.IsAbs(store.CatalogPath()) {
		t.Errorf("CatalogPath() = %q, want absolute", store.CatalogPath())
	}
}
