package state

import "github.com/jefehq/jefe/internal/domain"

// Handle is the reducer's single entry point. It mutates s in place and
// returns the side effects the dispatch layer must run. Handle performs no
// I/O itself.
func (s *State) Handle(ev Event) []SideEffect {
	// F12 is a global escape: it toggles terminal focus regardless of
	// current pane or modal, and a form never captures it.
	if ev.Type == EventToggleTerminalFocus {
		s.TerminalFocus = !s.TerminalFocus
		return nil
	}

	if s.TerminalFocus {
		// While terminal focus is on, everything except the toggle above is
		// forwarded to the PTY by the dispatch layer before it ever reaches
		// Handle; Handle should not be invoked for those events. Any event
		// that does arrive here is treated as a no-op rather than mutating
		// unrelated state.
		return nil
	}

	switch s.Modal {
	case ModalConfirmDeleteAgent, ModalConfirmDeleteRepo:
		return s.handleDeleteModal(ev)
	case ModalHelp:
		return s.handleHelpModal(ev)
	}

	switch s.Screen {
	case ScreenNewAgent, ScreenNewRepository, ScreenEditAgent, ScreenEditRepository:
		return s.handleForm(ev)
	case ScreenSplit:
		return s.handleSplit(ev)
	default:
		return s.handleDashboard(ev)
	}
}

func (s *State) handleDashboard(ev Event) []SideEffect {
	switch ev.Type {
	case EventFocusSidebar:
		s.Pane = PaneSidebar
	case EventFocusAgentList:
		s.Pane = PaneAgentList
	case EventFocusTerminal:
		s.Pane = PanePreview
	case EventUp, EventDown:
		s.moveSelection(ev.Type == EventDown)
	case EventOpenNewAgent:
		s.openForm(ScreenNewAgent, ev.RepoSlug, "")
	case EventOpenNewRepository:
		s.openForm(ScreenNewRepository, "", "")
	case EventOpenEdit:
		if s.Pane == PaneSidebar {
			s.openForm(ScreenEditRepository, ev.RepoSlug, "")
		} else {
			s.openForm(ScreenEditAgent, ev.RepoSlug, ev.AgentID)
		}
	case EventOpenSplit:
		s.Screen = ScreenSplit
		s.Split = SplitState{SubFocus: PaneAgentList}
	case EventOpenSearch:
		s.SearchQuery = ""
	case EventOpenHelp:
		s.Modal = ModalHelp
		s.HelpScrollOffset = 0
	case EventRequestDelete:
		return s.requestDelete(ev)
	case EventKillAgent:
		return s.killSelectedAgent()
	case EventRelaunchAgent:
		return s.relaunchSelectedAgent()
	case EventSetTheme:
		if ev.ThemeSlug == "" || ev.ThemeSlug == s.Settings.ActiveTheme {
			return nil
		}
		s.Settings.ActiveTheme = ev.ThemeSlug
		return []SideEffect{{Kind: EffectPersistSettings}}
	}
	return nil
}

func (s *State) moveSelection(down bool) {
	repo := s.SelectedRepository()
	if repo == nil || len(repo.Agents) == 0 {
		return
	}
	idx := 0
	for i, a := range repo.Agents {
		if a.ID.String() == s.SelectedAgentID {
			idx = i
			break
		}
	}
	if down {
		idx = (idx + 1) % len(repo.Agents)
	} else {
		idx = (idx - 1 + len(repo.Agents)) % len(repo.Agents)
	}
	s.SelectedAgentID = repo.Agents[idx].ID.String()
}

func (s *State) openForm(screen Screen, repoSlug, agentID string) {
	s.Screen = screen
	s.Form = newFormState()
	s.Form.EditingRepoSlug = repoSlug
	s.Form.EditingAgentID = agentID

	if screen == ScreenEditAgent {
		for _, repo := range s.Catalog.Repositories {
			if repo.Slug != repoSlug {
				continue
			}
			for _, a := range repo.Agents {
				if a.ID.String() != agentID {
					continue
				}
				s.Form.Values[FieldName] = a.Name
				s.Form.Values[FieldDescription] = a.Description
				s.Form.Values[FieldWorkDir] = a.WorkDir
				s.Form.Values[FieldProfile] = a.Profile
				s.Form.Values[FieldMode] = a.Mode
				s.Form.WorkDirManuallySet = true
			}
		}
	}
	if screen == ScreenEditRepository {
		for _, repo := range s.Catalog.Repositories {
			if repo.Slug != repoSlug {
				continue
			}
			s.Form.Values[FieldName] = repo.Name
			s.Form.Values[FieldBaseDir] = repo.BaseDir
			s.Form.Values[FieldDefaultProfile] = repo.DefaultProfile
		}
	}
}

func (s *State) handleForm(ev Event) []SideEffect {
	switch ev.Type {
	case EventBack:
		s.Screen = ScreenDashboard
	case EventNextField:
		s.Form.Focus = (s.Form.Focus + 1) % fieldCount
	case EventPrevField:
		s.Form.Focus = (s.Form.Focus - 1 + fieldCount) % fieldCount
	case EventEditChar:
		s.editFormField(ev.Char)
	case EventBackspace:
		s.backspaceFormField()
	case EventSubmitForm:
		return s.submitForm()
	}
	return nil
}

func (s *State) editFormField(ch rune) {
	f := s.Form.Focus
	s.Form.Values[f] += string(ch)

	// Name-field edits regenerate the work-dir field from the repository
	// base plus the slugged name, but only until the user edits work-dir
	// directly.
	if f == FieldName && !s.Form.WorkDirManuallySet {
		if repo := s.formTargetRepo(); repo != nil {
			s.Form.Values[FieldWorkDir] = domain.WorkDirFor(repo.BaseDir, s.Form.Values[FieldName])
		}
	}
	if f == FieldWorkDir {
		s.Form.WorkDirManuallySet = true
	}
}

func (s *State) backspaceFormField() {
	f := s.Form.Focus
	v := s.Form.Values[f]
	if len(v) > 0 {
		runes := []rune(v)
		s.Form.Values[f] = string(runes[:len(runes)-1])
	}
	if f == FieldName && !s.Form.WorkDirManuallySet {
		if repo := s.formTargetRepo(); repo != nil {
			s.Form.Values[FieldWorkDir] = domain.WorkDirFor(repo.BaseDir, s.Form.Values[FieldName])
		}
	}
}

func (s *State) formTargetRepo() *domain.Repository {
	slug := s.Form.EditingRepoSlug
	for _, repo := range s.Catalog.Repositories {
		if repo.Slug == slug {
			return repo
		}
	}
	return nil
}

func (s *State) submitForm() []SideEffect {
	switch s.Screen {
	case ScreenNewRepository:
		repo := &domain.Repository{
			Name:           s.Form.Values[FieldName],
			Slug:           domain.Slug(s.Form.Values[FieldName]),
			BaseDir:        s.Form.Values[FieldBaseDir],
			DefaultProfile: s.Form.Values[FieldDefaultProfile],
		}
		s.Catalog.Repositories = append(s.Catalog.Repositories, repo)
		s.SelectedRepoSlug = repo.Slug
		s.Screen = ScreenDashboard
		return []SideEffect{{Kind: EffectPersistCatalog}}

	case ScreenEditRepository:
		repo := s.formTargetRepo()
		if repo == nil {
			s.Screen = ScreenDashboard
			return nil
		}
		repo.Name = s.Form.Values[FieldName]
		repo.BaseDir = s.Form.Values[FieldBaseDir]
		repo.DefaultProfile = s.Form.Values[FieldDefaultProfile]
		s.Screen = ScreenDashboard
		return []SideEffect{{Kind: EffectPersistCatalog}}

	case ScreenNewAgent:
		repo := s.formTargetRepo()
		if repo == nil {
			s.Screen = ScreenDashboard
			return nil
		}
		a := s.newAgentFromForm(repo)
		repo.Agents = append(repo.Agents, a)
		s.SelectedAgentID = a.ID.String()
		s.Screen = ScreenDashboard
		return []SideEffect{
			{Kind: EffectPersistCatalog},
			{Kind: EffectCreateSession, AgentID: a.ID.String(), WorkDir: a.WorkDir, Profile: a.Profile, Mode: a.Mode},
		}

	case ScreenEditAgent:
		repo := s.formTargetRepo()
		if repo == nil {
			s.Screen = ScreenDashboard
			return nil
		}
		for _, a := range repo.Agents {
			if a.ID.String() != s.Form.EditingAgentID {
				continue
			}
			a.Name = s.Form.Values[FieldName]
			a.Description = s.Form.Values[FieldDescription]
			a.Profile = s.Form.Values[FieldProfile]
			a.Mode = s.Form.Values[FieldMode]
			// Editing an existing agent never rewrites its on-disk working
			// directory: a live session may already be rooted there.
		}
		s.Screen = ScreenDashboard
		return []SideEffect{{Kind: EffectPersistCatalog}}
	}
	return nil
}

func (s *State) requestDelete(ev Event) []SideEffect {
	if s.Pane == PaneSidebar {
		s.SelectedRepoSlug = ev.RepoSlug
		s.Modal = ModalConfirmDeleteRepo
	} else {
		s.SelectedAgentID = ev.AgentID
		s.Modal = ModalConfirmDeleteAgent
		s.Form.AlsoDeleteWorkDir = true
	}
	return nil
}

func (s *State) handleDeleteModal(ev Event) []SideEffect {
	switch ev.Type {
	case EventCancelDelete:
		s.Modal = ModalNone
	case EventToggleCheckbox:
		s.Form.AlsoDeleteWorkDir = !s.Form.AlsoDeleteWorkDir
	case EventConfirmDelete:
		return s.confirmDelete()
	}
	return nil
}

func (s *State) confirmDelete() []SideEffect {
	modal := s.Modal
	s.Modal = ModalNone

	if modal == ModalConfirmDeleteRepo {
		var effects []SideEffect
		for i, repo := range s.Catalog.Repositories {
			if repo.Slug != s.SelectedRepoSlug {
				continue
			}
			for _, a := range repo.Agents {
				if a.HasPTYSlot() {
					effects = append(effects, SideEffect{Kind: EffectKillSession, Slot: a.PTYSlot})
				}
			}
			s.Catalog.Repositories = append(s.Catalog.Repositories[:i], s.Catalog.Repositories[i+1:]...)
			break
		}
		s.SelectedRepoSlug = ""
		effects = append(effects, SideEffect{Kind: EffectPersistCatalog})
		return effects
	}

	repo := s.SelectedRepository()
	if repo == nil {
		return nil
	}
	var effects []SideEffect
	for i, a := range repo.Agents {
		if a.ID.String() != s.SelectedAgentID {
			continue
		}
		if a.HasPTYSlot() {
			effects = append(effects, SideEffect{Kind: EffectKillSession, Slot: a.PTYSlot})
		}
		if s.Form.AlsoDeleteWorkDir && a.WorkDir != "" {
			effects = append(effects, SideEffect{Kind: EffectDeleteWorkDir, WorkDir: a.WorkDir})
		}
		repo.Agents = append(repo.Agents[:i], repo.Agents[i+1:]...)
		break
	}
	s.SelectedAgentID = ""
	effects = append(effects, SideEffect{Kind: EffectPersistCatalog})
	return effects
}

func (s *State) killSelectedAgent() []SideEffect {
	a := s.SelectedAgent()
	if a == nil || !a.HasPTYSlot() {
		return nil
	}
	slot := a.PTYSlot
	return []SideEffect{{Kind: EffectKillSession, Slot: slot}}
}

func (s *State) relaunchSelectedAgent() []SideEffect {
	a := s.SelectedAgent()
	if a == nil {
		return nil
	}
	return []SideEffect{{
		Kind:    EffectRelaunchSession,
		AgentID: a.ID.String(),
		Slot:    a.PTYSlot,
		WorkDir: a.WorkDir,
		Profile: a.Profile,
		Mode:    a.Mode,
	}}
}

func (s *State) handleHelpModal(ev Event) []SideEffect {
	switch ev.Type {
	case EventBack, EventCancelDelete:
		s.Modal = ModalNone
	case EventUp:
		if s.HelpScrollOffset > 0 {
			s.HelpScrollOffset--
		}
	case EventDown:
		s.HelpScrollOffset++
	}
	return nil
}

func (s *State) handleSplit(ev Event) []SideEffect {
	switch ev.Type {
	case EventBack:
		s.Screen = ScreenDashboard
		s.TerminalFocus = false
	case EventToggleGrab:
		s.Split.Grabbed = !s.Split.Grabbed
	case EventSwapUp:
		s.swapSplitRow(-1)
	case EventSwapDown:
		s.swapSplitRow(1)
	case EventSetRepoFilter:
		s.Split.RepoFilter = ev.Text
		s.Split.RepoCursor = 0
	case EventUp:
		s.moveSplitCursor(-1)
	case EventDown:
		s.moveSplitCursor(1)
	}
	return nil
}

func (s *State) swapSplitRow(delta int) {
	if !s.Split.Grabbed {
		return
	}
	repo := s.SelectedRepository()
	if repo == nil {
		return
	}
	from := s.Split.SelectedRow
	to := from + delta
	if to < 0 || to >= len(repo.Agents) {
		return
	}
	repo.Agents[from], repo.Agents[to] = repo.Agents[to], repo.Agents[from]
	s.Split.SelectedRow = to
}

func (s *State) moveSplitCursor(delta int) {
	repo := s.SelectedRepository()
	if repo == nil || len(repo.Agents) == 0 {
		return
	}
	s.Split.SelectedRow = (s.Split.SelectedRow + delta + len(repo.Agents)) % len(repo.Agents)
}

// ReconcileLiveness transitions every Running agent whose PTY slot is no
// longer alive to Dead. It reports whether any transition happened so
// callers can decide whether a re-render is warranted; the reducer writes
// only on actual change to avoid infinite re-render loops.
func (s *State) ReconcileLiveness(alive func(slot int) bool) (changed bool) {
	for _, repo := range s.Catalog.Repositories {
		for _, a := range repo.Agents {
			if a.Status != domain.StatusRunning || !a.HasPTYSlot() {
				continue
			}
			if !alive(a.PTYSlot) {
				a.Status = domain.StatusDead
				changed = true
			}
		}
	}
	return changed
}
