// Package state is the application state machine: the sole writer of
// Jefe's in-memory catalog mirror, UI focus, and modal/form state. It
// exposes one reducer entry point, Handle, which mutates State and returns
// any side effects the dispatch layer must perform (PTY session creation,
// kill, relaunch, persistence).
package state

import (
	"time"

	"github.com/jefehq/jefe/internal/domain"
)

// Screen is the active top-level view.
type Screen string

const (
	ScreenDashboard      Screen = "dashboard"
	ScreenSplit          Screen = "split"
	ScreenNewAgent       Screen = "new_agent"
	ScreenNewRepository  Screen = "new_repository"
	ScreenEditAgent      Screen = "edit_agent"
	ScreenEditRepository Screen = "edit_repository"
	ScreenCommandPalette Screen = "command_palette"
)

// Pane is the focused region within the dashboard screen.
type Pane string

const (
	PaneSidebar   Pane = "sidebar"
	PaneAgentList Pane = "agent_list"
	PanePreview   Pane = "preview"
)

// Modal is the currently displayed overlay, if any.
type Modal string

const (
	ModalNone              Modal = ""
	ModalConfirmDeleteRepo Modal = "confirm_delete_repo"
	ModalConfirmDeleteAgent Modal = "confirm_delete_agent"
	ModalHelp              Modal = "help"
)

// FormField identifies one editable field in the new/edit agent and
// repository forms.
type FormField int

const (
	FieldName FormField = iota
	FieldDescription
	FieldWorkDir
	FieldProfile
	FieldMode
	FieldBaseDir
	FieldDefaultProfile
	fieldCount
)

// FormState holds the working values of an in-progress new/edit form.
type FormState struct {
	Values            map[FormField]string
	Focus             FormField
	WorkDirManuallySet bool
	AlsoDeleteWorkDir bool
	EditingRepoSlug   string
	EditingAgentID    string
}

func newFormState() FormState {
	return FormState{Values: make(map[FormField]string, fieldCount)}
}

// SplitState holds the extra navigation state used while the split screen
// is active: a secondary focus target, the grab-for-reorder flag, the
// selected row, and a live repo-name filter plus its own cursor.
type SplitState struct {
	SubFocus   Pane
	Grabbed    bool
	SelectedRow int
	RepoFilter string
	RepoCursor int
}

// State is the full application state machine. It mirrors the persisted
// catalog in memory and owns every piece of UI focus/navigation/form data.
type State struct {
	Catalog  *domain.Catalog
	Settings *domain.Settings

	Screen Screen
	Pane   Pane
	Modal  Modal

	SelectedRepoSlug  string
	SelectedAgentID   string

	Split SplitState
	Form  FormState

	SearchQuery      string
	HelpScrollOffset int
	TerminalFocus    bool

	nextDisplayID int
}

// New returns a freshly reconciled state machine seeded from cat. cat is
// retained by reference; Handle mutates it directly.
func New(cat *domain.Catalog) *State {
	s := &State{
		Catalog:       cat,
		Settings:      domain.DefaultSettings(),
		Screen:        ScreenDashboard,
		Pane:          PaneSidebar,
		Modal:         ModalNone,
		Form:          newFormState(),
		nextDisplayID: 1,
	}
	for _, repo := range cat.Repositories {
		for _, a := range repo.Agents {
			if a.DisplayID >= s.nextDisplayID {
				s.nextDisplayID = a.DisplayID + 1
			}
		}
	}
	if len(cat.Repositories) > 0 {
		s.SelectedRepoSlug = cat.Repositories[0].Slug
	}
	return s
}

// SelectedRepository returns the currently selected repository, or nil.
func (s *State) SelectedRepository() *domain.Repository {
	for _, repo := range s.Catalog.Repositories {
		if repo.Slug == s.SelectedRepoSlug {
			return repo
		}
	}
	return nil
}

// SelectedAgent returns the currently selected agent, or nil.
func (s *State) SelectedAgent() *domain.Agent {
	repo := s.SelectedRepository()
	if repo == nil {
		return nil
	}
	for _, a := range repo.Agents {
		if a.ID.String() == s.SelectedAgentID {
			return a
		}
	}
	return nil
}

// AgentBySlot returns the agent occupying the given PTY slot across every
// repository, or nil if the slot is unassigned.
func (s *State) AgentBySlot(slot int) *domain.Agent {
	for _, repo := range s.Catalog.Repositories {
		for _, a := range repo.Agents {
			if a.PTYSlot == slot {
				return a
			}
		}
	}
	return nil
}

// nextID draws from the monotonic process-wide counter so a freshly
// created agent gets a new display ID even after others are deleted.
func (s *State) nextID() int {
	id := s.nextDisplayID
	s.nextDisplayID++
	return id
}

// newAgentFromForm builds an agent record from the current form state, deriving
// its working directory unless the user has manually overridden it.
func (s *State) newAgentFromForm(repo *domain.Repository) *domain.Agent {
	name := s.Form.Values[FieldName]
	workDir := s.Form.Values[FieldWorkDir]
	if workDir == "" {
		workDir = domain.WorkDirFor(repo.BaseDir, name)
	}
	return &domain.Agent{
		ID:          newUUID(),
		DisplayID:   s.nextID(),
		Name:        name,
		Description: s.Form.Values[FieldDescription],
		WorkDir:     workDir,
		Profile:     s.Form.Values[FieldProfile],
		Mode:        s.Form.Values[FieldMode],
		CreatedAt:   timeNow(),
		PTYSlot:     -1,
		Status:      domain.StatusQueued,
	}
}

// timeNow and newUUID are the two non-deterministic primitives the reducer
// touches; isolating them keeps the rest of Handle pure and trivially
// testable with fixed clocks/IDs.
var timeNow = func() time.Time { return time.Now() }
