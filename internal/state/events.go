package state

// EventType identifies the kind of Event. The taxonomy is exhaustive:
// every user intent the reducer understands has exactly one EventType.
type EventType int

const (
	// Navigation
	EventUp EventType = iota
	EventDown
	EventLeft
	EventRight

	// Pane focus
	EventFocusSidebar
	EventFocusAgentList
	EventFocusTerminal

	// Screen transitions
	EventOpenNewAgent
	EventOpenNewRepository
	EventOpenEdit
	EventOpenSplit
	EventOpenSearch
	EventOpenHelp
	EventBack

	// Form events
	EventNextField
	EventPrevField
	EventEditChar
	EventBackspace
	EventToggleCheckbox
	EventSubmitForm

	// Lifecycle intents
	EventKillAgent
	EventRelaunchAgent

	// Deletion flow
	EventRequestDelete
	EventConfirmDelete
	EventCancelDelete

	// Split-mode events
	EventToggleGrab
	EventSwapUp
	EventSwapDown
	EventSetRepoFilter

	// Theme
	EventSetTheme

	// Terminal focus toggle
	EventToggleTerminalFocus

	// Character input (outside forms: search query, etc.)
	EventCharInput
)

// Event is a single piece of pure data describing a user intent. Events
// never carry callbacks or promises; all I/O happens in the dispatch layer
// reading the SideEffects a Handle call returns.
type Event struct {
	Type EventType
	Char rune

	// EventSubmitForm / EventOpenNewAgent / EventOpenEdit targets.
	RepoSlug string
	AgentID  string

	// EventSetTheme
	ThemeSlug string

	// EventSetRepoFilter (EventCharInput and EventEditChar carry Char)
	Text string
}

// SideEffectKind identifies one kind of I/O the dispatch layer must run
// after a reducer call. The reducer itself performs no I/O; it only
// describes what happened.
type SideEffectKind int

const (
	EffectCreateSession SideEffectKind = iota
	EffectKillSession
	EffectRelaunchSession
	EffectDeleteWorkDir
	EffectPersistCatalog
	EffectPersistSettings
)

// SideEffect is one action the dispatch layer must perform after a state
// transition commits.
type SideEffect struct {
	Kind    SideEffectKind
	AgentID string
	Slot    int
	WorkDir string
	Profile string
	Mode    string
}
