// Package domain holds the canonical entities Jefe operates on: repositories,
// agents, their lifecycle status, and the presentation-only telemetry a
// running agent accumulates. Types here carry no behavior beyond what is
// needed to keep their own invariants; persistence, PTY ownership, and
// reduction logic all live in other packages.
package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentStatus is the lifecycle state of an Agent. Only Running and Dead are
// ever derived automatically, from session liveness; the rest are assigned
// explicitly (a newly created agent starts as Queued). OSC notifications are
// recorded on the agent but never change its status.
type AgentStatus string

const (
	StatusRunning   AgentStatus = "running"
	StatusCompleted AgentStatus = "completed"
	StatusErrored   AgentStatus = "errored"
	StatusWaiting   AgentStatus = "waiting"
	StatusPaused    AgentStatus = "paused"
	StatusQueued    AgentStatus = "queued"
	StatusDead      AgentStatus = "dead"
)

// TodoStatus is the state of a single TodoItem.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is presentation data surfaced by an agent; it is not
// authoritative and is never itself persisted independently of the agent.
type TodoItem struct {
	Content string     `yaml:"content"`
	Status  TodoStatus `yaml:"status"`
}

// OutputLineKind distinguishes plain narration from tool invocations.
type OutputLineKind string

const (
	OutputText     OutputLineKind = "text"
	OutputToolCall OutputLineKind = "tool_call"
)

// ToolStatus is the progress of a tool call OutputLine.
type ToolStatus string

const (
	ToolInProgress ToolStatus = "in_progress"
	ToolCompleted  ToolStatus = "completed"
	ToolFailed     ToolStatus = "failed"
)

// OutputLine is one line of an agent's narrated activity feed.
type OutputLine struct {
	Text       string         `yaml:"text"`
	Kind       OutputLineKind `yaml:"kind"`
	ToolStatus ToolStatus     `yaml:"tool_status,omitempty"`
}

// TokenUsage is the ephemeral token accounting an agent CLI may report in
// its trailing summary output. A zero value means no usage has been parsed.
type TokenUsage struct {
	PromptTokens     int `yaml:"prompt_tokens,omitempty"`
	CompletionTokens int `yaml:"completion_tokens,omitempty"`
	TotalTokens      int `yaml:"total_tokens,omitempty"`
}

// NotificationEvent is an OSC 9/777 notification observed on an agent's PTY
// stream, kept as ephemeral history alongside the agent.
type NotificationEvent struct {
	At      time.Time `yaml:"at"`
	Title   string    `yaml:"title,omitempty"`
	Message string    `yaml:"message,omitempty"`
}

// Agent is the primary work unit: a persistent, named, configured invocation
// of an external AI coding CLI hosted in its own multiplexer session.
//
// Status is never persisted; callers must derive it from session liveness
// on load (see internal/config's reconciliation pass).
type Agent struct {
	ID          uuid.UUID `yaml:"id"`
	DisplayID   int       `yaml:"display_id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	WorkDir     string    `yaml:"work_dir"`
	Profile     string    `yaml:"profile,omitempty"`
	Mode        string    `yaml:"mode,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`

	// PTYSlot indexes into the PTY manager's session vector. Negative means
	// no session has been allocated for this agent.
	PTYSlot int `yaml:"pty_slot"`

	// Status is excluded from serialization by its yaml:"-" tag; it is kept
	// here as the in-memory canonical value the state machine mutates
	// directly.
	Status AgentStatus `yaml:"-"`

	// Ephemeral telemetry. None of this round-trips through the catalog file.
	ElapsedSeconds int64                `yaml:"-"`
	TokenUsage     TokenUsage           `yaml:"-"`
	EstCostUSD     float64              `yaml:"-"`
	Todos          []TodoItem           `yaml:"-"`
	RecentOutput   []OutputLine         `yaml:"-"`
	Notifications  []NotificationEvent  `yaml:"-"`
}

// HasPTYSlot reports whether the agent has an allocated PTY session.
func (a *Agent) HasPTYSlot() bool {
	return a.PTYSlot >= 0
}

// SessionName returns the multiplexer session name this agent's PTY slot
// would use, or the empty string when no slot is allocated.
func (a *Agent) SessionName() string {
	if !a.HasPTYSlot() {
		return ""
	}
	return SessionNameForSlot(a.PTYSlot)
}

// SessionNameForSlot formats the canonical multiplexer session name for a
// PTY manager slot index.
func SessionNameForSlot(slot int) string {
	return "jefe-" + strconv.Itoa(slot)
}

// Repository is a named codebase container with an ordered list of owned
// agents. Slugs are unique process-wide; deleting a repository cascades to
// all its agents.
type Repository struct {
	Name           string   `yaml:"name"`
	Slug           string   `yaml:"slug"`
	BaseDir        string   `yaml:"base_dir"`
	DefaultProfile string   `yaml:"default_profile,omitempty"`
	Agents         []*Agent `yaml:"agents"`
}

// slugNonAlnum matches any run of characters that are not lowercase
// ASCII letters or digits, for collapsing into a single dash.
var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a URL-safe slug from an arbitrary display name: lowercase,
// non-alphanumeric runs collapse to a single dash, and leading/trailing
// dashes are trimmed. Slug is idempotent: Slug(Slug(s)) == Slug(s).
func Slug(name string) string {
	lowered := strings.ToLower(name)
	dashed := slugNonAlnum.ReplaceAllString(lowered, "-")
	return strings.Trim(dashed, "-")
}

// WorkDirFor computes the auto-derived working directory for an agent named
// name under repository base dir base, per the work-dir auto-regeneration
// rule: {base}/{slug(name)}.
func WorkDirFor(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + Slug(name)
}

// Catalog is the full persisted list of repositories with their embedded
// agents.
type Catalog struct {
	Repositories []*Repository `yaml:"repositories"`
}

// Settings is the persisted user-preference document.
type Settings struct {
	ActiveTheme           string            `yaml:"active_theme"`
	Preferences           map[string]string `yaml:"preferences,omitempty"`
	DefaultProfileOverride map[string]string `yaml:"default_profile_overrides,omitempty"`
}

// DefaultSettings returns the canonical zero-value settings document used
// when no settings file exists or the existing one is malformed.
func DefaultSettings() *Settings {
	return &Settings{
		ActiveTheme: "green-screen",
		Preferences: map[string]string{},
	}
}

// DefaultCatalog returns the canonical empty catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{Repositories: []*Repository{}}
}
