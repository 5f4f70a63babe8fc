package presenter

import (
	"testing"

	"github.com/jefehq/jefe/internal/domain"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3661, "01:01:01"},
		{-5, "00:00:00"},
		{360000, "100:00:00"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.in); got != c.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"héllo", 3, "hé…"},
		{"", 5, ""},
		{"a👨‍👩‍👧‍👦b", 2, "a…"},
		{"a👨‍👩‍👧‍👦b", 3, "a👨‍👩‍👧‍👦b"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.max); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestStatusIconAndLabelCoverAllStatuses(t *testing.T) {
	statuses := []domain.AgentStatus{
		domain.StatusRunning, domain.StatusCompleted, domain.StatusErrored,
		domain.StatusWaiting, domain.StatusPaused, domain.StatusQueued, domain.StatusDead,
	}
	for _, s := range statuses {
		if StatusIcon(s) == "?" {
			t.Errorf("StatusIcon(%v) fell through to unknown", s)
		}
		if StatusLabel(s) == "Unknown" {
			t.Errorf("StatusLabel(%v) fell through to unknown", s)
		}
	}
}

func TestTodoIconCoversAllStatuses(t *testing.T) {
	for _, s := range []domain.TodoStatus{domain.TodoPending, domain.TodoInProgress, domain.TodoCompleted} {
		if TodoIcon(s) == "?" {
			t.Errorf("TodoIcon(%v) fell through to unknown", s)
		}
	}
}
