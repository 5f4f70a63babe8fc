// Package presenter holds pure, allocation-light formatting helpers shared
// by any renderer of Jefe's state: status glyphs, elapsed-time formatting,
// and grapheme-safe truncation. Nothing here performs I/O or touches
// globals, so UI code and tests can agree on display strings without
// coupling to a particular widget library.
package presenter

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/jefehq/jefe/internal/domain"
)

// StatusIcon returns the glyph used to represent an AgentStatus.
func StatusIcon(s domain.AgentStatus) string {
	switch s {
	case domain.StatusRunning:
		return "▶"
	case domain.StatusCompleted:
		return "✓"
	case domain.StatusErrored:
		return "✗"
	case domain.StatusWaiting:
		return "…"
	case domain.StatusPaused:
		return "‖"
	case domain.StatusQueued:
		return "◷"
	case domain.StatusDead:
		return "☠"
	default:
		return "?"
	}
}

// StatusLabel returns the short human-readable label for an AgentStatus.
func StatusLabel(s domain.AgentStatus) string {
	switch s {
	case domain.StatusRunning:
		return "Running"
	case domain.StatusCompleted:
		return "Completed"
	case domain.StatusErrored:
		return "Errored"
	case domain.StatusWaiting:
		return "Waiting"
	case domain.StatusPaused:
		return "Paused"
	case domain.StatusQueued:
		return "Queued"
	case domain.StatusDead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// TodoIcon returns the glyph for a TodoItem's status.
func TodoIcon(s domain.TodoStatus) string {
	switch s {
	case domain.TodoPending:
		return "☐"
	case domain.TodoInProgress:
		return "◐"
	case domain.TodoCompleted:
		return "☑"
	default:
		return "?"
	}
}

// FormatElapsed renders a non-negative duration in seconds as HH:MM:SS,
// zero-padded, with no day rollover: hours accumulate past 99 rather than
// wrapping.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Truncate shortens s to at most max grapheme clusters, appending an
// ellipsis when truncation occurs. It never splits a cluster mid-way, so a
// ZWJ emoji sequence or a base rune plus combining marks is kept whole or
// dropped whole; max counts clusters, not runes or bytes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	var clusters []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	if len(clusters) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return strings.Join(clusters[:max-1], "") + "…"
}
