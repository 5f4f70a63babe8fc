package config

import "github.com/jefehq/jefe/internal/domain"

// LivenessChecker reports whether a PTY manager slot currently has a live
// multiplexer session. The PTY manager satisfies this interface; config
// depends only on the interface so the two packages don't import each
// other.
type LivenessChecker interface {
	IsAlive(slot int) bool
}

// Reconcile is the startup reconciliation pass: every agent with a live
// session at its expected slot is marked Running; everything else is
// marked Dead. Status is never persisted, so this is the sole source of
// truth for status immediately after load.
func Reconcile(cat *domain.Catalog, alive LivenessChecker) {
	for _, repo := range cat.Repositories {
		for _, a := range repo.Agents {
			if !a.HasPTYSlot() {
				a.Status = domain.StatusDead
				continue
			}
			if alive.IsAlive(a.PTYSlot) {
				a.Status = domain.StatusRunning
			} else {
				a.Status = domain.StatusDead
			}
		}
	}
}
