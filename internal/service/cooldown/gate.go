// Package cooldown suppresses repeat notifications for a subject within a time window.
package cooldown

import "time"

// Gate remembers when each subject was last notified.
type Gate struct {
	window time.Duration
	last   map[string]time.Time
}

// NewGate creates a gate that allows one notification per subject per window.
func NewGate(window time.Duration) *Gate {
	return &Gate{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Window returns the configured cooldown window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Allow reports whether subject may be notified at now.
// Subjects that were never notified always pass.
func (g *Gate) Allow(subject string, now time.Time) bool {
	last, ok := g.last[subject]
	if !ok {
		return true
	}
	return now.Sub(last) >= g.window
}

// Record marks subject as notified at now. Call it only once a notification
// has actually been composed.
func (g *Gate) Record(subject string, now time.Time) {
	g.last[subject] = now
}

// LastNotified returns when subject was last notified.
func (g *Gate) LastNotified(subject string) (time.Time, bool) {
	last, ok := g.last[subject]
	return last, ok
}

// Snapshot copies the last notification times.
func (g *Gate) Snapshot() map[string]time.Time {
	out := make(map[string]time.Time, len(g.last))
	for subject, at := range g.last {
		out[subject] = at
	}
	return out
}
