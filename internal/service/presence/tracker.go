// Package presence turns per-frame detections into debounced presence transitions.
//
// A subject must be seen on threshold consecutive frames before it is confirmed
// present. Absence is immediate: the first frame without the subject clears both
// its streak and its presence.
package presence

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

type state struct {
	streak  int
	present bool
}

// Tracker holds the streak and presence state of every subject seen so far.
// It is not safe for concurrent use; the frame pipeline owns it.
type Tracker struct {
	threshold int
	subjects  map[string]*state
}

// NewTracker creates a tracker confirming presence after threshold consecutive frames.
// A threshold of 1 or less confirms on first sighting.
func NewTracker(threshold int) *Tracker {
	return &Tracker{
		threshold: threshold,
		subjects:  make(map[string]*state),
	}
}

// Threshold returns the number of consecutive frames required for confirmation.
func (t *Tracker) Threshold() int {
	return t.threshold
}

// Observe records one frame and returns the subjects that became present on it.
func (t *Tracker) Observe(detected map[string]struct{}) []string {
	var confirmed []string

	for subject := range detected {
		st, ok := t.subjects[subject]
		if !ok {
			st = &state{}
			t.subjects[subject] = st
		}
		st.streak++
		t.check(subject, st)

		if st.streak >= t.threshold && !st.present {
			st.present = true
			confirmed = append(confirmed, subject)
		}
	}

	for subject, st := range t.subjects {
		if _, ok := detected[subject]; ok {
			continue
		}
		if st.streak == 0 && !st.present {
			continue
		}
		st.streak = 0
		st.present = false
	}

	sort.Strings(confirmed)
	return confirmed
}

// Streak returns the consecutive detecting frames for subject, 0 if unknown.
func (t *Tracker) Streak(subject string) int {
	if st, ok := t.subjects[subject]; ok {
		return st.streak
	}
	return 0
}

// Present reports whether subject is currently confirmed present.
func (t *Tracker) Present(subject string) bool {
	if st, ok := t.subjects[subject]; ok {
		return st.present
	}
	return false
}

// PresentSubjects returns the confirmed subjects in sorted order.
func (t *Tracker) PresentSubjects() []string {
	present := lo.Keys(lo.PickBy(t.subjects, func(_ string, st *state) bool {
		return st.present
	}))
	sort.Strings(present)
	return present
}

// Seen returns every subject the tracker has observed.
func (t *Tracker) Seen() []string {
	seen := lo.Keys(t.subjects)
	sort.Strings(seen)
	return seen
}

// Reset forgets all subjects.
func (t *Tracker) Reset() {
	t.subjects = make(map[string]*state)
}

func (t *Tracker) check(subject string, st *state) {
	if st.streak < 0 {
		panic(fmt.Sprintf("presence: negative streak %d for subject %q", st.streak, subject))
	}
}
