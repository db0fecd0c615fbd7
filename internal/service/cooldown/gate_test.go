package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_FirstNotificationAlwaysPasses(t *testing.T) {
	gate := NewGate(time.Hour)
	assert.True(t, gate.Allow("miso", time.Time{}))
	_, ok := gate.LastNotified("miso")
	assert.False(t, ok)
}

func TestGate_Window(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 300 * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		allowed bool
	}{
		{"immediately", 0, false},
		{"just before", window - time.Millisecond, false},
		{"exactly at window", window, true},
		{"after window", window + time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(window)
			gate.Record("miso", start)
			assert.Equal(t, tt.allowed, gate.Allow("miso", start.Add(tt.elapsed)))
		})
	}
}

func TestGate_SubjectsAreIndependent(t *testing.T) {
	now := time.Now()
	gate := NewGate(time.Minute)
	gate.Record("miso", now)

	assert.False(t, gate.Allow("miso", now.Add(time.Second)))
	assert.True(t, gate.Allow("ozzy", now.Add(time.Second)))
}

func TestGate_AllowDoesNotRecord(t *testing.T) {
	now := time.Now()
	gate := NewGate(time.Minute)
	assert.True(t, gate.Allow("person", now))
	assert.True(t, gate.Allow("person", now.Add(time.Second)))
	assert.Empty(t, gate.Snapshot())
}
