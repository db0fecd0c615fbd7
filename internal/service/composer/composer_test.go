package composer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"petwatch/internal/model"
)

var at = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func TestCompose_KnownSubjects(t *testing.T) {
	c := New(nil).WithLocation(time.UTC)

	tests := []struct {
		subject  string
		conf     float64
		expected string
	}{
		{"miso", 0.9, "🐱 Miso detected! (90% confident) at 02:30 PM"},
		{"ozzy", 0.876, "🐱 Ozzy detected! (88% confident) at 02:30 PM"},
		{"person", 0.5, "👤 Person detected! (50% confident) at 02:30 PM"},
	}

	for _, tt := range tests {
		got := c.Compose(tt.subject, model.Detection{Label: tt.subject, Confidence: tt.conf}, at)
		assert.Equal(t, tt.expected, got)
	}
}

func TestCompose_FallbackTemplate(t *testing.T) {
	c := New(nil).WithLocation(time.UTC)
	got := c.Compose("dog", model.Detection{Label: "Dog", Confidence: 0.731}, at)
	assert.Equal(t, "🔍 Dog detected! (73% confident) at 02:30 PM", got)
}

func TestCompose_EmptySubjectDoesNotFail(t *testing.T) {
	c := New(nil).WithLocation(time.UTC)
	got := c.Compose("", model.Detection{}, at)
	assert.Equal(t, "🔍  detected! (0% confident) at 02:30 PM", got)
}

func TestCompose_CustomTemplates(t *testing.T) {
	c := New(map[string]string{
		"Biscuit": "🐶 {Subject} is home ({confidence}%)",
		"person":  "Someone ({subject}) at {time}",
		"ignored": "",
	}).WithLocation(time.UTC)

	assert.Equal(t, "🐶 Biscuit is home (61%)",
		c.Compose("biscuit", model.Detection{Confidence: 0.61}, at))
	assert.Equal(t, "Someone (person) at 02:30 PM",
		c.Compose("person", model.Detection{Confidence: 0.61}, at))
	assert.Equal(t, "🔍 Ignored detected! (61% confident) at 02:30 PM",
		c.Compose("ignored", model.Detection{Confidence: 0.61}, at))
}
