// Package composer renders the human readable text of a notification.
package composer

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"petwatch/internal/model"
)

// TimeLayout is how notification times are printed.
const TimeLayout = "03:04 PM"

// FallbackTemplate is used for subjects without a template of their own.
const FallbackTemplate = "🔍 {Subject} detected! ({confidence}% confident) at {time}"

var defaultTemplates = map[string]string{
	"miso":   "🐱 Miso detected! ({confidence}% confident) at {time}",
	"ozzy":   "🐱 Ozzy detected! ({confidence}% confident) at {time}",
	"person": "👤 Person detected! ({confidence}% confident) at {time}",
}

// Composer turns a confirmed subject into a message.
type Composer struct {
	templates map[string]string
	location  *time.Location
}

// New creates a composer with the built-in templates, overridden or extended by extra.
// Template keys are subjects; values may use {subject}, {Subject}, {confidence} and {time}.
func New(extra map[string]string) *Composer {
	templates := make(map[string]string, len(defaultTemplates)+len(extra))
	for subject, tmpl := range defaultTemplates {
		templates[subject] = tmpl
	}
	for subject, tmpl := range extra {
		if tmpl == "" {
			continue
		}
		templates[strings.ToLower(subject)] = tmpl
	}
	return &Composer{templates: templates, location: time.Local}
}

// WithLocation sets the time zone used for {time}.
func (c *Composer) WithLocation(loc *time.Location) *Composer {
	if loc != nil {
		c.location = loc
	}
	return c
}

// Compose builds the message for subject. It never fails; unknown subjects use
// FallbackTemplate.
func (c *Composer) Compose(subject string, detection model.Detection, now time.Time) string {
	tmpl, ok := c.templates[subject]
	if !ok {
		tmpl = FallbackTemplate
	}

	r := strings.NewReplacer(
		"{subject}", subject,
		"{Subject}", capitalize(subject),
		"{confidence}", fmt.Sprintf("%d", percent(detection.Confidence)),
		"{time}", c.FormatTime(now),
	)
	return r.Replace(tmpl)
}

// FormatTime renders t the way messages show it.
func (c *Composer) FormatTime(t time.Time) string {
	return t.In(c.location).Format(TimeLayout)
}

func percent(confidence float64) int {
	if math.IsNaN(confidence) {
		return 0
	}
	return int(math.Round(confidence * 100))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:]
}
