// Package palette assigns a stable drawing colour to every subject.
package palette

import (
	"image/color"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Person is the colour used for people.
var Person = color.RGBA{R: 255, G: 200, B: 0, A: 255}

// Palette hands out colours per subject, rotating through evenly spaced hues for
// subjects without a fixed colour. Safe for concurrent use.
type Palette struct {
	mu       sync.Mutex
	assigned map[string]color.RGBA
	hues     []float64
	next     int
}

// New creates a palette with fixed colours for well known subjects.
func New() *Palette {
	return &Palette{
		assigned: map[string]color.RGBA{
			"person": Person,
			"miso":   toRGBA(colorful.Hsv(300, 0.6, 1)),
			"ozzy":   toRGBA(colorful.Hsv(200, 1, 1)),
		},
		hues: []float64{120, 270, 30, 180, 330, 60},
	}
}

// Color returns the colour for label, assigning the next free hue on first use.
func (p *Palette) Color(label string) color.RGBA {
	key := strings.ToLower(strings.TrimSpace(label))

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.assigned[key]; ok {
		return c
	}

	hue := p.hues[p.next%len(p.hues)]
	// Later rounds get darker so repeated hues stay distinguishable.
	value := 1 - 0.2*float64(p.next/len(p.hues)%3)
	p.next++

	c := toRGBA(colorful.Hsv(hue, 0.7, value))
	p.assigned[key] = c
	return c
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
