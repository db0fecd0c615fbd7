package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Console prints notifications. It never fails.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a console platform writing to out, or stdout when out is nil.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (c *Console) Name() string { return "Console" }

func (c *Console) Send(_ context.Context, message, imagePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n🔔 NOTIFICATION: %s\n", message)
	if imagePath != "" {
		fmt.Fprintf(c.out, "   📷 Image saved: %s\n", imagePath)
	}
	return nil
}
