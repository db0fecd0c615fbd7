package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Broadcaster pushes a text message to every connected live viewer.
type Broadcaster interface {
	Broadcast(ctx context.Context, message []byte) error
}

// ViewerMessage is what live viewers receive over the websocket.
type ViewerMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Image     string `json:"image,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Viewers delivers notifications to browsers connected to the live view.
type Viewers struct {
	hub Broadcaster
	now func() time.Time
}

func NewViewers(hub Broadcaster) (*Viewers, error) {
	if hub == nil {
		return nil, errors.New("viewers: hub is required")
	}
	return &Viewers{hub: hub, now: time.Now}, nil
}

func (v *Viewers) Name() string { return "Viewers" }

func (v *Viewers) Send(ctx context.Context, message, imagePath string) error {
	msg := ViewerMessage{
		Type:      "notification",
		Message:   message,
		Timestamp: v.now().Format(time.RFC3339),
	}
	if imagePath != "" {
		msg.Image = filepath.Base(imagePath)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode viewer message: %w", err)
	}
	if err := v.hub.Broadcast(ctx, data); err != nil {
		return fmt.Errorf("failed to broadcast to viewers: %w", err)
	}
	return nil
}
