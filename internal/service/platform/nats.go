package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultNATSSubject is used when no subject is configured.
const DefaultNATSSubject = "petwatch.notifications"

// publisher is the subset of *nats.Conn used for delivery.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSMessage is the payload published for each notification.
type NATSMessage struct {
	Message   string `json:"message"`
	Image     string `json:"image,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NATS publishes notifications to a NATS subject.
type NATS struct {
	conn    publisher
	subject string
	now     func() time.Time
}

// NewNATS connects to url. The connection keeps retrying in the background, so
// an unreachable server surfaces as a failed Send rather than a startup error.
func NewNATS(url, subject string) (*NATS, error) {
	if url == "" {
		return nil, errors.New("nats: url is required")
	}

	conn, err := nats.Connect(url,
		nats.Name("petwatch"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newNATS(conn, subject), nil
}

func newNATS(conn publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATS{conn: conn, subject: subject, now: time.Now}
}

func (n *NATS) Name() string { return "NATS" }

// Send publishes the message and waits for the server to acknowledge the flush.
func (n *NATS) Send(ctx context.Context, message, imagePath string) error {
	msg := NATSMessage{Message: message, Timestamp: n.now().Format(time.RFC3339)}
	if imagePath != "" {
		msg.Image = filepath.Base(imagePath)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode nats message: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	return nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
