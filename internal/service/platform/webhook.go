package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// WebhookPayload is the JSON body posted to a generic webhook.
type WebhookPayload struct {
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
	Image         string `json:"image,omitempty"`
	ImageFilename string `json:"image_filename,omitempty"`
}

// Webhook posts notifications as JSON to an arbitrary URL.
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// NewWebhook creates a webhook platform. headers are added to every request.
func NewWebhook(url string, headers map[string]string, client *http.Client) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("webhook: url is required")
	}
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return &Webhook{url: url, headers: copied, client: clientOrDefault(client), now: time.Now}, nil
}

func (w *Webhook) Name() string { return "Webhook" }

// Send posts the message, embedding the snapshot as base64 when present.
func (w *Webhook) Send(ctx context.Context, message, imagePath string) error {
	payload := WebhookPayload{
		Message:   message,
		Timestamp: w.now().Format(time.RFC3339),
	}

	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		payload.Image = base64.StdEncoding.EncodeToString(data)
		payload.ImageFilename = filepath.Base(imagePath)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	return checkResponse(w.Name(), resp, http.StatusOK, http.StatusCreated, http.StatusAccepted)
}
