package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// Discord posts notifications to a Discord channel webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord creates a Discord platform.
func NewDiscord(webhookURL string, client *http.Client) (*Discord, error) {
	if webhookURL == "" {
		return nil, errors.New("discord: webhook url is required")
	}
	return &Discord{webhookURL: webhookURL, client: clientOrDefault(client)}, nil
}

func (d *Discord) Name() string { return "Discord" }

// Send posts the message as JSON, or as multipart with the snapshot attached.
func (d *Discord) Send(ctx context.Context, message, imagePath string) error {
	var body bytes.Buffer
	var contentType string

	if imagePath == "" {
		if err := json.NewEncoder(&body).Encode(map[string]string{"content": message}); err != nil {
			return fmt.Errorf("failed to encode discord message: %w", err)
		}
		contentType = "application/json"
	} else {
		form := multipart.NewWriter(&body)
		if err := form.WriteField("content", message); err != nil {
			return fmt.Errorf("failed to write content field: %w", err)
		}
		if err := attach(form, "file", imagePath); err != nil {
			return err
		}
		if err := form.Close(); err != nil {
			return fmt.Errorf("failed to finish multipart body: %w", err)
		}
		contentType = form.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord request: %w", err)
	}
	return checkResponse(d.Name(), resp, http.StatusOK, http.StatusNoContent)
}

func attach(form *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	part, err := form.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}
