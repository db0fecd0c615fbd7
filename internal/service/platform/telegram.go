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
	"strings"
)

// DefaultTelegramAPI is the Telegram Bot API endpoint.
const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram sends notifications through a Telegram bot.
type Telegram struct {
	chatID  string
	baseURL string
	client  *http.Client
}

// NewTelegram creates a Telegram platform. apiBase may be empty to use DefaultTelegramAPI.
func NewTelegram(botToken, chatID, apiBase string, client *http.Client) (*Telegram, error) {
	if botToken == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if chatID == "" {
		return nil, errors.New("telegram: chat id is required")
	}
	if apiBase == "" {
		apiBase = DefaultTelegramAPI
	}

	return &Telegram{
		chatID:  chatID,
		baseURL: strings.TrimRight(apiBase, "/") + "/bot" + botToken,
		client:  clientOrDefault(client),
	}, nil
}

func (t *Telegram) Name() string { return "Telegram" }

// Send posts a photo with caption when imagePath is set, otherwise a text message.
func (t *Telegram) Send(ctx context.Context, message, imagePath string) error {
	var req *http.Request
	var err error

	if imagePath != "" {
		req, err = t.photoRequest(ctx, message, imagePath)
	} else {
		req, err = t.messageRequest(ctx, message)
	}
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram request: %w", err)
	}
	return checkResponse(t.Name(), resp, http.StatusOK)
}

func (t *Telegram) messageRequest(ctx context.Context, message string) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (t *Telegram) photoRequest(ctx context.Context, caption, imagePath string) (*http.Request, error) {
	photo, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer photo.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("chat_id", t.chatID); err != nil {
		return nil, fmt.Errorf("failed to write chat_id field: %w", err)
	}
	if err := form.WriteField("caption", caption); err != nil {
		return nil, fmt.Errorf("failed to write caption field: %w", err)
	}
	part, err := form.CreateFormFile("photo", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendPhoto", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req, nil
}
