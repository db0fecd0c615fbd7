package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Platform types understood by the platform factory.
const (
	PlatformConsole  = "console"
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
	PlatformWebhook  = "webhook"
	PlatformViewers  = "viewers"
	PlatformNATS     = "nats"
)

// PlatformConfig describes one delivery platform. Only the fields relevant to Type are used.
type PlatformConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name,omitempty"`

	// telegram
	BotToken string `yaml:"bot_token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
	APIBase  string `yaml:"api_base,omitempty"`

	// discord, webhook
	WebhookURL string            `yaml:"webhook_url,omitempty"`
	URL        string            `yaml:"url,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`

	// nats
	Subject string `yaml:"subject,omitempty"`
}

// PlatformsFile is the YAML document referenced by PLATFORMS_FILE.
type PlatformsFile struct {
	Platforms []PlatformConfig `yaml:"platforms"`
	Templates map[string]string `yaml:"templates"`
}

// LoadPlatformsFile parses a platforms file, expanding ${VAR} references from the environment.
func LoadPlatformsFile(path string) (*PlatformsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platforms file: %w", err)
	}
	return ParsePlatforms([]byte(os.ExpandEnv(string(data))))
}

// ParsePlatforms decodes a platforms document.
func ParsePlatforms(data []byte) (*PlatformsFile, error) {
	var file PlatformsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse platforms file: %w", err)
	}
	for i := range file.Platforms {
		file.Platforms[i].Type = strings.ToLower(strings.TrimSpace(file.Platforms[i].Type))
		if file.Platforms[i].Type == "" {
			return nil, fmt.Errorf("platform %d: missing type", i)
		}
	}
	return &file, nil
}

// platformsFromEnv builds the platform list from the single-value environment shortcuts.
func platformsFromEnv() []PlatformConfig {
	var platforms []PlatformConfig

	if getEnvAsBool("CONSOLE_NOTIFY", true) {
		platforms = append(platforms, PlatformConfig{Type: PlatformConsole})
	}
	if getEnvAsBool("VIEWER_NOTIFY", true) {
		platforms = append(platforms, PlatformConfig{Type: PlatformViewers})
	}
	if token, chat := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"); token != "" || chat != "" {
		platforms = append(platforms, PlatformConfig{Type: PlatformTelegram, BotToken: token, ChatID: chat})
	}
	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		platforms = append(platforms, PlatformConfig{Type: PlatformDiscord, WebhookURL: url})
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		platforms = append(platforms, PlatformConfig{Type: PlatformWebhook, URL: url})
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		platforms = append(platforms, PlatformConfig{
			Type:    PlatformNATS,
			URL:     url,
			Subject: getEnv("NATS_SUBJECT", "petwatch.notifications"),
		})
	}

	return platforms
}
