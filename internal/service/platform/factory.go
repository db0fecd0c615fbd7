package platform

import (
	"fmt"
	"io"
	"net/http"

	"petwatch/internal/config"
	"petwatch/internal/logger"

	"go.uber.org/multierr"
)

// Deps are the shared resources platforms may need.
type Deps struct {
	Client  *http.Client
	Hub     Broadcaster
	Console io.Writer
}

// FromConfig builds the configured platforms. A platform with unusable
// configuration is logged and left out; the rest are still returned.
func FromConfig(cfgs []config.PlatformConfig, deps Deps, log *logger.Logger) []Platform {
	platforms := make([]Platform, 0, len(cfgs))

	for _, cfg := range cfgs {
		p, err := build(cfg, deps)
		if err != nil {
			log.Warning("Skipping %s platform: %v", cfg.Type, err)
			continue
		}
		if cfg.Name != "" {
			p = &named{Platform: p, name: cfg.Name}
		}
		log.Info("Notification platform enabled: %s", p.Name())
		platforms = append(platforms, p)
	}

	return platforms
}

func build(cfg config.PlatformConfig, deps Deps) (Platform, error) {
	switch cfg.Type {
	case config.PlatformConsole:
		return NewConsole(deps.Console), nil
	case config.PlatformTelegram:
		return NewTelegram(cfg.BotToken, cfg.ChatID, cfg.APIBase, deps.Client)
	case config.PlatformDiscord:
		url := cfg.WebhookURL
		if url == "" {
			url = cfg.URL
		}
		return NewDiscord(url, deps.Client)
	case config.PlatformWebhook:
		url := cfg.URL
		if url == "" {
			url = cfg.WebhookURL
		}
		return NewWebhook(url, cfg.Headers, deps.Client)
	case config.PlatformViewers:
		if deps.Hub == nil {
			return nil, fmt.Errorf("viewers: no live view hub")
		}
		return NewViewers(deps.Hub)
	case config.PlatformNATS:
		return NewNATS(cfg.URL, cfg.Subject)
	default:
		return nil, fmt.Errorf("unknown platform type %q", cfg.Type)
	}
}

// CloseAll closes every platform that holds resources.
func CloseAll(platforms []Platform) error {
	var err error
	for _, p := range platforms {
		if c, ok := p.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

type named struct {
	Platform
	name string
}

func (n *named) Name() string { return n.name }

func (n *named) Close() error {
	if c, ok := n.Platform.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
