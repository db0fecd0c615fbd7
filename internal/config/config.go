package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	Password      string
	IngestToken   string // Token required by the detector ingest endpoint, empty disables the check
	LogDirectory  string
	LogLevel      string
	DatabasePath  string // Empty disables the snapshot and notification index
	PlatformsFile string

	// Decision logic
	CooldownSeconds   int
	PersistenceFrames int

	// Snapshots
	SaveImages     bool
	ImageDirectory string
	MaxImages      int
	JPEGQuality    int

	// Delivery
	SendTimeout       time.Duration // Per-platform timeout for one send
	DispatchQueueSize int
	ShutdownGrace     time.Duration

	Platforms []PlatformConfig
	Templates map[string]string
}

// Load reads configuration from the environment. When envFile exists it is loaded first;
// variables already set in the environment take precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8080),
		Password:          getEnv("PASSWORD", ""),
		IngestToken:       getEnv("INGEST_TOKEN", ""),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(".", "data", "petwatch.db")),
		PlatformsFile:     getEnv("PLATFORMS_FILE", ""),
		CooldownSeconds:   getEnvAsInt("COOLDOWN_SECONDS", 300),
		PersistenceFrames: getEnvAsInt("PERSISTENCE_FRAMES", 5),
		SaveImages:        getEnvAsBool("SAVE_IMAGES", true),
		ImageDirectory:    getEnv("IMAGE_DIR", "snapshots"),
		MaxImages:         getEnvAsInt("MAX_IMAGES", 100),
		JPEGQuality:       getEnvAsInt("JPEG_QUALITY", 85),
		SendTimeout:       getEnvAsDuration("SEND_TIMEOUT", 5*time.Second),
		DispatchQueueSize: getEnvAsInt("DISPATCH_QUEUE_SIZE", 64),
		ShutdownGrace:     getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
	}

	if cfg.PlatformsFile != "" {
		file, err := LoadPlatformsFile(cfg.PlatformsFile)
		if err != nil {
			return nil, err
		}
		cfg.Platforms = file.Platforms
		cfg.Templates = file.Templates
	} else {
		cfg.Platforms = platformsFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Cooldown returns the cooldown window as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Validate rejects values the decision logic cannot work with.
func (c *Config) Validate() error {
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("invalid COOLDOWN_SECONDS %d: must not be negative", c.CooldownSeconds)
	}
	if c.MaxImages < 1 {
		return fmt.Errorf("invalid MAX_IMAGES %d: must be at least 1", c.MaxImages)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG_QUALITY %d: must be between 1 and 100", c.JPEGQuality)
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("invalid SEND_TIMEOUT %s: must be positive", c.SendTimeout)
	}
	if c.DispatchQueueSize < 1 {
		return fmt.Errorf("invalid DISPATCH_QUEUE_SIZE %d: must be at least 1", c.DispatchQueueSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s") or plain seconds ("5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
