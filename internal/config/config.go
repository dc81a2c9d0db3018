package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/security"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads, validates, and defaults a JSON configuration file.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a configuration usable without any file on
// disk.
func DefaultConfig() *models.Config {
	config := &models.Config{
		Database: models.DatabaseConfig{Path: constants.DefaultDatabasePath},
		Server:   models.ServerConfig{Port: constants.DefaultServerPort, Enabled: true},
		Sound:    models.SoundConfig{Enabled: true},
		LogLevel: "info",
	}
	applyDefaults(config)
	return config
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if err := security.ValidateFilePath(c.Database.Path); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid database path: %v", err)}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port: %d", c.Server.Port)}
	}

	chat := c.Chat
	for name, v := range map[string]int{
		"windowSize":        chat.WindowSize,
		"replyThinkMs":      chat.ReplyThinkMs,
		"deliverySentMs":    chat.DeliverySentMs,
		"deliverySeenMs":    chat.DeliverySeenMs,
		"replyFragmentMs":   chat.ReplyFragmentMs,
		"welcomeFragmentMs": chat.WelcomeFragmentMs,
		"presenceResetMs":   chat.PresenceResetMs,
		"persistDebounceMs": chat.PersistDebounceMs,
		"eventBufferSize":   chat.EventBufferSize,
	} {
		if v < 0 {
			return models.ConfigError{Message: fmt.Sprintf("chat.%s must not be negative", name)}
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: fmt.Sprintf("invalid tracing sample rate: %v", c.Tracing.SampleRate)}
	}

	applyDefaults(c)
	return nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Chat.WindowSize == 0 {
		c.Chat.WindowSize = constants.DefaultWindowSize
	}
	if c.Chat.EventBufferSize == 0 {
		c.Chat.EventBufferSize = constants.DefaultEventBufferSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("GALECHAT_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("GALECHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("GALECHAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if endpoint := os.Getenv("GALECHAT_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.Enabled = true
	}
}
