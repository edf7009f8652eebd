// Package config loads bot configuration from an optional YAML file with
// environment-variable overrides. Env always wins, so deployments can keep a
// checked-in file for defaults and inject secrets separately.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	TelegramToken string `yaml:"telegram_token"`
	EBirdAPIKey   string `yaml:"ebird_api_key"`
	// ParamPrefix enables SSM Parameter Store token lookup when the keys
	// above are not set directly.
	ParamPrefix string `yaml:"param_prefix"`

	SnapshotPath     string        `yaml:"snapshot_path"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	SheetWebhookURL string `yaml:"sheet_webhook_url"`

	ListenAddr  string        `yaml:"listen_addr"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	PageSize    int           `yaml:"page_size"`
}

// Load reads the YAML file at path (missing file is fine) and applies env
// overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		SnapshotPath:     "dialog-state.json",
		SnapshotInterval: 30 * time.Second,
		ListenAddr:       ":8080",
		PollTimeout:      30 * time.Second,
		PageSize:         5,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Env-only configuration.
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.EBirdAPIKey, "EBIRD_API_KEY")
	overrideString(&cfg.ParamPrefix, "PARAM_PREFIX")
	overrideString(&cfg.SnapshotPath, "SNAPSHOT_PATH")
	overrideDuration(&cfg.SnapshotInterval, "SNAPSHOT_INTERVAL")
	overrideString(&cfg.SheetWebhookURL, "SHEET_WEBHOOK_URL")
	overrideString(&cfg.ListenAddr, "LISTEN_ADDR")
	overrideDuration(&cfg.PollTimeout, "POLL_TIMEOUT")
	overrideInt(&cfg.PageSize, "PAGE_SIZE")

	if cfg.TelegramToken == "" && cfg.ParamPrefix == "" {
		return Config{}, errors.New("config: TELEGRAM_TOKEN or PARAM_PREFIX is required")
	}
	if cfg.EBirdAPIKey == "" && cfg.ParamPrefix == "" {
		return Config{}, errors.New("config: EBIRD_API_KEY or PARAM_PREFIX is required")
	}
	if cfg.PageSize < 1 {
		return Config{}, errors.New("config: page_size must be at least 1")
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
