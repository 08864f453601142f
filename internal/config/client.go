package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig holds configuration for the jobdeck CLI.
type ClientConfig struct {
	APIURL         string        `mapstructure:"JOBDECK_API_URL"`
	StatePath      string        `mapstructure:"JOBDECK_STATE_PATH"`
	DetailInterval time.Duration `mapstructure:"JOBDECK_DETAIL_INTERVAL"`
	BulkInterval   time.Duration `mapstructure:"JOBDECK_BULK_INTERVAL"`
	DebounceWindow time.Duration `mapstructure:"JOBDECK_DEBOUNCE_WINDOW"`
	HTTPTimeout    time.Duration `mapstructure:"JOBDECK_HTTP_TIMEOUT"`
	// Simulate runs against the in-process fake backend instead of APIURL.
	Simulate bool   `mapstructure:"JOBDECK_SIMULATE"`
	LogLevel string `mapstructure:"JOBDECK_LOG_LEVEL"`
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "jobdeck.db"
	}
	return filepath.Join(dir, "jobdeck", "state.db")
}

// LoadClient reads client configuration from environment variables and .env file.
func LoadClient() (*ClientConfig, error) {
	v := newViper()

	v.SetDefault("JOBDECK_API_URL", "http://localhost:8080")
	v.SetDefault("JOBDECK_STATE_PATH", defaultStatePath())
	v.SetDefault("JOBDECK_DETAIL_INTERVAL", "1s")
	v.SetDefault("JOBDECK_BULK_INTERVAL", "1m")
	v.SetDefault("JOBDECK_DEBOUNCE_WINDOW", "1s")
	v.SetDefault("JOBDECK_HTTP_TIMEOUT", "10s")
	v.SetDefault("JOBDECK_SIMULATE", false)
	v.SetDefault("JOBDECK_LOG_LEVEL", "warn")

	_ = v.ReadInConfig()

	cfg := &ClientConfig{
		APIURL:         v.GetString("JOBDECK_API_URL"),
		StatePath:      v.GetString("JOBDECK_STATE_PATH"),
		DetailInterval: v.GetDuration("JOBDECK_DETAIL_INTERVAL"),
		BulkInterval:   v.GetDuration("JOBDECK_BULK_INTERVAL"),
		DebounceWindow: v.GetDuration("JOBDECK_DEBOUNCE_WINDOW"),
		HTTPTimeout:    v.GetDuration("JOBDECK_HTTP_TIMEOUT"),
		Simulate:       v.GetBool("JOBDECK_SIMULATE"),
		LogLevel:       v.GetString("JOBDECK_LOG_LEVEL"),
	}

	if cfg.DetailInterval <= 0 || cfg.BulkInterval <= 0 {
		return nil, fmt.Errorf("poll intervals must be positive (detail %s, bulk %s)", cfg.DetailInterval, cfg.BulkInterval)
	}
	return cfg, nil
}
