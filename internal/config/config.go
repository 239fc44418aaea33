package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// History and journal
	HistoryPath string `mapstructure:"history-path"`
	FSMDBPath   string `mapstructure:"fsm-db-path"`
	Journal     bool   `mapstructure:"journal"`

	// Working directory for downloaded ISOs
	WorkDir string `mapstructure:"work-dir"`

	// Workflow tuning
	MinSizeGB            uint64 `mapstructure:"min-size-gb"`
	CopyFailureThreshold int    `mapstructure:"copy-failure-threshold"`
	MarkerPath           string `mapstructure:"marker-path"`
	AssumeYes            bool   `mapstructure:"assume-yes"`

	// Host tools
	PowerShell string `mapstructure:"powershell"`

	// S3 configuration
	S3Region    string `mapstructure:"s3-region"`
	S3Anonymous bool   `mapstructure:"s3-anonymous"`

	// Logging
	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

// Defaults
const (
	DefaultMinSizeGB            = 6
	DefaultCopyFailureThreshold = 8
	DefaultMarkerPath           = `EFI\BOOT`
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("history-path", ".oneclick/history.db")
	viper.SetDefault("fsm-db-path", ".oneclick/fsm")
	viper.SetDefault("journal", true)
	viper.SetDefault("work-dir", filepath.Join(os.TempDir(), "oneclick-installer"))
	viper.SetDefault("min-size-gb", DefaultMinSizeGB)
	viper.SetDefault("copy-failure-threshold", DefaultCopyFailureThreshold)
	viper.SetDefault("marker-path", DefaultMarkerPath)
	viper.SetDefault("assume-yes", false)
	viper.SetDefault("powershell", "powershell.exe")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("s3-anonymous", true)
	viper.SetDefault("log-level", "warn")
	viper.SetDefault("log-file", "")

	// Environment variables (will be ONECLICK_HISTORY_PATH, etc.)
	viper.SetEnvPrefix("ONECLICK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("oneclick")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.oneclick")

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.HistoryPath == "" {
		return fmt.Errorf("history-path cannot be empty")
	}
	if c.Journal && c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty when the journal is enabled")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work-dir cannot be empty")
	}
	if c.MinSizeGB < DefaultMinSizeGB {
		return fmt.Errorf("min-size-gb must be at least %d", DefaultMinSizeGB)
	}
	if c.CopyFailureThreshold <= 0 {
		return fmt.Errorf("copy-failure-threshold must be positive")
	}
	if strings.TrimSpace(c.MarkerPath) == "" {
		return fmt.Errorf("marker-path cannot be empty")
	}
	if c.PowerShell == "" {
		return fmt.Errorf("powershell cannot be empty")
	}
	if c.S3Region == "" {
		return fmt.Errorf("s3-region cannot be empty")
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error: %q", c.LogLevel)
	}
	return nil
}
