package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oneclickfedora/installer/internal/config"
	"github.com/oneclickfedora/installer/pkg/errors"
)

// loadConfig loads and validates the configuration and installs the
// configured logger. The returned func closes the log file, if any.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "config invalid")
	}

	closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

func setupLogging(level, file string) (func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		w = f
		closeLog = func() { f.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return closeLog, nil
}

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(historyPath, fsmDBPath, workDir string) error {
	// Create database directory
	if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	// Create FSM journal directory (only needed for journaled installs)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	// Create work directory (only needed for remote ISOs)
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}
