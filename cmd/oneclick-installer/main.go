package main

import (
	"log/slog"
	"os"

	"github.com/oneclickfedora/installer/cmd/oneclick-installer/commands"
)

func main() {
	// Warn-level text logs on stderr until the configured level is known,
	// so prompts on stdout stay readable
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
