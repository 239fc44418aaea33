package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oneclickfedora/installer/internal/config"
	"github.com/oneclickfedora/installer/pkg/errors"
)

var rootCmd = &cobra.Command{
	Use:   "oneclick-installer",
	Short: "Prepare a Windows disk for a Fedora installation",
	Long: `Shrinks the Windows partition, creates a LINUXOS partition in the freed
space and stages the contents of a Fedora installation ISO onto it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the failure's exit code.
// Stage failures have already been reported on the console.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if _, ok := errors.AsStageError(err); !ok {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(errors.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().String("history-path", ".oneclick/history.db", "SQLite run history path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".oneclick/fsm", "FSM journal directory")
	rootCmd.PersistentFlags().String("work-dir", "", "Directory for downloaded ISOs (default: system temp dir)")
	rootCmd.PersistentFlags().String("powershell", "powershell.exe", "PowerShell executable")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region for s3:// ISO locations")
	rootCmd.PersistentFlags().Bool("s3-anonymous", true, "Use unsigned S3 requests")
	rootCmd.PersistentFlags().Uint64("min-size-gb", config.DefaultMinSizeGB, "Minimum Linux partition size in GB")
	rootCmd.PersistentFlags().Int("copy-failure-threshold", config.DefaultCopyFailureThreshold, "Lowest robocopy exit code treated as a failure")
	rootCmd.PersistentFlags().String("marker-path", config.DefaultMarkerPath, "Path that must exist on the Linux partition after the copy")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	for _, name := range []string{
		"history-path",
		"fsm-db-path",
		"work-dir",
		"powershell",
		"s3-region",
		"s3-anonymous",
		"min-size-gb",
		"copy-failure-threshold",
		"marker-path",
		"log-level",
		"log-file",
	} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}
