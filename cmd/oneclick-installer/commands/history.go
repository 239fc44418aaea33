package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/oneclickfedora/installer/pkg/db"
	"github.com/oneclickfedora/installer/pkg/errors"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past install runs, or the stage events of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	// Ensure database directory exists
	if err := ensureDirectories(cfg.HistoryPath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.HistoryPath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	if len(args) == 1 {
		return printRun(cmd.OutOrStdout(), repo, args[0])
	}
	return printRuns(cmd.OutOrStdout(), repo, historyLimit)
}

func printRuns(w io.Writer, repo *db.Repository, limit int) error {
	runs, err := repo.ListRuns(limit)
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-10s %-20s %-5s %-7s %-22s\n", "RUN ID", "STATUS", "STARTED", "DISK", "SIZE", "FAILED STAGE")
	fmt.Fprintln(w, "------------------------------------------------------------------------------------------------------------")

	for _, run := range runs {
		size := "-"
		if run.SizeGB > 0 {
			size = fmt.Sprintf("%dGB", run.SizeGB)
		}
		failed := run.FailedStage
		if failed == "" {
			failed = "-"
		}
		fmt.Fprintf(w, "%-36s %-10s %-20s %-5d %-7s %-22s\n",
			run.ID, run.Status, run.CreatedAt, run.Disk, size, failed)
	}

	return nil
}

func printRun(w io.Writer, repo *db.Repository, id string) error {
	run, err := repo.GetRun(id)
	if err != nil {
		return errors.Wrap(err, "query failed")
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	fmt.Fprintf(w, "Started:   %s\n", run.CreatedAt)
	fmt.Fprintf(w, "Disk:      %d\n", run.Disk)
	fmt.Fprintf(w, "Size:      %d GB\n", run.SizeGB)
	if run.ISOSource != "" {
		fmt.Fprintf(w, "ISO:       %s\n", run.ISOSource)
	}
	if run.TargetVolume != "" {
		fmt.Fprintf(w, "Partition: %s\n", run.TargetVolume)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     %s\n", run.ErrorMessage)
	}

	events, err := repo.ListEvents(id)
	if err != nil {
		return errors.Wrap(err, "list events failed")
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s %-24s %-10s %s\n", "TIME", "STAGE", "STATUS", "DETAIL")
	for _, ev := range events {
		fmt.Fprintf(w, "%-20s %-24s %-10s %s\n", ev.CreatedAt, ev.Stage, ev.Status, ev.Detail)
	}
	return nil
}
