package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oneclickfedora/installer/pkg/db"
	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
)

var (
	cleanupDownloads bool
	cleanupDismount  string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up what an install run left behind",
	Long: `Clean up resources left by install runs:
  --downloads        Remove ISOs downloaded from S3 and partial downloads
  --dismount <iso>   Dismount an ISO left mounted by an aborted run`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupDownloads, "downloads", false, "Remove downloaded ISOs")
	cleanupCmd.Flags().StringVar(&cleanupDismount, "dismount", "", "Dismount the given ISO")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !cleanupDownloads && cleanupDismount == "" {
		return fmt.Errorf("must specify --downloads or --dismount")
	}

	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	out := cmd.OutOrStdout()

	if cleanupDismount != "" {
		gw := diskops.NewGateway(cfg.PowerShell)
		if err := dismountImage(cmd.Context(), gw, out, cleanupDismount); err != nil {
			return err
		}
	}

	if cleanupDownloads {
		if err := ensureDirectories(cfg.HistoryPath, "", ""); err != nil {
			return err
		}
		repo, err := db.NewRepository(cfg.HistoryPath)
		if err != nil {
			return errors.Wrap(err, "db init failed")
		}
		defer repo.Close()

		return removeDownloads(out, repo, cfg.WorkDir)
	}
	return nil
}

func dismountImage(ctx context.Context, gw diskops.Gateway, out io.Writer, path string) error {
	if err := gw.DismountImage(ctx, path); err != nil {
		return errors.Wrap(err, "dismount failed")
	}
	fmt.Fprintf(out, "Dismounted: %s\n", path)
	return nil
}

// removeDownloads deletes every recorded download and any partial download
// left in workDir.
func removeDownloads(out io.Writer, repo *db.Repository, workDir string) error {
	downloads, err := repo.ListDownloads()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	removed := 0
	for _, d := range downloads {
		if err := os.Remove(d.LocalPath); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(out, "Failed to remove %s: %v\n", d.LocalPath, err)
			continue
		}
		if err := repo.DeleteDownload(d.ID); err != nil {
			fmt.Fprintf(out, "Failed to forget %s: %v\n", d.URI, err)
			continue
		}
		fmt.Fprintf(out, "Removed: %s\n", d.LocalPath)
		removed++
	}

	// Partial downloads are never recorded
	if entries, err := os.ReadDir(workDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".part") {
				continue
			}
			path := filepath.Join(workDir, entry.Name())
			if err := os.Remove(path); err != nil {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "Removed partial download: %s\n", path)
			removed++
		}
	}

	fmt.Fprintf(out, "Removed %d files\n", removed)
	return nil
}
