package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/superfly/fsm"

	"github.com/oneclickfedora/installer/internal/config"
	"github.com/oneclickfedora/installer/pkg/console"
	"github.com/oneclickfedora/installer/pkg/db"
	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
	appfsm "github.com/oneclickfedora/installer/pkg/fsm"
	"github.com/oneclickfedora/installer/pkg/media"
	"github.com/oneclickfedora/installer/pkg/storage"
	"github.com/oneclickfedora/installer/pkg/workflow"
)

var (
	installSHA256    string
	installNoJournal bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Create the LINUXOS partition and stage an installation ISO onto it",
	Long: `Runs the provisioning workflow:
  verify the Windows disk, shrink its partition, create and format LINUXOS,
  copy the ISO contents onto it and verify the result.

Disk changes are not rolled back if a later step fails.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation before changing the disk")
	installCmd.Flags().StringVar(&installSHA256, "iso-sha256", "", "Expected SHA-256 of the ISO")
	installCmd.Flags().BoolVar(&installNoJournal, "no-journal", false, "Run without the FSM journal")

	viper.BindPFlag("assume-yes", installCmd.Flags().Lookup("yes"))
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	journal := cfg.Journal && !installNoJournal
	fsmDBPath := ""
	if journal {
		fsmDBPath = cfg.FSMDBPath
	}
	if err := ensureDirectories(cfg.HistoryPath, fsmDBPath, cfg.WorkDir); err != nil {
		return err
	}

	opts, err := workflowOptions(cfg, installSHA256)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ui := console.NewStd()
	ui.Banner("OneClick Fedora Installer")

	var engineOpts []workflow.Option

	repo, err := db.NewRepository(cfg.HistoryPath)
	if err != nil {
		slog.Warn("history_unavailable", "error", err)
	} else {
		defer repo.Close()
	}

	var recorder *db.Recorder
	if repo != nil {
		recorder, err = db.NewRecorder(repo, runID)
		if err != nil {
			slog.Warn("history_unavailable", "error", err)
		} else {
			engineOpts = append(engineOpts, workflow.WithRecorder(recorder))
		}
	}

	s3Client, err := storage.NewClient(ctx, cfg.S3Region, cfg.S3Anonymous)
	if err != nil {
		slog.Warn("s3_unavailable", "error", err)
	} else {
		engineOpts = append(engineOpts, workflow.WithFetcher(s3Client))
	}

	engine := workflow.New(diskops.NewGateway(cfg.PowerShell), ui, opts, engineOpts...)

	slog.Info("install_started", "run_id", runID, "journal", journal)
	var st *workflow.State
	if journal {
		st, err = runJournaled(ctx, fsmDBPath, engine, runID)
	} else {
		st, err = engine.Run(ctx, runID)
	}

	if recorder != nil {
		recorder.Close(err)
	}
	if err != nil {
		if st != nil && st.ImageMounted {
			ui.Warn("The ISO is still mounted. Run: oneclick-installer cleanup --dismount %q", st.ISOPath)
		}
		return err
	}

	slog.Info("install_complete", "run_id", runID)
	return nil
}

func workflowOptions(cfg *config.Config, sha string) (workflow.Options, error) {
	opts := workflow.Options{
		MinPartitionGB: cfg.MinSizeGB,
		CopyPolicy:     workflow.CopyPolicy{FailureThreshold: cfg.CopyFailureThreshold},
		MarkerPath:     cfg.MarkerPath,
		WorkDir:        cfg.WorkDir,
		AssumeYes:      cfg.AssumeYes,
	}
	if sha != "" {
		normalized, err := media.NormalizeChecksum(sha)
		if err != nil {
			return opts, errors.Wrap(err, "invalid --iso-sha256")
		}
		opts.ExpectedSHA256 = normalized
	}
	return opts, nil
}

func runJournaled(ctx context.Context, dbPath string, engine *workflow.Engine, runID string) (*workflow.State, error) {
	manager, err := fsm.New(fsm.Config{DBPath: dbPath})
	if err != nil {
		return nil, errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	return appfsm.Run(ctx, manager, engine, runID)
}
