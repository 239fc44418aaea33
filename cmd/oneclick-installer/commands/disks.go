package commands

import (
	"context"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/oneclickfedora/installer/pkg/console"
	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
)

var disksCmd = &cobra.Command{
	Use:   "disks",
	Short: "Show disks, the Windows disk and how much space it can free",
	Args:  cobra.NoArgs,
	RunE:  runDisks,
}

func init() {
	rootCmd.AddCommand(disksCmd)
}

func runDisks(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	gw := diskops.NewGateway(cfg.PowerShell)
	ui := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), false)
	return showDisks(cmd.Context(), gw, ui)
}

func showDisks(ctx context.Context, gw diskops.Gateway, ui *console.Console) error {
	disks, err := gw.ListDisks(ctx)
	if err != nil {
		return errors.Wrap(err, "list disks failed")
	}

	boot, err := gw.FindBootDisk(ctx)
	if err != nil {
		ui.DiskTable(disks, diskops.DiskID(math.MaxUint32))
		ui.Warn("Cannot detect Windows disk (%v)", err)
		return nil
	}
	ui.DiskTable(disks, boot)

	bounds, err := gw.GetShrinkBounds(ctx, boot)
	if err != nil {
		ui.Warn("Cannot read Windows partition limits (%v)", err)
		return nil
	}
	ui.Progress("Windows partition %s: on disk %s, %s, can shrink to %s (up to %d GB for Linux)",
		bounds.DriveLetter, boot, humanize.IBytes(bounds.Current), humanize.IBytes(bounds.Minimum),
		bounds.Headroom()/diskops.GiB)
	return nil
}
