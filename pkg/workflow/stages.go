package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/oneclickfedora/installer/pkg/console"
	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
	"github.com/oneclickfedora/installer/pkg/media"
	"github.com/oneclickfedora/installer/pkg/storage"
)

func fatal(stage Stage, kind errors.Kind, message string, err error) error {
	return errors.NewStageError(string(stage), kind, message, err)
}

// promptFailure classifies an error returned by a prompt. Prompts only fail
// when the input stream ends or the run is cancelled.
func promptFailure(ctx context.Context, stage Stage, err error) error {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return fatal(stage, errors.KindCancelled, "cancelled", err)
	case errors.Is(err, console.ErrInputClosed):
		return fatal(stage, errors.KindInput, "input closed before a valid answer was given", nil)
	}
	return fatal(stage, errors.KindInput, "cannot read input", err)
}

func (e *Engine) selectDisk(ctx context.Context, st *State) error {
	for {
		boot, err := e.gw.FindBootDisk(ctx)
		if err != nil {
			return fatal(StageSelectDisk, errors.KindPrecondition, "cannot detect Windows disk", err)
		}

		disks, err := e.gw.ListDisks(ctx)
		if err != nil {
			slog.Warn("list_disks_failed", "error", err)
			e.ui.Warn("Cannot list disks (%s)", Diagnostic(err))
		} else {
			e.ui.DiskTable(disks, boot)
		}

		selected, err := e.ui.PromptDiskSelection(ctx)
		if err != nil {
			return promptFailure(ctx, StageSelectDisk, err)
		}

		if selected != boot {
			slog.Warn("disk_rejected", "selected", selected, "boot_disk", boot)
			e.ui.Warn("Wrong disk. Please try again.")
			continue
		}

		st.BootDisk = boot
		st.Disk = selected
		e.ui.Success("Disk verified")
		return nil
	}
}

func (e *Engine) chooseSize(ctx context.Context, st *State) error {
	size, err := e.ui.PromptPartitionSize(ctx, e.opts.MinPartitionGB)
	if err != nil {
		return promptFailure(ctx, StageChooseSize, err)
	}
	st.SizeGB = size
	return nil
}

func (e *Engine) shrinkWindows(ctx context.Context, st *State) error {
	e.ui.Progress("Checking Windows partition on disk %s", st.Disk)

	bounds, err := e.gw.GetShrinkBounds(ctx, st.Disk)
	if err != nil {
		return fatal(StageShrinkWindows, errors.KindHostFailure, "cannot read Windows partition limits", err)
	}
	st.Bounds = bounds
	slog.Info("shrink_bounds",
		"disk", st.Disk,
		"partition", bounds.PartitionNumber,
		"current", bounds.Current,
		"minimum", bounds.Minimum,
	)

	target, err := ShrinkTarget(bounds, st.SizeGB)
	if err != nil {
		return fatal(StageShrinkWindows, errors.KindPrecondition, "Shrink would exceed the space Windows can free", err)
	}

	if !e.opts.AssumeYes {
		question := fmt.Sprintf("Shrink the Windows partition on disk %s from %s to %s and create a %d GB %s partition?",
			st.Disk, humanize.IBytes(bounds.Current), humanize.IBytes(target), st.SizeGB, diskops.LinuxVolumeLabel)
		ok, err := e.ui.Confirm(ctx, question)
		if err != nil {
			return promptFailure(ctx, StageShrinkWindows, err)
		}
		if !ok {
			return fatal(StageShrinkWindows, errors.KindCancelled, "cancelled by operator, no changes made", nil)
		}
	}

	e.ui.Progress("Shrinking Windows partition by %d GB", st.SizeGB)
	if err := e.gw.ResizeBootPartition(ctx, st.Disk, target); err != nil {
		return fatal(StageShrinkWindows, errors.KindHostFailure, "Shrink failed", err)
	}
	st.NewBootSize = target
	e.ui.Success("Windows partition shrunk to %s", humanize.IBytes(target))
	return nil
}

func (e *Engine) createPartition(ctx context.Context, st *State) error {
	e.ui.Progress("Creating %d GB %s partition", st.SizeGB, diskops.LinuxVolumeLabel)

	part, err := e.gw.CreatePartition(ctx, st.Disk, st.SizeGB, diskops.LinuxVolumeLabel, diskops.LinuxFileSystem)
	if err != nil {
		return fatal(StageCreatePartition, errors.KindHostFailure, "Linux partition creation failed", err)
	}
	if part.Size == 0 {
		part.Size = st.SizeGB * diskops.GiB
	}
	st.Partition = part
	e.ui.Success("Linux partition created and formatted as %s", diskops.LinuxVolumeLabel)
	return nil
}

func (e *Engine) acquireISO(ctx context.Context, st *State) error {
	location, err := e.ui.PromptISOPath(ctx, func(p string) error {
		return e.checkISO(ctx, p, st.Partition.Size)
	})
	if err != nil {
		return promptFailure(ctx, StageAcquireISO, err)
	}
	st.ISOSource = location

	downloaded := false
	if storage.IsURI(location) {
		e.ui.Progress("Downloading %s", location)
		res, err := e.fetcher.Download(ctx, location, e.opts.WorkDir)
		if err != nil {
			return fatal(StageAcquireISO, errors.KindHostFailure, "ISO download failed", err)
		}
		st.ISOPath = res.LocalPath
		st.ISOSHA256 = res.SHA256
		downloaded = true
		if err := e.validator.ValidateFits(uint64(res.Size), st.Partition.Size); err != nil {
			discardDownload(res.LocalPath)
			return fatal(StageAcquireISO, errors.KindPrecondition, "ISO does not fit on the Linux partition", err)
		}
		e.ui.Success("Downloaded %s (%s)", res.LocalPath, humanize.IBytes(uint64(res.Size)))
	} else {
		path, err := absImagePath(location)
		if err != nil {
			return fatal(StageAcquireISO, errors.KindPrecondition, "cannot resolve ISO path", err)
		}
		st.ISOPath = path
	}

	if e.opts.ExpectedSHA256 != "" {
		if st.ISOSHA256 == "" {
			e.ui.Progress("Computing ISO checksum")
			sum, err := e.checksum(st.ISOPath)
			if err != nil {
				return fatal(StageAcquireISO, errors.KindHostFailure, "cannot read ISO", err)
			}
			st.ISOSHA256 = sum
		}
		if err := media.MatchChecksum(e.opts.ExpectedSHA256, st.ISOSHA256); err != nil {
			if downloaded {
				discardDownload(st.ISOPath)
			}
			return fatal(StageAcquireISO, errors.KindPrecondition, "ISO checksum mismatch", err)
		}
		e.ui.Success("ISO checksum verified")
	}

	slog.Info("iso_selected", "source", st.ISOSource, "path", st.ISOPath)
	return nil
}

// checkISO is the prompt validator for ISO locations. Any error re-prompts.
func (e *Engine) checkISO(ctx context.Context, location string, capacity uint64) error {
	if err := e.validator.ValidatePath(location); err != nil {
		return err
	}

	if storage.IsURI(location) {
		if e.fetcher == nil {
			return fmt.Errorf("remote ISO locations are not configured")
		}
		ok, err := e.fetcher.Exists(ctx, location)
		if err != nil {
			return fmt.Errorf("cannot reach %s: %v", location, err)
		}
		if !ok {
			return fmt.Errorf("ISO not found: %s", location)
		}
		return nil
	}

	ok, err := e.gw.PathExists(ctx, "", location)
	if err != nil {
		return fmt.Errorf("cannot check %s: %v", location, err)
	}
	if !ok {
		return fmt.Errorf("ISO not found: %s", location)
	}

	info, err := e.inspect(location)
	if err != nil {
		return fmt.Errorf("cannot read %s: %v", location, err)
	}
	return e.validator.ValidateFits(info.Size, capacity)
}

// absImagePath resolves a local image path against the working directory,
// since the host's image cmdlets only accept full paths. Drive-qualified and
// UNC paths are returned as entered.
func absImagePath(p string) (string, error) {
	if strings.HasPrefix(p, `\\`) || (len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')) {
		return p, nil
	}
	return filepath.Abs(p)
}

// discardDownload removes a downloaded image that will not be used.
func discardDownload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("download_remove_failed", "path", path, "error", err)
		return
	}
	slog.Info("download_discarded", "path", path)
}

func (e *Engine) locatePartition(ctx context.Context, st *State) error {
	vol, err := e.gw.FindVolumeByLabel(ctx, diskops.LinuxVolumeLabel)
	if err != nil {
		return fatal(StageLocatePartition, errors.KindHostFailure, "LINUXOS partition not found", err)
	}
	if vol.Root() == "" {
		return fatal(StageLocatePartition, errors.KindHostFailure, "LINUXOS partition not found",
			fmt.Errorf("volume %q has no drive letter", vol.Label))
	}
	st.TargetVolume = vol
	e.ui.Progress("Linux partition is %s", vol.Root())
	return nil
}

func (e *Engine) mountISO(ctx context.Context, st *State) error {
	e.ui.Progress("Mounting ISO")
	if err := e.gw.MountImage(ctx, st.ISOPath); err != nil {
		return fatal(StageMountISO, errors.KindHostFailure, "ISO mount failed", err)
	}
	st.ImageMounted = true
	return nil
}

func (e *Engine) resolveISOVolume(ctx context.Context, st *State) error {
	vol, err := e.gw.GetImageVolume(ctx, st.ISOPath)
	if err != nil {
		return fatal(StageResolveISOVolume, errors.KindHostFailure, "Cannot resolve mounted ISO volume", err)
	}
	if vol.Root() == "" {
		return fatal(StageResolveISOVolume, errors.KindHostFailure, "Cannot resolve mounted ISO volume",
			fmt.Errorf("mounted image has no drive letter"))
	}
	st.ImageVolume = vol
	e.ui.Progress("ISO mounted at %s", vol.Root())
	return nil
}

func (e *Engine) copyContents(ctx context.Context, st *State) error {
	e.ui.Progress("Copying ISO contents from %s to %s", st.ImageVolume.Root(), st.TargetVolume.Root())

	res, err := e.gw.CopyTree(ctx, st.ImageVolume, st.TargetVolume)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// A killed copy can exit with a code the policy accepts.
		slog.Warn("copy_interrupted", "exit_code", res.ExitCode, "error", ctxErr)
		st.CopyExitCode = res.ExitCode
		return fatal(StageCopyContents, errors.KindCancelled, "Copy failed", ctxErr)
	}
	if err != nil {
		return fatal(StageCopyContents, errors.KindCopy, "Copy failed", err)
	}
	st.CopyExitCode = res.ExitCode
	slog.Info("copy_finished", "exit_code", res.ExitCode)

	if !e.opts.CopyPolicy.Succeeded(res.ExitCode) {
		return fatal(StageCopyContents, errors.KindCopy, "Copy failed",
			&diskops.OpError{
				Op:         "copy",
				Diagnostic: res.Output,
				Err:        fmt.Errorf("exit code %d", res.ExitCode),
			})
	}
	e.ui.Success("ISO contents copied")
	return nil
}

func (e *Engine) cleanup(ctx context.Context, st *State) error {
	if err := e.gw.DismountImage(ctx, st.ISOPath); err != nil {
		slog.Warn("dismount_failed", "path", st.ISOPath, "error", err)
		e.ui.Warn("Could not dismount ISO (%s)", Diagnostic(err))
		st.DismountFailed = true
		return nil
	}
	st.ImageMounted = false
	return nil
}

func (e *Engine) verify(ctx context.Context, st *State) error {
	ok, err := e.gw.PathExists(ctx, st.TargetVolume.Root(), e.opts.MarkerPath)
	if err != nil {
		return fatal(StageVerify, errors.KindVerification, "Verification failed", err)
	}
	if !ok {
		return fatal(StageVerify, errors.KindVerification, "Verification failed",
			fmt.Errorf("%s missing on %s", e.opts.MarkerPath, st.TargetVolume.Root()))
	}
	return nil
}

func (e *Engine) done(_ context.Context, st *State) error {
	e.ui.Success("Linux partition ready: %d GB on disk %s at %s, staged from %s",
		st.SizeGB, st.Disk, st.TargetVolume.Root(), st.ISOSource)
	slog.Info("provisioning_complete", "run_id", st.RunID, "disk", st.Disk, "size_gb", st.SizeGB)
	return nil
}
