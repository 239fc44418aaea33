package diskops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// ErrNotFound is reported when the queried partition, volume or image does
// not exist.
var ErrNotFound = errors.New("not found")

// PowerShell implements Gateway with the Windows Storage PowerShell module
// and robocopy.
type PowerShell struct {
	powershell string
	robocopy   string
	exec       Executor
	stat       func(string) (os.FileInfo, error)
}

// NewPowerShell creates a gateway that runs powershell through executor.
func NewPowerShell(powershell string, executor Executor) *PowerShell {
	if powershell == "" {
		powershell = DefaultPowerShell
	}
	if executor == nil {
		executor = ExecRunner{}
	}
	return &PowerShell{
		powershell: powershell,
		robocopy:   DefaultRobocopy,
		exec:       executor,
		stat:       os.Stat,
	}
}

func (p *PowerShell) ListDisks(ctx context.Context) ([]Disk, error) {
	out, err := p.script(ctx, "list_disks", scriptListDisks)
	if err != nil {
		return nil, err
	}

	var disks []Disk
	if err := decode("list_disks", out, &disks); err != nil {
		return nil, err
	}
	slog.Info("list_disks_complete", "disk_count", len(disks))
	return disks, nil
}

func (p *PowerShell) FindBootDisk(ctx context.Context) (DiskID, error) {
	out, err := p.script(ctx, "find_boot_disk", scriptFindBootDisk)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseUint(strings.TrimSpace(out), 10, 32)
	if err != nil {
		return 0, &OpError{Op: "find_boot_disk", Diagnostic: out, Err: errors.Wrap(err, "unexpected disk number")}
	}
	slog.Info("boot_disk_found", "disk", n)
	return DiskID(n), nil
}

func (p *PowerShell) GetShrinkBounds(ctx context.Context, disk DiskID) (ShrinkBounds, error) {
	out, err := p.script(ctx, "get_shrink_bounds", scriptShrinkBounds, envVar(envDisk, disk.String()))
	if err != nil {
		return ShrinkBounds{}, err
	}

	var b ShrinkBounds
	if err := decode("get_shrink_bounds", out, &b); err != nil {
		return ShrinkBounds{}, err
	}
	b.DriveLetter = normalizeDriveLetter(b.DriveLetter)
	slog.Info("shrink_bounds", "disk", disk, "partition", b.PartitionNumber,
		"current", b.Current, "minimum", b.Minimum, "maximum", b.Maximum)
	return b, nil
}

func (p *PowerShell) ResizeBootPartition(ctx context.Context, disk DiskID, newSize uint64) error {
	slog.Info("resize_boot_partition", "disk", disk, "new_size", newSize)
	_, err := p.script(ctx, "resize_boot_partition", scriptResizeBoot,
		envVar(envDisk, disk.String()),
		envVar(envSize, strconv.FormatUint(newSize, 10)))
	return err
}

func (p *PowerShell) CreatePartition(ctx context.Context, disk DiskID, sizeGB uint64, label string, fs FileSystem) (Partition, error) {
	slog.Info("create_partition", "disk", disk, "size_gb", sizeGB, "label", label, "filesystem", fs)
	out, err := p.script(ctx, "create_partition", scriptCreatePartition,
		envVar(envDisk, disk.String()),
		envVar(envSize, strconv.FormatUint(sizeGB*GiB, 10)),
		envVar(envLabel, label),
		envVar(envFS, string(fs)))
	if err != nil {
		return Partition{}, err
	}

	var part Partition
	if err := decode("create_partition", out, &part); err != nil {
		return Partition{}, err
	}
	part.DriveLetter = normalizeDriveLetter(part.DriveLetter)
	slog.Info("create_partition_complete", "disk", part.Disk, "partition", part.PartitionNumber, "drive", part.DriveLetter)
	return part, nil
}

func (p *PowerShell) FindVolumeByLabel(ctx context.Context, label string) (Volume, error) {
	out, err := p.script(ctx, "find_volume_by_label", scriptFindVolumeByLabel, envVar(envLabel, label))
	if err != nil {
		return Volume{}, err
	}
	return decodeVolume("find_volume_by_label", out)
}

func (p *PowerShell) MountImage(ctx context.Context, imagePath string) error {
	slog.Info("mount_image", "image", imagePath)
	_, err := p.script(ctx, "mount_image", scriptMountImage, envVar(envImage, imagePath))
	return err
}

func (p *PowerShell) GetImageVolume(ctx context.Context, imagePath string) (Volume, error) {
	out, err := p.script(ctx, "get_image_volume", scriptImageVolume, envVar(envImage, imagePath))
	if err != nil {
		return Volume{}, err
	}
	return decodeVolume("get_image_volume", out)
}

func (p *PowerShell) CopyTree(ctx context.Context, src, dst Volume) (CopyResult, error) {
	from, to := src.Root(), dst.Root()
	if from == "" || to == "" {
		return CopyResult{}, &OpError{Op: "copy_tree", Err: fmt.Errorf("volume has no drive letter (src=%q dst=%q)", src.DriveLetter, dst.DriveLetter)}
	}

	slog.Info("copy_tree_start", "src", from, "dst", to)
	res, err := p.exec.Run(ctx, Command{
		Name: p.robocopy,
		Args: []string{from, to, "/E", "/COPY:DAT", "/DCOPY:T", "/R:1", "/W:1", "/NP", "/NFL", "/NDL"},
	})
	if err != nil {
		return CopyResult{}, &OpError{Op: "copy_tree", Err: err}
	}

	slog.Info("copy_tree_complete", "src", from, "dst", to, "exit_code", res.ExitCode)
	return CopyResult{ExitCode: res.ExitCode, Output: lastLines(res.Stdout, 12)}, nil
}

func (p *PowerShell) DismountImage(ctx context.Context, imagePath string) error {
	slog.Info("dismount_image", "image", imagePath)
	_, err := p.script(ctx, "dismount_image", scriptDismountImage, envVar(envImage, imagePath))
	return err
}

func (p *PowerShell) PathExists(ctx context.Context, root, rel string) (bool, error) {
	path := rel
	if root != "" {
		path = filepath.Join(root, rel)
	}

	_, err := p.stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, &OpError{Op: "path_exists", Diagnostic: path, Err: err}
	}
}

// script runs a fixed script and returns its trimmed stdout. A non-zero
// exit status becomes an *OpError carrying the script's error text.
func (p *PowerShell) script(ctx context.Context, op, body string, env ...string) (string, error) {
	res, err := p.exec.Run(ctx, Command{
		Name: p.powershell,
		Args: []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", scriptPrelude + body},
		Env:  env,
	})
	if err != nil {
		slog.Error("powershell_failed", "op", op, "error", err)
		return "", &OpError{Op: op, Err: err}
	}

	if res.ExitCode != 0 {
		diag := strings.TrimSpace(res.Stderr)
		if diag == "" {
			diag = strings.TrimSpace(res.Stdout)
		}
		cause := fmt.Errorf("exit status %d", res.ExitCode)
		if res.ExitCode == exitNotFound {
			cause = ErrNotFound
		}
		slog.Error("powershell_op_failed", "op", op, "exit_code", res.ExitCode, "diagnostic", diag)
		return "", &OpError{Op: op, Diagnostic: diag, Err: cause}
	}

	return strings.TrimSpace(res.Stdout), nil
}

func decode(op, out string, v any) error {
	if out == "" {
		return &OpError{Op: op, Err: fmt.Errorf("empty output")}
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return &OpError{Op: op, Diagnostic: out, Err: errors.Wrap(err, "unexpected output")}
	}
	return nil
}

func decodeVolume(op, out string) (Volume, error) {
	var v Volume
	if err := decode(op, out, &v); err != nil {
		return Volume{}, err
	}
	v.DriveLetter = normalizeDriveLetter(v.DriveLetter)
	slog.Info("volume_found", "op", op, "drive", v.DriveLetter, "label", v.Label)
	return v, nil
}

func envVar(key, value string) string {
	return key + "=" + value
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
