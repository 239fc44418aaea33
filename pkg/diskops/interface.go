package diskops

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DiskID is the host's number for a physical disk.
type DiskID uint32

func (d DiskID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}

// FileSystem names a filesystem the host can format a volume with.
type FileSystem string

// Disk is one row of the host's disk listing.
type Disk struct {
	Number       DiskID `json:"Number"`
	FriendlyName string `json:"FriendlyName"`
	Size         uint64 `json:"Size"`
}

// ShrinkBounds describes the boot partition of a disk and how far the host
// allows it to shrink. All sizes are in bytes.
type ShrinkBounds struct {
	PartitionNumber uint32 `json:"PartitionNumber"`
	DriveLetter     string `json:"DriveLetter"`
	Current         uint64 `json:"Current"`
	Minimum         uint64 `json:"Minimum"`
	Maximum         uint64 `json:"Maximum"`
}

// Headroom is the number of bytes the partition can give up.
func (b ShrinkBounds) Headroom() uint64 {
	if b.Current <= b.Minimum {
		return 0
	}
	return b.Current - b.Minimum
}

// Partition is a partition created by CreatePartition.
type Partition struct {
	Disk            DiskID `json:"Disk"`
	PartitionNumber uint32 `json:"PartitionNumber"`
	DriveLetter     string `json:"DriveLetter"`
	Size            uint64 `json:"Size"`
}

// Volume is a mounted, addressable volume.
type Volume struct {
	DriveLetter string     `json:"DriveLetter"`
	Label       string     `json:"Label"`
	FileSystem  FileSystem `json:"FileSystem"`
	Size        uint64     `json:"Size"`
}

// Root returns the volume root path, e.g. `E:\`, or "" when the volume has
// no drive letter.
func (v Volume) Root() string {
	letter := normalizeDriveLetter(v.DriveLetter)
	if letter == "" {
		return ""
	}
	return letter + `:\`
}

// CopyResult carries the copy utility's exit code unchanged.
type CopyResult struct {
	ExitCode int
	Output   string
}

// OpError is a failed host operation. Diagnostic holds whatever text the
// host reported.
type OpError struct {
	Op         string
	Diagnostic string
	Err        error
}

func (e *OpError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Diagnostic)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Gateway performs single host-level disk, volume and image operations.
// Implementations do not retry and do not interpret failures.
type Gateway interface {
	// ListDisks returns the host's disks for display.
	ListDisks(ctx context.Context) ([]Disk, error)

	// FindBootDisk returns the disk hosting the running OS's boot partition.
	FindBootDisk(ctx context.Context) (DiskID, error)

	// GetShrinkBounds returns the boot partition's size limits on disk.
	GetShrinkBounds(ctx context.Context, disk DiskID) (ShrinkBounds, error)

	// ResizeBootPartition resizes the boot partition on disk to newSize bytes.
	ResizeBootPartition(ctx context.Context, disk DiskID, newSize uint64) error

	// CreatePartition creates a sizeGB partition in free space on disk and
	// formats it with fs and label.
	CreatePartition(ctx context.Context, disk DiskID, sizeGB uint64, label string, fs FileSystem) (Partition, error)

	// FindVolumeByLabel returns the volume carrying label.
	FindVolumeByLabel(ctx context.Context, label string) (Volume, error)

	// MountImage attaches a disk image file.
	MountImage(ctx context.Context, imagePath string) error

	// GetImageVolume returns the volume of an attached disk image.
	GetImageVolume(ctx context.Context, imagePath string) (Volume, error)

	// CopyTree recursively copies src onto dst.
	CopyTree(ctx context.Context, src, dst Volume) (CopyResult, error)

	// DismountImage detaches a disk image file.
	DismountImage(ctx context.Context, imagePath string) error

	// PathExists reports whether rel exists under root. An empty root means
	// rel is a full path.
	PathExists(ctx context.Context, root, rel string) (bool, error)
}

func normalizeDriveLetter(letter string) string {
	letter = strings.Trim(letter, "\x00 \t\r\n:\\")
	if len(letter) != 1 {
		return ""
	}
	return strings.ToUpper(letter)
}
