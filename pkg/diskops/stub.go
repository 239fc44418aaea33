package diskops

import (
	"context"
	"fmt"
	"runtime"
)

// Stub is the gateway for hosts without the Windows storage stack.
// Every operation fails.
type Stub struct{}

func unsupported(op string) error {
	return &OpError{Op: op, Err: fmt.Errorf("disk operations not supported on %s", runtime.GOOS)}
}

func (Stub) ListDisks(ctx context.Context) ([]Disk, error) {
	return nil, unsupported("list_disks")
}

func (Stub) FindBootDisk(ctx context.Context) (DiskID, error) {
	return 0, unsupported("find_boot_disk")
}

func (Stub) GetShrinkBounds(ctx context.Context, disk DiskID) (ShrinkBounds, error) {
	return ShrinkBounds{}, unsupported("get_shrink_bounds")
}

func (Stub) ResizeBootPartition(ctx context.Context, disk DiskID, newSize uint64) error {
	return unsupported("resize_boot_partition")
}

func (Stub) CreatePartition(ctx context.Context, disk DiskID, sizeGB uint64, label string, fs FileSystem) (Partition, error) {
	return Partition{}, unsupported("create_partition")
}

func (Stub) FindVolumeByLabel(ctx context.Context, label string) (Volume, error) {
	return Volume{}, unsupported("find_volume_by_label")
}

func (Stub) MountImage(ctx context.Context, imagePath string) error {
	return unsupported("mount_image")
}

func (Stub) GetImageVolume(ctx context.Context, imagePath string) (Volume, error) {
	return Volume{}, unsupported("get_image_volume")
}

func (Stub) CopyTree(ctx context.Context, src, dst Volume) (CopyResult, error) {
	return CopyResult{}, unsupported("copy_tree")
}

func (Stub) DismountImage(ctx context.Context, imagePath string) error {
	return unsupported("dismount_image")
}

func (Stub) PathExists(ctx context.Context, root, rel string) (bool, error) {
	return false, unsupported("path_exists")
}
