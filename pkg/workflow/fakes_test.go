package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/oneclickfedora/installer/pkg/console"
	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/media"
	"github.com/oneclickfedora/installer/pkg/storage"
)

const testISO = `C:\iso\Fedora-Workstation-Live-x86_64-40.iso`

// fakeGateway answers from fields and records every call by name.
type fakeGateway struct {
	calls []string

	boot      diskops.DiskID
	bootErr   error
	bootCalls int
	disks     []diskops.Disk
	listErr   error

	bounds    diskops.ShrinkBounds
	boundsErr error
	resizeErr error
	resized   []uint64

	created   diskops.Partition
	createErr error
	createReq struct {
		disk  diskops.DiskID
		size  uint64
		label string
		fs    diskops.FileSystem
	}

	target    diskops.Volume
	targetErr error

	mountErr error
	mounted  []string
	image    diskops.Volume
	imageErr error

	copyResult diskops.CopyResult
	copyErr    error
	onCopy     func()

	dismountErr error
	dismounted  []string

	// paths maps root+"|"+rel to existence.
	paths   map[string]bool
	pathErr error
}

// newFakeGateway is a host where every operation succeeds: boot disk 0
// with a 500 GiB Windows partition that can shrink to 450 GiB.
func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		boot: 0,
		disks: []diskops.Disk{
			{Number: 0, FriendlyName: "Samsung SSD 980 PRO 1TB", Size: 1000 * 1000 * 1000 * 1000},
			{Number: 1, FriendlyName: "WD Elements 25A3", Size: 2000 * 1000 * 1000 * 1000},
		},
		bounds: diskops.ShrinkBounds{
			PartitionNumber: 3,
			DriveLetter:     "C",
			Current:         500 * diskops.GiB,
			Minimum:         450 * diskops.GiB,
			Maximum:         500 * diskops.GiB,
		},
		target: diskops.Volume{DriveLetter: "E", Label: diskops.LinuxVolumeLabel, FileSystem: diskops.LinuxFileSystem},
		image:  diskops.Volume{DriveLetter: "F", Label: "Fedora-WS-Live-40", FileSystem: "UDF"},
		paths: map[string]bool{
			"|" + testISO:         true,
			`E:\|` + `EFI\BOOT`: true,
		},
	}
}

func (g *fakeGateway) called(op string) bool {
	for _, c := range g.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (g *fakeGateway) ListDisks(context.Context) ([]diskops.Disk, error) {
	g.calls = append(g.calls, "list_disks")
	return g.disks, g.listErr
}

func (g *fakeGateway) FindBootDisk(context.Context) (diskops.DiskID, error) {
	g.calls = append(g.calls, "find_boot_disk")
	g.bootCalls++
	return g.boot, g.bootErr
}

func (g *fakeGateway) GetShrinkBounds(_ context.Context, disk diskops.DiskID) (diskops.ShrinkBounds, error) {
	g.calls = append(g.calls, "get_shrink_bounds")
	return g.bounds, g.boundsErr
}

func (g *fakeGateway) ResizeBootPartition(_ context.Context, disk diskops.DiskID, newSize uint64) error {
	g.calls = append(g.calls, "resize")
	g.resized = append(g.resized, newSize)
	return g.resizeErr
}

func (g *fakeGateway) CreatePartition(_ context.Context, disk diskops.DiskID, sizeGB uint64, label string, fs diskops.FileSystem) (diskops.Partition, error) {
	g.calls = append(g.calls, "create_partition")
	g.createReq.disk, g.createReq.size, g.createReq.label, g.createReq.fs = disk, sizeGB, label, fs
	if g.createErr != nil {
		return diskops.Partition{}, g.createErr
	}
	p := g.created
	p.Disk = disk
	if p.Size == 0 {
		p.Size = sizeGB * diskops.GiB
	}
	return p, nil
}

func (g *fakeGateway) FindVolumeByLabel(_ context.Context, label string) (diskops.Volume, error) {
	g.calls = append(g.calls, "find_volume")
	return g.target, g.targetErr
}

func (g *fakeGateway) MountImage(_ context.Context, imagePath string) error {
	g.calls = append(g.calls, "mount")
	g.mounted = append(g.mounted, imagePath)
	return g.mountErr
}

func (g *fakeGateway) GetImageVolume(_ context.Context, imagePath string) (diskops.Volume, error) {
	g.calls = append(g.calls, "image_volume")
	return g.image, g.imageErr
}

func (g *fakeGateway) CopyTree(_ context.Context, src, dst diskops.Volume) (diskops.CopyResult, error) {
	g.calls = append(g.calls, "copy")
	if g.onCopy != nil {
		g.onCopy()
	}
	return g.copyResult, g.copyErr
}

func (g *fakeGateway) DismountImage(_ context.Context, imagePath string) error {
	g.calls = append(g.calls, "dismount")
	g.dismounted = append(g.dismounted, imagePath)
	return g.dismountErr
}

func (g *fakeGateway) PathExists(_ context.Context, root, rel string) (bool, error) {
	g.calls = append(g.calls, "path_exists")
	if g.pathErr != nil {
		return false, g.pathErr
	}
	return g.paths[root+"|"+rel], nil
}

type fakeFetcher struct {
	objects    map[string]bool
	result     *storage.DownloadResult
	err        error
	downloaded []string
}

func (f *fakeFetcher) Exists(_ context.Context, uri string) (bool, error) {
	return f.objects[uri], nil
}

func (f *fakeFetcher) Download(_ context.Context, uri, destDir string) (*storage.DownloadResult, error) {
	f.downloaded = append(f.downloaded, uri)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type recordedEvent struct {
	stage Stage
	event string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) StageStarted(_ context.Context, stage Stage, _ *State) {
	r.events = append(r.events, recordedEvent{stage, "started"})
}

func (r *fakeRecorder) StageFinished(_ context.Context, stage Stage, _ *State, err error) {
	ev := "completed"
	if err != nil {
		ev = "failed"
	}
	r.events = append(r.events, recordedEvent{stage, ev})
}

// newTestEngine wires gw to a console reading the given input lines. Local
// ISOs are reported as 2 GiB unless an option overrides the inspector.
func newTestEngine(t *testing.T, gw diskops.Gateway, lines []string, opts Options, extra ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()

	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	out := &bytes.Buffer{}
	ui := console.New(strings.NewReader(input), out, false)

	options := append([]Option{
		WithMediaInspector(
			func(p string) (media.Info, error) { return media.Info{Path: p, Size: 2 * diskops.GiB}, nil },
			func(p string) (string, error) { return "", fmt.Errorf("unexpected checksum of %s", p) },
		),
	}, extra...)

	return New(gw, ui, opts, options...), out
}

func autoOptions() Options {
	opts := DefaultOptions()
	opts.AssumeYes = true
	return opts
}
