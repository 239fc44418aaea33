package diskops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneclickfedora/installer/pkg/errors"
)

// fakeExecutor returns queued results and records every command.
type fakeExecutor struct {
	results []Result
	err     error
	calls   []Command
}

func (f *fakeExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return Result{}, f.err
	}
	if len(f.results) == 0 {
		return Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeExecutor) lastScript(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.calls)
	args := f.calls[len(f.calls)-1].Args
	require.NotEmpty(t, args)
	return args[len(args)-1]
}

func newTestGateway(results ...Result) (*PowerShell, *fakeExecutor) {
	fx := &fakeExecutor{results: results}
	return NewPowerShell("pwsh-test", fx), fx
}

func TestListDisks(t *testing.T) {
	gw, fx := newTestGateway(Result{Stdout: `[{"Number":0,"FriendlyName":"Samsung SSD 980","Size":512110190592},{"Number":1,"FriendlyName":"USB Disk","Size":32010928128}]` + "\r\n"})

	disks, err := gw.ListDisks(context.Background())
	require.NoError(t, err)
	require.Len(t, disks, 2)
	assert.Equal(t, DiskID(0), disks[0].Number)
	assert.Equal(t, "Samsung SSD 980", disks[0].FriendlyName)
	assert.Equal(t, uint64(32010928128), disks[1].Size)

	require.Len(t, fx.calls, 1)
	assert.Equal(t, "pwsh-test", fx.calls[0].Name)
	assert.Contains(t, fx.calls[0].Args, "-NonInteractive")
	assert.Contains(t, fx.lastScript(t), "Get-Disk")
}

func TestFindBootDisk(t *testing.T) {
	gw, _ := newTestGateway(Result{Stdout: "0"})

	disk, err := gw.FindBootDisk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DiskID(0), disk)
}

func TestFindBootDisk_NotFound(t *testing.T) {
	gw, _ := newTestGateway(Result{ExitCode: 2})

	_, err := gw.FindBootDisk(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "find_boot_disk", opErr.Op)
}

func TestFindBootDisk_GarbageOutput(t *testing.T) {
	gw, _ := newTestGateway(Result{Stdout: "WARNING: something"})

	_, err := gw.FindBootDisk(context.Background())
	require.Error(t, err)
}

func TestGetShrinkBounds(t *testing.T) {
	gw, fx := newTestGateway(Result{Stdout: `{"PartitionNumber":3,"DriveLetter":"C","Current":536870912000,"Minimum":483183820800,"Maximum":536870912000}`})

	b, err := gw.GetShrinkBounds(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), b.PartitionNumber)
	assert.Equal(t, "C", b.DriveLetter)
	assert.Equal(t, uint64(500)*GiB, b.Current)
	assert.Equal(t, uint64(450)*GiB, b.Minimum)
	assert.Equal(t, uint64(50)*GiB, b.Headroom())

	assert.Contains(t, fx.calls[0].Env, "ONECLICK_DISK=1")
}

func TestResizeBootPartition_PassesSizeThroughEnvironment(t *testing.T) {
	gw, fx := newTestGateway(Result{})

	newSize := uint64(85) * GiB
	require.NoError(t, gw.ResizeBootPartition(context.Background(), 0, newSize))

	script := fx.lastScript(t)
	assert.Contains(t, script, "Resize-Partition")
	assert.NotContains(t, script, fmt.Sprint(newSize))
	assert.Contains(t, fx.calls[0].Env, fmt.Sprintf("ONECLICK_SIZE=%d", newSize))
}

func TestResizeBootPartition_HostRejects(t *testing.T) {
	gw, _ := newTestGateway(Result{ExitCode: 1, Stderr: "Size Not Supported: unmovable files\r\n"})

	err := gw.ResizeBootPartition(context.Background(), 0, 10*GiB)
	require.Error(t, err)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "Size Not Supported: unmovable files", opErr.Diagnostic)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCreatePartition(t *testing.T) {
	gw, fx := newTestGateway(Result{Stdout: `{"Disk":0,"PartitionNumber":5,"DriveLetter":"E","Size":21474836480}`})

	part, err := gw.CreatePartition(context.Background(), 0, 20, LinuxVolumeLabel, LinuxFileSystem)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), part.PartitionNumber)
	assert.Equal(t, "E", part.DriveLetter)

	env := fx.calls[0].Env
	assert.Contains(t, env, "ONECLICK_DISK=0")
	assert.Contains(t, env, "ONECLICK_SIZE=21474836480")
	assert.Contains(t, env, "ONECLICK_LABEL=LINUXOS")
	assert.Contains(t, env, "ONECLICK_FS=NTFS")
	assert.Contains(t, fx.lastScript(t), "Format-Volume")
}

func TestImagePathIsNeverInterpolated(t *testing.T) {
	hostile := `C:\isos\x'; Remove-Item -Recurse C:\; '.iso`
	gw, fx := newTestGateway(Result{}, Result{Stdout: `{"DriveLetter":"F","Label":"Fedora-WS-Live","FileSystem":"UDF","Size":2300000000}`}, Result{})

	ctx := context.Background()
	require.NoError(t, gw.MountImage(ctx, hostile))
	vol, err := gw.GetImageVolume(ctx, hostile)
	require.NoError(t, err)
	require.NoError(t, gw.DismountImage(ctx, hostile))

	assert.Equal(t, `F:\`, vol.Root())
	require.Len(t, fx.calls, 3)
	for _, call := range fx.calls {
		assert.NotContains(t, call.Args[len(call.Args)-1], "Remove-Item")
		assert.Contains(t, call.Env, "ONECLICK_IMAGE="+hostile)
	}
}

func TestFindVolumeByLabel_NormalizesDriveLetter(t *testing.T) {
	gw, _ := newTestGateway(Result{Stdout: `{"DriveLetter":"e","Label":"LINUXOS","FileSystem":"NTFS","Size":21474836480}`})

	vol, err := gw.FindVolumeByLabel(context.Background(), LinuxVolumeLabel)
	require.NoError(t, err)
	assert.Equal(t, "E", vol.DriveLetter)
	assert.Equal(t, `E:\`, vol.Root())
}

func TestFindVolumeByLabel_NoDriveLetter(t *testing.T) {
	gw, _ := newTestGateway(Result{Stdout: "{\"DriveLetter\":\"\\u0000\",\"Label\":\"LINUXOS\",\"FileSystem\":\"NTFS\",\"Size\":1}"})

	vol, err := gw.FindVolumeByLabel(context.Background(), LinuxVolumeLabel)
	require.NoError(t, err)
	assert.Empty(t, vol.DriveLetter)
	assert.Empty(t, vol.Root())
}

func TestCopyTree_ReturnsExitCodeUninterpreted(t *testing.T) {
	tests := []int{0, 1, 3, 8, 16}
	for _, code := range tests {
		t.Run(fmt.Sprintf("exit_%d", code), func(t *testing.T) {
			gw, fx := newTestGateway(Result{ExitCode: code, Stdout: "Total Copied Skipped\n"})

			res, err := gw.CopyTree(context.Background(), Volume{DriveLetter: "F"}, Volume{DriveLetter: "E"})
			require.NoError(t, err)
			assert.Equal(t, code, res.ExitCode)

			call := fx.calls[0]
			assert.Equal(t, DefaultRobocopy, call.Name)
			assert.Equal(t, `F:\`, call.Args[0])
			assert.Equal(t, `E:\`, call.Args[1])
			assert.Contains(t, call.Args, "/E")
		})
	}
}

func TestCopyTree_MissingDriveLetter(t *testing.T) {
	gw, fx := newTestGateway()

	_, err := gw.CopyTree(context.Background(), Volume{}, Volume{DriveLetter: "E"})
	require.Error(t, err)
	assert.Empty(t, fx.calls)
}

func TestCopyTree_CannotStart(t *testing.T) {
	gw, fx := newTestGateway()
	fx.err = fmt.Errorf("executable file not found")

	_, err := gw.CopyTree(context.Background(), Volume{DriveLetter: "F"}, Volume{DriveLetter: "E"})
	require.Error(t, err)
}

func TestPathExists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "EFI", "BOOT"), 0755))
	iso := filepath.Join(root, "fedora.iso")
	require.NoError(t, os.WriteFile(iso, []byte("iso"), 0644))

	gw, _ := newTestGateway()
	ctx := context.Background()

	ok, err := gw.PathExists(ctx, root, filepath.Join("EFI", "BOOT"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.PathExists(ctx, "", iso)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.PathExists(ctx, root, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStub_AllOperationsFail(t *testing.T) {
	ctx := context.Background()
	var gw Gateway = Stub{}

	_, err := gw.FindBootDisk(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not supported"))

	assert.Error(t, gw.ResizeBootPartition(ctx, 0, GiB))
	_, err = gw.CopyTree(ctx, Volume{}, Volume{})
	assert.Error(t, err)
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "c\nd", lastLines("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a", lastLines("a", 5))
}
