package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneclickfedora/installer/internal/config"
	"github.com/oneclickfedora/installer/pkg/console"
	"github.com/oneclickfedora/installer/pkg/db"
	"github.com/oneclickfedora/installer/pkg/diskops"
)

// hostGateway answers the read-only queries; everything else fails like the stub.
type hostGateway struct {
	diskops.Stub
	bootErr     error
	dismountErr error
	dismounted  []string
}

func (hostGateway) ListDisks(context.Context) ([]diskops.Disk, error) {
	return []diskops.Disk{
		{Number: 0, FriendlyName: "NVMe SAMSUNG MZVL21T0", Size: 1024 * diskops.GiB},
		{Number: 1, FriendlyName: "USB DISK 3.0", Size: 32 * diskops.GiB},
	}, nil
}

func (g hostGateway) FindBootDisk(context.Context) (diskops.DiskID, error) {
	return 0, g.bootErr
}

func (hostGateway) GetShrinkBounds(context.Context, diskops.DiskID) (diskops.ShrinkBounds, error) {
	return diskops.ShrinkBounds{DriveLetter: "C", Current: 900 * diskops.GiB, Minimum: 300 * diskops.GiB}, nil
}

func (g *hostGateway) DismountImage(_ context.Context, path string) error {
	g.dismounted = append(g.dismounted, path)
	return g.dismountErr
}

func newTestRepository(t *testing.T) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestShowDisks(t *testing.T) {
	var out bytes.Buffer
	ui := console.New(strings.NewReader(""), &out, false)

	require.NoError(t, showDisks(context.Background(), &hostGateway{}, ui))
	assert.Contains(t, out.String(), "NVMe SAMSUNG MZVL21T0")
	assert.Contains(t, out.String(), "(Windows)")
	assert.Contains(t, out.String(), "up to 600 GB for Linux")
}

func TestShowDisks_NoBootDisk(t *testing.T) {
	var out bytes.Buffer
	ui := console.New(strings.NewReader(""), &out, false)

	gw := &hostGateway{bootErr: fmt.Errorf("no boot partition")}
	require.NoError(t, showDisks(context.Background(), gw, ui))
	assert.NotContains(t, out.String(), "(Windows)")
	assert.Contains(t, out.String(), "[WARN] Cannot detect Windows disk")
}

func TestShowDisks_Stub(t *testing.T) {
	ui := console.New(strings.NewReader(""), &bytes.Buffer{}, false)
	assert.Error(t, showDisks(context.Background(), diskops.Stub{}, ui))
}

func TestDismountImage(t *testing.T) {
	var out bytes.Buffer
	gw := &hostGateway{}
	require.NoError(t, dismountImage(context.Background(), gw, &out, `C:\iso\Fedora.iso`))
	assert.Equal(t, []string{`C:\iso\Fedora.iso`}, gw.dismounted)

	gw.dismountErr = fmt.Errorf("not mounted")
	assert.Error(t, dismountImage(context.Background(), gw, &out, `C:\iso\Fedora.iso`))
}

func TestPrintRuns(t *testing.T) {
	repo := newTestRepository(t)

	var out bytes.Buffer
	require.NoError(t, printRuns(&out, repo, 10))
	assert.Contains(t, out.String(), "No runs found")

	require.NoError(t, repo.CreateRun(&db.Run{ID: "0b7e6a5e-run", Status: db.StatusFailed, SizeGB: 20, FailedStage: "copy_contents"}))
	out.Reset()
	require.NoError(t, printRuns(&out, repo, 10))
	assert.Contains(t, out.String(), "0b7e6a5e-run")
	assert.Contains(t, out.String(), "copy_contents")
	assert.Contains(t, out.String(), "20GB")
}

func TestPrintRun(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.CreateRun(&db.Run{ID: "run-x", Status: db.StatusSucceeded, ISOSource: `C:\iso\Fedora.iso`}))
	require.NoError(t, repo.AddEvent(&db.StageEvent{RunID: "run-x", Stage: "select_disk", Status: db.EventCompleted}))

	var out bytes.Buffer
	require.NoError(t, printRun(&out, repo, "run-x"))
	assert.Contains(t, out.String(), `ISO:       C:\iso\Fedora.iso`)
	assert.Contains(t, out.String(), "select_disk")

	assert.Error(t, printRun(&out, repo, "missing"))
}

func TestRemoveDownloads(t *testing.T) {
	repo := newTestRepository(t)
	workDir := t.TempDir()

	iso := filepath.Join(workDir, "Fedora-40.iso")
	partial := filepath.Join(workDir, "Fedora-41.iso.part")
	keep := filepath.Join(workDir, "notes.txt")
	for _, p := range []string{iso, partial, keep} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	require.NoError(t, repo.RecordDownload(&db.Download{URI: "s3://m/Fedora-40.iso", LocalPath: iso}))
	require.NoError(t, repo.RecordDownload(&db.Download{URI: "s3://m/gone.iso", LocalPath: filepath.Join(workDir, "gone.iso")}))

	var out bytes.Buffer
	require.NoError(t, removeDownloads(&out, repo, workDir))

	assert.NoFileExists(t, iso)
	assert.NoFileExists(t, partial)
	assert.FileExists(t, keep)
	assert.Contains(t, out.String(), "Removed 3 files")

	downloads, err := repo.ListDownloads()
	require.NoError(t, err)
	assert.Empty(t, downloads)
}

func TestWorkflowOptions(t *testing.T) {
	cfg := &config.Config{MinSizeGB: 30, CopyFailureThreshold: 8, MarkerPath: `EFI\BOOT`, WorkDir: "w", AssumeYes: true}

	opts, err := workflowOptions(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(30), opts.MinPartitionGB)
	assert.Equal(t, 8, opts.CopyPolicy.FailureThreshold)
	assert.True(t, opts.AssumeYes)
	assert.Empty(t, opts.ExpectedSHA256)

	opts, err = workflowOptions(cfg, "SHA256:"+strings.Repeat("AB", 32))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 32), opts.ExpectedSHA256)

	_, err = workflowOptions(cfg, "abc")
	assert.Error(t, err)
}
