// Package workflow implements the partition-provisioning pipeline: a fixed,
// one-directional sequence of stages that verifies the boot disk, shrinks
// the Windows partition, creates and formats the Linux partition and stages
// the contents of an installation ISO onto it.
package workflow

import "github.com/oneclickfedora/installer/pkg/diskops"

// Stage names one step of the pipeline.
type Stage string

const (
	StageSelectDisk       Stage = "select_disk"
	StageChooseSize       Stage = "choose_size"
	StageShrinkWindows    Stage = "shrink_windows"
	StageCreatePartition  Stage = "create_linux_partition"
	StageAcquireISO       Stage = "acquire_iso"
	StageLocatePartition  Stage = "locate_partition"
	StageMountISO         Stage = "mount_iso"
	StageResolveISOVolume Stage = "resolve_iso_volume"
	StageCopyContents     Stage = "copy_contents"
	StageCleanup          Stage = "cleanup"
	StageVerify           Stage = "verify"
	StageDone             Stage = "done"

	// StageFailed is the terminal state after a fatal abort.
	StageFailed Stage = "failed"
)

// Order is the only sequence in which stages run.
var Order = []Stage{
	StageSelectDisk,
	StageChooseSize,
	StageShrinkWindows,
	StageCreatePartition,
	StageAcquireISO,
	StageLocatePartition,
	StageMountISO,
	StageResolveISOVolume,
	StageCopyContents,
	StageCleanup,
	StageVerify,
	StageDone,
}

var titles = map[Stage]string{
	StageSelectDisk:       "Select disk",
	StageChooseSize:       "Choose size",
	StageShrinkWindows:    "Shrink Windows",
	StageCreatePartition:  "Create Linux partition",
	StageAcquireISO:       "Acquire ISO",
	StageLocatePartition:  "Locate partition",
	StageMountISO:         "Mount ISO",
	StageResolveISOVolume: "Resolve ISO volume",
	StageCopyContents:     "Copy contents",
	StageCleanup:          "Cleanup",
	StageVerify:           "Verify",
	StageDone:             "Done",
	StageFailed:           "Failed",
}

// Title is the operator-facing stage name.
func (s Stage) Title() string {
	if t, ok := titles[s]; ok {
		return t
	}
	return string(s)
}

// Next returns the stage that follows completed. The empty stage is the
// state before anything has run.
func Next(completed Stage) (Stage, bool) {
	if completed == "" {
		return Order[0], true
	}
	for i, s := range Order {
		if s == completed && i+1 < len(Order) {
			return Order[i+1], true
		}
	}
	return "", false
}

// State is carried from stage to stage. Stage is the last completed stage.
type State struct {
	RunID string `json:"run_id"`
	Stage Stage  `json:"stage"`

	BootDisk diskops.DiskID `json:"boot_disk"`
	Disk     diskops.DiskID `json:"disk"`
	SizeGB   uint64         `json:"size_gb"`

	Bounds      diskops.ShrinkBounds `json:"bounds"`
	NewBootSize uint64               `json:"new_boot_size"`
	Partition   diskops.Partition    `json:"partition"`

	ISOSource string `json:"iso_source"`
	ISOPath   string `json:"iso_path"`
	ISOSHA256 string `json:"iso_sha256,omitempty"`

	TargetVolume   diskops.Volume `json:"target_volume"`
	ImageVolume    diskops.Volume `json:"image_volume"`
	ImageMounted   bool           `json:"image_mounted"`
	CopyExitCode   int            `json:"copy_exit_code"`
	DismountFailed bool           `json:"dismount_failed"`
}

// Done reports whether the whole pipeline completed.
func (s *State) Done() bool {
	return s.Stage == StageDone
}
