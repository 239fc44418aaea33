package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oneclickfedora/installer/pkg/diskops"
	"github.com/oneclickfedora/installer/pkg/errors"
	"github.com/oneclickfedora/installer/pkg/media"
	"github.com/oneclickfedora/installer/pkg/storage"
)

// Console is the operator interface the engine drives.
type Console interface {
	Banner(title string)
	Progress(format string, a ...any)
	Success(format string, a ...any)
	Warn(format string, a ...any)
	Fail(format string, a ...any)
	DiskTable(disks []diskops.Disk, boot diskops.DiskID)

	PromptDiskSelection(ctx context.Context) (diskops.DiskID, error)
	PromptPartitionSize(ctx context.Context, min uint64) (uint64, error)
	PromptISOPath(ctx context.Context, check func(string) error) (string, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// Recorder observes stage boundaries. Implementations handle their own
// failures; they cannot stop the workflow.
type Recorder interface {
	StageStarted(ctx context.Context, stage Stage, st *State)
	StageFinished(ctx context.Context, stage Stage, st *State, err error)
}

// Fetcher retrieves remote (s3://) images.
type Fetcher interface {
	Exists(ctx context.Context, uri string) (bool, error)
	Download(ctx context.Context, uri, destDir string) (*storage.DownloadResult, error)
}

// Options tune the workflow.
type Options struct {
	// MinPartitionGB is the smallest accepted partition size.
	MinPartitionGB uint64
	// CopyPolicy classifies the copy utility's exit code.
	CopyPolicy CopyPolicy
	// MarkerPath must exist on the target volume after the copy.
	MarkerPath string
	// WorkDir receives downloaded images.
	WorkDir string
	// ExpectedSHA256, when set, must match the image digest.
	ExpectedSHA256 string
	// AssumeYes skips the confirmation before the first disk mutation.
	AssumeYes bool
}

// Defaults for Options.
const (
	DefaultMinPartitionGB = 6
	DefaultMarkerPath     = `EFI\BOOT`
)

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{
		MinPartitionGB: DefaultMinPartitionGB,
		CopyPolicy:     CopyPolicy{FailureThreshold: DefaultCopyFailureThreshold},
		MarkerPath:     DefaultMarkerPath,
	}
}

// Engine runs the provisioning stages against a gateway and a console.
type Engine struct {
	gw        diskops.Gateway
	ui        Console
	opts      Options
	recorder  Recorder
	fetcher   Fetcher
	validator *media.Validator
	inspect   func(string) (media.Info, error)
	checksum  func(string) (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a stage recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithFetcher enables s3:// image locations.
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithMediaInspector replaces how local images are sized and hashed.
func WithMediaInspector(inspect func(string) (media.Info, error), checksum func(string) (string, error)) Option {
	return func(e *Engine) {
		if inspect != nil {
			e.inspect = inspect
		}
		if checksum != nil {
			e.checksum = checksum
		}
	}
}

// New creates an Engine.
func New(gw diskops.Gateway, ui Console, opts Options, options ...Option) *Engine {
	if opts.MinPartitionGB < DefaultMinPartitionGB {
		opts.MinPartitionGB = DefaultMinPartitionGB
	}
	if opts.MarkerPath == "" {
		opts.MarkerPath = DefaultMarkerPath
	}

	e := &Engine{
		gw:        gw,
		ui:        ui,
		opts:      opts,
		recorder:  nopRecorder{},
		validator: media.NewValidator(),
		inspect:   media.Inspect,
		checksum:  media.FileSHA256,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Run executes every stage in order with a fresh state. It stops at the
// first failure and returns it as an *errors.StageError.
func (e *Engine) Run(ctx context.Context, runID string) (*State, error) {
	st := &State{RunID: runID}
	for _, stage := range Order {
		if err := e.RunStage(ctx, stage, st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// RunStage executes one stage. It refuses to run anything but the stage
// immediately following st.Stage, and advances st.Stage on success.
func (e *Engine) RunStage(ctx context.Context, stage Stage, st *State) error {
	next, ok := Next(st.Stage)
	if !ok || next != stage {
		err := errors.NewStageError(string(stage), errors.KindUnknown,
			"stage out of order", fmt.Errorf("expected %q after %q", next, st.Stage))
		slog.Error("stage_out_of_order", "stage", stage, "completed", st.Stage, "expected", next)
		return err
	}

	// A cancelled run never starts another stage.
	if err := ctx.Err(); err != nil {
		se := errors.NewStageError(string(stage), errors.KindCancelled, "cancelled", err)
		slog.Warn("stage_cancelled", "run_id", st.RunID, "stage", stage)
		e.recorder.StageFinished(ctx, stage, st, se)
		e.reportFailure(stage, se)
		return se
	}

	fn := e.handler(stage)
	slog.Info("stage_started", "run_id", st.RunID, "stage", stage)
	e.recorder.StageStarted(ctx, stage, st)

	err := fn(ctx, st)
	if err != nil {
		se, ok := errors.AsStageError(err)
		if !ok {
			se = errors.NewStageError(string(stage), errors.KindUnknown, "unexpected failure", err)
		}
		e.recorder.StageFinished(ctx, stage, st, se)
		slog.Error("stage_failed", "run_id", st.RunID, "stage", stage, "kind", se.Kind, "error", se)
		e.reportFailure(stage, se)
		return se
	}

	st.Stage = stage
	e.recorder.StageFinished(ctx, stage, st, nil)
	slog.Info("stage_completed", "run_id", st.RunID, "stage", stage)
	return nil
}

func (e *Engine) handler(stage Stage) func(context.Context, *State) error {
	switch stage {
	case StageSelectDisk:
		return e.selectDisk
	case StageChooseSize:
		return e.chooseSize
	case StageShrinkWindows:
		return e.shrinkWindows
	case StageCreatePartition:
		return e.createPartition
	case StageAcquireISO:
		return e.acquireISO
	case StageLocatePartition:
		return e.locatePartition
	case StageMountISO:
		return e.mountISO
	case StageResolveISOVolume:
		return e.resolveISOVolume
	case StageCopyContents:
		return e.copyContents
	case StageCleanup:
		return e.cleanup
	case StageVerify:
		return e.verify
	case StageDone:
		return e.done
	}
	return func(context.Context, *State) error {
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (e *Engine) reportFailure(stage Stage, se *errors.StageError) {
	if detail := Diagnostic(se.Err); detail != "" {
		e.ui.Fail("%s: %s (%s)", stage.Title(), se.Message, detail)
		return
	}
	e.ui.Fail("%s: %s", stage.Title(), se.Message)
}

// Diagnostic extracts the host's text from a gateway error.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var opErr *diskops.OpError
	if errors.As(err, &opErr) && opErr.Diagnostic != "" {
		return opErr.Diagnostic
	}
	return err.Error()
}

type nopRecorder struct{}

func (nopRecorder) StageStarted(context.Context, Stage, *State) {}

func (nopRecorder) StageFinished(context.Context, Stage, *State, error) {}
