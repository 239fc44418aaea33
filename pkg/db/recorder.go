package db

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oneclickfedora/installer/pkg/storage"
	"github.com/oneclickfedora/installer/pkg/workflow"
)

// Recorder writes workflow stage boundaries to the repository. Database
// errors are logged and swallowed so history never blocks a run.
type Recorder struct {
	repo *Repository

	mu       sync.Mutex
	run      *Run
	finished bool
}

// NewRecorder creates the run record for runID and returns a recorder for it.
func NewRecorder(repo *Repository, runID string) (*Recorder, error) {
	run := &Run{ID: runID, Status: StatusRunning}
	if err := repo.CreateRun(run); err != nil {
		return nil, err
	}
	return &Recorder{repo: repo, run: run}, nil
}

// RunID returns the recorded run's ID.
func (r *Recorder) RunID() string {
	return r.run.ID
}

func (r *Recorder) StageStarted(_ context.Context, stage workflow.Stage, _ *workflow.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addEvent(stage, EventStarted, "")
}

func (r *Recorder) StageFinished(_ context.Context, stage workflow.Stage, st *workflow.State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.capture(st)

	if err != nil {
		r.addEvent(stage, EventFailed, err.Error())
		r.finish(StatusFailed, string(stage), err.Error())
		return
	}
	r.addEvent(stage, EventCompleted, "")

	switch stage {
	case workflow.StageAcquireISO:
		if st.ISOPath != "" && storage.IsURI(st.ISOSource) {
			d := &Download{URI: st.ISOSource, LocalPath: st.ISOPath, SHA256: st.ISOSHA256, RunID: r.run.ID}
			if err := r.repo.RecordDownload(d); err != nil {
				slog.Warn("history_write_failed", "run_id", r.run.ID, "error", err)
			}
		}
		r.update()
	case workflow.StageDone:
		r.finish(StatusSucceeded, "", "")
	default:
		r.update()
	}
}

// Close marks the run failed with err if no stage has finished it, as when
// the driver fails outside a stage. It is a no-op after a terminal stage.
func (r *Recorder) Close(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	if err == nil {
		r.finish(StatusFailed, "", "run ended before completing")
		return
	}
	r.finish(StatusFailed, "", err.Error())
}

func (r *Recorder) capture(st *workflow.State) {
	if st == nil {
		return
	}
	r.run.Disk = int64(st.Disk)
	r.run.BootDisk = int64(st.BootDisk)
	r.run.SizeGB = int64(st.SizeGB)
	r.run.ISOSource = st.ISOSource
	r.run.ISOPath = st.ISOPath
	r.run.TargetVolume = st.TargetVolume.Root()
}

func (r *Recorder) finish(status, stage, message string) {
	r.run.Status = status
	r.run.FailedStage = stage
	r.run.ErrorMessage = message
	r.finished = true
	r.update()
}

func (r *Recorder) update() {
	if err := r.repo.UpdateRun(r.run); err != nil {
		slog.Warn("history_write_failed", "run_id", r.run.ID, "error", err)
	}
}

func (r *Recorder) addEvent(stage workflow.Stage, status, detail string) {
	ev := &StageEvent{RunID: r.run.ID, Stage: string(stage), Status: status, Detail: detail}
	if err := r.repo.AddEvent(ev); err != nil {
		slog.Warn("history_write_failed", "run_id", r.run.ID, "stage", stage, "error", err)
	}
}
