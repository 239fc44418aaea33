// Package fsm journals the provisioning workflow with the superfly/fsm
// library. Each workflow stage is one transition; a failed stage moves the
// run to the failed state and nothing is retried.
package fsm

import (
	"context"
	"log/slog"

	"github.com/superfly/fsm"

	"github.com/oneclickfedora/installer/pkg/errors"
	"github.com/oneclickfedora/installer/pkg/workflow"
)

// Register registers the provisioning FSM
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[ProvisionRequest, ProvisionResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[ProvisionRequest, ProvisionResponse](manager, MachineName).
		Start(string(workflow.StageSelectDisk), m.transition(workflow.StageSelectDisk)).
		To(string(workflow.StageChooseSize), m.transition(workflow.StageChooseSize)).
		To(string(workflow.StageShrinkWindows), m.transition(workflow.StageShrinkWindows)).
		To(string(workflow.StageCreatePartition), m.transition(workflow.StageCreatePartition)).
		To(string(workflow.StageAcquireISO), m.transition(workflow.StageAcquireISO)).
		To(string(workflow.StageLocatePartition), m.transition(workflow.StageLocatePartition)).
		To(string(workflow.StageMountISO), m.transition(workflow.StageMountISO)).
		To(string(workflow.StageResolveISOVolume), m.transition(workflow.StageResolveISOVolume)).
		To(string(workflow.StageCopyContents), m.transition(workflow.StageCopyContents)).
		To(string(workflow.StageCleanup), m.transition(workflow.StageCleanup)).
		To(string(workflow.StageVerify), m.transition(workflow.StageVerify)).
		To(string(workflow.StageDone), m.transition(workflow.StageDone)).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}

// Run starts a journaled run of engine under runID and blocks until it
// reaches done or failed. A stage failure is returned as the engine
// reported it.
func Run(ctx context.Context, manager *fsm.Manager, engine *workflow.Engine, runID string) (*workflow.State, error) {
	m := NewMachine(engine)
	start, _, err := m.Register(ctx, manager)
	if err != nil {
		return nil, err
	}

	req := &ProvisionRequest{RunID: runID}
	resp := &ProvisionResponse{RunID: runID}

	version, err := start(ctx, runID, fsm.NewRequest(req, resp))
	if err != nil {
		return nil, errors.Wrap(err, "FSM start failed")
	}
	slog.Info("fsm_started", "run_id", runID, "version", version)

	waitErr := manager.Wait(ctx, version)

	st, failed := m.Result()
	if st == nil {
		st = resp
	}
	if failed != nil {
		return st, failed
	}
	if waitErr != nil {
		return st, errors.Wrap(waitErr, "FSM execution failed")
	}

	slog.Info("fsm_complete", "run_id", runID, "stage", st.Stage)
	return st, nil
}
