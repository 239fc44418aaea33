package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/superfly/fsm"

	"github.com/oneclickfedora/installer/pkg/errors"
	"github.com/oneclickfedora/installer/pkg/workflow"
)

// Machine adapts the workflow engine to journaled FSM transitions.
type Machine struct {
	engine *workflow.Engine

	mu     sync.Mutex
	last   *workflow.State
	failed error
}

// NewMachine creates a new FSM machine over engine
func NewMachine(engine *workflow.Engine) *Machine {
	return &Machine{engine: engine}
}

// transition runs one workflow stage. Every failure aborts the FSM: disk
// operations are never repeated by the library.
func (m *Machine) transition(stage workflow.Stage) func(context.Context, *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
	return func(ctx context.Context, req *fsm.Request[ProvisionRequest, ProvisionResponse]) (*fsm.Response[ProvisionResponse], error) {
		slog.Info("fsm_state", "run_id", req.Msg.RunID, "state", stage)

		st := req.W.Msg
		if st == nil {
			st = &workflow.State{RunID: req.Msg.RunID}
		}

		if retry := fsm.RetryFromContext(ctx); retry > 0 {
			err := errors.NewStageError(string(stage), errors.KindUnknown, "interrupted stage is not repeated",
				fmt.Errorf("retry %d", retry))
			slog.Error("fsm_retry_refused", "run_id", req.Msg.RunID, "state", stage, "retry", retry)
			m.record(st, err)
			return nil, fsm.Abort(err)
		}

		if err := m.engine.RunStage(ctx, stage, st); err != nil {
			m.record(st, err)
			return nil, fsm.Abort(err)
		}

		m.record(st, nil)
		return fsm.NewResponse(st), nil
	}
}

func (m *Machine) record(st *workflow.State, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = st
	if err != nil && m.failed == nil {
		m.failed = err
	}
}

// Result returns the state after the last executed transition and the
// failure that aborted the run, if any.
func (m *Machine) Result() (*workflow.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.failed
}
