package fsm

import "github.com/oneclickfedora/installer/pkg/workflow"

// ProvisionRequest is the FSM input
type ProvisionRequest struct {
	RunID string
}

// ProvisionResponse is the FSM output, accumulated across transitions.
type ProvisionResponse = workflow.State

// Machine name under which the provisioning run is journaled.
const MachineName = "provision"

// StateFailed is the terminal state of an aborted run.
const StateFailed = string(workflow.StageFailed)

// States returns the journaled state names in transition order, followed by
// the failure state.
func States() []string {
	names := make([]string, 0, len(workflow.Order)+1)
	for _, s := range workflow.Order {
		names = append(names, string(s))
	}
	return append(names, StateFailed)
}
