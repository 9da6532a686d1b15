package dr

import (
	"errors"
	"fmt"
)

var (
	// ErrPrimaryNotFound is returned when the hub does not tell which cluster runs a workload.
	ErrPrimaryNotFound = errors.New("primary cluster not found")
	// ErrTransitionInProgress is returned when an action is requested while another one is running.
	ErrTransitionInProgress = errors.New("dr transition in progress")
	// ErrClusterUnreachable is returned when a cluster needed by an action does not answer.
	ErrClusterUnreachable = errors.New("cluster unreachable")
	// ErrNoMirroringSummary is returned while rook has not yet reported the mirroring of a block pool.
	ErrNoMirroringSummary = errors.New("no mirroring summary")
)

// TransitionStuckError is returned when a step of a DR action does not converge. Nothing is rolled back.
type TransitionStuckError struct {
	Workload string
	Step     string
	Cluster  string
	Phase    Phase
	Err      error
}

// Error names the step, the cluster and the last observed phase.
func (stuckErr *TransitionStuckError) Error() string {
	return fmt.Sprintf("%s is stuck at step %q on cluster %s (phase %q): %v",
		stuckErr.Workload, stuckErr.Step, stuckErr.Cluster, stuckErr.Phase, stuckErr.Err)
}

// Unwrap returns the error of the step.
func (stuckErr *TransitionStuckError) Unwrap() error {
	return stuckErr.Err
}

// LeftoverResourcesError is returned when workload resources are still present on a cluster after a deletion
// wait.
type LeftoverResourcesError struct {
	Cluster   string
	Namespace string
	PVCs      int
	Pods      int
	VRGs      int
	Err       error
}

// Error lists the leftover resources.
func (leftoverErr *LeftoverResourcesError) Error() string {
	return fmt.Sprintf("namespace %s on cluster %s still has %d pvcs, %d pods and %d vrgs: %v",
		leftoverErr.Namespace, leftoverErr.Cluster, leftoverErr.PVCs, leftoverErr.Pods, leftoverErr.VRGs,
		leftoverErr.Err)
}

// Unwrap returns the timeout of the wait.
func (leftoverErr *LeftoverResourcesError) Unwrap() error {
	return leftoverErr.Err
}
