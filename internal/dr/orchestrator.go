package dr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	"golang.org/x/sync/errgroup"
)

// Timeouts bound every convergence wait of the orchestrator.
type Timeouts struct {
	Phase     time.Duration
	Resources time.Duration
	Deletion  time.Duration
	Mirroring time.Duration
	SyncTime  time.Duration
}

// DefaultTimeouts returns the timeouts used against real clusters.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Phase:     odfparams.DRPCPhaseTimeout,
		Resources: odfparams.WorkloadResourcesTimeout,
		Deletion:  odfparams.WorkloadDeletionTimeout,
		Mirroring: odfparams.MirroringStatusTimeout,
		SyncTime:  odfparams.DRPCPhaseTimeout,
	}
}

// Orchestrator drives failover and relocate of DR workloads through the active hub of a registry.
type Orchestrator struct {
	Registry *multicluster.Registry
	Interval time.Duration
	Timeouts Timeouts
	// Reachable probes a cluster. clients.ProbeContext is used when nil.
	Reachable func(ctx context.Context, apiClient *clients.Settings) bool
}

// NewOrchestrator returns an Orchestrator with the default interval and timeouts.
func NewOrchestrator(registry *multicluster.Registry) *Orchestrator {
	return &Orchestrator{
		Registry: registry,
		Interval: odfparams.DefaultPollInterval,
		Timeouts: DefaultTimeouts(),
	}
}

// Failover moves workload to failoverCluster. The DRPC is patched on the active hub, the registry primary is
// moved once the DRPC reports FailedOver and the workload resources must then come up on failoverCluster. When
// oldPrimary answers, the cleanup of the workload on it is awaited too.
func (orchestrator *Orchestrator) Failover(
	ctx context.Context, failoverCluster string, workload DRWorkload, oldPrimary string) error {
	return orchestrator.Registry.RunOnACM(func(hub *multicluster.ClusterConfig) error {
		return orchestrator.transition(ctx, hub, ActionFailover, failoverCluster, workload, oldPrimary)
	})
}

// Relocate moves workload back to preferredCluster. Both clusters must answer. The relocation is requested once
// the workload was synced after its last transition.
func (orchestrator *Orchestrator) Relocate(
	ctx context.Context, preferredCluster string, workload DRWorkload, oldPrimary string) error {
	for _, name := range []string{preferredCluster, oldPrimary} {
		if !orchestrator.reachable(ctx, name) {
			return fmt.Errorf("cannot relocate %s, cluster %s: %w", workload, name, ErrClusterUnreachable)
		}
	}

	return orchestrator.Registry.RunOnACM(func(hub *multicluster.ClusterConfig) error {
		return orchestrator.transition(ctx, hub, ActionRelocate, preferredCluster, workload, oldPrimary)
	})
}

// FailoverAll fails every workload over to target in parallel. The hub is taken explicitly, the current cluster
// of the registry is not switched.
func (orchestrator *Orchestrator) FailoverAll(ctx context.Context, workloads []DRWorkload, target string) error {
	hub := orchestrator.Registry.Cluster(orchestrator.Registry.ActiveACMIndex())
	if hub == nil {
		return fmt.Errorf("no active ACM hub: %w", multicluster.ErrClusterNotFound)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for _, workload := range workloads {
		group.Go(func() error {
			oldPrimary, err := orchestrator.currentPrimary(groupCtx, hub, workload)
			if err != nil {
				return err
			}

			return orchestrator.transition(groupCtx, hub, ActionFailover, target, workload, oldPrimary)
		})
	}

	return group.Wait()
}

func (orchestrator *Orchestrator) transition(
	ctx context.Context,
	hub *multicluster.ClusterConfig,
	action Action,
	target string,
	workload DRWorkload,
	oldPrimary string) error {
	if err := workload.Validate(); err != nil {
		return err
	}

	targetIndex, err := orchestrator.Registry.IndexByName(target)
	if err != nil {
		return err
	}

	hubClient, err := hub.APIClient()
	if err != nil {
		return err
	}

	placement, err := getDRPC(ctx, hubClient, workload)
	if err != nil {
		return err
	}

	if phase := placement.phase(); IsInFlight(phase) {
		return fmt.Errorf("cannot request %s of %s while drpc is %s: %w", action, workload, phase,
			ErrTransitionInProgress)
	}

	if action == ActionRelocate {
		if err := orchestrator.WaitForLastGroupSyncTime(ctx, workload, placement.availableSince(),
			orchestrator.Timeouts.SyncTime); err != nil {
			return orchestrator.stuck(workload, "wait for last group sync", hub.ClusterName, placement.phase(), err)
		}
	}

	glog.V(odfparams.LogLevel).Infof("Requesting %s of %s to %s on hub %s", action, workload, target, hub)

	patched, err := requestAction(ctx, hubClient, workload, action, target)
	if err != nil {
		return err
	}

	want := targetPhase(action)

	lastPhase, err := orchestrator.waitForPhase(ctx, hubClient, workload, want, placement, patched.generation())
	if err != nil {
		return orchestrator.stuck(workload, fmt.Sprintf("wait for phase %s", want), hub.ClusterName, lastPhase, err)
	}

	if err := orchestrator.Registry.SetPrimary(targetIndex); err != nil {
		return err
	}

	err = orchestrator.waitForResources(ctx, target, workload, orchestrator.Timeouts.Resources)
	if err != nil {
		return orchestrator.stuck(workload, "wait for workload resources", target, want, err)
	}

	if oldPrimary == "" || oldPrimary == target {
		return nil
	}

	if action == ActionFailover && !orchestrator.reachable(ctx, oldPrimary) {
		glog.V(odfparams.LogLevel).Infof("%s is not reachable, skipping cleanup check of %s", oldPrimary, workload)

		return nil
	}

	err = orchestrator.waitForDeletion(ctx, oldPrimary, workload, orchestrator.Timeouts.Deletion)
	if err != nil {
		return orchestrator.stuck(workload, "wait for workload cleanup", oldPrimary, want, err)
	}

	glog.V(odfparams.LogLevel).Infof("%s of %s to %s completed", action, workload, target)

	return nil
}

// waitForPhase waits until the DRPC of workload reports want for the action just requested. A phase which was
// already want before the request only counts once the controller shows it handled the request: an in-flight
// phase was seen, the Available condition moved past its value in before, or the observed generation reached
// generation.
func (orchestrator *Orchestrator) waitForPhase(
	ctx context.Context,
	hubClient *clients.Settings,
	workload DRWorkload,
	want Phase,
	before *drpc,
	generation int64) (Phase, error) {
	var (
		lastPhase   Phase
		sawInFlight bool
	)

	availableBefore := before.availableSince()

	err := polling.PollUntil(ctx, orchestrator.Timeouts.Phase, orchestrator.Interval,
		func(ctx context.Context) (bool, error) {
			placement, err := getDRPC(ctx, hubClient, workload)
			if err != nil {
				return false, err
			}

			lastPhase = placement.phase()
			sawInFlight = sawInFlight || IsInFlight(lastPhase)
			glog.V(odfparams.LogLevel).Infof("drpc %s is %q, waiting for %s", workload.DRPCName, lastPhase, want)

			if lastPhase != want {
				return false, nil
			}

			handled := sawInFlight || placement.availableSince().After(availableBefore) ||
				(generation > 0 && placement.observedGeneration() >= generation)
			if !handled {
				glog.V(odfparams.LogLevel).Infof("drpc %s was %s before the request, waiting for the controller",
					workload.DRPCName, want)
			}

			return handled, nil
		},
		polling.WithName(fmt.Sprintf("drpc %s phase %s", workload.DRPCName, want)),
		polling.WithRetryOn(clients.IsTransientError))

	return lastPhase, err
}

// CurrentPrimary returns the cluster currently running workload, as told by the hub.
func (orchestrator *Orchestrator) CurrentPrimary(ctx context.Context, workload DRWorkload) (string, error) {
	hub := orchestrator.Registry.Cluster(orchestrator.Registry.ActiveACMIndex())
	if hub == nil {
		return "", fmt.Errorf("no active ACM hub: %w", multicluster.ErrClusterNotFound)
	}

	return orchestrator.currentPrimary(ctx, hub, workload)
}

// CurrentSecondary returns the DR peer of the current primary of workload.
func (orchestrator *Orchestrator) CurrentSecondary(ctx context.Context, workload DRWorkload) (string, error) {
	hub := orchestrator.Registry.Cluster(orchestrator.Registry.ActiveACMIndex())
	if hub == nil {
		return "", fmt.Errorf("no active ACM hub: %w", multicluster.ErrClusterNotFound)
	}

	primary, err := orchestrator.currentPrimary(ctx, hub, workload)
	if err != nil {
		return "", err
	}

	hubClient, err := hub.APIClient()
	if err != nil {
		return "", err
	}

	placement, err := getDRPC(ctx, hubClient, workload)
	if err != nil {
		return "", err
	}

	peers, err := policyClusters(ctx, hubClient, placement.policyName())
	if err != nil {
		return "", err
	}

	for _, peer := range peers {
		if peer != primary {
			return peer, nil
		}
	}

	return "", fmt.Errorf("drpolicy %s has no peer of %s", placement.policyName(), primary)
}

func (orchestrator *Orchestrator) currentPrimary(
	ctx context.Context, hub *multicluster.ClusterConfig, workload DRWorkload) (string, error) {
	hubClient, err := hub.APIClient()
	if err != nil {
		return "", err
	}

	decided, err := placementDecisionCluster(ctx, hubClient, workload)
	if err != nil {
		return "", err
	}

	if decided != "" {
		return decided, nil
	}

	placement, err := getDRPC(ctx, hubClient, workload)
	if err != nil {
		return "", err
	}

	primary := placement.preferredCluster()
	if placement.action() == ActionFailover {
		primary = placement.failoverCluster()
	}

	if primary == "" {
		return "", fmt.Errorf("%s on hub %s: %w", workload, hub, ErrPrimaryNotFound)
	}

	return primary, nil
}

// WaitForLastGroupSyncTime waits until the DRPC of workload reports a group sync newer than after.
func (orchestrator *Orchestrator) WaitForLastGroupSyncTime(
	ctx context.Context, workload DRWorkload, after time.Time, timeout time.Duration) error {
	hub := orchestrator.Registry.Cluster(orchestrator.Registry.ActiveACMIndex())
	if hub == nil {
		return fmt.Errorf("no active ACM hub: %w", multicluster.ErrClusterNotFound)
	}

	hubClient, err := hub.APIClient()
	if err != nil {
		return err
	}

	return polling.PollUntil(ctx, timeout, orchestrator.Interval,
		func(ctx context.Context) (bool, error) {
			placement, err := getDRPC(ctx, hubClient, workload)
			if err != nil {
				return false, err
			}

			synced, found := placement.lastGroupSyncTime()
			glog.V(odfparams.LogLevel).Infof("Last group sync of %s is %s (found %t), waiting for one after %s",
				workload, synced, found, after)

			return found && synced.After(after), nil
		},
		polling.WithName(fmt.Sprintf("group sync of %s", workload)),
		polling.WithRetryOn(clients.IsTransientError))
}

func (orchestrator *Orchestrator) reachable(ctx context.Context, name string) bool {
	index, err := orchestrator.Registry.IndexByName(name)
	if err != nil {
		return false
	}

	apiClient, err := orchestrator.Registry.Cluster(index).APIClient()
	if err != nil {
		return false
	}

	if orchestrator.Reachable != nil {
		return orchestrator.Reachable(ctx, apiClient)
	}

	return clients.ProbeContext(ctx, apiClient)
}

func (orchestrator *Orchestrator) stuck(workload DRWorkload, step, cluster string, phase Phase, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	return &TransitionStuckError{Workload: workload.String(), Step: step, Cluster: cluster, Phase: phase, Err: err}
}
