package disruption

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/pkg/lease"
	"github.com/red-hat-storage/odf-gotests/pkg/ocpcli"
	"github.com/red-hat-storage/odf-gotests/pkg/pod"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	"github.com/red-hat-storage/odf-gotests/pkg/slice"
	v1 "k8s.io/api/core/v1"
)

var (
	// ErrResourceNotFound is returned when no pod matches the selected role.
	ErrResourceNotFound = errors.New("no resource found for role")
	// ErrResourceIndex is returned when a resource index does not address a selected pod.
	ErrResourceIndex = errors.New("resource index out of range")
)

// Option configures Disruptions.
type Option func(*Disruptions)

// WithInterval sets the polling interval of the waits.
func WithInterval(interval time.Duration) Option {
	return func(disruptions *Disruptions) {
		disruptions.interval = interval
	}
}

// WithRespinTimeout sets how long a deleted pod or a killed daemon may take to come back.
func WithRespinTimeout(timeout time.Duration) Option {
	return func(disruptions *Disruptions) {
		disruptions.respinTimeout = timeout
	}
}

// Disruptions injects faults into the pods and daemons of one role of one cluster.
type Disruptions struct {
	apiClient     *clients.Settings
	cli           *ocpcli.CLI
	interval      time.Duration
	respinTimeout time.Duration

	descriptor    Descriptor
	leaderType    LeaderType
	selectedNode  string
	resources     []*pod.Builder
	resourceCount int
}

// New returns Disruptions acting on the cluster of apiClient. cli must target the same cluster, it runs the
// commands on nodes and in the toolbox.
func New(apiClient *clients.Settings, cli *ocpcli.CLI, options ...Option) (*Disruptions, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("disruptions need an apiClient")
	}

	if cli == nil {
		return nil, fmt.Errorf("disruptions need an oc cli")
	}

	disruptions := &Disruptions{
		apiClient:     apiClient,
		cli:           cli,
		interval:      odfparams.DefaultPollInterval,
		respinTimeout: odfparams.ResourceRespinTimeout,
	}

	for _, option := range options {
		option(disruptions)
	}

	return disruptions, nil
}

// SelectDaemon restricts the resources of the next SetResource to the pods running on nodeName. An empty name
// removes the restriction.
func (disruptions *Disruptions) SelectDaemon(nodeName string) *Disruptions {
	disruptions.selectedNode = nodeName

	return disruptions
}

// SetResource selects the running pods of role. With a leader type only the elected leader pod is selected.
func (disruptions *Disruptions) SetResource(ctx context.Context, role Role, leaderType LeaderType) error {
	descriptor, err := Describe(role)
	if err != nil {
		return err
	}

	disruptions.descriptor = descriptor
	disruptions.leaderType = leaderType

	return disruptions.refresh(ctx)
}

// Role returns the selected role.
func (disruptions *Disruptions) Role() Role {
	return disruptions.descriptor.Role
}

// Resources returns the selected pods.
func (disruptions *Disruptions) Resources() []*pod.Builder {
	return disruptions.resources
}

// ResourceCount returns the number of running pods of the role when it was selected.
func (disruptions *Disruptions) ResourceCount() int {
	return disruptions.resourceCount
}

// DeleteResource deletes the resourceID-th selected pod and waits until a replacement is running and the role
// has as many running pods as before.
func (disruptions *Disruptions) DeleteResource(ctx context.Context, resourceID int) error {
	target, err := disruptions.resource(resourceID)
	if err != nil {
		return err
	}

	before, err := disruptions.runningPodNames(ctx)
	if err != nil {
		return err
	}

	glog.V(odfparams.LogLevel).Infof("Deleting %s pod %s", disruptions.descriptor.Role, target.Name())

	if _, err := target.Delete(); err != nil {
		return fmt.Errorf("failed to delete %s pod %s: %w", disruptions.descriptor.Role, target.Name(), err)
	}

	err = polling.PollUntil(ctx, disruptions.respinTimeout, disruptions.interval,
		func(ctx context.Context) (bool, error) {
			running, err := disruptions.runningPodNames(ctx)
			if err != nil {
				return false, err
			}

			if slices.Contains(running, target.Name()) {
				return false, nil
			}

			glog.V(odfparams.LogLevel).Infof("New %s pods: %v", disruptions.descriptor.Role, slice.Difference(running, before))

			return len(running) >= disruptions.resourceCount, nil
		},
		polling.WithName(fmt.Sprintf("respin of %s pod %s", disruptions.descriptor.Role, target.Name())),
		polling.WithRetryOn(isTransient))
	if err != nil {
		return err
	}

	if disruptions.leaderType == LeaderNone {
		return disruptions.refresh(ctx)
	}

	// the lease keeps naming the deleted pod until a replacement wins the election
	return polling.PollUntil(ctx, disruptions.respinTimeout, disruptions.interval,
		func(ctx context.Context) (bool, error) {
			if err := disruptions.refresh(ctx); err != nil {
				return false, err
			}

			return true, nil
		},
		polling.WithName(fmt.Sprintf("new %s leader of %s", disruptions.leaderType, disruptions.descriptor.Role)),
		polling.WithRetryOn(isTransient),
		polling.WithRetryOnErrors(ErrResourceNotFound))
}

// KillDaemon kills the daemon process of the role on nodeName with signal. The node of the first selected pod is
// used when nodeName is empty. With checkNewPID it waits until the killed PID is gone and the daemon runs again with
// as many processes as before, at least one of them new.
func (disruptions *Disruptions) KillDaemon(ctx context.Context, nodeName string, signal int, checkNewPID bool) error {
	daemon := disruptions.descriptor.Daemon
	if daemon == "" {
		return fmt.Errorf("role %q has no daemon to kill", disruptions.descriptor.Role)
	}

	if nodeName == "" {
		target, err := disruptions.resource(0)
		if err != nil {
			return err
		}

		nodeName = target.NodeName()
	}

	pids, err := disruptions.pidof(ctx, nodeName, daemon)
	if err != nil {
		return err
	}

	if len(pids) == 0 {
		return fmt.Errorf("daemon %s is not running on node %s: %w", daemon, nodeName, ErrResourceNotFound)
	}

	pid := pids[0]

	glog.V(odfparams.LogLevel).Infof("Killing %s (pid %s) on node %s with signal %d", daemon, pid, nodeName, signal)

	if _, err := disruptions.cli.DebugNode(ctx, nodeName, fmt.Sprintf("kill -%d %s", signal, pid)); err != nil {
		return err
	}

	if !checkNewPID {
		return nil
	}

	return polling.PollUntil(ctx, disruptions.respinTimeout, disruptions.interval,
		func(ctx context.Context) (bool, error) {
			newPIDs, err := disruptions.pidof(ctx, nodeName, daemon)
			if err != nil {
				return false, err
			}

			if slices.Contains(newPIDs, pid) || len(newPIDs) < len(pids) {
				return false, nil
			}

			return len(slice.Difference(newPIDs, pids)) > 0, nil
		},
		polling.WithName(fmt.Sprintf("new pid of %s on node %s", daemon, nodeName)),
		polling.WithRetryOn(isTransient))
}

// CephHealth returns the overall health reported by "ceph health" in the toolbox pod.
func (disruptions *Disruptions) CephHealth(ctx context.Context) (string, error) {
	toolbox, err := pod.ListBySelector(ctx, disruptions.apiClient, odfparams.StorageNamespace, odfparams.ToolboxLabel)
	if err != nil {
		return "", err
	}

	toolbox = slice.Filter(toolbox, (*pod.Builder).IsRunning)
	if len(toolbox) == 0 {
		return "", fmt.Errorf("no running toolbox pod: %w", ErrResourceNotFound)
	}

	output, err := disruptions.cli.WithNamespace(odfparams.StorageNamespace).
		ExecInPod(ctx, toolbox[0].Name(), "", "ceph", "health", "-f", "json")
	if err != nil {
		return "", err
	}

	health, err := parseCephHealth(output)
	if err != nil {
		return "", err
	}

	if health != "HEALTH_OK" {
		glog.V(odfparams.LogLevel).Infof("Ceph reports %s with checks %v", health, HealthChecks(output))
	}

	return health, nil
}

// WaitForCephHealthOK waits until ceph reports HEALTH_OK.
func (disruptions *Disruptions) WaitForCephHealthOK(ctx context.Context, timeout time.Duration) error {
	return polling.PollUntil(ctx, timeout, disruptions.interval,
		func(ctx context.Context) (bool, error) {
			health, err := disruptions.CephHealth(ctx)
			if err != nil {
				return false, err
			}

			glog.V(odfparams.LogLevel).Infof("Ceph health is %s", health)

			return health == "HEALTH_OK", nil
		},
		polling.WithName("ceph HEALTH_OK"),
		polling.WithRetryOn(isTransient),
		polling.WithRetryOnErrors(ErrResourceNotFound))
}

func (disruptions *Disruptions) refresh(ctx context.Context) error {
	descriptor := disruptions.descriptor

	pods, err := pod.ListBySelector(ctx, disruptions.apiClient, descriptor.Namespace, descriptor.Selector)
	if err != nil {
		return fmt.Errorf("failed to list %s pods: %w", descriptor.Role, err)
	}

	running := slice.Filter(pods, func(builder *pod.Builder) bool {
		return builder.IsRunning() && builder.Object.DeletionTimestamp == nil
	})
	disruptions.resourceCount = len(running)

	if disruptions.selectedNode != "" {
		running = slice.Filter(running, func(builder *pod.Builder) bool {
			return builder.NodeName() == disruptions.selectedNode
		})
	}

	if disruptions.leaderType != LeaderNone {
		leader, err := disruptions.leaderPodName(ctx)
		if err != nil {
			return err
		}

		running = slice.Filter(running, func(builder *pod.Builder) bool {
			return builder.Name() == leader
		})
	}

	if len(running) == 0 {
		return fmt.Errorf("role %s with selector %s: %w", descriptor.Role, descriptor.Selector, ErrResourceNotFound)
	}

	disruptions.resources = running

	glog.V(odfparams.LogLevel).Infof("Selected %d %s pods out of %d running",
		len(running), descriptor.Role, disruptions.resourceCount)

	return nil
}

func (disruptions *Disruptions) leaderPodName(ctx context.Context) (string, error) {
	leaseName, err := disruptions.descriptor.LeaseName(disruptions.leaderType)
	if err != nil {
		return "", err
	}

	leaderLease, err := lease.Pull(ctx, disruptions.apiClient, leaseName, disruptions.descriptor.Namespace)
	if err != nil {
		return "", err
	}

	leader := leaderLease.HolderPodName()
	if leader == "" {
		return "", fmt.Errorf("lease %s has no holder: %w", leaseName, ErrResourceNotFound)
	}

	glog.V(odfparams.LogLevel).Infof("Leader of %s is %s", leaseName, leader)

	return leader, nil
}

func (disruptions *Disruptions) resource(resourceID int) (*pod.Builder, error) {
	if len(disruptions.resources) == 0 {
		return nil, fmt.Errorf("no resource selected, call SetResource first: %w", ErrResourceNotFound)
	}

	if resourceID < 0 || resourceID >= len(disruptions.resources) {
		return nil, fmt.Errorf("resource %d of %d %s pods: %w",
			resourceID, len(disruptions.resources), disruptions.descriptor.Role, ErrResourceIndex)
	}

	return disruptions.resources[resourceID], nil
}

func (disruptions *Disruptions) runningPodNames(ctx context.Context) ([]string, error) {
	pods, err := pod.ListBySelector(ctx, disruptions.apiClient, disruptions.descriptor.Namespace,
		disruptions.descriptor.Selector)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, builder := range pods {
		if builder.Object.Status.Phase == v1.PodRunning && builder.Object.DeletionTimestamp == nil {
			names = append(names, builder.Name())
		}
	}

	return names, nil
}

func (disruptions *Disruptions) pidof(ctx context.Context, nodeName, daemon string) ([]string, error) {
	output, err := disruptions.cli.DebugNode(ctx, nodeName, "pidof "+daemon)
	if err != nil {
		// pidof exits 1 when no process matches
		var cmdErr *ocpcli.CommandFailedError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			return nil, nil
		}

		return nil, err
	}

	return strings.Fields(output), nil
}

// isTransient allow-lists the errors a disruption wait survives: oc commands which failed to reach the api server,
// and api errors clients.IsTransientError accepts.
func isTransient(err error) bool {
	return ocpcli.IsConnectionFailure(err) || clients.IsTransientError(err)
}
