package hubrecovery

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/go-version"
	"github.com/red-hat-storage/odf-gotests/internal/dr"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
)

// minKlusterletConfigVersion is the first ACM release serving KlusterletConfig.
var minKlusterletConfigVersion = version.Must(version.NewVersion("2.10"))

// PowerController powers all nodes of one cluster off or on.
type PowerController interface {
	PowerOff(ctx context.Context) error
	PowerOn(ctx context.Context) error
}

// Timeouts bound the waits of a hub recovery.
type Timeouts struct {
	Restore         time.Duration
	ManagedClusters time.Duration
	DRPolicy        time.Duration
}

// Plan describes a hub recovery run.
type Plan struct {
	// Workloads are failed over to FailoverCluster once the passive hub is active.
	Workloads []dr.DRWorkload
	// DownClusters are powered off. The active hub must be one of them.
	DownClusters []string
	// FailoverCluster is the surviving managed cluster.
	FailoverCluster string
	// RelocateBack powers the managed clusters of DownClusters on again and relocates Workloads to PreferredCluster.
	RelocateBack     bool
	PreferredCluster string
}

// Recovery runs the Regional DR hub recovery sequence on a registry with an active and a passive hub.
type Recovery struct {
	Registry     *multicluster.Registry
	Orchestrator *dr.Orchestrator
	// Power maps a cluster name to the controller of its nodes.
	Power      map[string]PowerController
	ACMVersion string
	Interval   time.Duration
	Timeouts   Timeouts

	hub *StateMachine
}

// New returns a Recovery with the default interval and timeouts.
func New(
	registry *multicluster.Registry,
	orchestrator *dr.Orchestrator,
	power map[string]PowerController,
	acmVersion string) *Recovery {
	return &Recovery{
		Registry:     registry,
		Orchestrator: orchestrator,
		Power:        power,
		ACMVersion:   acmVersion,
		Interval:     odfparams.DefaultPollInterval,
		Timeouts: Timeouts{
			Restore:         odfparams.HubRestoreTimeout,
			ManagedClusters: odfparams.ManagedClusterTimeout,
			DRPolicy:        odfparams.ManagedClusterTimeout,
		},
		hub: NewStateMachine(),
	}
}

// State returns the hub state.
func (recovery *Recovery) State() HubState {
	return recovery.hub.State()
}

// StopClusters powers off the nodes of clusters. The hub goes Down when the active hub is one of them.
func (recovery *Recovery) StopClusters(ctx context.Context, clusters ...string) error {
	activeHub := recovery.Registry.Cluster(recovery.Registry.ActiveACMIndex())

	for _, name := range clusters {
		power, ok := recovery.Power[name]
		if !ok {
			return fmt.Errorf("cluster %s has no power controller", name)
		}

		glog.V(odfparams.LogLevel).Infof("Powering off cluster %s", name)

		if err := power.PowerOff(ctx); err != nil {
			return fmt.Errorf("failed to stop cluster %s: %w", name, err)
		}

		if activeHub != nil && activeHub.ClusterName == name {
			if err := recovery.hub.Transition(HubDown); err != nil {
				return err
			}
		}
	}

	return nil
}

// StartClusters powers on the nodes of clusters.
func (recovery *Recovery) StartClusters(ctx context.Context, clusters ...string) error {
	for _, name := range clusters {
		power, ok := recovery.Power[name]
		if !ok {
			return fmt.Errorf("cluster %s has no power controller", name)
		}

		glog.V(odfparams.LogLevel).Infof("Powering on cluster %s", name)

		if err := power.PowerOn(ctx); err != nil {
			return fmt.Errorf("failed to start cluster %s: %w", name, err)
		}
	}

	return nil
}

// CreateKlusterletConfig creates the global KlusterletConfig on the passive hub. It is skipped on ACM releases
// older than 2.10.
func (recovery *Recovery) CreateKlusterletConfig(ctx context.Context) error {
	acmVersion, err := version.NewVersion(recovery.ACMVersion)
	if err != nil {
		return fmt.Errorf("invalid ACM version %q: %w", recovery.ACMVersion, err)
	}

	if acmVersion.LessThan(minKlusterletConfigVersion) {
		glog.V(odfparams.LogLevel).Infof("ACM %s has no KlusterletConfig, skipping", acmVersion)

		return nil
	}

	passiveHub, hubClient, err := recovery.passiveHub()
	if err != nil {
		return err
	}

	glog.V(odfparams.LogLevel).Infof("Creating KlusterletConfig %s on %s", odfparams.KlusterletConfigName, passiveHub)

	return createIfMissing(ctx, hubClient, odfparams.KlusterletConfigGVR, "", buildKlusterletConfig())
}

// Complete marks the restored hub as active.
func (recovery *Recovery) Complete() error {
	return recovery.hub.Transition(HubActive)
}

// Run executes plan: the active hub and the failed clusters go down, the passive hub is restored and activated,
// the workloads fail over to the surviving cluster and are optionally relocated back.
func (recovery *Recovery) Run(ctx context.Context, plan Plan) error {
	if err := recovery.StopClusters(ctx, plan.DownClusters...); err != nil {
		return err
	}

	if recovery.State() != HubDown {
		return fmt.Errorf("active hub is not in the down clusters %v: %w", plan.DownClusters, ErrInvalidTransition)
	}

	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{name: "create klusterlet config", run: recovery.CreateKlusterletConfig},
		{name: "restore backup", run: recovery.RestoreBackup},
		{name: "verify restore", run: recovery.VerifyRestoreIsCompleted},
		{name: "wait for managed clusters", run: func(ctx context.Context) error {
			return recovery.WaitForManagedClustersAvailable(ctx, plan.FailoverCluster)
		}},
		{name: "verify drpolicy", run: recovery.VerifyDRPolicy},
	}

	for _, step := range steps {
		glog.V(odfparams.LogLevel).Infof("Hub recovery step: %s", step.name)

		if err := step.run(ctx); err != nil {
			return fmt.Errorf("hub recovery step %q failed: %w", step.name, err)
		}
	}

	if err := recovery.Complete(); err != nil {
		return err
	}

	if len(plan.Workloads) == 0 {
		return nil
	}

	if err := recovery.Orchestrator.FailoverAll(ctx, plan.Workloads, plan.FailoverCluster); err != nil {
		return err
	}

	if !plan.RelocateBack {
		return nil
	}

	managed := recovery.managedClusters(plan.DownClusters)

	if err := recovery.StartClusters(ctx, managed...); err != nil {
		return err
	}

	if err := recovery.WaitForManagedClustersAvailable(ctx, managed...); err != nil {
		return err
	}

	for _, workload := range plan.Workloads {
		err := recovery.Orchestrator.Relocate(ctx, plan.PreferredCluster, workload, plan.FailoverCluster)
		if err != nil {
			return err
		}
	}

	return nil
}

// managedClusters drops the hubs from names.
func (recovery *Recovery) managedClusters(names []string) []string {
	var managed []string

	for _, name := range names {
		index, err := recovery.Registry.IndexByName(name)
		if err != nil || recovery.Registry.Cluster(index).ACM {
			continue
		}

		managed = append(managed, name)
	}

	return managed
}

func (recovery *Recovery) activeHub() (*multicluster.ClusterConfig, *clients.Settings, error) {
	return hubClients(recovery.Registry.Cluster(recovery.Registry.ActiveACMIndex()), "active")
}

func (recovery *Recovery) passiveHub() (*multicluster.ClusterConfig, *clients.Settings, error) {
	return hubClients(recovery.Registry.Cluster(recovery.Registry.PassiveACMIndex()), "passive")
}

func hubClients(hub *multicluster.ClusterConfig, role string) (*multicluster.ClusterConfig, *clients.Settings, error) {
	if hub == nil {
		return nil, nil, fmt.Errorf("no %s ACM hub: %w", role, multicluster.ErrClusterNotFound)
	}

	apiClient, err := hub.APIClient()
	if err != nil {
		return nil, nil, err
	}

	return hub, apiClient, nil
}
