package dr

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/pkg/pod"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	"github.com/red-hat-storage/odf-gotests/pkg/pvc"
	v1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// resourceCounts are the workload resources observed in a namespace of one cluster.
type resourceCounts struct {
	boundPVCs   int
	totalPVCs   int
	runningPods int
	totalPods   int
	vrgs        int
}

// WaitForAllResourcesCreation waits until namespace on cluster has exactly pvcCount Bound claims and podCount
// Running pods, and the VolumeReplicationGroup vrgName exists. Any VRG is accepted when vrgName is empty.
func (orchestrator *Orchestrator) WaitForAllResourcesCreation(
	ctx context.Context,
	cluster string,
	pvcCount, podCount int,
	namespace string,
	timeout time.Duration,
	vrgName string) error {
	return orchestrator.waitForCreation(ctx, cluster, pvcCount, podCount, namespace, namespace, vrgName, timeout)
}

// WaitForAllResourcesDeletion waits until namespace on cluster has no claim, pod nor VolumeReplicationGroup left.
// A *LeftoverResourcesError is returned on timeout.
func (orchestrator *Orchestrator) WaitForAllResourcesDeletion(
	ctx context.Context, cluster, namespace string, timeout time.Duration) error {
	return orchestrator.waitForEmpty(ctx, cluster, namespace, namespace, timeout)
}

func (orchestrator *Orchestrator) waitForResources(
	ctx context.Context, cluster string, workload DRWorkload, timeout time.Duration) error {
	return orchestrator.waitForCreation(ctx, cluster, workload.PVCCount, workload.PodCount, workload.Namespace,
		workload.VRGNamespace(), workload.VRGName, timeout)
}

func (orchestrator *Orchestrator) waitForDeletion(
	ctx context.Context, cluster string, workload DRWorkload, timeout time.Duration) error {
	return orchestrator.waitForEmpty(ctx, cluster, workload.Namespace, workload.VRGNamespace(), timeout)
}

func (orchestrator *Orchestrator) waitForCreation(
	ctx context.Context,
	cluster string,
	pvcCount, podCount int,
	namespace, vrgNamespace, vrgName string,
	timeout time.Duration) error {
	apiClient, err := orchestrator.clusterClient(cluster)
	if err != nil {
		return err
	}

	glog.V(odfparams.LogLevel).Infof("Waiting up to %s for %d pvcs and %d pods in %s on %s",
		timeout, pvcCount, podCount, namespace, cluster)

	return polling.PollUntil(ctx, timeout, orchestrator.Interval,
		func(ctx context.Context) (bool, error) {
			counts, err := countResources(ctx, apiClient, namespace, vrgNamespace, vrgName)
			if err != nil {
				return false, err
			}

			glog.V(odfparams.LogLevel).Infof("%s on %s: %d/%d pvcs bound, %d/%d pods running, %d vrgs",
				namespace, cluster, counts.boundPVCs, pvcCount, counts.runningPods, podCount, counts.vrgs)

			return counts.boundPVCs == pvcCount && counts.runningPods == podCount && counts.vrgs > 0, nil
		},
		polling.WithName(fmt.Sprintf("workload resources in %s on %s", namespace, cluster)),
		polling.WithRetryOn(clients.IsTransientError))
}

func (orchestrator *Orchestrator) waitForEmpty(
	ctx context.Context, cluster, namespace, vrgNamespace string, timeout time.Duration) error {
	apiClient, err := orchestrator.clusterClient(cluster)
	if err != nil {
		return err
	}

	var last resourceCounts

	err = polling.PollUntil(ctx, timeout, orchestrator.Interval,
		func(ctx context.Context) (bool, error) {
			counts, err := countResources(ctx, apiClient, namespace, vrgNamespace, "")
			if err != nil {
				return false, err
			}

			last = counts

			return counts.totalPVCs == 0 && counts.totalPods == 0 && counts.vrgs == 0, nil
		},
		polling.WithName(fmt.Sprintf("workload cleanup in %s on %s", namespace, cluster)),
		polling.WithRetryOn(clients.IsTransientError))
	if err != nil && polling.IsTimeout(err) {
		return &LeftoverResourcesError{
			Cluster:   cluster,
			Namespace: namespace,
			PVCs:      last.totalPVCs,
			Pods:      last.totalPods,
			VRGs:      last.vrgs,
			Err:       err,
		}
	}

	return err
}

func countResources(
	ctx context.Context, apiClient *clients.Settings, namespace, vrgNamespace, vrgName string) (resourceCounts, error) {
	var (
		counts resourceCounts
		err    error
	)

	if counts.boundPVCs, err = pvc.CountInPhase(ctx, apiClient, namespace, v1.ClaimBound); err != nil {
		return counts, err
	}

	if counts.totalPVCs, err = pvc.Count(ctx, apiClient, namespace); err != nil {
		return counts, err
	}

	pods, err := pod.List(ctx, apiClient, namespace, metaV1.ListOptions{})
	if err != nil {
		return counts, err
	}

	counts.totalPods = len(pods)

	for _, builder := range pods {
		if builder.IsRunning() && builder.Object.DeletionTimestamp == nil {
			counts.runningPods++
		}
	}

	vrgClient := apiClient.Dynamic.Resource(odfparams.VRGGVR).Namespace(vrgNamespace)

	if vrgName != "" {
		_, err := vrgClient.Get(ctx, vrgName, metaV1.GetOptions{})

		switch {
		case err == nil:
			counts.vrgs = 1
		case k8serrors.IsNotFound(err):
			counts.vrgs = 0
		default:
			return counts, err
		}

		return counts, nil
	}

	vrgs, err := vrgClient.List(ctx, metaV1.ListOptions{})
	if err != nil {
		return counts, err
	}

	counts.vrgs = len(vrgs.Items)

	return counts, nil
}

func (orchestrator *Orchestrator) clusterClient(name string) (*clients.Settings, error) {
	index, err := orchestrator.Registry.IndexByName(name)
	if err != nil {
		return nil, err
	}

	return orchestrator.Registry.Cluster(index).APIClient()
}
