package dr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	clusterv1beta1 "open-cluster-management.io/api/cluster/v1beta1"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
)

// drpc wraps a DRPlacementControl read from the hub.
type drpc struct {
	object *unstructured.Unstructured
}

func getDRPC(ctx context.Context, hubClient *clients.Settings, workload DRWorkload) (*drpc, error) {
	object, err := hubClient.Dynamic.Resource(odfparams.DRPCGVR).Namespace(workload.DRPCNamespace()).
		Get(ctx, workload.DRPCName, metaV1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get drpc %s/%s: %w", workload.DRPCNamespace(), workload.DRPCName, err)
	}

	return &drpc{object: object}, nil
}

func (placement *drpc) phase() Phase {
	phase, _, _ := unstructured.NestedString(placement.object.Object, "status", "phase")

	return Phase(phase)
}

func (placement *drpc) generation() int64 {
	return placement.object.GetGeneration()
}

func (placement *drpc) observedGeneration() int64 {
	generation, _, _ := unstructured.NestedInt64(placement.object.Object, "status", "observedGeneration")

	return generation
}

func (placement *drpc) action() Action {
	action, _, _ := unstructured.NestedString(placement.object.Object, "spec", "action")

	return Action(action)
}

func (placement *drpc) failoverCluster() string {
	cluster, _, _ := unstructured.NestedString(placement.object.Object, "spec", "failoverCluster")

	return cluster
}

func (placement *drpc) preferredCluster() string {
	cluster, _, _ := unstructured.NestedString(placement.object.Object, "spec", "preferredCluster")

	return cluster
}

func (placement *drpc) policyName() string {
	name, _, _ := unstructured.NestedString(placement.object.Object, "spec", "drPolicyRef", "name")

	return name
}

// lastGroupSyncTime returns status.lastGroupSyncTime, false when the workload was never synced.
func (placement *drpc) lastGroupSyncTime() (time.Time, bool) {
	return nestedTime(placement.object.Object, "status", "lastGroupSyncTime")
}

// availableSince returns the last transition time of the Available condition.
func (placement *drpc) availableSince() time.Time {
	conditions, _, _ := unstructured.NestedSlice(placement.object.Object, "status", "conditions")

	for _, condition := range conditions {
		conditionMap, ok := condition.(map[string]interface{})
		if !ok || conditionMap["type"] != "Available" {
			continue
		}

		since, _ := nestedTime(conditionMap, "lastTransitionTime")

		return since
	}

	return time.Time{}
}

func nestedTime(object map[string]interface{}, fields ...string) (time.Time, bool) {
	value, found, err := unstructured.NestedString(object, fields...)
	if err != nil || !found || value == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}

// requestAction patches spec.action and the target cluster field of the DRPC of workload and returns the patched
// DRPC.
func requestAction(
	ctx context.Context, hubClient *clients.Settings, workload DRWorkload, action Action, cluster string) (*drpc, error) {
	clusterField := "preferredCluster"
	if action == ActionFailover {
		clusterField = "failoverCluster"
	}

	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{
			"action":     string(action),
			clusterField: cluster,
		},
	})
	if err != nil {
		return nil, err
	}

	glog.V(odfparams.LogLevel).Infof("Patching drpc %s/%s with %s", workload.DRPCNamespace(), workload.DRPCName, patch)

	object, err := hubClient.Dynamic.Resource(odfparams.DRPCGVR).Namespace(workload.DRPCNamespace()).
		Patch(ctx, workload.DRPCName, types.MergePatchType, patch, metaV1.PatchOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to request %s of %s to %s: %w", action, workload, cluster, err)
	}

	return &drpc{object: object}, nil
}

// placementDecisionCluster returns the cluster chosen by the PlacementDecision of the workload placement.
func placementDecisionCluster(ctx context.Context, hubClient *clients.Settings, workload DRWorkload) (string, error) {
	if workload.PlacementName == "" || hubClient.Client == nil {
		return "", nil
	}

	decisions := &clusterv1beta1.PlacementDecisionList{}

	err := hubClient.Client.List(ctx, decisions,
		runtimeClient.InNamespace(workload.DRPCNamespace()),
		runtimeClient.MatchingLabels{"cluster.open-cluster-management.io/placement": workload.PlacementName})
	if err != nil {
		return "", fmt.Errorf("failed to list placement decisions of %s: %w", workload.PlacementName, err)
	}

	for _, decision := range decisions.Items {
		for _, clusterDecision := range decision.Status.Decisions {
			if clusterDecision.ClusterName != "" {
				return clusterDecision.ClusterName, nil
			}
		}
	}

	return "", nil
}

// policyClusters returns spec.drClusters of the DRPolicy name.
func policyClusters(ctx context.Context, hubClient *clients.Settings, name string) ([]string, error) {
	policy, err := hubClient.Dynamic.Resource(odfparams.DRPolicyGVR).Get(ctx, name, metaV1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get drpolicy %s: %w", name, err)
	}

	clusters, _, err := unstructured.NestedStringSlice(policy.Object, "spec", "drClusters")
	if err != nil {
		return nil, fmt.Errorf("drpolicy %s has invalid drClusters: %w", name, err)
	}

	return clusters, nil
}
