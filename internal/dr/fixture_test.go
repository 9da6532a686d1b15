package dr

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"
	clusterv1beta1 "open-cluster-management.io/api/cluster/v1beta1"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	hubName       = "hub-active"
	primaryName   = "cluster-1"
	secondaryName = "cluster-2"
	drPolicyName  = "odr-policy-5m"
)

func buildWorkload(name string) DRWorkload {
	return DRWorkload{
		Namespace:     name,
		Type:          WorkloadSubscription,
		PlacementName: name + "-placement-1",
		DRPCName:      name + "-placement-1-drpc",
		PVCInterface:  PVCBlock,
		PVCCount:      2,
		PodCount:      2,
		VRGName:       name + "-placement-1-drpc",
	}
}

func buildDRPC(workload DRWorkload, phase Phase) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ramendr.openshift.io/v1alpha1",
		"kind":       "DRPlacementControl",
		"metadata": map[string]interface{}{
			"name":      workload.DRPCName,
			"namespace": workload.DRPCNamespace(),
		},
		"spec": map[string]interface{}{
			"preferredCluster": primaryName,
			"drPolicyRef":      map[string]interface{}{"name": drPolicyName},
			"placementRef":     map[string]interface{}{"name": workload.PlacementName, "kind": "Placement"},
		},
		"status": map[string]interface{}{
			"phase": string(phase),
		},
	}}
}

func buildDRPolicy() *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ramendr.openshift.io/v1alpha1",
		"kind":       "DRPolicy",
		"metadata":   map[string]interface{}{"name": drPolicyName},
		"spec": map[string]interface{}{
			"drClusters":         []interface{}{primaryName, secondaryName},
			"schedulingInterval": "5m",
		},
	}}
}

func buildPlacementDecision(workload DRWorkload, cluster string) *clusterv1beta1.PlacementDecision {
	return &clusterv1beta1.PlacementDecision{
		ObjectMeta: metaV1.ObjectMeta{
			Name:      workload.PlacementName + "-decision-1",
			Namespace: workload.DRPCNamespace(),
			Labels:    map[string]string{"cluster.open-cluster-management.io/placement": workload.PlacementName},
		},
		Status: clusterv1beta1.PlacementDecisionStatus{
			Decisions: []clusterv1beta1.ClusterDecision{{ClusterName: cluster}},
		},
	}
}

func buildVRG(workload DRWorkload) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ramendr.openshift.io/v1alpha1",
		"kind":       "VolumeReplicationGroup",
		"metadata": map[string]interface{}{
			"name":      workload.VRGName,
			"namespace": workload.VRGNamespace(),
		},
	}}
}

func buildWorkloadObjects(workload DRWorkload) []runtime.Object {
	var objects []runtime.Object

	for index := 0; index < workload.PVCCount; index++ {
		objects = append(objects, &v1.PersistentVolumeClaim{
			ObjectMeta: metaV1.ObjectMeta{Name: fmt.Sprintf("busybox-pvc-%d", index), Namespace: workload.Namespace},
			Status:     v1.PersistentVolumeClaimStatus{Phase: v1.ClaimBound},
		})
	}

	for index := 0; index < workload.PodCount; index++ {
		objects = append(objects, &v1.Pod{
			ObjectMeta: metaV1.ObjectMeta{Name: fmt.Sprintf("busybox-%d", index), Namespace: workload.Namespace},
			Status:     v1.PodStatus{Phase: v1.PodRunning},
		})
	}

	return objects
}

type drFixture struct {
	registry     *multicluster.Registry
	orchestrator *Orchestrator
	hub          *clients.Settings
	managed      map[string]*clients.Settings
	reachable    map[string]bool
}

// newDRFixture returns a hub and two managed clusters where every workload runs on cluster-1.
func newDRFixture(t *testing.T, phase Phase, workloads ...DRWorkload) *drFixture {
	t.Helper()

	var (
		hubObjects      []runtime.Object
		decisions       []runtimeClient.Object
		primaryObjects  []runtime.Object
		primaryDynamics []runtime.Object
	)

	hubObjects = append(hubObjects, buildDRPolicy())

	for _, workload := range workloads {
		hubObjects = append(hubObjects, buildDRPC(workload, phase))
		decisions = append(decisions, buildPlacementDecision(workload, primaryName))
		primaryObjects = append(primaryObjects, buildWorkloadObjects(workload)...)
		primaryDynamics = append(primaryDynamics, buildVRG(workload))
	}

	fixture := &drFixture{
		hub: clients.GetTestClients(clients.TestClientParams{
			DynamicObjects: hubObjects,
			GVRToListKind:  odfparams.DynamicListKinds,
			RuntimeObjects: decisions,
		}),
		managed: map[string]*clients.Settings{
			primaryName: clients.GetTestClients(clients.TestClientParams{
				K8sMockObjects: primaryObjects,
				DynamicObjects: primaryDynamics,
				GVRToListKind:  odfparams.DynamicListKinds,
			}),
			secondaryName: clients.GetTestClients(clients.TestClientParams{
				GVRToListKind: odfparams.DynamicListKinds,
			}),
		},
		reachable: map[string]bool{primaryName: true, secondaryName: true},
	}

	clusters := []*multicluster.ClusterConfig{
		{ClusterName: hubName, ACM: true, ActiveACM: true},
		{ClusterName: primaryName, Primary: true},
		{ClusterName: secondaryName},
	}
	clusters[0].SetAPIClient(fixture.hub)
	clusters[1].SetAPIClient(fixture.managed[primaryName])
	clusters[2].SetAPIClient(fixture.managed[secondaryName])

	registry, err := multicluster.New(clusters, 1)
	require.NoError(t, err)

	fixture.registry = registry
	fixture.orchestrator = &Orchestrator{
		Registry: registry,
		Interval: 10 * time.Millisecond,
		Timeouts: Timeouts{
			Phase:     3 * time.Second,
			Resources: 3 * time.Second,
			Deletion:  3 * time.Second,
			Mirroring: 3 * time.Second,
			SyncTime:  3 * time.Second,
		},
		Reachable: func(_ context.Context, apiClient *clients.Settings) bool {
			for name, managed := range fixture.managed {
				if managed == apiClient {
					return fixture.reachable[name]
				}
			}

			return true
		},
	}

	return fixture
}

// drController plays the DR hub operator: it answers DRPC action patches by moving the workload.
type drController struct {
	fixture       *drFixture
	workloads     map[string]DRWorkload
	cleanupSource bool
}

func (fixture *drFixture) startController(cleanupSource bool, workloads ...DRWorkload) {
	controller := &drController{fixture: fixture, workloads: map[string]DRWorkload{}, cleanupSource: cleanupSource}

	for _, workload := range workloads {
		controller.workloads[workload.DRPCName] = workload
	}

	fakeDynamic, _ := fixture.hub.Dynamic.(*dynamicfake.FakeDynamicClient)
	fakeDynamic.PrependReactor("patch", "drplacementcontrols",
		func(action clienttesting.Action) (bool, runtime.Object, error) {
			patchAction, _ := action.(clienttesting.PatchAction)

			var patch struct {
				Spec struct {
					Action           string `json:"action"`
					FailoverCluster  string `json:"failoverCluster"`
					PreferredCluster string `json:"preferredCluster"`
				} `json:"spec"`
			}

			_ = json.Unmarshal(patchAction.GetPatch(), &patch)

			target := patch.Spec.PreferredCluster
			if Action(patch.Spec.Action) == ActionFailover {
				target = patch.Spec.FailoverCluster
			}

			go controller.reconcile(patchAction.GetName(), Action(patch.Spec.Action), target)

			return false, nil, nil
		})
}

func (controller *drController) reconcile(drpcName string, action Action, target string) {
	ctx := context.TODO()
	workload := controller.workloads[drpcName]

	time.Sleep(20 * time.Millisecond)

	inFlight := PhaseRelocating
	if action == ActionFailover {
		inFlight = PhaseFailingOver
	}

	controller.setPhase(workload, inFlight, false)

	for name, apiClient := range controller.fixture.managed {
		if name == target {
			for _, object := range buildWorkloadObjects(workload) {
				switch typed := object.(type) {
				case *v1.PersistentVolumeClaim:
					_, _ = apiClient.PersistentVolumeClaims(typed.Namespace).Create(ctx, typed, metaV1.CreateOptions{})
				case *v1.Pod:
					_, _ = apiClient.Pods(typed.Namespace).Create(ctx, typed, metaV1.CreateOptions{})
				}
			}

			_, _ = apiClient.Dynamic.Resource(odfparams.VRGGVR).Namespace(workload.VRGNamespace()).
				Create(ctx, buildVRG(workload), metaV1.CreateOptions{})

			continue
		}

		if !controller.cleanupSource {
			continue
		}

		for _, object := range buildWorkloadObjects(workload) {
			switch typed := object.(type) {
			case *v1.PersistentVolumeClaim:
				_ = apiClient.PersistentVolumeClaims(typed.Namespace).Delete(ctx, typed.Name, metaV1.DeleteOptions{})
			case *v1.Pod:
				_ = apiClient.Pods(typed.Namespace).Delete(ctx, typed.Name, metaV1.DeleteOptions{})
			}
		}

		_ = apiClient.Dynamic.Resource(odfparams.VRGGVR).Namespace(workload.VRGNamespace()).
			Delete(ctx, workload.VRGName, metaV1.DeleteOptions{})
	}

	decision := &clusterv1beta1.PlacementDecision{}
	decisionKey := runtimeClient.ObjectKey{
		Namespace: workload.DRPCNamespace(), Name: workload.PlacementName + "-decision-1"}

	if err := controller.fixture.hub.Client.Get(ctx, decisionKey, decision); err == nil {
		decision.Status.Decisions = []clusterv1beta1.ClusterDecision{{ClusterName: target}}
		_ = controller.fixture.hub.Client.Update(ctx, decision)
	}

	controller.setPhase(workload, targetPhase(action), true)
}

func (controller *drController) setPhase(workload DRWorkload, phase Phase, completed bool) {
	ctx := context.TODO()
	drpcClient := controller.fixture.hub.Dynamic.Resource(odfparams.DRPCGVR).Namespace(workload.DRPCNamespace())

	object, err := drpcClient.Get(ctx, workload.DRPCName, metaV1.GetOptions{})
	if err != nil {
		return
	}

	_ = unstructured.SetNestedField(object.Object, string(phase), "status", "phase")

	if completed {
		now := time.Now().UTC()

		_ = unstructured.SetNestedSlice(object.Object, []interface{}{
			map[string]interface{}{
				"type":               "Available",
				"status":             "True",
				"lastTransitionTime": now.Format(time.RFC3339Nano),
			},
		}, "status", "conditions")
		_ = unstructured.SetNestedField(object.Object, now.Add(time.Second).Format(time.RFC3339Nano),
			"status", "lastGroupSyncTime")
	}

	_, _ = drpcClient.Update(ctx, object, metaV1.UpdateOptions{})
}
