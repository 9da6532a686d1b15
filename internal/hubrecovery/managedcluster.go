package hubrecovery

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	clusterv1 "open-cluster-management.io/api/cluster/v1"
	runtimeClient "sigs.k8s.io/controller-runtime/pkg/client"
)

// WaitForManagedClustersAvailable waits until every cluster of names is joined and available on the active hub.
func (recovery *Recovery) WaitForManagedClustersAvailable(ctx context.Context, names ...string) error {
	activeHub, hubClient, err := recovery.activeHub()
	if err != nil {
		return err
	}

	for _, name := range names {
		err := polling.PollUntil(ctx, recovery.Timeouts.ManagedClusters, recovery.Interval,
			func(ctx context.Context) (bool, error) {
				managedCluster := &clusterv1.ManagedCluster{}

				if err := hubClient.Client.Get(ctx, runtimeClient.ObjectKey{Name: name}, managedCluster); err != nil {
					return false, err
				}

				joined := meta.IsStatusConditionTrue(managedCluster.Status.Conditions, clusterv1.ManagedClusterConditionJoined)
				available := meta.IsStatusConditionTrue(managedCluster.Status.Conditions,
					clusterv1.ManagedClusterConditionAvailable)

				glog.V(odfparams.LogLevel).Infof("Managed cluster %s on %s: joined %t, available %t",
					name, activeHub, joined, available)

				return joined && available, nil
			},
			polling.WithName(fmt.Sprintf("managed cluster %s on %s", name, activeHub)),
			polling.WithRetryOn(k8serrors.IsNotFound))
		if err != nil {
			return err
		}
	}

	return nil
}

// VerifyDRPolicy waits until every DRPolicy of the active hub is validated.
func (recovery *Recovery) VerifyDRPolicy(ctx context.Context) error {
	activeHub, hubClient, err := recovery.activeHub()
	if err != nil {
		return err
	}

	return polling.PollUntil(ctx, recovery.Timeouts.DRPolicy, recovery.Interval,
		func(ctx context.Context) (bool, error) {
			policies, err := hubClient.Dynamic.Resource(odfparams.DRPolicyGVR).List(ctx, metaV1.ListOptions{})
			if err != nil {
				return false, err
			}

			if len(policies.Items) == 0 {
				glog.V(odfparams.LogLevel).Infof("No DRPolicy restored on %s yet", activeHub)

				return false, nil
			}

			for _, policy := range policies.Items {
				if !conditionTrue(policy.Object, "Validated") {
					glog.V(odfparams.LogLevel).Infof("DRPolicy %s on %s is not validated", policy.GetName(), activeHub)

					return false, nil
				}
			}

			return true, nil
		},
		polling.WithName(fmt.Sprintf("drpolicy validation on %s", activeHub)))
}

func conditionTrue(object map[string]interface{}, conditionType string) bool {
	conditions, _, _ := unstructured.NestedSlice(object, "status", "conditions")

	for _, condition := range conditions {
		conditionMap, ok := condition.(map[string]interface{})
		if ok && conditionMap["type"] == conditionType {
			return conditionMap["status"] == string(metaV1.ConditionTrue)
		}
	}

	return false
}
