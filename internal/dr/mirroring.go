package dr

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// MirroringSummary is status.mirroringStatus.summary of a CephBlockPool.
type MirroringSummary struct {
	DaemonHealth string
	Health       string
	ImageHealth  string
	Replaying    int64
}

// IsOK reports whether the daemons, the pool and the images are healthy.
func (summary MirroringSummary) IsOK() bool {
	return summary.DaemonHealth == "OK" && summary.Health == "OK" && summary.ImageHealth == "OK"
}

// MirroringStatus returns the mirroring summary of the default block pool of cluster.
func (orchestrator *Orchestrator) MirroringStatus(ctx context.Context, cluster string) (MirroringSummary, error) {
	apiClient, err := orchestrator.clusterClient(cluster)
	if err != nil {
		return MirroringSummary{}, err
	}

	pool, err := apiClient.Dynamic.Resource(odfparams.CephBlockPoolGVR).Namespace(odfparams.StorageNamespace).
		Get(ctx, odfparams.DefaultCephBlockPool, metaV1.GetOptions{})
	if err != nil {
		return MirroringSummary{}, fmt.Errorf("failed to get cephblockpool on %s: %w", cluster, err)
	}

	summary, found, err := unstructured.NestedMap(pool.Object, "status", "mirroringStatus", "summary")
	if err != nil {
		return MirroringSummary{}, fmt.Errorf("cephblockpool on %s has an invalid mirroring summary: %w", cluster, err)
	}

	if !found {
		return MirroringSummary{}, fmt.Errorf("cephblockpool on %s: %w", cluster, ErrNoMirroringSummary)
	}

	result := MirroringSummary{}
	result.DaemonHealth, _, _ = unstructured.NestedString(summary, "daemon_health")
	result.Health, _, _ = unstructured.NestedString(summary, "health")
	result.ImageHealth, _, _ = unstructured.NestedString(summary, "image_health")
	result.Replaying, _, _ = unstructured.NestedInt64(summary, "states", "replaying")

	return result, nil
}

// WaitForMirroringStatusOK waits until the mirroring of the default block pool of cluster is healthy and
// replayingImages images are replaying.
func (orchestrator *Orchestrator) WaitForMirroringStatusOK(
	ctx context.Context, cluster string, replayingImages int, timeout time.Duration) error {
	return polling.PollUntil(ctx, timeout, orchestrator.Interval,
		func(ctx context.Context) (bool, error) {
			summary, err := orchestrator.MirroringStatus(ctx, cluster)
			if err != nil {
				return false, err
			}

			glog.V(odfparams.LogLevel).Infof("Mirroring on %s: %+v", cluster, summary)

			return summary.IsOK() && summary.Replaying == int64(replayingImages), nil
		},
		polling.WithName(fmt.Sprintf("mirroring status on %s", cluster)),
		polling.WithRetryOn(clients.IsTransientError),
		polling.WithRetryOnErrors(ErrNoMirroringSummary))
}
