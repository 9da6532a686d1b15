package odftestparams

import (
	"fmt"
	"time"

	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
)

const (
	// DefaultTimeout represents the default timeout of the suite waits.
	DefaultTimeout = 10 * time.Minute
	// TransitionTimeout bounds a failover or relocate spec over all the workloads.
	TransitionTimeout = 3 * time.Hour
	// WorkloadName is the name of the deployment and the claim created by the disruptive suite.
	WorkloadName = "odf-disruptive-io"
	// WorkloadMountPath is where the workload claim is mounted.
	WorkloadMountPath = "/mnt/data"
)

var (
	// Labels represents the range of labels that can be used for test cases selection.
	Labels = []string{odfparams.Label}
	// DRLabels selects the disaster recovery specs.
	DRLabels = append([]string{odfparams.LabelDR}, Labels...)
	// DisruptiveLabels selects the disruptive specs.
	DisruptiveLabels = append([]string{odfparams.LabelDisruptive}, Labels...)
	// WorkloadLabels select the pods of the disruptive workload.
	WorkloadLabels = map[string]string{"app": WorkloadName}
	// ReporterNamespacesToDump are dumped from every cluster on failure, next to the workload namespaces.
	ReporterNamespacesToDump = []string{odfparams.StorageNamespace}
)

// SuiteProperties describes the clusters of the run in the polarion report.
func SuiteProperties(registry *multicluster.Registry) map[string]string {
	properties := map[string]string{}

	if registry == nil {
		return properties
	}

	for _, cluster := range registry.Clusters() {
		properties[fmt.Sprintf("cluster_%d", cluster.Index)] = cluster.ClusterName
	}

	if hub := registry.Cluster(registry.ActiveACMIndex()); hub != nil {
		properties["active_hub"] = hub.ClusterName
	}

	return properties
}
