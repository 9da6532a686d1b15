package dr

import (
	"fmt"
	"time"

	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
)

// WorkloadType is the way a DR protected application is deployed.
type WorkloadType string

// Supported workload types.
const (
	WorkloadSubscription WorkloadType = "subscription"
	WorkloadAppSet       WorkloadType = "appset"
	WorkloadDiscovered   WorkloadType = "discovered"
)

// PVCInterface is the volume mode of the workload claims.
type PVCInterface string

// Supported claim interfaces.
const (
	PVCBlock      PVCInterface = "block"
	PVCFilesystem PVCInterface = "filesystem"
)

// DRWorkload is a DR protected application. Its primary and secondary clusters are never stored, they are read
// from the hub every time they are needed.
type DRWorkload struct {
	Namespace                 string
	Type                      WorkloadType
	PlacementName             string
	DRPCName                  string
	PVCInterface              PVCInterface
	PVCCount                  int
	PodCount                  int
	KubeObjectCaptureInterval time.Duration
	VRGName                   string
}

// Validate checks the fields every DR operation needs.
func (workload DRWorkload) Validate() error {
	if workload.Namespace == "" {
		return fmt.Errorf("workload namespace cannot be empty")
	}

	if workload.DRPCName == "" {
		return fmt.Errorf("workload %s has no DRPlacementControl name", workload.Namespace)
	}

	switch workload.Type {
	case WorkloadSubscription, WorkloadAppSet, WorkloadDiscovered:
	default:
		return fmt.Errorf("workload %s has unknown type %q", workload.Namespace, workload.Type)
	}

	if workload.PVCCount < 0 || workload.PodCount < 0 {
		return fmt.Errorf("workload %s has negative resource counts", workload.Namespace)
	}

	return nil
}

// String identifies the workload in logs and errors.
func (workload DRWorkload) String() string {
	return fmt.Sprintf("%s workload %s", workload.Type, workload.Namespace)
}

// DRPCNamespace returns the hub namespace of the DRPlacementControl.
func (workload DRWorkload) DRPCNamespace() string {
	switch workload.Type {
	case WorkloadAppSet:
		return odfparams.GitopsNamespace
	case WorkloadDiscovered:
		return odfparams.DROpsNamespace
	default:
		return workload.Namespace
	}
}

// VRGNamespace returns the managed cluster namespace of the VolumeReplicationGroup.
func (workload DRWorkload) VRGNamespace() string {
	if workload.Type == WorkloadDiscovered {
		return odfparams.DROpsNamespace
	}

	return workload.Namespace
}

// PlacementLabel returns the label selecting the PlacementDecisions of the workload placement.
func (workload DRWorkload) PlacementLabel() string {
	return "cluster.open-cluster-management.io/placement=" + workload.PlacementName
}
