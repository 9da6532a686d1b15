package odfparams

import (
	"time"

	"github.com/golang/glog"
)

const (
	// Label represents the label for the odf test cases.
	Label string = "odf"
	// LabelDR is the label of the disaster recovery test cases.
	LabelDR string = "dr"
	// LabelDisruptive is the label of the disruptive test cases.
	LabelDisruptive string = "disruptive"

	// LogLevel is the verbosity for odf internal packages.
	LogLevel glog.Level = 90

	// KubeconfigEnvKey is exported on context switches for out-of-process tools.
	KubeconfigEnvKey string = "KUBECONFIG"

	// StorageNamespace is the namespace of the ODF storage cluster.
	StorageNamespace string = "openshift-storage"
	// DROpsNamespace holds the DR resources of discovered applications on the hub.
	DROpsNamespace string = "openshift-dr-ops"
	// ACMHubNamespace is the namespace of the ACM hub.
	ACMHubNamespace string = "open-cluster-management"
	// ACMBackupNamespace holds the ACM backup and restore resources.
	ACMBackupNamespace string = "open-cluster-management-backup"
	// GitopsNamespace holds the ApplicationSets of appset workloads.
	GitopsNamespace string = "openshift-gitops"

	// ToolboxLabel selects the rook ceph toolbox pod.
	ToolboxLabel string = "app=rook-ceph-tools"
	// DefaultCephBlockPool is the mirrored block pool of Regional DR.
	DefaultCephBlockPool string = "ocs-storagecluster-cephblockpool"
	// KlusterletConfigName is the name of the global KlusterletConfig.
	KlusterletConfigName string = "global"
	// ACMBackupScheduleName is the name of the BackupSchedule created on the active hub.
	ACMBackupScheduleName string = "schedule-acm"
	// ACMPassiveRestoreName is the name of the passive sync Restore created on the passive hub.
	ACMPassiveRestoreName string = "restore-acm-passive-sync"
	// ACMActivationRestoreName is the name of the Restore activating managed clusters on the new hub.
	ACMActivationRestoreName string = "restore-acm-passive-activate"
	// VeleroNamespace holds the velero Restores of the ACM backup.
	VeleroNamespace string = ACMBackupNamespace

	// MinClusterNameLength and MaxClusterNameLength bound the cluster names accepted by the configuration.
	MinClusterNameLength = 5
	// MaxClusterNameLength see MinClusterNameLength.
	MaxClusterNameLength = 17
	// MaxClusters is the number of --cluster-path{N} style flags registered by the CLI.
	MaxClusters = 8
)

const (
	// DefaultPollInterval is the interval of DR and disruption polling.
	DefaultPollInterval = 5 * time.Second
	// DRPCPhaseTimeout bounds the wait for a DRPlacementControl phase.
	DRPCPhaseTimeout = 30 * time.Minute
	// WorkloadResourcesTimeout bounds the wait for workload PVCs, pods and VRG on a cluster.
	WorkloadResourcesTimeout = 15 * time.Minute
	// WorkloadDeletionTimeout bounds the wait for workload cleanup on the old primary.
	WorkloadDeletionTimeout = 20 * time.Minute
	// MirroringStatusTimeout bounds the wait for a healthy mirroring status.
	MirroringStatusTimeout = 10 * time.Minute
	// ResourceRespinTimeout bounds the wait for a deleted pod to be replaced.
	ResourceRespinTimeout = 5 * time.Minute
	// CephHealthTimeout bounds the wait for HEALTH_OK.
	CephHealthTimeout = 20 * time.Minute
	// HubRestoreTimeout bounds the wait for the ACM restore of the passive hub.
	HubRestoreTimeout = 30 * time.Minute
	// ManagedClusterTimeout bounds the wait for the managed clusters to be available on the new hub.
	ManagedClusterTimeout = 20 * time.Minute
	// ProbeTimeout bounds a cluster reachability probe.
	ProbeTimeout = 30 * time.Second
)
