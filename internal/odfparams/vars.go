package odfparams

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	// DRPCGVR is the DRPlacementControl resource of the hub.
	DRPCGVR = schema.GroupVersionResource{
		Group: "ramendr.openshift.io", Version: "v1alpha1", Resource: "drplacementcontrols"}
	// DRPolicyGVR is the DRPolicy resource of the hub.
	DRPolicyGVR = schema.GroupVersionResource{
		Group: "ramendr.openshift.io", Version: "v1alpha1", Resource: "drpolicies"}
	// DRClusterGVR is the DRCluster resource of the hub.
	DRClusterGVR = schema.GroupVersionResource{
		Group: "ramendr.openshift.io", Version: "v1alpha1", Resource: "drclusters"}
	// VRGGVR is the VolumeReplicationGroup resource of the managed clusters.
	VRGGVR = schema.GroupVersionResource{
		Group: "ramendr.openshift.io", Version: "v1alpha1", Resource: "volumereplicationgroups"}
	// CephBlockPoolGVR is the rook CephBlockPool resource.
	CephBlockPoolGVR = schema.GroupVersionResource{
		Group: "ceph.rook.io", Version: "v1", Resource: "cephblockpools"}
	// ACMRestoreGVR is the ACM cluster backup Restore resource.
	ACMRestoreGVR = schema.GroupVersionResource{
		Group: "cluster.open-cluster-management.io", Version: "v1beta1", Resource: "restores"}
	// ACMBackupScheduleGVR is the ACM cluster BackupSchedule resource.
	ACMBackupScheduleGVR = schema.GroupVersionResource{
		Group: "cluster.open-cluster-management.io", Version: "v1beta1", Resource: "backupschedules"}
	// KlusterletConfigGVR is the ACM KlusterletConfig resource.
	KlusterletConfigGVR = schema.GroupVersionResource{
		Group: "config.open-cluster-management.io", Version: "v1alpha1", Resource: "klusterletconfigs"}

	// DynamicListKinds maps every resource read through the dynamic client to its list kind.
	DynamicListKinds = map[schema.GroupVersionResource]string{
		DRPCGVR:              "DRPlacementControlList",
		DRPolicyGVR:          "DRPolicyList",
		DRClusterGVR:         "DRClusterList",
		VRGGVR:               "VolumeReplicationGroupList",
		CephBlockPoolGVR:     "CephBlockPoolList",
		ACMRestoreGVR:        "RestoreList",
		ACMBackupScheduleGVR: "BackupScheduleList",
		KlusterletConfigGVR:  "KlusterletConfigList",
	}
)
