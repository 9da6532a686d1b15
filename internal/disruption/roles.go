package disruption

import (
	"fmt"

	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
)

// Role is a disruptable ODF component.
type Role string

// OwnerKind is the kind of workload controller owning the pods of a role.
type OwnerKind string

const (
	// OwnerDeployment pods are owned by deployments.
	OwnerDeployment OwnerKind = "deployment"
	// OwnerDaemonSet pods are owned by a daemonset.
	OwnerDaemonSet OwnerKind = "daemonset"
	// OwnerStatefulSet pods are owned by a statefulset.
	OwnerStatefulSet OwnerKind = "statefulset"
)

// Supported roles.
const (
	RoleMon                     Role = "mon"
	RoleOSD                     Role = "osd"
	RoleMgr                     Role = "mgr"
	RoleMDS                     Role = "mds"
	RoleRGW                     Role = "rgw"
	RoleOperator                Role = "operator"
	RoleOCSOperator             Role = "ocs_operator"
	RoleRBDPlugin               Role = "rbdplugin"
	RoleCephFSPlugin            Role = "cephfsplugin"
	RoleRBDPluginProvisioner    Role = "rbdplugin_provisioner"
	RoleCephFSPluginProvisioner Role = "cephfsplugin_provisioner"
	RoleNoobaaCore              Role = "noobaa_core"
	RoleNoobaaOperator          Role = "noobaa_operator"
)

// LeaderType selects the sidecar whose leader election lease designates the target pod.
type LeaderType string

const (
	// LeaderNone targets every pod of the role.
	LeaderNone LeaderType = ""
	// LeaderProvisioner is the csi external-provisioner leader.
	LeaderProvisioner LeaderType = "provisioner"
	// LeaderAttacher is the csi external-attacher leader.
	LeaderAttacher LeaderType = "attacher"
	// LeaderResizer is the csi external-resizer leader.
	LeaderResizer LeaderType = "resizer"
	// LeaderSnapshotter is the csi external-snapshotter leader.
	LeaderSnapshotter LeaderType = "snapshotter"
)

// Descriptor tells where the pods of a role live and how to disrupt them.
type Descriptor struct {
	Role      Role
	Namespace string
	Selector  string
	Owner     OwnerKind
	// Daemon is the process killed by KillDaemon, empty when the role has no host daemon.
	Daemon string
	// CSIDriver is the csi driver name the leader leases are derived from.
	CSIDriver string
}

// Roles lists every supported role.
var Roles = []Role{
	RoleMon, RoleOSD, RoleMgr, RoleMDS, RoleRGW, RoleOperator, RoleOCSOperator, RoleRBDPlugin, RoleCephFSPlugin,
	RoleRBDPluginProvisioner, RoleCephFSPluginProvisioner, RoleNoobaaCore, RoleNoobaaOperator,
}

// Describe returns the descriptor of role.
func Describe(role Role) (Descriptor, error) {
	descriptor := Descriptor{Role: role, Namespace: odfparams.StorageNamespace, Owner: OwnerDeployment}

	switch role {
	case RoleMon:
		descriptor.Selector, descriptor.Daemon = "app=rook-ceph-mon", "ceph-mon"
	case RoleOSD:
		descriptor.Selector, descriptor.Daemon = "app=rook-ceph-osd", "ceph-osd"
	case RoleMgr:
		descriptor.Selector, descriptor.Daemon = "app=rook-ceph-mgr", "ceph-mgr"
	case RoleMDS:
		descriptor.Selector, descriptor.Daemon = "app=rook-ceph-mds", "ceph-mds"
	case RoleRGW:
		descriptor.Selector, descriptor.Daemon = "app=rook-ceph-rgw", "radosgw"
	case RoleOperator:
		descriptor.Selector = "app=rook-ceph-operator"
	case RoleOCSOperator:
		descriptor.Selector = "name=ocs-operator"
	case RoleRBDPlugin:
		descriptor.Selector, descriptor.Owner = "app=csi-rbdplugin", OwnerDaemonSet
	case RoleCephFSPlugin:
		descriptor.Selector, descriptor.Owner = "app=csi-cephfsplugin", OwnerDaemonSet
	case RoleRBDPluginProvisioner:
		descriptor.Selector = "app=csi-rbdplugin-provisioner"
		descriptor.CSIDriver = odfparams.StorageNamespace + ".rbd.csi.ceph.com"
	case RoleCephFSPluginProvisioner:
		descriptor.Selector = "app=csi-cephfsplugin-provisioner"
		descriptor.CSIDriver = odfparams.StorageNamespace + ".cephfs.csi.ceph.com"
	case RoleNoobaaCore:
		descriptor.Selector, descriptor.Owner = "noobaa-core=noobaa", OwnerStatefulSet
	case RoleNoobaaOperator:
		descriptor.Selector = "noobaa-operator=deployment"
	default:
		return Descriptor{}, fmt.Errorf("unknown disruption role %q", role)
	}

	return descriptor, nil
}

// LeaseName returns the name of the leader election lease of leaderType for the csi driver of the descriptor.
func (descriptor Descriptor) LeaseName(leaderType LeaderType) (string, error) {
	if descriptor.CSIDriver == "" {
		return "", fmt.Errorf("role %s has no leader election", descriptor.Role)
	}

	driver := sanitizeDriverName(descriptor.CSIDriver)

	switch leaderType {
	case LeaderProvisioner:
		return driver, nil
	case LeaderAttacher:
		return "external-attacher-leader-" + driver, nil
	case LeaderResizer:
		return "external-resizer-" + driver, nil
	case LeaderSnapshotter:
		return "external-snapshotter-leader-" + driver, nil
	default:
		return "", fmt.Errorf("unknown leader type %q", leaderType)
	}
}

// sanitizeDriverName turns a csi driver name into the name of its leases.
func sanitizeDriverName(driver string) string {
	sanitized := []byte(driver)

	for index, char := range sanitized {
		if !(char >= 'a' && char <= 'z' || char >= '0' && char <= '9' || char == '-') {
			sanitized[index] = '-'
		}
	}

	return string(sanitized)
}
