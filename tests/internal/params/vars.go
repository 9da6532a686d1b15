package params

import (
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	// PrivilegedNSLabels are set on the namespaces of the test workloads, whose pods write to raw block devices.
	PrivilegedNSLabels = map[string]string{
		"pod-security.kubernetes.io/audit":               "privileged",
		"pod-security.kubernetes.io/enforce":             "privileged",
		"pod-security.kubernetes.io/warn":                "privileged",
		"security.openshift.io/scc.podSecurityLabelSync": "false",
	}

	// DRResourcesToDump are dumped from every cluster when a DR spec fails.
	DRResourcesToDump = []schema.GroupVersionResource{
		odfparams.DRPCGVR,
		odfparams.VRGGVR,
	}
)
