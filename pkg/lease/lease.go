package lease

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	coordinationV1 "k8s.io/api/coordination/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Builder provides struct for a leader election lease.
type Builder struct {
	// Object is the lease read from the cluster.
	Object    *coordinationV1.Lease
	apiClient *clients.Settings
}

// Pull loads an existing lease.
func Pull(ctx context.Context, apiClient *clients.Settings, name, nsname string) (*Builder, error) {
	glog.V(100).Infof("Pulling lease %s in namespace %s", name, nsname)

	if name == "" || nsname == "" {
		return nil, fmt.Errorf("lease 'name' and 'namespace' cannot be empty")
	}

	object, err := apiClient.Leases(nsname).Get(ctx, name, metaV1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get lease %s/%s: %w", nsname, name, err)
	}

	return &Builder{Object: object, apiClient: apiClient}, nil
}

// HolderIdentity returns the identity of the current leader, or an empty string when the lease is not held.
func (builder *Builder) HolderIdentity() string {
	if builder.Object == nil || builder.Object.Spec.HolderIdentity == nil {
		return ""
	}

	return *builder.Object.Spec.HolderIdentity
}

// HolderPodName returns the pod name part of the holder identity. Controllers built on client-go leader election
// record "<pod name>_<uuid>"; identities without an underscore are returned unchanged.
func (builder *Builder) HolderPodName() string {
	podName, _, _ := strings.Cut(builder.HolderIdentity(), "_")

	return podName
}
