package daemonset

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/apps/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Builder provides struct for daemonset object which contains connection to cluster and daemonset definition.
type Builder struct {
	// daemonset definition.
	Definition *v1.DaemonSet
	// Object read from the cluster.
	Object    *v1.DaemonSet
	apiClient *clients.Settings
}

// Pull loads an existing daemonset into a Builder.
func Pull(apiClient *clients.Settings, name, nsname string) (*Builder, error) {
	glog.V(100).Infof("Pulling existing daemonset %s in namespace %s", name, nsname)

	if name == "" || nsname == "" {
		return nil, fmt.Errorf("daemonset 'name' and 'namespace' cannot be empty")
	}

	builder := &Builder{
		apiClient: apiClient,
		Definition: &v1.DaemonSet{
			ObjectMeta: metaV1.ObjectMeta{
				Name:      name,
				Namespace: nsname,
			},
		},
	}

	if !builder.Exists() {
		return nil, fmt.Errorf("daemonset %s does not exist in namespace %s", name, nsname)
	}

	builder.Definition = builder.Object

	return builder, nil
}

// IsReady reports whether every scheduled daemon pod is ready and up to date.
func (builder *Builder) IsReady() bool {
	if !builder.Exists() || builder.Object == nil {
		return false
	}

	status := builder.Object.Status

	return status.DesiredNumberScheduled > 0 &&
		status.NumberReady == status.DesiredNumberScheduled &&
		status.UpdatedNumberScheduled == status.DesiredNumberScheduled
}

// WaitUntilReady waits until the daemonset is ready.
func (builder *Builder) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	glog.V(100).Infof("Waiting up to %s for daemonset %s/%s to be ready",
		timeout, builder.Definition.Namespace, builder.Definition.Name)

	return wait.PollUntilContextTimeout(ctx, time.Second, timeout, true, func(context.Context) (bool, error) {
		return builder.IsReady(), nil
	})
}

// Exists tells whether the given daemonset exists.
func (builder *Builder) Exists() bool {
	var err error
	builder.Object, err = builder.apiClient.DaemonSets(builder.Definition.Namespace).Get(
		context.TODO(), builder.Definition.Name, metaV1.GetOptions{})

	return err == nil
}
