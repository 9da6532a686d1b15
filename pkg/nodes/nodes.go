package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Builder provides struct for Node object which contains connection to cluster and list of Node definitions.
type Builder struct {
	Objects   []v1.Node
	apiClient *clients.Settings
	selector  string
	errorMsg  string
}

// NewBuilder method creates new instance of Builder.
func NewBuilder(apiClient *clients.Settings, selector map[string]string) *Builder {
	serialSelector := labels.Set(selector).String()

	builder := &Builder{
		apiClient: apiClient,
		selector:  serialSelector,
	}

	if serialSelector == "" {
		builder.errorMsg = "error node selector is empty"
	}

	return builder
}

// Discover method gets the node items and stores them in the Builder struct.
func (builder *Builder) Discover(ctx context.Context) error {
	if builder.errorMsg != "" {
		return fmt.Errorf("%s", builder.errorMsg)
	}

	nodes, err := builder.apiClient.Nodes().List(ctx, metaV1.ListOptions{LabelSelector: builder.selector})
	if err != nil {
		return err
	}

	builder.Objects = nodes.Items

	return nil
}

// Names returns the names of the discovered nodes.
func (builder *Builder) Names() []string {
	names := make([]string, 0, len(builder.Objects))

	for _, node := range builder.Objects {
		names = append(names, node.Name)
	}

	return names
}

// IsReady reports whether the NodeReady condition of node is True.
func IsReady(node *v1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == v1.NodeReady {
			return condition.Status == v1.ConditionTrue
		}
	}

	return false
}

// WaitUntilReady waits until every discovered node reports Ready, or stops reporting it when ready is false.
func (builder *Builder) WaitUntilReady(ctx context.Context, ready bool, timeout time.Duration) error {
	glog.V(100).Infof("Waiting up to %s for nodes %q to have Ready=%t", timeout, builder.selector, ready)

	return wait.PollUntilContextTimeout(ctx, 5*time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		if err := builder.Discover(ctx); err != nil {
			glog.V(100).Infof("Failed to list nodes %q: %v", builder.selector, err)

			return false, nil
		}

		for index := range builder.Objects {
			if IsReady(&builder.Objects[index]) != ready {
				return false, nil
			}
		}

		return len(builder.Objects) > 0, nil
	})
}
