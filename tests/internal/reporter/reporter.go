package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/golang/glog"
	"github.com/onsi/ginkgo/v2/types"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"gopkg.in/yaml.v2"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const dumpTimeout = 2 * time.Minute

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportIfFailed dumps the pods of namespacesToDump and the resourcesToDump of every cluster of registry when
// report failed. Nothing is dumped when dumpDir is empty. Cluster scoped resources are dumped once per cluster,
// namespaced ones once per namespace.
func ReportIfFailed(
	report types.SpecReport,
	dumpDir string,
	registry *multicluster.Registry,
	namespacesToDump []string,
	resourcesToDump []schema.GroupVersionResource) {
	if !report.Failed() || dumpDir == "" || registry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dumpTimeout)
	defer cancel()

	specDir := filepath.Join(dumpDir, unsafePathChars.ReplaceAllString(report.FullText(), "_"))

	for _, cluster := range registry.Clusters() {
		if err := DumpCluster(ctx, specDir, cluster, namespacesToDump, resourcesToDump); err != nil {
			glog.V(odfparams.LogLevel).Infof("Failed to dump %s: %v", cluster, err)
		}
	}
}

// DumpCluster writes <dir>/<cluster>/<namespace>/<resource>.yaml for the pods and resourcesToDump found in
// namespaces. Resources the cluster does not serve are skipped.
func DumpCluster(
	ctx context.Context,
	dir string,
	cluster *multicluster.ClusterConfig,
	namespaces []string,
	resourcesToDump []schema.GroupVersionResource) error {
	apiClient, err := cluster.APIClient()
	if err != nil {
		return err
	}

	clusterDir := filepath.Join(dir, cluster.ClusterName)

	for _, namespace := range namespaces {
		if err := dumpPods(ctx, apiClient, clusterDir, namespace); err != nil {
			return err
		}

		for _, gvr := range resourcesToDump {
			if err := dumpResource(ctx, apiClient, clusterDir, namespace, gvr); err != nil {
				return err
			}
		}
	}

	return nil
}

func dumpPods(ctx context.Context, apiClient *clients.Settings, clusterDir, namespace string) error {
	podList, err := apiClient.Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	items := make([]interface{}, 0, len(podList.Items))

	for index := range podList.Items {
		object, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&podList.Items[index])
		if err != nil {
			return err
		}

		items = append(items, object)
	}

	return writeItems(filepath.Join(clusterDir, namespace), "pods", items)
}

func dumpResource(
	ctx context.Context,
	apiClient *clients.Settings,
	clusterDir, namespace string,
	gvr schema.GroupVersionResource) error {
	list, err := apiClient.Dynamic.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if k8serrors.IsNotFound(err) {
			glog.V(odfparams.LogLevel).Infof("Resource %s is not served, skipping", gvr.Resource)

			return nil
		}

		return fmt.Errorf("failed to list %s in %s: %w", gvr.Resource, namespace, err)
	}

	items := make([]interface{}, 0, len(list.Items))
	for _, item := range list.Items {
		items = append(items, item.Object)
	}

	return writeItems(filepath.Join(clusterDir, namespace), gvr.Resource, items)
}

func writeItems(dir, resource string, items []interface{}) error {
	if len(items) == 0 {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	content, err := yaml.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", resource, err)
	}

	return os.WriteFile(filepath.Join(dir, resource+".yaml"), content, 0644)
}
