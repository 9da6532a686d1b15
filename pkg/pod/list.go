package pod

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	v1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// List returns pod inventory in the given namespace.
func List(ctx context.Context, apiClient *clients.Settings, nsname string, options metaV1.ListOptions) ([]*Builder, error) {
	glog.V(100).Infof("Listing pods in the nsname %s with the options %v", nsname, options)

	if nsname == "" {
		glog.V(100).Infof("pod 'nsname' parameter can not be empty")

		return nil, fmt.Errorf("failed to list pods, 'nsname' parameter is empty")
	}

	podList, err := apiClient.Pods(nsname).List(ctx, options)
	if err != nil {
		glog.V(100).Infof("Failed to list pods in the nsname %s due to %s", nsname, err.Error())

		return nil, err
	}

	var podObjects []*Builder

	for _, runningPod := range podList.Items {
		copiedPod := runningPod
		podBuilder := &Builder{
			apiClient:  apiClient,
			Object:     &copiedPod,
			Definition: &copiedPod,
		}

		podObjects = append(podObjects, podBuilder)
	}

	return podObjects, nil
}

// ListBySelector returns the pods of the namespace matching the label selector.
func ListBySelector(ctx context.Context, apiClient *clients.Settings, nsname, selector string) ([]*Builder, error) {
	return List(ctx, apiClient, nsname, metaV1.ListOptions{LabelSelector: selector})
}

// CountInPhase returns the number of pods of the namespace in phase. Pods being deleted are not counted.
func CountInPhase(ctx context.Context, apiClient *clients.Settings, nsname, selector string, phase v1.PodPhase) (int, error) {
	pods, err := ListBySelector(ctx, apiClient, nsname, selector)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, podBuilder := range pods {
		if podBuilder.Object.DeletionTimestamp == nil && podBuilder.Object.Status.Phase == phase {
			count++
		}
	}

	return count, nil
}
