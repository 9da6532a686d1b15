package pod

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
)

func buildPod(name string, phase v1.PodPhase, labels map[string]string) *v1.Pod {
	return &v1.Pod{
		ObjectMeta: metaV1.ObjectMeta{Name: name, Namespace: "openshift-storage", Labels: labels},
		Spec:       v1.PodSpec{NodeName: "worker-0", Containers: []v1.Container{{Name: "test"}}},
		Status:     v1.PodStatus{Phase: phase},
	}
}

func TestPull(t *testing.T) {
	testCases := []struct {
		name          string
		namespace     string
		expectedError bool
	}{
		{name: "rook-ceph-mon-a", namespace: "openshift-storage", expectedError: false},
		{name: "missing", namespace: "openshift-storage", expectedError: true},
		{name: "", namespace: "openshift-storage", expectedError: true},
		{name: "rook-ceph-mon-a", namespace: "", expectedError: true},
	}

	apiClient := clients.GetTestClients(clients.TestClientParams{
		K8sMockObjects: []runtime.Object{buildPod("rook-ceph-mon-a", v1.PodRunning, nil)},
	})

	for _, testCase := range testCases {
		builder, err := Pull(apiClient, testCase.name, testCase.namespace)
		if testCase.expectedError {
			assert.Error(t, err)

			continue
		}

		require.NoError(t, err)
		assert.Equal(t, "worker-0", builder.NodeName())
		assert.True(t, builder.IsRunning())
	}
}

func TestCountInPhase(t *testing.T) {
	monLabels := map[string]string{"app": "rook-ceph-mon"}
	apiClient := clients.GetTestClients(clients.TestClientParams{
		K8sMockObjects: []runtime.Object{
			buildPod("mon-a", v1.PodRunning, monLabels),
			buildPod("mon-b", v1.PodRunning, monLabels),
			buildPod("mon-c", v1.PodPending, monLabels),
			buildPod("osd-0", v1.PodRunning, map[string]string{"app": "rook-ceph-osd"}),
		},
	})

	count, err := CountInPhase(context.TODO(), apiClient, "openshift-storage", "app=rook-ceph-mon", v1.PodRunning)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = List(context.TODO(), apiClient, "", metaV1.ListOptions{})
	assert.Error(t, err)
}

func TestDeleteAndWait(t *testing.T) {
	apiClient := clients.GetTestClients(clients.TestClientParams{
		K8sMockObjects: []runtime.Object{buildPod("mon-a", v1.PodRunning, nil)},
	})

	builder, err := Pull(apiClient, "mon-a", "openshift-storage")
	require.NoError(t, err)

	_, err = builder.DeleteAndWait(context.TODO(), 5*time.Second)
	assert.NoError(t, err)
	assert.False(t, builder.Exists())

	_, err = builder.Delete()
	assert.Error(t, err)
}

func TestExistsOnUnreachableAPI(t *testing.T) {
	apiClient := clients.GetTestClients(clients.TestClientParams{
		K8sMockObjects: []runtime.Object{buildPod("mon-a", v1.PodRunning, nil)},
	})

	builder, err := Pull(apiClient, "mon-a", "openshift-storage")
	require.NoError(t, err)

	fakeClient, ok := apiClient.K8sClient.(*k8sfake.Clientset)
	require.True(t, ok)

	fakeClient.PrependReactor("get", "pods", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("dial tcp 10.0.0.1:6443: connect: connection refused")
	})

	assert.False(t, builder.Exists())
	assert.NotPanics(t, func() {
		_, err = builder.Delete()
	})
	assert.Error(t, err)
}
