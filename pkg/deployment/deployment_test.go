package deployment

import (
	"testing"

	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	coreV1 "k8s.io/api/core/v1"
)

func TestNewBuilder(t *testing.T) {
	testCases := []struct {
		name          string
		namespace     string
		labels        map[string]string
		expectedError string
	}{
		{name: "busybox", namespace: "busybox-rbd", labels: map[string]string{"app": "busybox"}},
		{name: "", namespace: "busybox-rbd", labels: map[string]string{"app": "busybox"},
			expectedError: "deployment 'name' cannot be empty"},
		{name: "busybox", namespace: "", labels: map[string]string{"app": "busybox"},
			expectedError: "deployment 'namespace' cannot be empty"},
		{name: "busybox", namespace: "busybox-rbd", labels: nil,
			expectedError: "deployment 'labels' cannot be empty"},
	}

	for _, testCase := range testCases {
		apiClient := clients.GetTestClients(clients.TestClientParams{})
		builder := NewBuilder(apiClient, testCase.name, testCase.namespace, testCase.labels,
			coreV1.Container{Name: "busybox", Image: "quay.io/busybox"})

		_, err := builder.WithVolume("busybox-pvc", "/mnt/test").WithReplicas(1).Create()
		if testCase.expectedError != "" {
			assert.EqualError(t, err, testCase.expectedError)

			continue
		}

		require.NoError(t, err)
		assert.Equal(t, "busybox-pvc",
			builder.Object.Spec.Template.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)
	}
}

func TestScaleAndReady(t *testing.T) {
	apiClient := clients.GetTestClients(clients.TestClientParams{})

	_, err := NewBuilder(apiClient, "rook-ceph-operator", "openshift-storage", map[string]string{"app": "rook"},
		coreV1.Container{Name: "rook", Image: "rook"}).Create()
	require.NoError(t, err)

	builder, err := Pull(apiClient, "rook-ceph-operator", "openshift-storage")
	require.NoError(t, err)
	require.NoError(t, builder.Scale(0))
	assert.Equal(t, int32(0), *builder.Object.Spec.Replicas)
	assert.True(t, builder.IsReady())

	require.NoError(t, builder.Scale(1))
	assert.False(t, builder.IsReady())

	require.NoError(t, builder.Delete())

	_, err = Pull(apiClient, "rook-ceph-operator", "openshift-storage")
	assert.Error(t, err)
}
