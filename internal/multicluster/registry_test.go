package multicluster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDRClusters returns an active hub, a passive hub, a primary and a secondary managed cluster.
func buildDRClusters() []*ClusterConfig {
	return []*ClusterConfig{
		{ClusterName: "hub-active", KubeconfigPath: "/c/hub1", ACM: true, ActiveACM: true},
		{ClusterName: "hub-passive", KubeconfigPath: "/c/hub2", ACM: true},
		{ClusterName: "primary", KubeconfigPath: "/c/p", Primary: true, Provider: true},
		{ClusterName: "secondary", KubeconfigPath: "/c/s", Consumer: true},
	}
}

func TestNew(t *testing.T) {
	testCases := []struct {
		clusters      []*ClusterConfig
		defaultIndex  int
		expectedError bool
	}{
		{clusters: buildDRClusters(), defaultIndex: 0, expectedError: false},
		{clusters: buildDRClusters(), defaultIndex: 4, expectedError: true},
		{clusters: buildDRClusters(), defaultIndex: -1, expectedError: true},
		{clusters: nil, defaultIndex: 0, expectedError: true},
		{clusters: []*ClusterConfig{{ClusterName: "a", Primary: true}, {ClusterName: "b", Primary: true}},
			expectedError: true},
		{clusters: []*ClusterConfig{{ClusterName: "a", ActiveACM: true}}, expectedError: true},
		{clusters: []*ClusterConfig{{ClusterName: "a"}, {ClusterName: "a"}}, expectedError: true},
	}

	for _, testCase := range testCases {
		registry, err := New(testCase.clusters, testCase.defaultIndex)
		if testCase.expectedError {
			assert.Error(t, err)

			continue
		}

		require.NoError(t, err)
		assert.Equal(t, testCase.defaultIndex, registry.CurrentIndex())

		for index, cluster := range registry.Clusters() {
			assert.Equal(t, index, cluster.Index)
		}
	}
}

func TestSwitchRoundTripAndReset(t *testing.T) {
	registry, err := New(buildDRClusters(), 2)
	require.NoError(t, err)

	for index := 0; index < registry.Len(); index++ {
		require.NoError(t, registry.SwitchCtx(index))
		assert.Equal(t, index, registry.CurrentIndex())
		assert.Equal(t, index, registry.Current().Index)

		require.NoError(t, registry.SwitchCtx(index))
		assert.Equal(t, index, registry.CurrentIndex())
	}

	require.NoError(t, registry.SwitchCtx(1))
	require.NoError(t, registry.SwitchCtx(3))
	registry.ResetCtx()
	assert.Equal(t, 2, registry.CurrentIndex())

	err = registry.SwitchCtx(7)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	assert.Equal(t, 2, registry.CurrentIndex())

	require.NoError(t, registry.SwitchToClusterByName("secondary"))
	assert.Equal(t, 3, registry.CurrentIndex())

	err = registry.SwitchToClusterByName("missing")
	assert.True(t, errors.Is(err, ErrClusterNotFound))

	require.NoError(t, registry.SwitchACMCtx())
	assert.Equal(t, 0, registry.CurrentIndex())

	require.NoError(t, registry.SwitchDefaultClusterCtx())
	assert.Equal(t, 2, registry.CurrentIndex())
}

func TestRunOnRestoresPrevious(t *testing.T) {
	registry, err := New(buildDRClusters(), 0)
	require.NoError(t, err)
	require.NoError(t, registry.SwitchCtx(3))

	err = registry.RunOn(2, func(cluster *ClusterConfig) error {
		assert.Equal(t, "primary", cluster.ClusterName)
		assert.Equal(t, 2, registry.CurrentIndex())

		return registry.RunOnACM(func(hub *ClusterConfig) error {
			assert.Equal(t, 0, registry.CurrentIndex())

			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, registry.CurrentIndex())

	failure := errors.New("step failed")
	err = registry.RunOnName("hub-passive", func(*ClusterConfig) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 3, registry.CurrentIndex())

	assert.Panics(t, func() {
		_ = registry.RunOn(1, func(*ClusterConfig) error {
			panic("boom")
		})
	})
	assert.Equal(t, 3, registry.CurrentIndex())

	err = registry.RunOn(9, func(*ClusterConfig) error { return nil })
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, 3, registry.CurrentIndex())
}

func TestRoleQueriesIgnoreCurrent(t *testing.T) {
	registry, err := New(buildDRClusters(), 0)
	require.NoError(t, err)

	for index := 0; index < registry.Len(); index++ {
		require.NoError(t, registry.SwitchCtx(index))

		assert.Equal(t, 2, registry.PrimaryClusterIndex())
		assert.Equal(t, []int{0, 1}, registry.ACMIndexes())
		assert.Equal(t, 0, registry.ActiveACMIndex())
		assert.Equal(t, 1, registry.PassiveACMIndex())
		assert.Equal(t, []int{2}, registry.ProviderIndexes())
		assert.Equal(t, []int{3}, registry.ConsumerIndexes())
		assert.Len(t, registry.NonACMClusters(), 2)
	}

	noRoles, err := New([]*ClusterConfig{{ClusterName: "single"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, noRoles.PrimaryClusterIndex())
	assert.Equal(t, -1, noRoles.ActiveACMIndex())
	assert.Equal(t, -1, noRoles.PassiveACMIndex())
	assert.Empty(t, noRoles.ACMIndexes())
	assert.ErrorIs(t, noRoles.SwitchACMCtx(), ErrClusterNotFound)
}

func TestSetPrimaryAndActiveACM(t *testing.T) {
	registry, err := New(buildDRClusters(), 0)
	require.NoError(t, err)

	require.NoError(t, registry.SetPrimary(3))
	assert.Equal(t, 3, registry.PrimaryClusterIndex())
	assert.False(t, registry.Cluster(2).Primary)

	assert.Error(t, registry.SetPrimary(0))
	assert.ErrorIs(t, registry.SetPrimary(10), ErrIndexOutOfRange)

	require.NoError(t, registry.SetActiveACM(1))
	assert.Equal(t, 1, registry.ActiveACMIndex())
	assert.Equal(t, 0, registry.PassiveACMIndex())
	assert.ErrorIs(t, registry.SetActiveACM(2), ErrClusterNotFound)
}

func TestKubeconfigExport(t *testing.T) {
	t.Setenv("KUBECONFIG", "/initial")

	registry, err := New(buildDRClusters(), 0, WithKubeconfigExport(true))
	require.NoError(t, err)
	assert.Equal(t, "/c/hub1", os.Getenv("KUBECONFIG"))

	require.NoError(t, registry.SwitchCtx(2))
	assert.Equal(t, "/c/p", os.Getenv("KUBECONFIG"))

	require.NoError(t, registry.RunOn(3, func(*ClusterConfig) error {
		assert.Equal(t, "/c/s", os.Getenv("KUBECONFIG"))

		return nil
	}))
	assert.Equal(t, "/c/p", os.Getenv("KUBECONFIG"))
}

func TestForEachCluster(t *testing.T) {
	registry, err := New(buildDRClusters(), 0)
	require.NoError(t, err)

	var visited atomic.Int32

	err = registry.ForEachCluster(context.TODO(), []int{2, 3}, func(_ context.Context, cluster *ClusterConfig) error {
		visited.Add(1)
		assert.False(t, cluster.ACM)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), visited.Load())
	assert.Equal(t, 0, registry.CurrentIndex())

	err = registry.ForEachCluster(context.TODO(), []int{2, 3}, func(_ context.Context, cluster *ClusterConfig) error {
		if cluster.Index == 3 {
			return errors.New("unreachable")
		}

		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster 3 (secondary)")

	err = registry.ForEachCluster(context.TODO(), []int{5}, func(context.Context, *ClusterConfig) error { return nil })
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestClusterConfigClients(t *testing.T) {
	cluster := &ClusterConfig{ClusterName: "primary", KubeconfigPath: "/does/not/exist"}
	assert.Error(t, cluster.Validate())

	_, err := cluster.APIClient()
	assert.Error(t, err)

	fakeClient := clients.GetTestClients(clients.TestClientParams{})
	cluster.SetAPIClient(fakeClient)

	apiClient, err := cluster.APIClient()
	require.NoError(t, err)
	assert.Same(t, fakeClient, apiClient)

	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kubeconfig, []byte("apiVersion: v1\nkind: Config\n"), 0600))
	assert.NoError(t, (&ClusterConfig{KubeconfigPath: kubeconfig}).Validate())

	assert.False(t, CheckKubeconfig("/does/not/exist"))
}

func TestFromConfig(t *testing.T) {
	configs := []*odfconfig.Cluster{
		{Index: 0, Data: map[string]interface{}{
			"ENV_DATA":     map[string]interface{}{"cluster_name": "hub-one", "cluster_path": "/c/hub"},
			"RUN":          map[string]interface{}{"kubeconfig_location": "auth/kubeconfig"},
			"MULTICLUSTER": map[string]interface{}{"acm_cluster": true, "active_acm_cluster": true},
		}},
		{Index: 1, Data: map[string]interface{}{
			"ENV_DATA": map[string]interface{}{
				"cluster_name": "primary", "cluster_path": "/c/p", "cluster_type": "provider"},
			"RUN":          map[string]interface{}{"kubeconfig_location": "auth/kubeconfig"},
			"MULTICLUSTER": map[string]interface{}{"primary_cluster": true, "multicluster_index": 1},
		}},
	}

	registry, err := FromConfig(configs, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, registry.ActiveACMIndex())
	assert.Equal(t, 1, registry.PrimaryClusterIndex())
	assert.Equal(t, []int{1}, registry.ProviderIndexes())
	assert.Equal(t, "/c/p/auth/kubeconfig", registry.Current().KubeconfigPath)
	assert.Equal(t, 1, registry.Current().MulticlusterIndex)
}
