package odfconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	return path
}

func TestMerge(t *testing.T) {
	testCases := []struct {
		base     map[string]interface{}
		override map[string]interface{}
		expected map[string]interface{}
	}{
		{
			base:     map[string]interface{}{"ENV_DATA": map[string]interface{}{"x": "a", "y": 1}},
			override: map[string]interface{}{"ENV_DATA": map[string]interface{}{"x": "b"}},
			expected: map[string]interface{}{"ENV_DATA": map[string]interface{}{"x": "b", "y": 1}},
		},
		{
			base:     nil,
			override: map[string]interface{}{"RUN": map[string]interface{}{"run_id": "1"}},
			expected: map[string]interface{}{"RUN": map[string]interface{}{"run_id": "1"}},
		},
		{
			base:     map[string]interface{}{"RUN": "scalar"},
			override: map[string]interface{}{"RUN": map[string]interface{}{"run_id": "1"}},
			expected: map[string]interface{}{"RUN": map[string]interface{}{"run_id": "1"}},
		},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Merge(testCase.base, testCase.override))
	}
}

func TestLoadLaterFileWins(t *testing.T) {
	defaults := writeConfig(t, "default.yaml", "RUN:\n  log_dir: /tmp\nENV_DATA:\n  cluster_path: /clusters/a\n")
	fileA := writeConfig(t, "a.yaml", "ENV_DATA:\n  cluster_name: cluster-a\n  x: a\n")
	fileB := writeConfig(t, "b.yaml", "ENV_DATA:\n  x: b\n")

	clusters, err := Load(LoadSpec{DefaultsFile: defaults, Common: []string{fileA, fileB}})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "b", clusters[0].EnvData()["x"])
	assert.Equal(t, "cluster-a", clusters[0].ClusterName())
	assert.Equal(t, "/clusters/a/auth/kubeconfig", filepath.Join(clusters[0].ClusterPath(), "auth/kubeconfig"))
}

func TestLoadPerClusterAndOverrides(t *testing.T) {
	defaults := writeConfig(t, "default.yaml",
		"RUN:\n  log_dir: /tmp\n  kubeconfig_location: auth/kubeconfig\nMULTICLUSTER:\n  primary_cluster: false\n")
	common := writeConfig(t, "common.yaml", "ENV_DATA:\n  cluster_namespace: openshift-storage\n")
	hub := writeConfig(t, "hub.yaml",
		"ENV_DATA:\n  cluster_name: hub-one\n  cluster_path: /c/hub\nMULTICLUSTER:\n  acm_cluster: true\n"+
			"  active_acm_cluster: true\n")
	primary := writeConfig(t, "primary.yaml",
		"ENV_DATA:\n  cluster_name: primary\n  cluster_path: /c/p\nMULTICLUSTER:\n  primary_cluster: true\n"+
			"  multicluster_index: 1\n")

	clusters, err := Load(LoadSpec{
		DefaultsFile: defaults,
		NClusters:    2,
		Common:       []string{common},
		PerCluster:   map[int][]string{0: {hub}, 1: {primary}},
		Overrides: map[int]Overrides{
			1: {ClusterName: "renamed", OCSVersion: "4.16", Deploy: true, Kubeconfig: "/override/kubeconfig"},
		},
	})
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.True(t, clusters[0].IsACM())
	assert.True(t, clusters[0].IsActiveACM())
	assert.False(t, clusters[0].IsPrimary())
	assert.Equal(t, "/c/hub/auth/kubeconfig", clusters[0].KubeconfigPath())
	assert.Equal(t, "openshift-storage", clusters[0].ClusterNamespace())

	assert.True(t, clusters[1].IsPrimary())
	assert.Equal(t, 1, clusters[1].MulticlusterIndex())
	assert.Equal(t, "renamed", clusters[1].ClusterName())
	assert.Equal(t, "4.16", clusters[1].OCSVersion())
	assert.Equal(t, true, clusters[1].Deployment()["deploy"])
	assert.Equal(t, "/override/kubeconfig", clusters[1].KubeconfigPath())
}

func TestLoadValidation(t *testing.T) {
	defaults := writeConfig(t, "default.yaml", "ENV_DATA:\n  cluster_path: /c\n")

	testCases := []struct {
		config        string
		expectedField string
	}{
		{config: "ENV_DATA:\n  cluster_name: \"\"\n", expectedField: "ENV_DATA.cluster_name"},
		{config: "ENV_DATA:\n  cluster_name: abcd\n", expectedField: "ENV_DATA.cluster_name"},
		{config: "ENV_DATA:\n  cluster_name: abcdefghijklmnopqr\n", expectedField: "ENV_DATA.cluster_name"},
		{config: "ENV_DATA:\n  cluster_name: abcde\n  cluster_path: \"\"\n", expectedField: "ENV_DATA.cluster_path"},
		{config: "ENV_DATA:\n  cluster_name: abcde\n", expectedField: ""},
		{config: "ENV_DATA:\n  cluster_name: abcdefghijklmnopq\n", expectedField: ""},
	}

	for _, testCase := range testCases {
		_, err := Load(LoadSpec{DefaultsFile: defaults, Common: []string{writeConfig(t, "c.yaml", testCase.config)}})
		if testCase.expectedField == "" {
			assert.NoError(t, err)

			continue
		}

		var configErr *ConfigError

		require.True(t, errors.As(err, &configErr), "expected ConfigError, got %v", err)
		assert.Equal(t, testCase.expectedField, configErr.Field)
		assert.Equal(t, 0, configErr.ClusterIndex)
	}
}

func TestLoadMissingFile(t *testing.T) {
	defaults := writeConfig(t, "default.yaml", "ENV_DATA:\n  cluster_path: /c\n")

	_, err := Load(LoadSpec{DefaultsFile: defaults, Common: []string{"/does/not/exist.yaml"}})

	var configErr *ConfigError

	require.True(t, errors.As(err, &configErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadShippedDefaults(t *testing.T) {
	config := writeConfig(t, "c.yaml", "ENV_DATA:\n  cluster_name: cluster-1\n  cluster_path: /c\n")

	clusters, err := Load(LoadSpec{Common: []string{config}})
	require.NoError(t, err)
	assert.Equal(t, "openshift-storage", clusters[0].ClusterNamespace())
	assert.Equal(t, "/c/auth/kubeconfig", clusters[0].KubeconfigPath())
}

func TestEnvOverrides(t *testing.T) {
	logDir := t.TempDir()
	t.Setenv("ODF_LOG_DIR", logDir)
	t.Setenv("ODF_RUN_ID", "1700000000")

	config := writeConfig(t, "c.yaml", "ENV_DATA:\n  cluster_name: cluster-1\n  cluster_path: /c\n")

	clusters, err := Load(LoadSpec{Common: []string{config}})
	require.NoError(t, err)
	assert.Equal(t, logDir, clusters[0].LogDir())
	assert.Equal(t, "1700000000", clusters[0].RunID())
}

func TestDump(t *testing.T) {
	logDir := t.TempDir()
	cluster := &Cluster{Index: 2, Data: map[string]interface{}{
		"RUN":      map[string]interface{}{"log_dir": logDir, "run_id": "42"},
		"ENV_DATA": map[string]interface{}{"cluster_name": "cluster-2"},
	}}

	path, err := cluster.Dump()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(logDir, "run-42-cl2-config.yaml"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var dumped map[string]map[string]interface{}

	require.NoError(t, yaml.Unmarshal(content, &dumped))
	assert.Equal(t, "cluster-2", dumped["ENV_DATA"]["cluster_name"])

	_, err = (&Cluster{Index: 0, Data: map[string]interface{}{}}).Dump()
	assert.Error(t, err)
}

func TestDumpAll(t *testing.T) {
	logDir := t.TempDir()

	var clusters []*Cluster

	for index, name := range []string{"hub-a", "cluster-1"} {
		clusters = append(clusters, &Cluster{Index: index, Data: map[string]interface{}{
			"RUN":      map[string]interface{}{"log_dir": logDir, "run_id": "1700000000"},
			"ENV_DATA": map[string]interface{}{"cluster_name": name},
		}})
	}

	paths, err := DumpAll(clusters)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(logDir, "run-1700000000-cl0-config.yaml"),
		filepath.Join(logDir, "run-1700000000-cl1-config.yaml"),
	}, paths)

	for _, path := range paths {
		assert.FileExists(t, path)
	}

	clusters = append(clusters, &Cluster{Index: 2, Data: map[string]interface{}{}})

	paths, err = DumpAll(clusters)

	var configErr *ConfigError

	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, 2, configErr.ClusterIndex)
	assert.Len(t, paths, 2)
}
