package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnv(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")

	t.Setenv("ODF_REPORTS_DUMP_DIR", reportsDir)
	t.Setenv("ODF_NCLUSTERS", "3")
	t.Setenv("ODF_DEFAULT_CLUSTER_INDEX", "1")
	t.Setenv("ODF_OCSCI_CONF", "common.yaml,dr.yaml")
	t.Setenv("ODF_CLUSTER_CONF", "hub.yaml,,c2.yaml")
	t.Setenv("ODF_CLUSTER_PATHS", "/clusters/hub-a,/clusters/cluster-1")
	t.Setenv("ODF_CLUSTER_NAMES", "hub-a,cluster-1,cluster-2")
	t.Setenv("ODF_DUMP_FAILED_TESTS", "true")

	conf := NewConfig()
	require.NotNil(t, conf)
	assert.DirExists(t, reportsDir)
	assert.Equal(t, "OCS-", conf.TCPrefix)
	assert.Equal(t, 1, conf.DefaultClusterIndex)

	spec := conf.LoadSpec()
	assert.Equal(t, 3, spec.NClusters)
	assert.Equal(t, []string{"common.yaml", "dr.yaml"}, spec.Common)
	assert.Equal(t, []string{"hub.yaml"}, spec.PerCluster[0])
	assert.Empty(t, spec.PerCluster[1])
	assert.Equal(t, []string{"c2.yaml"}, spec.PerCluster[2])
	assert.Equal(t, "/clusters/hub-a", spec.Overrides[0].ClusterPath)
	assert.Equal(t, "", spec.Overrides[2].ClusterPath)
	assert.Equal(t, "cluster-2", spec.Overrides[2].ClusterName)

	assert.Equal(t, filepath.Join(reportsDir, "dr_suite_test_junit.xml"), conf.GetJunitReportPath("/x/dr_suite_test.go"))
	assert.Equal(t, "", conf.GetPolarionReportPath("/x/dr_suite_test.go"))
	assert.Equal(t, filepath.Join(reportsDir, "failed_dr_suite_test"),
		conf.GetDumpFailedTestReportLocation("/x/dr_suite_test.go"))
}
