package odfconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/kelseyhightower/envconfig"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"gopkg.in/yaml.v2"
)

const (
	// PathToDefaultParamsFile path to config file with default parameters.
	PathToDefaultParamsFile = "./default.yaml"

	// SectionEnvData holds the description of the cluster environment.
	SectionEnvData = "ENV_DATA"
	// SectionRun holds the parameters of the current run.
	SectionRun = "RUN"
	// SectionDeployment holds the deployment switches.
	SectionDeployment = "DEPLOYMENT"
	// SectionMulticluster holds the multicluster role flags.
	SectionMulticluster = "MULTICLUSTER"
	// SectionReporting holds the reporting switches.
	SectionReporting = "REPORTING"
	// SectionUpgrade holds the upgrade targets.
	SectionUpgrade = "UPGRADE"
)

// Sections lists every top-level section of a cluster configuration.
var Sections = []string{
	SectionEnvData, SectionRun, SectionDeployment, SectionMulticluster, SectionReporting, SectionUpgrade,
}

// Overrides are the values given on the command line for one cluster. Empty values leave the files untouched.
type Overrides struct {
	ClusterPath       string
	ClusterName       string
	OCSVersion        string
	OCPVersion        string
	Kubeconfig        string
	Deploy            bool
	Teardown          bool
	UpgradeOCSVersion string
	UpgradeOCPVersion string
}

// EnvOverrides are read from ODF_* environment variables and applied to every cluster after the files.
type EnvOverrides struct {
	LogDir string `envconfig:"ODF_LOG_DIR"`
	RunID  string `envconfig:"ODF_RUN_ID"`
}

// LoadSpec describes where the configuration of every cluster comes from.
type LoadSpec struct {
	// NClusters is the number of clusters. One when zero.
	NClusters int
	// Common files are merged into every cluster, left to right.
	Common []string
	// PerCluster files are merged after Common into the cluster of the same index.
	PerCluster map[int][]string
	// Overrides are applied last, per cluster index.
	Overrides map[int]Overrides
	// DefaultsFile replaces the default.yaml shipped next to this package.
	DefaultsFile string
}

// Cluster is the merged configuration of one cluster.
type Cluster struct {
	Index int
	Data  map[string]interface{}
}

// Load merges the configuration of every cluster described by spec and validates it.
func Load(spec LoadSpec) ([]*Cluster, error) {
	nClusters := spec.NClusters
	if nClusters <= 0 {
		nClusters = 1
	}

	defaultsFile := spec.DefaultsFile
	if defaultsFile == "" {
		_, filename, _, _ := runtime.Caller(0)
		defaultsFile = filepath.Join(filepath.Dir(filename), PathToDefaultParamsFile)
	}

	defaults, err := ReadFile(defaultsFile)
	if err != nil {
		return nil, err
	}

	var envOverrides EnvOverrides

	if err := envconfig.Process("", &envOverrides); err != nil {
		return nil, &ConfigError{ClusterIndex: -1, Field: "environment", Reason: "cannot read ODF_* variables", Err: err}
	}

	clusters := make([]*Cluster, 0, nClusters)

	for index := 0; index < nClusters; index++ {
		data, _ := deepCopy(defaults).(map[string]interface{})

		data, err = MergeFiles(data, spec.Common...)
		if err != nil {
			return nil, err
		}

		data, err = MergeFiles(data, spec.PerCluster[index]...)
		if err != nil {
			return nil, err
		}

		cluster := &Cluster{Index: index, Data: data}
		cluster.applyEnv(envOverrides)
		cluster.applyOverrides(spec.Overrides[index])

		if err := cluster.Validate(); err != nil {
			return nil, err
		}

		glog.V(odfparams.LogLevel).Infof("Loaded configuration of cluster %d (%s)", index, cluster.ClusterName())

		clusters = append(clusters, cluster)
	}

	return clusters, nil
}

// Section returns the named top-level section, creating it when missing.
func (cluster *Cluster) Section(name string) map[string]interface{} {
	section, ok := cluster.Data[name].(map[string]interface{})
	if !ok {
		section = map[string]interface{}{}
		cluster.Data[name] = section
	}

	return section
}

// EnvData returns the ENV_DATA section.
func (cluster *Cluster) EnvData() map[string]interface{} {
	return cluster.Section(SectionEnvData)
}

// Run returns the RUN section.
func (cluster *Cluster) Run() map[string]interface{} {
	return cluster.Section(SectionRun)
}

// Deployment returns the DEPLOYMENT section.
func (cluster *Cluster) Deployment() map[string]interface{} {
	return cluster.Section(SectionDeployment)
}

// Multicluster returns the MULTICLUSTER section.
func (cluster *Cluster) Multicluster() map[string]interface{} {
	return cluster.Section(SectionMulticluster)
}

// ClusterName returns ENV_DATA.cluster_name.
func (cluster *Cluster) ClusterName() string {
	return stringValue(cluster.EnvData()["cluster_name"])
}

// ClusterPath returns ENV_DATA.cluster_path.
func (cluster *Cluster) ClusterPath() string {
	return stringValue(cluster.EnvData()["cluster_path"])
}

// ClusterNamespace returns ENV_DATA.cluster_namespace.
func (cluster *Cluster) ClusterNamespace() string {
	return stringValue(cluster.EnvData()["cluster_namespace"])
}

// ClusterType returns ENV_DATA.cluster_type, "provider" and "consumer" being meaningful for multicluster runs.
func (cluster *Cluster) ClusterType() string {
	return stringValue(cluster.EnvData()["cluster_type"])
}

// OCSVersion returns ENV_DATA.ocs_version.
func (cluster *Cluster) OCSVersion() string {
	return stringValue(cluster.EnvData()["ocs_version"])
}

// ACMVersion returns ENV_DATA.acm_version, the version of ACM running on a hub.
func (cluster *Cluster) ACMVersion() string {
	return stringValue(cluster.EnvData()["acm_version"])
}

// KubeconfigPath returns RUN.kubeconfig when set, RUN.kubeconfig_location under the cluster path otherwise.
func (cluster *Cluster) KubeconfigPath() string {
	if kubeconfig := stringValue(cluster.Run()["kubeconfig"]); kubeconfig != "" {
		return kubeconfig
	}

	location := stringValue(cluster.Run()["kubeconfig_location"])
	if filepath.IsAbs(location) {
		return location
	}

	return filepath.Join(cluster.ClusterPath(), location)
}

// RunID returns RUN.run_id.
func (cluster *Cluster) RunID() string {
	return stringValue(cluster.Run()["run_id"])
}

// LogDir returns RUN.log_dir.
func (cluster *Cluster) LogDir() string {
	return stringValue(cluster.Run()["log_dir"])
}

// MulticlusterIndex returns MULTICLUSTER.multicluster_index, the position of the cluster in the run.
func (cluster *Cluster) MulticlusterIndex() int {
	return intValue(cluster.Multicluster()["multicluster_index"])
}

// IsPrimary returns MULTICLUSTER.primary_cluster.
func (cluster *Cluster) IsPrimary() bool {
	return boolValue(cluster.Multicluster()["primary_cluster"])
}

// IsACM returns MULTICLUSTER.acm_cluster.
func (cluster *Cluster) IsACM() bool {
	return boolValue(cluster.Multicluster()["acm_cluster"])
}

// IsActiveACM returns MULTICLUSTER.active_acm_cluster.
func (cluster *Cluster) IsActiveACM() bool {
	return boolValue(cluster.Multicluster()["active_acm_cluster"])
}

// Validate checks the values every cluster needs.
func (cluster *Cluster) Validate() error {
	name := cluster.ClusterName()
	if name == "" {
		return &ConfigError{ClusterIndex: cluster.Index, Field: "ENV_DATA.cluster_name", Reason: "missing"}
	}

	if len(name) < odfparams.MinClusterNameLength || len(name) > odfparams.MaxClusterNameLength {
		return &ConfigError{
			ClusterIndex: cluster.Index,
			Field:        "ENV_DATA.cluster_name",
			Reason: fmt.Sprintf("%q must be between %d and %d characters", name,
				odfparams.MinClusterNameLength, odfparams.MaxClusterNameLength),
		}
	}

	if cluster.ClusterPath() == "" && stringValue(cluster.Run()["kubeconfig"]) == "" {
		return &ConfigError{ClusterIndex: cluster.Index, Field: "ENV_DATA.cluster_path", Reason: "missing"}
	}

	return nil
}

// Dump writes the merged configuration to run-<run_id>-cl<index>-config.yaml under RUN.log_dir and returns the
// path of the file.
func (cluster *Cluster) Dump() (string, error) {
	logDir := cluster.LogDir()
	if logDir == "" {
		return "", &ConfigError{ClusterIndex: cluster.Index, Field: "RUN.log_dir", Reason: "missing"}
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log dir %s: %w", logDir, err)
	}

	content, err := yaml.Marshal(cluster.Data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal configuration of cluster %d: %w", cluster.Index, err)
	}

	dumpPath := filepath.Join(logDir, fmt.Sprintf("run-%s-cl%d-config.yaml", cluster.RunID(), cluster.Index))

	if err := os.WriteFile(dumpPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dumpPath, err)
	}

	glog.V(odfparams.LogLevel).Infof("Dumped configuration of cluster %d to %s", cluster.Index, dumpPath)

	return dumpPath, nil
}

// DumpAll dumps the configuration of every cluster and returns the written paths. It stops at the first failure.
func DumpAll(clusters []*Cluster) ([]string, error) {
	paths := make([]string, 0, len(clusters))

	for _, cluster := range clusters {
		dumpPath, err := cluster.Dump()
		if err != nil {
			return paths, err
		}

		paths = append(paths, dumpPath)
	}

	return paths, nil
}

func (cluster *Cluster) applyEnv(envOverrides EnvOverrides) {
	if envOverrides.LogDir != "" {
		cluster.Run()["log_dir"] = envOverrides.LogDir
	}

	if envOverrides.RunID != "" {
		cluster.Run()["run_id"] = envOverrides.RunID
	}
}

func (cluster *Cluster) applyOverrides(overrides Overrides) {
	setIfNotEmpty := func(section map[string]interface{}, key, value string) {
		if value != "" {
			section[key] = value
		}
	}

	setIfNotEmpty(cluster.EnvData(), "cluster_path", overrides.ClusterPath)
	setIfNotEmpty(cluster.EnvData(), "cluster_name", overrides.ClusterName)
	setIfNotEmpty(cluster.EnvData(), "ocs_version", overrides.OCSVersion)
	setIfNotEmpty(cluster.EnvData(), "ocp_version", overrides.OCPVersion)
	setIfNotEmpty(cluster.Run(), "kubeconfig", overrides.Kubeconfig)
	setIfNotEmpty(cluster.Section(SectionUpgrade), "upgrade_ocs_version", overrides.UpgradeOCSVersion)
	setIfNotEmpty(cluster.Section(SectionUpgrade), "upgrade_ocp_version", overrides.UpgradeOCPVersion)

	if overrides.Deploy {
		cluster.Deployment()["deploy"] = true
	}

	if overrides.Teardown {
		cluster.Deployment()["teardown"] = true
	}
}

func stringValue(value interface{}) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func intValue(value interface{}) int {
	switch typed := value.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case string:
		parsed, err := strconv.Atoi(typed)
		if err != nil {
			return 0
		}

		return parsed
	default:
		return 0
	}
}

func boolValue(value interface{}) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(typed, "true")
	default:
		return false
	}
}
