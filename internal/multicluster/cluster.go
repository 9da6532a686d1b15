package multicluster

import (
	"fmt"
	"os"
	"sync"

	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
)

// ClusterConfig is the configuration of one cluster of the run.
type ClusterConfig struct {
	// Index is the position of the cluster in the registry. It is assigned by the registry.
	Index             int
	KubeconfigPath    string
	ClusterName       string
	ClusterNamespace  string
	Primary           bool
	ACM               bool
	ActiveACM         bool
	Provider          bool
	Consumer          bool
	MulticlusterIndex int
	EnvData           map[string]interface{}
	RunData           map[string]interface{}
	Deployment        map[string]interface{}

	mutex     sync.Mutex
	apiClient *clients.Settings
}

// NewClusterConfig converts a merged configuration into a ClusterConfig.
func NewClusterConfig(config *odfconfig.Cluster) *ClusterConfig {
	return &ClusterConfig{
		KubeconfigPath:    config.KubeconfigPath(),
		ClusterName:       config.ClusterName(),
		ClusterNamespace:  config.ClusterNamespace(),
		Primary:           config.IsPrimary(),
		ACM:               config.IsACM(),
		ActiveACM:         config.IsActiveACM(),
		Provider:          config.ClusterType() == "provider",
		Consumer:          config.ClusterType() == "consumer",
		MulticlusterIndex: config.MulticlusterIndex(),
		EnvData:           config.EnvData(),
		RunData:           config.Run(),
		Deployment:        config.Deployment(),
	}
}

// String returns the index and the name of the cluster, used in every log and error message.
func (cluster *ClusterConfig) String() string {
	return fmt.Sprintf("cluster %d (%s)", cluster.Index, cluster.ClusterName)
}

// Validate fails unless the kubeconfig of the cluster exists and is readable.
func (cluster *ClusterConfig) Validate() error {
	if cluster.KubeconfigPath == "" {
		return fmt.Errorf("%s has no kubeconfig path", cluster)
	}

	kubeconfig, err := os.Open(cluster.KubeconfigPath)
	if err != nil {
		return fmt.Errorf("kubeconfig of %s is not readable: %w", cluster, err)
	}

	return kubeconfig.Close()
}

// APIClient returns the client of the cluster, building it from the kubeconfig on first use.
func (cluster *ClusterConfig) APIClient() (*clients.Settings, error) {
	cluster.mutex.Lock()
	defer cluster.mutex.Unlock()

	if cluster.apiClient != nil {
		return cluster.apiClient, nil
	}

	if err := cluster.Validate(); err != nil {
		return nil, err
	}

	apiClient, err := clients.Load(cluster.KubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build client of %s: %w", cluster, err)
	}

	cluster.apiClient = apiClient

	return apiClient, nil
}

// SetAPIClient injects a pre-built client.
func (cluster *ClusterConfig) SetAPIClient(apiClient *clients.Settings) {
	cluster.mutex.Lock()
	defer cluster.mutex.Unlock()

	cluster.apiClient = apiClient
}
