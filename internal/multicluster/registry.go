package multicluster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrIndexOutOfRange is returned when a cluster index does not exist in the registry.
	ErrIndexOutOfRange = errors.New("cluster index out of range")
	// ErrClusterNotFound is returned when no cluster matches a name or a role.
	ErrClusterNotFound = errors.New("cluster not found")
)

// Option configures a Registry.
type Option func(*Registry)

// WithKubeconfigExport exports KUBECONFIG of the current cluster on every switch, for out-of-process tools.
func WithKubeconfigExport(export bool) Option {
	return func(registry *Registry) {
		registry.exportKubeconfig = export
	}
}

// Registry holds the clusters of a run and the index of the current one.
//
// Switching the current cluster is meant for sequential test code. Code running on several clusters in
// parallel takes the ClusterConfig explicitly, see ForEachCluster.
type Registry struct {
	mutex            sync.RWMutex
	clusters         []*ClusterConfig
	current          int
	defaultIndex     int
	exportKubeconfig bool
}

// New returns a registry of clusters whose current cluster is defaultIndex.
func New(clusters []*ClusterConfig, defaultIndex int, options ...Option) (*Registry, error) {
	if len(clusters) == 0 {
		return nil, fmt.Errorf("registry needs at least one cluster")
	}

	if defaultIndex < 0 || defaultIndex >= len(clusters) {
		return nil, fmt.Errorf("default cluster index %d: %w", defaultIndex, ErrIndexOutOfRange)
	}

	primaries, activeHubs := 0, 0
	names := map[string]int{}

	for index, cluster := range clusters {
		if cluster == nil {
			return nil, fmt.Errorf("cluster %d is nil", index)
		}

		cluster.Index = index

		if cluster.Primary {
			primaries++
		}

		if cluster.ActiveACM {
			if !cluster.ACM {
				return nil, fmt.Errorf("%s is the active hub but is not an ACM cluster", cluster)
			}

			activeHubs++
		}

		if cluster.ClusterName != "" {
			if other, found := names[cluster.ClusterName]; found {
				return nil, fmt.Errorf("clusters %d and %d are both named %s", other, index, cluster.ClusterName)
			}

			names[cluster.ClusterName] = index
		}
	}

	if primaries > 1 {
		return nil, fmt.Errorf("%d clusters are marked primary, at most one is allowed", primaries)
	}

	if activeHubs > 1 {
		return nil, fmt.Errorf("%d clusters are marked as active hub, at most one is allowed", activeHubs)
	}

	registry := &Registry{
		clusters:     clusters,
		current:      defaultIndex,
		defaultIndex: defaultIndex,
	}

	for _, option := range options {
		option(registry)
	}

	registry.export(clusters[defaultIndex])

	return registry, nil
}

// FromConfig builds a registry from merged cluster configurations.
func FromConfig(configs []*odfconfig.Cluster, defaultIndex int, options ...Option) (*Registry, error) {
	clusters := make([]*ClusterConfig, 0, len(configs))

	for _, config := range configs {
		clusters = append(clusters, NewClusterConfig(config))
	}

	return New(clusters, defaultIndex, options...)
}

// SwitchCtx makes cluster index the current one. Switching to the current cluster is a no-op.
func (registry *Registry) SwitchCtx(index int) error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	return registry.switchLocked(index)
}

func (registry *Registry) switchLocked(index int) error {
	if index < 0 || index >= len(registry.clusters) {
		return fmt.Errorf("cannot switch to cluster %d of %d: %w", index, len(registry.clusters), ErrIndexOutOfRange)
	}

	if index == registry.current {
		return nil
	}

	glog.V(odfparams.LogLevel).Infof("Switching context from %s to %s",
		registry.clusters[registry.current], registry.clusters[index])

	registry.current = index
	registry.export(registry.clusters[index])

	return nil
}

// SwitchToClusterByName makes the cluster named name the current one.
func (registry *Registry) SwitchToClusterByName(name string) error {
	index, err := registry.IndexByName(name)
	if err != nil {
		return err
	}

	return registry.SwitchCtx(index)
}

// SwitchACMCtx makes the active hub the current cluster.
func (registry *Registry) SwitchACMCtx() error {
	index := registry.ActiveACMIndex()
	if index < 0 {
		return fmt.Errorf("no active ACM hub: %w", ErrClusterNotFound)
	}

	return registry.SwitchCtx(index)
}

// SwitchDefaultClusterCtx makes the default cluster the current one.
func (registry *Registry) SwitchDefaultClusterCtx() error {
	return registry.SwitchCtx(registry.DefaultIndex())
}

// ResetCtx restores the default cluster. It never restores a previously saved index, use RunOn for scoped
// switches.
func (registry *Registry) ResetCtx() {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	_ = registry.switchLocked(registry.defaultIndex)
}

// RunOn runs fn with cluster index as the current cluster and restores the previous current cluster afterwards,
// also when fn fails or panics.
func (registry *Registry) RunOn(index int, fn func(*ClusterConfig) error) error {
	previous := registry.CurrentIndex()

	if err := registry.SwitchCtx(index); err != nil {
		return err
	}

	defer func() {
		if err := registry.SwitchCtx(previous); err != nil {
			glog.V(odfparams.LogLevel).Infof("Failed to restore cluster %d: %v", previous, err)
		}
	}()

	return fn(registry.Cluster(index))
}

// RunOnACM is RunOn for the active hub.
func (registry *Registry) RunOnACM(fn func(*ClusterConfig) error) error {
	index := registry.ActiveACMIndex()
	if index < 0 {
		return fmt.Errorf("no active ACM hub: %w", ErrClusterNotFound)
	}

	return registry.RunOn(index, fn)
}

// RunOnName is RunOn for the cluster named name.
func (registry *Registry) RunOnName(name string, fn func(*ClusterConfig) error) error {
	index, err := registry.IndexByName(name)
	if err != nil {
		return err
	}

	return registry.RunOn(index, fn)
}

// Current returns the current cluster.
func (registry *Registry) Current() *ClusterConfig {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return registry.clusters[registry.current]
}

// CurrentIndex returns the index of the current cluster.
func (registry *Registry) CurrentIndex() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return registry.current
}

// DefaultIndex returns the index ResetCtx restores.
func (registry *Registry) DefaultIndex() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return registry.defaultIndex
}

// Cluster returns cluster index, nil when it does not exist.
func (registry *Registry) Cluster(index int) *ClusterConfig {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	if index < 0 || index >= len(registry.clusters) {
		return nil
	}

	return registry.clusters[index]
}

// Clusters returns all clusters in index order.
func (registry *Registry) Clusters() []*ClusterConfig {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return append([]*ClusterConfig(nil), registry.clusters...)
}

// Len returns the number of clusters.
func (registry *Registry) Len() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return len(registry.clusters)
}

// PrimaryClusterIndex returns the index of the primary cluster, -1 when there is none.
func (registry *Registry) PrimaryClusterIndex() int {
	return registry.firstIndex(func(cluster *ClusterConfig) bool { return cluster.Primary })
}

// ACMIndexes returns the indexes of the hub clusters.
func (registry *Registry) ACMIndexes() []int {
	return registry.indexes(func(cluster *ClusterConfig) bool { return cluster.ACM })
}

// ActiveACMIndex returns the index of the active hub, -1 when there is none.
func (registry *Registry) ActiveACMIndex() int {
	return registry.firstIndex(func(cluster *ClusterConfig) bool { return cluster.ACM && cluster.ActiveACM })
}

// PassiveACMIndex returns the index of the first hub which is not active, -1 when there is none.
func (registry *Registry) PassiveACMIndex() int {
	return registry.firstIndex(func(cluster *ClusterConfig) bool { return cluster.ACM && !cluster.ActiveACM })
}

// ConsumerIndexes returns the indexes of the consumer clusters.
func (registry *Registry) ConsumerIndexes() []int {
	return registry.indexes(func(cluster *ClusterConfig) bool { return cluster.Consumer })
}

// ProviderIndexes returns the indexes of the provider clusters.
func (registry *Registry) ProviderIndexes() []int {
	return registry.indexes(func(cluster *ClusterConfig) bool { return cluster.Provider })
}

// NonACMClusters returns the managed clusters.
func (registry *Registry) NonACMClusters() []*ClusterConfig {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	var managed []*ClusterConfig

	for _, cluster := range registry.clusters {
		if !cluster.ACM {
			managed = append(managed, cluster)
		}
	}

	return managed
}

// IndexByName returns the index of the cluster named name.
func (registry *Registry) IndexByName(name string) (int, error) {
	index := registry.firstIndex(func(cluster *ClusterConfig) bool { return cluster.ClusterName == name })
	if index < 0 {
		return -1, fmt.Errorf("cluster %q: %w", name, ErrClusterNotFound)
	}

	return index, nil
}

// SetPrimary makes cluster index the only primary cluster.
func (registry *Registry) SetPrimary(index int) error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if index < 0 || index >= len(registry.clusters) {
		return fmt.Errorf("cannot set primary cluster %d: %w", index, ErrIndexOutOfRange)
	}

	if registry.clusters[index].ACM {
		return fmt.Errorf("hub %s cannot be the primary cluster", registry.clusters[index])
	}

	for _, cluster := range registry.clusters {
		cluster.Primary = cluster.Index == index
	}

	glog.V(odfparams.LogLevel).Infof("%s is now the primary cluster", registry.clusters[index])

	return nil
}

// SetActiveACM makes hub index the only active hub.
func (registry *Registry) SetActiveACM(index int) error {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if index < 0 || index >= len(registry.clusters) {
		return fmt.Errorf("cannot set active hub %d: %w", index, ErrIndexOutOfRange)
	}

	if !registry.clusters[index].ACM {
		return fmt.Errorf("%s is not an ACM cluster: %w", registry.clusters[index], ErrClusterNotFound)
	}

	for _, cluster := range registry.clusters {
		cluster.ActiveACM = cluster.ACM && cluster.Index == index
	}

	glog.V(odfparams.LogLevel).Infof("%s is now the active hub", registry.clusters[index])

	return nil
}

// ForEachCluster runs fn on every cluster of indexes in parallel and returns the first error. The current
// cluster is never read nor changed, each call gets its cluster explicitly.
func (registry *Registry) ForEachCluster(
	ctx context.Context, indexes []int, fn func(context.Context, *ClusterConfig) error) error {
	targets := make([]*ClusterConfig, 0, len(indexes))

	for _, index := range indexes {
		cluster := registry.Cluster(index)
		if cluster == nil {
			return fmt.Errorf("cluster %d: %w", index, ErrIndexOutOfRange)
		}

		targets = append(targets, cluster)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for _, cluster := range targets {
		group.Go(func() error {
			if err := fn(groupCtx, cluster); err != nil {
				return fmt.Errorf("%s: %w", cluster, err)
			}

			return nil
		})
	}

	return group.Wait()
}

// CheckKubeconfig reports whether kubeconfig exists, a client can be built from it and the cluster answers.
func CheckKubeconfig(kubeconfig string) bool {
	if _, err := os.Stat(kubeconfig); err != nil {
		glog.V(odfparams.LogLevel).Infof("Kubeconfig %s does not exist: %v", kubeconfig, err)

		return false
	}

	apiClient, err := clients.Load(kubeconfig)
	if err != nil {
		glog.V(odfparams.LogLevel).Infof("Cannot build a client from %s: %v", kubeconfig, err)

		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), odfparams.ProbeTimeout)
	defer cancel()

	return clients.ProbeContext(ctx, apiClient)
}

// WaitForReachable waits until the cluster answers or timeout expires.
func WaitForReachable(ctx context.Context, cluster *ClusterConfig, timeout time.Duration) bool {
	apiClient, err := cluster.APIClient()
	if err != nil {
		return false
	}

	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		if clients.ProbeContext(deadline, apiClient) {
			return true
		}

		select {
		case <-deadline.Done():
			return false
		case <-time.After(odfparams.DefaultPollInterval):
		}
	}
}

func (registry *Registry) export(cluster *ClusterConfig) {
	if !registry.exportKubeconfig || cluster.KubeconfigPath == "" {
		return
	}

	if err := os.Setenv(odfparams.KubeconfigEnvKey, cluster.KubeconfigPath); err != nil {
		glog.V(odfparams.LogLevel).Infof("Failed to export %s for %s: %v", odfparams.KubeconfigEnvKey, cluster, err)
	}
}

func (registry *Registry) firstIndex(match func(*ClusterConfig) bool) int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	for _, cluster := range registry.clusters {
		if match(cluster) {
			return cluster.Index
		}
	}

	return -1
}

func (registry *Registry) indexes(match func(*ClusterConfig) bool) []int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	var matching []int

	for _, cluster := range registry.clusters {
		if match(cluster) {
			matching = append(matching, cluster.Index)
		}
	}

	return matching
}
