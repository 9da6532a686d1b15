package submariner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/ocpcli"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
)

const (
	// BrokerInfoFile is written by deploy-broker in the working directory of subctl.
	BrokerInfoFile = "broker-info.subm"
	// StatusConnected is the status of a healthy gateway connection.
	StatusConnected = "connected"
)

var connectionStates = map[string]bool{"connected": true, "connecting": true, "error": true}

// JoinOptions tune the join of a cluster to the broker.
type JoinOptions struct {
	CableDriver  string
	NATTraversal bool
	GlobalNet    bool
}

// Connection is one row of "subctl show connections".
type Connection struct {
	Gateway string
	Cluster string
	Status  string
}

// Subctl runs subctl commands. The kubeconfig is given to every call.
type Subctl struct {
	cli      *ocpcli.CLI
	Interval time.Duration
}

// New returns a Subctl running commands through runner.
func New(runner ocpcli.Runner) *Subctl {
	return &Subctl{
		cli:      ocpcli.New(runner, "").WithBinary(ocpcli.SubctlBinary),
		Interval: odfparams.DefaultPollInterval,
	}
}

// DeployBroker deploys the submariner broker on the cluster of kubeconfig and returns the broker info file.
func (subctl *Subctl) DeployBroker(ctx context.Context, kubeconfig string, globalNet bool) (string, error) {
	args := []string{"deploy-broker", "--kubeconfig", kubeconfig}
	if globalNet {
		args = append(args, "--globalnet")
	}

	if err := subctl.cli.Run(ctx, args...).Err(); err != nil {
		return "", fmt.Errorf("failed to deploy submariner broker: %w", err)
	}

	return BrokerInfoFile, nil
}

// Join joins the cluster of kubeconfig to the broker as clusterID.
func (subctl *Subctl) Join(
	ctx context.Context, kubeconfig, brokerInfo, clusterID string, options JoinOptions) error {
	args := []string{"join", brokerInfo, "--kubeconfig", kubeconfig, "--clusterid", clusterID}

	if options.CableDriver != "" {
		args = append(args, "--cable-driver", options.CableDriver)
	}

	args = append(args, fmt.Sprintf("--natt=%t", options.NATTraversal))

	glog.V(odfparams.LogLevel).Infof("Joining cluster %s to submariner broker %s", clusterID, brokerInfo)

	if err := subctl.cli.Run(ctx, args...).Err(); err != nil {
		return fmt.Errorf("failed to join cluster %s: %w", clusterID, err)
	}

	return nil
}

// ShowConnections returns the gateway connections seen from the cluster of kubeconfig.
func (subctl *Subctl) ShowConnections(ctx context.Context, kubeconfig string) ([]Connection, error) {
	output, err := subctl.cli.Output(ctx, "show", "connections", "--kubeconfig", kubeconfig)
	if err != nil {
		return nil, err
	}

	return ParseConnections(output), nil
}

// WaitForConnections waits until the cluster of kubeconfig is connected to every cluster of peers.
func (subctl *Subctl) WaitForConnections(
	ctx context.Context, kubeconfig string, peers []string, timeout time.Duration) error {
	return polling.PollUntil(ctx, timeout, subctl.Interval,
		func(ctx context.Context) (bool, error) {
			connections, err := subctl.ShowConnections(ctx, kubeconfig)
			if err != nil {
				return false, err
			}

			connected := map[string]bool{}
			for _, connection := range connections {
				if connection.Status == StatusConnected {
					connected[connection.Cluster] = true
				}
			}

			for _, peer := range peers {
				if !connected[peer] {
					glog.V(odfparams.LogLevel).Infof("Submariner connection to %s is not up yet", peer)

					return false, nil
				}
			}

			return true, nil
		},
		polling.WithName(fmt.Sprintf("submariner connections to %v", peers)),
		polling.WithRetryOn(ocpcli.IsConnectionFailure))
}

// Verify runs the connectivity verification between two clusters.
func (subctl *Subctl) Verify(ctx context.Context, kubeconfig, toKubeconfig string) error {
	return subctl.cli.Run(ctx, "verify", "--kubeconfig", kubeconfig, "--toconfig", toKubeconfig,
		"--only", "connectivity", "--verbose").Err()
}

// Diagnose runs every submariner diagnostic on the cluster of kubeconfig.
func (subctl *Subctl) Diagnose(ctx context.Context, kubeconfig string) error {
	return subctl.cli.Run(ctx, "diagnose", "all", "--kubeconfig", kubeconfig).Err()
}

// ConnectClusters deploys the broker on the active hub, joins every managed cluster of registry and waits for the
// mesh to be connected.
func (subctl *Subctl) ConnectClusters(
	ctx context.Context, registry *multicluster.Registry, options JoinOptions, timeout time.Duration) error {
	hub := registry.Cluster(registry.ActiveACMIndex())
	if hub == nil {
		return fmt.Errorf("no active ACM hub: %w", multicluster.ErrClusterNotFound)
	}

	brokerInfo, err := subctl.DeployBroker(ctx, hub.KubeconfigPath, options.GlobalNet)
	if err != nil {
		return fmt.Errorf("%s: %w", hub, err)
	}

	managed := registry.NonACMClusters()
	names := make([]string, 0, len(managed))

	for _, cluster := range managed {
		if err := subctl.Join(ctx, cluster.KubeconfigPath, brokerInfo, cluster.ClusterName, options); err != nil {
			return fmt.Errorf("%s: %w", cluster, err)
		}

		names = append(names, cluster.ClusterName)
	}

	for _, cluster := range managed {
		var peers []string

		for _, name := range names {
			if name != cluster.ClusterName {
				peers = append(peers, name)
			}
		}

		if err := subctl.WaitForConnections(ctx, cluster.KubeconfigPath, peers, timeout); err != nil {
			return fmt.Errorf("%s: %w", cluster, err)
		}
	}

	return nil
}

// ParseConnections reads the table printed by "subctl show connections".
func ParseConnections(output string) []Connection {
	var (
		connections []Connection
		inTable     bool
	)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "GATEWAY" {
			inTable = true

			continue
		}

		if !inTable || len(fields) < 3 {
			continue
		}

		connection := Connection{Gateway: fields[0], Cluster: fields[1]}

		for _, field := range fields[2:] {
			if connectionStates[field] {
				connection.Status = field

				break
			}
		}

		connections = append(connections, connection)
	}

	return connections
}
