package odfctl

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/internal/submariner"
	"github.com/spf13/cobra"
)

func newSubmarinerCommand(state *session) *cobra.Command {
	command := &cobra.Command{
		Use:   "submariner",
		Short: "Manage the submariner connectivity between the managed clusters",
	}

	command.AddCommand(newSubmarinerConnectCommand(state))

	return command
}

func newSubmarinerConnectCommand(state *session) *cobra.Command {
	var (
		options  submariner.JoinOptions
		timeout  time.Duration
		verify   bool
		diagnose bool
	)

	command := &cobra.Command{
		Use:   "connect",
		Short: "Deploy the broker on the active hub and join every managed cluster to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subctl := submariner.New(state.runner)

			if err := subctl.ConnectClusters(cmd.Context(), state.registry, options, timeout); err != nil {
				return err
			}

			managed := state.registry.NonACMClusters()

			if diagnose {
				for _, cluster := range managed {
					glog.V(odfparams.LogLevel).Infof("Running submariner diagnostics on %s", cluster)

					if err := subctl.Diagnose(cmd.Context(), cluster.KubeconfigPath); err != nil {
						return fmt.Errorf("%s: %w", cluster, err)
					}
				}
			}

			if verify && len(managed) > 1 {
				for _, peer := range managed[1:] {
					glog.V(odfparams.LogLevel).Infof("Verifying submariner connectivity from %s to %s", managed[0], peer)

					if err := subctl.Verify(cmd.Context(), managed[0].KubeconfigPath, peer.KubeconfigPath); err != nil {
						return fmt.Errorf("connectivity from %s to %s: %w", managed[0], peer, err)
					}
				}
			}

			return nil
		},
	}

	command.Flags().StringVar(&options.CableDriver, "cable-driver", "", "gateway cable driver, subctl default when empty")
	command.Flags().BoolVar(&options.NATTraversal, "natt", false, "enable NAT traversal between the gateways")
	command.Flags().BoolVar(&options.GlobalNet, "globalnet", false, "deploy the broker with globalnet")
	command.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "time allowed for the gateways to connect")
	command.Flags().BoolVar(&verify, "verify", false, "run the connectivity verification between the managed clusters")
	command.Flags().BoolVar(&diagnose, "diagnose", false, "run every submariner diagnostic on the managed clusters")

	return command
}
