package odfctl

import (
	"fmt"

	"github.com/red-hat-storage/odf-gotests/internal/dr"
	"github.com/red-hat-storage/odf-gotests/internal/hubrecovery"
	"github.com/red-hat-storage/odf-gotests/internal/nodepower"
	"github.com/spf13/cobra"
)

func newFailoverCommand(state *session) *cobra.Command {
	var (
		flags      workloadFlags
		target     string
		oldPrimary string
	)

	command := &cobra.Command{
		Use:   "failover",
		Short: "Fail a DR workload over to another managed cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workload, err := flags.workload()
			if err != nil {
				return err
			}

			orchestrator := dr.NewOrchestrator(state.registry)

			if oldPrimary == "" {
				if oldPrimary, err = orchestrator.CurrentPrimary(cmd.Context(), workload); err != nil {
					return err
				}
			}

			return orchestrator.Failover(cmd.Context(), target, workload, oldPrimary)
		},
	}

	flags.bind(command.Flags())
	command.Flags().StringVar(&target, "target", "", "cluster to fail over to")
	command.Flags().StringVar(&oldPrimary, "old-primary", "", "cluster running the workload, read from the hub when empty")
	_ = command.MarkFlagRequired("target")

	return command
}

func newRelocateCommand(state *session) *cobra.Command {
	var (
		flags      workloadFlags
		target     string
		oldPrimary string
	)

	command := &cobra.Command{
		Use:   "relocate",
		Short: "Relocate a DR workload back to its preferred cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workload, err := flags.workload()
			if err != nil {
				return err
			}

			orchestrator := dr.NewOrchestrator(state.registry)

			if oldPrimary == "" {
				if oldPrimary, err = orchestrator.CurrentPrimary(cmd.Context(), workload); err != nil {
					return err
				}
			}

			return orchestrator.Relocate(cmd.Context(), target, workload, oldPrimary)
		},
	}

	flags.bind(command.Flags())
	command.Flags().StringVar(&target, "target", "", "preferred cluster to relocate to")
	command.Flags().StringVar(&oldPrimary, "old-primary", "", "cluster running the workload, read from the hub when empty")
	_ = command.MarkFlagRequired("target")

	return command
}

func newHubRecoveryCommand(state *session) *cobra.Command {
	var (
		workloads     []string
		plan          hubrecovery.Plan
		configureOnly bool
	)

	command := &cobra.Command{
		Use:   "hub-recovery",
		Short: "Take the active hub down and recover the DR workloads through the passive hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recovery, err := buildRecovery(state)
			if err != nil {
				return err
			}

			if configureOnly {
				return recovery.ConfigureRDRHubRecovery(cmd.Context())
			}

			if plan.FailoverCluster == "" {
				return fmt.Errorf("--failover-cluster is required")
			}

			if plan.RelocateBack && plan.PreferredCluster == "" {
				return fmt.Errorf("--preferred-cluster is required with --relocate-back")
			}

			for _, value := range workloads {
				workload, err := ParseWorkload(value)
				if err != nil {
					return err
				}

				plan.Workloads = append(plan.Workloads, workload)
			}

			return recovery.Run(cmd.Context(), plan)
		},
	}

	command.Flags().StringArrayVar(&workloads, "workload", nil,
		"workload to fail over as key=value pairs (namespace, type, placement, drpc, vrg, interface, pvcs, pods)")
	command.Flags().StringArrayVar(&plan.DownClusters, "down-cluster", nil, "cluster powered off, may be repeated")
	command.Flags().StringVar(&plan.FailoverCluster, "failover-cluster", "", "surviving managed cluster")
	command.Flags().BoolVar(&plan.RelocateBack, "relocate-back", false, "relocate the workloads once recovered")
	command.Flags().StringVar(&plan.PreferredCluster, "preferred-cluster", "", "cluster to relocate back to")
	command.Flags().BoolVar(&configureOnly, "configure-only", false,
		"only schedule the backup and the passive restore")

	return command
}

// buildRecovery wires a power controller for every cluster with BMC credentials.
func buildRecovery(state *session) (*hubrecovery.Recovery, error) {
	power := map[string]hubrecovery.PowerController{}

	for _, cluster := range state.registry.Clusters() {
		credentials, err := nodepower.CredentialsFromEnvData(cluster.EnvData)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cluster, err)
		}

		if len(credentials) > 0 {
			power[cluster.ClusterName] = nodepower.New(cluster.ClusterName, credentials)
		}
	}

	acmVersion := ""
	if passive := state.registry.Cluster(state.registry.PassiveACMIndex()); passive != nil {
		if value, ok := passive.EnvData["acm_version"].(string); ok {
			acmVersion = value
		}
	}

	return hubrecovery.New(state.registry, dr.NewOrchestrator(state.registry), power, acmVersion), nil
}
