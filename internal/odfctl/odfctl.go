package odfctl

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/ocpcli"
	"github.com/spf13/cobra"
)

// session holds the registry built from the global flags before a subcommand runs.
type session struct {
	configs  []*odfconfig.Cluster
	registry *multicluster.Registry
	runner   ocpcli.Runner
}

func (state *session) load(options *Options) error {
	spec, err := options.LoadSpec()
	if err != nil {
		return err
	}

	state.configs, err = odfconfig.Load(spec)
	if err != nil {
		return err
	}

	if _, err := odfconfig.DumpAll(state.configs); err != nil {
		return err
	}

	state.registry, err = multicluster.FromConfig(state.configs, options.DefaultIndex,
		multicluster.WithKubeconfigExport(true))
	if err != nil {
		return err
	}

	glog.V(odfparams.LogLevel).Infof("Loaded %d clusters, default %s", state.registry.Len(), state.registry.Current())

	return nil
}

// NewCommand returns the odfdr root command. Reports are written to out.
func NewCommand(out io.Writer) *cobra.Command {
	return newRootCommand(out, ocpcli.ExecRunner{})
}

// newRootCommand runs the external clients of the subcommands through runner.
func newRootCommand(out io.Writer, runner ocpcli.Runner) *cobra.Command {
	options := &Options{}
	state := &session{runner: runner}

	root := &cobra.Command{
		Use:          "odfdr",
		Short:        "odfdr drives ODF Regional DR scenarios across the clusters of a run",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return state.load(options)
		},
	}

	options.BindFlags(root.PersistentFlags())
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newShowCommand(state, out),
		newFailoverCommand(state),
		newRelocateCommand(state),
		newHubRecoveryCommand(state),
		newSubmarinerCommand(state),
	)

	return root
}

func newShowCommand(state *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the clusters of the run and their roles",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return printRegistry(out, state.registry)
		},
	}
}

func printRegistry(out io.Writer, registry *multicluster.Registry) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "INDEX\tNAME\tROLES\tKUBECONFIG\tCURRENT")

	for _, cluster := range registry.Clusters() {
		current := ""
		if cluster.Index == registry.CurrentIndex() {
			current = "*"
		}

		fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
			cluster.Index, cluster.ClusterName, roles(cluster), cluster.KubeconfigPath, current)
	}

	return writer.Flush()
}

func roles(cluster *multicluster.ClusterConfig) string {
	var names []string

	for _, role := range []struct {
		set  bool
		name string
	}{
		{cluster.Primary, "primary"},
		{cluster.ActiveACM, "active-hub"},
		{cluster.ACM && !cluster.ActiveACM, "passive-hub"},
		{cluster.Provider, "provider"},
		{cluster.Consumer, "consumer"},
	} {
		if role.set {
			names = append(names, role.name)
		}
	}

	if len(names) == 0 {
		return "-"
	}

	return strings.Join(names, ",")
}
