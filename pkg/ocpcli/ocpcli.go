package ocpcli

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/tidwall/gjson"
)

const (
	// OCBinary is the default OpenShift client binary.
	OCBinary = "oc"
	// SubctlBinary is the default submariner client binary.
	SubctlBinary = "subctl"
)

// CLI runs oc commands against one cluster. Every call carries its own --kubeconfig so that the command never
// depends on ambient state of the process.
type CLI struct {
	runner     Runner
	binary     string
	kubeconfig string
	namespace  string
}

// New returns a CLI for the cluster reachable with kubeconfig. An empty kubeconfig leaves the choice to oc.
func New(runner Runner, kubeconfig string) *CLI {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &CLI{runner: runner, binary: OCBinary, kubeconfig: kubeconfig}
}

// WithNamespace returns a copy of the CLI scoped to namespace.
func (cli *CLI) WithNamespace(namespace string) *CLI {
	scoped := *cli
	scoped.namespace = namespace

	return &scoped
}

// WithBinary returns a copy of the CLI running binary instead of oc.
func (cli *CLI) WithBinary(binary string) *CLI {
	scoped := *cli
	scoped.binary = binary

	return &scoped
}

// Kubeconfig returns the kubeconfig path passed to every command.
func (cli *CLI) Kubeconfig() string {
	return cli.kubeconfig
}

// Runner returns the underlying runner.
func (cli *CLI) Runner() Runner {
	return cli.runner
}

// Run runs the binary with args and returns the classified result.
func (cli *CLI) Run(ctx context.Context, args ...string) Result {
	return cli.runner.Run(ctx, cli.binary, cli.globalArgs(args)...)
}

// Output runs the command and returns its stdout, or the failure as error.
func (cli *CLI) Output(ctx context.Context, args ...string) (string, error) {
	result := cli.Run(ctx, args...)

	return result.Stdout, result.Err()
}

// GetJSON runs "get <kind> <name> -o json" and returns the parsed document.
func (cli *CLI) GetJSON(ctx context.Context, kind, name string) (gjson.Result, error) {
	args := []string{"get", kind}
	if name != "" {
		args = append(args, name)
	}

	output, err := cli.Output(ctx, append(args, "-o", "json")...)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.Valid(output) {
		return gjson.Result{}, fmt.Errorf("output of oc get %s %s is not valid json", kind, name)
	}

	return gjson.Parse(output), nil
}

// Patch applies a patch of patchType (merge, json, strategic) to the resource.
func (cli *CLI) Patch(ctx context.Context, kind, name, patchType, patch string) error {
	glog.V(100).Infof("Patching %s %s with %s", kind, name, patch)

	return cli.Run(ctx, "patch", kind, name, "--type", patchType, "-p", patch).Err()
}

// Delete deletes the resource. A missing resource is not an error.
func (cli *CLI) Delete(ctx context.Context, kind, name string) error {
	result := cli.Run(ctx, "delete", kind, name)
	if result.Status == StatusNotFound {
		glog.V(100).Infof("%s %s does not exist, nothing to delete", kind, name)

		return nil
	}

	return result.Err()
}

// Apply applies a manifest file.
func (cli *CLI) Apply(ctx context.Context, manifestPath string) error {
	return cli.Run(ctx, "apply", "-f", manifestPath).Err()
}

// ExecInPod runs command inside container of pod.
func (cli *CLI) ExecInPod(ctx context.Context, podName, container string, command ...string) (string, error) {
	args := []string{"exec", podName}
	if container != "" {
		args = append(args, "-c", container)
	}

	args = append(args, "--")

	return cli.Output(ctx, append(args, command...)...)
}

// DebugNode runs a shell command on the host filesystem of node through a debug pod.
func (cli *CLI) DebugNode(ctx context.Context, nodeName, command string) (string, error) {
	output, err := cli.Output(ctx, "debug", "node/"+nodeName, "--", "chroot", "/host", "bash", "-c", command)
	if err != nil {
		return "", fmt.Errorf("failed to run %q on node %s: %w", command, nodeName, err)
	}

	return strings.TrimSpace(output), nil
}

// ClusterInfo reports whether "cluster-info" succeeds.
func (cli *CLI) ClusterInfo(ctx context.Context) bool {
	return cli.Run(ctx, "cluster-info").Status == StatusSucceeded
}

func (cli *CLI) globalArgs(args []string) []string {
	var global []string

	if cli.kubeconfig != "" {
		global = append(global, "--kubeconfig", cli.kubeconfig)
	}

	if cli.namespace != "" {
		global = append(global, "-n", cli.namespace)
	}

	return append(global, args...)
}
