package nodepower

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	bmclib "github.com/bmc-toolbox/bmclib/v2"
	"github.com/golang/glog"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/red-hat-storage/odf-gotests/pkg/polling"
	"golang.org/x/sync/errgroup"
)

// Power states accepted by SetPowerState.
const (
	StateOn    = "on"
	StateOff   = "off"
	StateCycle = "cycle"
)

var (
	onState  = regexp.MustCompile(`(?i)chassis power is on|^on$`)
	offState = regexp.MustCompile(`(?i)chassis power is off|^off$`)
)

// BMC is the part of a bmclib client used to drive the power of one node.
type BMC interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	GetPowerState(ctx context.Context) (string, error)
	SetPowerState(ctx context.Context, state string) (bool, error)
}

// Credentials are the BMC address and login of one node.
type Credentials struct {
	Address  string
	Username string
	Password string
}

// Controller drives the power of the nodes of one cluster.
type Controller struct {
	cluster  string
	bmcs     map[string]BMC
	Interval time.Duration
	Timeout  time.Duration
}

// New returns a Controller with one bmclib client per node of credentials.
func New(cluster string, credentials map[string]Credentials, options ...bmclib.Option) *Controller {
	bmcs := make(map[string]BMC, len(credentials))

	for node, auth := range credentials {
		glog.V(odfparams.LogLevel).Infof("Creating BMC client for node %s of %s at %s", node, cluster, auth.Address)

		bmcs[node] = bmclib.NewClient(auth.Address, auth.Username, auth.Password, options...)
	}

	return NewWithBMCs(cluster, bmcs)
}

// NewWithBMCs returns a Controller over already built BMC clients.
func NewWithBMCs(cluster string, bmcs map[string]BMC) *Controller {
	return &Controller{
		cluster:  cluster,
		bmcs:     bmcs,
		Interval: odfparams.DefaultPollInterval,
		Timeout:  odfparams.ResourceRespinTimeout,
	}
}

// Cluster returns the name of the cluster the nodes belong to.
func (controller *Controller) Cluster() string {
	return controller.cluster
}

// Nodes returns the sorted node names.
func (controller *Controller) Nodes() []string {
	nodes := make([]string, 0, len(controller.bmcs))
	for node := range controller.bmcs {
		nodes = append(nodes, node)
	}

	sort.Strings(nodes)

	return nodes
}

// PowerOff powers every node off and waits until all of them report it.
func (controller *Controller) PowerOff(ctx context.Context) error {
	return controller.SetState(ctx, StateOff, controller.Nodes()...)
}

// PowerOn powers every node on and waits until all of them report it.
func (controller *Controller) PowerOn(ctx context.Context) error {
	return controller.SetState(ctx, StateOn, controller.Nodes()...)
}

// PowerState returns the state reported by the BMC of node.
func (controller *Controller) PowerState(ctx context.Context, node string) (string, error) {
	bmc, err := controller.bmc(node)
	if err != nil {
		return "", err
	}

	if err := bmc.Open(ctx); err != nil {
		return "", fmt.Errorf("failed to login to bmc of %s: %w", node, err)
	}

	defer bmc.Close(ctx)

	state, err := bmc.GetPowerState(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get power state of %s: %w", node, err)
	}

	return strings.TrimSpace(state), nil
}

// SetState sets the power state of nodes in parallel. Off and on are awaited, cycle is not.
func (controller *Controller) SetState(ctx context.Context, state string, nodes ...string) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, node := range nodes {
		bmc, err := controller.bmc(node)
		if err != nil {
			return err
		}

		group.Go(func() error {
			return controller.setNodeState(groupCtx, node, bmc, state)
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("failed to power %s nodes of %s: %w", state, controller.cluster, err)
	}

	return nil
}

func (controller *Controller) setNodeState(ctx context.Context, node string, bmc BMC, state string) error {
	glog.V(odfparams.LogLevel).Infof("Starting BMC session for %s", node)

	if err := bmc.Open(ctx); err != nil {
		return fmt.Errorf("failed to login to bmc of %s: %w", node, err)
	}

	defer bmc.Close(ctx)

	err := polling.PollUntil(ctx, controller.Timeout, controller.Interval,
		func(ctx context.Context) (bool, error) {
			if _, err := bmc.SetPowerState(ctx, state); err != nil {
				glog.V(odfparams.LogLevel).Infof("Failed to power %s %s: %v", state, node, err)

				return false, err
			}

			return true, nil
		},
		polling.WithName(fmt.Sprintf("power %s request on %s", state, node)),
		polling.WithRetryOn(func(err error) bool { return ctx.Err() == nil }))
	if err != nil {
		return err
	}

	var want *regexp.Regexp

	switch state {
	case StateOn:
		want = onState
	case StateOff:
		want = offState
	default:
		return nil
	}

	return polling.PollUntil(ctx, controller.Timeout, controller.Interval,
		func(ctx context.Context) (bool, error) {
			current, err := bmc.GetPowerState(ctx)
			if err != nil {
				return false, err
			}

			glog.V(odfparams.LogLevel).Infof("Power state on %s -> %s", node, current)

			return want.MatchString(strings.TrimSpace(current)), nil
		},
		polling.WithName(fmt.Sprintf("power state %s on %s", state, node)),
		polling.WithRetryOn(func(err error) bool { return ctx.Err() == nil }))
}

func (controller *Controller) bmc(node string) (BMC, error) {
	bmc, ok := controller.bmcs[node]
	if !ok {
		return nil, fmt.Errorf("node %s of %s has no bmc credentials", node, controller.cluster)
	}

	return bmc, nil
}

// CredentialsFromEnvData reads ENV_DATA.bmc_credentials, a map of node name to address, username and password.
func CredentialsFromEnvData(envData map[string]interface{}) (map[string]Credentials, error) {
	raw, ok := envData["bmc_credentials"]
	if !ok || raw == nil {
		return map[string]Credentials{}, nil
	}

	nodes, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("bmc_credentials must be a map of nodes, got %T", raw)
	}

	credentials := make(map[string]Credentials, len(nodes))

	for node, value := range nodes {
		fields, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("bmc credentials of node %s must be a map, got %T", node, value)
		}

		if fields["address"] == nil {
			return nil, fmt.Errorf("bmc credentials of node %s have no address", node)
		}

		credentials[node] = Credentials{
			Address:  fmt.Sprint(fields["address"]),
			Username: fmt.Sprint(fields["username"]),
			Password: fmt.Sprint(fields["password"]),
		}
	}

	return credentials, nil
}
