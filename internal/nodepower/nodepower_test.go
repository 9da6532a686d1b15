package nodepower

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBMC struct {
	mutex      sync.Mutex
	state      string
	openErr    error
	setErrs    int
	opened     int
	closed     int
	setCalls   []string
	reportLags int
}

func (bmc *fakeBMC) Open(context.Context) error {
	bmc.mutex.Lock()
	defer bmc.mutex.Unlock()

	if bmc.openErr != nil {
		return bmc.openErr
	}

	bmc.opened++

	return nil
}

func (bmc *fakeBMC) Close(context.Context) error {
	bmc.mutex.Lock()
	defer bmc.mutex.Unlock()

	bmc.closed++

	return nil
}

func (bmc *fakeBMC) GetPowerState(context.Context) (string, error) {
	bmc.mutex.Lock()
	defer bmc.mutex.Unlock()

	if bmc.reportLags > 0 {
		bmc.reportLags--

		return "Chassis Power is transitioning", nil
	}

	return bmc.state, nil
}

func (bmc *fakeBMC) SetPowerState(_ context.Context, state string) (bool, error) {
	bmc.mutex.Lock()
	defer bmc.mutex.Unlock()

	bmc.setCalls = append(bmc.setCalls, state)

	if bmc.setErrs > 0 {
		bmc.setErrs--

		return false, errors.New("bmc busy")
	}

	bmc.state = state

	return true, nil
}

func newTestController(bmcs map[string]*fakeBMC) *Controller {
	wrapped := map[string]BMC{}
	for node, bmc := range bmcs {
		wrapped[node] = bmc
	}

	controller := NewWithBMCs("cluster-1", wrapped)
	controller.Interval = 5 * time.Millisecond
	controller.Timeout = time.Second

	return controller
}

func TestPowerOffAndOn(t *testing.T) {
	bmcs := map[string]*fakeBMC{
		"worker-0": {state: "on", reportLags: 2},
		"worker-1": {state: "on", setErrs: 1},
	}
	controller := newTestController(bmcs)

	assert.Equal(t, []string{"worker-0", "worker-1"}, controller.Nodes())
	assert.Equal(t, "cluster-1", controller.Cluster())

	require.NoError(t, controller.PowerOff(context.TODO()))

	for node, bmc := range bmcs {
		assert.Equal(t, "off", bmc.state, node)
		assert.Equal(t, bmc.opened, bmc.closed, node)
	}

	assert.Equal(t, []string{"off", "off"}, bmcs["worker-1"].setCalls)

	require.NoError(t, controller.PowerOn(context.TODO()))

	state, err := controller.PowerState(context.TODO(), "worker-0")
	require.NoError(t, err)
	assert.Equal(t, "on", state)
}

func TestSetStateErrors(t *testing.T) {
	bmcs := map[string]*fakeBMC{
		"worker-0": {state: "on", openErr: errors.New("unauthorized")},
	}
	controller := newTestController(bmcs)

	err := controller.PowerOff(context.TODO())
	assert.ErrorContains(t, err, "failed to login to bmc of worker-0")

	err = controller.SetState(context.TODO(), StateOff, "worker-9")
	assert.EqualError(t, err, "node worker-9 of cluster-1 has no bmc credentials")
}

func TestSetStateCycleIsNotAwaited(t *testing.T) {
	bmcs := map[string]*fakeBMC{"worker-0": {state: "on"}}
	controller := newTestController(bmcs)

	require.NoError(t, controller.SetState(context.TODO(), StateCycle, "worker-0"))
	assert.Equal(t, []string{"cycle"}, bmcs["worker-0"].setCalls)
}

func TestCredentialsFromEnvData(t *testing.T) {
	credentials, err := CredentialsFromEnvData(map[string]interface{}{
		"bmc_credentials": map[string]interface{}{
			"master-0": map[string]interface{}{
				"address":  "redfish+https://10.1.1.10/redfish/v1/Systems/1",
				"username": "root",
				"password": "calvin",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Credentials{
		Address:  "redfish+https://10.1.1.10/redfish/v1/Systems/1",
		Username: "root",
		Password: "calvin",
	}, credentials["master-0"])

	credentials, err = CredentialsFromEnvData(map[string]interface{}{})
	require.NoError(t, err)
	assert.Empty(t, credentials)

	_, err = CredentialsFromEnvData(map[string]interface{}{"bmc_credentials": "root:calvin"})
	assert.Error(t, err)

	_, err = CredentialsFromEnvData(map[string]interface{}{
		"bmc_credentials": map[string]interface{}{"master-0": map[string]interface{}{"username": "root"}},
	})
	assert.EqualError(t, err, "bmc credentials of node master-0 have no address")
}
