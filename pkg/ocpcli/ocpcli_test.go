package ocpcli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		exitCode int
		stderr   string
		expected Status
	}{
		{exitCode: 0, stderr: "", expected: StatusSucceeded},
		{exitCode: 0, stderr: "warning: (NotFound)", expected: StatusSucceeded},
		{exitCode: 1, stderr: `Error from server (NotFound): pods "x" not found`, expected: StatusNotFound},
		{exitCode: 1, stderr: `Error from server (AlreadyExists): namespaces "x" already exists`,
			expected: StatusAlreadyExists},
		{exitCode: 1, stderr: "error: You must be logged in to the server (Unauthorized)", expected: StatusFailed},
		{exitCode: 137, stderr: "", expected: StatusFailed},
		{exitCode: 127, stderr: "bash: pidof: command not found", expected: StatusFailed},
		{exitCode: 1, stderr: `configmap "x" already exists in the cache`, expected: StatusFailed},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, Classify(testCase.exitCode, testCase.stderr))
	}
}

func TestIsConnectionFailure(t *testing.T) {
	testCases := []struct {
		result   Result
		expected bool
	}{
		{result: Result{ExitCode: 1, Status: StatusFailed,
			Stderr: "Unable to connect to the server: dial tcp 10.0.0.1:6443: i/o timeout"}, expected: true},
		{result: Result{ExitCode: 1, Status: StatusFailed,
			Stderr: "error: net/http: TLS handshake timeout"}, expected: true},
		{result: Result{ExitCode: 1, Status: StatusFailed,
			Stderr: "error: You must be logged in to the server (Unauthorized)"}, expected: false},
		{result: Result{ExitCode: 127, Status: StatusFailed, Stderr: "bash: pidof: command not found"}, expected: false},
		{result: Result{ExitCode: 1, Status: StatusNotFound,
			Stderr: `Error from server (NotFound): pods "connection refused" not found`}, expected: false},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, IsConnectionFailure(testCase.result.Err()), testCase.result.Stderr)
	}

	assert.False(t, IsConnectionFailure(errors.New("connection refused")))
	assert.False(t, IsConnectionFailure(nil))
}

func TestResultErr(t *testing.T) {
	assert.Nil(t, Result{Status: StatusSucceeded}.Err())

	err := Result{Command: "oc get pod x", ExitCode: 1, Stderr: "not found", Status: StatusNotFound}.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Contains(t, err.Error(), "oc get pod x")

	var cmdErr *CommandFailedError

	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 1, cmdErr.ExitCode)

	err = Result{ExitCode: 1, Status: StatusAlreadyExists}.Err()
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestCLIPassesKubeconfigAndNamespace(t *testing.T) {
	runner := NewFakeRunner().On("get pods", "{}")
	cli := New(runner, "/tmp/kc1").WithNamespace("openshift-storage")

	_, err := cli.Output(context.TODO(), "get", "pods")
	require.NoError(t, err)
	assert.Equal(t, []string{"oc --kubeconfig /tmp/kc1 -n openshift-storage get pods"}, runner.Calls)
}

func TestCLIDeleteIgnoresNotFound(t *testing.T) {
	runner := NewFakeRunner().
		OnResult("delete pod missing", Result{Status: StatusNotFound, Stderr: "(NotFound)"}).
		OnResult("delete pod broken", Result{Status: StatusFailed, Stderr: "forbidden"})
	cli := New(runner, "")

	assert.NoError(t, cli.Delete(context.TODO(), "pod", "missing"))
	assert.Error(t, cli.Delete(context.TODO(), "pod", "broken"))
}

func TestCLIGetJSON(t *testing.T) {
	runner := NewFakeRunner().
		On("get cephcluster ocs -o json", `{"status":{"ceph":{"health":"HEALTH_OK"}}}`).
		On("get cephcluster bad -o json", "not json")
	cli := New(runner, "")

	doc, err := cli.GetJSON(context.TODO(), "cephcluster", "ocs")
	require.NoError(t, err)
	assert.Equal(t, "HEALTH_OK", doc.Get("status.ceph.health").String())

	_, err = cli.GetJSON(context.TODO(), "cephcluster", "bad")
	assert.Error(t, err)
}

func TestCLIDebugNode(t *testing.T) {
	runner := NewFakeRunner().On("debug node/worker-0", " 1234\n")
	cli := New(runner, "")

	output, err := cli.DebugNode(context.TODO(), "worker-0", "pidof ceph-mon")
	require.NoError(t, err)
	assert.Equal(t, "1234", output)
	assert.Len(t, runner.CallsMatching("chroot /host bash -c pidof ceph-mon"), 1)
}

func TestFakeRunnerSequence(t *testing.T) {
	runner := NewFakeRunner().On("pidof", "1", "2")

	assert.Equal(t, "1", runner.Run(context.TODO(), "pidof", "x").Stdout)
	assert.Equal(t, "2", runner.Run(context.TODO(), "pidof", "x").Stdout)
	assert.Equal(t, "2", runner.Run(context.TODO(), "pidof", "x").Stdout)
	assert.Equal(t, StatusFailed, runner.Run(context.TODO(), "unknown").Status)
}
