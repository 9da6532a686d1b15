package ocpcli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/golang/glog"
)

// Runner runs an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// ExecRunner runs commands on the local host.
type ExecRunner struct {
	// Env is appended to the environment of the current process.
	Env []string
}

// Run executes the command and waits for it to finish.
func (runner ExecRunner) Run(ctx context.Context, name string, args ...string) Result {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(runner.Env) > 0 {
		cmd.Env = append(os.Environ(), runner.Env...)
	}

	result := Result{Command: commandLine(name, args)}

	glog.V(100).Infof("Executing command: %s", result.Command)

	err := cmd.Run()

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	var exitErr *exec.ExitError

	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
		result.StartErr = err
	}

	result.Status = Classify(result.ExitCode, result.Stderr)
	if result.StartErr != nil {
		result.Status = StatusFailed
	}

	if result.Status != StatusSucceeded {
		glog.V(100).Infof("Command %s finished with status %s: %s", result.Command, result.Status, result.Stderr)
	}

	return result
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
