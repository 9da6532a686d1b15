package ocpcli

import (
	"errors"
	"fmt"
	"strings"
)

// Status classifies the outcome of a command.
type Status int

const (
	// StatusSucceeded means the command exited with 0.
	StatusSucceeded Status = iota
	// StatusNotFound means the command failed because the addressed resource does not exist.
	StatusNotFound
	// StatusAlreadyExists means the command failed because the resource already exists.
	StatusAlreadyExists
	// StatusFailed is any other failure.
	StatusFailed
)

// String returns the name of the status.
func (status Status) String() string {
	switch status {
	case StatusSucceeded:
		return "Succeeded"
	case StatusNotFound:
		return "NotFound"
	case StatusAlreadyExists:
		return "AlreadyExists"
	default:
		return "Failed"
	}
}

var (
	// ErrNotFound is matched by a CommandFailedError whose status is StatusNotFound.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is matched by a CommandFailedError whose status is StatusAlreadyExists.
	ErrAlreadyExists = errors.New("resource already exists")
)

// Result is the outcome of one command.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Status   Status
	// StartErr is set when the command could not be started at all.
	StartErr error
}

// Err returns nil for a successful command and a *CommandFailedError otherwise.
func (result Result) Err() error {
	if result.Status == StatusSucceeded {
		return nil
	}

	return &CommandFailedError{
		Command:  result.Command,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Status:   result.Status,
		cause:    result.StartErr,
	}
}

// CommandFailedError is returned for a command which did not succeed.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Stderr   string
	Status   Status
	cause    error
}

// Error returns the failed command with its exit code and stderr.
func (cmdErr *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d (%s)", cmdErr.Command, cmdErr.ExitCode, cmdErr.Status)

	if cmdErr.Stderr != "" {
		msg += ": " + strings.TrimSpace(cmdErr.Stderr)
	}

	if cmdErr.cause != nil {
		msg += fmt.Sprintf(": %v", cmdErr.cause)
	}

	return msg
}

// Is matches ErrNotFound and ErrAlreadyExists according to the status.
func (cmdErr *CommandFailedError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return cmdErr.Status == StatusNotFound
	case ErrAlreadyExists:
		return cmdErr.Status == StatusAlreadyExists
	default:
		return false
	}
}

// Unwrap returns the start error, if any.
func (cmdErr *CommandFailedError) Unwrap() error {
	return cmdErr.cause
}

// Classify derives the status of a finished command from its exit code and stderr. It is the only place
// where the wording of oc errors is interpreted.
func Classify(exitCode int, stderr string) Status {
	if exitCode == 0 {
		return StatusSucceeded
	}

	switch {
	case strings.Contains(stderr, "Error from server (NotFound)"):
		return StatusNotFound
	case strings.Contains(stderr, "Error from server (AlreadyExists)"):
		return StatusAlreadyExists
	default:
		return StatusFailed
	}
}

// connectionFailures are the stderr messages of oc and subctl when the api server could not be reached.
var connectionFailures = []string{
	"Unable to connect to the server",
	"connection refused",
	"connection reset by peer",
	"i/o timeout",
	"TLS handshake timeout",
	"the server is currently unable to handle the request",
	"etcdserver: request timed out",
}

// IsConnectionFailure reports whether err is a failed command which did not reach the api server. Such commands
// are worth retrying, every other failure is not.
func IsConnectionFailure(err error) bool {
	var cmdErr *CommandFailedError
	if !errors.As(err, &cmdErr) || cmdErr.Status != StatusFailed {
		return false
	}

	for _, message := range connectionFailures {
		if strings.Contains(cmdErr.Stderr, message) {
			return true
		}
	}

	return false
}
