package ocpcli

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a Runner answering commands from a script. Used by unit tests.
type FakeRunner struct {
	mutex sync.Mutex
	// Responses maps a substring of the command line to the results returned, in order, for matching calls.
	// The last result is repeated once the others are consumed.
	Responses map[string][]Result
	// Calls records every command line that was run.
	Calls []string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: map[string][]Result{}}
}

// On registers stdout answers for commands containing match.
func (runner *FakeRunner) On(match string, stdout ...string) *FakeRunner {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()

	for _, out := range stdout {
		runner.Responses[match] = append(runner.Responses[match], Result{Stdout: out, Status: StatusSucceeded})
	}

	return runner
}

// OnResult registers a full result for commands containing match.
func (runner *FakeRunner) OnResult(match string, result Result) *FakeRunner {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()

	runner.Responses[match] = append(runner.Responses[match], result)

	return runner
}

// Run returns the next scripted result of the longest matching substring, or a failure when nothing matches.
func (runner *FakeRunner) Run(ctx context.Context, name string, args ...string) Result {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()

	line := commandLine(name, args)
	runner.Calls = append(runner.Calls, line)

	bestMatch := ""

	for match := range runner.Responses {
		if strings.Contains(line, match) && len(match) > len(bestMatch) {
			bestMatch = match
		}
	}

	results, found := runner.Responses[bestMatch]
	if !found || len(results) == 0 {
		return Result{Command: line, ExitCode: 1, Stderr: "unexpected command", Status: StatusFailed}
	}

	result := results[0]
	if len(results) > 1 {
		runner.Responses[bestMatch] = results[1:]
	}

	result.Command = line
	if result.Status != StatusSucceeded && result.ExitCode == 0 {
		result.ExitCode = 1
	}

	return result
}

// CallsMatching returns the recorded calls containing match.
func (runner *FakeRunner) CallsMatching(match string) []string {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()

	var matching []string

	for _, call := range runner.Calls {
		if strings.Contains(call, match) {
			matching = append(matching, call)
		}
	}

	return matching
}
