package polling

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeoutExpired is matched by every TimeoutExpiredError through errors.Is.
var ErrTimeoutExpired = errors.New("timeout expired")

// TimeoutExpiredError is returned when a sampled function did not converge within its time budget.
type TimeoutExpiredError struct {
	// Name identifies what was being waited for.
	Name string
	// Timeout is the budget that was exhausted.
	Timeout time.Duration
	// Attempts is the number of times the sampled function ran.
	Attempts int
	// LastValue is the last successfully sampled value, nil if there was none.
	LastValue any
	// LastErr is the last allow-listed error swallowed while sampling.
	LastErr error
}

// Error returns the message of the timeout.
func (timeoutErr *TimeoutExpiredError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s (%d attempts)",
		timeoutErr.Timeout, timeoutErr.Name, timeoutErr.Attempts)

	if timeoutErr.LastValue != nil {
		msg += fmt.Sprintf(", last value: %v", timeoutErr.LastValue)
	}

	if timeoutErr.LastErr != nil {
		msg += fmt.Sprintf(", last error: %v", timeoutErr.LastErr)
	}

	return msg
}

// Is makes errors.Is(err, ErrTimeoutExpired) true.
func (timeoutErr *TimeoutExpiredError) Is(target error) bool {
	return target == ErrTimeoutExpired
}

// Unwrap returns the last swallowed error.
func (timeoutErr *TimeoutExpiredError) Unwrap() error {
	return timeoutErr.LastErr
}

// IsTimeout reports whether err is, or wraps, a TimeoutExpiredError.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeoutExpired)
}
