package polling

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// RetryPolicy describes how a function is retried.
type RetryPolicy struct {
	// Tries is the total number of attempts, the first one included.
	Tries int
	// Delay is the sleep before the second attempt.
	Delay time.Duration
	// Backoff multiplies Delay after every attempt. Zero or one keeps it constant.
	Backoff float64
	// Retryable selects the errors that are retried. Nil retries nothing.
	Retryable func(error) bool
}

// Retry runs fn until it succeeds, returns an error Retryable rejects, or Tries is exhausted. In the last case
// the error of the final attempt is returned.
func Retry(policy RetryPolicy, fn func() error) error {
	if policy.Tries < 1 {
		return fmt.Errorf("retry policy needs at least one try, got %d", policy.Tries)
	}

	retryable := policy.Retryable
	if retryable == nil {
		retryable = func(error) bool { return false }
	}

	backoff := wait.Backoff{
		Steps:    policy.Tries,
		Duration: policy.Delay,
		Factor:   policy.Backoff,
	}

	attempt := 0

	return retry.OnError(backoff, func(err error) bool {
		if !retryable(err) {
			return false
		}

		glog.V(100).Infof("Attempt %d/%d failed with a retryable error: %v", attempt, policy.Tries, err)

		return true
	}, func() error {
		attempt++

		return fn()
	})
}

// RetryValue is Retry for functions returning a value.
func RetryValue[T any](policy RetryPolicy, fn func() (T, error)) (T, error) {
	var result T

	err := Retry(policy, func() error {
		value, err := fn()
		if err != nil {
			return err
		}

		result = value

		return nil
	})

	return result, err
}

// Retrying wraps fn so that every call of the returned function is retried according to policy.
func Retrying(policy RetryPolicy, fn func() error) func() error {
	return func() error {
		return Retry(policy, fn)
	}
}
