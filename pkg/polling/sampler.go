package polling

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/golang/glog"
	"k8s.io/utils/clock"
)

// Func is the function sampled by a Sampler.
type Func[T any] func(ctx context.Context) (T, error)

// Option configures a Sampler.
type Option func(*samplerConfig)

type samplerConfig struct {
	name    string
	retryOn []func(error) bool
	clock   clock.Clock
}

// WithName sets the name used in logs and timeout errors.
func WithName(name string) Option {
	return func(config *samplerConfig) {
		config.name = name
	}
}

// WithRetryOn adds predicates selecting the errors that are swallowed and retried. Errors not matched by any
// predicate end the sampling immediately.
func WithRetryOn(predicates ...func(error) bool) Option {
	return func(config *samplerConfig) {
		config.retryOn = append(config.retryOn, predicates...)
	}
}

// WithRetryOnErrors allow-lists errors that are retried when errors.Is matches them.
func WithRetryOnErrors(errs ...error) Option {
	return WithRetryOn(MatchesAny(errs...))
}

// WithClock replaces the wall clock. Used by unit tests.
func WithClock(samplerClock clock.Clock) Option {
	return func(config *samplerConfig) {
		config.clock = samplerClock
	}
}

// Sampler repeatedly runs a function every interval until its timeout is spent.
type Sampler[T any] struct {
	timeout  time.Duration
	interval time.Duration
	fn       Func[T]
	config   samplerConfig
}

// NewSampler returns a Sampler running fn every interval for at most timeout.
func NewSampler[T any](timeout, interval time.Duration, fn Func[T], options ...Option) (*Sampler[T], error) {
	if fn == nil {
		return nil, fmt.Errorf("sampler function cannot be nil")
	}

	if timeout <= 0 || interval <= 0 {
		return nil, fmt.Errorf("sampler timeout (%s) and interval (%s) must be positive", timeout, interval)
	}

	if interval >= timeout {
		return nil, fmt.Errorf("sampler interval %s must be lower than timeout %s", interval, timeout)
	}

	sampler := &Sampler[T]{
		timeout:  timeout,
		interval: interval,
		fn:       fn,
		config: samplerConfig{
			name:  "condition",
			clock: clock.RealClock{},
		},
	}

	for _, option := range options {
		option(&sampler.config)
	}

	return sampler, nil
}

// Timeout returns the time budget of the sampler.
func (sampler *Sampler[T]) Timeout() time.Duration {
	return sampler.timeout
}

// Interval returns the sleep between two samples.
func (sampler *Sampler[T]) Interval() time.Duration {
	return sampler.interval
}

// Samples returns a sequence of sampled values. Each call starts a new time budget.
//
// Every successful call of the sampled function is yielded as (value, nil). Allow-listed errors are
// swallowed. Any other error is yielded once and ends the sequence. When the budget is spent a
// *TimeoutExpiredError is yielded and the sequence ends. The caller stops early by breaking out of the loop.
func (sampler *Sampler[T]) Samples(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var (
			zero      T
			lastValue any
			lastErr   error
			attempts  int
		)

		deadline := sampler.config.clock.Now().Add(sampler.timeout)

		for {
			if attempts > 0 && !sampler.config.clock.Now().Before(deadline) {
				yield(zero, &TimeoutExpiredError{
					Name:      sampler.config.name,
					Timeout:   sampler.timeout,
					Attempts:  attempts,
					LastValue: lastValue,
					LastErr:   lastErr,
				})

				return
			}

			if err := ctx.Err(); err != nil {
				yield(zero, fmt.Errorf("stopped waiting for %s: %w", sampler.config.name, err))

				return
			}

			attempts++
			value, err := sampler.fn(ctx)

			switch {
			case err == nil:
				lastValue = value

				if !yield(value, nil) {
					return
				}
			case sampler.retryable(err):
				lastErr = err

				glog.V(100).Infof("Sampling %s failed with a retryable error, next try in %s: %v",
					sampler.config.name, sampler.interval, err)
			default:
				yield(zero, err)

				return
			}

			sleep := sampler.interval
			if remaining := deadline.Sub(sampler.config.clock.Now()); remaining < sleep {
				sleep = remaining
			}

			if sleep > 0 {
				sampler.config.clock.Sleep(sleep)
			}
		}
	}
}

func (sampler *Sampler[T]) retryable(err error) bool {
	for _, predicate := range sampler.config.retryOn {
		if predicate(err) {
			return true
		}
	}

	return false
}

// WaitFor samples until cond returns true for a sampled value and returns that value.
func WaitFor[T any](ctx context.Context, sampler *Sampler[T], cond func(T) bool) (T, error) {
	for sample, err := range sampler.Samples(ctx) {
		if err != nil {
			return sample, err
		}

		if cond(sample) {
			return sample, nil
		}

		glog.V(100).Infof("Waiting for %s, current sample: %v", sampler.config.name, sample)
	}

	var zero T

	return zero, errors.New("sampler ended without a result")
}

// WaitForValue samples until the sampled value equals want.
func WaitForValue[T comparable](ctx context.Context, sampler *Sampler[T], want T) error {
	_, err := WaitFor(ctx, sampler, func(sample T) bool {
		return sample == want
	})

	return err
}

// WaitForFuncStatus samples a boolean function until it returns status.
func WaitForFuncStatus(ctx context.Context, sampler *Sampler[bool], status bool) error {
	return WaitForValue(ctx, sampler, status)
}

// PollUntil waits until cond returns true. It is a shortcut for a boolean Sampler and WaitForFuncStatus.
func PollUntil(
	ctx context.Context,
	timeout, interval time.Duration,
	cond func(ctx context.Context) (bool, error),
	options ...Option) error {
	sampler, err := NewSampler(timeout, interval, Func[bool](cond), options...)
	if err != nil {
		return err
	}

	return WaitForFuncStatus(ctx, sampler, true)
}

// MatchesAny returns a predicate matching any of errs with errors.Is.
func MatchesAny(errs ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range errs {
			if errors.Is(err, target) {
				return true
			}
		}

		return false
	}
}
