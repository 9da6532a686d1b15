package polling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

var errTransient = errors.New("transient")

func TestNewSamplerValidation(t *testing.T) {
	testCases := []struct {
		timeout       time.Duration
		interval      time.Duration
		fn            Func[bool]
		expectedError bool
	}{
		{timeout: 5 * time.Second, interval: time.Second, fn: alwaysFalse, expectedError: false},
		{timeout: time.Second, interval: time.Second, fn: alwaysFalse, expectedError: true},
		{timeout: time.Second, interval: 2 * time.Second, fn: alwaysFalse, expectedError: true},
		{timeout: 0, interval: time.Second, fn: alwaysFalse, expectedError: true},
		{timeout: 5 * time.Second, interval: time.Second, fn: nil, expectedError: true},
	}

	for _, testCase := range testCases {
		sampler, err := NewSampler(testCase.timeout, testCase.interval, testCase.fn)

		if testCase.expectedError {
			assert.NotNil(t, err)
			assert.Nil(t, sampler)
		} else {
			assert.Nil(t, err)
			assert.NotNil(t, sampler)
		}
	}
}

func TestWaitForFuncStatusTimeout(t *testing.T) {
	fakeClock := clocktesting.NewFakeClock(time.Now())
	attempts := 0

	sampler, err := NewSampler(5*time.Second, time.Second, func(ctx context.Context) (bool, error) {
		attempts++

		return false, nil
	}, WithClock(fakeClock), WithName("always false"))
	require.NoError(t, err)

	err = WaitForFuncStatus(context.TODO(), sampler, true)

	var timeoutErr *TimeoutExpiredError

	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, errors.Is(err, ErrTimeoutExpired))
	assert.True(t, IsTimeout(err))
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, timeoutErr.Attempts)
	assert.Equal(t, false, timeoutErr.LastValue)
	assert.Contains(t, err.Error(), "always false")
}

func TestWaitForFuncStatusStopsEarly(t *testing.T) {
	fakeClock := clocktesting.NewFakeClock(time.Now())
	attempts := 0

	sampler, err := NewSampler(time.Minute, time.Second, func(ctx context.Context) (bool, error) {
		attempts++

		return attempts == 3, nil
	}, WithClock(fakeClock))
	require.NoError(t, err)

	assert.NoError(t, WaitForFuncStatus(context.TODO(), sampler, true))
	assert.Equal(t, 3, attempts)
}

func TestSamplesSlowFunctionShrinksAttempts(t *testing.T) {
	fakeClock := clocktesting.NewFakeClock(time.Now())
	start := fakeClock.Now()
	attempts := 0

	sampler, err := NewSampler(5*time.Second, time.Second, func(ctx context.Context) (int, error) {
		attempts++
		fakeClock.Step(2 * time.Second)

		return attempts, nil
	}, WithClock(fakeClock))
	require.NoError(t, err)

	_, err = WaitFor(context.TODO(), sampler, func(int) bool { return false })

	assert.True(t, IsTimeout(err))
	assert.Equal(t, 2, attempts)
	assert.LessOrEqual(t, fakeClock.Since(start), 5*time.Second+2*time.Second)
}

func TestSamplesErrorHandling(t *testing.T) {
	errFatal := errors.New("fatal")

	testCases := []struct {
		name             string
		errs             []error
		retryOn          []error
		expectedAttempts int
		expectTimeout    bool
		expectedError    error
	}{
		{
			name:             "not allow-listed error propagates on first attempt",
			errs:             []error{errFatal},
			retryOn:          nil,
			expectedAttempts: 1,
			expectedError:    errFatal,
		},
		{
			name:             "allow-listed error is retried until timeout",
			errs:             []error{errTransient},
			retryOn:          []error{errTransient},
			expectedAttempts: 4,
			expectTimeout:    true,
			expectedError:    errTransient,
		},
		{
			name:             "unexpected error after retryable ones propagates",
			errs:             []error{errTransient, errTransient, errFatal},
			retryOn:          []error{errTransient},
			expectedAttempts: 3,
			expectedError:    errFatal,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fakeClock := clocktesting.NewFakeClock(time.Now())
			attempts := 0

			sampler, err := NewSampler(4*time.Second, time.Second, func(ctx context.Context) (string, error) {
				errIndex := attempts
				if errIndex >= len(testCase.errs) {
					errIndex = len(testCase.errs) - 1
				}

				attempts++

				return "", testCase.errs[errIndex]
			}, WithClock(fakeClock), WithRetryOnErrors(testCase.retryOn...))
			require.NoError(t, err)

			_, err = WaitFor(context.TODO(), sampler, func(string) bool { return true })

			assert.Equal(t, testCase.expectedAttempts, attempts)
			assert.Equal(t, testCase.expectTimeout, IsTimeout(err))
			assert.ErrorIs(t, err, testCase.expectedError)
		})
	}
}

func TestSamplesIsRestartable(t *testing.T) {
	fakeClock := clocktesting.NewFakeClock(time.Now())
	calls := 0

	sampler, err := NewSampler(3*time.Second, time.Second, func(ctx context.Context) (int, error) {
		calls++

		return calls, nil
	}, WithClock(fakeClock))
	require.NoError(t, err)

	var first []int

	for sample, err := range sampler.Samples(context.TODO()) {
		if err != nil {
			assert.True(t, IsTimeout(err))

			break
		}

		first = append(first, sample)
	}

	assert.Equal(t, []int{1, 2, 3}, first)

	second := 0

	for _, err := range sampler.Samples(context.TODO()) {
		if err != nil {
			break
		}

		second++
	}

	assert.Equal(t, 3, second)
}

func TestSamplesHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sampler, err := NewSampler(time.Minute, time.Second, alwaysFalse)
	require.NoError(t, err)

	err = WaitForFuncStatus(ctx, sampler, true)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTimeout(err))
}

func TestPollUntil(t *testing.T) {
	fakeClock := clocktesting.NewFakeClock(time.Now())
	calls := 0

	err := PollUntil(context.TODO(), 10*time.Second, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		if calls < 2 {
			return false, errTransient
		}

		return true, nil
	}, WithClock(fakeClock), WithRetryOnErrors(errTransient))

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func alwaysFalse(ctx context.Context) (bool, error) {
	return false, nil
}
