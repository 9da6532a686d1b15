package clients

import (
	"context"
	"errors"
	"net"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"
)

// IsTransientError reports whether err is an api or connection failure that a later attempt can overcome: server
// timeouts, throttling, unavailable or failing api servers and dropped connections. Cancellation and every other
// error are permanent.
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if k8serrors.IsServerTimeout(err) || k8serrors.IsTimeout(err) || k8serrors.IsTooManyRequests(err) ||
		k8serrors.IsServiceUnavailable(err) || k8serrors.IsInternalError(err) {
		return true
	}

	if utilnet.IsConnectionRefused(err) || utilnet.IsConnectionReset(err) || utilnet.IsProbableEOF(err) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
