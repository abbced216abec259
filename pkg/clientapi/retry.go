package clientapi

import (
	"context"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	defaultMaxRetries    uint = 3
	defaultRetryInterval      = 500 * time.Millisecond

	transientPatterns = []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"broken pipe",
		"fetch failed",
		"unexpected eof",
		"eof",
		"too many requests",
		"bad gateway",
		"service unavailable",
	}
)

// IsTransient reports whether err belongs to the retryable class: timeouts, connection resets and
// fetch failures. Validation and protocol errors are not retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// callWithRetry runs call with exponential backoff while it fails with a transient error.
func callWithRetry[T any](
	ctx context.Context,
	operation string,
	attempts uint,
	delay time.Duration,
	metrics *requestMetrics,
	call retry.RetryableFuncWithData[T],
) (T, error) {
	used := uint(1)
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			used = n + 1
			metrics.recordRetry(operation)
			log.WithFields(logrus.Fields{
				"operation":    operation,
				"attempt":      n + 1,
				"max_attempts": attempts,
			}).Debugf("retrying request: %s", err)
		}))
	if err != nil {
		metrics.recordFailure(operation, used)
		var zero T
		return zero, errors.Wrapf(err, "%s failed", operation)
	}
	return result, nil
}
