package clientapi

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "deadline", err: context.DeadlineExceeded, expected: true},
		{name: "cancelled", err: context.Canceled, expected: false},
		{name: "net timeout", err: timeoutErr{}, expected: true},
		{name: "conn reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), expected: true},
		{name: "fetch failed", err: errors.New("TypeError: fetch failed"), expected: true},
		{name: "server 503", err: errors.New("503 Service Unavailable"), expected: true},
		{name: "revert", err: errors.New("execution reverted"), expected: false},
		{name: "invalid params", err: errors.New("invalid argument 0: hex string without 0x prefix"), expected: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestCallWithRetryRecovers(t *testing.T) {
	calls := 0
	out, err := callWithRetry(context.Background(), "test", 3, time.Millisecond, newRequestMetrics(),
		func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("connection reset by peer")
			}
			return 42, nil
		})
	require.NoError(t, err)
	require.Equal(t, 42, out)
	require.Equal(t, 3, calls)
}

func TestCallWithRetryGivesUp(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), "test", 3, time.Millisecond, newRequestMetrics(),
		func() (int, error) {
			calls++
			return 0, errors.New("request timeout")
		})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestCallWithRetryDoesNotRetryValidation(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), "test", 3, time.Millisecond, newRequestMetrics(),
		func() (int, error) {
			calls++
			return 0, errors.New("execution reverted")
		})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
