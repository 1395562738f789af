package peer

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

// RetryPolicy bounds how often a peer call is attempted. MaxAttempts counts
// the first try, so 2 means a single retry.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Delay:       200 * time.Millisecond,
		Retryable:   IsNetworkError,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or runs out of
// attempts. Each attempt gets its own timeout.
func (p RetryPolicy) Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsNetworkError
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.attempt(ctx, timeout, fn)
		if err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			return err
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

func (p RetryPolicy) attempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// IsNetworkError reports transport-level failures: the peer could not be
// reached or did not answer in time. Application rejections are not network
// errors.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrUnreachable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded:
			return true
		}
	}
	return false
}
