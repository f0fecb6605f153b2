package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"

	"github.com/Esscraye/conformit/internal/model"
	"github.com/Esscraye/conformit/pkg/metrics"
)

const maxRetries = 3

// withRetry runs fn, retrying transient store failures with bounded
// exponential backoff. Exhausted retries surface as model.ErrUnavailable.
// Sentinel errors and key-miss results are returned immediately.
func withRetry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second

	err := backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))

	if err != nil && isTransient(err) {
		return fmt.Errorf("store %s: %w: %v", op, model.ErrUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, redis.Nil),
		errors.Is(err, redis.TxFailedErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInvalidCredentials):
		return false
	}
	return true
}
