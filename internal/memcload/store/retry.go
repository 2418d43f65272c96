package store

import (
	"context"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/G-Research/memcload/internal/memcload/model"
)

// RetryPolicy controls how keys that failed with a retryable error are retried
type RetryPolicy struct {
	// Total number of attempts, including the first
	Attempts uint
	// Delay before the first retry; later retries back off exponentially
	Delay time.Duration
	// Decides whether a failure is worth retrying
	IsRetryable func(error) bool
}

// setFunc writes the given keys and returns an error for every key that failed
type setFunc func(pending model.Batch) map[string]error

// setWithRetry writes the batch using set, retrying only keys that failed with a retryable error.
// It returns the keys that were never written and the last error encountered.
func (p RetryPolicy) setWithRetry(ctx context.Context, batch model.Batch, set setFunc) ([]string, error) {
	pending := make(model.Batch, len(batch))
	for k, v := range batch {
		pending[k] = v
	}
	var failed []string
	var lastErr error

	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	_ = retry.Do(
		func() error {
			errs := set(pending)
			for key := range pending {
				err, ok := errs[key]
				if !ok {
					delete(pending, key)
					continue
				}
				lastErr = err
				if p.IsRetryable == nil || !p.IsRetryable(err) {
					failed = append(failed, key)
					delete(pending, key)
				}
			}
			if len(pending) > 0 {
				return errors.WithMessagef(lastErr, "%d keys failed with a retryable error", len(pending))
			}
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	for key := range pending {
		failed = append(failed, key)
	}
	if len(failed) == 0 {
		return nil, nil
	}
	return failed, lastErr
}

// IsNetworkError returns true if err was caused by the connection to the cache rather than by the request
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// IsRetryableRedisError is largely taken from https://github.com/go-redis/redis/blob/master/error.go#L28
func IsRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	if IsNetworkError(err) {
		return true
	}
	s := errors.Cause(err).Error()
	if s == "ERR max number of clients reached" {
		return true
	}
	for _, prefix := range []string{"LOADING ", "READONLY ", "CLUSTERDOWN ", "TRYAGAIN "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
