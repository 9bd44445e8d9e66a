// Package retry re-runs operations that fail transiently, with
// exponential backoff between attempts.
package retry

import (
	"context"
	"io"
	"net/http"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BackoffFactor scales the delay; attempt n waits factor * 2^n.
	BackoffFactor time.Duration
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep SleepFunc
}

// DefaultPolicy retries three times with a half-second backoff factor.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BackoffFactor: 500 * time.Millisecond}
}

// Delay returns the wait after the given zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	return p.BackoffFactor * time.Duration(1<<attempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep blocks for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until shouldRetry returns false or attempts run out, and
// returns the final attempt's result unchanged. There is no wait after
// the last attempt.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), shouldRetry func(T, error) bool) (T, error) {
	var (
		result T
		err    error
	)
	n := p.attempts()
	for attempt := 0; attempt < n; attempt++ {
		result, err = fn(ctx)
		if attempt == n-1 || !shouldRetry(result, err) {
			break
		}
		if serr := p.sleep(ctx, p.Delay(attempt)); serr != nil {
			return result, err
		}
	}
	return result, err
}

// RetryableStatus reports whether an HTTP status is worth retrying:
// any 5xx or 429.
func RetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// Execute runs an HTTP request function, retrying on retryable statuses.
// Transport errors are returned at once. After the final attempt the last
// response is returned as-is, even when its status is still retryable.
// Bodies of discarded responses are drained and closed.
func Execute(ctx context.Context, p Policy, fn func(context.Context) (*http.Response, error)) (*http.Response, error) {
	return Do(ctx, p, fn, func(resp *http.Response, err error) bool {
		if err != nil || resp == nil || !RetryableStatus(resp.StatusCode) {
			return false
		}
		discard(resp)
		return true
	})
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
