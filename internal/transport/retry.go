package transport

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// newBackOff returns the exponential schedule base, 2*base, 4*base, ...
// Jitter is added separately so the schedule itself stays deterministic.
func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = 10 * time.Minute
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// jitter returns a random duration in [0, base/2).
func jitter(base time.Duration) time.Duration {
	if base <= 1 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(base / 2)))
}

// parseRetryAfter reads a Retry-After header given either as delay-seconds or
// as an HTTP date. ok is false when the header is absent or unusable.
func parseRetryAfter(h string, now time.Time) (time.Duration, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(h); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// retryable reports whether a response status takes the backoff path.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
