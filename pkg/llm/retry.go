package llm

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxAttempts is the total number of completion attempts on rate limiting.
const maxAttempts = 3

// defaultRetryDelay applies when the provider error carries no retry hint.
const defaultRetryDelay = 10 * time.Second

// retryClient wraps a Client with retry-on-rate-limit. Only errors whose
// text looks like rate limiting are retried; everything else propagates
// unmodified on the first failure.
type retryClient struct {
	inner Client
	sleep func(time.Duration)
}

func wrapWithRetry(client Client) Client {
	return &retryClient{inner: client, sleep: time.Sleep}
}

func (r *retryClient) Complete(ctx context.Context, opts CompleteOptions) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := r.inner.Complete(ctx, opts)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRateLimited(err) {
			return "", err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := retryDelay(err)
		slog.Warn("completion rate limited, retrying",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)
		r.sleep(delay)
	}
	return "", lastErr
}

func (r *retryClient) Provider() Provider { return r.inner.Provider() }
func (r *retryClient) Close() error       { return r.inner.Close() }

// isRateLimited sniffs the error text for rate-limiting shapes.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"429", "quota", "rate"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

var retryHintRE = regexp.MustCompile(`retry in (\d+(?:\.\d+)?) seconds?`)

// retryDelay extracts a "retry in N seconds" hint from the provider error,
// falling back to defaultRetryDelay. Best effort: the hint is free text,
// not a structured retry-after value.
func retryDelay(err error) time.Duration {
	m := retryHintRE.FindStringSubmatch(strings.ToLower(err.Error()))
	if len(m) == 2 {
		if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultRetryDelay
}
