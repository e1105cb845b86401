package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewClient_InvalidProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "invalid", APIKey: "test"})
	if err == nil {
		t.Fatal("expected error for invalid provider")
	}
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	for _, p := range []Provider{Anthropic, OpenAI} {
		_, err := NewClient(Config{Provider: p})
		if err == nil {
			t.Fatalf("expected error for %s without API key", p)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != Anthropic {
		t.Fatalf("expected anthropic, got %s", cfg.Provider)
	}
	if cfg.MaxTokens != 4096 {
		t.Fatalf("expected 4096 max tokens, got %d", cfg.MaxTokens)
	}
}

func TestJoinPrompt(t *testing.T) {
	if got := joinPrompt("", "hello"); got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}
	if got := joinPrompt("sys", "hello"); got != "sys\n\nhello" {
		t.Fatalf("unexpected joined prompt: %q", got)
	}
}

type mockClient struct {
	completeFn func(ctx context.Context, opts CompleteOptions) (string, error)
	calls      int
}

func (m *mockClient) Complete(ctx context.Context, opts CompleteOptions) (string, error) {
	m.calls++
	return m.completeFn(ctx, opts)
}
func (m *mockClient) Provider() Provider { return "mock" }
func (m *mockClient) Close() error       { return nil }

func newTestRetry(inner Client) (*retryClient, *[]time.Duration) {
	var sleeps []time.Duration
	rc := &retryClient{
		inner: inner,
		sleep: func(d time.Duration) { sleeps = append(sleeps, d) },
	}
	return rc, &sleeps
}

func TestRetry_NoRetryOnSuccess(t *testing.T) {
	mock := &mockClient{completeFn: func(ctx context.Context, opts CompleteOptions) (string, error) {
		return "ok", nil
	}}
	rc, sleeps := newTestRetry(mock)

	text, err := rc.Complete(context.Background(), CompleteOptions{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if text != "ok" {
		t.Fatalf("expected 'ok', got %q", text)
	}
	if mock.calls != 1 || len(*sleeps) != 0 {
		t.Fatalf("expected 1 call and 0 sleeps, got %d calls, %d sleeps", mock.calls, len(*sleeps))
	}
}

func TestRetry_RateLimitThenSuccess(t *testing.T) {
	mock := &mockClient{}
	mock.completeFn = func(ctx context.Context, opts CompleteOptions) (string, error) {
		if mock.calls < 3 {
			return "", errors.New("429 rate limit exceeded, retry in 2 seconds")
		}
		return "eventually", nil
	}
	rc, sleeps := newTestRetry(mock)

	text, err := rc.Complete(context.Background(), CompleteOptions{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if text != "eventually" {
		t.Fatalf("expected 'eventually', got %q", text)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("expected exactly 2 sleeps, got %d", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 2*time.Second {
			t.Fatalf("expected 2s sleep from retry hint, got %v", d)
		}
	}
}

func TestRetry_Exhausted(t *testing.T) {
	last := errors.New("quota exceeded")
	mock := &mockClient{completeFn: func(ctx context.Context, opts CompleteOptions) (string, error) {
		return "", last
	}}
	rc, sleeps := newTestRetry(mock)

	_, err := rc.Complete(context.Background(), CompleteOptions{Prompt: "hi"})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error to propagate, got %v", err)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 attempts total, got %d", mock.calls)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(*sleeps))
	}
}

func TestRetry_NonRateLimitFailsFast(t *testing.T) {
	mock := &mockClient{completeFn: func(ctx context.Context, opts CompleteOptions) (string, error) {
		return "", errors.New("invalid api key")
	}}
	rc, sleeps := newTestRetry(mock)

	if _, err := rc.Complete(context.Background(), CompleteOptions{Prompt: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 || len(*sleeps) != 0 {
		t.Fatalf("expected single attempt with no sleeps, got %d calls, %d sleeps", mock.calls, len(*sleeps))
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		err  string
		want time.Duration
	}{
		{"429 too many requests, retry in 5 seconds", 5 * time.Second},
		{"rate limited. Retry in 1 second", time.Second},
		{"quota exhausted, retry in 0.5 seconds", 500 * time.Millisecond},
		{"429 too many requests", defaultRetryDelay},
	}
	for _, tt := range tests {
		if got := retryDelay(errors.New(tt.err)); got != tt.want {
			t.Errorf("retryDelay(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	for _, msg := range []string{"HTTP 429", "Quota exceeded", "Rate limit hit"} {
		if !isRateLimited(errors.New(msg)) {
			t.Errorf("expected %q to look rate limited", msg)
		}
	}
	if isRateLimited(errors.New("connection refused")) {
		t.Error("connection refused should not look rate limited")
	}
}
