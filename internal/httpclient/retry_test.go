package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func testPolicy() *RetryPolicy {
	// Same shape as production, shrunk backoff so tests run fast
	return &RetryPolicy{
		MaxAttempts:       5,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        8 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestExecuteWithRetrySucceedsFirstAttempt(t *testing.T) {
	policy := testPolicy()
	logger := arbor.NewLogger()

	attempts := 0
	status, err := policy.ExecuteWithRetry(context.Background(), logger, func() (int, error) {
		attempts++
		return http.StatusOK, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteWithRetryStopsAfterMaxAttempts(t *testing.T) {
	policy := testPolicy()
	logger := arbor.NewLogger()

	attempts := 0
	wantErr := errors.New("service down")
	_, err := policy.ExecuteWithRetry(context.Background(), logger, func() (int, error) {
		attempts++
		return http.StatusServiceUnavailable, &APIError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    wantErr.Error(),
			Endpoint:   "/tika",
		}
	})

	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if attempts != 5 {
		t.Errorf("attempts = %d, want exactly 5 (no 6th attempt)", attempts)
	}
}

func TestExecuteWithRetryRecoversMidway(t *testing.T) {
	policy := testPolicy()
	logger := arbor.NewLogger()

	attempts := 0
	status, err := policy.ExecuteWithRetry(context.Background(), logger, func() (int, error) {
		attempts++
		if attempts < 3 {
			return http.StatusBadGateway, &APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway", Endpoint: "/_doc"}
		}
		return http.StatusCreated, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusCreated {
		t.Errorf("status = %d, want 201", status)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteWithRetryAnyNonSuccessRetries(t *testing.T) {
	// With no status restriction, even a 404 keeps retrying until exhaustion
	policy := testPolicy()
	logger := arbor.NewLogger()

	attempts := 0
	policy.ExecuteWithRetry(context.Background(), logger, func() (int, error) {
		attempts++
		return http.StatusNotFound, &APIError{StatusCode: http.StatusNotFound, Message: "missing", Endpoint: "/meta"}
	})

	if attempts != 5 {
		t.Errorf("attempts = %d, want 5", attempts)
	}
}

func TestExecuteWithRetryRestrictedStatusCodes(t *testing.T) {
	policy := testPolicy()
	policy.RetryableStatusCodes = []int{http.StatusServiceUnavailable}
	logger := arbor.NewLogger()

	attempts := 0
	_, err := policy.ExecuteWithRetry(context.Background(), logger, func() (int, error) {
		attempts++
		return http.StatusNotFound, &APIError{StatusCode: http.StatusNotFound, Message: "missing", Endpoint: "/meta"}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (404 not in retryable set)", attempts)
	}
}

func TestExecuteWithRetryContextCancellation(t *testing.T) {
	policy := testPolicy()
	policy.InitialBackoff = time.Second
	policy.MaxBackoff = 8 * time.Second
	logger := arbor.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := policy.ExecuteWithRetry(ctx, logger, func() (int, error) {
			attempts++
			return http.StatusServiceUnavailable, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "down", Endpoint: "/_doc"}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	}()

	// Cancel while the loop waits out its first backoff
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestCalculateBackoffCapsAtMax(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:       5,
		InitialBackoff:    time.Second,
		MaxBackoff:        8 * time.Second,
		BackoffMultiplier: 2.0,
	}

	// Attempt 10 would be 1024s unbounded; jitter is ±25% of the capped value
	backoff := policy.CalculateBackoff(10)
	if backoff > 10*time.Second {
		t.Errorf("backoff = %v, want <= 10s (8s cap + jitter)", backoff)
	}
	if backoff < 6*time.Second {
		t.Errorf("backoff = %v, want >= 6s (8s cap - jitter)", backoff)
	}

	// First retry waits about the initial backoff
	first := policy.CalculateBackoff(0)
	if first < 750*time.Millisecond || first > 1250*time.Millisecond {
		t.Errorf("first backoff = %v, want ~1s", first)
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	policy := testPolicy()
	if !policy.ShouldRetry(0, 0, context.DeadlineExceeded) {
		t.Error("deadline exceeded should be retryable")
	}
	if policy.ShouldRetry(5, 0, context.DeadlineExceeded) {
		t.Error("attempt at max should not retry")
	}
	if policy.ShouldRetry(0, http.StatusOK, nil) {
		t.Error("success should not retry")
	}
}
