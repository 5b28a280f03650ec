package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	var calls int32
	got, err := Retry(context.Background(), fastRetry(), func() (string, error) {
		if atomic.AddInt32(&calls, 1) < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Errorf("expected ok after 2 calls, got %q after %d", got, calls)
	}
}

func TestRetry_ReturnsLastResultWithError(t *testing.T) {
	var calls int32
	got, err := Retry(context.Background(), fastRetry(), func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), errors.New("still failing")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 || got != 3 {
		t.Errorf("expected 3 attempts and last result 3, got calls=%d result=%d", calls, got)
	}
}

func TestRetry_RetryIfStops(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry()
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }

	var calls int32
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("expected one call with permanent error, got %d calls, err=%v", calls, err)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, fastRetry(), func() (int, error) { return 1, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second, BackoffFactor: 10}
	if got := calculateBackoff(3, cfg); got != 2*time.Second {
		t.Errorf("expected capped backoff 2s, got %v", got)
	}
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name: "api", MaxFailures: 2, Timeout: time.Minute,
		OnStateChange: func(_ string, from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) },
	})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	_ = cb.Execute(func() error { return boom })
	_ = cb.Execute(func() error { return boom })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	ignored := errors.New("404")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return !errors.Is(err, ignored) },
	})
	_ = cb.Execute(func() error { return ignored })
	if cb.State() != StateClosed {
		t.Errorf("ignored errors should not open the breaker, got %s", cb.State())
	}
	cb.Reset()
}

func TestRateLimiter_BurstThenLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow() {
		t.Error("third immediate call should be limited")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait should fail when the deadline is shorter than the refill")
	}
	if rl.Burst() != 2 {
		t.Errorf("expected burst 2, got %d", rl.Burst())
	}
}

func TestState_String(t *testing.T) {
	if State(42).String() != "unknown" {
		t.Error("unexpected name for unknown state")
	}
}
