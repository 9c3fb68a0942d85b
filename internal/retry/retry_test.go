package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxRetries: 3}, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Errorf("v = %q, calls = %d", v, calls)
	}
}

func TestDoRunsExactlyMaxRetriesPlusOne(t *testing.T) {
	calls := 0
	sentinel := errors.New("boom")
	_, err := Do(context.Background(), Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Multiplier: 2,
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{
		MaxRetries:  5,
		ShouldRetry: func(error) bool { return false },
	}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("fatal")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoReturnsLastValueOnFailure(t *testing.T) {
	v, err := Do(context.Background(), Policy{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Multiplier: 2,
	}, func(ctx context.Context) (string, error) {
		return "partial stream text", errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if v != "partial stream text" {
		t.Errorf("v = %q, want the last attempt's value", v)
	}
}

func TestDoAbortsBackoffOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	_, err := Do(ctx, Policy{
		MaxRetries: 3,
		BaseDelay:  10 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("backoff was not aborted, took %v", elapsed)
	}
}

func TestDoSkipsAttemptWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Policy{MaxRetries: 3}, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, Multiplier: 2}
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second, // capped
	}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestOnRetryObserver(t *testing.T) {
	var seen []int
	Do(context.Background(), Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		Multiplier: 2,
		OnRetry:    func(attempt int, err error) { seen = append(seen, attempt) },
	}, func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	// Two retries plus the exhaustion notification.
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Errorf("seen = %v", seen)
	}
}
