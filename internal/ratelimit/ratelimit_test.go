package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(interval time.Duration) (*Limiter, *time.Time) {
	l := New(interval, false)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return current })
	return l, &current
}

func TestLimiterBlocksSameIdentifier(t *testing.T) {
	l, current := newTestLimiter(4 * time.Second)

	if result := l.Check("1234567890"); result.ShouldBlock {
		t.Fatalf("first check blocked: %+v", result)
	}
	l.MarkFetched("1234567890")

	*current = current.Add(2 * time.Second)
	result := l.Check("1234567890")
	if !result.ShouldBlock {
		t.Fatal("second check within interval should block")
	}
	if result.Reason != "identifier_interval" {
		t.Errorf("reason = %q, want identifier_interval", result.Reason)
	}
	if result.RemainingTime != 2*time.Second {
		t.Errorf("remaining = %s, want 2s", result.RemainingTime)
	}

	*current = current.Add(3 * time.Second)
	if result := l.Check("1234567890"); result.ShouldBlock {
		t.Errorf("check after interval should pass: %+v", result)
	}
}

func TestLimiterGlobalInterval(t *testing.T) {
	l, current := newTestLimiter(4 * time.Second)

	l.MarkFetched("1234567890")
	*current = current.Add(1 * time.Second)

	result := l.Check("0987654321")
	if !result.ShouldBlock {
		t.Fatal("different identifier within global interval should block")
	}
	if result.Reason != "global_interval" {
		t.Errorf("reason = %q, want global_interval", result.Reason)
	}

	*current = current.Add(4 * time.Second)
	if result := l.Check("0987654321"); result.ShouldBlock {
		t.Errorf("check after global interval should pass: %+v", result)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(4*time.Second, true)

	l.MarkFetched("1234567890")
	result := l.Check("1234567890")
	if result.ShouldBlock {
		t.Error("disabled limiter must never block")
	}
	if result.Reason != "rate_limiting_disabled" {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestLimiterDefaultInterval(t *testing.T) {
	l := New(0, false)
	if l.minInterval != DefaultMinInterval {
		t.Errorf("minInterval = %s, want default %s", l.minInterval, DefaultMinInterval)
	}
}

func TestLimiterPassReason(t *testing.T) {
	l, _ := newTestLimiter(4 * time.Second)
	if result := l.Check("1234567890"); result.Reason != "rate_limit_passed" {
		t.Errorf("reason = %q, want rate_limit_passed", result.Reason)
	}
}
