package retry

import (
	"testing"
	"time"
)

func TestFixedBackoff(t *testing.T) {
	b := FixedBackoff{Delay: 2 * time.Second}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := b.Next(attempt); got != 2*time.Second {
			t.Fatalf("attempt %d: expected fixed delay, got %s", attempt, got)
		}
	}
	if got := (FixedBackoff{}).Next(1); got != time.Second {
		t.Fatalf("expected fallback delay, got %s", got)
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond, Max: time.Second}
	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, want := range expected {
		if got := b.Next(i + 1); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, want, got)
		}
	}
}
