package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

func testNotification(source domain.Source) domain.Notification {
	return domain.Notification{
		ID:      1,
		Source:  source,
		Type:    domain.TypeOrderStatusChanged,
		Message: "order 42 moved to production",
		Target:  domain.JSONMap{"order_code": "ORD-42"},
	}
}

func TestPresentEnqueuesEntry(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: time.Minute})
	defer p.Clear()

	id := p.Present(testNotification(domain.SourceRole))
	if id == "" {
		t.Fatalf("expected alert id")
	}

	entries := p.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Title != "Team update" {
		t.Fatalf("expected role title, got %q", entry.Title)
	}
	if entry.Correlation != "ORD-42" {
		t.Fatalf("expected correlation key, got %q", entry.Correlation)
	}
	if entry.Kind != domain.SourceRole {
		t.Fatalf("expected role kind, got %q", entry.Kind)
	}
}

func TestDismissRemovesEntry(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: time.Minute})
	defer p.Clear()

	id := p.Present(testNotification(domain.SourcePersonal))
	p.Dismiss(id)
	if got := len(p.Entries()); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}

	// Dismissing again is harmless.
	p.Dismiss(id)
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: 20 * time.Millisecond})
	defer p.Clear()

	p.Present(testNotification(domain.SourcePersonal))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(p.Entries()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("alert did not expire")
}

func TestDismissAfterExpiryIsNoop(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: 20 * time.Millisecond})
	defer p.Clear()

	id := p.Present(testNotification(domain.SourceRole))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(p.Entries()) > 0 {
		time.Sleep(5 * time.Millisecond)
	}

	p.Dismiss(id)
	if got := len(p.Entries()); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
}

func TestClearStopsTimers(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: time.Minute})
	p.Present(testNotification(domain.SourcePersonal))
	p.Present(testNotification(domain.SourceRole))
	p.Clear()

	if got := len(p.Entries()); got != 0 {
		t.Fatalf("expected empty queue after clear, got %d", got)
	}
	if got := len(p.timers); got != 0 {
		t.Fatalf("expected no pending timers, got %d", got)
	}
}

func TestPublishImplementsSink(t *testing.T) {
	p := NewPresenter(Dependencies{TTL: time.Minute})
	defer p.Clear()

	if err := p.Publish(context.Background(), testNotification(domain.SourcePersonal)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := len(p.Entries()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestDefaultTTLApplied(t *testing.T) {
	p := NewPresenter(Dependencies{})
	if p.ttl != DefaultTTL {
		t.Fatalf("expected default TTL %s, got %s", DefaultTTL, p.ttl)
	}
}
