package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

func TestFanoutDeliversToAllTargets(t *testing.T) {
	var first, second []domain.Notification
	fanout := NewFanout(
		Func(func(_ context.Context, n domain.Notification) error {
			first = append(first, n)
			return nil
		}),
		nil,
		Func(func(_ context.Context, n domain.Notification) error {
			second = append(second, n)
			return nil
		}),
	)

	n := domain.Notification{ID: 1, Source: domain.SourcePersonal}
	if err := fanout.Publish(context.Background(), n); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both targets to receive, got %d and %d", len(first), len(second))
	}
}

func TestFanoutFailingTargetDoesNotStarveOthers(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	fanout := NewFanout(
		Func(func(_ context.Context, _ domain.Notification) error { return boom }),
		Func(func(_ context.Context, _ domain.Notification) error {
			delivered++
			return nil
		}),
	)

	err := fanout.Publish(context.Background(), domain.Notification{ID: 2, Source: domain.SourceRole})
	if !errors.Is(err, boom) {
		t.Fatalf("expected first error surfaced, got %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected later target to run, got %d", delivered)
	}
}

func TestNilFuncIsNoop(t *testing.T) {
	var f Func
	if err := f.Publish(context.Background(), domain.Notification{}); err != nil {
		t.Fatalf("nil func: %v", err)
	}
}
