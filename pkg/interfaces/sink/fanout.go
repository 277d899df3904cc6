package sink

import (
	"context"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, notification domain.Notification) error

// Publish satisfies the Sink interface.
func (f Func) Publish(ctx context.Context, notification domain.Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, notification)
}

// Fanout forwards notifications to multiple downstream sinks.
type Fanout struct {
	targets []Sink
}

// NewFanout assembles a sink that multicasts to the provided targets.
func NewFanout(targets ...Sink) *Fanout {
	filtered := make([]Sink, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			filtered = append(filtered, target)
		}
	}
	return &Fanout{targets: filtered}
}

var _ Sink = (*Fanout)(nil)

// Publish delivers the notification to each target, returning the first
// error observed. Remaining targets still run; one failing sink never
// starves the others.
func (f *Fanout) Publish(ctx context.Context, notification domain.Notification) error {
	var firstErr error
	for _, target := range f.targets {
		if err := target.Publish(ctx, notification); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
