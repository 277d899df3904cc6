package sink

import (
	"context"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

// Sink consumes notifications freshly delivered over the push channel,
// independently of the store ingest. Typical sinks are the transient alert
// queue and the native notification bridge.
type Sink interface {
	Publish(ctx context.Context, notification domain.Notification) error
}

// Nop sink discards notifications.
type Nop struct{}

var _ Sink = (*Nop)(nil)

func (n *Nop) Publish(ctx context.Context, notification domain.Notification) error { return nil }
