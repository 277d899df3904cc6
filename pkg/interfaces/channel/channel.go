package channel

import (
	"context"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

// Message is the discriminated event emitted by the push channel. Every
// inbound message carries an explicit source so the connection manager can
// route it to the owning stream.
type Message struct {
	Source         domain.Source  `json:"source"`
	NotificationID int64          `json:"notification_id"`
	Type           string         `json:"type"`
	Message        string         `json:"message"`
	Target         domain.JSONMap `json:"target,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Notification converts the wire event into an unread feed record.
func (m Message) Notification() domain.Notification {
	return domain.Notification{
		ID:        m.NotificationID,
		Source:    m.Source,
		Type:      m.Type,
		Message:   m.Message,
		Target:    m.Target,
		CreatedAt: m.CreatedAt,
	}
}

// Conn is a single live push connection. Receive blocks until the next
// event or a transport error; Close unblocks a pending Receive.
type Conn interface {
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Dialer opens push connections authenticated with a bearer credential.
type Dialer interface {
	Dial(ctx context.Context, credential string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, credential string) (Conn, error)

// Dial satisfies the Dialer interface.
func (f DialerFunc) Dial(ctx context.Context, credential string) (Conn, error) {
	return f(ctx, credential)
}
