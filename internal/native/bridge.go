package native

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	host "github.com/goliatone/go-notification-feed/pkg/interfaces/native"
)

// Dependencies wires the host notifier into the bridge.
type Dependencies struct {
	Notifier host.Notifier
	Logger   logger.Logger
}

// Bridge forwards notifications to the host notification facility. The
// permission prompt fires at most once per process; a denial silences the
// bridge for the rest of the session without surfacing errors upstream.
type Bridge struct {
	notifier host.Notifier
	logger   logger.Logger

	once sync.Once
	perm host.Permission
}

var errNotifierRequired = errors.New("native: notifier is required")

func NewBridge(deps Dependencies) (*Bridge, error) {
	if deps.Notifier == nil {
		return nil, errNotifierRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Bridge{
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}, nil
}

// Publish shows a host notification when permission allows. Host failures
// are logged and swallowed so delivery to other sinks is never blocked.
func (b *Bridge) Publish(ctx context.Context, n domain.Notification) error {
	if b.permission(ctx) != host.PermissionGranted {
		return nil
	}
	if err := b.notifier.Show(n.Source.DisplayTitle(), n.Message); err != nil {
		b.logger.Warn("host notification failed",
			logger.Field{Key: "source", Value: string(n.Source)},
			logger.Field{Key: "notification_id", Value: n.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	return nil
}

func (b *Bridge) permission(ctx context.Context) host.Permission {
	b.once.Do(func() {
		perm, err := b.notifier.RequestPermission(ctx)
		if err != nil {
			b.logger.Warn("permission request failed",
				logger.Field{Key: "error", Value: err.Error()},
			)
			b.perm = host.PermissionDenied
			return
		}
		b.perm = perm
	})
	return b.perm
}
