package console

import (
	"context"

	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/native"
)

// Notifier renders native notifications to the log. Useful for headless
// hosts and demos; permission is always granted.
type Notifier struct {
	logger logger.Logger
}

// New builds the console notifier.
func New(log logger.Logger) *Notifier {
	if log == nil {
		log = &logger.Nop{}
	}
	return &Notifier{logger: log}
}

// RequestPermission always grants.
func (n *Notifier) RequestPermission(_ context.Context) (native.Permission, error) {
	return native.PermissionGranted, nil
}

// Show writes the notification to the log.
func (n *Notifier) Show(title, body string) error {
	n.logger.Info("notification",
		logger.Field{Key: "title", Value: title},
		logger.Field{Key: "body", Value: body},
	)
	return nil
}
