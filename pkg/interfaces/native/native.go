package native

import "context"

// Permission mirrors the host environment's notification permission states.
type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// Notifier is the host environment's notification surface. RequestPermission
// is expected to prompt at most once; repeated calls return the settled state.
type Notifier interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Show(title, body string) error
}

// Nop never grants permission and discards notifications.
type Nop struct{}

var _ Notifier = (*Nop)(nil)

func (n *Nop) RequestPermission(ctx context.Context) (Permission, error) {
	return PermissionDenied, nil
}

func (n *Nop) Show(title, body string) error { return nil }
