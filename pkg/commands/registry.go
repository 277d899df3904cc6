package commands

import (
	"context"
	"errors"

	command "github.com/goliatone/go-command"
	internalcommands "github.com/goliatone/go-notification-feed/internal/commands"
	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/feed"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/goliatone/go-notification-feed/pkg/realtime"
)

// Re-export request types so consumers need not import internal packages.
type (
	MarkNotificationRead = internalcommands.MarkNotificationRead
	DismissAlert         = internalcommands.DismissAlert
	RefreshStream        = internalcommands.RefreshStream
)

// Registry exposes go-command compatible handlers backed by the engine.
type Registry struct {
	Catalog       *internalcommands.Catalog
	MarkRead      command.Commander[MarkNotificationRead]
	DismissAlert  command.Commander[DismissAlert]
	RefreshStream command.Commander[RefreshStream]
}

// Dependencies mirror the internal command dependencies but keep them public.
type Dependencies struct {
	Manager *realtime.Manager
	Logger  logger.Logger
}

var errManagerRequired = errors.New("commands: manager is required")

// New builds the registry on top of a running engine.
func New(deps Dependencies) (*Registry, error) {
	if deps.Manager == nil {
		return nil, errManagerRequired
	}
	catalog, err := internalcommands.NewCatalog(internalcommands.Dependencies{
		Reader: managerReader{deps.Manager},
		Alerts: managerAlerts{deps.Manager},
		Feed:   managerFeed{deps.Manager},
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:       catalog,
		MarkRead:      catalog.MarkRead,
		DismissAlert:  catalog.DismissAlert,
		RefreshStream: catalog.RefreshStream,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.MarkRead,
		r.DismissAlert,
		r.RefreshStream,
	}
}

type managerReader struct{ m *realtime.Manager }

func (a managerReader) MarkAsRead(ctx context.Context, source domain.Source, id int64) error {
	return a.m.MarkAsRead(ctx, source, id)
}

type managerAlerts struct{ m *realtime.Manager }

func (a managerAlerts) Dismiss(id string) { a.m.DismissAlert(id) }

type managerFeed struct{ m *realtime.Manager }

func (a managerFeed) LoadPage(ctx context.Context, source domain.Source, page, size int) (feed.Page, error) {
	return a.m.LoadPage(ctx, source, page, size)
}
