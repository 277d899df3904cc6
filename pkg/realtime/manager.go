package realtime

import (
	"context"
	"errors"
	"reflect"

	"github.com/goliatone/go-notification-feed/internal/alerts"
	"github.com/goliatone/go-notification-feed/internal/connection"
	"github.com/goliatone/go-notification-feed/internal/feed"
	nativebridge "github.com/goliatone/go-notification-feed/internal/native"
	"github.com/goliatone/go-notification-feed/internal/readstate"
	"github.com/goliatone/go-notification-feed/pkg/config"
	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/channel"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/native"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/sink"
	"github.com/goliatone/go-notification-feed/pkg/retry"
)

// Dependencies wires the transport, backend, and host integrations that the
// engine composes into a running session.
type Dependencies struct {
	API      backend.API
	Dialer   channel.Dialer
	Notifier native.Notifier
	Logger   logger.Logger
	Config   config.Config
}

// Manager is the top-level entry point: one instance owns the notification
// store, the alert queue, the optional native bridge, and the push
// connection for a single user session.
type Manager struct {
	feed       *feed.Service
	alerts     *alerts.Presenter
	readstate  *readstate.Service
	connection *connection.Manager
	logger     logger.Logger
}

var (
	errAPIRequired    = errors.New("realtime: backend API is required")
	errDialerRequired = errors.New("realtime: dialer is required")
)

// New builds the engine. The native bridge is only wired when enabled; the
// alert queue is always a fan-out target for pushed notifications.
func New(deps Dependencies) (*Manager, error) {
	if deps.API == nil {
		return nil, errAPIRequired
	}
	if deps.Dialer == nil {
		return nil, errDialerRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	cfg := deps.Config
	if reflect.ValueOf(cfg).IsZero() {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	feedSvc, err := feed.NewService(feed.Dependencies{
		API:    deps.API,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	presenter := alerts.NewPresenter(alerts.Dependencies{
		TTL:    cfg.Alerts.TTL,
		Logger: deps.Logger,
	})

	targets := []sink.Sink{presenter}
	if cfg.Native.IsEnabled() && deps.Notifier != nil {
		bridge, err := nativebridge.NewBridge(nativebridge.Dependencies{
			Notifier: deps.Notifier,
			Logger:   deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, bridge)
	}

	conn, err := connection.New(connection.Dependencies{
		Dialer: deps.Dialer,
		Store:  feedSvc,
		Sink:   sink.NewFanout(targets...),
		Logger: deps.Logger,
		Config: connection.Config{
			PageSize:    cfg.Streams.PageSize,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
			Backoff:     retry.FixedBackoff{Delay: cfg.Reconnect.Delay},
		},
	})
	if err != nil {
		return nil, err
	}

	reader, err := readstate.NewService(readstate.Dependencies{
		Store:  feedSvc,
		API:    deps.API,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Manager{
		feed:       feedSvc,
		alerts:     presenter,
		readstate:  reader,
		connection: conn,
		logger:     deps.Logger,
	}, nil
}

// SessionStart connects the push channel for the credential and refreshes
// both streams. Safe to call repeatedly; only the first call acts.
func (m *Manager) SessionStart(ctx context.Context, credential string) {
	m.connection.SessionStart(ctx, credential)
}

// SessionEnd disconnects and drops all session state, including any live
// alerts. Idempotent.
func (m *Manager) SessionEnd() {
	m.connection.SessionEnd()
	m.alerts.Clear()
}

// State reports the push connection state.
func (m *Manager) State() domain.ConnectionState {
	return m.connection.State()
}

// Feed returns the newest limit records merged across both streams.
func (m *Manager) Feed(limit int) []domain.Notification {
	return m.feed.MergedFeed(limit)
}

// UnreadCount returns the unread total across both streams.
func (m *Manager) UnreadCount() int {
	return m.feed.UnreadCount()
}

// LoadPage fetches an additional page for one stream.
func (m *Manager) LoadPage(ctx context.Context, source domain.Source, page, size int) (feed.Page, error) {
	return m.feed.LoadPage(ctx, source, page, size)
}

// StreamState exposes the pagination cursor for one stream.
func (m *Manager) StreamState(source domain.Source) (page int, hasMore bool, loading bool) {
	return m.feed.StreamState(source)
}

// MarkAsRead marks the record read locally and confirms with the backend.
func (m *Manager) MarkAsRead(ctx context.Context, source domain.Source, id int64) error {
	return m.readstate.MarkAsRead(ctx, source, id)
}

// Alerts returns the live transient alerts in arrival order.
func (m *Manager) Alerts() []domain.AlertEntry {
	return m.alerts.Entries()
}

// DismissAlert removes a transient alert before it expires.
func (m *Manager) DismissAlert(id string) {
	m.alerts.Dismiss(id)
}
