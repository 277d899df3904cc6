package commands

import (
	"context"
	"errors"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-notification-feed/internal/feed"
	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	MarkRead      command.Commander[MarkNotificationRead]
	DismissAlert  command.Commander[DismissAlert]
	RefreshStream command.Commander[RefreshStream]
}

type readService interface {
	MarkAsRead(ctx context.Context, source domain.Source, id int64) error
}

type alertService interface {
	Dismiss(id string)
}

type feedService interface {
	LoadPage(ctx context.Context, source domain.Source, page, size int) (feed.Page, error)
}

// Dependencies wires session services into the command catalog.
type Dependencies struct {
	Reader readService
	Alerts alertService
	Feed   feedService
	Logger logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Reader == nil {
		return nil, errors.New("commands: read service is required")
	}
	if deps.Alerts == nil {
		return nil, errors.New("commands: alert service is required")
	}
	if deps.Feed == nil {
		return nil, errors.New("commands: feed service is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	return &Catalog{
		MarkRead:      markReadCommand{svc: deps.Reader},
		DismissAlert:  dismissAlertCommand{svc: deps.Alerts},
		RefreshStream: refreshStreamCommand{svc: deps.Feed},
	}, nil
}

// MarkNotificationRead request payload.
type MarkNotificationRead struct {
	Source string `json:"source"`
	ID     int64  `json:"notification_id"`
}

type markReadCommand struct {
	svc readService
}

func (c markReadCommand) Execute(ctx context.Context, msg MarkNotificationRead) error {
	source := domain.Source(strings.TrimSpace(msg.Source))
	if !source.Valid() {
		return errors.New("commands: unknown source")
	}
	return c.svc.MarkAsRead(ctx, source, msg.ID)
}

// DismissAlert removes a transient alert before its expiry.
type DismissAlert struct {
	AlertID string `json:"alert_id"`
}

type dismissAlertCommand struct {
	svc alertService
}

func (c dismissAlertCommand) Execute(_ context.Context, msg DismissAlert) error {
	if strings.TrimSpace(msg.AlertID) == "" {
		return errors.New("commands: alert id is required")
	}
	c.svc.Dismiss(msg.AlertID)
	return nil
}

// RefreshStream fetches one stream page.
type RefreshStream struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Size   int    `json:"size"`
}

type refreshStreamCommand struct {
	svc feedService
}

func (c refreshStreamCommand) Execute(ctx context.Context, msg RefreshStream) error {
	source := domain.Source(strings.TrimSpace(msg.Source))
	if !source.Valid() {
		return errors.New("commands: unknown source")
	}
	_, err := c.svc.LoadPage(ctx, source, msg.Page, msg.Size)
	return err
}
