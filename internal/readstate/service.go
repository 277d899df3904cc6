package readstate

import (
	"context"
	"errors"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
)

// Store is the slice of the notification store the reconciler needs.
type Store interface {
	IsRead(source domain.Source, id int64) (read bool, exists bool)
	MarkRead(source domain.Source, id int64) bool
}

// Dependencies wires the local store and remote confirmation endpoint.
type Dependencies struct {
	Store  Store
	API    backend.API
	Logger logger.Logger
}

// Service applies read transitions optimistically and confirms them with
// the backend best-effort. A failed confirmation never rolls back local
// state; the next authoritative page load reconciles any divergence.
type Service struct {
	store  Store
	api    backend.API
	logger logger.Logger
}

var (
	errStoreRequired = errors.New("readstate: store is required")
	errAPIRequired   = errors.New("readstate: backend API is required")
)

func NewService(deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, errStoreRequired
	}
	if deps.API == nil {
		return nil, errAPIRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Service{
		store:  deps.Store,
		api:    deps.API,
		logger: deps.Logger,
	}, nil
}

// MarkAsRead transitions the record to read locally, then confirms with the
// backend. Records already read, or unknown locally, skip the remote call.
func (s *Service) MarkAsRead(ctx context.Context, source domain.Source, id int64) error {
	if read, exists := s.store.IsRead(source, id); !exists || read {
		return nil
	}
	if !s.store.MarkRead(source, id) {
		return nil
	}

	if err := s.api.ConfirmRead(ctx, source, id); err != nil {
		s.logger.Warn("read confirmation failed, keeping optimistic state",
			logger.Field{Key: "source", Value: string(source)},
			logger.Field{Key: "notification_id", Value: id},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	return nil
}
