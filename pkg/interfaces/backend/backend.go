package backend

import (
	"context"

	"github.com/goliatone/go-notification-feed/pkg/domain"
)

// ListPage is one page of a paginated stream fetch.
type ListPage struct {
	Items   []domain.Notification `json:"items"`
	HasMore bool                  `json:"has_more"`
}

// API is the HTTP collaborator serving the two notification streams and the
// read confirmation endpoint. Both operations are independently callable per
// source; ConfirmRead is idempotent on the backend side.
type API interface {
	FetchNotifications(ctx context.Context, source domain.Source, page, size int) (ListPage, error)
	ConfirmRead(ctx context.Context, source domain.Source, id int64) error
}

// Nop returns empty pages and acknowledges confirmations.
type Nop struct{}

var _ API = (*Nop)(nil)

func (n *Nop) FetchNotifications(ctx context.Context, source domain.Source, page, size int) (ListPage, error) {
	return ListPage{}, nil
}

func (n *Nop) ConfirmRead(ctx context.Context, source domain.Source, id int64) error {
	return nil
}
