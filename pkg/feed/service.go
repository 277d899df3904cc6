package feed

import (
	"context"
	"errors"

	"github.com/goliatone/go-notification-feed/internal/feed"
	"github.com/goliatone/go-notification-feed/pkg/domain"
)

// Re-export commonly used types so callers don't depend on the internal package.
type (
	Page         = feed.Page
	FetchError   = feed.FetchError
	Dependencies = feed.Dependencies
)

// Service exposes the notification store to consumers.
type Service struct {
	internal *feed.Service
}

var errServiceNotInitialised = errors.New("feed: service not initialised")

// New constructs the façade.
func New(deps Dependencies) (*Service, error) {
	internalSvc, err := feed.NewService(deps)
	if err != nil {
		return nil, err
	}
	return &Service{internal: internalSvc}, nil
}

// LoadPage fetches one stream page and applies it as ground truth.
func (s *Service) LoadPage(ctx context.Context, source domain.Source, page, size int) (Page, error) {
	if s == nil || s.internal == nil {
		return Page{}, errServiceNotInitialised
	}
	return s.internal.LoadPage(ctx, source, page, size)
}

// IngestPush inserts or updates a pushed record.
func (s *Service) IngestPush(n domain.Notification) {
	if s == nil || s.internal == nil {
		return
	}
	s.internal.IngestPush(n)
}

// MarkRead applies the local read transition.
func (s *Service) MarkRead(source domain.Source, id int64) bool {
	if s == nil || s.internal == nil {
		return false
	}
	return s.internal.MarkRead(source, id)
}

// IsRead reports the record's read flag and whether it exists.
func (s *Service) IsRead(source domain.Source, id int64) (bool, bool) {
	if s == nil || s.internal == nil {
		return false, false
	}
	return s.internal.IsRead(source, id)
}

// MergedFeed returns the newest records across both streams.
func (s *Service) MergedFeed(limit int) []domain.Notification {
	if s == nil || s.internal == nil {
		return nil
	}
	return s.internal.MergedFeed(limit)
}

// UnreadCount returns the unread total across both streams.
func (s *Service) UnreadCount() int {
	if s == nil || s.internal == nil {
		return 0
	}
	return s.internal.UnreadCount()
}

// StreamState exposes the pagination cursor for one stream.
func (s *Service) StreamState(source domain.Source) (page int, hasMore bool, loading bool) {
	if s == nil || s.internal == nil {
		return 0, false, false
	}
	return s.internal.StreamState(source)
}

// Clear drops all stored notifications.
func (s *Service) Clear() {
	if s == nil || s.internal == nil {
		return
	}
	s.internal.Clear()
}
