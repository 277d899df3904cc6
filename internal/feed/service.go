package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
)

// Page is the outcome of a paginated stream load.
type Page struct {
	Items   []domain.Notification
	HasMore bool
}

// FetchError wraps a failed stream load. The store state prior to the call
// is untouched; the caller may retry by re-invoking LoadPage.
type FetchError struct {
	Source domain.Source
	Page   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("feed: load %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Dependencies wires the HTTP collaborator and logging into the store.
type Dependencies struct {
	API    backend.API
	Logger logger.Logger
}

// Service is the authoritative, deduplicated, read-aware view over the two
// notification streams. It holds pure state plus merge logic; the only I/O
// is the collaborator call inside LoadPage.
type Service struct {
	api    backend.API
	logger logger.Logger

	mu      sync.RWMutex
	streams map[domain.Source]*stream
	unread  int
}

type stream struct {
	items   map[int64]domain.Notification
	page    int
	hasMore bool
	loading bool
}

var (
	errAPIRequired   = errors.New("feed: backend API is required")
	errUnknownSource = errors.New("feed: unknown source")
	errLoadInFlight  = errors.New("feed: load already in flight")
)

// NewService constructs the notification store.
func NewService(deps Dependencies) (*Service, error) {
	if deps.API == nil {
		return nil, errAPIRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Service{
		api:     deps.API,
		logger:  deps.Logger,
		streams: emptyStreams(),
	}, nil
}

func emptyStreams() map[domain.Source]*stream {
	out := make(map[domain.Source]*stream, 2)
	for _, source := range domain.Sources() {
		out[source] = &stream{items: make(map[int64]domain.Notification)}
	}
	return out
}

// LoadPage fetches one page for the given stream and applies it as ground
// truth: page 1 replaces the stream, later pages merge in. Fetched records
// may legitimately reset read state, this is the authoritative path.
func (s *Service) LoadPage(ctx context.Context, source domain.Source, page, size int) (Page, error) {
	if !source.Valid() {
		return Page{}, &FetchError{Source: source, Page: page, Err: errUnknownSource}
	}
	if page < 1 {
		page = 1
	}

	s.mu.Lock()
	st := s.streams[source]
	if st.loading {
		s.mu.Unlock()
		return Page{}, &FetchError{Source: source, Page: page, Err: errLoadInFlight}
	}
	st.loading = true
	s.mu.Unlock()

	result, err := s.api.FetchNotifications(ctx, source, page, size)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.loading = false
	if err != nil {
		return Page{}, &FetchError{Source: source, Page: page, Err: err}
	}

	items := make([]domain.Notification, len(result.Items))
	for i, item := range result.Items {
		item.Source = source
		items[i] = item
	}

	// Clear can run while the fetch is in flight, replacing the stream the
	// call captured. Applying the page to the orphaned stream would skew
	// the unread counter, so the result is returned but not stored.
	if s.streams[source] == st {
		if page == 1 {
			s.reset(st)
		}
		for _, item := range items {
			s.upsert(st, item, true)
		}
		st.page = page
		st.hasMore = result.HasMore
	}

	return Page{Items: items, HasMore: result.HasMore}, nil
}

// IngestPush inserts or updates a pushed record keyed by (source, id).
// Display fields are overwritten; a record already marked read is never
// downgraded back to unread, which keeps replays of stale pushes harmless.
func (s *Service) IngestPush(n domain.Notification) {
	if !n.Source.Valid() {
		s.logger.Warn("push dropped: unknown source",
			logger.Field{Key: "source", Value: string(n.Source)},
			logger.Field{Key: "notification_id", Value: n.ID},
		)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(s.streams[n.Source], n, false)
}

// MarkRead applies the optimistic local read transition. It reports whether
// state changed so the reconciler can short-circuit confirmations.
func (s *Service) MarkRead(source domain.Source, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[source]
	if !ok {
		return false
	}
	n, ok := st.items[id]
	if !ok || n.Read {
		return false
	}
	n.Read = true
	st.items[id] = n
	s.unread--
	return true
}

// IsRead reports the read flag for the record and whether the record exists.
func (s *Service) IsRead(source domain.Source, id int64) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.streams[source]
	if !ok {
		return false, false
	}
	n, ok := st.items[id]
	if !ok {
		return false, false
	}
	return n.Read, true
}

// MergedFeed returns the top limit records from the union of both streams,
// newest first. Ties on createdAt break by source then id so repeated calls
// over identical state produce identical order. The projection is
// recomputed on demand and never mutates stored state.
func (s *Service) MergedFeed(limit int) []domain.Notification {
	s.mu.RLock()
	merged := make([]domain.Notification, 0, s.size())
	for _, st := range s.streams {
		for _, n := range st.items {
			merged = append(merged, n)
		}
	}
	s.mu.RUnlock()

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// UnreadCount returns the number of unread records across both streams.
// The counter is maintained on every mutation rather than recomputed.
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// StreamState exposes the pagination cursor for one stream.
func (s *Service) StreamState(source domain.Source) (page int, hasMore bool, loading bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[source]
	if !ok {
		return 0, false, false
	}
	return st.page, st.hasMore, st.loading
}

// Clear drops all stored state. Called on session teardown.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = emptyStreams()
	s.unread = 0
}

// upsert stores the record and keeps the unread counter in step.
// Authoritative writes take the incoming read flag as ground truth; push
// writes inherit a previously read flag instead of downgrading it.
func (s *Service) upsert(st *stream, n domain.Notification, authoritative bool) {
	prev, exists := st.items[n.ID]
	if exists && !authoritative && prev.Read {
		n.Read = true
	}
	switch {
	case !exists && !n.Read:
		s.unread++
	case exists && prev.Read && !n.Read:
		s.unread++
	case exists && !prev.Read && n.Read:
		s.unread--
	}
	st.items[n.ID] = n
}

// reset empties one stream, settling the counter for its unread records.
func (s *Service) reset(st *stream) {
	for _, n := range st.items {
		if !n.Read {
			s.unread--
		}
	}
	st.items = make(map[int64]domain.Notification)
	st.page = 0
	st.hasMore = false
}

func (s *Service) size() int {
	total := 0
	for _, st := range s.streams {
		total += len(st.items)
	}
	return total
}
