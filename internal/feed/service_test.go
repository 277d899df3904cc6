package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
)

type fakeAPI struct {
	pages     map[string]backend.ListPage
	err       error
	calls     int
	confirmed []domain.Key
}

func (f *fakeAPI) FetchNotifications(_ context.Context, source domain.Source, page, _ int) (backend.ListPage, error) {
	f.calls++
	if f.err != nil {
		return backend.ListPage{}, f.err
	}
	return f.pages[pageKey(source, page)], nil
}

func (f *fakeAPI) ConfirmRead(_ context.Context, source domain.Source, id int64) error {
	f.confirmed = append(f.confirmed, domain.Key{Source: source, ID: id})
	return nil
}

func pageKey(source domain.Source, page int) string {
	return fmt.Sprintf("%s:%d", source, page)
}

func newTestService(t *testing.T, api backend.API) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{API: api})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func notif(source domain.Source, id int64, read bool, at time.Time) domain.Notification {
	return domain.Notification{
		ID:        id,
		Source:    source,
		Type:      domain.TypeGeneral,
		Message:   "msg",
		Read:      read,
		CreatedAt: at,
	}
}

func TestLoadPageCountsUnread(t *testing.T) {
	base := time.Now()
	api := &fakeAPI{pages: map[string]backend.ListPage{
		pageKey(domain.SourcePersonal, 1): {
			Items: []domain.Notification{
				notif(domain.SourcePersonal, 1, false, base),
				notif(domain.SourcePersonal, 2, true, base.Add(-time.Minute)),
			},
		},
		pageKey(domain.SourceRole, 1): {
			Items: []domain.Notification{
				notif(domain.SourceRole, 1, false, base.Add(-2*time.Minute)),
			},
		},
	}}
	svc := newTestService(t, api)

	ctx := context.Background()
	if _, err := svc.LoadPage(ctx, domain.SourcePersonal, 1, 20); err != nil {
		t.Fatalf("load personal: %v", err)
	}
	if _, err := svc.LoadPage(ctx, domain.SourceRole, 1, 20); err != nil {
		t.Fatalf("load role: %v", err)
	}
	if got := svc.UnreadCount(); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}
}

func TestNotificationsWithSameIDAcrossSourcesAreDistinct(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})

	svc.IngestPush(notif(domain.SourcePersonal, 7, false, base))
	svc.IngestPush(notif(domain.SourceRole, 7, false, base))

	if got := len(svc.MergedFeed(0)); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}
	if got := svc.UnreadCount(); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}

	if !svc.MarkRead(domain.SourcePersonal, 7) {
		t.Fatalf("expected personal record to transition")
	}
	if read, _ := svc.IsRead(domain.SourceRole, 7); read {
		t.Fatalf("role record should remain unread")
	}
	if got := svc.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}
}

func TestIngestPushDeduplicates(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})

	svc.IngestPush(notif(domain.SourcePersonal, 3, false, base))
	svc.IngestPush(notif(domain.SourcePersonal, 3, false, base))

	if got := len(svc.MergedFeed(0)); got != 1 {
		t.Fatalf("expected replayed push to collapse, got %d records", got)
	}
	if got := svc.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}
}

func TestPushNeverDowngradesReadState(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})

	svc.IngestPush(notif(domain.SourcePersonal, 5, false, base))
	if !svc.MarkRead(domain.SourcePersonal, 5) {
		t.Fatalf("mark read failed")
	}

	stale := notif(domain.SourcePersonal, 5, false, base)
	stale.Message = "updated"
	svc.IngestPush(stale)

	read, exists := svc.IsRead(domain.SourcePersonal, 5)
	if !exists || !read {
		t.Fatalf("replayed push must not downgrade read state")
	}
	if got := svc.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread, got %d", got)
	}
	if feed := svc.MergedFeed(0); feed[0].Message != "updated" {
		t.Fatalf("display fields should refresh, got %q", feed[0].Message)
	}
}

func TestAuthoritativeReloadResetsReadState(t *testing.T) {
	base := time.Now()
	api := &fakeAPI{pages: map[string]backend.ListPage{
		pageKey(domain.SourcePersonal, 1): {
			Items: []domain.Notification{notif(domain.SourcePersonal, 9, false, base)},
		},
	}}
	svc := newTestService(t, api)

	ctx := context.Background()
	if _, err := svc.LoadPage(ctx, domain.SourcePersonal, 1, 20); err != nil {
		t.Fatalf("load: %v", err)
	}
	svc.MarkRead(domain.SourcePersonal, 9)

	// Backend still reports the record unread; page 1 is ground truth.
	if _, err := svc.LoadPage(ctx, domain.SourcePersonal, 1, 20); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if read, _ := svc.IsRead(domain.SourcePersonal, 9); read {
		t.Fatalf("authoritative reload should take backend read state")
	}
	if got := svc.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread after reload, got %d", got)
	}
}

func TestMergedFeedOrderingStable(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})

	svc.IngestPush(notif(domain.SourceRole, 2, false, base))
	svc.IngestPush(notif(domain.SourcePersonal, 4, false, base))
	svc.IngestPush(notif(domain.SourcePersonal, 1, false, base.Add(time.Minute)))
	svc.IngestPush(notif(domain.SourceRole, 8, false, base.Add(-time.Minute)))

	first := svc.MergedFeed(0)
	second := svc.MergedFeed(0)
	if len(first) != 4 {
		t.Fatalf("expected 4 records, got %d", len(first))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Fatalf("ordering must be deterministic, diverged at %d", i)
		}
	}
	if first[0].ID != 1 || first[0].Source != domain.SourcePersonal {
		t.Fatalf("newest record should lead, got %+v", first[0])
	}
	// Same timestamp: personal sorts ahead of role.
	if first[1].Source != domain.SourcePersonal || first[2].Source != domain.SourceRole {
		t.Fatalf("tie break should order by source, got %s then %s", first[1].Source, first[2].Source)
	}
	if first[3].ID != 8 {
		t.Fatalf("oldest record should trail, got %+v", first[3])
	}
}

func TestMergedFeedLimit(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})
	for i := int64(1); i <= 5; i++ {
		svc.IngestPush(notif(domain.SourcePersonal, i, false, base.Add(time.Duration(i)*time.Second)))
	}
	if got := len(svc.MergedFeed(3)); got != 3 {
		t.Fatalf("expected limit of 3, got %d", got)
	}
}

func TestLoadPageFailurePreservesState(t *testing.T) {
	base := time.Now()
	svc := newTestService(t, &fakeAPI{})
	svc.IngestPush(notif(domain.SourcePersonal, 1, false, base))

	failing := &fakeAPI{err: errors.New("boom")}
	svc2 := newTestService(t, failing)
	svc2.IngestPush(notif(domain.SourcePersonal, 1, false, base))

	_, err := svc2.LoadPage(context.Background(), domain.SourcePersonal, 1, 20)
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.Source != domain.SourcePersonal || fetchErr.Page != 1 {
		t.Fatalf("unexpected error detail: %+v", fetchErr)
	}
	if got := len(svc2.MergedFeed(0)); got != 1 {
		t.Fatalf("failed load must not lose state, got %d records", got)
	}
	if got := svc2.UnreadCount(); got != 1 {
		t.Fatalf("unread count must survive failed load, got %d", got)
	}
}

func TestLoadPageRejectsConcurrentLoad(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})
	st := svc.streams[domain.SourcePersonal]
	st.loading = true

	_, err := svc.LoadPage(context.Background(), domain.SourcePersonal, 1, 20)
	if !errors.Is(err, errLoadInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
}

func TestLoadPageUnknownSource(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})
	if _, err := svc.LoadPage(context.Background(), domain.Source("mystery"), 1, 20); !errors.Is(err, errUnknownSource) {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}

func TestStreamStateTracksPagination(t *testing.T) {
	base := time.Now()
	api := &fakeAPI{pages: map[string]backend.ListPage{
		pageKey(domain.SourceRole, 1): {
			Items:   []domain.Notification{notif(domain.SourceRole, 1, false, base)},
			HasMore: true,
		},
		pageKey(domain.SourceRole, 2): {
			Items: []domain.Notification{notif(domain.SourceRole, 2, false, base.Add(-time.Hour))},
		},
	}}
	svc := newTestService(t, api)
	ctx := context.Background()

	result, err := svc.LoadPage(ctx, domain.SourceRole, 1, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if !result.HasMore {
		t.Fatalf("expected more pages")
	}
	page, hasMore, _ := svc.StreamState(domain.SourceRole)
	if page != 1 || !hasMore {
		t.Fatalf("expected page=1 hasMore=true, got page=%d hasMore=%v", page, hasMore)
	}

	result, err = svc.LoadPage(ctx, domain.SourceRole, 2, 1)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if result.HasMore {
		t.Fatalf("expected exhausted stream")
	}
	page, hasMore, _ = svc.StreamState(domain.SourceRole)
	if page != 2 || hasMore {
		t.Fatalf("expected page=2 hasMore=false, got page=%d hasMore=%v", page, hasMore)
	}
	// Page 2 merges in; page 1 records remain.
	if got := len(svc.MergedFeed(0)); got != 2 {
		t.Fatalf("expected both pages merged, got %d", got)
	}
}

type blockingAPI struct {
	started chan struct{}
	release chan struct{}
	page    backend.ListPage
}

func (b *blockingAPI) FetchNotifications(_ context.Context, _ domain.Source, _, _ int) (backend.ListPage, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return b.page, nil
}

func (b *blockingAPI) ConfirmRead(_ context.Context, _ domain.Source, _ int64) error {
	return nil
}

func TestClearDuringLoadDoesNotCorruptUnreadCount(t *testing.T) {
	base := time.Now()
	api := &blockingAPI{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		page: backend.ListPage{Items: []domain.Notification{
			notif(domain.SourcePersonal, 1, false, base),
		}},
	}
	svc := newTestService(t, api)

	type outcome struct {
		page Page
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		p, err := svc.LoadPage(context.Background(), domain.SourcePersonal, 1, 20)
		done <- outcome{page: p, err: err}
	}()

	<-api.started
	svc.Clear()
	close(api.release)

	result := <-done
	if result.err != nil {
		t.Fatalf("load: %v", result.err)
	}
	if len(result.page.Items) != 1 {
		t.Fatalf("fetched page should still be returned, got %d items", len(result.page.Items))
	}

	// The cleared store must stay empty and the counter must agree with it.
	if got := len(svc.MergedFeed(0)); got != 0 {
		t.Fatalf("expected empty store after clear, got %d records", got)
	}
	if got := svc.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread after clear, got %d", got)
	}

	// Later loads are unaffected by the discarded page.
	if _, err := svc.LoadPage(context.Background(), domain.SourcePersonal, 1, 20); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := svc.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread after reload, got %d", got)
	}
	if got := len(svc.MergedFeed(0)); got != 1 {
		t.Fatalf("expected 1 record after reload, got %d", got)
	}
}

func TestLoadPageStampsSourceOnReturnedItems(t *testing.T) {
	base := time.Now()
	// Backend omits the source field on wire items.
	bare := notif(domain.SourcePersonal, 6, false, base)
	bare.Source = ""
	api := &fakeAPI{pages: map[string]backend.ListPage{
		pageKey(domain.SourcePersonal, 1): {Items: []domain.Notification{bare}},
	}}
	svc := newTestService(t, api)

	result, err := svc.LoadPage(context.Background(), domain.SourcePersonal, 1, 20)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Source != domain.SourcePersonal {
		t.Fatalf("returned items must carry the stream source, got %+v", result.Items)
	}
	if _, exists := svc.IsRead(domain.SourcePersonal, 6); !exists {
		t.Fatalf("stored record missing")
	}
}

func TestClearDropsEverything(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})
	svc.IngestPush(notif(domain.SourcePersonal, 1, false, time.Now()))
	svc.Clear()

	if got := len(svc.MergedFeed(0)); got != 0 {
		t.Fatalf("expected empty feed after clear, got %d", got)
	}
	if got := svc.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread after clear, got %d", got)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	svc := newTestService(t, &fakeAPI{})
	svc.IngestPush(notif(domain.SourceRole, 11, false, time.Now()))

	if !svc.MarkRead(domain.SourceRole, 11) {
		t.Fatalf("first transition should report change")
	}
	if svc.MarkRead(domain.SourceRole, 11) {
		t.Fatalf("second transition should be a no-op")
	}
	if svc.MarkRead(domain.SourceRole, 404) {
		t.Fatalf("unknown record should be a no-op")
	}
	if got := svc.UnreadCount(); got != 0 {
		t.Fatalf("expected unread 0, got %d", got)
	}
}

func TestNewServiceRequiresAPI(t *testing.T) {
	if _, err := NewService(Dependencies{}); !errors.Is(err, errAPIRequired) {
		t.Fatalf("expected API requirement error, got %v", err)
	}
}
