package bunrepo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.DriverName(), "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	if _, err := db.NewCreateTable().
		Model((*FeedRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		db.NewDropTable().Model((*FeedRecord)(nil)).IfExists().Exec(ctx)
		db.Close()
	})
	return db
}

func seedRecord(t *testing.T, repo *NotificationRepository, source, message string, at time.Time) *FeedRecord {
	t.Helper()
	record := &FeedRecord{
		Source:    source,
		Audience:  "user-1",
		Type:      domain.TypeGeneral,
		Message:   message,
		CreatedAt: at,
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("create: %v", err)
	}
	return record
}

func TestCreateAssignsSequencePerSource(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	now := time.Now().UTC()

	p1 := seedRecord(t, repo, "personal", "first", now)
	p2 := seedRecord(t, repo, "personal", "second", now.Add(time.Second))
	r1 := seedRecord(t, repo, "role", "third", now.Add(2*time.Second))

	if p1.Seq != 1 || p2.Seq != 2 {
		t.Fatalf("expected personal seq 1,2, got %d,%d", p1.Seq, p2.Seq)
	}
	if r1.Seq != 1 {
		t.Fatalf("sequences must be per source, got %d", r1.Seq)
	}
}

func TestListBySourcePaginatesNewestFirst(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		seedRecord(t, repo, "personal", "msg", base.Add(time.Duration(i)*time.Minute))
	}

	records, hasMore, err := repo.ListBySource(context.Background(), "personal", "user-1", 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || !hasMore {
		t.Fatalf("expected 2 records with more, got %d hasMore=%v", len(records), hasMore)
	}
	if records[0].Seq != 5 || records[1].Seq != 4 {
		t.Fatalf("expected newest first, got %d then %d", records[0].Seq, records[1].Seq)
	}

	records, hasMore, err = repo.ListBySource(context.Background(), "personal", "user-1", 3, 2)
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(records) != 1 || hasMore {
		t.Fatalf("expected final page of 1, got %d hasMore=%v", len(records), hasMore)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	record := seedRecord(t, repo, "role", "read me", time.Now().UTC())

	if err := repo.MarkRead(ctx, "role", record.Seq); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.MarkRead(ctx, "role", record.Seq); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	// Unknown records are also a no-op.
	if err := repo.MarkRead(ctx, "role", 999); err != nil {
		t.Fatalf("unknown mark read: %v", err)
	}

	count, err := repo.CountUnread(ctx, "role", "user-1")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}

func TestCountUnread(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewNotificationRepository(db)
	base := time.Now().UTC()

	seedRecord(t, repo, "personal", "a", base)
	seedRecord(t, repo, "personal", "b", base.Add(time.Second))
	record := seedRecord(t, repo, "personal", "c", base.Add(2*time.Second))

	if err := repo.MarkRead(context.Background(), "personal", record.Seq); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, err := repo.CountUnread(context.Background(), "personal", "user-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}
}

func TestNotificationConversion(t *testing.T) {
	record := &FeedRecord{
		Seq:     7,
		Source:  "role",
		Type:    domain.TypeDesignReady,
		Message: "design approved",
		Target:  domain.JSONMap{"order_code": "ORD-7"},
		IsRead:  true,
	}
	n := record.Notification()
	if n.ID != 7 || n.Source != domain.SourceRole || !n.Read {
		t.Fatalf("unexpected conversion: %+v", n)
	}
	if domain.CorrelationKey(n.Target) != "ORD-7" {
		t.Fatalf("expected correlation key preserved")
	}
}
