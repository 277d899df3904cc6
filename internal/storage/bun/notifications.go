package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound signals a missing record.
var ErrNotFound = errors.New("bunrepo: record not found")

// FeedRecord is the persisted shape of a feed notification. Seq is the
// per-source wire identifier exposed to clients; ID is the storage key.
type FeedRecord struct {
	bun.BaseModel `bun:"table:feed_notifications,alias:fn"`

	ID        uuid.UUID      `bun:"id,pk,type:uuid"`
	Seq       int64          `bun:"seq,notnull"`
	Source    string         `bun:"source,notnull"`
	Audience  string         `bun:"audience,notnull"`
	Type      string         `bun:"type,nullzero"`
	Message   string         `bun:"message,nullzero"`
	Target    domain.JSONMap `bun:"target,type:jsonb"`
	IsRead    bool           `bun:"is_read"`
	ReadAt    time.Time      `bun:"read_at,nullzero"`
	CreatedAt time.Time      `bun:"created_at,nullzero"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero"`
	DeletedAt time.Time      `bun:"deleted_at,soft_delete,nullzero"`
}

// Notification converts the record into wire form.
func (r *FeedRecord) Notification() domain.Notification {
	return domain.Notification{
		ID:        r.Seq,
		Source:    domain.Source(r.Source),
		Type:      r.Type,
		Message:   r.Message,
		Target:    r.Target,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt,
	}
}

// NotificationRepository persists feed notifications for the demo backend.
type NotificationRepository struct {
	repo repository.Repository[*FeedRecord]
	db   *bun.DB
}

func NewNotificationRepository(db *bun.DB) *NotificationRepository {
	handlers := repository.ModelHandlers[*FeedRecord]{
		NewRecord:          func() *FeedRecord { return &FeedRecord{} },
		GetID:              func(r *FeedRecord) uuid.UUID { return r.ID },
		SetID:              func(r *FeedRecord, id uuid.UUID) { r.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(r *FeedRecord) string { return r.ID.String() },
	}
	return &NotificationRepository{
		repo: repository.MustNewRepository[*FeedRecord](db, handlers),
		db:   db,
	}
}

// Create stores the record, assigning the storage key and the next
// per-source sequence number when missing.
func (r *NotificationRepository) Create(ctx context.Context, record *FeedRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if record.Seq == 0 {
		seq, err := r.nextSeq(ctx, record.Source)
		if err != nil {
			return err
		}
		record.Seq = seq
	}
	_, err := r.repo.Create(ctx, record)
	return mapError(err)
}

// ListBySource returns one page of a stream, newest first, plus whether
// older records remain. The audience filter scopes personal streams.
func (r *NotificationRepository) ListBySource(ctx context.Context, source, audience string, page, size int) ([]FeedRecord, bool, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("source = ?", source)
			if audience != "" {
				q = q.Where("audience = ?", audience)
			}
			return q.
				Order("created_at DESC", "seq DESC").
				Limit(size + 1).
				Offset((page - 1) * size)
		},
	}
	records, _, err := r.repo.List(ctx, criteria...)
	if err != nil {
		return nil, false, mapError(err)
	}

	hasMore := len(records) > size
	if hasMore {
		records = records[:size]
	}
	items := make([]FeedRecord, len(records))
	for i, rec := range records {
		items[i] = *rec
	}
	return items, hasMore, nil
}

// MarkRead flags the record as read. Marking an unknown or already read
// record is a no-op so confirmations stay idempotent.
func (r *NotificationRepository) MarkRead(ctx context.Context, source string, seq int64) error {
	now := time.Now().UTC()
	_, err := r.db.
		NewUpdate().
		Model((*FeedRecord)(nil)).
		Set("is_read = ?", true).
		Set("read_at = ?", now).
		Set("updated_at = ?", now).
		Where("source = ?", source).
		Where("seq = ?", seq).
		Exec(ctx)
	return mapError(err)
}

// CountUnread returns the unread total for one stream.
func (r *NotificationRepository) CountUnread(ctx context.Context, source, audience string) (int, error) {
	q := r.db.
		NewSelect().
		Model((*FeedRecord)(nil)).
		Where("source = ?", source).
		Where("is_read = FALSE")
	if audience != "" {
		q = q.Where("audience = ?", audience)
	}
	count, err := q.Count(ctx)
	return count, mapError(err)
}

func (r *NotificationRepository) nextSeq(ctx context.Context, source string) (int64, error) {
	var max sql.NullInt64
	err := r.db.
		NewSelect().
		Model((*FeedRecord)(nil)).
		ColumnExpr("MAX(seq)").
		Where("source = ?", source).
		Scan(ctx, &max)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, mapError(err)
	}
	return max.Int64 + 1, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return ErrNotFound
	}
	return err
}
