package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/google/uuid"
)

// DefaultTTL is how long an alert stays visible before auto dismissal.
const DefaultTTL = 5 * time.Second

// Dependencies configures the presenter.
type Dependencies struct {
	TTL    time.Duration
	Logger logger.Logger
}

// Presenter holds the ephemeral queue of transient alert entries. Every
// published notification becomes an entry that expires after the TTL or is
// dismissed explicitly, whichever comes first.
type Presenter struct {
	ttl    time.Duration
	logger logger.Logger

	mu      sync.Mutex
	entries []domain.AlertEntry
	timers  map[string]*time.Timer
}

func NewPresenter(deps Dependencies) *Presenter {
	if deps.TTL <= 0 {
		deps.TTL = DefaultTTL
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Presenter{
		ttl:    deps.TTL,
		logger: deps.Logger,
		timers: make(map[string]*time.Timer),
	}
}

// Present enqueues a transient alert for the notification and schedules its
// expiry. The returned id can be used to dismiss the alert early.
func (p *Presenter) Present(n domain.Notification) string {
	entry := domain.AlertEntry{
		ID:          uuid.NewString(),
		Kind:        n.Source,
		Title:       n.Source.DisplayTitle(),
		Message:     n.Message,
		Correlation: domain.CorrelationKey(n.Target),
		CreatedAt:   time.Now(),
	}

	p.mu.Lock()
	p.entries = append(p.entries, entry)
	p.timers[entry.ID] = time.AfterFunc(p.ttl, func() {
		p.Dismiss(entry.ID)
	})
	p.mu.Unlock()

	return entry.ID
}

// Dismiss removes the alert and cancels its expiry timer. Dismissing an
// alert that already expired is a no-op.
func (p *Presenter) Dismiss(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.timers[id]; ok {
		timer.Stop()
		delete(p.timers, id)
	}
	for i, entry := range p.entries {
		if entry.ID == id {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return
		}
	}
}

// Entries returns a snapshot of the live alerts in arrival order.
func (p *Presenter) Entries() []domain.AlertEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AlertEntry(nil), p.entries...)
}

// Clear drops every alert and stops all pending timers.
func (p *Presenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, timer := range p.timers {
		timer.Stop()
		delete(p.timers, id)
	}
	p.entries = nil
}

// Publish implements the notification sink contract.
func (p *Presenter) Publish(_ context.Context, n domain.Notification) error {
	p.Present(n)
	return nil
}
