package connection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	masker "github.com/goliatone/go-masker"
	"github.com/goliatone/go-notification-feed/internal/feed"
	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/channel"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/logger"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/sink"
	"github.com/goliatone/go-notification-feed/pkg/retry"
)

// Store is the slice of the notification store the manager drives.
type Store interface {
	LoadPage(ctx context.Context, source domain.Source, page, size int) (feed.Page, error)
	IngestPush(n domain.Notification)
	Clear()
}

// Config tunes the connection lifecycle.
type Config struct {
	PageSize    int
	MaxAttempts int
	Backoff     retry.Backoff
}

// Dependencies wires transport, store, and fan-out targets into the manager.
type Dependencies struct {
	Dialer channel.Dialer
	Store  Store
	Sink   sink.Sink
	Logger logger.Logger
	Config Config
}

// Manager owns the push connection lifecycle: dial, initial stream refresh,
// receive loop, and bounded reconnection. State transitions are serialized
// under the mutex; the receive loop runs on its own goroutine.
type Manager struct {
	dialer channel.Dialer
	store  Store
	sink   sink.Sink
	logger logger.Logger
	config Config

	mu     sync.Mutex
	state  domain.ConnectionState
	cancel context.CancelFunc
	conn   channel.Conn
	wg     sync.WaitGroup
}

var (
	errDialerRequired = errors.New("connection: dialer is required")
	errStoreRequired  = errors.New("connection: store is required")
)

func New(deps Dependencies) (*Manager, error) {
	if deps.Dialer == nil {
		return nil, errDialerRequired
	}
	if deps.Store == nil {
		return nil, errStoreRequired
	}
	if deps.Sink == nil {
		deps.Sink = &sink.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Config.PageSize <= 0 {
		deps.Config.PageSize = 20
	}
	if deps.Config.MaxAttempts <= 0 {
		deps.Config.MaxAttempts = 5
	}
	if deps.Config.Backoff == nil {
		deps.Config.Backoff = retry.DefaultBackoff()
	}
	return &Manager{
		dialer: deps.Dialer,
		store:  deps.Store,
		sink:   deps.Sink,
		logger: deps.Logger,
		config: deps.Config,
		state:  domain.StateDisconnected,
	}, nil
}

// SessionStart opens the push connection for the credential and triggers the
// initial refresh of both streams. Calling it while a session is live is a
// no-op; an empty credential leaves the manager disconnected.
func (m *Manager) SessionStart(ctx context.Context, credential string) {
	if strings.TrimSpace(credential) == "" {
		m.logger.Warn("session start skipped: empty credential")
		return
	}

	m.mu.Lock()
	if m.state != domain.StateDisconnected {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.state = domain.StateConnecting
	m.mu.Unlock()

	m.logger.Info("session starting",
		logger.Field{Key: "credential", Value: maskCredential(credential)},
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runCtx, credential)
	}()
}

// SessionEnd tears the session down: the receive loop is stopped, the
// connection closed, and all stored notifications dropped. Idempotent.
func (m *Manager) SessionEnd() {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.cancel = nil
	m.conn = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.state = domain.StateDisconnected
	m.mu.Unlock()

	m.store.Clear()
	m.logger.Info("session ended")
}

// State returns the current connection state.
func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// run drives the dial/receive cycle until the session context ends or the
// reconnect budget runs out. The attempt counter resets on every successful
// connection so only consecutive failures count against the budget.
func (m *Manager) run(ctx context.Context, credential string) {
	attempts := 0
	for {
		conn, err := m.dialer.Dial(ctx, credential)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("dial failed",
				logger.Field{Key: "error", Value: err.Error()},
			)
			attempts++
			if !m.backoffWait(ctx, attempts) {
				return
			}
			continue
		}
		attempts = 0

		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.state = domain.StateConnected
		m.mu.Unlock()

		m.logger.Info("connected")
		m.refresh(ctx)

		err = m.receive(ctx, conn)
		conn.Close()

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("connection lost",
			logger.Field{Key: "error", Value: errString(err)},
		)
		attempts++
		if !m.backoffWait(ctx, attempts) {
			return
		}
	}
}

// refresh loads the first page of every stream. A failed stream load is
// logged and left for the caller to retry; the session keeps running.
func (m *Manager) refresh(ctx context.Context) {
	for _, source := range domain.Sources() {
		if _, err := m.store.LoadPage(ctx, source, 1, m.config.PageSize); err != nil {
			m.logger.Warn("stream refresh failed",
				logger.Field{Key: "source", Value: string(source)},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
}

func (m *Manager) receive(ctx context.Context, conn channel.Conn) error {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return err
		}
		m.deliver(ctx, msg.Notification())
	}
}

// deliver stores the pushed record first, then fans out to the presentation
// sinks. A sink failure never rolls back the stored record.
func (m *Manager) deliver(ctx context.Context, n domain.Notification) {
	m.store.IngestPush(n)
	if err := m.sink.Publish(ctx, n); err != nil {
		m.logger.Warn("sink publish failed",
			logger.Field{Key: "source", Value: string(n.Source)},
			logger.Field{Key: "notification_id", Value: n.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// backoffWait sits out the delay before the next dial. It returns false
// when the session was cancelled or the reconnect budget is spent; in the
// latter case the manager stays in the reconnecting state so callers can
// surface the degraded session.
func (m *Manager) backoffWait(ctx context.Context, attempt int) bool {
	if !m.setState(ctx, domain.StateReconnecting) {
		return false
	}
	if attempt > m.config.MaxAttempts {
		m.logger.Error("reconnect attempts exhausted",
			logger.Field{Key: "attempts", Value: m.config.MaxAttempts},
		)
		return false
	}

	delay := m.config.Backoff.Next(attempt)
	m.logger.Info("reconnect scheduled",
		logger.Field{Key: "attempt", Value: attempt},
		logger.Field{Key: "delay", Value: delay.String()},
	)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
	}
	return m.setState(ctx, domain.StateConnecting)
}

// setState transitions unless the session context already ended.
func (m *Manager) setState(ctx context.Context, state domain.ConnectionState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	m.state = state
	return true
}

func maskCredential(credential string) string {
	masked, err := masker.Default.String("preserveEnds(2,2)", credential)
	if err != nil {
		return strings.Repeat("*", len(credential))
	}
	return masked
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
