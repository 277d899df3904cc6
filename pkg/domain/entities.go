package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Source identifies which of the two independently paginated streams owns a
// notification. Identifiers are per-stream counters, so a personal and a role
// notification may share the same numeric value.
type Source string

const (
	SourcePersonal Source = "personal"
	SourceRole     Source = "role"
)

// Valid reports whether the source names a known stream.
func (s Source) Valid() bool {
	return s == SourcePersonal || s == SourceRole
}

// DisplayTitle returns the heading used when a notification from this stream
// is surfaced as a transient alert or a native notification.
func (s Source) DisplayTitle() string {
	if s == SourceRole {
		return "Team update"
	}
	return "New notification"
}

// Sources enumerates both streams in a stable order.
func Sources() []Source {
	return []Source{SourcePersonal, SourceRole}
}

// Key uniquely identifies a notification. Merge, dedup, and read-state
// operations always key on the pair, never on the numeric id alone.
type Key struct {
	Source Source
	ID     int64
}

// Notification type catalog. Types route display only; they never
// participate in merge logic.
const (
	TypeOrderStatusChanged = "order.status_changed"
	TypeContractUpdated    = "contract.updated"
	TypeDesignReady        = "design.ready"
	TypeGeneral            = "general"
)

// Notification is one delivered or fetched feed record.
type Notification struct {
	ID        int64     `json:"notification_id"`
	Source    Source    `json:"source"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Target    JSONMap   `json:"target,omitempty"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the identity pair for the record.
func (n Notification) Key() Key {
	return Key{Source: n.Source, ID: n.ID}
}

// CorrelationKey extracts the navigation key carried in a target payload.
// It is display/navigation metadata only and never part of identity.
func CorrelationKey(target JSONMap) string {
	if len(target) == 0 {
		return ""
	}
	for _, field := range []string{"order_code", "code"} {
		if value, ok := target[field].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// AlertEntry is a transient on-screen notice derived from a freshly pushed
// notification. Entries are ephemeral: they are never persisted and never
// read back into the feed.
type AlertEntry struct {
	ID          string    `json:"alert_id"`
	Kind        Source    `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Correlation string    `json:"correlation_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConnectionState tracks the single process-wide push connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// JSONMap persists arbitrary payload fields as JSON.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if m == nil {
		return errors.New("JSONMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
}
