package outbox

import (
	"encoding/json"
	"time"
)

// TopicOrderEvents carries order lifecycle notifications (created, settled,
// status changed). Nothing in this service consumes them; downstream
// notification systems do.
const TopicOrderEvents = "order_events"

type Event struct {
	ID            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Topic         string          `db:"topic"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int64           `db:"attempts"`
	LastError     *string         `db:"last_error"`
}
