package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shopwire/shopwire-backend/pkg/enums"
)

// FeedEvent is one row of the append-only, globally-ordered event log.
// Sequence is assigned by the database identity column at insert time and is
// never computed or chosen by application code. Rows are immutable once
// appended; the retention sweep only ever deletes them, so sequence values
// are skipped on replay but never reused.
type FeedEvent struct {
	Sequence  int64               `gorm:"column:sequence;primaryKey;autoIncrement" json:"sequence"`
	UserID    uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	EventType enums.FeedEventType `gorm:"column:event_type;type:feed_event_type;not null" json:"eventType"`
	EntityID  uuid.UUID           `gorm:"column:entity_id;type:uuid;not null" json:"entityId"`
	Payload   json.RawMessage     `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

// TableName keeps the table name explicit.
func (FeedEvent) TableName() string { return "feed_events" }
