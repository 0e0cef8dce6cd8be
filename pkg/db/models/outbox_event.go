package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the state
// change it describes. ID is assigned by the emitter and equals the envelope's
// event_id. The relay only ever sets PublishedAt, AttemptCount and LastError.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Delivered reports whether the relay has handed the event to the broker.
func (e OutboxEvent) Delivered() bool { return e.PublishedAt != nil }
