package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orbsphere/orbzy-backend/pkg/enums"
)

// OutboxEvent is one booking lifecycle event waiting for, or done with,
// publication. It is inserted in the same transaction as the booking
// change it announces; Payload holds an outbox.PayloadEnvelope and
// PublishedAt stays nil until Pub/Sub acknowledges the message.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Published reports whether the publisher has delivered the event.
func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }
