package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records every processed gateway event. The unique index on
// (intent_id, event_type) is the idempotency key for the at-least-once
// webhook channel: a redelivered event fails the insert and is dropped
// without re-applying its effects.
type WebhookEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	EventID   string `gorm:"column:event_id;size:128" json:"event_id"`
	IntentID  string `gorm:"column:intent_id;size:128;uniqueIndex:idx_intent_event" json:"intent_id"`
	EventType string `gorm:"column:event_type;size:64;uniqueIndex:idx_intent_event" json:"event_type"`

	// Raw payload kept for debugging and dispute resolution.
	Payload datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`

	ProcessedAt time.Time `gorm:"column:processed_at" json:"processed_at"`
}
