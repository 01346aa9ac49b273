package payloads

import (
	"time"

	"github.com/google/uuid"
)

// BookingCreatedEvent asks downstream notifiers to tell the customer and
// the first provider about a new booking.
type BookingCreatedEvent struct {
	BookingID                uuid.UUID   `json:"booking_id"`
	TaskID                   uuid.UUID   `json:"task_id"`
	UserID                   uuid.UUID   `json:"user_id"`
	ProviderID               uuid.UUID   `json:"provider_id"`
	BackupProviderIDs        []uuid.UUID `json:"backup_provider_ids"`
	ScheduledDate            time.Time   `json:"scheduled_date"`
	ProviderResponseDeadline time.Time   `json:"provider_response_deadline"`
}

// BookingEscalatedEvent is emitted when a booking moves to the next backup.
type BookingEscalatedEvent struct {
	BookingID                uuid.UUID `json:"booking_id"`
	UserID                   uuid.UUID `json:"user_id"`
	PreviousProviderID       uuid.UUID `json:"previous_provider_id"`
	ProviderID               uuid.UUID `json:"provider_id"`
	CurrentProviderIndex     int       `json:"current_provider_index"`
	EscalationAttempts       int       `json:"escalation_attempts"`
	ProviderResponseDeadline time.Time `json:"provider_response_deadline"`
	Trigger                  string    `json:"trigger"`
}

// BookingExhaustedEvent is emitted when no backup provider remains. The
// customer falls back to requesting a manual quote.
type BookingExhaustedEvent struct {
	BookingID          uuid.UUID `json:"booking_id"`
	UserID             uuid.UUID `json:"user_id"`
	LastProviderID     uuid.UUID `json:"last_provider_id"`
	EscalationAttempts int       `json:"escalation_attempts"`
	FallbackToQuote    bool      `json:"fallback_to_quote"`
	Trigger            string    `json:"trigger"`
}

// BookingConfirmedEvent is emitted when the assigned provider accepts.
type BookingConfirmedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	ProviderID uuid.UUID `json:"provider_id"`
}

// BookingCancelledEvent is emitted when the customer cancels.
type BookingCancelledEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	ProviderID uuid.UUID `json:"provider_id"`
}
