package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
	"github.com/orbsphere/orbzy-backend/pkg/pagination"
)

// CreateInput is the booking creation request after authentication.
// BackupProviderIDs must already be ranked; order is never changed later.
type CreateInput struct {
	UserID            uuid.UUID
	TaskID            uuid.UUID
	ProviderID        uuid.UUID
	BackupProviderIDs []uuid.UUID
	ScheduledDate     time.Time
	Notes             *string
}

// ListInput describes a page request for the caller's bookings.
type ListInput struct {
	UserID uuid.UUID
	pagination.Params
}

// ConfirmInput records a provider acceptance relayed by an operator.
type ConfirmInput struct {
	BookingID   uuid.UUID
	ProviderID  uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// BookingDTO is the API representation of a booking.
type BookingDTO struct {
	ID                       uuid.UUID           `json:"id"`
	TaskID                   uuid.UUID           `json:"task_id"`
	UserID                   uuid.UUID           `json:"user_id"`
	ProviderID               uuid.UUID           `json:"provider_id"`
	BackupProviderIDs        []uuid.UUID         `json:"backup_provider_ids"`
	CurrentProviderIndex     int                 `json:"current_provider_index"`
	Status                   enums.BookingStatus `json:"status"`
	EscalationAttempts       int                 `json:"escalation_attempts"`
	LastEscalatedAt          *time.Time          `json:"last_escalated_at,omitempty"`
	ProviderResponseDeadline *time.Time          `json:"provider_response_deadline,omitempty"`
	ScheduledDate            time.Time           `json:"scheduled_date"`
	Notes                    *string             `json:"notes,omitempty"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// ListResult wraps one page of bookings plus the next page cursor.
type ListResult struct {
	Bookings   []BookingDTO `json:"bookings"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// ToDTO maps the persistence model onto the API shape.
func ToDTO(b models.Booking) BookingDTO {
	backups := make([]uuid.UUID, len(b.BackupProviderIDs))
	copy(backups, b.BackupProviderIDs)
	return BookingDTO{
		ID:                       b.ID,
		TaskID:                   b.TaskID,
		UserID:                   b.UserID,
		ProviderID:               b.ProviderID,
		BackupProviderIDs:        backups,
		CurrentProviderIndex:     b.CurrentProviderIndex,
		Status:                   b.Status,
		EscalationAttempts:       b.EscalationAttempts,
		LastEscalatedAt:          b.LastEscalatedAt,
		ProviderResponseDeadline: b.ProviderResponseDeadline,
		ScheduledDate:            b.ScheduledDate,
		Notes:                    b.Notes,
		CreatedAt:                b.CreatedAt,
		UpdatedAt:                b.UpdatedAt,
	}
}
