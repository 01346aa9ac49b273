package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/orbsphere/orbzy-backend/pkg/db/types"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
)

// Booking is a maintenance appointment and its provider failover state.
// BackupProviderIDs is fixed at creation; CurrentProviderIndex counts how
// many of those backups have been consumed. Version guards every write.
type Booking struct {
	ID                       uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TaskID                   uuid.UUID           `gorm:"column:task_id;type:uuid;not null"`
	UserID                   uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ProviderID               uuid.UUID           `gorm:"column:provider_id;type:uuid;not null"`
	BackupProviderIDs        dbtypes.UUIDArray   `gorm:"column:backup_provider_ids;type:uuid[];not null"`
	CurrentProviderIndex     int                 `gorm:"column:current_provider_index;not null;default:0"`
	Status                   enums.BookingStatus `gorm:"column:status;type:booking_status;not null"`
	EscalationAttempts       int                 `gorm:"column:escalation_attempts;not null;default:0"`
	LastEscalatedAt          *time.Time          `gorm:"column:last_escalated_at"`
	ProviderResponseDeadline *time.Time          `gorm:"column:provider_response_deadline"`
	ScheduledDate            time.Time           `gorm:"column:scheduled_date;not null"`
	Notes                    *string             `gorm:"column:notes"`
	Version                  int                 `gorm:"column:version;not null;default:1"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingBackups returns how many backup providers have not been tried.
func (b Booking) RemainingBackups() int {
	remaining := len(b.BackupProviderIDs) - b.CurrentProviderIndex
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OverdueAt reports whether the current provider's response window has
// lapsed at now. Bookings without a deadline are never overdue.
func (b Booking) OverdueAt(now time.Time) bool {
	if b.ProviderResponseDeadline == nil {
		return false
	}
	return !b.ProviderResponseDeadline.After(now)
}
