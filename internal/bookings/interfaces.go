package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	"github.com/orbsphere/orbzy-backend/pkg/pagination"
)

// Repository defines persistence operations for the bookings table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListForUser(ctx context.Context, query ListQuery) ([]models.Booking, *pagination.Cursor, error)
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)
	UpdateWithVersion(ctx context.Context, id uuid.UUID, expectedVersion int, updates map[string]any) error
}

// ListQuery carries the already-parsed list inputs down to the repository.
type ListQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}
