package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
	"github.com/orbsphere/orbzy-backend/pkg/pagination"
)

// ErrConcurrentModification is returned when a versioned update matched no
// row because another writer changed the booking first.
var ErrConcurrentModification = errors.New("booking modified concurrently")

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListForUser(ctx context.Context, query ListQuery) ([]models.Booking, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Booking{}).Where("user_id = ?", query.UserID)
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Booking
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(query.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	rows, more := pagination.Trim(rows, query.Limit)
	if !more {
		return rows, nil, nil
	}
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// FindOverdue returns bookings still waiting on a provider whose response
// deadline is at or before now, oldest deadline first. A non-positive
// limit returns every candidate.
func (r *repository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).
		Where("status IN ?", enums.AwaitingProviderStatuses).
		Where("provider_response_deadline IS NOT NULL AND provider_response_deadline <= ?", now.UTC()).
		Order("provider_response_deadline ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Booking
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateWithVersion applies updates only if the stored version still equals
// expectedVersion, bumping the version in the same statement.
func (r *repository) UpdateWithVersion(ctx context.Context, id uuid.UUID, expectedVersion int, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}
