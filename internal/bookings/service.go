package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	dbtypes "github.com/orbsphere/orbzy-backend/pkg/db/types"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/outbox"
	"github.com/orbsphere/orbzy-backend/pkg/outbox/payloads"
	"github.com/orbsphere/orbzy-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines booking lifecycle operations outside of escalation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Booking, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Booking, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Booking, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	window time.Duration
	now    func() time.Time
}

// Option customises the service at construction.
type Option func(*service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the booking service. window is the provider response
// window granted at creation.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, window time.Duration, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("response window must be positive")
	}
	s := &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Booking, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	deadline := now.Add(s.window)
	backups := make(dbtypes.UUIDArray, len(input.BackupProviderIDs))
	copy(backups, input.BackupProviderIDs)

	booking := &models.Booking{
		ID:                       uuid.New(),
		TaskID:                   input.TaskID,
		UserID:                   input.UserID,
		ProviderID:               input.ProviderID,
		BackupProviderIDs:        backups,
		CurrentProviderIndex:     0,
		Status:                   enums.BookingStatusPending,
		EscalationAttempts:       0,
		ProviderResponseDeadline: &deadline,
		ScheduledDate:            input.ScheduledDate.UTC(),
		Notes:                    input.Notes,
		Version:                  1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.RoleCustomer.String()},
			OccurredAt:    now,
			Data: payloads.BookingCreatedEvent{
				BookingID:                booking.ID,
				TaskID:                   booking.TaskID,
				UserID:                   booking.UserID,
				ProviderID:               booking.ProviderID,
				BackupProviderIDs:        []uuid.UUID(booking.BackupProviderIDs),
				ScheduledDate:            booking.ScheduledDate,
				ProviderResponseDeadline: deadline,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func validateCreate(input CreateInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.TaskID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "task id required")
	}
	if input.ProviderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}
	if input.ScheduledDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "scheduled date required")
	}
	backups := dbtypes.UUIDArray(input.BackupProviderIDs)
	if backups.Contains(uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "backup provider ids must be set")
	}
	if backups.Contains(input.ProviderID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "primary provider cannot also be a backup")
	}
	if backups.HasDuplicates() {
		return pkgerrors.New(pkgerrors.CodeValidation, "backup provider ids must be unique")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Booking, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
	}
	return booking, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	query := ListQuery{UserID: input.UserID, Limit: input.Limit}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListForUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	result := &ListResult{Bookings: make([]BookingDTO, 0, len(rows))}
	for _, row := range rows {
		result.Bookings = append(result.Bookings, ToDTO(row))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Booking, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}
	switch input.ActorRole {
	case enums.RoleAdmin:
	case enums.RoleProvider:
		if input.ActorUserID != input.ProviderID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "providers may only confirm their own assignment")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot confirm bookings")
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := s.load(ctx, repo, input.BookingID)
		if err != nil {
			return err
		}
		if booking.Status == enums.BookingStatusConfirmed && booking.ProviderID == input.ProviderID {
			out = booking
			return nil
		}
		if !booking.Status.AwaitingProvider() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking is %s", booking.Status))
		}
		if booking.ProviderID != input.ProviderID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "provider is not currently assigned to booking")
		}

		now := s.now().UTC()
		if err := s.apply(ctx, repo, booking, map[string]any{
			"status":     enums.BookingStatusConfirmed,
			"updated_at": now,
		}); err != nil {
			return err
		}
		booking.Status = enums.BookingStatusConfirmed
		booking.UpdatedAt = now
		booking.Version++
		out = booking

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingConfirmed,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
			OccurredAt:    now,
			Data: payloads.BookingConfirmedEvent{
				BookingID:  booking.ID,
				UserID:     booking.UserID,
				ProviderID: booking.ProviderID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Booking, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
		}
		if booking.Status == enums.BookingStatusCancelled {
			out = booking
			return nil
		}
		if !booking.Status.AwaitingProvider() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking is %s", booking.Status))
		}

		now := s.now().UTC()
		if err := s.apply(ctx, repo, booking, map[string]any{
			"status":     enums.BookingStatusCancelled,
			"updated_at": now,
		}); err != nil {
			return err
		}
		booking.Status = enums.BookingStatusCancelled
		booking.UpdatedAt = now
		booking.Version++
		out = booking

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer.String()},
			OccurredAt:    now,
			Data: payloads.BookingCancelledEvent{
				BookingID:  booking.ID,
				UserID:     booking.UserID,
				ProviderID: booking.ProviderID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Booking, error) {
	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

func (s *service) apply(ctx context.Context, repo Repository, booking *models.Booking, updates map[string]any) error {
	if err := repo.UpdateWithVersion(ctx, booking.ID, booking.Version, updates); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "booking was modified concurrently")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	return nil
}
