package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbsphere/orbzy-backend/internal/bookings"
	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	"github.com/orbsphere/orbzy-backend/pkg/outbox"
	"github.com/orbsphere/orbzy-backend/pkg/outbox/payloads"
)

// Trigger names the entry point that asked for an escalation.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerSweep  Trigger = "sweep"
)

const defaultSweepConcurrency = 4

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outcomeRecorder interface {
	IncOutcome(trigger, outcome string)
	ObserveSweep(processed int, duration time.Duration)
}

// Config holds the engine knobs sourced from EscalationConfig.
type Config struct {
	ResponseWindow        time.Duration
	SweepConcurrency      int
	ManualRequiresOverdue bool
}

// Result is what a single escalation produced.
type Result struct {
	Outcome Outcome
	Booking *models.Booking
}

// Engine applies escalation decisions. Every write is a versioned update
// sharing a transaction with its outbox event.
type Engine struct {
	repo    bookings.Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics outcomeRecorder
	logg    *logger.Logger
	cfg     Config
	now     func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics records outcomes into m.
func WithMetrics(m outcomeRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func NewEngine(repo bookings.Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger, cfg Config, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.ResponseWindow <= 0 {
		return nil, fmt.Errorf("response window must be positive")
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = defaultSweepConcurrency
	}
	e := &Engine{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		metrics: noopRecorder{},
		logg:    logg,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Escalate runs one escalation step on the booking identified by id.
// Callers are expected to have established that the booking is due.
// Terminal bookings come back unchanged with OutcomeTerminal.
func (e *Engine) Escalate(ctx context.Context, id uuid.UUID, trigger Trigger) (Result, error) {
	var result Result
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		booking, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		result, err = e.step(ctx, tx, repo, *booking, trigger, e.now(), false)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	e.record(ctx, trigger, result)
	return result, nil
}

// EscalateForOwner is the customer-facing entry point. Ownership is checked
// before anything else, and unless the engine is configured otherwise the
// current provider's window must have lapsed.
func (e *Engine) EscalateForOwner(ctx context.Context, id, userID uuid.UUID) (Result, error) {
	if id == uuid.Nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	var result Result
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		booking, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		if booking.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
		}
		if booking.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking is %s", booking.Status))
		}
		now := e.now()
		if len(booking.BackupProviderIDs) > 0 && e.cfg.ManualRequiresOverdue && !booking.OverdueAt(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "provider response window still open")
		}
		result, err = e.step(ctx, tx, repo, *booking, TriggerManual, now, false)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	e.record(ctx, TriggerManual, result)
	return result, nil
}

// step plans and applies a transition for b inside tx. With failEmpty set
// a booking without backups is failed instead of producing the signal.
func (e *Engine) step(ctx context.Context, tx *gorm.DB, repo bookings.Repository, b models.Booking, trigger Trigger, now time.Time, failEmpty bool) (Result, error) {
	now = now.UTC()
	decision, err := Plan(b, now, e.cfg.ResponseWindow)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "plan escalation")
	}
	if decision.Outcome == OutcomeNoBackups && failEmpty {
		decision = exhaust(b, now)
	}

	next := decision.Next
	if !decision.Outcome.Mutates() {
		return Result{Outcome: decision.Outcome, Booking: &next}, nil
	}

	if err := repo.UpdateWithVersion(ctx, b.ID, b.Version, decision.Updates); err != nil {
		if errors.Is(err, bookings.ErrConcurrentModification) {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "booking was modified concurrently")
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
	}
	next.Version = b.Version + 1

	if err := e.outbox.Emit(ctx, tx, eventFor(decision, trigger, now)); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue escalation event")
	}
	return Result{Outcome: decision.Outcome, Booking: &next}, nil
}

func eventFor(d Decision, trigger Trigger, now time.Time) outbox.DomainEvent {
	b := d.Next
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		OccurredAt:    now,
	}
	if trigger == TriggerManual {
		event.Actor = &outbox.ActorRef{UserID: b.UserID, Role: enums.RoleCustomer.String()}
	}
	switch d.Outcome {
	case OutcomeEscalated:
		event.EventType = enums.EventBookingEscalated
		event.Data = payloads.BookingEscalatedEvent{
			BookingID:                b.ID,
			UserID:                   b.UserID,
			PreviousProviderID:       d.PreviousProviderID,
			ProviderID:               b.ProviderID,
			CurrentProviderIndex:     b.CurrentProviderIndex,
			EscalationAttempts:       b.EscalationAttempts,
			ProviderResponseDeadline: *b.ProviderResponseDeadline,
			Trigger:                  string(trigger),
		}
	default:
		event.EventType = enums.EventBookingExhausted
		event.Data = payloads.BookingExhaustedEvent{
			BookingID:          b.ID,
			UserID:             b.UserID,
			LastProviderID:     b.ProviderID,
			EscalationAttempts: b.EscalationAttempts,
			FallbackToQuote:    true,
			Trigger:            string(trigger),
		}
	}
	return event
}

func (e *Engine) record(ctx context.Context, trigger Trigger, result Result) {
	e.metrics.IncOutcome(string(trigger), string(result.Outcome))
	if result.Booking == nil {
		return
	}
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"booking_id":             result.Booking.ID.String(),
		"trigger":                string(trigger),
		"outcome":                string(result.Outcome),
		"provider_id":            result.Booking.ProviderID.String(),
		"current_provider_index": result.Booking.CurrentProviderIndex,
		"escalation_attempts":    result.Booking.EscalationAttempts,
	})
	switch result.Outcome {
	case OutcomeEscalated:
		e.logg.Info(logCtx, "booking escalated to backup provider")
	case OutcomeExhausted:
		e.logg.Warn(logCtx, "booking backups exhausted")
	default:
		e.logg.Debug(logCtx, "escalation made no change")
	}
}

func load(ctx context.Context, repo bookings.Repository, id uuid.UUID) (*models.Booking, error) {
	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

type noopRecorder struct{}

func (noopRecorder) IncOutcome(string, string) {}
func (noopRecorder) ObserveSweep(int, time.Duration) {}
