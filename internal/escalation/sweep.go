package escalation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
)

// Action is the per-booking verdict reported by a sweep.
type Action string

const (
	ActionEscalated Action = "escalated"
	ActionFailed    Action = "failed"
	ActionError     Action = "error"
)

// Entry reports what happened to one overdue booking.
type Entry struct {
	BookingID  uuid.UUID `json:"booking_id"`
	Action     Action    `json:"action"`
	ProviderID uuid.UUID `json:"provider_id,omitzero"`
	Message    string    `json:"message,omitempty"`
	Err        error     `json:"-"`
}

// Report is the outcome of one sweep. Processed counts every candidate,
// including those that errored.
type Report struct {
	Processed int     `json:"processed"`
	Results   []Entry `json:"results"`
}

// Err combines the per-booking failures, or nil if there were none.
func (r Report) Err() error {
	var err error
	for _, entry := range r.Results {
		if entry.Err != nil {
			err = multierr.Append(err, fmt.Errorf("booking %s: %w", entry.BookingID, entry.Err))
		}
	}
	return err
}

// Count returns how many entries carry action.
func (r Report) Count(action Action) int {
	n := 0
	for _, entry := range r.Results {
		if entry.Action == action {
			n++
		}
	}
	return n
}

// SweepOverdue escalates every awaiting booking whose deadline is at or
// before now. Bookings are handled independently; a failure is recorded on
// that booking's entry and never stops the rest. The returned error is
// reserved for failing to load the candidates at all.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) (Report, error) {
	started := time.Now()
	now = now.UTC()

	candidates, err := e.repo.FindOverdue(ctx, now, 0)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load overdue bookings")
	}

	entries := make([]Entry, len(candidates))
	var g errgroup.Group
	g.SetLimit(e.cfg.SweepConcurrency)
	for i := range candidates {
		g.Go(func() error {
			entries[i] = e.sweepOne(ctx, candidates[i], now)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BookingID.String() < entries[j].BookingID.String()
	})
	report := Report{Processed: len(candidates), Results: entries}

	e.metrics.ObserveSweep(report.Processed, time.Since(started))
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"escalated": report.Count(ActionEscalated),
		"failed":    report.Count(ActionFailed),
		"errors":    report.Count(ActionError),
	})
	e.logg.Info(logCtx, "overdue sweep finished")
	return report, nil
}

func (e *Engine) sweepOne(ctx context.Context, candidate models.Booking, now time.Time) Entry {
	entry := Entry{BookingID: candidate.ID}
	var result Result
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = e.step(ctx, tx, e.repo.WithTx(tx), candidate, TriggerSweep, now, true)
		return err
	})
	if err == nil && !result.Outcome.Mutates() {
		err = pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("booking is %s", candidate.Status))
	}
	if err != nil {
		entry.Action = ActionError
		entry.Message = err.Error()
		entry.Err = err
		e.metrics.IncOutcome(string(TriggerSweep), string(ActionError))
		e.logg.Error(e.logg.WithBookingID(ctx, candidate.ID.String()), "sweep escalation failed", err)
		return entry
	}

	e.record(ctx, TriggerSweep, result)
	entry.ProviderID = result.Booking.ProviderID
	if result.Outcome == OutcomeEscalated {
		entry.Action = ActionEscalated
	} else {
		entry.Action = ActionFailed
	}
	return entry
}
