package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/orbsphere/orbzy-backend/internal/escalation"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
)

type overdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (escalation.Report, error)
}

type BookingEscalationJobParams struct {
	Logger  *logger.Logger
	Sweeper overdueSweeper
}

// NewBookingEscalationJob wraps the overdue sweep as a scheduled job.
// Every overdue booking is attempted; any per-booking error fails the job
// after the sweep completes so it shows up in the job failure metric.
// Bookings that errored stay overdue and are retried on the next tick.
func NewBookingEscalationJob(params BookingEscalationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("overdue sweeper required")
	}
	return &bookingEscalationJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		now:     time.Now,
	}, nil
}

type bookingEscalationJob struct {
	logg    *logger.Logger
	sweeper overdueSweeper
	now     func() time.Time
}

func (j *bookingEscalationJob) Name() string { return "booking-escalation" }

func (j *bookingEscalationJob) Run(ctx context.Context) error {
	report, err := j.sweeper.SweepOverdue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("booking escalation sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"processed": report.Processed,
		"escalated": report.Count(escalation.ActionEscalated),
		"failed":    report.Count(escalation.ActionFailed),
		"errors":    report.Count(escalation.ActionError),
	})
	if sweepErr := report.Err(); sweepErr != nil {
		j.logg.Warn(j.logg.WithField(logCtx, "error", sweepErr.Error()), "some bookings could not be escalated")
		return fmt.Errorf("escalate %d of %d overdue bookings: %w", report.Count(escalation.ActionError), report.Processed, sweepErr)
	}
	j.logg.Info(logCtx, "booking escalation sweep complete")
	return nil
}
