package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orbsphere/orbzy-backend/internal/escalation"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	"github.com/orbsphere/orbzy-backend/pkg/metrics"
)

type fakeSweeper struct {
	report escalation.Report
	err    error
	calls  []time.Time
}

func (f *fakeSweeper) SweepOverdue(_ context.Context, now time.Time) (escalation.Report, error) {
	f.calls = append(f.calls, now)
	return f.report, f.err
}

func newBookingEscalationJob(t *testing.T, sweeper *fakeSweeper) *bookingEscalationJob {
	t.Helper()
	jobIface, err := NewBookingEscalationJob(BookingEscalationJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewBookingEscalationJob: %v", err)
	}
	job, ok := jobIface.(*bookingEscalationJob)
	if !ok {
		t.Fatalf("expected bookingEscalationJob, got %T", jobIface)
	}
	return job
}

func TestBookingEscalationJobSweepsAtNow(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	sweeper := &fakeSweeper{}
	job := newBookingEscalationJob(t, sweeper)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sweeper.calls) != 1 {
		t.Fatalf("expected one sweep, got %d", len(sweeper.calls))
	}
	if !sweeper.calls[0].Equal(now) || sweeper.calls[0].Location() != time.UTC {
		t.Fatalf("expected sweep at %s in UTC, got %s", now, sweeper.calls[0])
	}
}

func TestBookingEscalationJobFailsOnPerBookingErrors(t *testing.T) {
	conflict := errors.New("conflict")
	sweeper := &fakeSweeper{report: escalation.Report{
		Processed: 2,
		Results: []escalation.Entry{
			{BookingID: uuid.New(), Action: escalation.ActionEscalated},
			{BookingID: uuid.New(), Action: escalation.ActionError, Err: conflict},
		},
	}}
	job := newBookingEscalationJob(t, sweeper)

	err := job.Run(context.Background())
	if !errors.Is(err, conflict) {
		t.Fatalf("expected per-booking error to fail the job, got %v", err)
	}
	if len(sweeper.calls) != 1 {
		t.Fatalf("expected the sweep to run once, got %d", len(sweeper.calls))
	}
}

func TestBookingEscalationJobSucceedsWhenEveryBookingSettles(t *testing.T) {
	sweeper := &fakeSweeper{report: escalation.Report{
		Processed: 2,
		Results: []escalation.Entry{
			{BookingID: uuid.New(), Action: escalation.ActionEscalated},
			{BookingID: uuid.New(), Action: escalation.ActionFailed},
		},
	}}
	job := newBookingEscalationJob(t, sweeper)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestBookingEscalationJobPropagatesSweepFailure(t *testing.T) {
	job := newBookingEscalationJob(t, &fakeSweeper{err: errors.New("db down")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewBookingEscalationJobValidates(t *testing.T) {
	if _, err := NewBookingEscalationJob(BookingEscalationJobParams{Sweeper: &fakeSweeper{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewBookingEscalationJob(BookingEscalationJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})}); err == nil {
		t.Fatal("expected error without sweeper")
	}
}

func TestBookingEscalationJobErrorsCountAsJobFailure(t *testing.T) {
	sweeper := &fakeSweeper{report: escalation.Report{
		Processed: 1,
		Results: []escalation.Entry{
			{BookingID: uuid.New(), Action: escalation.ActionError, Err: errors.New("write failed")},
		},
	}}
	reg := prometheus.NewRegistry()
	service := newTestService(t, ServiceParams{
		Registry: NewRegistry(newBookingEscalationJob(t, sweeper)),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if got := counterTotal(t, reg, "cron_job_failure_total"); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := counterTotal(t, reg, "cron_job_success_total"); got != 0 {
		t.Fatalf("expected no success, got %v", got)
	}
}
