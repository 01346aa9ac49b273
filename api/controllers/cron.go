package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/orbsphere/orbzy-backend/api/responses"
	"github.com/orbsphere/orbzy-backend/internal/escalation"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
)

// OverdueSweeper runs one escalation sweep.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (escalation.Report, error)
}

type sweepResponse struct {
	Success   bool               `json:"success"`
	Timestamp time.Time          `json:"timestamp"`
	Processed int                `json:"processed"`
	Results   []escalation.Entry `json:"results"`
}

// EscalateBookings is the external scheduler hook. Per-booking failures are
// reported in results; only a failed candidate query fails the request.
func EscalateBookings(sweeper OverdueSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escalation sweeper unavailable"))
			return
		}

		now := time.Now().UTC()
		report, err := sweeper.SweepOverdue(r.Context(), now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results := report.Results
		if results == nil {
			results = []escalation.Entry{}
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"processed": report.Processed,
				"escalated": report.Count(escalation.ActionEscalated),
				"failed":    report.Count(escalation.ActionFailed),
				"errors":    report.Count(escalation.ActionError),
			})
			logg.Info(ctx, "cron.escalate_bookings.completed")
		}
		responses.WriteRaw(w, http.StatusOK, sweepResponse{
			Success:   true,
			Timestamp: now,
			Processed: report.Processed,
			Results:   results,
		})
	}
}
