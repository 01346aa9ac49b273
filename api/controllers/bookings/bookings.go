package bookings

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbsphere/orbzy-backend/api/middleware"
	"github.com/orbsphere/orbzy-backend/api/responses"
	"github.com/orbsphere/orbzy-backend/api/validators"
	internalbookings "github.com/orbsphere/orbzy-backend/internal/bookings"
	"github.com/orbsphere/orbzy-backend/internal/escalation"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	"github.com/orbsphere/orbzy-backend/pkg/pagination"
)

const (
	bookingIDParam = "bookingId"
	maxNotesLen    = 2000
	dateLayout     = "2006-01-02"
)

// Escalator drives a customer-initiated escalation.
type Escalator interface {
	EscalateForOwner(ctx context.Context, id, userID uuid.UUID) (escalation.Result, error)
}

type createBookingRequest struct {
	TaskID            string   `json:"task_id" validate:"required,uuid"`
	ProviderID        string   `json:"provider_id" validate:"required,uuid"`
	BackupProviderIDs []string `json:"backup_provider_ids" validate:"omitempty,max=10,dive,uuid"`
	ScheduledDate     string   `json:"scheduled_date" validate:"required"`
	Notes             *string  `json:"notes" validate:"omitempty,max=2000"`
}

type confirmBookingRequest struct {
	ProviderID string `json:"provider_id" validate:"required,uuid"`
}

type escalateResponse struct {
	Outcome         escalation.Outcome           `json:"outcome"`
	FallbackToQuote bool                         `json:"fallback_to_quote"`
	Booking         *internalbookings.BookingDTO `json:"booking,omitempty"`
}

// Create books the primary provider and stores the ranked backups.
func Create(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, internalbookings.ToDTO(*booking))
	}
}

// List returns the caller's bookings, newest first.
func List(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalbookings.ListInput{
			UserID: userID,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Detail(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		userID, bookingID, err := ownerAndBooking(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Get(r.Context(), bookingID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalbookings.ToDTO(*booking))
	}
}

// Escalate lets the customer move an overdue booking to the next backup.
// A booking without backups answers with the quote fallback signal and is
// left untouched.
func Escalate(engine Escalator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escalation engine unavailable"))
			return
		}
		userID, bookingID, err := ownerAndBooking(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.EscalateForOwner(r.Context(), bookingID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := escalateResponse{
			Outcome:         result.Outcome,
			FallbackToQuote: result.Outcome.FallbackToQuote(),
		}
		if result.Outcome.Mutates() && result.Booking != nil {
			dto := internalbookings.ToDTO(*result.Booking)
			resp.Booking = &dto
		}
		responses.WriteSuccess(w, resp)
	}
}

func Cancel(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		userID, bookingID, err := ownerAndBooking(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Cancel(r.Context(), bookingID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalbookings.ToDTO(*booking))
	}
}

// AdminConfirm records a provider acceptance on behalf of the provider.
func AdminConfirm(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider_id"))
			return
		}
		confirm(w, r, svc, logg, providerID)
	}
}

// ProviderConfirm lets the currently assigned provider accept the booking.
// The provider is the caller, so no body is read.
func ProviderConfirm(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirm(w, r, svc, logg, uuid.Nil)
	}
}

// confirm uses the caller as the provider when providerID is nil.
func confirm(w http.ResponseWriter, r *http.Request, svc internalbookings.Service, logg *logger.Logger, providerID uuid.UUID) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
		return
	}
	actorID, bookingID, err := ownerAndBooking(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if providerID == uuid.Nil {
		providerID = actorID
	}

	booking, err := svc.Confirm(r.Context(), internalbookings.ConfirmInput{
		BookingID:   bookingID,
		ProviderID:  providerID,
		ActorUserID: actorID,
		ActorRole:   middleware.RoleFromContext(r.Context()),
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, internalbookings.ToDTO(*booking))
}

func (req createBookingRequest) toInput(userID uuid.UUID) (internalbookings.CreateInput, error) {
	input := internalbookings.CreateInput{
		UserID:            userID,
		TaskID:            uuid.MustParse(req.TaskID),
		ProviderID:        uuid.MustParse(req.ProviderID),
		BackupProviderIDs: make([]uuid.UUID, 0, len(req.BackupProviderIDs)),
		Notes:             validators.SanitizeOptional(req.Notes, maxNotesLen),
	}
	for _, raw := range req.BackupProviderIDs {
		input.BackupProviderIDs = append(input.BackupProviderIDs, uuid.MustParse(raw))
	}

	scheduled, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return internalbookings.CreateInput{}, err
	}
	input.ScheduledDate = scheduled
	return input, nil
}

// parseScheduledDate accepts either a full RFC 3339 timestamp or a bare
// calendar date, which is read as midnight UTC.
func parseScheduledDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scheduled_date").
			WithDetails(map[string]string{"scheduled_date": "must be RFC 3339 or YYYY-MM-DD"})
	}
	return t, nil
}

func requireUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}

func ownerAndBooking(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := requireUser(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	bookingID, err := validators.ParseURLUUID(r, bookingIDParam)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, bookingID, nil
}
