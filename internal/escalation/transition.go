// Package escalation moves bookings whose provider stopped responding onto
// the next ranked backup provider, or fails them once the list runs out.
package escalation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbsphere/orbzy-backend/pkg/db/models"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
)

// Outcome is the result of planning one escalation step.
type Outcome string

const (
	// OutcomeEscalated hands the booking to the next backup provider.
	OutcomeEscalated Outcome = "escalated"
	// OutcomeExhausted fails the booking; every backup has been tried.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeNoBackups signals that the booking never had backups. Nothing
	// is written; the customer should be sent to a manual quote.
	OutcomeNoBackups Outcome = "no_backups"
	// OutcomeTerminal means the booking already left the awaiting states.
	OutcomeTerminal Outcome = "terminal"
)

// Mutates reports whether the outcome writes to the booking row.
func (o Outcome) Mutates() bool {
	return o == OutcomeEscalated || o == OutcomeExhausted
}

// FallbackToQuote reports whether the customer should request a quote.
func (o Outcome) FallbackToQuote() bool {
	return o == OutcomeExhausted || o == OutcomeNoBackups
}

// Decision is a planned transition. Next is the booking as it will look
// once Updates are written; for non-mutating outcomes it equals the input.
type Decision struct {
	Outcome            Outcome
	PreviousProviderID uuid.UUID
	Next               models.Booking
	Updates            map[string]any
}

// Plan decides the next step for b at now. It never touches storage.
func Plan(b models.Booking, now time.Time, window time.Duration) (Decision, error) {
	now = now.UTC()
	switch b.Status {
	case enums.BookingStatusPending, enums.BookingStatusEscalated:
		switch {
		case len(b.BackupProviderIDs) == 0:
			return Decision{Outcome: OutcomeNoBackups, PreviousProviderID: b.ProviderID, Next: b}, nil
		case b.CurrentProviderIndex >= len(b.BackupProviderIDs):
			return exhaust(b, now), nil
		default:
			return advance(b, now, window), nil
		}
	case enums.BookingStatusConfirmed, enums.BookingStatusFailed, enums.BookingStatusCancelled:
		return Decision{Outcome: OutcomeTerminal, PreviousProviderID: b.ProviderID, Next: b}, nil
	default:
		return Decision{}, fmt.Errorf("unknown booking status %q", b.Status)
	}
}

func advance(b models.Booking, now time.Time, window time.Duration) Decision {
	next := b
	deadline := now.Add(window)
	escalatedAt := now

	next.ProviderID = b.BackupProviderIDs[b.CurrentProviderIndex]
	next.Status = enums.BookingStatusEscalated
	next.CurrentProviderIndex = b.CurrentProviderIndex + 1
	next.EscalationAttempts = b.EscalationAttempts + 1
	next.LastEscalatedAt = &escalatedAt
	next.ProviderResponseDeadline = &deadline
	next.UpdatedAt = now

	return Decision{
		Outcome:            OutcomeEscalated,
		PreviousProviderID: b.ProviderID,
		Next:               next,
		Updates: map[string]any{
			"provider_id":                next.ProviderID,
			"status":                     next.Status,
			"current_provider_index":     next.CurrentProviderIndex,
			"escalation_attempts":        next.EscalationAttempts,
			"last_escalated_at":          escalatedAt,
			"provider_response_deadline": deadline,
			"updated_at":                 now,
		},
	}
}

// exhaust fails the booking. Provider, index and deadline are left as the
// record of the last provider tried.
func exhaust(b models.Booking, now time.Time) Decision {
	next := b
	next.Status = enums.BookingStatusFailed
	next.UpdatedAt = now
	return Decision{
		Outcome:            OutcomeExhausted,
		PreviousProviderID: b.ProviderID,
		Next:               next,
		Updates: map[string]any{
			"status":     enums.BookingStatusFailed,
			"updated_at": now,
		},
	}
}
