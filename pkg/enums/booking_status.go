package enums

import "fmt"

// BookingStatus maps to the booking_status enum in Postgres.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusEscalated BookingStatus = "escalated"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusEscalated,
	BookingStatusConfirmed,
	BookingStatusFailed,
	BookingStatusCancelled,
}

// AwaitingProviderStatuses are the states in which a response deadline runs.
var AwaitingProviderStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusEscalated,
}

// String implements fmt.Stringer.
func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AwaitingProvider reports whether a provider response deadline applies.
func (s BookingStatus) AwaitingProvider() bool {
	return s == BookingStatusPending || s == BookingStatusEscalated
}

// IsTerminal reports whether no engine transition leaves this state.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusFailed || s == BookingStatusCancelled
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
