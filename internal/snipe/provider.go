package snipe

import "context"

// BookingStatusConflict on a failed booking signals that an existing
// reservation collides with the one being made.
const BookingStatusConflict = "conflict"

// BookingResult is the outcome of a booking or conflict-resolution call.
type BookingResult struct {
	Success           bool
	ConfirmationID    string
	ConfirmationToken string
	Status            string // BookingStatusConflict on collision
	Error             string
}

// ConflictChoice tells the provider what to do with an existing
// reservation that collides with the booking in progress.
type ConflictChoice string

const (
	// ChoiceContinue cancels the existing reservation and proceeds.
	ChoiceContinue ConflictChoice = "continue"
	// ChoiceKeep aborts the new booking and leaves the existing one intact.
	ChoiceKeep ConflictChoice = "keep"
)

// Provider is the reservation-platform capability consumed by the engine.
// ListAvailability returns an empty slice (not an error) when nothing is
// bookable; errors are reserved for transport failures.
type Provider interface {
	Name() string
	ListAvailability(ctx context.Context, venueID, date string, partySize int) ([]Slot, error)
	AttemptBooking(ctx context.Context, handle, date string, partySize int) (BookingResult, error)
	ResolveConflict(ctx context.Context, choice ConflictChoice, handle, date string, partySize int, venueID, timeText string) (BookingResult, error)
	Close() error
}

// BookingOutcome summarizes a successful booking for notification.
type BookingOutcome struct {
	TimeSlot       string
	ConfirmationID string
}

// Notifier delivers job outcome messages. Implementations must be safely
// callable when unconfigured: return false, never fail the caller.
type Notifier interface {
	NotifySuccess(ctx context.Context, job Job, outcome BookingOutcome) bool
	NotifyFailure(ctx context.Context, job Job, reason string) bool
}
