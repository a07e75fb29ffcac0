// Package snipe holds the domain types for reservation sniping: jobs,
// confirmed reservations, candidate slots, and the slot-matching rules
// used to rank availability against a job's preferred times.
package snipe

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrInvalidHandle = errors.New("invalid booking handle")
)

// Status is the lifecycle state of a sniper job. Legal transitions are
// pending -> active -> completed|failed|cancelled, plus active -> pending
// when a worker shuts down mid-poll (the job stays resumable).
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is a persisted request to grab a reservation slot at drop time.
type Job struct {
	ID                   int64
	VenueSlug            string
	Date                 string // YYYY-MM-DD
	PreferredTimes       []string
	PartySize            int
	TimeWindowMinutes    int
	Status               Status
	PollCount            int
	MaxAttempts          int
	ScheduledAt          time.Time
	AutoResolveConflicts bool
	ReservationID        *int64
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// JobSpec is the caller-facing shape for creating a job. Zero/nil optional
// fields receive configured defaults at the store.
type JobSpec struct {
	VenueSlug            string
	Date                 string // YYYY-MM-DD
	PreferredTimes       []string
	PartySize            int    // 0 -> default
	TimeWindowMinutes    *int   // nil -> default
	MaxAttempts          int    // 0 -> default
	ScheduledAt          string // ISO 8601; "" -> now
	AutoResolveConflicts *bool  // nil -> true
	Notes                string
}

// JobPatch is a partial update of a job. Nil fields are left untouched;
// an all-nil patch is a no-op.
type JobPatch struct {
	Status         *Status
	PollCount      *int
	MaxAttempts    *int
	PreferredTimes *[]string
	ReservationID  *int64
	Notes          *string
}

// Empty reports whether the patch would change nothing.
func (p JobPatch) Empty() bool {
	return p.Status == nil && p.PollCount == nil && p.MaxAttempts == nil &&
		p.PreferredTimes == nil && p.ReservationID == nil && p.Notes == nil
}

// Reservation statuses. Platforms that confirm asynchronously yield
// pending_confirmation until the confirmation id arrives.
const (
	ReservationConfirmed           = "confirmed"
	ReservationPendingConfirmation = "pending_confirmation"
	ReservationCancelled           = "cancelled"
)

// Reservation is a confirmed (or pending-confirmation) booking.
type Reservation struct {
	ID                 int64
	Platform           string
	VenueID            *string
	RestaurantName     string
	Date               string // YYYY-MM-DD
	Time               string // e.g. "7:00 PM"
	PartySize          int
	ConfirmationNumber *string
	ConfirmationToken  *string
	Status             string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Slot is one bookable candidate returned by a provider for a poll.
// Slots are transient and never persisted.
type Slot struct {
	Time      string // e.g. "7:00 PM"
	ConfigID  string // opaque booking handle; may be empty for UI-scraped slots
	Type      string // "standard", or an event-style listing that cannot be booked
	TableName string
	VenueName string
}

// SlotTypeEvent marks listings (special event cards) that occupy the
// availability grid but are not standard bookable time slots.
const SlotTypeEvent = "event"

var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseScheduleTime parses an ISO 8601-ish scheduled_at value. Timestamps
// without a zone are taken as UTC.
func ParseScheduleTime(s string) (time.Time, error) {
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid scheduled_at %q", ErrValidation, s)
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
