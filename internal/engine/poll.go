package engine

import (
	"context"
	"fmt"

	"github.com/example/resy-sniper/internal/snipe"
)

type pollResult struct {
	booked            bool
	timeSlot          string
	confirmationID    string
	confirmationToken string
	errMsg            string
	eventOnly         bool
}

// pollOnce performs a single availability check and booking attempt.
// Provider errors are converted to transient poll errors here, at the
// provider call boundary, and never crash the loop.
func (e *Engine) pollOnce(ctx context.Context, job snipe.Job) pollResult {
	slots, err := e.provider.ListAvailability(ctx, job.VenueSlug, job.Date, job.PartySize)
	if err != nil {
		return pollResult{errMsg: fmt.Sprintf("availability check failed: %v", err)}
	}
	if len(slots) == 0 {
		return pollResult{errMsg: "no slots available"}
	}

	// Event cards occupy the grid but cannot be booked as time slots.
	candidates := make([]snipe.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Type != snipe.SlotTypeEvent {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return pollResult{errMsg: "no slots available", eventOnly: true}
	}

	best := snipe.PickBest(candidates, job.PreferredTimes, job.TimeWindowMinutes)
	if best == nil {
		return pollResult{errMsg: "no matching slots in time window"}
	}

	handle := best.ConfigID
	if handle == "" {
		handle = snipe.MakeBookingHandle(job.VenueSlug, job.Date, best.Time)
	}

	res, err := e.provider.AttemptBooking(ctx, handle, job.Date, job.PartySize)
	if err != nil {
		return pollResult{errMsg: fmt.Sprintf("booking failed: %v", err)}
	}
	if res.Success {
		return pollResult{
			booked:            true,
			timeSlot:          best.Time,
			confirmationID:    res.ConfirmationID,
			confirmationToken: res.ConfirmationToken,
		}
	}

	if res.Status == snipe.BookingStatusConflict && job.AutoResolveConflicts {
		return e.resolveConflict(ctx, job, handle, *best)
	}

	msg := res.Error
	if msg == "" {
		msg = "booking unsuccessful"
	}
	return pollResult{errMsg: msg}
}

// resolveConflict instructs the provider to cancel the colliding existing
// reservation and proceed with the new booking. The venue and time text
// come from the booking handle when it decomposes; otherwise the job's own
// venue and the slot's raw time are used.
func (e *Engine) resolveConflict(ctx context.Context, job snipe.Job, handle string, slot snipe.Slot) pollResult {
	venueSlug := job.VenueSlug
	timeText := slot.Time
	if parsed, err := snipe.ParseBookingHandle(handle); err == nil {
		venueSlug = parsed.VenueSlug
		timeText = parsed.TimeText
	}

	res, err := e.provider.ResolveConflict(ctx, snipe.ChoiceContinue, handle, job.Date, job.PartySize, venueSlug, timeText)
	if err != nil {
		return pollResult{errMsg: fmt.Sprintf("conflict resolution failed: %v", err)}
	}
	if res.Success {
		return pollResult{
			booked:            true,
			timeSlot:          slot.Time,
			confirmationID:    res.ConfirmationID,
			confirmationToken: res.ConfirmationToken,
		}
	}

	msg := res.Error
	if msg == "" {
		msg = "conflict resolution failed"
	}
	return pollResult{errMsg: msg}
}
