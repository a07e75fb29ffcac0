package snipe

import (
	"fmt"
	"strings"
)

// HandleSeparator joins the three booking-handle components. It is not
// expected to appear inside a venue slug, date, or time text.
const HandleSeparator = "|||"

// BookingHandle identifies one bookable slot when the provider did not
// hand out an opaque token of its own.
type BookingHandle struct {
	VenueSlug string
	Date      string // YYYY-MM-DD
	TimeText  string // e.g. "7:00 PM"
}

// MakeBookingHandle composes venue|||date|||time into a handle string.
func MakeBookingHandle(venueSlug, date, timeText string) string {
	return strings.Join([]string{venueSlug, date, timeText}, HandleSeparator)
}

// ParseBookingHandle splits a composite handle. Any string that does not
// split into exactly three parts is rejected; callers needing a lenient
// path must fall back explicitly rather than guess here.
func ParseBookingHandle(handle string) (BookingHandle, error) {
	parts := strings.Split(handle, HandleSeparator)
	if len(parts) != 3 {
		return BookingHandle{}, fmt.Errorf("%w: %q (want venue%sdate%stime)",
			ErrInvalidHandle, handle, HandleSeparator, HandleSeparator)
	}
	return BookingHandle{VenueSlug: parts[0], Date: parts[1], TimeText: parts[2]}, nil
}
