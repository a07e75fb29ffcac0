package snipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resy-sniper/internal/snipe"
)

func TestBookingHandleRoundTrip(t *testing.T) {
	h := snipe.MakeBookingHandle("fish-cheeks", "2026-03-14", "7:30 PM")
	assert.Equal(t, "fish-cheeks|||2026-03-14|||7:30 PM", h)

	parsed, err := snipe.ParseBookingHandle(h)
	require.NoError(t, err)
	assert.Equal(t, "fish-cheeks", parsed.VenueSlug)
	assert.Equal(t, "2026-03-14", parsed.Date)
	assert.Equal(t, "7:30 PM", parsed.TimeText)
}

func TestParseBookingHandleRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"fish-cheeks",
		"fish-cheeks|||2026-03-14",
		"fish-cheeks|||2026-03-14|||7:30 PM|||extra",
		"fish-cheeks|2026-03-14|7:30 PM",
	} {
		_, err := snipe.ParseBookingHandle(in)
		assert.ErrorIs(t, err, snipe.ErrInvalidHandle, "input %q", in)
	}
}

func TestParseBookingHandleAllowsEmptyParts(t *testing.T) {
	// Providers occasionally omit the time text; three parts is the only
	// structural requirement.
	parsed, err := snipe.ParseBookingHandle("|||2026-03-14|||")
	require.NoError(t, err)
	assert.Empty(t, parsed.VenueSlug)
	assert.Equal(t, "2026-03-14", parsed.Date)
	assert.Empty(t, parsed.TimeText)
}
