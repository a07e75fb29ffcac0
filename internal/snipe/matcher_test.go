package snipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/resy-sniper/internal/snipe"
)

func slot(t string) snipe.Slot { return snipe.Slot{Time: t} }

func TestParseClockTime(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		ok      bool
	}{
		{"7:00 PM", 19 * 60, true},
		{"7:00PM", 19 * 60, true},
		{"  7:00 PM  ", 19 * 60, true},
		{"12:00 AM", 0, true},
		{"12:30 PM", 12*60 + 30, true},
		{"11:59 PM", 23*60 + 59, true},
		{"7:00 pm", 19 * 60, true},
		{"19:00", 0, false},
		{"seven pm", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := snipe.ParseClockTime(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, snipe.ClockTime(tc.minutes), got, "input %q", tc.in)
		}
	}
}

func TestFilterByTimeSortsByDistance(t *testing.T) {
	slots := []snipe.Slot{slot("6:00 PM"), slot("7:30 PM"), slot("9:00 PM")}

	got := snipe.FilterByTime(slots, []string{"7:00 PM"}, 60)

	require.Len(t, got, 2)
	assert.Equal(t, "7:30 PM", got[0].Time) // 30 min away
	assert.Equal(t, "6:00 PM", got[1].Time) // 60 min away, inside window
}

func TestFilterByTimeStableOnTies(t *testing.T) {
	slots := []snipe.Slot{slot("6:30 PM"), slot("7:30 PM")}

	got := snipe.FilterByTime(slots, []string{"7:00 PM"}, 60)

	require.Len(t, got, 2)
	assert.Equal(t, "6:30 PM", got[0].Time)
	assert.Equal(t, "7:30 PM", got[1].Time)
}

func TestFilterByTimeEmptyPreferredReturnsAll(t *testing.T) {
	slots := []snipe.Slot{slot("9:00 PM"), slot("6:00 PM")}

	got := snipe.FilterByTime(slots, nil, 60)

	assert.Equal(t, slots, got)
}

func TestFilterByTimeUnparseablePreferredReturnsAll(t *testing.T) {
	slots := []snipe.Slot{slot("9:00 PM"), slot("6:00 PM")}

	got := snipe.FilterByTime(slots, []string{"around dinner"}, 60)

	assert.Equal(t, slots, got)
}

func TestFilterByTimeDropsUnparseableSlots(t *testing.T) {
	slots := []snipe.Slot{slot("7:15 PM"), slot("soonish"), slot("7:45 PM")}

	got := snipe.FilterByTime(slots, []string{"7:00 PM"}, 60)

	require.Len(t, got, 2)
	for _, s := range got {
		assert.NotEqual(t, "soonish", s.Time)
	}
}

func TestFilterByTimeRespectsWindow(t *testing.T) {
	slots := []snipe.Slot{slot("5:00 PM"), slot("7:10 PM"), slot("10:00 PM")}

	got := snipe.FilterByTime(slots, []string{"7:00 PM"}, 30)

	require.Len(t, got, 1)
	assert.Equal(t, "7:10 PM", got[0].Time)
}

func TestFilterByTimeNearestOfSeveralPreferred(t *testing.T) {
	slots := []snipe.Slot{slot("6:15 PM"), slot("8:45 PM")}

	// 8:45 is 15 min from 8:30; 6:15 is 45 min from 7:00.
	got := snipe.FilterByTime(slots, []string{"7:00 PM", "8:30 PM"}, 60)

	require.Len(t, got, 2)
	assert.Equal(t, "8:45 PM", got[0].Time)
}

func TestPickBestScenario(t *testing.T) {
	slots := []snipe.Slot{slot("6:00 PM"), slot("7:30 PM"), slot("9:00 PM")}

	got := snipe.PickBest(slots, []string{"7:00 PM"}, 60)

	require.NotNil(t, got)
	assert.Equal(t, "7:30 PM", got.Time)
}

func TestPickBestFallsBackOutsideWindow(t *testing.T) {
	// Nothing within 15 minutes of 7:00 PM; the sniper still wants the
	// closest slot overall rather than nothing.
	slots := []snipe.Slot{slot("5:00 PM"), slot("9:30 PM")}

	got := snipe.PickBest(slots, []string{"7:00 PM"}, 15)

	require.NotNil(t, got)
	assert.Equal(t, "5:00 PM", got.Time)
}

func TestPickBestEmptySlots(t *testing.T) {
	assert.Nil(t, snipe.PickBest(nil, []string{"7:00 PM"}, 60))
}

func TestPickBestNoPreferredReturnsFirst(t *testing.T) {
	slots := []snipe.Slot{slot("9:00 PM"), slot("6:00 PM")}

	got := snipe.PickBest(slots, nil, 60)

	require.NotNil(t, got)
	assert.Equal(t, "9:00 PM", got.Time)
}

func TestPickBestAllSlotsUnparseable(t *testing.T) {
	slots := []snipe.Slot{slot("soon"), slot("later")}

	assert.Nil(t, snipe.PickBest(slots, []string{"7:00 PM"}, 60))
}

func TestPickBestUnparseablePreferredReturnsFirst(t *testing.T) {
	slots := []snipe.Slot{slot("9:00 PM"), slot("6:00 PM")}

	got := snipe.PickBest(slots, []string{"whenever"}, 60)

	require.NotNil(t, got)
	assert.Equal(t, "9:00 PM", got.Time)
}
