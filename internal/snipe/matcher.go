package snipe

import (
	"sort"
	"strings"
	"time"
)

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

var clockLayouts = []string{"3:04 PM", "3:04PM"}

// ParseClockTime parses a 12-hour clock string ("7:00 PM", "7:00PM",
// surrounding whitespace tolerated). It reports ok=false on unparseable
// input; callers must treat that as "exclude this item", not an error.
func ParseClockTime(s string) (ClockTime, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), true
		}
	}
	return 0, false
}

func clockDistance(a, b ClockTime) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}

func parsePreferred(preferred []string) []ClockTime {
	out := make([]ClockTime, 0, len(preferred))
	for _, p := range preferred {
		if ct, ok := ParseClockTime(p); ok {
			out = append(out, ct)
		}
	}
	return out
}

// minDistance is the distance from a slot time to the nearest preferred time.
func minDistance(t ClockTime, prefs []ClockTime) int {
	best := clockDistance(t, prefs[0])
	for _, p := range prefs[1:] {
		if d := clockDistance(t, p); d < best {
			best = d
		}
	}
	return best
}

// FilterByTime keeps slots within windowMinutes of any preferred time,
// sorted ascending by distance to the nearest preferred time (ties keep
// input order). Slots whose own time does not parse are dropped. If
// preferred is empty, or none of its entries parse, the input is returned
// unfiltered and unsorted: the permissive fallback is deliberate, so a
// caller with no usable preference still sees everything.
func FilterByTime(slots []Slot, preferred []string, windowMinutes int) []Slot {
	if len(slots) == 0 {
		return nil
	}
	if len(preferred) == 0 {
		return append([]Slot(nil), slots...)
	}
	prefs := parsePreferred(preferred)
	if len(prefs) == 0 {
		return append([]Slot(nil), slots...)
	}

	type scored struct {
		dist int
		slot Slot
	}
	kept := make([]scored, 0, len(slots))
	for _, s := range slots {
		t, ok := ParseClockTime(s.Time)
		if !ok {
			continue
		}
		if d := minDistance(t, prefs); d <= windowMinutes {
			kept = append(kept, scored{dist: d, slot: s})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].dist < kept[j].dist })

	out := make([]Slot, len(kept))
	for i, k := range kept {
		out[i] = k.slot
	}
	return out
}

// PickBest returns the most desirable slot for the given preferences.
//
// Contract note: when nothing lands inside the window, PickBest still
// returns the globally closest slot, however far outside the window it
// lies. A sniping tool wants "something" over "nothing"; callers that must
// respect the window strictly should use FilterByTime instead. With empty
// preferred times the first input slot is returned unmodified. nil is
// returned only for empty input, or when every candidate's time field is
// unparseable.
func PickBest(slots []Slot, preferred []string, windowMinutes int) *Slot {
	if len(slots) == 0 {
		return nil
	}
	if len(preferred) == 0 {
		return &slots[0]
	}

	if filtered := FilterByTime(slots, preferred, windowMinutes); len(filtered) > 0 {
		return &filtered[0]
	}

	prefs := parsePreferred(preferred)
	if len(prefs) == 0 {
		return &slots[0]
	}

	var best *Slot
	bestDist := 0
	for i := range slots {
		t, ok := ParseClockTime(slots[i].Time)
		if !ok {
			continue
		}
		if d := minDistance(t, prefs); best == nil || d < bestDist {
			best = &slots[i]
			bestDist = d
		}
	}
	return best
}
