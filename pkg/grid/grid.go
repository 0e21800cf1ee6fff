// Package grid defines the canonical 48-slot half-hour day grid that every
// per-day series (tariff, solar, consumption) is keyed by.
package grid

import "time"

// SlotsPerDay is the number of half-hour slots in a calendar day.
const SlotsPerDay = 48

// SlotDuration is the width of a single slot.
const SlotDuration = 30 * time.Minute

// Slot is one half-hour window [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// Midnight truncates a time to the start of its calendar day in its location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Day returns the 48 contiguous half-hour slots covering the calendar day of
// date, starting at local midnight. The last slot's end is the following
// midnight, so it formats as 00:00 rather than 24:00.
func Day(date time.Time) [SlotsPerDay]Slot {
	var slots [SlotsPerDay]Slot
	start := Midnight(date)
	for i := range slots {
		slots[i] = Slot{
			Start: start.Add(time.Duration(i) * SlotDuration),
			End:   start.Add(time.Duration(i+1) * SlotDuration),
		}
	}
	return slots
}

// Index returns the slot index of t within the calendar day of date, or -1 if
// t falls outside that day.
func Index(date, t time.Time) int {
	start := Midnight(date)
	if t.Before(start) {
		return -1
	}
	i := int(t.Sub(start) / SlotDuration)
	if i >= SlotsPerDay {
		return -1
	}
	return i
}

// AfterDate reports whether a falls on a strictly later calendar date than b,
// ignoring time of day.
func AfterDate(a, b time.Time) bool {
	return Midnight(a).After(Midnight(b))
}
