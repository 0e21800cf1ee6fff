package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time truncated to the minute, stored as minutes
// since midnight. It serializes as "HH:MM".
type TimeOfDay int

// Midnight is 00:00.
const Midnight TimeOfDay = 0

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay parses an "HH:MM" string and panics on failure. Intended for
// hardcoded schedules.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayFromTime truncates a time.Time to its minute-of-day.
func TimeOfDayFromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// InRange reports whether t falls within [start, end) using wraparound
// semantics. A range whose start is after its end crosses midnight. The
// special range 00:00-00:00 covers the whole day.
func (t TimeOfDay) InRange(start, end TimeOfDay) bool {
	if start == Midnight && end == Midnight {
		return true
	}
	if start <= end {
		return t >= start && t < end
	}
	// crosses midnight
	return t >= start || t < end
}

// MarshalJSON serializes as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
