package types

import "time"

// TariffPeriod defines a named price rule active during specific times of day
// and days of the week. The time range uses wraparound semantics: a period
// whose start is after its end crosses midnight, and 00:00-00:00 covers the
// whole day.
type TariffPeriod struct {
	Name        string         `json:"name"`
	StartTime   TimeOfDay      `json:"startTime"`
	EndTime     TimeOfDay      `json:"endTime"`
	PricePerKWH float64        `json:"pricePerKWH"`
	DaysOfWeek  []time.Weekday `json:"daysOfWeek"`
}

// Matches reports whether the period applies on the given weekday at the
// given time of day.
func (p *TariffPeriod) Matches(day time.Weekday, t TimeOfDay) bool {
	if len(p.DaysOfWeek) > 0 {
		var found bool
		for _, d := range p.DaysOfWeek {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return t.InRange(p.StartTime, p.EndTime)
}

// TariffStructure is a user's set of tariff periods. Periods are an ordered
// list, not a set: when periods overlap, the first listed match wins. Callers
// rely on declaration order for precedence, so the list is never reordered.
type TariffStructure struct {
	UserID        string         `json:"userID"`
	EffectiveDate time.Time      `json:"effectiveDate"`
	Periods       []TariffPeriod `json:"periods"`
}

// UnknownPeriodName is the period name assigned to slots no period matches.
const UnknownPeriodName = "unknown"

// TariffInterval is one half-hour slot of a day's price schedule.
type TariffInterval struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	PricePerKWH float64   `json:"pricePerKWH"`
	PeriodName  string    `json:"periodName"`
}
