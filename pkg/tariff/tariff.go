// Package tariff maps user tariff structures onto the half-hour day grid.
package tariff

import (
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/types"
)

// MapToIntervals maps a tariff structure onto the 48-slot grid for the given
// calendar date. For each slot the periods are scanned in listed order and the
// first period matching the slot's weekday and start time wins; overlaps are
// resolved by declaration order, never by sorting. Slots no period matches get
// a zero price and the "unknown" period name. The result always has 48
// entries, even for an empty or malformed structure.
func MapToIntervals(ts types.TariffStructure, date time.Time) []types.TariffInterval {
	day := date.Weekday()
	slots := grid.Day(date)

	intervals := make([]types.TariffInterval, grid.SlotsPerDay)
	for i, slot := range slots {
		intervals[i] = types.TariffInterval{
			Start:       slot.Start,
			End:         slot.End,
			PricePerKWH: 0,
			PeriodName:  types.UnknownPeriodName,
		}

		slotStart := types.TimeOfDayFromTime(slot.Start)
		for _, p := range ts.Periods {
			if p.Matches(day, slotStart) {
				intervals[i].PricePerKWH = p.PricePerKWH
				intervals[i].PeriodName = p.Name
				break
			}
		}
	}
	return intervals
}

var allWeek = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
	time.Thursday, time.Friday, time.Saturday,
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

var weekend = []time.Weekday{time.Saturday, time.Sunday}

// DefaultStructure returns the fixed fallback tariff used when a user has no
// stored structure: overnight off-peak every day, a weekday evening peak, and
// shoulder pricing the rest of the time (longer shoulder hours on weekends).
// Together the periods cover every slot of every day with a nonzero price.
// The fallback is applied at the read boundary; MapToIntervals never
// substitutes it on its own.
func DefaultStructure(userID string) types.TariffStructure {
	return types.TariffStructure{
		UserID:        userID,
		EffectiveDate: time.Time{},
		Periods: []types.TariffPeriod{
			{
				Name:        "off-peak",
				StartTime:   types.MustTimeOfDay("22:00"),
				EndTime:     types.MustTimeOfDay("07:00"),
				PricePerKWH: 0.12,
				DaysOfWeek:  allWeek,
			},
			{
				Name:        "peak",
				StartTime:   types.MustTimeOfDay("17:00"),
				EndTime:     types.MustTimeOfDay("21:00"),
				PricePerKWH: 0.35,
				DaysOfWeek:  weekdays,
			},
			{
				Name:        "shoulder",
				StartTime:   types.MustTimeOfDay("07:00"),
				EndTime:     types.MustTimeOfDay("22:00"),
				PricePerKWH: 0.20,
				DaysOfWeek:  weekdays,
			},
			{
				Name:        "weekend-shoulder",
				StartTime:   types.MustTimeOfDay("07:00"),
				EndTime:     types.MustTimeOfDay("22:00"),
				PricePerKWH: 0.18,
				DaysOfWeek:  weekend,
			},
		},
	}
}
