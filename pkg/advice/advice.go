// Package advice synthesizes ranked, capped recommendation lists from a
// day's tariff intervals, solar forecast, consumption series, and the user's
// configured assets.
package advice

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gridsage/gridsage/pkg/types"
)

// maxItemsPerList caps each advice list. Truncation happens only after full
// ranking.
const maxItemsPerList = 3

// defaultRoundTripEfficiency applies when a battery doesn't report one.
const defaultRoundTripEfficiency = 0.9

// Inputs is everything advice generation reads. All series are keyed by the
// shared 48-slot day grid.
type Inputs struct {
	Date        time.Time
	Tariff      []types.TariffInterval
	Solar       *types.SolarForecast
	Consumption []types.ConsumptionSlot
	Vehicles    []types.ElectricVehicle
	Batteries   []types.HomeBattery

	// NaiveEVChargingStart is the assumed plug-in time charging-shift savings
	// are measured against. Zero means 18:00.
	NaiveEVChargingStart types.TimeOfDay
}

// Generate produces the three advice lists. Every produced item has a
// non-negative savings estimate and non-empty title and description; a user
// with no assets and no data gets well-formed empty lists.
func Generate(in Inputs) types.EnergyAdvice {
	if in.NaiveEVChargingStart == 0 {
		in.NaiveEVChargingStart = types.MustTimeOfDay("18:00")
	}
	return types.EnergyAdvice{
		GeneralAdvice: rankAndCap(generalAdvice(in)),
		EVAdvice:      rankAndCap(evAdvice(in)),
		BatteryAdvice: rankAndCap(batteryAdvice(in)),
	}
}

// rankAndCap sorts by priority (high first) then savings descending, and only
// then truncates to the cap.
func rankAndCap(items []types.AdviceItem) []types.AdviceItem {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Priority.Rank(), items[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return items[i].EstimatedSavings > items[j].EstimatedSavings
	})
	if len(items) > maxItemsPerList {
		items = items[:maxItemsPerList]
	}
	return items
}

func priorityFor(savings float64) types.AdvicePriority {
	switch {
	case savings >= 1.0:
		return types.AdvicePriorityHigh
	case savings >= 0.25:
		return types.AdvicePriorityMedium
	default:
		return types.AdvicePriorityLow
	}
}

// averagePrice over slots with a known (nonzero) price. Returns 0 when the
// whole day is unknown.
func averagePrice(tariff []types.TariffInterval) float64 {
	var sum float64
	var n int
	for _, iv := range tariff {
		if iv.PricePerKWH > 0 {
			sum += iv.PricePerKWH
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func minSlotPrice(tariff []types.TariffInterval) float64 {
	min := math.Inf(1)
	for _, iv := range tariff {
		if iv.PricePerKWH > 0 && iv.PricePerKWH < min {
			min = iv.PricePerKWH
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// cheapestWindow returns the start index and average price of the cheapest
// contiguous window of n slots. ok is false when the tariff doesn't cover a
// window of that size.
func cheapestWindow(tariff []types.TariffInterval, n int) (start int, avg float64, ok bool) {
	return extremeWindow(tariff, n, func(a, b float64) bool { return a < b })
}

// priciestWindow is cheapestWindow's counterpart for the most expensive
// window.
func priciestWindow(tariff []types.TariffInterval, n int) (start int, avg float64, ok bool) {
	return extremeWindow(tariff, n, func(a, b float64) bool { return a > b })
}

func extremeWindow(tariff []types.TariffInterval, n int, better func(a, b float64) bool) (int, float64, bool) {
	if n <= 0 || n > len(tariff) {
		return 0, 0, false
	}
	var windowSum float64
	for i := 0; i < n; i++ {
		windowSum += tariff[i].PricePerKWH
	}
	bestStart, bestSum := 0, windowSum
	for i := n; i < len(tariff); i++ {
		windowSum += tariff[i].PricePerKWH - tariff[i-n].PricePerKWH
		if better(windowSum, bestSum) {
			bestStart, bestSum = i-n+1, windowSum
		}
	}
	return bestStart, bestSum / float64(n), true
}

// windowTimes converts a slot window [start, start+n) to its wall-clock
// bounds. The end of the final slot wraps to 00:00.
func windowTimes(tariff []types.TariffInterval, start, n int) (types.TimeOfDay, types.TimeOfDay) {
	from := types.TimeOfDayFromTime(tariff[start].Start)
	to := types.TimeOfDayFromTime(tariff[start+n-1].End)
	return from, to
}

// generalAdvice produces load-shifting, solar self-use, and cheap-window
// scheduling candidates.
func generalAdvice(in Inputs) []types.AdviceItem {
	var items []types.AdviceItem
	if len(in.Tariff) == 0 {
		return items
	}
	avgPrice := averagePrice(in.Tariff)
	if avgPrice <= 0 {
		// tariff entirely unknown: no price signal to advise on
		return items
	}

	if item, ok := loadShiftItem(in, avgPrice); ok {
		items = append(items, item)
	}
	if item, ok := solarUseItem(in, avgPrice); ok {
		items = append(items, item)
	}
	if item, ok := cheapWindowItem(in, avgPrice); ok {
		items = append(items, item)
	}
	return items
}

// loadShiftItem flags slots where both price and consumption run well above
// their day averages and values the shift against the day's cheapest slot.
func loadShiftItem(in Inputs, avgPrice float64) (types.AdviceItem, bool) {
	if len(in.Consumption) != len(in.Tariff) {
		return types.AdviceItem{}, false
	}
	var consSum float64
	var consN int
	for _, c := range in.Consumption {
		if c.ConsumptionKWH != nil {
			consSum += *c.ConsumptionKWH
			consN++
		}
	}
	if consN == 0 || consSum <= 0 {
		return types.AdviceItem{}, false
	}
	avgCons := consSum / float64(consN)
	cheapest := minSlotPrice(in.Tariff)

	// find the contiguous flagged run worth the most
	type run struct {
		start, end int
		savings    float64
	}
	var best run
	var cur *run
	for i, iv := range in.Tariff {
		c := in.Consumption[i].ConsumptionKWH
		flagged := c != nil && iv.PricePerKWH >= 1.3*avgPrice && *c >= 1.3*avgCons
		if !flagged {
			cur = nil
			continue
		}
		slotSavings := *c * (iv.PricePerKWH - cheapest)
		if cur == nil {
			cur = &run{start: i, end: i, savings: slotSavings}
		} else {
			cur.end = i
			cur.savings += slotSavings
		}
		if cur.savings > best.savings {
			best = *cur
		}
	}
	if best.savings <= 0 {
		return types.AdviceItem{}, false
	}

	from, to := windowTimes(in.Tariff, best.start, best.end-best.start+1)
	return types.AdviceItem{
		Title: "Shift usage away from peak pricing",
		Description: fmt.Sprintf(
			"Your consumption between %s and %s coincides with the day's most expensive electricity (%s). Moving flexible loads to off-peak hours could save about %.2f per day.",
			from, to, in.Tariff[best.start].PeriodName, best.savings),
		RecommendedTimeStart: from,
		RecommendedTimeEnd:   to,
		EstimatedSavings:     best.savings,
		Priority:             priorityFor(best.savings),
	}, true
}

// solarUseItem recommends running loads while generation is abundant and
// prices are at or below average.
func solarUseItem(in Inputs, avgPrice float64) (types.AdviceItem, bool) {
	if in.Solar == nil || len(in.Solar.Intervals) != len(in.Tariff) {
		return types.AdviceItem{}, false
	}
	var peak float64
	for _, iv := range in.Solar.Intervals {
		if iv.GenerationKWH > peak {
			peak = iv.GenerationKWH
		}
	}
	if peak <= 0 {
		return types.AdviceItem{}, false
	}

	first, last := -1, -1
	var savings float64
	for i, iv := range in.Solar.Intervals {
		if iv.GenerationKWH < 0.5*peak || in.Tariff[i].PricePerKWH > avgPrice {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
		// self-consumed solar displaces grid purchases at the slot price
		savings += iv.GenerationKWH * in.Tariff[i].PricePerKWH
	}
	if first == -1 || savings <= 0 {
		return types.AdviceItem{}, false
	}

	from, to := windowTimes(in.Tariff, first, last-first+1)
	return types.AdviceItem{
		Title: "Use your solar generation directly",
		Description: fmt.Sprintf(
			"Solar output is strongest between %s and %s while prices are at or below average. Running appliances then uses free generation instead of grid power, worth about %.2f per day.",
			from, to, savings),
		RecommendedTimeStart: from,
		RecommendedTimeEnd:   to,
		EstimatedSavings:     savings,
		Priority:             priorityFor(savings),
	}, true
}

// heavyApplianceKWH is the assumed shiftable load behind the cheap-window
// scheduling suggestion (dishwasher plus laundry, roughly).
const heavyApplianceKWH = 3.0

// cheapWindowItem points at the cheapest contiguous 3-hour window of the day.
func cheapWindowItem(in Inputs, avgPrice float64) (types.AdviceItem, bool) {
	const slots = 6 // 3 hours
	start, windowAvg, ok := cheapestWindow(in.Tariff, slots)
	if !ok {
		return types.AdviceItem{}, false
	}
	savings := (avgPrice - windowAvg) * heavyApplianceKWH
	if savings <= 0.01 {
		return types.AdviceItem{}, false
	}

	from, to := windowTimes(in.Tariff, start, slots)
	return types.AdviceItem{
		Title: "Schedule heavy appliances for the cheapest hours",
		Description: fmt.Sprintf(
			"Electricity is cheapest between %s and %s (%.3f/kWh vs a %.3f/kWh daily average). Timing dishwasher and laundry runs for that window saves about %.2f per day.",
			from, to, windowAvg, avgPrice, savings),
		RecommendedTimeStart: from,
		RecommendedTimeEnd:   to,
		EstimatedSavings:     savings,
		Priority:             priorityFor(savings),
	}, true
}

// evAdvice finds, for each configured EV, the cheapest contiguous window long
// enough for a full charge and values it against charging from the naive
// plug-in time.
func evAdvice(in Inputs) []types.AdviceItem {
	var items []types.AdviceItem
	if len(in.Tariff) == 0 {
		return items
	}
	for _, ev := range in.Vehicles {
		if ev.BatteryCapacityKWH <= 0 || ev.ChargeRateKW <= 0 {
			continue
		}
		energy := ev.BatteryCapacityKWH * (1 - ev.CurrentChargePercent/100)
		if energy <= 0 {
			continue
		}
		slots := int(math.Ceil(energy / (ev.ChargeRateKW * 0.5)))
		if slots > len(in.Tariff) {
			slots = len(in.Tariff)
		}

		bestStart, bestAvg, ok := cheapestWindow(in.Tariff, slots)
		if !ok {
			continue
		}

		// the naive window starts at the assumed plug-in time
		naiveStart := int(in.NaiveEVChargingStart) / 30
		naiveAvg := wrappedWindowAvg(in.Tariff, naiveStart, slots)

		savings := (naiveAvg - bestAvg) * energy
		if savings < 0 {
			savings = 0
		}

		from, to := windowTimes(in.Tariff, bestStart, slots)
		items = append(items, types.AdviceItem{
			Title: fmt.Sprintf("Charge %s during the cheapest window", ev.Name),
			Description: fmt.Sprintf(
				"A full charge needs about %.1f kWh (%.1f hours at %.1f kW). Charging between %s and %s instead of from %s saves about %.2f.",
				energy, float64(slots)*0.5, ev.ChargeRateKW, from, to, in.NaiveEVChargingStart, savings),
			RecommendedTimeStart: from,
			RecommendedTimeEnd:   to,
			EstimatedSavings:     savings,
			Priority:             priorityFor(savings),
		})
	}
	return items
}

// wrappedWindowAvg averages n slots starting at index start, wrapping past
// the end of the day. The naive evening charging window usually runs past
// midnight.
func wrappedWindowAvg(tariff []types.TariffInterval, start, n int) float64 {
	if n <= 0 || len(tariff) == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += tariff[(start+i)%len(tariff)].PricePerKWH
	}
	return sum / float64(n)
}

// batteryAdvice suggests, for each battery, a cheap charge window paired with
// an expensive discharge window and values the arbitrage across a full cycle.
func batteryAdvice(in Inputs) []types.AdviceItem {
	var items []types.AdviceItem
	if len(in.Tariff) == 0 {
		return items
	}
	for _, b := range in.Batteries {
		if b.CapacityKWH <= 0 || b.MaxPowerKW <= 0 {
			continue
		}
		slots := int(math.Ceil(b.CapacityKWH / (b.MaxPowerKW * 0.5)))
		if slots > len(in.Tariff) {
			slots = len(in.Tariff)
		}

		chargeStart, chargeAvg, ok := cheapestWindow(in.Tariff, slots)
		if !ok {
			continue
		}
		dischargeStart, dischargeAvg, ok := priciestWindow(in.Tariff, slots)
		if !ok {
			continue
		}

		// throughput is bounded by both capacity and what the power rating
		// can move in the window
		throughput := math.Min(b.CapacityKWH, b.MaxPowerKW*float64(slots)*0.5)
		efficiency := b.RoundTripEfficiency
		if efficiency <= 0 || efficiency > 1 {
			efficiency = defaultRoundTripEfficiency
		}
		savings := (dischargeAvg - chargeAvg) * throughput * efficiency
		if savings < 0 {
			savings = 0
		}

		chFrom, chTo := windowTimes(in.Tariff, chargeStart, slots)
		disFrom, disTo := windowTimes(in.Tariff, dischargeStart, slots)
		items = append(items, types.AdviceItem{
			Title: fmt.Sprintf("Cycle %s between cheap and peak hours", b.Name),
			Description: fmt.Sprintf(
				"Charge between %s and %s (%.3f/kWh) and discharge between %s and %s (%.3f/kWh). One cycle of %.1f kWh at %.0f%% efficiency is worth about %.2f per day.",
				chFrom, chTo, chargeAvg, disFrom, disTo, dischargeAvg, throughput, efficiency*100, savings),
			RecommendedTimeStart: chFrom,
			RecommendedTimeEnd:   chTo,
			EstimatedSavings:     savings,
			Priority:             priorityFor(savings),
		})

		// if there is meaningful solar, charging from it beats even cheap
		// grid power
		if in.Solar != nil {
			if item, ok := batterySolarItem(in, b, chargeAvg); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func batterySolarItem(in Inputs, b types.HomeBattery, gridChargeAvg float64) (types.AdviceItem, bool) {
	if len(in.Solar.Intervals) != len(in.Tariff) {
		return types.AdviceItem{}, false
	}
	var total float64
	first, last := -1, -1
	for i, iv := range in.Solar.Intervals {
		if iv.GenerationKWH <= 0 {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
		total += iv.GenerationKWH
	}
	if first == -1 || total < b.CapacityKWH*0.3 {
		return types.AdviceItem{}, false
	}

	stored := math.Min(b.CapacityKWH, total)
	savings := stored * gridChargeAvg
	if savings <= 0 {
		return types.AdviceItem{}, false
	}
	from, to := windowTimes(in.Tariff, first, last-first+1)
	return types.AdviceItem{
		Title: fmt.Sprintf("Charge %s from solar", b.Name),
		Description: fmt.Sprintf(
			"Forecast solar between %s and %s can store about %.1f kWh in the battery instead of buying it from the grid, worth about %.2f.",
			from, to, stored, savings),
		RecommendedTimeStart: from,
		RecommendedTimeEnd:   to,
		EstimatedSavings:     savings,
		Priority:             priorityFor(savings),
	}, true
}
