// Package disagg estimates per-device-category consumption from an aggregate
// half-hourly meter series.
//
// Every detector is a statistical pattern-matcher over the interval series,
// not a physical model; without submetering there is no ground truth to
// validate against, so the outputs are advisory estimates only. Each detector
// is an independent pure function composed by Disaggregate, which keeps the
// heuristics swappable and testable in isolation.
package disagg

import (
	"math"
	"sort"

	"github.com/gridsage/gridsage/pkg/types"
)

// Disaggregate decomposes a consumption series into device-category
// estimates. An empty series yields an all-zero result. The discretionary
// category is the residual after the detectors and is never negative;
// percentages are guarded against a zero total.
func Disaggregate(points []types.ConsumptionDataPoint, hasConfiguredEV bool) types.DisaggregationResult {
	res := types.DisaggregationResult{HasConfiguredEV: hasConfiguredEV}
	if len(points) == 0 {
		return res
	}
	res.Start = points[0].Timestamp
	res.End = points[len(points)-1].Timestamp

	var total float64
	for _, p := range points {
		total += p.ConsumptionKWH
	}
	res.TotalKWH = total
	avg := total / float64(len(points))

	res.BaseloadKWH = baseloadKWH(points)
	res.HVACKWH = hvacKWH(points, avg)
	res.WaterHeaterKWH = waterHeaterKWH(points)
	res.EVChargingKWH, res.EVPatternDetected = evChargingKWH(points, avg)

	accounted := res.BaseloadKWH + res.HVACKWH + res.WaterHeaterKWH + res.EVChargingKWH
	res.DiscretionaryKWH = math.Max(0, total-accounted)

	if total > 0 {
		res.BaseloadPercent = res.BaseloadKWH / total * 100
		res.HVACPercent = res.HVACKWH / total * 100
		res.WaterHeaterPercent = res.WaterHeaterKWH / total * 100
		res.EVChargingPercent = res.EVChargingKWH / total * 100
		res.DiscretionaryPercent = res.DiscretionaryKWH / total * 100
	}
	return res
}

// baseloadKWH estimates always-on load as the 10th-percentile per-interval
// value times the interval count, a robust minimum that shrugs off a few
// anomalously low readings.
func baseloadKWH(points []types.ConsumptionDataPoint) float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.ConsumptionKWH
	}
	sort.Float64s(values)
	idx := len(values) / 10
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx] * float64(len(values))
}

// hvacKWH flags intervals at 1.5x-3x the series average that sit in a run of
// at least 3 consecutive elevated intervals (looking ahead up to 3 more at
// >=1.3x average) and attributes 60% of their excess over the average.
func hvacKWH(points []types.ConsumptionDataPoint, avg float64) float64 {
	if avg <= 0 {
		return 0
	}
	var kwh float64
	for i, p := range points {
		v := p.ConsumptionKWH
		if v < 1.5*avg || v > 3*avg {
			continue
		}
		elevated := 1
		for j := i + 1; j < len(points) && j <= i+3; j++ {
			if points[j].ConsumptionKWH < 1.3*avg {
				break
			}
			elevated++
		}
		if elevated >= 3 {
			kwh += 0.6 * (v - avg)
		}
	}
	return kwh
}

// waterHeaterKWH flags morning (06:00-09:00) and evening (18:00-21:00)
// intervals over 1.0 kWh and attributes min(1.5, 15%) of each.
func waterHeaterKWH(points []types.ConsumptionDataPoint) float64 {
	var kwh float64
	for _, p := range points {
		h := p.Timestamp.Hour()
		inWindow := (h >= 6 && h < 9) || (h >= 18 && h < 21)
		if !inWindow || p.ConsumptionKWH <= 1.0 {
			continue
		}
		kwh += math.Min(1.5, p.ConsumptionKWH*0.15)
	}
	return kwh
}

func inEVWindow(points []types.ConsumptionDataPoint, i int) bool {
	h := points[i].Timestamp.Hour()
	// overnight or midday charging windows
	return h >= 22 || h < 6 || (h >= 11 && h < 14)
}

// evChargingKWH scans for sustained runs of 4-12 consecutive intervals at
// >=2x the series average inside the overnight (22:00-06:00) or midday
// (11:00-14:00) windows. 70% of each session's total is attributed and the
// scan pointer advances past the session so it is never counted twice. Runs
// longer than 12 intervals are rejected as charging sessions; a plausible EV
// session doesn't run that long at full draw.
func evChargingKWH(points []types.ConsumptionDataPoint, avg float64) (float64, bool) {
	if avg <= 0 {
		return 0, false
	}
	var kwh float64
	var detected bool

	i := 0
	for i < len(points) {
		if !inEVWindow(points, i) || points[i].ConsumptionKWH < 2*avg {
			i++
			continue
		}
		// measure the run of qualifying intervals
		var sessionKWH float64
		n := 0
		for j := i; j < len(points) && inEVWindow(points, j) && points[j].ConsumptionKWH >= 2*avg; j++ {
			sessionKWH += points[j].ConsumptionKWH
			n++
		}
		if n >= 4 && n <= 12 {
			kwh += 0.7 * sessionKWH
			detected = true
		}
		i += n
	}
	return kwh, detected
}
