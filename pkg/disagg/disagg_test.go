package disagg

import (
	"testing"
	"time"

	"github.com/gridsage/gridsage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 6, 20, 0, 0, 0, 0, time.Local)

// fullDay builds a 48-slot series with the base value, then applies overrides
// keyed by slot index.
func fullDay(base float64, overrides map[int]float64) []types.ConsumptionDataPoint {
	points := make([]types.ConsumptionDataPoint, 48)
	for i := range points {
		v := base
		if o, ok := overrides[i]; ok {
			v = o
		}
		points[i] = types.ConsumptionDataPoint{
			Timestamp:      day.Add(time.Duration(i) * 30 * time.Minute),
			ConsumptionKWH: v,
		}
	}
	return points
}

func TestDisaggregateEmpty(t *testing.T) {
	res := Disaggregate(nil, false)
	assert.Zero(t, res.TotalKWH)
	assert.Zero(t, res.BaseloadKWH)
	assert.Zero(t, res.DiscretionaryKWH)
	assert.Zero(t, res.BaseloadPercent, "no division by zero")
	assert.False(t, res.EVPatternDetected)
}

func TestDisaggregateFlatSeries(t *testing.T) {
	res := Disaggregate(fullDay(1.0, nil), false)
	assert.InDelta(t, 48.0, res.TotalKWH, 1e-9)
	// a flat series is all baseload
	assert.InDelta(t, 48.0, res.BaseloadKWH, 1e-9)
	assert.Zero(t, res.HVACKWH)
	assert.Zero(t, res.WaterHeaterKWH)
	assert.Zero(t, res.EVChargingKWH)
	assert.Zero(t, res.DiscretionaryKWH)
	assert.InDelta(t, 100.0, res.BaseloadPercent, 1e-9)
}

func TestHVACDetection(t *testing.T) {
	// a 2-hour elevated run in the afternoon, outside the water-heater and
	// EV windows (15:00-17:00 = slots 30-33)
	points := fullDay(1.0, map[int]float64{30: 2.0, 31: 2.0, 32: 2.0, 33: 2.0})
	res := Disaggregate(points, false)

	avg := 52.0 / 48.0
	// the first two run members see >=2 more elevated intervals ahead
	want := 2 * 0.6 * (2.0 - avg)
	assert.InDelta(t, want, res.HVACKWH, 1e-9)
	assert.Zero(t, res.WaterHeaterKWH)
	assert.Zero(t, res.EVChargingKWH)
	assert.False(t, res.EVPatternDetected)
}

func TestHVACIgnoresShortSpikes(t *testing.T) {
	// two isolated spikes never form a run of 3
	points := fullDay(1.0, map[int]float64{30: 2.0, 35: 2.0})
	res := Disaggregate(points, false)
	assert.Zero(t, res.HVACKWH)
}

func TestWaterHeaterDetection(t *testing.T) {
	// 07:00 and 07:30 (slots 14, 15) above the 1.0 kWh threshold
	points := fullDay(0.5, map[int]float64{14: 2.0, 15: 2.0})
	res := Disaggregate(points, false)

	assert.InDelta(t, 2*0.3, res.WaterHeaterKWH, 1e-9, "15%% of each flagged interval")
	assert.Zero(t, res.EVChargingKWH)
}

func TestWaterHeaterCapPerInterval(t *testing.T) {
	// 18:00 (slot 36) huge draw: attribution capped at 1.5
	points := fullDay(0.5, map[int]float64{36: 20.0})
	res := Disaggregate(points, false)
	assert.InDelta(t, 1.5, res.WaterHeaterKWH, 1e-9)
}

func TestEVChargingDetection(t *testing.T) {
	// six consecutive slots at 3.0 kWh from 23:00 (slots 46, 47) through
	// 02:00 (slots 0-3): the overnight window
	overrides := map[int]float64{46: 3.0, 47: 3.0, 0: 3.0, 1: 3.0, 2: 3.0, 3: 3.0}
	points := fullDay(0.4, overrides)
	res := Disaggregate(points, false)

	assert.True(t, res.EVPatternDetected, "detection is independent of configured assets")
	assert.False(t, res.HasConfiguredEV)
	// sessions: slots 0-3 form one run, slots 46-47 are only 2 long
	assert.InDelta(t, 0.7*4*3.0, res.EVChargingKWH, 1e-9)
}

func TestEVChargingRejectsVeryLongRuns(t *testing.T) {
	// two days of data with 16 consecutive elevated slots spanning 22:00
	// through 05:30: too long for a charging session, reads like heating
	points := make([]types.ConsumptionDataPoint, 96)
	for i := range points {
		v := 0.4
		if i >= 44 && i < 60 {
			v = 3.0
		}
		points[i] = types.ConsumptionDataPoint{
			Timestamp:      day.Add(time.Duration(i) * 30 * time.Minute),
			ConsumptionKWH: v,
		}
	}
	res := Disaggregate(points, false)
	assert.False(t, res.EVPatternDetected)
	assert.Zero(t, res.EVChargingKWH)
}

func TestEVChargingMiddayWindow(t *testing.T) {
	// 11:00-13:30 (slots 22-26) elevated: the midday window
	overrides := map[int]float64{22: 3.0, 23: 3.0, 24: 3.0, 25: 3.0, 26: 3.0}
	points := fullDay(0.4, overrides)
	res := Disaggregate(points, false)
	assert.True(t, res.EVPatternDetected)
	assert.InDelta(t, 0.7*5*3.0, res.EVChargingKWH, 1e-9)
}

func TestDisaggregateAdditivity(t *testing.T) {
	// a busy day mixing every pattern
	overrides := map[int]float64{
		14: 2.2, 15: 1.8, // morning water heater
		30: 2.0, 31: 2.1, 32: 2.0, 33: 1.9, // afternoon hvac run
		46: 3.5, 47: 3.5, 0: 3.5, 1: 3.5, 2: 3.5, 3: 3.5, // overnight charging
	}
	res := Disaggregate(fullDay(0.6, overrides), true)

	assert.True(t, res.HasConfiguredEV)
	for _, v := range []float64{res.TotalKWH, res.BaseloadKWH, res.HVACKWH, res.WaterHeaterKWH, res.EVChargingKWH, res.DiscretionaryKWH} {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	accounted := res.BaseloadKWH + res.HVACKWH + res.WaterHeaterKWH + res.EVChargingKWH
	assert.InDelta(t, res.TotalKWH-accounted, res.DiscretionaryKWH, 1e-9)

	sum := res.BaseloadPercent + res.HVACPercent + res.WaterHeaterPercent + res.EVChargingPercent + res.DiscretionaryPercent
	assert.InDelta(t, 100.0, sum, 0.01, "percentages sum to 100 when nothing is clamped")
}

func TestBaseloadPercentile(t *testing.T) {
	// one near-zero outlier must not drag baseload to zero
	points := fullDay(1.0, map[int]float64{5: 0.01})
	res := Disaggregate(points, false)
	require.Greater(t, res.BaseloadKWH, 40.0, "10th percentile shrugs off a single low reading")
}
