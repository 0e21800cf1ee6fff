package advice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/types"
)

var adviceDay = time.Date(2024, 6, 20, 0, 0, 0, 0, time.Local)

// makeTariff builds a full day of intervals with the given per-slot prices.
func makeTariff(prices [grid.SlotsPerDay]float64) []types.TariffInterval {
	slots := grid.Day(adviceDay)
	out := make([]types.TariffInterval, grid.SlotsPerDay)
	for i, s := range slots {
		out[i] = types.TariffInterval{
			Start:       s.Start,
			End:         s.End,
			PricePerKWH: prices[i],
			PeriodName:  "test",
		}
	}
	return out
}

// overnightTariff is cheap from 00:00 to 06:00 and expensive the rest of the
// day.
func overnightTariff() []types.TariffInterval {
	var prices [grid.SlotsPerDay]float64
	for i := range prices {
		if i < 12 {
			prices[i] = 0.10
		} else {
			prices[i] = 0.30
		}
	}
	return makeTariff(prices)
}

func flatTariff(price float64) []types.TariffInterval {
	var prices [grid.SlotsPerDay]float64
	for i := range prices {
		prices[i] = price
	}
	return makeTariff(prices)
}

func TestGenerateEmpty(t *testing.T) {
	adv := Generate(Inputs{Date: adviceDay})
	assert.Empty(t, adv.GeneralAdvice)
	assert.Empty(t, adv.EVAdvice)
	assert.Empty(t, adv.BatteryAdvice)
}

func TestRankAndCap(t *testing.T) {
	items := []types.AdviceItem{
		{Title: "low big", Priority: types.AdvicePriorityLow, EstimatedSavings: 9.0},
		{Title: "med", Priority: types.AdvicePriorityMedium, EstimatedSavings: 0.5},
		{Title: "high small", Priority: types.AdvicePriorityHigh, EstimatedSavings: 1.0},
		{Title: "med big", Priority: types.AdvicePriorityMedium, EstimatedSavings: 0.9},
		// a high-priority item in last place must survive the cap
		{Title: "high big", Priority: types.AdvicePriorityHigh, EstimatedSavings: 2.0},
	}
	got := rankAndCap(items)
	require.Len(t, got, 3)
	assert.Equal(t, "high big", got[0].Title)
	assert.Equal(t, "high small", got[1].Title)
	assert.Equal(t, "med big", got[2].Title)
}

func TestEVAdviceCheapestWindow(t *testing.T) {
	adv := Generate(Inputs{
		Date:   adviceDay,
		Tariff: overnightTariff(),
		Vehicles: []types.ElectricVehicle{{
			ID:                 "ev1",
			Name:               "Family EV",
			BatteryCapacityKWH: 10,
			ChargeRateKW:       5,
		}},
	})
	require.Len(t, adv.EVAdvice, 1)
	item := adv.EVAdvice[0]
	assert.Contains(t, item.Title, "Family EV")
	// 10 kWh at 5 kW is 4 slots; the cheapest 2-hour window starts at
	// midnight
	assert.Equal(t, types.MustTimeOfDay("00:00"), item.RecommendedTimeStart)
	assert.Equal(t, types.MustTimeOfDay("02:00"), item.RecommendedTimeEnd)
	// naive 18:00 charging pays 0.30/kWh, the overnight window 0.10/kWh
	assert.InDelta(t, 2.0, item.EstimatedSavings, 0.001)
	assert.Equal(t, types.AdvicePriorityHigh, item.Priority)
}

func TestEVAdviceFlatTariffNoSavings(t *testing.T) {
	adv := Generate(Inputs{
		Date:   adviceDay,
		Tariff: flatTariff(0.20),
		Vehicles: []types.ElectricVehicle{{
			ID: "ev1", Name: "EV", BatteryCapacityKWH: 10, ChargeRateKW: 5,
		}},
	})
	require.Len(t, adv.EVAdvice, 1)
	assert.Equal(t, 0.0, adv.EVAdvice[0].EstimatedSavings)
	assert.Equal(t, types.AdvicePriorityLow, adv.EVAdvice[0].Priority)
}

func TestEVAdviceSkipsFullyCharged(t *testing.T) {
	adv := Generate(Inputs{
		Date:   adviceDay,
		Tariff: overnightTariff(),
		Vehicles: []types.ElectricVehicle{{
			ID: "ev1", Name: "EV", BatteryCapacityKWH: 10, ChargeRateKW: 5,
			CurrentChargePercent: 100,
		}},
	})
	assert.Empty(t, adv.EVAdvice)
}

func TestBatteryArbitrage(t *testing.T) {
	adv := Generate(Inputs{
		Date:   adviceDay,
		Tariff: overnightTariff(),
		Batteries: []types.HomeBattery{{
			ID:          "b1",
			Name:        "Home Battery",
			CapacityKWH: 10,
			MaxPowerKW:  5,
		}},
	})
	require.Len(t, adv.BatteryAdvice, 1)
	item := adv.BatteryAdvice[0]
	assert.Contains(t, item.Title, "Home Battery")
	// (0.30 - 0.10) spread over 10 kWh at the default 90% round-trip
	// efficiency
	assert.InDelta(t, 1.8, item.EstimatedSavings, 0.001)
	assert.Equal(t, types.AdvicePriorityHigh, item.Priority)
	// the recommended window is the charge window
	assert.Equal(t, types.MustTimeOfDay("00:00"), item.RecommendedTimeStart)
}

func TestGeneralCheapWindow(t *testing.T) {
	adv := Generate(Inputs{Date: adviceDay, Tariff: overnightTariff()})
	require.Len(t, adv.GeneralAdvice, 1)
	item := adv.GeneralAdvice[0]
	assert.Contains(t, item.Title, "cheapest hours")
	// average price is 0.25, cheapest 3h window 0.10, assumed 3 kWh load
	assert.InDelta(t, 0.45, item.EstimatedSavings, 0.001)
	assert.Equal(t, types.AdvicePriorityMedium, item.Priority)
	assert.Equal(t, types.MustTimeOfDay("00:00"), item.RecommendedTimeStart)
	assert.Equal(t, types.MustTimeOfDay("03:00"), item.RecommendedTimeEnd)
}

func TestGeneralLoadShift(t *testing.T) {
	var prices [grid.SlotsPerDay]float64
	for i := range prices {
		if i >= 34 && i <= 41 {
			prices[i] = 0.40
		} else {
			prices[i] = 0.15
		}
	}
	cons := make([]types.ConsumptionSlot, grid.SlotsPerDay)
	slots := grid.Day(adviceDay)
	for i := range cons {
		v := 0.5
		if i >= 36 && i <= 39 {
			v = 2.0
		}
		vv := v
		cons[i] = types.ConsumptionSlot{Timestamp: slots[i].Start, ConsumptionKWH: &vv}
	}

	adv := Generate(Inputs{Date: adviceDay, Tariff: makeTariff(prices), Consumption: cons})
	require.NotEmpty(t, adv.GeneralAdvice)
	item := adv.GeneralAdvice[0]
	assert.Contains(t, item.Title, "Shift usage")
	// 4 slots of 2.0 kWh moved from 0.40 to 0.15
	assert.InDelta(t, 2.0, item.EstimatedSavings, 0.001)
	assert.Equal(t, types.AdvicePriorityHigh, item.Priority)
	assert.Equal(t, types.MustTimeOfDay("18:00"), item.RecommendedTimeStart)
	assert.Equal(t, types.MustTimeOfDay("20:00"), item.RecommendedTimeEnd)
}

func TestGeneralSolarUse(t *testing.T) {
	tariff := flatTariff(0.20)
	intervals := make([]types.SolarInterval, grid.SlotsPerDay)
	slots := grid.Day(adviceDay)
	for i := range intervals {
		intervals[i] = types.SolarInterval{Start: slots[i].Start, End: slots[i].End}
		if i >= 20 && i <= 27 {
			intervals[i].GenerationKWH = 1.0
		}
	}
	fc := types.SolarForecast{Date: adviceDay, Intervals: intervals}

	adv := Generate(Inputs{Date: adviceDay, Tariff: tariff, Solar: &fc})
	require.Len(t, adv.GeneralAdvice, 1)
	item := adv.GeneralAdvice[0]
	assert.Contains(t, item.Title, "solar")
	// 8 kWh of self-consumed generation at 0.20/kWh
	assert.InDelta(t, 1.6, item.EstimatedSavings, 0.001)
	assert.Equal(t, types.MustTimeOfDay("10:00"), item.RecommendedTimeStart)
	assert.Equal(t, types.MustTimeOfDay("14:00"), item.RecommendedTimeEnd)
}

func TestSavingsNeverNegative(t *testing.T) {
	// naive window already coincides with the cheapest prices
	var prices [grid.SlotsPerDay]float64
	for i := range prices {
		if i >= 36 && i <= 43 {
			prices[i] = 0.08
		} else {
			prices[i] = 0.30
		}
	}
	adv := Generate(Inputs{
		Date:   adviceDay,
		Tariff: makeTariff(prices),
		Vehicles: []types.ElectricVehicle{{
			ID: "ev1", Name: "EV", BatteryCapacityKWH: 10, ChargeRateKW: 5,
		}},
		Batteries: []types.HomeBattery{{
			ID: "b1", Name: "B", CapacityKWH: 10, MaxPowerKW: 5,
		}},
	})
	for _, list := range [][]types.AdviceItem{adv.GeneralAdvice, adv.EVAdvice, adv.BatteryAdvice} {
		for _, item := range list {
			assert.GreaterOrEqual(t, item.EstimatedSavings, 0.0, item.Title)
		}
	}
}
