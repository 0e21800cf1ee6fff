// Package solar estimates half-hourly solar generation from a system config.
//
// The model is a deliberately simple heuristic: a sinusoidal day-length curve
// gives sunrise and sunset, a half-sine between them gives the irradiance
// shape, and fixed orientation/tilt factors scale the result. It is an
// advisory estimate, not an irradiance-physics model.
package solar

import (
	"math"
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/types"
)

const (
	// referenceLatitude anchors the tilt factor. Tilt near the latitude
	// maximizes annual yield.
	referenceLatitude = 40.0

	systemEfficiency = 0.85
	hoursPerSlot     = 0.5

	// day length swings 4h either side of the 12h equinox baseline, peaking
	// near day-of-year 172 (late June)
	dayLengthBaseHours = 12.0
	dayLengthSwingHours = 4.0
)

var orientationFactors = map[types.Orientation]float64{
	types.OrientationS:  1.0,
	types.OrientationSE: 0.95,
	types.OrientationSW: 0.95,
	types.OrientationE:  0.85,
	types.OrientationW:  0.85,
	types.OrientationNE: 0.8,
	types.OrientationNW: 0.8,
	types.OrientationN:  0.7,
}

// sunTimes returns sunrise and sunset as fractional hours for the date.
func sunTimes(date time.Time) (sunrise, sunset float64) {
	doy := date.YearDay()
	dayLength := dayLengthBaseHours + dayLengthSwingHours*math.Sin(2*math.Pi*float64(doy-81)/365.0)
	sunrise = 12.0 - dayLength/2.0
	sunset = 12.0 + dayLength/2.0
	return sunrise, sunset
}

// irradianceFactor is a half-sine between sunrise and sunset, 0 outside that
// window and 1.0 at solar noon.
func irradianceFactor(hour, sunrise, sunset float64) float64 {
	if sunset <= sunrise || hour < sunrise || hour >= sunset {
		return 0
	}
	return math.Sin(math.Pi * (hour - sunrise) / (sunset - sunrise))
}

func tiltFactor(tiltDegrees float64) float64 {
	f := 1.0 - math.Abs(tiltDegrees-referenceLatitude)/90.0*0.3
	return math.Max(0.7, math.Min(1.0, f))
}

// GenerateForecast estimates generation for each of the 48 slots of the
// calendar day of date. A config without solar, or with any required field
// missing, yields exactly zero in every slot rather than an error.
func GenerateForecast(cfg types.SolarSystemConfig, date time.Time) types.SolarForecast {
	slots := grid.Day(date)
	forecast := types.SolarForecast{
		Date:      grid.Midnight(date),
		Intervals: make([]types.SolarInterval, grid.SlotsPerDay),
	}

	for i, slot := range slots {
		forecast.Intervals[i] = types.SolarInterval{Start: slot.Start, End: slot.End}
	}
	if !cfg.Complete() {
		return forecast
	}

	sunrise, sunset := sunTimes(date)
	orientation := orientationFactors[*cfg.Orientation]
	tilt := tiltFactor(*cfg.TiltDegrees)

	for i := range forecast.Intervals {
		// evaluate the curve at the slot midpoint
		midpointHour := (float64(i) + 0.5) * hoursPerSlot
		irradiance := irradianceFactor(midpointHour, sunrise, sunset)

		gen := *cfg.SystemSizeKW * irradiance * systemEfficiency * orientation * tilt * hoursPerSlot
		if gen < 0 {
			gen = 0
		}
		forecast.Intervals[i].GenerationKWH = gen
	}
	return forecast
}

// DailyForecasts holds forecasts for today and tomorrow.
type DailyForecasts struct {
	Today    types.SolarForecast `json:"today"`
	Tomorrow types.SolarForecast `json:"tomorrow"`
}

// GenerateDailyForecasts produces forecasts for now's calendar day and for
// exactly 24 hours later.
func GenerateDailyForecasts(cfg types.SolarSystemConfig, now time.Time) DailyForecasts {
	return DailyForecasts{
		Today:    GenerateForecast(cfg, now),
		Tomorrow: GenerateForecast(cfg, now.Add(24*time.Hour)),
	}
}

// TotalGeneration sums the forecast's slots.
func TotalGeneration(f types.SolarForecast) float64 {
	var total float64
	for _, iv := range f.Intervals {
		total += iv.GenerationKWH
	}
	return total
}

// GenerationAtTime returns the estimated generation of the slot containing t,
// or 0 when t falls outside the forecasted day.
func GenerationAtTime(f types.SolarForecast, t time.Time) float64 {
	i := grid.Index(f.Date, t)
	if i < 0 || i >= len(f.Intervals) {
		return 0
	}
	return f.Intervals[i].GenerationKWH
}
