package types

import "time"

// Orientation is a compass direction a solar array faces.
type Orientation string

const (
	OrientationN  Orientation = "N"
	OrientationNE Orientation = "NE"
	OrientationE  Orientation = "E"
	OrientationSE Orientation = "SE"
	OrientationS  Orientation = "S"
	OrientationSW Orientation = "SW"
	OrientationW  Orientation = "W"
	OrientationNW Orientation = "NW"
)

// SolarSystemConfig describes a user's solar installation. When HasSolar is
// false the other fields are nil; when true they are all required.
type SolarSystemConfig struct {
	UserID       string       `json:"userID"`
	HasSolar     bool         `json:"hasSolar"`
	SystemSizeKW *float64     `json:"systemSizeKW,omitempty"`
	TiltDegrees  *float64     `json:"tiltDegrees,omitempty"`
	Orientation  *Orientation `json:"orientation,omitempty"`
}

// Complete reports whether the config describes a usable solar system. A
// config with HasSolar set but missing fields is treated as no solar rather
// than an error.
func (c SolarSystemConfig) Complete() bool {
	return c.HasSolar && c.SystemSizeKW != nil && c.TiltDegrees != nil && c.Orientation != nil
}

// SolarInterval is one half-hour slot of estimated generation.
type SolarInterval struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	GenerationKWH float64   `json:"generationKWH"`
}

// SolarForecast is a full day of estimated generation, always 48 intervals.
type SolarForecast struct {
	Date      time.Time       `json:"date"`
	Intervals []SolarInterval `json:"intervals"`
}
