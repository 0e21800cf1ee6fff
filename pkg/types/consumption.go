package types

import "time"

// ConsumptionDataPoint is a stored half-hourly meter reading. Timestamps are
// aligned to a 30-minute boundary and uniquely keyed by (userID, timestamp).
type ConsumptionDataPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	ConsumptionKWH float64   `json:"consumptionKWH"`
}

// ConsumptionSlot is one half-hour slot of a day's consumption series. A nil
// ConsumptionKWH means no data for the slot, which is distinct from a stored
// zero reading.
type ConsumptionSlot struct {
	Timestamp      time.Time `json:"timestamp"`
	ConsumptionKWH *float64  `json:"consumptionKWH"`
}

// DisaggregationResult estimates how much of a consumption series each device
// category accounts for. These are heuristic pattern-match estimates, not
// submetered measurements.
type DisaggregationResult struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	TotalKWH         float64 `json:"totalKWH"`
	BaseloadKWH      float64 `json:"baseloadKWH"`
	HVACKWH          float64 `json:"hvacKWH"`
	WaterHeaterKWH   float64 `json:"waterHeaterKWH"`
	EVChargingKWH    float64 `json:"evChargingKWH"`
	DiscretionaryKWH float64 `json:"discretionaryKWH"`

	BaseloadPercent      float64 `json:"baseloadPercent"`
	HVACPercent          float64 `json:"hvacPercent"`
	WaterHeaterPercent   float64 `json:"waterHeaterPercent"`
	EVChargingPercent    float64 `json:"evChargingPercent"`
	DiscretionaryPercent float64 `json:"discretionaryPercent"`

	// EVPatternDetected reports that a charging-like pattern was observed in
	// the series. It is independent of HasConfiguredEV, which only reflects
	// stored asset config.
	EVPatternDetected bool `json:"evPatternDetected"`
	HasConfiguredEV   bool `json:"hasConfiguredEV"`
}
