package types

// ElectricVehicle is a user's configured EV.
type ElectricVehicle struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	BatteryCapacityKWH float64 `json:"batteryCapacityKWH"`
	ChargeRateKW       float64 `json:"chargeRateKW"`
	// CurrentChargePercent is the last reported state of charge (0-100).
	// 0 means unknown and is treated as an empty battery for advice.
	CurrentChargePercent float64 `json:"currentChargePercent"`
}

// HomeBattery is a user's configured stationary battery.
type HomeBattery struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CapacityKWH float64 `json:"capacityKWH"`
	MaxPowerKW  float64 `json:"maxPowerKW"`
	// RoundTripEfficiency is the charge/discharge round-trip efficiency
	// (0-1). 0 means unknown and defaults to 0.9 for advice.
	RoundTripEfficiency float64 `json:"roundTripEfficiency"`
}
