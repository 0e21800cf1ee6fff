// Command seed populates a local Firestore emulator with a demo user so the
// API has something to serve during development.
package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/types"
)

const demoUserID = "demo"

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding demo data")

	if err := s.CreateUser(ctx, types.User{
		ID:        demoUserID,
		Email:     "demo@example.com",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// already seeded runs just update the rest
		log.Ctx(ctx).WarnContext(ctx, "create user failed (may already exist)", "error", err)
	}

	settings, _, err := types.MigrateSettings(types.Settings{}, 0)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to build settings", "error", err)
		os.Exit(1)
	}
	if err := s.SetSettings(ctx, demoUserID, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed settings", "error", err)
		os.Exit(1)
	}

	// A simple time-of-use tariff: overnight off-peak, evening peak,
	// shoulder the rest of the day.
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	tariff := types.TariffStructure{
		UserID:        demoUserID,
		EffectiveDate: time.Now().UTC(),
		Periods: []types.TariffPeriod{
			{Name: "off-peak", StartTime: types.MustTimeOfDay("22:00"), EndTime: types.MustTimeOfDay("07:00"), PricePerKWH: 0.11},
			{Name: "peak", StartTime: types.MustTimeOfDay("17:00"), EndTime: types.MustTimeOfDay("21:00"), PricePerKWH: 0.38, DaysOfWeek: weekdays},
			{Name: "shoulder", StartTime: types.MustTimeOfDay("07:00"), EndTime: types.MustTimeOfDay("22:00"), PricePerKWH: 0.21},
		},
	}
	if err := s.SetTariffStructure(ctx, demoUserID, tariff); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed tariff", "error", err)
		os.Exit(1)
	}

	size, tilt, orient := 6.4, 35.0, types.OrientationS
	if err := s.SetSolarConfig(ctx, demoUserID, types.SolarSystemConfig{
		UserID:       demoUserID,
		HasSolar:     true,
		SystemSizeKW: &size,
		TiltDegrees:  &tilt,
		Orientation:  &orient,
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed solar config", "error", err)
		os.Exit(1)
	}

	if err := s.UpsertVehicle(ctx, demoUserID, types.ElectricVehicle{
		ID:                   "demo-ev",
		Name:                 "Family EV",
		BatteryCapacityKWH:   64,
		ChargeRateKW:         7.4,
		CurrentChargePercent: 35,
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed vehicle", "error", err)
		os.Exit(1)
	}

	if err := s.UpsertBattery(ctx, demoUserID, types.HomeBattery{
		ID:                  "demo-battery",
		Name:                "Wall Battery",
		CapacityKWH:         13.5,
		MaxPowerKW:          5,
		RoundTripEfficiency: 0.9,
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed battery", "error", err)
		os.Exit(1)
	}

	// Backfill two weeks of half-hourly readings with a household shape:
	// baseload, breakfast and evening bumps, a nightly EV charging block,
	// and a little jitter.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -14)

	var points []types.ConsumptionDataPoint
	for t := start; t.Before(now); t = t.Add(30 * time.Minute) {
		hour := float64(t.Hour()) + float64(t.Minute())/60.0
		kwh := 0.18

		dist := hour - 7.5
		kwh += 0.7 * math.Exp(-(dist*dist)/4.5)
		dist = hour - 19.0
		kwh += 1.1 * math.Exp(-(dist*dist)/8.0)

		// overnight EV charging a few nights a week
		if t.Day()%3 == 0 && (hour >= 23.0 || hour < 2.5) {
			kwh += 3.5
		}

		kwh += rng.Float64() * 0.05
		points = append(points, types.ConsumptionDataPoint{
			Timestamp:      t,
			ConsumptionKWH: math.Round(kwh*1000) / 1000,
		})
	}
	if err := s.UpsertConsumption(ctx, demoUserID, points); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed consumption", "error", err)
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeded demo data", "points", len(points))

	if err := s.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}
}
