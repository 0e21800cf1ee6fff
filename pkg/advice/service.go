package advice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridsage/gridsage/pkg/solar"
	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/tariff"
	"github.com/gridsage/gridsage/pkg/types"
)

// Store is the subset of storage the advice service reads.
type Store interface {
	GetTariffStructure(ctx context.Context, userID string) (types.TariffStructure, error)
	GetSolarConfig(ctx context.Context, userID string) (types.SolarSystemConfig, error)
	GetVehicles(ctx context.Context, userID string) ([]types.ElectricVehicle, error)
	GetBatteries(ctx context.Context, userID string) ([]types.HomeBattery, error)
	GetSettings(ctx context.Context, userID string) (types.Settings, int, error)
}

// ConsumptionSource provides the gap-filled day series.
type ConsumptionSource interface {
	WithGaps(ctx context.Context, userID string, date time.Time, lookbackDays int) ([]types.ConsumptionSlot, error)
}

// Service assembles a day's tariff, solar, consumption, and asset data and
// runs advice generation over it.
type Service struct {
	store       Store
	consumption ConsumptionSource
}

func NewService(store Store, consumption ConsumptionSource) *Service {
	return &Service{store: store, consumption: consumption}
}

// ForDate generates advice for the given date. Users with no stored tariff
// get the default structure; users with no solar, vehicles, or batteries get
// correspondingly empty advice lists rather than errors.
func (s *Service) ForDate(ctx context.Context, userID string, date time.Time) (types.EnergyAdvice, error) {
	ts, err := s.store.GetTariffStructure(ctx, userID)
	if errors.Is(err, storage.ErrTariffNotFound) {
		ts = tariff.DefaultStructure(userID)
	} else if err != nil {
		return types.EnergyAdvice{}, fmt.Errorf("loading tariff: %w", err)
	}

	in := Inputs{
		Date:   date,
		Tariff: tariff.MapToIntervals(ts, date),
	}

	cfg, err := s.store.GetSolarConfig(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrSolarConfigNotFound) {
		return types.EnergyAdvice{}, fmt.Errorf("loading solar config: %w", err)
	}
	if err == nil && cfg.HasSolar && cfg.Complete() {
		fc := solar.GenerateForecast(cfg, date)
		in.Solar = &fc
	}

	settings, version, err := s.store.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrSettingsNotFound) {
		return types.EnergyAdvice{}, fmt.Errorf("loading settings: %w", err)
	}
	if migrated, changed, merr := types.MigrateSettings(settings, version); merr == nil && changed {
		settings = migrated
	}
	in.NaiveEVChargingStart = settings.NaiveEVChargingStart

	in.Consumption, err = s.consumption.WithGaps(ctx, userID, date, settings.EstimationLookbackDays)
	if err != nil {
		return types.EnergyAdvice{}, fmt.Errorf("loading consumption: %w", err)
	}

	if in.Vehicles, err = s.store.GetVehicles(ctx, userID); err != nil {
		return types.EnergyAdvice{}, fmt.Errorf("loading vehicles: %w", err)
	}
	if in.Batteries, err = s.store.GetBatteries(ctx, userID); err != nil {
		return types.EnergyAdvice{}, fmt.Errorf("loading batteries: %w", err)
	}

	return Generate(in), nil
}
