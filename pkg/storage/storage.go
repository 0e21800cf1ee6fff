// Package storage persists user data: settings, tariff and solar
// configuration, consumption history, and assets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/gridsage/gridsage/pkg/types"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTariffNotFound      = errors.New("tariff structure not found")
	ErrSolarConfigNotFound = errors.New("solar config not found")
	ErrSettingsNotFound    = errors.New("settings not found")
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrBatteryNotFound     = errors.New("battery not found")
)

// Database defines the interface for persisting data and retrieving settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context, userID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, userID string, settings types.Settings, version int) error

	// Tariff & solar configuration
	GetTariffStructure(ctx context.Context, userID string) (types.TariffStructure, error)
	SetTariffStructure(ctx context.Context, userID string, ts types.TariffStructure) error
	GetSolarConfig(ctx context.Context, userID string) (types.SolarSystemConfig, error)
	SetSolarConfig(ctx context.Context, userID string, cfg types.SolarSystemConfig) error

	// Consumption history
	GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error)
	UpsertConsumption(ctx context.Context, userID string, points []types.ConsumptionDataPoint) error
	DeleteConsumptionBefore(ctx context.Context, userID string, cutoff time.Time) (int, error)

	// Assets
	GetVehicles(ctx context.Context, userID string) ([]types.ElectricVehicle, error)
	UpsertVehicle(ctx context.Context, userID string, ev types.ElectricVehicle) error
	DeleteVehicle(ctx context.Context, userID, vehicleID string) error
	GetBatteries(ctx context.Context, userID string) ([]types.HomeBattery, error)
	UpsertBattery(ctx context.Context, userID string, b types.HomeBattery) error
	DeleteBattery(ctx context.Context, userID, batteryID string) error

	// Users
	GetUser(ctx context.Context, userID string) (types.User, error)
	CreateUser(ctx context.Context, user types.User) error
	UpdateUser(ctx context.Context, user types.User) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
