package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gridsage/gridsage/pkg/storage"
	"github.com/gridsage/gridsage/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context, userID string) (types.Settings, int, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
}

func (m *MockDatabase) SetSettings(ctx context.Context, userID string, settings types.Settings, version int) error {
	args := m.Called(ctx, userID, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) GetTariffStructure(ctx context.Context, userID string) (types.TariffStructure, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.TariffStructure), args.Error(1)
}

func (m *MockDatabase) SetTariffStructure(ctx context.Context, userID string, ts types.TariffStructure) error {
	args := m.Called(ctx, userID, ts)
	return args.Error(0)
}

func (m *MockDatabase) GetSolarConfig(ctx context.Context, userID string) (types.SolarSystemConfig, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.SolarSystemConfig), args.Error(1)
}

func (m *MockDatabase) SetSolarConfig(ctx context.Context, userID string, cfg types.SolarSystemConfig) error {
	args := m.Called(ctx, userID, cfg)
	return args.Error(0)
}

func (m *MockDatabase) GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ConsumptionDataPoint), args.Error(1)
}

func (m *MockDatabase) UpsertConsumption(ctx context.Context, userID string, points []types.ConsumptionDataPoint) error {
	args := m.Called(ctx, userID, points)
	return args.Error(0)
}

func (m *MockDatabase) DeleteConsumptionBefore(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	args := m.Called(ctx, userID, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *MockDatabase) GetVehicles(ctx context.Context, userID string) ([]types.ElectricVehicle, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ElectricVehicle), args.Error(1)
}

func (m *MockDatabase) UpsertVehicle(ctx context.Context, userID string, ev types.ElectricVehicle) error {
	args := m.Called(ctx, userID, ev)
	return args.Error(0)
}

func (m *MockDatabase) DeleteVehicle(ctx context.Context, userID, vehicleID string) error {
	args := m.Called(ctx, userID, vehicleID)
	return args.Error(0)
}

func (m *MockDatabase) GetBatteries(ctx context.Context, userID string) ([]types.HomeBattery, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.HomeBattery), args.Error(1)
}

func (m *MockDatabase) UpsertBattery(ctx context.Context, userID string, b types.HomeBattery) error {
	args := m.Called(ctx, userID, b)
	return args.Error(0)
}

func (m *MockDatabase) DeleteBattery(ctx context.Context, userID, batteryID string) error {
	args := m.Called(ctx, userID, batteryID)
	return args.Error(0)
}

func (m *MockDatabase) GetUser(ctx context.Context, userID string) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockDatabase) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) UpdateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
