package disagg

import (
	"context"
	"time"

	"github.com/gridsage/gridsage/pkg/types"
)

// Store is the slice of the storage layer the disaggregation service needs.
type Store interface {
	GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error)
	GetVehicles(ctx context.Context, userID string) ([]types.ElectricVehicle, error)
}

// Service runs disaggregation over stored consumption.
type Service struct {
	store Store
}

// NewService creates a disaggregation Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ForRange disaggregates the user's stored readings in [start, end). A user
// with no readings gets a well-formed all-zero result, never an error.
func (s *Service) ForRange(ctx context.Context, userID string, start, end time.Time) (types.DisaggregationResult, error) {
	points, err := s.store.GetConsumption(ctx, userID, start, end)
	if err != nil {
		return types.DisaggregationResult{}, err
	}
	vehicles, err := s.store.GetVehicles(ctx, userID)
	if err != nil {
		return types.DisaggregationResult{}, err
	}
	res := Disaggregate(points, len(vehicles) > 0)
	res.Start = start
	res.End = end
	return res, nil
}
