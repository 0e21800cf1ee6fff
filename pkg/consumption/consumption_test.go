package consumption

import (
	"context"
	"testing"
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ConsumptionDataPoint), args.Error(1)
}

func (m *mockStore) UpsertConsumption(ctx context.Context, userID string, points []types.ConsumptionDataPoint) error {
	args := m.Called(ctx, userID, points)
	return args.Error(0)
}

func (m *mockStore) DeleteConsumptionBefore(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	args := m.Called(ctx, userID, cutoff)
	return args.Int(0), args.Error(1)
}

func newTestService(store Store, now time.Time) *Service {
	s := NewService(store)
	s.now = func() time.Time { return now }
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

var testNow = time.Date(2024, 6, 21, 14, 0, 0, 0, time.Local)

func TestWithGapsPastDate(t *testing.T) {
	date := testNow.AddDate(0, 0, -1)
	dayStart := grid.Midnight(date)

	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, "u1", dayStart, dayStart.AddDate(0, 0, 1)).Return([]types.ConsumptionDataPoint{
		{Timestamp: dayStart.Add(8 * time.Hour), ConsumptionKWH: 1.25},
		{Timestamp: dayStart.Add(19*time.Hour + 30*time.Minute), ConsumptionKWH: 2.5},
	}, nil)

	slots, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", date, 0)
	require.NoError(t, err)
	require.Len(t, slots, grid.SlotsPerDay)

	var filled int
	for i, s := range slots {
		assert.Equal(t, dayStart.Add(time.Duration(i)*30*time.Minute), s.Timestamp)
		if s.ConsumptionKWH != nil {
			filled++
		}
	}
	assert.Equal(t, 2, filled, "only the two stored points are filled, the rest stay nil")

	// stored values come through verbatim, no interpolation
	require.NotNil(t, slots[16].ConsumptionKWH)
	assert.Equal(t, 1.25, *slots[16].ConsumptionKWH)
	require.NotNil(t, slots[39].ConsumptionKWH)
	assert.Equal(t, 2.5, *slots[39].ConsumptionKWH)
	assert.Nil(t, slots[17].ConsumptionKWH, "neighbor of a stored point is still nil")
}

func TestWithGapsTodayIsNotEstimated(t *testing.T) {
	dayStart := grid.Midnight(testNow)
	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, "u1", dayStart, dayStart.AddDate(0, 0, 1)).Return([]types.ConsumptionDataPoint{}, nil)

	slots, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", testNow, 0)
	require.NoError(t, err)
	require.Len(t, slots, grid.SlotsPerDay)
	for _, s := range slots {
		assert.Nil(t, s.ConsumptionKWH)
	}
	store.AssertExpectations(t)
}

func TestWithGapsFutureEstimation(t *testing.T) {
	future := testNow.AddDate(0, 0, 1)
	histEnd := grid.Midnight(testNow)
	histStart := histEnd.AddDate(0, 0, -7)

	// two prior days with readings at 08:00, one day also at 08:30
	d1 := histEnd.AddDate(0, 0, -1)
	d2 := histEnd.AddDate(0, 0, -2)
	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, "u1", histStart, histEnd).Return([]types.ConsumptionDataPoint{
		{Timestamp: d1.Add(8 * time.Hour), ConsumptionKWH: 1.0},
		{Timestamp: d2.Add(8 * time.Hour), ConsumptionKWH: 2.005},
		{Timestamp: d1.Add(8*time.Hour + 30*time.Minute), ConsumptionKWH: 0.4},
	}, nil)

	slots, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", future, 0)
	require.NoError(t, err)
	require.Len(t, slots, grid.SlotsPerDay)

	// 08:00 slot averages the two readings with 2-decimal rounding
	require.NotNil(t, slots[16].ConsumptionKWH)
	assert.Equal(t, 1.5, *slots[16].ConsumptionKWH)

	// 08:30 has a single historical reading
	require.NotNil(t, slots[17].ConsumptionKWH)
	assert.Equal(t, 0.4, *slots[17].ConsumptionKWH)

	// slots with no historical match stay nil
	assert.Nil(t, slots[0].ConsumptionKWH)
	assert.Nil(t, slots[47].ConsumptionKWH)
}

func TestWithGapsFutureCustomLookback(t *testing.T) {
	future := testNow.AddDate(0, 0, 1)
	histEnd := grid.Midnight(testNow)
	histStart := histEnd.AddDate(0, 0, -14)

	// a reading older than the default week is still inside a 14-day window
	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, "u1", histStart, histEnd).Return([]types.ConsumptionDataPoint{
		{Timestamp: histEnd.AddDate(0, 0, -10).Add(8 * time.Hour), ConsumptionKWH: 3.0},
	}, nil)

	slots, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", future, 14)
	require.NoError(t, err)
	require.Len(t, slots, grid.SlotsPerDay)
	require.NotNil(t, slots[16].ConsumptionKWH)
	assert.Equal(t, 3.0, *slots[16].ConsumptionKWH)
	store.AssertExpectations(t)
}

func TestWithGapsFutureNoHistory(t *testing.T) {
	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.ConsumptionDataPoint{}, nil)

	slots, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", testNow.AddDate(0, 0, 3), 0)
	require.NoError(t, err)
	require.Len(t, slots, grid.SlotsPerDay)
	for _, s := range slots {
		assert.Nil(t, s.ConsumptionKWH)
	}
}

func TestWithGapsStoreError(t *testing.T) {
	store := &mockStore{}
	store.On("GetConsumption", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := newTestService(store, testNow).WithGaps(context.Background(), "u1", testNow, 0)
	assert.Error(t, err)
}
