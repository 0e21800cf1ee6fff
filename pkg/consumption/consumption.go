// Package consumption reads stored half-hourly readings onto the day grid,
// syncs them from the upstream provider, and prunes old data.
package consumption

import (
	"context"
	"math"
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/types"
)

// Store is the slice of the storage layer the consumption service needs.
type Store interface {
	GetConsumption(ctx context.Context, userID string, start, end time.Time) ([]types.ConsumptionDataPoint, error)
	UpsertConsumption(ctx context.Context, userID string, points []types.ConsumptionDataPoint) error
	DeleteConsumptionBefore(ctx context.Context, userID string, cutoff time.Time) (int, error)
}

// Service reads and writes consumption series for users.
type Service struct {
	store Store

	// overridable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewService creates a consumption Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// defaultLookbackDays is the trailing window used for future-date estimates
// when the caller doesn't pass one.
const defaultLookbackDays = 7

// WithGaps returns the 48-slot consumption series for the calendar day of
// date. For past dates and today, each slot carries the stored reading whose
// timestamp exactly matches the slot start, or nil when no reading exists;
// gaps stay visible as explicit absence so downstream consumers can tell "no
// data" from "no consumption". For future dates the series is estimated from
// the trailing lookbackDays of stored readings, averaged per time-of-day
// slot; slots with no historical match are nil. A lookbackDays of 0 or less
// falls back to 7 days.
func (s *Service) WithGaps(ctx context.Context, userID string, date time.Time, lookbackDays int) ([]types.ConsumptionSlot, error) {
	return s.withGapsAt(ctx, userID, date, s.now(), lookbackDays)
}

func (s *Service) withGapsAt(ctx context.Context, userID string, date, now time.Time, lookbackDays int) ([]types.ConsumptionSlot, error) {
	if grid.AfterDate(date, now) {
		return s.estimate(ctx, userID, date, now, lookbackDays)
	}

	dayStart := grid.Midnight(date)
	points, err := s.store.GetConsumption(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	byTimestamp := make(map[int64]float64, len(points))
	for _, p := range points {
		byTimestamp[p.Timestamp.Unix()] = p.ConsumptionKWH
	}

	slots := make([]types.ConsumptionSlot, grid.SlotsPerDay)
	for i, slot := range grid.Day(date) {
		slots[i] = types.ConsumptionSlot{Timestamp: slot.Start}
		if v, ok := byTimestamp[slot.Start.Unix()]; ok {
			kwh := v
			slots[i].ConsumptionKWH = &kwh
		}
	}
	return slots, nil
}

// estimate averages the trailing readings per (hour, minute) slot.
func (s *Service) estimate(ctx context.Context, userID string, date, now time.Time, lookbackDays int) ([]types.ConsumptionSlot, error) {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	end := grid.Midnight(now)
	start := end.AddDate(0, 0, -lookbackDays)
	history, err := s.store.GetConsumption(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	type agg struct {
		sum   float64
		count int
	}
	bySlot := make(map[types.TimeOfDay]*agg)
	for _, p := range history {
		tod := types.TimeOfDayFromTime(p.Timestamp)
		a, ok := bySlot[tod]
		if !ok {
			a = &agg{}
			bySlot[tod] = a
		}
		a.sum += p.ConsumptionKWH
		a.count++
	}

	slots := make([]types.ConsumptionSlot, grid.SlotsPerDay)
	for i, slot := range grid.Day(date) {
		slots[i] = types.ConsumptionSlot{Timestamp: slot.Start}
		if a, ok := bySlot[types.TimeOfDayFromTime(slot.Start)]; ok && a.count > 0 {
			avg := math.Round(a.sum/float64(a.count)*100) / 100
			slots[i].ConsumptionKWH = &avg
		}
	}
	return slots, nil
}
