package consumption

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridsage/gridsage/pkg/grid"
	"github.com/gridsage/gridsage/pkg/log"
	"github.com/gridsage/gridsage/pkg/provider"
	"github.com/gridsage/gridsage/pkg/types"
)

const (
	syncAttempts    = 3
	syncBackoffBase = time.Second
)

// Sync fetches readings for [start, end) from the provider client and upserts
// them into storage. Fetches are retried up to 3 times with linearly
// increasing backoff (1s, 2s); the last error propagates once retries are
// exhausted. Read paths never retry; this is the only place that does.
func (s *Service) Sync(ctx context.Context, client provider.Client, creds types.ProviderCredentials, userID string, start, end time.Time) (int, error) {
	var points []types.ConsumptionDataPoint
	var err error
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		points, err = client.GetConsumption(ctx, creds, start, end)
		if err == nil {
			break
		}
		log.Ctx(ctx).WarnContext(ctx, "consumption fetch failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt == syncAttempts {
			return 0, fmt.Errorf("consumption fetch failed after %d attempts: %w", syncAttempts, err)
		}
		if serr := s.sleep(ctx, time.Duration(attempt)*syncBackoffBase); serr != nil {
			return 0, serr
		}
	}

	if len(points) == 0 {
		return 0, nil
	}
	if err := s.store.UpsertConsumption(ctx, userID, points); err != nil {
		return 0, fmt.Errorf("failed to store consumption: %w", err)
	}
	return len(points), nil
}

// Prune deletes readings older than retentionDays before now's calendar day.
func (s *Service) Prune(ctx context.Context, userID string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := grid.Midnight(s.now()).AddDate(0, 0, -retentionDays)
	deleted, err := s.store.DeleteConsumptionBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune consumption: %w", err)
	}
	if deleted > 0 {
		log.Ctx(ctx).InfoContext(ctx, "pruned consumption readings",
			slog.Int("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
