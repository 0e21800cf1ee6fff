package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/gridsage/gridsage/pkg/types"
)

// MockAccount tunes the synthetic load shape for one account.
type MockAccount struct {
	// BaseloadKWH is the always-on consumption per half-hour slot.
	BaseloadKWH float64
	// PeakKWH is the extra consumption added at the morning and evening bumps.
	PeakKWH float64
	// HasEV adds a nightly charging block starting at 23:00.
	HasEV bool
	// Unreachable makes every fetch fail, for exercising retry paths.
	Unreachable bool
}

// Mock is a deterministic fake upstream provider. Accounts live in an
// injected per-instance registry rather than package state so tests can
// isolate instances.
type Mock struct {
	mu       sync.Mutex
	accounts map[string]MockAccount
}

// NewMock creates a Mock with an empty account registry. Unknown accounts get
// a default profile derived from the account ID, so the mock works without
// registration.
func NewMock() *Mock {
	return &Mock{accounts: make(map[string]MockAccount)}
}

// SetAccount registers or replaces an account profile.
func (m *Mock) SetAccount(accountID string, acct MockAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = acct
}

func (m *Mock) account(accountID string) MockAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[accountID]; ok {
		return acct
	}
	// derive a stable default profile from the account ID
	h := fnv.New32a()
	h.Write([]byte(accountID))
	seed := h.Sum32()
	return MockAccount{
		BaseloadKWH: 0.15 + float64(seed%20)/100.0,
		PeakKWH:     0.6 + float64(seed%50)/100.0,
		HasEV:       seed%3 == 0,
	}
}

// GetConsumption returns synthetic half-hourly readings for [start, end). The
// same inputs always produce the same series.
func (m *Mock) GetConsumption(ctx context.Context, creds types.ProviderCredentials, start, end time.Time) ([]types.ConsumptionDataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acct := m.account(creds.AccountID)
	if acct.Unreachable {
		return nil, fmt.Errorf("provider unreachable for account %s", creds.AccountID)
	}

	var points []types.ConsumptionDataPoint
	for t := start.Truncate(30 * time.Minute); t.Before(end); t = t.Add(30 * time.Minute) {
		points = append(points, types.ConsumptionDataPoint{
			Timestamp:      t,
			ConsumptionKWH: m.readingAt(acct, t),
		})
	}
	return points, nil
}

func (m *Mock) readingAt(acct MockAccount, t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60.0
	kwh := acct.BaseloadKWH

	// morning bump around 07:30, evening bump around 19:00
	kwh += acct.PeakKWH * bump(hour, 7.5, 1.5)
	kwh += acct.PeakKWH * 1.4 * bump(hour, 19.0, 2.0)

	if acct.HasEV && (hour >= 23.0 || hour < 2.0) {
		kwh += 3.5
	}

	return math.Round(kwh*1000) / 1000
}

// bump is a gaussian-ish curve centered on center with the given width.
func bump(hour, center, width float64) float64 {
	d := hour - center
	return math.Exp(-(d * d) / (2 * width * width))
}
