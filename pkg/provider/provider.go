// Package provider defines the upstream consumption-provider client used to
// sync half-hourly meter readings.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gridsage/gridsage/pkg/types"
)

// Client fetches half-hourly consumption readings from an upstream energy
// provider for a date range.
type Client interface {
	// GetConsumption returns readings with timestamps aligned to 30-minute
	// boundaries in [start, end).
	GetConsumption(ctx context.Context, creds types.ProviderCredentials, start, end time.Time) ([]types.ConsumptionDataPoint, error)
}

// Configured sets up the supported provider clients and returns a Map.
func Configured() *Map {
	m := NewMap()
	m.SetClient("mock", NewMock())
	return m
}

// Map manages provider clients by name.
type Map struct {
	mu      sync.Mutex
	clients map[string]Client
}

// NewMap creates an empty provider Map.
func NewMap() *Map {
	return &Map{clients: make(map[string]Client)}
}

// Client returns the client for the named provider.
func (m *Map) Client(name string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown consumption provider: %s", name)
}

// SetClient registers a client, replacing any existing one with the same
// name. Also used by tests to inject mocks.
func (m *Map) SetClient(name string, c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[name] = c
}
