package mocks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/clickhouse"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// MockClickHouseClient keeps the pick history in memory for local development
type MockClickHouseClient struct {
	mu    sync.RWMutex
	picks []models.PickRecord
	now   func() time.Time
}

// NewMockClickHouseClient creates a mock ClickHouse client
func NewMockClickHouseClient() *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse client for local development")
	return &MockClickHouseClient{now: time.Now}
}

func (m *MockClickHouseClient) RecordPick(_ context.Context, rec models.PickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks = append(m.picks, rec)
	return nil
}

// TierPullRates mirrors the ClickHouse aggregation over the recorded picks
func (m *MockClickHouseClient) TierPullRates(_ context.Context, window time.Duration) ([]clickhouse.TierRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-window)
	counts := map[int]uint64{}
	var total uint64
	for _, p := range m.picks {
		if p.PickedAt.Before(cutoff) {
			continue
		}
		counts[p.Tier]++
		total++
	}

	rates := make([]clickhouse.TierRate, 0, len(counts))
	for tier, n := range counts {
		rates = append(rates, clickhouse.TierRate{Tier: tier, Picks: n, Share: 100 * float64(n) / float64(total)})
	}
	slices.SortFunc(rates, func(a, b clickhouse.TierRate) int { return b.Tier - a.Tier })
	return rates, nil
}

func (m *MockClickHouseClient) Ping(context.Context) error {
	return nil
}

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error {
	return nil
}
