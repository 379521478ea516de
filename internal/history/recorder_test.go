package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/repository"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

type memPrices struct {
	points []models.PricePoint
	err    error
}

func (m *memPrices) Record(_ context.Context, price float64, ts time.Time, source string) (*models.PricePoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	p := models.PricePoint{ID: int64(len(m.points) + 1), Price: price, Timestamp: ts, Source: source, ReportingDay: repository.ReportingDay(ts)}
	m.points = append(m.points, p)
	return &p, nil
}

type memTicks struct {
	rows []repository.TickSummary
}

func (m *memTicks) Insert(_ context.Context, s *repository.TickSummary) (*repository.TickSummary, error) {
	out := *s
	out.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, out)
	return &out, nil
}

func sampleSnapshot() *simulation.Snapshot {
	ts := time.Date(2026, 5, 2, 23, 59, 0, 0, time.UTC)
	return &simulation.Snapshot{
		Tick:        9,
		GeneratedAt: ts.Add(time.Second),
		Market: models.MarketSnapshot{
			Timestamp: ts,
			Bitcoin:   models.BitcoinMarket{Price: 101250},
		},
		Portfolio: models.Portfolio{Cash: 10, BitcoinHoldings: 2, DailyProfit: -5, TotalValue: 99},
		Devices: []models.Device{
			{ID: "a", Status: models.StatusActive},
			{ID: "b", Status: models.StatusStandby},
			{ID: "c", Status: models.StatusActive},
		},
	}
}

func TestPublishWritesPriceAndSummary(t *testing.T) {
	prices, ticks := &memPrices{}, &memTicks{}
	r := NewRecorder(prices, ticks)

	require.NoError(t, r.Publish(context.Background(), sampleSnapshot()))

	require.Len(t, prices.points, 1)
	assert.Equal(t, 101250.0, prices.points[0].Price)
	assert.Equal(t, "2026-05-02", prices.points[0].ReportingDay)
	assert.Equal(t, repository.SourceSimulation, prices.points[0].Source)

	require.Len(t, ticks.rows, 1)
	row := ticks.rows[0]
	assert.Equal(t, int64(9), row.Tick)
	assert.Equal(t, 2, row.ActiveDevices)
	assert.Equal(t, 1, row.StandbyDevices)
	assert.Equal(t, -5.0, row.DailyProfit)
}

func TestPublishStopsOnPriceError(t *testing.T) {
	prices, ticks := &memPrices{err: errors.New("connection refused")}, &memTicks{}
	r := NewRecorder(prices, ticks)

	err := r.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick 9")
	assert.Empty(t, ticks.rows)
}

func TestSummarizeFallsBackToGeneratedAt(t *testing.T) {
	snap := sampleSnapshot()
	snap.Market.Timestamp = time.Time{}
	r := NewRecorder(&memPrices{}, &memTicks{})
	require.NoError(t, r.Publish(context.Background(), snap))
	assert.Equal(t, snap.GeneratedAt, r.ticks.(*memTicks).rows[0].Timestamp)
}
