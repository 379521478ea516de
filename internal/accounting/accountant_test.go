package accounting

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

func snapshot(gridRate float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Bitcoin: models.BitcoinMarket{Price: 96000, BlockReward: 3.125},
		Energy:  []models.Location{{ID: "texas", GridRate: gridRate}},
		Compute: map[string]models.ComputeTier{models.TierH200: {Price: 5.0, Demand: 92}},
	}
}

var contracts = map[string]models.EnergyContract{"texas": {Location: "texas", Price: 0.065}}

func TestSettle_Miner(t *testing.T) {
	m1 := &models.Device{ID: "m1", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive,
		HashRate: 3000, PowerConsumption: 150000, Uptime: 98, Temperature: 70}
	m2 := &models.Device{ID: "m2", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive,
		HashRate: 1000, PowerConsumption: 50000, Uptime: 98, Temperature: 70}

	sum := New(0).Settle([]*models.Device{m1, m2}, snapshot(0.08), contracts, rand.New(rand.NewSource(1)))
	require.Equal(t, 2, sum.Settled)

	wantRev := 450 * 0.06 * 0.75 * 96000 / 24.0
	assert.InDelta(t, wantRev, m1.Revenue, 1e-6)
	assert.InDelta(t, 150000*0.065, m1.Cost, 1e-9)
	assert.Equal(t, m1.Revenue-m1.Cost, m1.Profit)
	assert.InDelta(t, wantRev/3, m2.Revenue, 1e-6)
}

func TestSettle_AIServerUsesPreTickEfficiency(t *testing.T) {
	ai := &models.Device{ID: "ai", Type: models.DeviceAIServer, Location: "texas", Status: models.StatusActive,
		GPUCount: 2000, PowerConsumption: 800000, Efficiency: 88.5, Temperature: 68}

	New(0).Settle([]*models.Device{ai}, snapshot(0.08), contracts, rand.New(rand.NewSource(1)))

	assert.InDelta(t, 2000*5.0*0.885, ai.Revenue, 1e-9)
	assert.InDelta(t, 800000*0.065, ai.Cost, 1e-9)
	assert.Equal(t, ai.Revenue-ai.Cost, ai.Profit)
	assert.GreaterOrEqual(t, ai.Efficiency, aiEffMin)
	assert.LessOrEqual(t, ai.Efficiency, aiEffMax)
}

func TestSettle_BatteryActive(t *testing.T) {
	b := &models.Device{ID: "b", Type: models.DeviceBattery, Location: "texas", Status: models.StatusActive,
		Capacity: 100000, Efficiency: 94}

	New(0).Settle([]*models.Device{b}, snapshot(0.082), contracts, rand.New(rand.NewSource(1)))

	assert.InDelta(t, 100000*0.017*0.5, b.Revenue, 1e-6)
	assert.Zero(t, b.Cost)
	assert.Equal(t, b.Revenue, b.Profit)
}

func TestSettle_BatteryStandby(t *testing.T) {
	b := &models.Device{ID: "b", Type: models.DeviceBattery, Location: "texas", Status: models.StatusStandby,
		Capacity: 100000, Efficiency: 94, Revenue: 99, Cost: 1, Profit: 98}

	New(0).Settle([]*models.Device{b}, snapshot(0.083), contracts, rand.New(rand.NewSource(1)))

	assert.Zero(t, b.Revenue)
	assert.Zero(t, b.Cost)
	assert.Zero(t, b.Profit)
}

func TestSettle_SkipsUnknownLocation(t *testing.T) {
	orphan := &models.Device{ID: "x", Type: models.DeviceMiner, Location: "mars", Status: models.StatusActive,
		HashRate: 100, Revenue: 10, Cost: 4, Profit: 6, Uptime: 97}
	ok := &models.Device{ID: "m", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive,
		HashRate: 100, PowerConsumption: 10, Uptime: 97, Temperature: 70}

	sum := New(0).Settle([]*models.Device{orphan, ok}, snapshot(0.08), contracts, rand.New(rand.NewSource(1)))

	assert.Equal(t, 1, sum.Settled)
	assert.Equal(t, []string{"x"}, sum.Skipped)
	assert.Equal(t, 10.0, orphan.Revenue)
	assert.Equal(t, 97.0, orphan.Uptime)
	assert.Equal(t, orphan.Revenue-orphan.Cost, orphan.Profit)
	assert.Positive(t, ok.Revenue)
}

func TestSettle_TelemetryBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	m := &models.Device{ID: "m", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive,
		HashRate: 100, Uptime: 99.4, Temperature: 79.5}
	b := &models.Device{ID: "b", Type: models.DeviceBattery, Location: "texas", Status: models.StatusStandby, Efficiency: 95.9}
	a := New(0)

	for i := 0; i < 1000; i++ {
		a.Settle([]*models.Device{m, b}, snapshot(0.07), contracts, rng)
		require.GreaterOrEqual(t, m.Uptime, minerUptimeMin)
		require.LessOrEqual(t, m.Uptime, minerUptimeMax)
		require.GreaterOrEqual(t, m.Temperature, minerTempMin)
		require.LessOrEqual(t, m.Temperature, minerTempMax)
		require.GreaterOrEqual(t, b.Efficiency, batteryEffMin)
		require.LessOrEqual(t, b.Efficiency, batteryEffMax)
		require.Equal(t, m.Revenue-m.Cost, m.Profit)
	}
}

func TestHourly_NoMinersMeansNoMiningRevenue(t *testing.T) {
	m := &models.Device{ID: "m", Type: models.DeviceMiner, Location: "texas", HashRate: 100, PowerConsumption: 1}
	rev, cost, ok := New(0).Hourly(m, models.StatusActive, snapshot(0.08), contracts, 0)
	require.True(t, ok)
	assert.Zero(t, rev)
	assert.InDelta(t, 0.065, cost, 1e-12)
}
