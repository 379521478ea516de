package operations

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

var tickTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seqIDs() func() string {
	n := 0
	return func() string { n++; return "op-" + strconv.Itoa(n) }
}

func countType(ops []models.Operation, typ, loc string) int {
	n := 0
	for _, op := range ops {
		if op.Type == typ && op.Location == loc {
			n++
		}
	}
	return n
}

func setup(gridRate, h200Demand float64) ([]*models.Device, *models.MarketSnapshot, map[string]models.EnergyContract) {
	devices := []*models.Device{
		{ID: "m1", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive, Label: models.LabelProfitable, Revenue: 100, PowerConsumption: 1000},
		{ID: "m2", Type: models.DeviceMiner, Location: "texas", Status: models.StatusActive, Label: models.LabelProfitable, Revenue: 50, PowerConsumption: 1000},
		{ID: "ai", Type: models.DeviceAIServer, Location: "texas", Status: models.StatusActive, Revenue: 700, PowerConsumption: 2000},
	}
	snap := &models.MarketSnapshot{
		Bitcoin: models.BitcoinMarket{Price: 95000},
		Energy:  []models.Location{{ID: "texas", GridRate: gridRate}},
		Compute: map[string]models.ComputeTier{models.TierH200: {Price: 5.2, Demand: h200Demand}},
	}
	contracts := map[string]models.EnergyContract{"texas": {Location: "texas", Price: 0.065, Capacity: 10000}}
	return devices, snap, contracts
}

func TestGenerate_HighComputeDemand(t *testing.T) {
	devices, snap, contracts := setup(0.07, 95)
	g := New(850000)

	ops := g.Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)

	require.Equal(t, 1, countType(ops, models.OpAIOptimization, "texas"))
	for _, op := range ops {
		if op.Type == models.OpAIOptimization {
			assert.Equal(t, "High AI compute demand (95.0%) - maximizing GPU utilization at $5.20/hr", op.Description)
			assert.Equal(t, 700.0, op.Revenue)
		}
	}
}

func TestGenerate_NoAIRecordAtThreshold(t *testing.T) {
	devices, snap, contracts := setup(0.07, 90)
	ops := New(850000).Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)
	assert.Zero(t, countType(ops, models.OpAIOptimization, "texas"))
}

func TestGenerate_MiningLabels(t *testing.T) {
	devices, snap, contracts := setup(0.07, 80)
	g := New(850000)

	ops := g.Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)
	require.Equal(t, models.OpMiningOptimization, ops[0].Type)
	assert.Equal(t, "Bitcoin mining profitable - accumulating BTC at $95000", ops[0].Description)
	assert.Equal(t, models.OpActive, ops[0].Status)
	assert.Equal(t, 150.0, ops[0].Revenue)

	devices[1].Label = models.LabelMonitoring
	ops = g.Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)
	assert.Equal(t, "Mining at slight loss - accumulating BTC for long-term value", ops[0].Description)
	assert.Equal(t, models.OpMonitoring, ops[0].Status)
}

func TestGenerate_EnergySale(t *testing.T) {
	devices, snap, contracts := setup(0.08, 80)
	ops := New(850000).Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)

	require.Equal(t, 1, countType(ops, models.OpEnergySale, "texas"))
	op := ops[1]
	assert.Equal(t, models.OpEnergySale, op.Type)
	arb := 0.08 - 0.065
	assert.InDelta(t, 6000*arb*1000, op.Revenue, 1e-6)
	assert.Equal(t, fmt.Sprintf("Selling 6000 MW excess energy to grid at $0.080/kWh - can buy %.6f BTC", 6000*arb*1000/95000), op.Description)
}

func TestGenerate_BatteryArbitragePreferredOverSale(t *testing.T) {
	devices, snap, contracts := setup(0.082, 80)
	devices = append(devices,
		&models.Device{ID: "b1", Type: models.DeviceBattery, Location: "texas", Status: models.StatusActive, Capacity: 100000, Revenue: 850},
		&models.Device{ID: "b2", Type: models.DeviceBattery, Location: "texas", Status: models.StatusStandby, Capacity: 50000},
	)

	ops := New(850000).Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)

	assert.Zero(t, countType(ops, models.OpEnergySale, "texas"))
	require.Equal(t, 1, countType(ops, models.OpBatteryArbitrage, "texas"))
	assert.Equal(t, "Battery arbitrage - selling 100000 MW to grid, can buy 0.008947 BTC", ops[1].Description)
	assert.Equal(t, 850.0, ops[1].Revenue)
}

func TestGenerate_Conservation(t *testing.T) {
	devices, snap, contracts := setup(0.055, 80)
	ops := New(850000).Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)

	require.Equal(t, 1, countType(ops, models.OpEnergyOptimization, "texas"))
	assert.Zero(t, countType(ops, models.OpEnergySale, "texas"))

	devices, snap, contracts = setup(0.0625, 80)
	ops = New(850000).Generate([]string{"texas"}, devices, snap, contracts, models.Portfolio{}, tickTime)
	assert.Zero(t, countType(ops, models.OpEnergyOptimization, "texas"))
}

func TestGenerate_NetworkStatusLast(t *testing.T) {
	devices, snap, contracts := setup(0.07, 80)
	port := models.Portfolio{TotalHashRate: 24000, DailyBTCAccumulation: 12.3456}

	ops := New(850000).Generate([]string{"texas"}, devices, snap, contracts, port, tickTime)
	last := ops[len(ops)-1]

	assert.Equal(t, models.OpNetworkStatus, last.Type)
	assert.Equal(t, "all", last.Location)
	assert.Equal(t, "Network: 24000.0 PH/s (2.82% of global) | Daily BTC accumulation: 12.3456 BTC", last.Description)
	assert.Equal(t, tickTime, last.Timestamp)
}

func TestGenerate_CappedAtTwenty(t *testing.T) {
	var devices []*models.Device
	var locs []string
	snap := &models.MarketSnapshot{
		Bitcoin: models.BitcoinMarket{Price: 95000},
		Compute: map[string]models.ComputeTier{models.TierH200: {Price: 5, Demand: 96}},
	}
	contracts := map[string]models.EnergyContract{}
	for i := 0; i < 10; i++ {
		loc := fmt.Sprintf("loc-%d", i)
		locs = append(locs, loc)
		snap.Energy = append(snap.Energy, models.Location{ID: loc, GridRate: 0.09})
		contracts[loc] = models.EnergyContract{Location: loc, Price: 0.06, Capacity: 1e6}
		devices = append(devices,
			&models.Device{ID: loc + "-m", Type: models.DeviceMiner, Location: loc, Label: models.LabelProfitable},
			&models.Device{ID: loc + "-ai", Type: models.DeviceAIServer, Location: loc},
		)
	}

	g := New(850000)
	g.newID = seqIDs()
	ops := g.Generate(locs, devices, snap, contracts, models.Portfolio{}, tickTime)

	require.Len(t, ops, MaxEntries)
	assert.Equal(t, models.OpNetworkStatus, ops[len(ops)-1].Type)
	// 31 generated, the 11 oldest dropped
	assert.Equal(t, "op-12", ops[0].ID)
}

func TestGenerate_SkipsLocationWithoutMarket(t *testing.T) {
	devices, snap, contracts := setup(0.07, 95)
	contracts["ghost"] = models.EnergyContract{Location: "ghost", Price: 0.05}
	devices = append(devices, &models.Device{ID: "g", Type: models.DeviceMiner, Location: "ghost"})

	ops := New(850000).Generate([]string{"texas", "ghost"}, devices, snap, contracts, models.Portfolio{}, tickTime)
	for _, op := range ops {
		assert.NotEqual(t, "ghost", op.Location)
	}
}
