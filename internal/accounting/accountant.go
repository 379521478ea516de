// Package accounting settles each device's hourly revenue, cost and
// profit from its status and the current market snapshot.
package accounting

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

const (
	// DefaultNetworkShare is the fraction of the network's daily block
	// reward the whole fleet earns.
	DefaultNetworkShare = 0.06
	// BatteryUtilization is the fraction of battery capacity assumed to
	// be discharged into the spread each hour.
	BatteryUtilization = 0.5
	blocksPerDay       = 144
)

// Telemetry walk bounds per device type.
const (
	minerUptimeMin, minerUptimeMax, minerUptimeStep = 95.0, 99.5, 0.25
	minerTempMin, minerTempMax, minerTempStep       = 65.0, 80.0, 1.0
	aiEffMin, aiEffMax, aiEffStep                   = 80.0, 95.0, 1.0
	aiTempMin, aiTempMax, aiTempStep                = 60.0, 75.0, 0.75
	batteryEffMin, batteryEffMax, batteryEffStep    = 92.0, 96.0, 0.15
)

type Accountant struct {
	networkShare float64
}

func New(networkShare float64) *Accountant {
	if networkShare <= 0 {
		networkShare = DefaultNetworkShare
	}
	return &Accountant{networkShare: networkShare}
}

// Summary reports what Settle touched.
type Summary struct {
	Settled int
	Skipped []string
}

// Hourly computes revenue and cost for d as if it were in status. It does
// not modify d. ok is false when the device's location has no contract or
// no market entry.
func (a *Accountant) Hourly(d *models.Device, status models.DeviceStatus, snap *models.MarketSnapshot,
	contracts map[string]models.EnergyContract, fleetHashRate float64) (revenue, cost float64, ok bool) {

	contract, hasContract := contracts[d.Location]
	loc, hasLoc := snap.Location(d.Location)
	if !hasContract || !hasLoc {
		return 0, 0, false
	}

	switch d.Type {
	case models.DeviceMiner:
		if fleetHashRate > 0 {
			dailyReward := snap.Bitcoin.BlockReward * blocksPerDay
			revenue = dailyReward * a.networkShare * (d.HashRate / fleetHashRate) * snap.Bitcoin.Price / 24
		}
		cost = d.PowerConsumption * contract.Price

	case models.DeviceAIServer:
		tier := d.ComputeTier
		if tier == "" {
			tier = models.TierH200
		}
		revenue = float64(d.GPUCount) * snap.Compute[tier].Price * (d.Efficiency / 100)
		cost = d.PowerConsumption * contract.Price

	case models.DeviceBattery:
		if status == models.StatusActive {
			revenue = d.Capacity * (loc.GridRate - contract.Price) * BatteryUtilization
		}
	}
	return revenue, cost, true
}

// Settle writes revenue, cost and profit onto every device and advances
// its telemetry. Devices that cannot be priced keep their previous values.
func (a *Accountant) Settle(devices []*models.Device, snap *models.MarketSnapshot,
	contracts map[string]models.EnergyContract, rng *rand.Rand) Summary {

	fleetHash := FleetHashRate(devices)

	var sum Summary
	for _, d := range devices {
		revenue, cost, ok := a.Hourly(d, d.Status, snap, contracts, fleetHash)
		if !ok {
			fmt.Printf("[SIM] Skipping %s: no contract or market data for %q\n", d.ID, d.Location)
			sum.Skipped = append(sum.Skipped, d.ID)
			continue
		}
		d.Revenue = revenue
		d.Cost = cost
		d.Profit = revenue - cost
		advanceTelemetry(d, rng)
		sum.Settled++
	}
	return sum
}

// FleetHashRate sums miner hash rate across devices.
func FleetHashRate(devices []*models.Device) float64 {
	var total float64
	for _, d := range devices {
		if d.Type == models.DeviceMiner {
			total += d.HashRate
		}
	}
	return total
}

// advanceTelemetry runs after revenue so AI revenue uses the efficiency the
// tick started with.
func advanceTelemetry(d *models.Device, rng *rand.Rand) {
	switch d.Type {
	case models.DeviceMiner:
		d.Uptime = walk(d.Uptime, minerUptimeStep, minerUptimeMin, minerUptimeMax, rng)
		d.Temperature = walk(d.Temperature, minerTempStep, minerTempMin, minerTempMax, rng)
	case models.DeviceAIServer:
		d.Efficiency = walk(d.Efficiency, aiEffStep, aiEffMin, aiEffMax, rng)
		d.Temperature = walk(d.Temperature, aiTempStep, aiTempMin, aiTempMax, rng)
	case models.DeviceBattery:
		d.Efficiency = walk(d.Efficiency, batteryEffStep, batteryEffMin, batteryEffMax, rng)
	}
}

func walk(v, step, lo, hi float64, rng *rand.Rand) float64 {
	return math.Max(lo, math.Min(hi, v+(rng.Float64()-0.5)*2*step))
}
