// Package operations narrates what the fleet did in the latest tick. The
// log is regenerated from scratch every tick.
package operations

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/optimizer"
)

const (
	// MaxEntries caps the log; the oldest entries are dropped first.
	MaxEntries = 20
	// ConservationThreshold is the spread below which the log notes that
	// grid power is cheaper than the contract.
	ConservationThreshold = -0.005
	// energySaleScale converts excess MW times a $/kWh spread into the
	// reported sale revenue.
	energySaleScale = 1000
)

type Generator struct {
	globalHashRate float64 // PH/s
	newID          func() string
}

// New returns a generator. globalHashRate is in PH/s.
func New(globalHashRate float64) *Generator {
	return &Generator{
		globalHashRate: globalHashRate,
		newID:          func() string { return uuid.NewString() },
	}
}

// Generate builds the operations for one tick. locations fixes the order
// in which markets are reported.
func (g *Generator) Generate(locations []string, devices []*models.Device, snap *models.MarketSnapshot,
	contracts map[string]models.EnergyContract, port models.Portfolio, now time.Time) []models.Operation {

	var ops []models.Operation
	add := func(typ, loc, desc string, revenue float64, status models.OperationStatus) {
		ops = append(ops, models.Operation{
			ID:          g.newID(),
			Type:        typ,
			Location:    loc,
			Description: desc,
			Revenue:     revenue,
			Timestamp:   now,
			Status:      status,
		})
	}

	for _, loc := range locations {
		contract, ok := contracts[loc]
		if !ok {
			continue
		}
		arb, ok := optimizer.Arbitrage(loc, snap, contracts)
		if !ok {
			continue
		}

		var miners, ais, activeBatteries []*models.Device
		var power float64
		for _, d := range devices {
			if d.Location != loc {
				continue
			}
			power += d.PowerConsumption
			switch d.Type {
			case models.DeviceMiner:
				miners = append(miners, d)
			case models.DeviceAIServer:
				ais = append(ais, d)
			case models.DeviceBattery:
				if d.Status == models.StatusActive {
					activeBatteries = append(activeBatteries, d)
				}
			}
		}

		if len(miners) > 0 {
			profitable := true
			var rev float64
			for _, m := range miners {
				rev += m.Revenue
				if m.Label != models.LabelProfitable {
					profitable = false
				}
			}
			if profitable {
				add(models.OpMiningOptimization, loc,
					fmt.Sprintf("Bitcoin mining profitable - accumulating BTC at $%.0f", snap.Bitcoin.Price),
					rev, models.OpActive)
			} else {
				add(models.OpMiningOptimization, loc,
					"Mining at slight loss - accumulating BTC for long-term value",
					rev, models.OpMonitoring)
			}
		}

		switch {
		case arb > optimizer.ArbitrageThreshold:
			if len(activeBatteries) > 0 {
				var capacity, rev float64
				for _, b := range activeBatteries {
					capacity += b.Capacity
					rev += b.Revenue
				}
				add(models.OpBatteryArbitrage, loc,
					fmt.Sprintf("Battery arbitrage - selling %.0f MW to grid, can buy %.6f BTC", capacity, btcFor(rev, snap)),
					rev, models.OpActive)
			} else if excess := contract.Capacity - power; excess > 0 {
				rev := excess * arb * energySaleScale
				add(models.OpEnergySale, loc,
					fmt.Sprintf("Selling %.0f MW excess energy to grid at $%.3f/kWh - can buy %.6f BTC", excess, arb+contract.Price, btcFor(rev, snap)),
					rev, models.OpActive)
			}
		case arb < ConservationThreshold:
			add(models.OpEnergyOptimization, loc,
				"Grid price below contract - focusing on mining and AI compute",
				0, models.OpMonitoring)
		}

		if len(ais) > 0 {
			h200 := snap.Compute[models.TierH200]
			if h200.Demand > optimizer.HighComputeDemand {
				var rev float64
				for _, d := range ais {
					rev += d.Revenue
				}
				add(models.OpAIOptimization, loc,
					fmt.Sprintf("High AI compute demand (%.1f%%) - maximizing GPU utilization at $%.2f/hr", h200.Demand, h200.Price),
					rev, models.OpActive)
			}
		}
	}

	share := 0.0
	if g.globalHashRate > 0 {
		share = port.TotalHashRate / g.globalHashRate * 100
	}

	add(models.OpNetworkStatus, "all",
		fmt.Sprintf("Network: %.1f PH/s (%.2f%% of global) | Daily BTC accumulation: %.4f BTC",
			port.TotalHashRate, share, port.DailyBTCAccumulation),
		0, models.OpActive)

	if over := len(ops) - MaxEntries; over > 0 {
		ops = ops[over:]
	}
	return ops
}

func btcFor(revenue float64, snap *models.MarketSnapshot) float64 {
	if snap.Bitcoin.Price <= 0 {
		return 0
	}
	return revenue / snap.Bitcoin.Price
}
