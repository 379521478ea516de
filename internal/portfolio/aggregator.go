// Package portfolio rolls device-level numbers into fleet-wide financial
// state. Bitcoin holdings only ever grow; there is no sell path.
package portfolio

import (
	"math"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

// Seed values for a fresh portfolio.
const (
	DefaultCash            = 2.5e9
	DefaultBitcoinHoldings = 8500.0
	DefaultTotalInvested   = 38e9
	// DefaultGlobalHashRate is the network hash rate in PH/s (850 EH/s).
	DefaultGlobalHashRate = 850_000.0
)

type Aggregator struct {
	globalHashRate float64
}

// New returns an aggregator. globalHashRate is in PH/s.
func New(globalHashRate float64) *Aggregator {
	if globalHashRate <= 0 {
		globalHashRate = DefaultGlobalHashRate
	}
	return &Aggregator{globalHashRate: globalHashRate}
}

func Seed(cash, holdings, invested float64) models.Portfolio {
	return models.Portfolio{Cash: cash, BitcoinHoldings: holdings, TotalInvested: invested}
}

// Aggregate returns the next portfolio. Only prev's cash, holdings and
// invested capital carry forward; everything else is recomputed.
func (a *Aggregator) Aggregate(devices []*models.Device, snap *models.MarketSnapshot,
	contracts []models.EnergyContract, prev models.Portfolio) models.Portfolio {

	next := a.Revalue(devices, snap, contracts, prev)

	var minerRevenue float64
	for _, d := range devices {
		if d.Type == models.DeviceMiner {
			minerRevenue += d.Revenue
		}
	}
	next.DailyBTCAccumulation = 0
	if snap.Bitcoin.Price > 0 {
		acc := minerRevenue * 24 / snap.Bitcoin.Price
		if acc > 0 && !math.IsInf(acc, 0) && !math.IsNaN(acc) {
			next.DailyBTCAccumulation = acc
			next.BitcoinHoldings += acc
		}
	}

	a.value(&next, snap.Bitcoin.Price)
	return next
}

// Revalue recomputes daily figures, book values and totals without
// touching holdings.
func (a *Aggregator) Revalue(devices []*models.Device, snap *models.MarketSnapshot,
	contracts []models.EnergyContract, prev models.Portfolio) models.Portfolio {

	next := models.Portfolio{
		Cash:            prev.Cash,
		BitcoinHoldings: prev.BitcoinHoldings,
		TotalInvested:   prev.TotalInvested,
	}

	for _, d := range devices {
		next.DailyRevenue += d.Revenue * 24
		next.DailyCost += d.Cost * 24
		next.DeviceBookValue += d.PurchasePrice
		next.TotalPowerConsumption += d.PowerConsumption

		switch d.Type {
		case models.DeviceMiner:
			next.TotalHashRate += d.HashRate
		case models.DeviceAIServer:
			next.TotalGPUs += d.GPUCount
		case models.DeviceBattery:
			next.TotalBatteryCapacity += d.Capacity
		}
	}
	next.DailyProfit = next.DailyRevenue - next.DailyCost
	next.MonthlyProfit = next.DailyProfit * 30
	next.NetworkShare = next.TotalHashRate / a.globalHashRate * 100

	for _, c := range contracts {
		next.ContractBookValue += c.MonthlyCommitment * c.Price * 12
	}

	a.value(&next, snap.Bitcoin.Price)
	return next
}

func (a *Aggregator) value(p *models.Portfolio, btcPrice float64) {
	p.BitcoinValue = p.BitcoinHoldings * btcPrice
	p.TotalValue = p.Cash + p.BitcoinValue + p.ContractBookValue + p.DeviceBookValue
	p.TotalReturn = 0
	if p.TotalInvested != 0 {
		p.TotalReturn = (p.TotalValue - p.TotalInvested) / p.TotalInvested * 100
	}
}
