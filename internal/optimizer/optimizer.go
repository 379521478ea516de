// Package optimizer decides each device's operating status for a tick.
//
// The only status-changing rule is the battery rule: a battery runs when
// the location's grid rate beats its contract price by more than
// ArbitrageThreshold. Miners and AI servers always run; the optimizer only
// labels them and attaches display advisories.
package optimizer

import (
	"fmt"
	"math/rand"

	"github.com/kjannette/fleetsim-backend/internal/accounting"
	"github.com/kjannette/fleetsim-backend/internal/models"
)

const (
	// ArbitrageThreshold is the grid-minus-contract spread, per kWh, above
	// which batteries discharge.
	ArbitrageThreshold = 0.01
	// HighComputeDemand is the h200 demand percentage above which AI
	// servers are told to maximize utilization.
	HighComputeDemand = 90.0

	minConfidence = 0.7
	maxConfidence = 1.0
)

// Advisory recommendations.
const (
	RecMaximizeUtilization = "maximize_utilization"
	RecMaintain            = "maintain"
	RecMine                = "mine"
)

// Decision is the optimizer's verdict for one device.
type Decision struct {
	DeviceID       string              `json:"deviceId"`
	Status         models.DeviceStatus `json:"status"`
	Previous       models.DeviceStatus `json:"previous"`
	Label          string              `json:"label,omitempty"`
	Recommendation string              `json:"recommendation,omitempty"`
	Skipped        bool                `json:"skipped,omitempty"`
}

func (d Decision) Changed() bool { return d.Status != d.Previous }

// Hint is an expected-profit estimate for a device in a given status.
type Hint struct {
	RecommendedStatus string
	ExpectedProfit    float64
}

// HintSource supplies advisories. Implementations must not mutate the device.
type HintSource interface {
	Hint(d *models.Device, dec Decision, snap *models.MarketSnapshot,
		contracts map[string]models.EnergyContract, fleetHashRate float64) (Hint, bool)
}

type Optimizer struct {
	acct  *accounting.Accountant
	hints HintSource
}

// New returns an optimizer. hints may be nil, in which case no advisory
// fields are attached.
func New(acct *accounting.Accountant, hints HintSource) *Optimizer {
	return &Optimizer{acct: acct, hints: hints}
}

// Arbitrage returns gridRate - contractPrice for a location.
func Arbitrage(loc string, snap *models.MarketSnapshot, contracts map[string]models.EnergyContract) (float64, bool) {
	c, ok := contracts[loc]
	if !ok {
		return 0, false
	}
	l, ok := snap.Location(loc)
	if !ok {
		return 0, false
	}
	return l.GridRate - c.Price, true
}

// Optimize sets battery status, miner labels and advisories on devices and
// returns one decision per device in input order.
func (o *Optimizer) Optimize(devices []*models.Device, snap *models.MarketSnapshot,
	contracts map[string]models.EnergyContract, rng *rand.Rand) []Decision {

	fleetHash := accounting.FleetHashRate(devices)
	h200Demand := snap.Compute[models.TierH200].Demand

	out := make([]Decision, 0, len(devices))
	for _, d := range devices {
		dec := Decision{DeviceID: d.ID, Status: d.Status, Previous: d.Status}

		arb, ok := Arbitrage(d.Location, snap, contracts)
		if !ok {
			fmt.Printf("[SIM] Optimizer skipping %s: no contract or market data for %q\n", d.ID, d.Location)
			dec.Skipped = true
			out = append(out, dec)
			continue
		}

		switch d.Type {
		case models.DeviceBattery:
			dec.Status = BatteryStatus(arb)
			dec.Recommendation = string(dec.Status)
			d.Status = dec.Status

		case models.DeviceMiner:
			dec.Status = models.StatusActive
			d.Status = models.StatusActive
			dec.Recommendation = RecMine
			dec.Label = models.LabelMonitoring
			if rev, cost, ok := o.acct.Hourly(d, models.StatusActive, snap, contracts, fleetHash); ok && rev-cost >= 0 {
				dec.Label = models.LabelProfitable
			}
			d.Label = dec.Label

		case models.DeviceAIServer:
			dec.Status = models.StatusActive
			d.Status = models.StatusActive
			dec.Recommendation = RecMaintain
			if h200Demand > HighComputeDemand {
				dec.Recommendation = RecMaximizeUtilization
			}
		}

		d.Advisory = nil
		if o.hints != nil {
			if h, ok := o.hints.Hint(d, dec, snap, contracts, fleetHash); ok {
				d.Advisory = &models.Advisory{
					RecommendedStatus: h.RecommendedStatus,
					ExpectedProfit:    h.ExpectedProfit,
					Confidence:        minConfidence + rng.Float64()*(maxConfidence-minConfidence),
				}
			}
		}

		out = append(out, dec)
	}
	return out
}

// BatteryStatus applies the battery rule to a spread.
func BatteryStatus(arbitrage float64) models.DeviceStatus {
	if arbitrage > ArbitrageThreshold {
		return models.StatusActive
	}
	return models.StatusStandby
}

// ProfitHints estimates each device's hourly profit in its decided status
// using the accounting formulas.
type ProfitHints struct {
	Acct *accounting.Accountant
}

func (p ProfitHints) Hint(d *models.Device, dec Decision, snap *models.MarketSnapshot,
	contracts map[string]models.EnergyContract, fleetHashRate float64) (Hint, bool) {

	rev, cost, ok := p.Acct.Hourly(d, dec.Status, snap, contracts, fleetHashRate)
	if !ok {
		return Hint{}, false
	}
	rec := dec.Recommendation
	if rec == "" {
		rec = string(dec.Status)
	}
	return Hint{RecommendedStatus: rec, ExpectedProfit: rev - cost}, true
}
