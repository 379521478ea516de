package risk

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

// Limits holds the alert thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	MaxDailyLossUSD  float64
	MinUptimePercent float64
	MaxTemperature   float64
	BatteryModes     bool
}

type Alert struct {
	Key     string
	Message string
}

// Guardian watches settled snapshots for breached limits. Threshold alerts
// are edge-triggered: one alert when a limit is first breached, none while
// it stays breached, and a fresh one after it recovers and breaches again.
type Guardian struct {
	limits Limits

	mu       sync.Mutex
	breached map[string]bool
}

func NewGuardian(limits Limits) *Guardian {
	return &Guardian{limits: limits, breached: make(map[string]bool)}
}

// PortfolioCheck returns a descriptive error if the daily loss limit is
// breached.
func (g *Guardian) PortfolioCheck(p models.Portfolio) error {
	if g.limits.MaxDailyLossUSD > 0 && p.DailyProfit <= -g.limits.MaxDailyLossUSD {
		return fmt.Errorf("DAILY-LOSS limit breached: profit $%.2f/day (threshold: -$%.2f)",
			p.DailyProfit, g.limits.MaxDailyLossUSD)
	}
	return nil
}

// DeviceCheck returns one error per breached device limit.
func (g *Guardian) DeviceCheck(d models.Device) (uptime, temperature error) {
	if g.limits.MinUptimePercent > 0 && d.Uptime < g.limits.MinUptimePercent {
		uptime = fmt.Errorf("UPTIME %s at %.1f%% (floor: %.1f%%)",
			d.ID, d.Uptime, g.limits.MinUptimePercent)
	}
	if g.limits.MaxTemperature > 0 && d.Temperature > g.limits.MaxTemperature {
		temperature = fmt.Errorf("TEMPERATURE %s at %.1fF (ceiling: %.1fF)",
			d.ID, d.Temperature, g.limits.MaxTemperature)
	}
	return uptime, temperature
}

// Evaluate returns the alerts newly raised by snap, in a stable order.
func (g *Guardian) Evaluate(snap *simulation.Snapshot) []Alert {
	current := map[string]string{}
	if err := g.PortfolioCheck(snap.Portfolio); err != nil {
		current["portfolio:daily-loss"] = err.Error()
	}
	for _, d := range snap.Devices {
		up, temp := g.DeviceCheck(d)
		if up != nil {
			current["uptime:"+d.ID] = up.Error()
		}
		if temp != nil {
			current["temperature:"+d.ID] = temp.Error()
		}
	}

	g.mu.Lock()
	var out []Alert
	for key, msg := range current {
		if !g.breached[key] {
			out = append(out, Alert{Key: key, Message: msg})
		}
	}
	for key := range g.breached {
		if _, still := current[key]; !still {
			delete(g.breached, key)
		}
	}
	for key := range current {
		g.breached[key] = true
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	// Mode changes are events, not states: always reported.
	if g.limits.BatteryModes {
		for _, dec := range snap.Decisions {
			if dec.Changed() {
				out = append(out, Alert{
					Key:     "mode:" + dec.DeviceID,
					Message: fmt.Sprintf("MODE %s switched %s -> %s", dec.DeviceID, dec.Previous, dec.Status),
				})
			}
		}
	}
	return out
}

type Notifier interface {
	SendContext(ctx context.Context, msg string) error
}

// AlertSink runs the guardian after every tick and forwards new alerts.
type AlertSink struct {
	guardian *Guardian
	notifier Notifier
}

func NewAlertSink(g *Guardian, n Notifier) *AlertSink {
	return &AlertSink{guardian: g, notifier: n}
}

func (s *AlertSink) Name() string { return "alerts" }

func (s *AlertSink) Publish(ctx context.Context, snap *simulation.Snapshot) error {
	var firstErr error
	for _, a := range s.guardian.Evaluate(snap) {
		msg := fmt.Sprintf("tick %d: %s", snap.Tick, a.Message)
		if err := s.notifier.SendContext(ctx, msg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("alert %s: %w", a.Key, err)
		}
	}
	return firstErr
}
