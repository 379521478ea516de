package history

import (
	"context"
	"fmt"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/repository"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

type PriceWriter interface {
	Record(ctx context.Context, price float64, ts time.Time, source string) (*models.PricePoint, error)
}

type TickWriter interface {
	Insert(ctx context.Context, s *repository.TickSummary) (*repository.TickSummary, error)
}

// Recorder archives every settled tick. The archive is write-only: nothing
// here is ever read back into simulation state.
type Recorder struct {
	prices PriceWriter
	ticks  TickWriter
}

func NewRecorder(prices PriceWriter, ticks TickWriter) *Recorder {
	return &Recorder{prices: prices, ticks: ticks}
}

func (r *Recorder) Name() string { return "history" }

func (r *Recorder) Publish(ctx context.Context, snap *simulation.Snapshot) error {
	ts := snap.Market.Timestamp
	if ts.IsZero() {
		ts = snap.GeneratedAt
	}

	if _, err := r.prices.Record(ctx, snap.Market.Bitcoin.Price, ts, repository.SourceSimulation); err != nil {
		return fmt.Errorf("record price for tick %d: %w", snap.Tick, err)
	}
	if _, err := r.ticks.Insert(ctx, Summarize(snap, ts)); err != nil {
		return fmt.Errorf("record summary for tick %d: %w", snap.Tick, err)
	}
	return nil
}

func Summarize(snap *simulation.Snapshot, ts time.Time) *repository.TickSummary {
	s := &repository.TickSummary{
		Tick:         snap.Tick,
		Timestamp:    ts,
		BTCPrice:     snap.Market.Bitcoin.Price,
		Cash:         snap.Portfolio.Cash,
		BTCHoldings:  snap.Portfolio.BitcoinHoldings,
		DailyRevenue: snap.Portfolio.DailyRevenue,
		DailyCost:    snap.Portfolio.DailyCost,
		DailyProfit:  snap.Portfolio.DailyProfit,
		TotalValue:   snap.Portfolio.TotalValue,
	}
	for _, d := range snap.Devices {
		switch d.Status {
		case models.StatusActive:
			s.ActiveDevices++
		case models.StatusStandby:
			s.StandbyDevices++
		}
	}
	return s
}
