// Package simulation runs the tick pipeline: market refresh, allocation,
// settlement, aggregation and the operations log, in that order.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/accounting"
	"github.com/kjannette/fleetsim-backend/internal/fleet"
	"github.com/kjannette/fleetsim-backend/internal/forecast"
	"github.com/kjannette/fleetsim-backend/internal/market"
	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/operations"
	"github.com/kjannette/fleetsim-backend/internal/optimizer"
	"github.com/kjannette/fleetsim-backend/internal/portfolio"
)

type Config struct {
	Seed            int64
	InitialBTCPrice float64
	InitialCash     float64
	InitialHoldings float64
	TotalInvested   float64
	NetworkShare    float64
	GlobalHashRate  float64 // PH/s
	ForecastTimeout time.Duration
	HistoryLimit    int
}

func DefaultConfig() Config {
	return Config{
		Seed:            time.Now().UnixNano(),
		InitialBTCPrice: market.DefaultBTCPrice,
		InitialCash:     portfolio.DefaultCash,
		InitialHoldings: portfolio.DefaultBitcoinHoldings,
		TotalInvested:   portfolio.DefaultTotalInvested,
		NetworkShare:    accounting.DefaultNetworkShare,
		GlobalHashRate:  portfolio.DefaultGlobalHashRate,
		ForecastTimeout: 2 * time.Second,
		HistoryLimit:    100,
	}
}

// Engine owns the simulation state. Tick must not be called concurrently;
// the scheduler serializes calls. Latest is safe from any goroutine.
type Engine struct {
	state *State

	market     *market.Model
	optimizer  *optimizer.Optimizer
	accountant *accounting.Accountant
	aggregator *portfolio.Aggregator
	operations *operations.Generator

	latest atomic.Pointer[Snapshot]
}

// NewEngine seeds state from the registry and publishes tick 0.
func NewEngine(cfg Config, reg *fleet.Registry, provider forecast.Provider, now time.Time) *Engine {
	acct := accounting.New(cfg.NetworkShare)
	e := &Engine{
		market:     market.New(provider, cfg.ForecastTimeout),
		optimizer:  optimizer.New(acct, optimizer.ProfitHints{Acct: acct}),
		accountant: acct,
		aggregator: portfolio.New(cfg.GlobalHashRate),
		operations: operations.New(cfg.GlobalHashRate),
	}

	snap := market.Initial(now, reg.InitialLocations(), cfg.InitialBTCPrice)
	e.state = &State{
		Market:    snap,
		History:   market.NewHistory(models.PricePoint{Timestamp: now, Price: snap.Bitcoin.Price, Source: "seed"}, cfg.HistoryLimit),
		Fleet:     reg,
		Portfolio: portfolio.Seed(cfg.InitialCash, cfg.InitialHoldings, cfg.TotalInvested),
		Rand:      rand.New(rand.NewSource(cfg.Seed)),
	}
	e.state.Portfolio = e.aggregator.Revalue(reg.All(), &e.state.Market, reg.ContractList(), e.state.Portfolio)
	e.publish(now)
	return e
}

// Latest returns the most recent fully-settled snapshot.
func (e *Engine) Latest() *Snapshot {
	return e.latest.Load()
}

// Tick runs one pass of the pipeline. A panic in any stage is returned as
// an error; the previous snapshot stays published in that case.
func (e *Engine) Tick(ctx context.Context, now time.Time) (snap *Snapshot, err error) {
	st := e.state
	stage := "market"
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("tick %d: %s stage panicked: %v", st.Tick+1, stage, r)
		}
	}()

	st.Market = e.market.Refresh(ctx, now, st.Market, st.History, st.Rand)

	stage = "optimizer"
	devices := st.Fleet.All()
	contracts := st.Fleet.Contracts()
	st.Decisions = e.optimizer.Optimize(devices, &st.Market, contracts, st.Rand)

	stage = "accountant"
	e.accountant.Settle(devices, &st.Market, contracts, st.Rand)

	stage = "aggregator"
	st.Portfolio = e.aggregator.Aggregate(devices, &st.Market, st.Fleet.ContractList(), st.Portfolio)

	stage = "operations"
	st.Operations = e.operations.Generate(st.Fleet.LocationIDs(), devices, &st.Market, contracts, st.Portfolio, now)

	stage = "publish"
	st.Tick++
	return e.publish(now), nil
}

func (e *Engine) publish(now time.Time) *Snapshot {
	st := e.state
	devices := st.Fleet.Snapshot()
	snap := &Snapshot{
		Tick:        st.Tick,
		GeneratedAt: now,
		Market:      st.Market.Clone(),
		Devices:     devices,
		Portfolio:   st.Portfolio,
		Operations:  append([]models.Operation{}, st.Operations...),
		Contracts:   st.Fleet.ContractList(),
		Decisions:   append([]optimizer.Decision(nil), st.Decisions...),
		Insights:    buildInsights(st, devices),
	}
	e.latest.Store(snap)
	return snap
}
