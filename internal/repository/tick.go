package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TickSummary is the archived headline of one settled tick.
type TickSummary struct {
	ID             int64     `json:"id"`
	Tick           int64     `json:"tick"`
	Timestamp      time.Time `json:"timestamp"`
	BTCPrice       float64   `json:"btcPrice"`
	Cash           float64   `json:"cash"`
	BTCHoldings    float64   `json:"bitcoinHoldings"`
	DailyRevenue   float64   `json:"dailyRevenue"`
	DailyCost      float64   `json:"dailyCost"`
	DailyProfit    float64   `json:"dailyProfit"`
	TotalValue     float64   `json:"totalValue"`
	ActiveDevices  int       `json:"activeDevices"`
	StandbyDevices int       `json:"standbyDevices"`
	CreatedAt      time.Time `json:"createdAt"`
}

type TickRepo struct {
	pool *pgxpool.Pool
}

func NewTickRepo(pool *pgxpool.Pool) *TickRepo {
	return &TickRepo{pool: pool}
}

func (r *TickRepo) Insert(ctx context.Context, s *TickSummary) (*TickSummary, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tick_summary
		   (tick, timestamp, reporting_day, btc_price, cash, btc_holdings,
		    daily_revenue, daily_cost, daily_profit, total_value,
		    active_devices, standby_devices)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		s.Tick, s.Timestamp, ReportingDay(s.Timestamp), s.BTCPrice, s.Cash, s.BTCHoldings,
		s.DailyRevenue, s.DailyCost, s.DailyProfit, s.TotalValue,
		s.ActiveDevices, s.StandbyDevices,
	)
	out := *s
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *TickRepo) GetLatest(ctx context.Context) (*TickSummary, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tick, timestamp, btc_price, cash, btc_holdings,
		        daily_revenue, daily_cost, daily_profit, total_value,
		        active_devices, standby_devices, created_at
		 FROM tick_summary ORDER BY timestamp DESC, id DESC LIMIT 1`,
	)
	var s TickSummary
	err := row.Scan(&s.ID, &s.Tick, &s.Timestamp, &s.BTCPrice, &s.Cash, &s.BTCHoldings,
		&s.DailyRevenue, &s.DailyCost, &s.DailyProfit, &s.TotalValue,
		&s.ActiveDevices, &s.StandbyDevices, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
