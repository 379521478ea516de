package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS price_history (
		id            BIGSERIAL PRIMARY KEY,
		timestamp     TIMESTAMPTZ NOT NULL,
		price         DOUBLE PRECISION NOT NULL,
		reporting_day DATE NOT NULL,
		source        TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS price_history_day_idx ON price_history (reporting_day, timestamp)`,
	`CREATE TABLE IF NOT EXISTS tick_summary (
		id              BIGSERIAL PRIMARY KEY,
		tick            BIGINT NOT NULL,
		timestamp       TIMESTAMPTZ NOT NULL,
		reporting_day   DATE NOT NULL,
		btc_price       DOUBLE PRECISION NOT NULL,
		cash            DOUBLE PRECISION NOT NULL,
		btc_holdings    DOUBLE PRECISION NOT NULL,
		daily_revenue   DOUBLE PRECISION NOT NULL,
		daily_cost      DOUBLE PRECISION NOT NULL,
		daily_profit    DOUBLE PRECISION NOT NULL,
		total_value     DOUBLE PRECISION NOT NULL,
		active_devices  INTEGER NOT NULL,
		standby_devices INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the archive tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
