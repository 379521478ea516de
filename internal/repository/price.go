package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

const SourceSimulation = "simulation"

type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

func (r *PriceRepo) Record(ctx context.Context, price float64, ts time.Time, source string) (*models.PricePoint, error) {
	if source == "" {
		source = SourceSimulation
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO price_history (timestamp, price, reporting_day, source)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, timestamp, price, reporting_day, source, created_at`,
		ts, price, ReportingDay(ts), source,
	)
	return scanPrice(row)
}

func (r *PriceRepo) GetByDay(ctx context.Context, day string) ([]models.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, timestamp, price, reporting_day, source, created_at
		 FROM price_history WHERE reporting_day = $1 ORDER BY timestamp ASC`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

func (r *PriceRepo) GetAvailableDays(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT reporting_day FROM price_history ORDER BY reporting_day DESC LIMIT 30`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d.Format("2006-01-02"))
	}
	return days, rows.Err()
}

// GetLatest returns nil, nil when nothing has been archived yet.
func (r *PriceRepo) GetLatest(ctx context.Context) (*models.PricePoint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, timestamp, price, reporting_day, source, created_at
		 FROM price_history ORDER BY timestamp DESC LIMIT 1`,
	)
	p, err := scanPrice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanPrice(row scannable) (*models.PricePoint, error) {
	var p models.PricePoint
	var day time.Time
	if err := row.Scan(&p.ID, &p.Timestamp, &p.Price, &day, &p.Source, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ReportingDay = day.Format("2006-01-02")
	return &p, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectPrices(rows rowsIter) ([]models.PricePoint, error) {
	var out []models.PricePoint
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
