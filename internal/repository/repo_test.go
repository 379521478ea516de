package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/repository"
	"github.com/kjannette/fleetsim-backend/internal/testutil"
)

// ---------- PriceRepo ----------

func TestPriceRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewPriceRepo(pool)
	ctx := context.Background()

	// Record
	ts := time.Now()
	p, err := repo.Record(ctx, 98650.42, ts, "")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if p.Price != 98650.42 {
		t.Fatalf("price mismatch: got %f", p.Price)
	}
	if p.Source != repository.SourceSimulation {
		t.Fatalf("expected default source %q, got %q", repository.SourceSimulation, p.Source)
	}
	t.Logf("Recorded price: id=%d price=%.2f day=%s", p.ID, p.Price, p.ReportingDay)

	// GetLatest
	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected latest price")
	}

	// GetByDay
	prices, err := repo.GetByDay(ctx, p.ReportingDay)
	if err != nil {
		t.Fatalf("GetByDay: %v", err)
	}
	if len(prices) == 0 {
		t.Fatal("expected prices for reporting day")
	}
	t.Logf("GetByDay(%s): %d rows", p.ReportingDay, len(prices))

	// GetAvailableDays
	days, err := repo.GetAvailableDays(ctx)
	if err != nil {
		t.Fatalf("GetAvailableDays: %v", err)
	}
	if len(days) == 0 {
		t.Fatal("expected at least one day")
	}
}

// ---------- TickRepo ----------

func TestTickRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewTickRepo(pool)
	ctx := context.Background()

	in := &repository.TickSummary{
		Tick:           42,
		Timestamp:      time.Now().Add(time.Hour),
		BTCPrice:       97000,
		Cash:           2.5e9,
		BTCHoldings:    8500.25,
		DailyRevenue:   1.2e6,
		DailyCost:      4.1e5,
		DailyProfit:    7.9e5,
		TotalValue:     4.1e10,
		ActiveDevices:  11,
		StandbyDevices: 2,
	}
	saved, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected non-zero ID")
	}

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil || latest.ID != saved.ID {
		t.Fatalf("expected latest to be id=%d, got %+v", saved.ID, latest)
	}
	if latest.Tick != 42 || latest.StandbyDevices != 2 {
		t.Fatalf("round trip mismatch: %+v", latest)
	}
}

// ---------- ReportingDay ----------

func TestReportingDay(t *testing.T) {
	cases := []struct {
		ts   time.Time
		want string
	}{
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "2026-01-15"},
		{time.Date(2026, 1, 15, 23, 59, 59, 0, time.UTC), "2026-01-15"},
		// 20:00 in New York is already the next UTC day.
		{time.Date(2026, 1, 15, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)), "2026-01-16"},
	}
	for _, tc := range cases {
		if got := repository.ReportingDay(tc.ts); got != tc.want {
			t.Fatalf("ReportingDay(%s) = %s, want %s", tc.ts, got, tc.want)
		}
	}
}
