package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/kjannette/fleetsim-backend/internal/api"
	"github.com/kjannette/fleetsim-backend/internal/broadcast"
	"github.com/kjannette/fleetsim-backend/internal/config"
	"github.com/kjannette/fleetsim-backend/internal/db"
	"github.com/kjannette/fleetsim-backend/internal/external"
	"github.com/kjannette/fleetsim-backend/internal/fleet"
	"github.com/kjannette/fleetsim-backend/internal/forecast"
	"github.com/kjannette/fleetsim-backend/internal/history"
	"github.com/kjannette/fleetsim-backend/internal/notifications"
	"github.com/kjannette/fleetsim-backend/internal/repository"
	"github.com/kjannette/fleetsim-backend/internal/risk"
	"github.com/kjannette/fleetsim-backend/internal/scheduler"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation with the REST API and live websocket feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Print()

	def, err := fleet.Load(cfg.FleetFile)
	if err != nil {
		return fmt.Errorf("[FLEET] %w", err)
	}
	reg := fleet.NewRegistry(def)
	fmt.Printf("[FLEET] %d devices across %d locations\n", reg.Len(), len(reg.LocationIDs()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	simCfg := cfg.Simulation()
	if cfg.CoinGeckoSeed {
		seedCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		simCfg.InitialBTCPrice = external.SeedPrice(seedCtx, external.NewCoinGeckoClient(cfg.CoinGeckoURL),
			simCfg.InitialBTCPrice, forecast.MinBTCPrice, forecast.MaxBTCPrice)
		cancel()
	}

	engine := simulation.NewEngine(simCfg, reg, forecast.NewLocal(), time.Now())
	hub := broadcast.NewHub(engine.Latest, cfg.CORSAllowOrigin)
	sinks := []scheduler.Sink{hub}
	opts := api.Options{
		Port:       cfg.Port,
		APIKey:     cfg.APIKey,
		CORSOrigin: cfg.CORSAllowOrigin,
		Hub:        hub,
	}

	// History archive (optional; the simulation never reads it back)
	var pool *pgxpool.Pool
	if cfg.HistoryEnabled {
		pool = connectArchive(ctx, cfg)
	}
	if pool != nil {
		defer func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}()
		priceRepo := repository.NewPriceRepo(pool)
		sinks = append(sinks, history.NewRecorder(priceRepo, repository.NewTickRepo(pool)))
		opts.History = priceRepo
		opts.DBStatus = func(ctx context.Context) string { return db.Status(ctx, pool) }
	}

	// Alerts
	if cfg.AlertsConfigured() {
		notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName, cfg.NotifyMinInterval)
		guardian := risk.NewGuardian(risk.Limits{
			MaxDailyLossUSD:  cfg.AlertMaxDailyLoss,
			MinUptimePercent: cfg.AlertMinUptime,
			MaxTemperature:   cfg.AlertMaxTemp,
			BatteryModes:     cfg.AlertModeChanges,
		})
		sinks = append(sinks, risk.NewAlertSink(guardian, notify))
	}

	sched := scheduler.New(engine, scheduler.Config{
		Interval:    cfg.TickInterval,
		SinkTimeout: cfg.SinkTimeout,
	}, sinks...)
	opts.Scheduler = sched

	// 1. API server
	srv := api.NewServer(engine, opts)
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	// 2. Tick scheduler
	if err := sched.Start(); err != nil {
		return fmt.Errorf("[SCHED] start failed: %w", err)
	}

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
	}
	fmt.Println("\nShutting down gracefully...")

	// Lets an in-flight tick finish and reach its sinks.
	sched.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
	return nil
}

// connectArchive returns nil when the database is unreachable; the
// simulation runs without an archive in that case.
func connectArchive(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed, history archive disabled: %v\n", err)
		return nil
	}
	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed, history archive disabled: %v\n", err)
		pool.Close()
		return nil
	}
	if err := repository.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] %v, history archive disabled\n", err)
		pool.Close()
		return nil
	}
	return pool
}
