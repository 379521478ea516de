package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kjannette/fleetsim-backend/internal/accounting"
	"github.com/kjannette/fleetsim-backend/internal/forecast"
	"github.com/kjannette/fleetsim-backend/internal/market"
	"github.com/kjannette/fleetsim-backend/internal/portfolio"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

type Config struct {
	// Server
	Port            int
	APIKey          string
	CORSAllowOrigin string

	// Simulation
	TickInterval    time.Duration
	RandomSeed      int64
	ForecastTimeout time.Duration
	SinkTimeout     time.Duration
	HistoryLimit    int
	FleetFile       string

	// Starting portfolio
	InitialBTCPrice float64
	InitialCash     float64
	InitialHoldings float64
	TotalInvested   float64
	NetworkShare    float64
	GlobalHashRate  float64

	// Price seed
	CoinGeckoSeed bool
	CoinGeckoURL  string

	// History archive
	HistoryEnabled bool
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string

	// Alerts
	WebhookURL        string
	BotName           string
	NotifyMinInterval time.Duration
	AlertMaxDailyLoss float64
	AlertMinUptime    float64
	AlertMaxTemp      float64
	AlertModeChanges  bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Server
		Port:            envInt("PORT", 5001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Simulation
		TickInterval:    envDuration("TICK_INTERVAL_SECONDS", time.Second, 15*time.Second),
		RandomSeed:      int64(envInt("RANDOM_SEED", 0)),
		ForecastTimeout: envDuration("FORECAST_TIMEOUT_MS", time.Millisecond, 2*time.Second),
		SinkTimeout:     envDuration("SINK_TIMEOUT_MS", time.Millisecond, 5*time.Second),
		HistoryLimit:    envInt("PRICE_HISTORY_LIMIT", 100),
		FleetFile:       envStr("FLEET_FILE", ""),

		// Starting portfolio
		InitialBTCPrice: envFloat("INITIAL_BTC_PRICE", market.DefaultBTCPrice),
		InitialCash:     envFloat("INITIAL_CASH", portfolio.DefaultCash),
		InitialHoldings: envFloat("INITIAL_BTC_HOLDINGS", portfolio.DefaultBitcoinHoldings),
		TotalInvested:   envFloat("TOTAL_INVESTED", portfolio.DefaultTotalInvested),
		NetworkShare:    envFloat("NETWORK_SHARE", accounting.DefaultNetworkShare),
		GlobalHashRate:  envFloat("GLOBAL_HASH_RATE_PH", portfolio.DefaultGlobalHashRate),

		// Price seed
		CoinGeckoSeed: envBool("COINGECKO_SEED", false),
		CoinGeckoURL:  envStr("COINGECKO_URL", ""),

		// History archive
		HistoryEnabled: envBool("HISTORY_ENABLED", false),
		DBHost:         envStr("DB_HOST", "localhost"),
		DBPort:         envInt("DB_PORT", 5432),
		DBName:         envStr("DB_NAME", "fleetsim"),
		DBUser:         envStr("DB_USER", ""),
		DBPassword:     envStr("DB_PASSWORD", ""),

		// Alerts
		WebhookURL:        envStr("WEBHOOK_URL", ""),
		BotName:           envStr("BOT_NAME", "FleetSim"),
		NotifyMinInterval: envDuration("NOTIFY_MIN_INTERVAL_SECONDS", time.Second, 2*time.Second),
		AlertMaxDailyLoss: envFloat("ALERT_MAX_DAILY_LOSS_USD", 0),
		AlertMinUptime:    envFloat("ALERT_MIN_UPTIME_PERCENT", 0),
		AlertMaxTemp:      envFloat("ALERT_MAX_TEMPERATURE", 0),
		AlertModeChanges:  envBool("ALERT_MODE_CHANGES", false),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, "TICK_INTERVAL_SECONDS must be positive")
	}
	if c.InitialBTCPrice < forecast.MinBTCPrice || c.InitialBTCPrice > forecast.MaxBTCPrice {
		errs = append(errs, fmt.Sprintf("INITIAL_BTC_PRICE must be within [%.0f, %.0f]",
			forecast.MinBTCPrice, forecast.MaxBTCPrice))
	}
	if c.NetworkShare <= 0 || c.NetworkShare > 1 {
		errs = append(errs, "NETWORK_SHARE must be in (0, 1]")
	}
	if c.GlobalHashRate <= 0 {
		errs = append(errs, "GLOBAL_HASH_RATE_PH must be positive")
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, "PRICE_HISTORY_LIMIT must be positive")
	}
	if c.HistoryEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when HISTORY_ENABLED=true")
	}

	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set, REST API has no authentication")
	}
	if c.WebhookURL == "" && c.AlertsConfigured() {
		fmt.Println("[WARN] alert limits set but WEBHOOK_URL is empty, alerts go to console only")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// AlertsConfigured reports whether any alert check is enabled.
func (c *Config) AlertsConfigured() bool {
	return c.AlertMaxDailyLoss > 0 || c.AlertMinUptime > 0 || c.AlertMaxTemp > 0 || c.AlertModeChanges
}

// Simulation maps the config onto engine settings. A zero RANDOM_SEED
// seeds from the clock.
func (c *Config) Simulation() simulation.Config {
	sc := simulation.DefaultConfig()
	if c.RandomSeed != 0 {
		sc.Seed = c.RandomSeed
	}
	sc.InitialBTCPrice = c.InitialBTCPrice
	sc.InitialCash = c.InitialCash
	sc.InitialHoldings = c.InitialHoldings
	sc.TotalInvested = c.TotalInvested
	sc.NetworkShare = c.NetworkShare
	sc.GlobalHashRate = c.GlobalHashRate
	sc.ForecastTimeout = c.ForecastTimeout
	sc.HistoryLimit = c.HistoryLimit
	return sc
}

func (c *Config) Print() {
	fmt.Println("=== Energy Fleet Simulator Configuration ===")
	fmt.Printf("Tick Interval: %s (overrun policy: skip)\n", c.TickInterval)
	if c.RandomSeed != 0 {
		fmt.Printf("Random Seed: %d\n", c.RandomSeed)
	} else {
		fmt.Println("Random Seed: clock")
	}
	fmt.Printf("Fleet File: %s\n", boolLabel(c.FleetFile != "", c.FleetFile, "embedded default"))
	fmt.Println("--------------------------------------")
	fmt.Println("Starting Portfolio:")
	fmt.Printf("  BTC Price: $%.2f%s\n", c.InitialBTCPrice, boolLabel(c.CoinGeckoSeed, " (CoinGecko seed enabled)", ""))
	fmt.Printf("  Cash: $%.0f\n", c.InitialCash)
	fmt.Printf("  BTC Holdings: %.4f\n", c.InitialHoldings)
	fmt.Printf("  Network Share: %.2f%%\n", c.NetworkShare*100)
	fmt.Println("--------------------------------------")
	fmt.Printf("History Archive: %s\n", boolLabel(c.HistoryEnabled, fmt.Sprintf("enabled (%s:%d/%s)", c.DBHost, c.DBPort, c.DBName), "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set (console only)"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// envDuration reads an integer count of unit.
func envDuration(key string, unit, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * unit
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
