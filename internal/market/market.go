// Package market refreshes the energy, bitcoin and compute market snapshot
// once per tick. Every random perturbation is bounded; the bounds below are
// part of the model's contract.
package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/forecast"
	"github.com/kjannette/fleetsim-backend/internal/models"
)

// Energy bounds. Rates are currency per kWh, the rest are percentages.
const (
	MinGridRate = 0.055
	MaxGridRate = 0.18

	// Peak factor is drawn from [0.98, 1.23), off-peak from [0.85, 1.05).
	peakFactorBase    = 0.98
	peakFactorSpan    = 0.25
	offPeakFactorBase = 0.85
	offPeakFactorSpan = 0.20

	MinSupply         = 70.0
	MaxSupply         = 105.0
	supplyJitter      = 3.0 // +/- per tick
	MinRenewableShare = 20.0
	MaxRenewableShare = 60.0
	renewableJitter   = 1.0 // +/- per tick

	// Simulated ambient temperature fed to the demand forecast, in F.
	weatherBaseF = 70.0
	weatherSpanF = 20.0

	defaultHistorySize = 100
)

// Bitcoin bounds.
const (
	MinBTCPrice     = forecast.MinBTCPrice
	MaxBTCPrice     = forecast.MaxBTCPrice
	priceNoise      = 0.01 // +/- 1% on top of the prediction
	change24hSpan   = 8.0  // reported 24h change in [-4, 4] %
	volumeBase      = 40e9
	volumeSpan      = 10e9
	BlocksPerDay    = 144
	DefaultReward   = 3.125
	DefaultDiff     = 8.5e14
	DefaultBTCPrice = 95000.0
)

// DefaultNextHalving is the block-reward halving the countdown targets.
var DefaultNextHalving = time.Date(2027, 4, 20, 0, 0, 0, 0, time.UTC)

// Compute bounds. Demand and availability are percentages.
const (
	computeBaseDemand = 85.0
	computeJitter     = 10.0 // +/- around the base
	MinComputeDemand  = 70.0
	MaxComputeDemand  = 98.0
)

type tierRule struct {
	name         string
	demandOffset float64 // subtracted from the fleet-wide demand draw
	availFloor   float64 // availability never drops below this
	basePrice    float64
	slope        float64 // price gained per 100% demand
	jitter       float64 // total width of the uniform price noise
}

var tierRules = []tierRule{
	{models.TierH200, 0, 5, 3.5, 2.0, 0.5},
	{models.TierH100, 5, 10, 2.5, 1.5, 0.3},
	{models.TierA100, 10, 20, 1.8, 1.0, 0.2},
	{models.TierV100, 15, 30, 0.8, 0.5, 0.1},
}

var defaultCompute = map[string]models.ComputeTier{
	models.TierH200: {Price: 4.2, Demand: 98, Availability: 15},
	models.TierH100: {Price: 3.1, Demand: 95, Availability: 25},
	models.TierA100: {Price: 2.2, Demand: 87, Availability: 40},
	models.TierV100: {Price: 1.1, Demand: 72, Availability: 60},
}

// Feeds handed to the sentiment call each tick.
var (
	DefaultNews = []string{
		"ai compute demand surge continues",
		"gpu shortage affects major tech companies",
		"new ai models require more compute power",
	}
	DefaultSocial = []string{
		"ai compute prices going up",
		"gpu market tight supply",
		"ai boom driving compute demand",
	}
)

// History is the market state carried between ticks outside the snapshot.
type History struct {
	Prices          []models.PricePoint
	LastPrediction  float64
	DemandForecasts map[string]float64
	Limit           int
}

func NewHistory(seed models.PricePoint, limit int) *History {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	return &History{
		Prices:          []models.PricePoint{seed},
		LastPrediction:  seed.Price,
		DemandForecasts: map[string]float64{},
		Limit:           limit,
	}
}

func (h *History) append(p models.PricePoint) {
	h.Prices = append(h.Prices, p)
	if over := len(h.Prices) - h.Limit; over > 0 {
		h.Prices = append([]models.PricePoint(nil), h.Prices[over:]...)
	}
}

type Model struct {
	provider forecast.Provider
	timeout  time.Duration
	News     []string
	Social   []string
}

// New builds a model. A nil provider is allowed; every forecast then falls
// back to its last-known value.
func New(provider forecast.Provider, timeout time.Duration) *Model {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Model{
		provider: provider,
		timeout:  timeout,
		News:     DefaultNews,
		Social:   DefaultSocial,
	}
}

// Initial returns the snapshot the fleet starts from.
func Initial(now time.Time, locations []models.Location, btcPrice float64) models.MarketSnapshot {
	if btcPrice <= 0 {
		btcPrice = DefaultBTCPrice
	}
	snap := models.MarketSnapshot{
		Timestamp: now,
		Bitcoin: models.BitcoinMarket{
			Price:       clamp(btcPrice, MinBTCPrice, MaxBTCPrice),
			Difficulty:  DefaultDiff,
			BlockReward: DefaultReward,
			DailyReward: DefaultReward * BlocksPerDay,
			NextHalving: DefaultNextHalving,
		},
		Energy:    append([]models.Location(nil), locations...),
		Compute:   make(map[string]models.ComputeTier, len(defaultCompute)),
		Sentiment: models.SentimentNeutral,
	}
	for k, v := range defaultCompute {
		snap.Compute[k] = v
	}
	setHalving(&snap.Bitcoin, now)
	return snap
}

// Refresh builds the next snapshot from prev. prev is not modified.
func (m *Model) Refresh(ctx context.Context, now time.Time, prev models.MarketSnapshot, hist *History, rng *rand.Rand) models.MarketSnapshot {
	next := prev.Clone()
	next.Timestamp = now

	m.refreshEnergy(ctx, now, &next, hist, rng)
	m.refreshBitcoin(ctx, now, &next, hist, rng)
	m.refreshCompute(ctx, &next, rng)
	return next
}

// IsPeakHour reports whether hour falls in 06-09 or 18-21, both ends inclusive.
func IsPeakHour(hour int) bool {
	return (hour >= 6 && hour <= 9) || (hour >= 18 && hour <= 21)
}

func (m *Model) refreshEnergy(ctx context.Context, now time.Time, snap *models.MarketSnapshot, hist *History, rng *rand.Rand) {
	peak := IsPeakHour(now.Hour())

	for i := range snap.Energy {
		loc := &snap.Energy[i]

		weather := forecast.Weather{TemperatureF: weatherBaseF + rng.Float64()*weatherSpanF}
		if m.provider != nil {
			demand, err := call(ctx, m.timeout, func(ctx context.Context) (float64, error) {
				return m.provider.ForecastDemand(ctx, loc.ID, loc.Demand, weather)
			})
			if err != nil {
				fmt.Printf("[MARKET] Demand forecast for %s failed, keeping %.0f%%: %v\n", loc.ID, loc.Demand, err)
			} else if validNumber(demand) {
				loc.Demand = demand
			}
		}
		if hist != nil {
			hist.DemandForecasts[loc.ID] = loc.Demand
		}

		loc.IsPeakHour = peak
		factor := offPeakFactorBase + rng.Float64()*offPeakFactorSpan
		if peak {
			factor = peakFactorBase + rng.Float64()*peakFactorSpan
		}
		loc.GridRate = clamp(loc.GridRate*factor, MinGridRate, MaxGridRate)
		loc.Supply = clamp(loc.Supply+(rng.Float64()-0.5)*2*supplyJitter, MinSupply, MaxSupply)
		loc.RenewableShare = clamp(loc.RenewableShare+(rng.Float64()-0.5)*2*renewableJitter, MinRenewableShare, MaxRenewableShare)
	}
}

func (m *Model) refreshBitcoin(ctx context.Context, now time.Time, snap *models.MarketSnapshot, hist *History, rng *rand.Rand) {
	btc := &snap.Bitcoin
	noise := (rng.Float64() - 0.5) * 2 * priceNoise

	var history []models.PricePoint
	if hist != nil {
		history = append(history, hist.Prices...)
	}

	if m.provider != nil {
		pred, err := call(ctx, m.timeout, func(ctx context.Context) (float64, error) {
			return m.provider.PredictPrice(ctx, history)
		})
		switch {
		case err != nil:
			fmt.Printf("[MARKET] Price prediction failed, reusing $%.0f: %v\n", btc.Price, err)
		case !validNumber(pred) || pred <= 0:
			fmt.Printf("[MARKET] Price prediction invalid (%v), reusing $%.0f\n", pred, btc.Price)
		default:
			if hist != nil {
				hist.LastPrediction = pred
			}
			btc.Price = clamp(pred*(1+noise), MinBTCPrice, MaxBTCPrice)
		}
	}

	btc.Change24h = (rng.Float64() - 0.5) * change24hSpan
	btc.Volume = volumeBase + rng.Float64()*volumeSpan
	if btc.BlockReward <= 0 {
		btc.BlockReward = DefaultReward
	}
	btc.DailyReward = btc.BlockReward * BlocksPerDay
	setHalving(btc, now)

	if hist != nil {
		hist.append(models.PricePoint{Timestamp: now, Price: btc.Price, Source: "simulation"})
	}
}

func (m *Model) refreshCompute(ctx context.Context, snap *models.MarketSnapshot, rng *rand.Rand) {
	if m.provider != nil {
		s, err := call(ctx, m.timeout, func(ctx context.Context) (models.Sentiment, error) {
			return m.provider.Sentiment(ctx, m.News, m.Social)
		})
		if err != nil {
			fmt.Printf("[MARKET] Sentiment failed, keeping %s: %v\n", snap.Sentiment, err)
		} else {
			snap.Sentiment = s
		}
	}
	if snap.Sentiment == "" {
		snap.Sentiment = models.SentimentNeutral
	}
	mult := SentimentMultiplier(snap.Sentiment)

	demand := clamp(computeBaseDemand+(rng.Float64()-0.5)*2*computeJitter, MinComputeDemand, MaxComputeDemand)
	ratio := demand / 100

	compute := make(map[string]models.ComputeTier, len(tierRules))
	for _, r := range tierRules {
		tierDemand := demand - r.demandOffset
		price := math.Round((r.basePrice+ratio*r.slope+(rng.Float64()-0.5)*r.jitter)*10) / 10
		compute[r.name] = models.ComputeTier{
			Price:        price * mult,
			Demand:       math.Round(tierDemand),
			Availability: math.Max(r.availFloor, 100-tierDemand),
		}
	}
	snap.Compute = compute
}

// SentimentMultiplier scales compute prices: positive 1.1, negative 0.9.
func SentimentMultiplier(s models.Sentiment) float64 {
	switch s {
	case models.SentimentPositive:
		return 1.1
	case models.SentimentNegative:
		return 0.9
	default:
		return 1.0
	}
}

func setHalving(btc *models.BitcoinMarket, now time.Time) {
	if btc.NextHalving.IsZero() {
		btc.NextHalving = DefaultNextHalving
	}
	days := math.Max(0, btc.NextHalving.Sub(now).Hours()/24)
	btc.HalvingCountdown = math.Floor(days)
	btc.BlocksUntilHalving = int64(days * BlocksPerDay)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
