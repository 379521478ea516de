package forecast

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

// Price band the predictor never leaves.
const (
	MinBTCPrice = 75000.0
	MaxBTCPrice = 120000.0
)

// minRegressionPoints is the history length below which the predictor
// echoes the latest price instead of fitting a trend.
const minRegressionPoints = 10

var (
	positiveWords = []string{"surge", "up", "high", "profit", "growth", "bullish", "strong", "increase"}
	negativeWords = []string{"crash", "down", "low", "loss", "decline", "bearish", "weak", "decrease"}
	neutralWords  = []string{"stable", "steady", "maintain", "hold", "flat"}
)

// Local is the in-process Provider: a least-squares price trend, a
// load-shape demand model and keyword sentiment.
type Local struct {
	Now func() time.Time
}

func NewLocal() *Local {
	return &Local{Now: time.Now}
}

// PredictPrice fits price = a + b*i over the history index and returns the
// value at the next index, clamped to the price band.
func (l *Local) PredictPrice(ctx context.Context, history []models.PricePoint) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := len(history)
	if n == 0 {
		return 0, ErrNoHistory
	}
	if n < minRegressionPoints {
		return history[n-1].Price, nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, p := range history {
		x := float64(i)
		sumX += x
		sumY += p.Price
		sumXY += x * p.Price
		sumXX += x * x
	}
	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if den == 0 {
		return history[n-1].Price, nil
	}
	slope := (fn*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / fn

	return clamp(intercept+slope*fn, MinBTCPrice, MaxBTCPrice), nil
}

// ForecastDemand nudges the last observed demand toward an hourly load
// shape and a temperature response. Output is a whole percentage in
// [50, 100].
func (l *Local) ForecastDemand(ctx context.Context, locationID string, historicalDemand float64, w Weather) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	target := historicalDemand + hourlyLoad(now.Hour())
	if w.TemperatureF > 0 {
		target += (w.TemperatureF - 70) * 0.3
	}
	demand := 0.8*historicalDemand + 0.2*target
	return math.Round(clamp(demand, 50, 100)), nil
}

func hourlyLoad(hour int) float64 {
	switch {
	case (hour >= 6 && hour <= 9) || (hour >= 18 && hour <= 21):
		return 6
	case hour >= 0 && hour < 5:
		return -6
	default:
		return 0
	}
}

// Sentiment counts keyword hits across all texts. A side wins only with a
// strict majority over both others; anything else is neutral.
func (l *Local) Sentiment(ctx context.Context, news, social []string) (models.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentNeutral, err
	}

	counts := map[string]int{}
	for _, text := range append(append([]string(nil), news...), social...) {
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			counts[strings.Trim(tok, ".,!?;:\"'")]++
		}
	}
	score := func(words []string) int {
		n := 0
		for _, w := range words {
			n += counts[w]
		}
		return n
	}
	pos, neg, neu := score(positiveWords), score(negativeWords), score(neutralWords)

	switch {
	case pos > neg && pos > neu:
		return models.SentimentPositive, nil
	case neg > pos && neg > neu:
		return models.SentimentNegative, nil
	default:
		return models.SentimentNeutral, nil
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
