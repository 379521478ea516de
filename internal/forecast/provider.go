// Package forecast supplies the price, demand and sentiment signals the
// market model consumes. Implementations are swappable; the market model
// only depends on Provider.
package forecast

import (
	"context"
	"errors"

	"github.com/kjannette/fleetsim-backend/internal/models"
)

var ErrNoHistory = errors.New("forecast: empty price history")

type Weather struct {
	TemperatureF float64 `json:"temperature"`
}

type Provider interface {
	PredictPrice(ctx context.Context, history []models.PricePoint) (float64, error)
	ForecastDemand(ctx context.Context, locationID string, historicalDemand float64, w Weather) (float64, error)
	Sentiment(ctx context.Context, news, social []string) (models.Sentiment, error)
}
