package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/httputil"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

// NewCoinGeckoClient talks to baseURL, or the public API when empty.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (c *CoinGeckoClient) GetBTCPrice(ctx context.Context) (float64, error) {
	url := c.baseURL + "/simple/price?ids=bitcoin&vs_currencies=usd"
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data struct {
		Bitcoin struct {
			USD float64 `json:"usd"`
		} `json:"bitcoin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}

	if data.Bitcoin.USD <= 0 {
		return 0, fmt.Errorf("invalid price: %f", data.Bitcoin.USD)
	}

	return data.Bitcoin.USD, nil
}

// SeedPrice returns the live spot price clamped into [lo, hi], or fallback
// when the fetch fails.
func SeedPrice(ctx context.Context, c *CoinGeckoClient, fallback, lo, hi float64) float64 {
	price, err := c.GetBTCPrice(ctx)
	if err != nil {
		fmt.Printf("[EXT] CoinGecko seed unavailable, using $%.2f: %v\n", fallback, err)
		return fallback
	}
	if price < lo {
		price = lo
	}
	if price > hi {
		price = hi
	}
	fmt.Printf("[EXT] Seeded BTC price from CoinGecko: $%.2f\n", price)
	return price
}
