package models

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Compute tiers priced per GPU-hour.
const (
	TierH200 = "h200"
	TierH100 = "h100"
	TierA100 = "a100"
	TierV100 = "v100"
)

type BitcoinMarket struct {
	Price              float64   `json:"price"`
	Change24h          float64   `json:"change24h"`
	Volume             float64   `json:"volume"`
	Difficulty         float64   `json:"difficulty"`
	BlockReward        float64   `json:"blockReward"`
	DailyReward        float64   `json:"dailyReward"`
	NextHalving        time.Time `json:"nextHalving"`
	BlocksUntilHalving int64     `json:"blocksUntilHalving"`
	HalvingCountdown   float64   `json:"halvingCountdown"`
}

type ComputeTier struct {
	Price        float64 `json:"price"`
	Demand       float64 `json:"demand"`
	Availability float64 `json:"availability"`
}

// MarketSnapshot is replaced as a whole every tick.
type MarketSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Bitcoin   BitcoinMarket          `json:"bitcoin"`
	Energy    []Location             `json:"energy"`
	Compute   map[string]ComputeTier `json:"compute"`
	Sentiment Sentiment              `json:"sentiment"`
}

// Location returns the market entry for id.
func (m *MarketSnapshot) Location(id string) (Location, bool) {
	for _, l := range m.Energy {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// Clone copies the slices and map so the result shares nothing with m.
func (m *MarketSnapshot) Clone() MarketSnapshot {
	out := *m
	out.Energy = append([]Location(nil), m.Energy...)
	out.Compute = make(map[string]ComputeTier, len(m.Compute))
	for k, v := range m.Compute {
		out.Compute[k] = v
	}
	return out
}
