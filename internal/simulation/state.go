package simulation

import (
	"math/rand"
	"time"

	"github.com/kjannette/fleetsim-backend/internal/fleet"
	"github.com/kjannette/fleetsim-backend/internal/market"
	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/optimizer"
)

// State is everything a tick reads and writes. It is owned by the Engine
// and never handed out; readers get a Snapshot.
type State struct {
	Tick       int64
	Market     models.MarketSnapshot
	History    *market.History
	Fleet      *fleet.Registry
	Portfolio  models.Portfolio
	Operations []models.Operation
	Decisions  []optimizer.Decision
	Rand       *rand.Rand
}

// Snapshot is an immutable, fully-settled view of one tick.
type Snapshot struct {
	Tick        int64                   `json:"tick"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Market      models.MarketSnapshot   `json:"market"`
	Devices     []models.Device         `json:"devices"`
	Portfolio   models.Portfolio        `json:"portfolio"`
	Operations  []models.Operation      `json:"operations"`
	Contracts   []models.EnergyContract `json:"contracts"`
	Decisions   []optimizer.Decision    `json:"-"`
	Insights    Insights                `json:"insights"`
}

// Bundle is what subscribers receive after every tick.
type Bundle struct {
	Tick       int64                            `json:"tick"`
	Portfolio  models.Portfolio                 `json:"portfolio"`
	Devices    []models.Device                  `json:"devices"`
	Market     models.MarketSnapshot            `json:"marketData"`
	Operations []models.Operation               `json:"operations"`
	Contracts  map[string]models.EnergyContract `json:"energyContracts"`
}

func (s *Snapshot) Bundle() Bundle {
	contracts := make(map[string]models.EnergyContract, len(s.Contracts))
	for _, c := range s.Contracts {
		contracts[c.Location] = c
	}
	return Bundle{
		Tick:       s.Tick,
		Portfolio:  s.Portfolio,
		Devices:    s.Devices,
		Market:     s.Market,
		Operations: s.Operations,
		Contracts:  contracts,
	}
}

// Device returns the device with id from the snapshot.
func (s *Snapshot) Device(id string) (models.Device, bool) {
	for _, d := range s.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

type Insights struct {
	BitcoinPrediction     float64            `json:"bitcoinPrediction"`
	EnergyDemandForecast  map[string]float64 `json:"energyDemandForecast"`
	MarketSentiment       models.Sentiment   `json:"marketSentiment"`
	DeviceOptimization    []DeviceInsight    `json:"deviceOptimization"`
	PortfolioOptimization PortfolioInsight   `json:"portfolioOptimization"`
}

type DeviceInsight struct {
	ID             string  `json:"id"`
	Recommendation string  `json:"recommendation"`
	ExpectedProfit float64 `json:"expectedProfit"`
	Confidence     float64 `json:"confidence"`
}

type PortfolioInsight struct {
	RecommendedStrategy string  `json:"recommendedStrategy"`
	RiskLevel           string  `json:"riskLevel"`
	ExpectedReturn      float64 `json:"expectedReturn"`
}

// AggressiveProfitThreshold is the daily profit above which the strategy
// insight turns aggressive.
const AggressiveProfitThreshold = 1e6

func buildInsights(st *State, devices []models.Device) Insights {
	ins := Insights{
		BitcoinPrediction:    st.Market.Bitcoin.Price,
		EnergyDemandForecast: map[string]float64{},
		MarketSentiment:      st.Market.Sentiment,
		PortfolioOptimization: PortfolioInsight{
			RecommendedStrategy: "conservative",
			RiskLevel:           "medium",
			ExpectedReturn:      st.Portfolio.DailyProfit * 30 * 12,
		},
	}
	if st.Portfolio.DailyProfit > AggressiveProfitThreshold {
		ins.PortfolioOptimization.RecommendedStrategy = "aggressive"
	}
	if st.History != nil {
		ins.BitcoinPrediction = st.History.LastPrediction
		for k, v := range st.History.DemandForecasts {
			ins.EnergyDemandForecast[k] = v
		}
	}
	for _, d := range devices {
		di := DeviceInsight{ID: d.ID, Recommendation: optimizer.RecMaintain, ExpectedProfit: d.Profit}
		if d.Advisory != nil {
			di.Recommendation = d.Advisory.RecommendedStatus
			di.ExpectedProfit = d.Advisory.ExpectedProfit
			di.Confidence = d.Advisory.Confidence
		}
		ins.DeviceOptimization = append(ins.DeviceOptimization, di)
	}
	return ins
}
