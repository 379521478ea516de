package api

import (
	"net/http"

	"github.com/kjannette/fleetsim-backend/internal/models"
	"github.com/kjannette/fleetsim-backend/internal/simulation"
)

const defaultConfidence = 0.7

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, snap.Insights)
	}
}

type predictionsResponse struct {
	Tick         int64                         `json:"tick"`
	Bitcoin      bitcoinPrediction             `json:"bitcoin"`
	Energy       map[string]energyPrediction   `json:"energy"`
	AICompute    map[string]models.ComputeTier `json:"aiCompute"`
	Optimization optimizationSummary           `json:"optimization"`
}

type bitcoinPrediction struct {
	Current    float64 `json:"current"`
	NextTick   float64 `json:"nextTick"`
	Trend      string  `json:"trend"`
	Confidence float64 `json:"confidence"`
}

type energyPrediction struct {
	Demand               float64 `json:"demand"`
	CurrentRate          float64 `json:"currentRate"`
	ArbitrageOpportunity float64 `json:"arbitrageOpportunity"`
	IsPeakHour           bool    `json:"isPeakHour"`
}

type optimizationSummary struct {
	Active        int `json:"active"`
	Standby       int `json:"standby"`
	Profitable    int `json:"profitable"`
	Monitoring    int `json:"monitoring"`
	StatusChanges int `json:"statusChanges"`
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w); snap != nil {
		writeJSON(w, http.StatusOK, buildPredictions(snap))
	}
}

// buildPredictions derives the outlook from the settled snapshot alone, so
// repeated reads of one tick agree with each other.
func buildPredictions(snap *simulation.Snapshot) predictionsResponse {
	price := snap.Market.Bitcoin.Price
	next := snap.Insights.BitcoinPrediction
	if next == 0 {
		next = price
	}

	trend := "neutral"
	switch {
	case next > price:
		trend = "bullish"
	case next < price:
		trend = "bearish"
	}

	resp := predictionsResponse{
		Tick:      snap.Tick,
		Bitcoin:   bitcoinPrediction{Current: price, NextTick: next, Trend: trend, Confidence: meanConfidence(snap)},
		Energy:    make(map[string]energyPrediction, len(snap.Market.Energy)),
		AICompute: snap.Market.Compute,
	}

	contracts := snap.Bundle().Contracts
	for _, loc := range snap.Market.Energy {
		ep := energyPrediction{Demand: loc.Demand, CurrentRate: loc.GridRate, IsPeakHour: loc.IsPeakHour}
		if f, ok := snap.Insights.EnergyDemandForecast[loc.ID]; ok {
			ep.Demand = f
		}
		if c, ok := contracts[loc.ID]; ok && loc.GridRate > c.Price {
			ep.ArbitrageOpportunity = loc.GridRate - c.Price
		}
		resp.Energy[loc.ID] = ep
	}

	for _, d := range snap.Devices {
		switch d.Status {
		case models.StatusActive:
			resp.Optimization.Active++
		case models.StatusStandby:
			resp.Optimization.Standby++
		}
		switch d.Label {
		case models.LabelProfitable:
			resp.Optimization.Profitable++
		case models.LabelMonitoring:
			resp.Optimization.Monitoring++
		}
	}
	for _, dec := range snap.Decisions {
		if dec.Changed() {
			resp.Optimization.StatusChanges++
		}
	}
	return resp
}

func meanConfidence(snap *simulation.Snapshot) float64 {
	var sum float64
	var n int
	for _, d := range snap.Devices {
		if d.Advisory != nil {
			sum += d.Advisory.Confidence
			n++
		}
	}
	if n == 0 {
		return defaultConfidence
	}
	return sum / float64(n)
}
