package api

import (
	"fmt"
	"net/http"
)

type priceJSON struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

func (s *Server) handlePricesByDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	prices, err := s.history.GetByDay(r.Context(), date)
	if err != nil {
		fmt.Printf("[API] Error fetching prices for %s: %v\n", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch prices")
		return
	}

	limit := parseLimit(r, maxQueryLimit)
	if len(prices) > limit {
		prices = prices[len(prices)-limit:]
	}

	out := make([]priceJSON, len(prices))
	for i, p := range prices {
		out[i] = priceJSON{T: p.Timestamp.UnixMilli(), P: p.Price}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAvailableDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.history.GetAvailableDays(r.Context())
	if err != nil {
		fmt.Printf("[API] Error fetching available days: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch available days")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.history.GetLatest(r.Context())
	if err != nil {
		fmt.Printf("[API] Error fetching latest price: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch latest price")
		return
	}
	if price == nil {
		writeError(w, http.StatusNotFound, "no price data available")
		return
	}
	writeJSON(w, http.StatusOK, priceJSON{T: price.Timestamp.UnixMilli(), P: price.Price})
}
