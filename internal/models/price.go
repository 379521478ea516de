package models

import "time"

// PricePoint is one bitcoin price observation. In memory it feeds the
// forecast history; in the archive it is a row of price_history.
type PricePoint struct {
	ID           int64     `json:"id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	ReportingDay string    `json:"reportingDay,omitempty"`
	Source       string    `json:"source,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
