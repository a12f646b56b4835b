package model

import "time"

// Tick represents a single normalized market data event from a feed adapter.
// Prices are float64: the pipeline spans instruments of arbitrary price
// scale and all downstream math (spreads, ATR normalization, sizing) is float.
type Tick struct {
	Instrument string    `json:"instrument"`
	TS         time.Time `json:"ts"` // event time, UTC
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Bid        float64   `json:"bid,omitempty"`
	Ask        float64   `json:"ask,omitempty"`
}
