package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Bar represents an OHLCV record for one (instrument, timeframe) bucket.
// TF is the timeframe duration in seconds (e.g. 60 = 1 minute).
// A bar is owned and mutated by the aggregator until Closed is set, after
// which it is immutable and published downstream.
type Bar struct {
	Instrument string    `json:"instrument"`
	TF         int       `json:"tf"`  // timeframe in seconds
	TS         time.Time `json:"ts"`  // bucket start (UTC, TF-aligned)
	End        time.Time `json:"end"` // bucket end (TS + TF)
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	Ticks      int       `json:"ticks"`     // ticks merged into this bar; 0 for synthesized bars
	Closed     bool      `json:"closed"`    // false while the bucket is still open
	Synthetic  bool      `json:"synthetic"` // true for gap-fill bars carrying forward the prior close
}

// StreamKey returns the stream key used by the Redis publisher:
// "bar:{tf}s:{instrument}".
func (b *Bar) StreamKey() string {
	return "bar:" + TFLabel(b.TF) + ":" + b.Instrument
}

// TFLabel renders a timeframe for stream keys and metric labels, e.g. "60s".
func TFLabel(tf int) string {
	return strconv.Itoa(tf) + "s"
}

// JSON returns the JSON-encoded bar (errors ignored for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
