package model

import (
	"encoding/json"
	"time"
)

// Action is a discrete trading action carried by a Signal.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Signal is a discrete trading signal emitted by the signal generator.
// Signals are immutable after creation and consumed exactly once by the
// risk sizer before being handed to the external executor.
type Signal struct {
	Seq        uint64    `json:"seq"` // monotonically increasing per generator
	Instrument string    `json:"instrument"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"` // 0..1, weighted TF strength average
	Price      float64   `json:"price"`      // entry reference: last base-TF close
	Timeframes []int     `json:"timeframes"` // timeframes supporting the signal
	TS         time.Time `json:"ts"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	data, _ := json.Marshal(s)
	return data
}
