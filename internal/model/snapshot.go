package model

import "time"

// LevelKind distinguishes support from resistance levels.
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
)

// Level is a support or resistance price level detected from swing extrema.
// A level persists until price trades through it by more than the configured
// tolerance, at which point it is retired.
type Level struct {
	Kind  LevelKind `json:"kind"`
	Price float64   `json:"price"`
	TS    time.Time `json:"ts"` // bar that formed the level
}

// IndicatorSnapshot carries all indicator values computed at one bar close
// for one (instrument, timeframe). An indicator that has not satisfied its
// warm-up window is simply absent from Values.
type IndicatorSnapshot struct {
	Instrument string             `json:"instrument"`
	TF         int                `json:"tf"`
	TS         time.Time          `json:"ts"` // closed-bar bucket start
	Values     map[string]float64 `json:"values"`
	Levels     []Level            `json:"levels,omitempty"`
}

// Value returns the named indicator value. ok is false when the indicator
// has insufficient history at this bar.
func (s *IndicatorSnapshot) Value(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}
