package model

import "time"

// Direction is the classified trend direction for one (instrument, timeframe).
type Direction string

const (
	DirUp       Direction = "up"
	DirDown     Direction = "down"
	DirSideways Direction = "sideways"
)

// Opposite returns the opposing trend direction. Sideways has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	default:
		return DirSideways
	}
}

// TrendState is the classifier output at one bar close: direction, a
// volatility-normalized strength in [0,1], and any recognized pattern tags.
type TrendState struct {
	Instrument string    `json:"instrument"`
	TF         int       `json:"tf"`
	TS         time.Time `json:"ts"`
	Direction  Direction `json:"direction"`
	Strength   float64   `json:"strength"` // 0..1, comparable across instruments
	Patterns   []string  `json:"patterns,omitempty"`
}
