// Package classify turns indicator snapshots into trend states.
//
// Classification is a pure function of the latest snapshot and the retained
// closed-bar window: direction from the fast-vs-slow moving-average spread,
// strength from the spread magnitude normalized by recent volatility (so
// strength compares across instruments of different price scale), and
// pattern tags from matching the recent bars against a fixed library of
// geometric templates. Deterministic: no randomness, no hidden state.
package classify

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"trading-corev1/internal/model"
)

// Config holds the classifier parameters, immutable per pipeline.
type Config struct {
	FastKey string // snapshot key of the fast moving average
	SlowKey string // snapshot key of the slow moving average
	ATRKey  string // snapshot key of the volatility normalizer

	// SidewaysBand: |spread| below this multiple of ATR classifies sideways.
	SidewaysBand float64

	// StrengthScale: strength saturates at spread == StrengthScale × ATR.
	StrengthScale float64

	// PatternLookback is the number of recent closed bars matched against
	// the pattern library.
	PatternLookback int

	// PatternTolerance is the relative band within which two swing prices
	// count as equal.
	PatternTolerance float64
}

// Classify computes the TrendState for one (instrument, timeframe) at a bar
// close. Returns ErrInsufficientHistory until the moving averages and a
// volatility normalizer are warmed up.
func Classify(cfg Config, snap model.IndicatorSnapshot, bars []model.Bar) (model.TrendState, error) {
	fast, okFast := snap.Value(cfg.FastKey)
	slow, okSlow := snap.Value(cfg.SlowKey)
	if !okFast || !okSlow {
		return model.TrendState{}, fmt.Errorf("%s/%s not warmed up: %w",
			cfg.FastKey, cfg.SlowKey, model.ErrInsufficientHistory)
	}

	vol, err := normalizer(cfg, snap, bars)
	if err != nil {
		return model.TrendState{}, err
	}

	spread := fast - slow
	dir := model.DirSideways
	strength := 0.0
	if vol > 0 {
		if math.Abs(spread) >= cfg.SidewaysBand*vol {
			if spread > 0 {
				dir = model.DirUp
			} else {
				dir = model.DirDown
			}
		}
		strength = math.Abs(spread) / (cfg.StrengthScale * vol)
		if strength > 1 {
			strength = 1
		}
	}

	return model.TrendState{
		Instrument: snap.Instrument,
		TF:         snap.TF,
		TS:         snap.TS,
		Direction:  dir,
		Strength:   strength,
		Patterns:   DetectPatterns(bars, cfg.PatternLookback, cfg.PatternTolerance),
	}, nil
}

// normalizer picks the volatility scale: ATR when ready, otherwise the
// standard deviation of log returns over the bar window converted back to
// price units.
func normalizer(cfg Config, snap model.IndicatorSnapshot, bars []model.Bar) (float64, error) {
	if atr, ok := snap.Value(cfg.ATRKey); ok {
		return atr, nil
	}

	if len(bars) < 3 {
		return 0, fmt.Errorf("%s not warmed up and only %d bars retained: %w",
			cfg.ATRKey, len(bars), model.ErrInsufficientHistory)
	}
	rets := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close > 0 && bars[i].Close > 0 {
			rets = append(rets, math.Log(bars[i].Close/bars[i-1].Close))
		}
	}
	sigma, err := stats.StandardDeviation(stats.Float64Data(rets))
	if err != nil {
		return 0, fmt.Errorf("volatility fallback: %w", model.ErrInsufficientHistory)
	}
	return sigma * bars[len(bars)-1].Close, nil
}
