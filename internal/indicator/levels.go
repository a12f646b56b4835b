package indicator

import "trading-corev1/internal/model"

// LevelConfig parameterizes support/resistance detection.
type LevelConfig struct {
	// Window is the number of neighboring bars on each side a swing point
	// must dominate.
	Window int

	// Tolerance is the fraction of the level price that a close must trade
	// through before the level is retired.
	Tolerance float64

	// MaxActive bounds the number of tracked levels; the oldest is dropped
	// first. Default 16.
	MaxActive int
}

// LevelTracker maintains active support/resistance levels from swing extrema
// over a sliding window of closed bars. A bar is a swing high/low when it is
// the strict extreme within ±Window neighbors; the swing is confirmed only
// once Window newer bars exist, so detection lags by Window bars.
type LevelTracker struct {
	cfg    LevelConfig
	active []model.Level
}

// NewLevelTracker creates a tracker with the given config.
func NewLevelTracker(cfg LevelConfig) *LevelTracker {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = 16
	}
	return &LevelTracker{cfg: cfg}
}

// Observe processes the bar window after a new closed bar was appended:
// retires levels the latest close traded through, then scans for the newly
// confirmed swing point.
func (t *LevelTracker) Observe(window []model.Bar) {
	if len(window) == 0 || t.cfg.Window <= 0 {
		return
	}
	t.retire(window[len(window)-1].Close)

	// candidate bar now has Window neighbors on each side
	w := t.cfg.Window
	i := len(window) - 1 - w
	if i < w {
		return
	}
	cand := window[i]

	isHigh, isLow := true, true
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if window[j].High >= cand.High {
			isHigh = false
		}
		if window[j].Low <= cand.Low {
			isLow = false
		}
	}

	if isHigh {
		t.add(model.Level{Kind: model.LevelResistance, Price: cand.High, TS: cand.TS})
	}
	if isLow {
		t.add(model.Level{Kind: model.LevelSupport, Price: cand.Low, TS: cand.TS})
	}
}

// Active returns a copy of the currently tracked levels.
func (t *LevelTracker) Active() []model.Level {
	if len(t.active) == 0 {
		return nil
	}
	out := make([]model.Level, len(t.active))
	copy(out, t.active)
	return out
}

// retire drops levels that price has traded through by more than tolerance.
func (t *LevelTracker) retire(close float64) {
	kept := t.active[:0]
	for _, lv := range t.active {
		broken := false
		switch lv.Kind {
		case model.LevelResistance:
			broken = close > lv.Price*(1+t.cfg.Tolerance)
		case model.LevelSupport:
			broken = close < lv.Price*(1-t.cfg.Tolerance)
		}
		if !broken {
			kept = append(kept, lv)
		}
	}
	t.active = kept
}

// add records a new level unless an equivalent one is already tracked.
func (t *LevelTracker) add(lv model.Level) {
	for _, existing := range t.active {
		if existing.Kind == lv.Kind &&
			existing.Price >= lv.Price*(1-t.cfg.Tolerance) &&
			existing.Price <= lv.Price*(1+t.cfg.Tolerance) {
			return
		}
	}
	t.active = append(t.active, lv)
	if len(t.active) > t.cfg.MaxActive {
		t.active = t.active[1:]
	}
}
