package classify

import "trading-corev1/internal/model"

// Pattern tags produced by the template library.
const (
	PatternHigherHighs      = "higher_highs"
	PatternHigherLows       = "higher_lows"
	PatternLowerHighs       = "lower_highs"
	PatternLowerLows        = "lower_lows"
	PatternDoubleTop        = "double_top"
	PatternDoubleBottom     = "double_bottom"
	PatternHeadAndShoulders = "head_and_shoulders"
)

// swingLookaround is the neighborhood a bar must dominate to count as a
// swing point inside the pattern window. Smaller than the level tracker's
// window: patterns work on local structure.
const swingLookaround = 2

// minPatternBars is the fewest closed bars the matcher will consider.
const minPatternBars = 8

type swing struct {
	idx   int
	price float64
}

// DetectPatterns matches the last lookback closed bars against the pattern
// template library. tol is the relative band within which two swing prices
// count as equal. Tag order is fixed so output is deterministic.
func DetectPatterns(bars []model.Bar, lookback int, tol float64) []string {
	if lookback > 0 && len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	if len(bars) < minPatternBars {
		return nil
	}

	highs, lows := swingPoints(bars, swingLookaround)

	var tags []string
	if rising(highs, tol) {
		tags = append(tags, PatternHigherHighs)
	}
	if rising(lows, tol) {
		tags = append(tags, PatternHigherLows)
	}
	if falling(highs, tol) {
		tags = append(tags, PatternLowerHighs)
	}
	if falling(lows, tol) {
		tags = append(tags, PatternLowerLows)
	}
	if doubleExtreme(bars, highs, tol, true) {
		tags = append(tags, PatternDoubleTop)
	}
	if doubleExtreme(bars, lows, tol, false) {
		tags = append(tags, PatternDoubleBottom)
	}
	if headAndShoulders(highs, tol) {
		tags = append(tags, PatternHeadAndShoulders)
	}
	return tags
}

// swingPoints finds local extrema: bars that are the strict extreme within
// ±w neighbors.
func swingPoints(bars []model.Bar, w int) (highs, lows []swing) {
	for i := w; i < len(bars)-w; i++ {
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, swing{idx: i, price: bars[i].High})
		}
		if isLow {
			lows = append(lows, swing{idx: i, price: bars[i].Low})
		}
	}
	return highs, lows
}

// rising reports whether the last swings step up by more than tol each.
func rising(sw []swing, tol float64) bool {
	if len(sw) < 2 {
		return false
	}
	last := sw[len(sw)-2:]
	return last[1].price > last[0].price*(1+tol)
}

// falling reports whether the last swings step down by more than tol each.
func falling(sw []swing, tol float64) bool {
	if len(sw) < 2 {
		return false
	}
	last := sw[len(sw)-2:]
	return last[1].price < last[0].price*(1-tol)
}

// doubleExtreme detects a double top (top=true) or double bottom: the last
// two swings at equal price within tol, separated by a pullback of more
// than tol in between.
func doubleExtreme(bars []model.Bar, sw []swing, tol float64, top bool) bool {
	if len(sw) < 2 {
		return false
	}
	a, b := sw[len(sw)-2], sw[len(sw)-1]
	if !within(a.price, b.price, tol) {
		return false
	}

	// pullback between the two extremes must exceed tol
	ref := a.price
	if b.price < ref {
		ref = b.price
	}
	for i := a.idx + 1; i < b.idx; i++ {
		if top && bars[i].Low < ref*(1-tol) {
			return true
		}
		if !top && bars[i].High > ref*(1+tol) {
			return true
		}
	}
	return false
}

// headAndShoulders matches three swing highs where the middle peak exceeds
// two roughly equal shoulders.
func headAndShoulders(highs []swing, tol float64) bool {
	if len(highs) < 3 {
		return false
	}
	left, head, right := highs[len(highs)-3], highs[len(highs)-2], highs[len(highs)-1]
	if !within(left.price, right.price, tol) {
		return false
	}
	return head.price > left.price*(1+tol) && head.price > right.price*(1+tol)
}

func within(a, b, tol float64) bool {
	return b >= a*(1-tol) && b <= a*(1+tol)
}
