package indicator

import "trading-corev1/internal/model"

// EMA calculates Exponential Moving Average, seeded with the SMA of the
// first period closes. O(1) per update, no window storage needed.
type EMA struct {
	name       string
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		name:       "ema_" + itoa(period),
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return e.name }

func (e *EMA) Update(bar model.Bar) {
	price := bar.Close
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// add feeds a raw value instead of a bar close. Used by MACD to smooth its
// own line with the same seeding convention.
func (e *EMA) add(v float64) {
	e.Update(model.Bar{Close: v})
}
