package indicator

import "trading-corev1/internal/model"

// MACD calculates the Moving Average Convergence Divergence histogram:
// (fastEMA − slowEMA) − signalEMA(fastEMA − slowEMA). The momentum
// oscillator of the engine; positive histogram = accelerating upside.
type MACD struct {
	name   string
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator (typically 12, 26, 9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		name:   "macd_" + itoa(fastPeriod) + "_" + itoa(slowPeriod) + "_" + itoa(signalPeriod),
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return m.name }

func (m *MACD) Update(bar model.Bar) {
	m.fast.Update(bar)
	m.slow.Update(bar)
	if m.fast.Ready() && m.slow.Ready() {
		m.signal.add(m.fast.Value() - m.slow.Value())
	}
}

func (m *MACD) Value() float64 {
	return (m.fast.Value() - m.slow.Value()) - m.signal.Value()
}

func (m *MACD) Ready() bool { return m.signal.Ready() }
