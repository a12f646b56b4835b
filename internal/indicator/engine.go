package indicator

import "trading-corev1/internal/model"

// Config specifies the indicator set computed per (instrument, timeframe).
type Config struct {
	FastPeriod int // fast SMA for trend classification
	SlowPeriod int // slow SMA for trend classification
	EMAPeriod  int
	SMMAPeriod int
	RSIPeriod  int
	ATRPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	// HistoryBars is the closed-bar window retained for pattern matching
	// and swing detection. Bounded; the hot path never scans full history.
	HistoryBars int

	Levels LevelConfig
}

// Engine computes all configured indicators for one (instrument, timeframe)
// and emits an IndicatorSnapshot per closed bar. Designed for
// single-goroutine usage by the owning pipeline, so no locks are needed.
type Engine struct {
	instrument string
	tf         int
	inds       []Indicator
	window     []model.Bar // recent closed bars, chronological, bounded
	maxWindow  int
	levels     *LevelTracker
}

// NewEngine creates an indicator engine for a single (instrument, timeframe).
func NewEngine(instrument string, tf int, cfg Config) *Engine {
	inds := []Indicator{
		NewSMA(cfg.FastPeriod),
		NewSMA(cfg.SlowPeriod),
		NewEMA(cfg.EMAPeriod),
		NewSMMA(cfg.SMMAPeriod),
		NewRSI(cfg.RSIPeriod),
		NewATR(cfg.ATRPeriod),
		NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
	}
	maxWindow := cfg.HistoryBars
	if need := 2*cfg.Levels.Window + 1; maxWindow < need {
		maxWindow = need
	}
	return &Engine{
		instrument: instrument,
		tf:         tf,
		inds:       inds,
		window:     make([]model.Bar, 0, maxWindow),
		maxWindow:  maxWindow,
		levels:     NewLevelTracker(cfg.Levels),
	}
}

// OnBar feeds one closed bar to every indicator and returns the resulting
// snapshot. Indicators still inside their warm-up window are absent from
// snapshot.Values.
func (e *Engine) OnBar(bar model.Bar) model.IndicatorSnapshot {
	if len(e.window) == e.maxWindow {
		copy(e.window, e.window[1:])
		e.window = e.window[:e.maxWindow-1]
	}
	e.window = append(e.window, bar)

	values := make(map[string]float64, len(e.inds))
	for _, ind := range e.inds {
		ind.Update(bar)
		if ind.Ready() {
			values[ind.Name()] = ind.Value()
		}
	}

	e.levels.Observe(e.window)

	return model.IndicatorSnapshot{
		Instrument: e.instrument,
		TF:         e.tf,
		TS:         bar.TS,
		Values:     values,
		Levels:     e.levels.Active(),
	}
}

// Window returns the retained closed-bar history, oldest first. The slice is
// reused across bars; callers must not retain it past the next OnBar.
func (e *Engine) Window() []model.Bar {
	return e.window
}

// itoa converts a non-negative int to a string without importing strconv in
// indicator name construction.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
