// Package pipeline runs the per-instrument analysis loop.
//
// Each instrument gets one Pipeline: a bounded tick ring fed by the feed
// adapter and a single goroutine that drains it through ingest, bar
// aggregation, indicator computation, classification, signal generation,
// and risk sizing. One goroutine owns all per-instrument state, so none of
// the stages need locks. A panic in any stage tears down that instrument's
// pipeline only.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-corev1/internal/agg"
	"trading-corev1/internal/classify"
	"trading-corev1/internal/indicator"
	"trading-corev1/internal/ingest"
	"trading-corev1/internal/metrics"
	"trading-corev1/internal/model"
	"trading-corev1/internal/ringbuf"
	"trading-corev1/internal/risk"
	"trading-corev1/internal/signalgen"
)

// Full-ring policies for Push.
const (
	RingDropOldest = "drop_oldest" // evict the oldest queued tick
	RingDropNewest = "drop_newest" // refuse the incoming tick
)

// Config holds everything a pipeline needs. Timeframes must be ascending;
// the first entry is the base timeframe driving signal evaluation.
type Config struct {
	Timeframes []int

	RingSize     int           // tick ring capacity (rounded up to pow2)
	RingPolicy   string        // RingDropOldest (default) or RingDropNewest
	PollInterval time.Duration // consumer sleep when the ring is empty

	Ingest    ingest.Config
	Indicator indicator.Config
	Classify  classify.Config
	Signal    signalgen.Config
	Risk      risk.Config

	// Account inputs for sizing.
	Equity       float64
	RiskFraction float64
}

// Pipeline is the per-instrument analysis chain. Push is the producer side
// (one feed goroutine); everything else runs on the pipeline goroutine.
type Pipeline struct {
	instrument string
	cfg        Config
	log        zerolog.Logger
	met        *metrics.Metrics

	ring     *ringbuf.Ring
	ingestor *ingest.Ingestor
	agg      *agg.Aggregator
	engines  map[int]*indicator.Engine
	gen      *signalgen.Generator
	sizer    *risk.Sizer

	decisions chan<- model.RiskDecision
	bars      chan<- model.Bar

	// query-side state, guarded because readers are external goroutines
	mu         sync.RWMutex
	trends     map[int]model.TrendState
	lastSignal *model.Signal

	lastGood model.Bar // last bar that completed the full stage chain

	cancel context.CancelFunc
	done   chan struct{}
}

func newPipeline(instrument string, cfg Config, decisions chan<- model.RiskDecision, bars chan<- model.Bar, log zerolog.Logger, met *metrics.Metrics) *Pipeline {
	p := &Pipeline{
		instrument: instrument,
		cfg:        cfg,
		log:        log.With().Str("component", "pipeline").Str("instrument", instrument).Logger(),
		met:        met,
		ring:       ringbuf.New(cfg.RingSize),
		engines:    make(map[int]*indicator.Engine, len(cfg.Timeframes)),
		gen:        signalgen.New(instrument, cfg.Signal),
		sizer:      risk.NewSizer(cfg.Risk),
		decisions:  decisions,
		bars:       bars,
		trends:     make(map[int]model.TrendState, len(cfg.Timeframes)),
		done:       make(chan struct{}),
	}

	for _, tf := range cfg.Timeframes {
		p.engines[tf] = indicator.NewEngine(instrument, tf, cfg.Indicator)
	}

	p.agg = agg.New(instrument, cfg.Timeframes, p.onBar)
	if met != nil {
		p.agg.OnSynthetic = func(tf int) {
			met.BarsSynthesized.WithLabelValues(model.TFLabel(tf)).Inc()
		}
		p.agg.OnLateTick = func() {
			met.TicksRejected.WithLabelValues("late").Inc()
		}
	}

	p.ingestor = ingest.New(cfg.Ingest, p.agg.OnTick)
	if met != nil {
		p.ingestor.OnReject = func(reason string) {
			met.TicksRejected.WithLabelValues(reason).Inc()
		}
	}

	return p
}

// Push hands a tick to the pipeline. Never blocks; when the ring is full the
// configured policy decides which side loses the tick. Drop-oldest keeps the
// pipeline working on fresh data and is the default.
func (p *Pipeline) Push(t model.Tick) {
	var dropped bool
	if p.cfg.RingPolicy == RingDropNewest {
		dropped = !p.ring.Push(t)
	} else {
		dropped = p.ring.PushEvict(t)
	}
	if dropped && p.met != nil {
		p.met.RingDrops.Inc()
	}
}

// run is the pipeline goroutine: drain the ring, sleep briefly when idle.
func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)
	defer p.recoverFault()

	poll := p.cfg.PollInterval
	if poll <= 0 {
		poll = time.Millisecond
	}

	for {
		t, ok := p.ring.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				p.ingestor.Flush()
				return
			case <-time.After(poll):
			}
			continue
		}
		p.onTick(t)
	}
}

func (p *Pipeline) onTick(t model.Tick) {
	if err := p.ingestor.Ingest(t); err != nil {
		p.log.Debug().Err(err).Time("tick_ts", t.TS).Msg("tick rejected")
		return
	}
	if p.met != nil {
		p.met.TicksTotal.Inc()
		p.met.ReorderDepth.Set(float64(p.ingestor.Buffered()))
		p.met.WatermarkLag.Set(time.Since(p.ingestor.Watermark()).Seconds())
	}
}

// onBar receives every closed bar from the aggregator and runs the analysis
// stages for its timeframe. Evaluation happens only at base-timeframe closes.
func (p *Pipeline) onBar(bar model.Bar) {
	if p.met != nil {
		p.met.BarsClosed.WithLabelValues(model.TFLabel(bar.TF)).Inc()
	}
	if p.bars != nil {
		select {
		case p.bars <- bar:
		default: // sinks are best effort, never stall analysis
		}
	}

	eng := p.engines[bar.TF]
	start := time.Now()
	snap := eng.OnBar(bar)
	if p.met != nil {
		p.met.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		p.met.SnapshotsTotal.Inc()
	}

	ts, err := classify.Classify(p.cfg.Classify, snap, eng.Window())
	if err != nil {
		// still warming up; classification starts once the MAs are ready
		p.lastGood = bar
		return
	}

	p.gen.Observe(ts)
	p.mu.Lock()
	p.trends[bar.TF] = ts
	p.mu.Unlock()
	p.lastGood = bar

	if bar.TF != p.cfg.Timeframes[0] {
		return
	}

	sig := p.gen.Evaluate(bar.End, bar.Close)
	if sig == nil {
		return
	}
	if p.met != nil {
		p.met.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
	}
	p.mu.Lock()
	p.lastSignal = sig
	p.mu.Unlock()

	p.decide(*sig, snap)
}

// decide sizes a signal and publishes the decision. Close signals skip the
// sizer entirely; the executor flattens whatever is open.
func (p *Pipeline) decide(sig model.Signal, snap model.IndicatorSnapshot) {
	var d model.RiskDecision
	if sig.Action == model.ActionClose {
		d = risk.CloseDecision(sig)
	} else {
		stopDistance, ok := snap.Value(p.cfg.Classify.ATRKey)
		if !ok {
			p.log.Warn().Uint64("seq", sig.Seq).Str("action", string(sig.Action)).
				Msg("no volatility estimate yet, signal not sized")
			return
		}
		var err error
		d, err = p.sizer.Size(sig, p.cfg.Equity, p.cfg.RiskFraction, stopDistance)
		if err != nil {
			p.log.Error().Err(err).Uint64("seq", sig.Seq).Msg("sizing failed")
			return
		}
	}

	if p.met != nil {
		p.met.DecisionsTotal.WithLabelValues(string(d.Verdict)).Inc()
	}

	select {
	case p.decisions <- d:
	default:
		if p.met != nil {
			p.met.DecisionDrops.Inc()
		}
		p.log.Warn().Uint64("seq", sig.Seq).Msg("decision channel full, dropped")
	}
}

// recoverFault contains a stage panic to this instrument.
func (p *Pipeline) recoverFault() {
	if r := recover(); r != nil {
		if p.met != nil {
			p.met.PipelineFaults.Inc()
		}
		p.log.Error().
			Interface("panic", r).
			Int("last_good_tf", p.lastGood.TF).
			Time("last_good_bar", p.lastGood.TS).
			Msg("pipeline fault, instrument stopped")
	}
}

// LatestTrend returns the most recent trend state for a timeframe.
func (p *Pipeline) LatestTrend(tf int) (model.TrendState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ts, ok := p.trends[tf]
	return ts, ok
}

// LatestSignal returns the most recent emitted signal.
func (p *Pipeline) LatestSignal() (model.Signal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastSignal == nil {
		return model.Signal{}, false
	}
	return *p.lastSignal, true
}

// Instrument returns the instrument this pipeline serves.
func (p *Pipeline) Instrument() string { return p.instrument }
