package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"trading-corev1/internal/metrics"
	"trading-corev1/internal/model"
)

// Manager owns all instrument pipelines and the shared decision channel.
// Feed adapters push ticks through it; sinks consume Decisions().
type Manager struct {
	cfg Config
	log zerolog.Logger
	met *metrics.Metrics

	mu        sync.RWMutex
	pipes     map[string]*Pipeline
	decisions chan model.RiskDecision
	bars      chan model.Bar
	closed    bool
}

// NewManager creates an empty pipeline arena. decisionBuf sizes the shared
// decision channel consumed by the fan-out.
func NewManager(cfg Config, decisionBuf int, log zerolog.Logger, met *metrics.Metrics) *Manager {
	if decisionBuf <= 0 {
		decisionBuf = 64
	}
	return &Manager{
		cfg:       cfg,
		log:       log,
		met:       met,
		pipes:     make(map[string]*Pipeline),
		decisions: make(chan model.RiskDecision, decisionBuf),
		bars:      make(chan model.Bar, 4*decisionBuf),
	}
}

// Decisions is the merged decision stream of all pipelines. Closed by Close.
func (m *Manager) Decisions() <-chan model.RiskDecision {
	return m.decisions
}

// Bars is the merged closed-bar stream of all pipelines, for the journal and
// stream publisher. Best effort; bars are dropped when no sink keeps up.
func (m *Manager) Bars() <-chan model.Bar {
	return m.bars
}

// Start creates and runs a pipeline for the instrument. Idempotent.
func (m *Manager) Start(instrument string) *Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pipes[instrument]; ok {
		return p
	}
	if m.closed {
		return nil
	}

	p := newPipeline(instrument, m.cfg, m.decisions, m.bars, m.log, m.met)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	m.pipes[instrument] = p

	go func() {
		p.run(ctx)
		if m.met != nil {
			m.met.PipelinesLive.Dec()
		}
	}()
	if m.met != nil {
		m.met.PipelinesLive.Inc()
	}
	m.log.Info().Str("component", "pipeline").Str("instrument", instrument).Msg("pipeline started")
	return p
}

// Push routes a tick to its instrument's pipeline, starting one on first
// sight. Never blocks.
func (m *Manager) Push(t model.Tick) {
	m.mu.RLock()
	p, ok := m.pipes[t.Instrument]
	m.mu.RUnlock()
	if !ok {
		p = m.Start(t.Instrument)
		if p == nil {
			return
		}
	}
	p.Push(t)
}

// Stop cancels one instrument's pipeline and waits for its goroutine to
// drain. The open bars are discarded; only closed bars ever left the
// aggregator.
func (m *Manager) Stop(instrument string) {
	m.mu.Lock()
	p, ok := m.pipes[instrument]
	if ok {
		delete(m.pipes, instrument)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	p.cancel()
	<-p.done
	m.log.Info().Str("component", "pipeline").Str("instrument", instrument).Msg("pipeline stopped")
}

// Close stops every pipeline and closes the decision channel.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	pipes := make([]*Pipeline, 0, len(m.pipes))
	for k, p := range m.pipes {
		pipes = append(pipes, p)
		delete(m.pipes, k)
	}
	m.mu.Unlock()

	for _, p := range pipes {
		p.cancel()
		<-p.done
	}
	close(m.decisions)
	close(m.bars)
}

// LatestTrend returns the latest trend state for (instrument, timeframe).
func (m *Manager) LatestTrend(instrument string, tf int) (model.TrendState, bool) {
	m.mu.RLock()
	p, ok := m.pipes[instrument]
	m.mu.RUnlock()
	if !ok {
		return model.TrendState{}, false
	}
	return p.LatestTrend(tf)
}

// LatestSignal returns the latest emitted signal for an instrument.
func (m *Manager) LatestSignal(instrument string) (model.Signal, bool) {
	m.mu.RLock()
	p, ok := m.pipes[instrument]
	m.mu.RUnlock()
	if !ok {
		return model.Signal{}, false
	}
	return p.LatestSignal()
}

// Instruments lists the currently running pipelines.
func (m *Manager) Instruments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.pipes))
	for k := range m.pipes {
		out = append(out, k)
	}
	return out
}
