package feed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"trading-corev1/internal/model"
)

// SimConfig holds the random-walk simulator parameters.
type SimConfig struct {
	Instruments []string

	// StartPrice is the walk's starting price per instrument. Default 100.
	StartPrice float64

	// Volatility is the per-tick log-return standard deviation. Default 0.0005.
	Volatility float64

	// Drift is the per-tick log-return mean. 0 gives a driftless walk.
	Drift float64

	// Interval between ticks per instrument. Default 100ms.
	Interval time.Duration

	// LateFraction is the probability a tick is delivered with a timestamp
	// a few intervals behind, to exercise the reorder stage. Default 0.
	LateFraction float64

	// Seed makes runs reproducible. 0 seeds from wall clock.
	Seed int64
}

func (c *SimConfig) defaults() {
	if c.StartPrice <= 0 {
		c.StartPrice = 100
	}
	if c.Volatility <= 0 {
		c.Volatility = 0.0005
	}
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

// Sim generates geometric random-walk ticks for a set of instruments.
// A drop-in replacement for the WebSocket feed in offline runs.
type Sim struct {
	cfg SimConfig
	log zerolog.Logger
	rng *rand.Rand

	prices map[string]float64
}

// NewSim creates a simulator.
func NewSim(cfg SimConfig, log zerolog.Logger) *Sim {
	cfg.defaults()
	s := &Sim{
		cfg:    cfg,
		log:    log.With().Str("component", "feed.sim").Logger(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		prices: make(map[string]float64, len(cfg.Instruments)),
	}
	for _, ins := range cfg.Instruments {
		s.prices[ins] = cfg.StartPrice
	}
	return s
}

// Start pushes ticks into the sink until ctx is cancelled.
func (s *Sim) Start(ctx context.Context, sink Sink) error {
	s.log.Info().Strs("instruments", s.cfg.Instruments).
		Int64("seed", s.cfg.Seed).Msg("simulator started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, ins := range s.cfg.Instruments {
				sink.Push(s.next(ins, now.UTC()))
			}
		}
	}
}

// next advances one instrument's walk and builds its tick.
func (s *Sim) next(instrument string, now time.Time) model.Tick {
	p := s.prices[instrument]
	p *= math.Exp(s.cfg.Drift + s.cfg.Volatility*s.rng.NormFloat64())
	s.prices[instrument] = p

	ts := now
	if s.cfg.LateFraction > 0 && s.rng.Float64() < s.cfg.LateFraction {
		ts = ts.Add(-time.Duration(1+s.rng.Intn(3)) * s.cfg.Interval)
	}

	spread := p * 0.0001
	return model.Tick{
		Instrument: instrument,
		TS:         ts,
		Price:      p,
		Volume:     float64(1 + s.rng.Intn(100)),
		Bid:        p - spread/2,
		Ask:        p + spread/2,
	}
}
