// Package signalgen combines per-timeframe trend states into debounced
// trading signals.
//
// One Generator per instrument runs a finite-state machine over
// {Idle, Armed, Active, Cooldown}. Evaluation happens once per base-timeframe
// bar close against the latest known TrendState of every configured
// timeframe. Agreement must persist for the debounce window before a signal
// fires; after a close signal the generator sits out a fixed cooldown. The
// FSM guarantees no two buy/sell emissions without an intervening close and
// no emission inside the cooldown window.
package signalgen

import (
	"sort"
	"time"

	"trading-corev1/internal/model"
)

// Config holds generator parameters, immutable per pipeline.
type Config struct {
	// Timeframes is the configured timeframe set (seconds), joined at
	// evaluation time.
	Timeframes []int

	// Weights per timeframe for majority and confidence; missing entries
	// default to 1.
	Weights map[int]float64

	// MinStrength a timeframe's trend must reach to vote.
	MinStrength float64

	// Majority is the weighted fraction of timeframes that must agree on a
	// direction.
	Majority float64

	// DebounceBars is how many consecutive agreeing evaluations (including
	// the arming one) are required before emitting.
	DebounceBars int

	// CooldownBars is how many evaluations to sit out after a close.
	CooldownBars int
}

// Generator is the per-instrument signal state machine. Single-goroutine
// usage by the owning pipeline; no locks needed.
type Generator struct {
	cfg        Config
	instrument string

	state        State
	armedDir     model.Direction
	streak       int
	activeDir    model.Direction
	cooldownLeft int
	seq          uint64

	latest map[int]model.TrendState // latest known TrendState per timeframe
}

// New creates a Generator for one instrument.
func New(instrument string, cfg Config) *Generator {
	return &Generator{
		cfg:        cfg,
		instrument: instrument,
		state:      StateIdle,
		latest:     make(map[int]model.TrendState, len(cfg.Timeframes)),
	}
}

// State returns the current FSM state.
func (g *Generator) State() State { return g.state }

// Observe records the latest TrendState for its timeframe. Does not emit;
// emission only happens in Evaluate.
func (g *Generator) Observe(ts model.TrendState) {
	g.latest[ts.TF] = ts
}

// Evaluate runs one FSM step at a base-timeframe bar close. price is the
// entry reference (last base close), now the evaluation time. Returns the
// emitted signal or nil.
//
// Transition table:
//
//	Idle     + agreement            → Armed (streak=1; fires if debounce<=1)
//	Armed    + same agreement       → streak++; streak>=debounce → Active, emit buy/sell
//	Armed    + anything else        → Idle (no emission)
//	Active   + opposite agreement   → Cooldown, emit close
//	Active   + else                 → Active
//	Cooldown + anything             → count down; 0 → Idle (never emits)
func (g *Generator) Evaluate(now time.Time, price float64) *model.Signal {
	dir, supporters := g.agreement()

	switch g.state {
	case StateIdle:
		if dir == model.DirSideways {
			return nil
		}
		g.state = StateArmed
		g.armedDir = dir
		g.streak = 1
		return g.maybeFire(now, price, supporters)

	case StateArmed:
		if dir != g.armedDir || dir == model.DirSideways {
			g.state = StateIdle
			g.streak = 0
			return nil
		}
		g.streak++
		return g.maybeFire(now, price, supporters)

	case StateActive:
		if dir == g.activeDir.Opposite() && dir != model.DirSideways {
			g.state = StateCooldown
			g.cooldownLeft = g.cfg.CooldownBars
			return g.emit(model.ActionClose, now, price, supporters)
		}
		return nil

	case StateCooldown:
		g.cooldownLeft--
		if g.cooldownLeft <= 0 {
			g.state = StateIdle
		}
		return nil
	}
	return nil
}

// maybeFire transitions Armed → Active once the debounce window is met.
func (g *Generator) maybeFire(now time.Time, price float64, supporters []model.TrendState) *model.Signal {
	if g.streak < g.cfg.DebounceBars {
		return nil
	}
	g.state = StateActive
	g.activeDir = g.armedDir

	action := model.ActionBuy
	if g.armedDir == model.DirDown {
		action = model.ActionSell
	}
	return g.emit(action, now, price, supporters)
}

// emit builds an immutable Signal with the next sequence id.
func (g *Generator) emit(action model.Action, now time.Time, price float64, supporters []model.TrendState) *model.Signal {
	g.seq++

	tfs := make([]int, 0, len(supporters))
	var confSum, weightSum float64
	for _, ts := range supporters {
		w := g.weight(ts.TF)
		confSum += ts.Strength * w
		weightSum += w
		tfs = append(tfs, ts.TF)
	}
	sort.Ints(tfs)

	confidence := 0.0
	if weightSum > 0 {
		confidence = confSum / weightSum
	}

	return &model.Signal{
		Seq:        g.seq,
		Instrument: g.instrument,
		Action:     action,
		Confidence: confidence,
		Price:      price,
		Timeframes: tfs,
		TS:         now,
	}
}

// agreement finds the direction holding a qualifying weighted majority among
// the latest known trend states. Returns DirSideways when none does.
func (g *Generator) agreement() (model.Direction, []model.TrendState) {
	votes := map[model.Direction]float64{}
	byDir := map[model.Direction][]model.TrendState{}
	var total float64

	for _, tf := range g.cfg.Timeframes {
		total += g.weight(tf)
		ts, ok := g.latest[tf]
		if !ok || ts.Direction == model.DirSideways || ts.Strength < g.cfg.MinStrength {
			continue
		}
		votes[ts.Direction] += g.weight(tf)
		byDir[ts.Direction] = append(byDir[ts.Direction], ts)
	}

	for _, dir := range []model.Direction{model.DirUp, model.DirDown} {
		if total > 0 && votes[dir]/total >= g.cfg.Majority {
			return dir, byDir[dir]
		}
	}
	return model.DirSideways, nil
}

func (g *Generator) weight(tf int) float64 {
	if w, ok := g.cfg.Weights[tf]; ok && w > 0 {
		return w
	}
	return 1
}
