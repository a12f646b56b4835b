// Package risk converts signals into bounded position sizes.
//
// The sizer is pure: same signal and account inputs always yield the same
// RiskDecision, it has no shared state, and it is safe to call concurrently
// for different signals. Rejections (poor risk-reward, dust size) are
// verdicts on the decision; malformed inputs are errors and produce no
// decision at all.
package risk

import (
	"fmt"
	"math"

	"trading-corev1/internal/model"
)

// Config holds sizing parameters, immutable for the pipeline's lifetime.
type Config struct {
	// RewardMultiple scales the stop distance into the take-profit distance.
	RewardMultiple float64

	// MinRiskReward rejects signals whose reward/risk ratio falls below it.
	MinRiskReward float64

	// MinUnit is the instrument's minimum tradable unit; sizes are floored
	// to a multiple of it. Default 1.
	MinUnit float64

	// MaxExposureFraction caps size × entry at this fraction of equity.
	// 0 disables the cap.
	MaxExposureFraction float64
}

// Sizer computes RiskDecisions for signals.
type Sizer struct {
	cfg Config
}

// NewSizer creates a Sizer with the given config.
func NewSizer(cfg Config) *Sizer {
	if cfg.MinUnit <= 0 {
		cfg.MinUnit = 1
	}
	return &Sizer{cfg: cfg}
}

// Size computes stop/target levels, risk-reward ratio, and a bounded
// position size for a buy or sell signal. Non-positive equity, riskFraction,
// or stopDistance is ErrInvalidRiskParameters, never silently clamped.
func (s *Sizer) Size(sig model.Signal, equity, riskFraction, stopDistance float64) (model.RiskDecision, error) {
	switch {
	case equity <= 0:
		return model.RiskDecision{}, fmt.Errorf("equity %g: %w", equity, model.ErrInvalidRiskParameters)
	case riskFraction <= 0:
		return model.RiskDecision{}, fmt.Errorf("risk fraction %g: %w", riskFraction, model.ErrInvalidRiskParameters)
	case stopDistance <= 0:
		return model.RiskDecision{}, fmt.Errorf("stop distance %g: %w", stopDistance, model.ErrInvalidRiskParameters)
	case sig.Price <= 0:
		return model.RiskDecision{}, fmt.Errorf("entry price %g: %w", sig.Price, model.ErrInvalidRiskParameters)
	}
	if sig.Action != model.ActionBuy && sig.Action != model.ActionSell {
		return model.RiskDecision{}, fmt.Errorf("action %q not sizable: %w", sig.Action, model.ErrInvalidRiskParameters)
	}

	entry := sig.Price
	rewardDistance := stopDistance * s.cfg.RewardMultiple

	var stop, target float64
	if sig.Action == model.ActionBuy {
		stop = entry - stopDistance
		target = entry + rewardDistance
	} else {
		stop = entry + stopDistance
		target = entry - rewardDistance
	}

	decision := model.RiskDecision{
		Signal:     sig,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: rewardDistance / stopDistance,
	}

	if decision.RiskReward < s.cfg.MinRiskReward {
		decision.Verdict = model.VerdictRejected
		decision.Reason = model.ReasonRiskRewardTooLow
		return decision, nil
	}

	size := equity * riskFraction / stopDistance
	if s.cfg.MaxExposureFraction > 0 {
		if maxSize := equity * s.cfg.MaxExposureFraction / entry; size > maxSize {
			size = maxSize
		}
	}
	size = math.Floor(size/s.cfg.MinUnit+1e-9) * s.cfg.MinUnit

	if size <= 0 {
		decision.Verdict = model.VerdictRejected
		decision.Reason = model.ReasonSizeBelowMinimum
		return decision, nil
	}

	decision.Verdict = model.VerdictAccepted
	decision.Size = size
	decision.RiskAmount = size * stopDistance
	decision.EffectiveRiskPct = decision.RiskAmount / equity * 100
	return decision, nil
}

// CloseDecision wraps a close signal into a pass-through decision for the
// downstream executor. Close signals carry no new size; the executor flattens
// the open position.
func CloseDecision(sig model.Signal) model.RiskDecision {
	return model.RiskDecision{
		Signal:  sig,
		Verdict: model.VerdictAccepted,
		Reason:  model.ReasonPositionClose,
	}
}
