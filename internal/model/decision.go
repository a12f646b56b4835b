package model

import "encoding/json"

// Verdict is the risk sizer's accept/reject outcome for a signal.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Rejection reasons. These are decisions, not faults: a rejected signal is a
// normal outcome and the pipeline continues.
const (
	ReasonRiskRewardTooLow = "RiskRewardTooLow"
	ReasonSizeBelowMinimum = "SizeBelowMinimum"
	ReasonPositionClose    = "PositionClose"
)

// RiskDecision is the sizer output for one signal: bounded position size,
// stop/target levels, and an accept/reject verdict. Never mutated after
// creation.
type RiskDecision struct {
	Signal     Signal  `json:"signal"`
	Verdict    Verdict `json:"verdict"`
	Reason     string  `json:"reason,omitempty"` // set when rejected, or PositionClose
	Size       float64 `json:"size"`             // base units, >= 0, multiple of min unit
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	RiskReward float64 `json:"risk_reward"`

	// Derived risk analytics for the downstream executor.
	RiskAmount       float64 `json:"risk_amount"`        // equity at risk if the stop is hit
	EffectiveRiskPct float64 `json:"effective_risk_pct"` // realized risk as % of equity after flooring
}

// StreamKey returns the Redis stream key for decision publishing:
// "decision:{instrument}".
func (d *RiskDecision) StreamKey() string {
	return "decision:" + d.Signal.Instrument
}

// JSON returns the JSON-encoded decision.
func (d *RiskDecision) JSON() []byte {
	data, _ := json.Marshal(d)
	return data
}
