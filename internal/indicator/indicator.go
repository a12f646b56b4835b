// Package indicator provides incremental technical indicator calculations
// over closed bars.
//
// Every indicator implements the Indicator interface and updates in O(1)
// amortized time per bar, using a fixed-capacity ring buffer or a running
// aggregate, never a recomputation over full history. An indicator reports
// Ready() == false until its warm-up window is satisfied; before that its
// value is undefined and it is omitted from snapshots.
package indicator

import "trading-corev1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the snapshot key, e.g. "sma_20", "rsi_14".
	Name() string

	// Update feeds a new closed bar and recalculates.
	Update(bar model.Bar)

	// Value returns the current calculated value. Undefined before Ready.
	Value() float64

	// Ready returns true once the warm-up window is satisfied.
	Ready() bool
}
