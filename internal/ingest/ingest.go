// Package ingest normalizes and orders one instrument's tick stream.
//
// Ticks are validated, checked against a monotonic watermark, and passed
// through a bounded reordering buffer so the aggregator always observes
// non-decreasing timestamps. A tick older than watermark minus the reorder
// window is rejected, never accepted.
package ingest

import (
	"container/heap"
	"fmt"
	"time"

	"trading-corev1/internal/model"
)

// Config holds the ingest parameters, immutable for the ingestor's lifetime.
type Config struct {
	// ReorderWindow is how far behind the watermark a tick may arrive and
	// still be accepted. 0 disables reordering (pass-through).
	ReorderWindow time.Duration

	// MaxBuffered bounds the reorder buffer. When exceeded, the oldest
	// buffered tick is force-released. Default 1024.
	MaxBuffered int
}

// Ingestor validates and orders ticks for a single instrument stream.
// Single-goroutine usage; the owning pipeline is the only caller.
type Ingestor struct {
	cfg       Config
	watermark time.Time
	pending   tickHeap
	forward   func(model.Tick)

	// Metrics hooks (optional)
	OnReject func(reason string)
}

// New creates an Ingestor that forwards ordered, accepted ticks to forward.
func New(cfg Config, forward func(model.Tick)) *Ingestor {
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = 1024
	}
	return &Ingestor{cfg: cfg, forward: forward}
}

// Ingest validates a tick against the watermark. nil means accepted; the
// tick has entered the reorder buffer and the watermark advanced. Typed
// errors report rejection so the caller can log-and-continue per tick.
func (in *Ingestor) Ingest(t model.Tick) error {
	if err := validate(t); err != nil {
		in.reject("invalid_data")
		return err
	}

	if !in.watermark.IsZero() && t.TS.Before(in.watermark.Add(-in.cfg.ReorderWindow)) {
		in.reject("out_of_order")
		return fmt.Errorf("tick at %s behind watermark %s: %w",
			t.TS.Format(time.RFC3339Nano), in.watermark.Format(time.RFC3339Nano), model.ErrOutOfOrder)
	}

	if t.TS.After(in.watermark) {
		in.watermark = t.TS
	}

	heap.Push(&in.pending, t)
	in.release(false)
	return nil
}

// Flush drains the reorder buffer regardless of the watermark. Called at
// stream end or pipeline teardown.
func (in *Ingestor) Flush() {
	in.release(true)
}

// Watermark returns the highest accepted tick timestamp.
func (in *Ingestor) Watermark() time.Time {
	return in.watermark
}

// Buffered returns the current reorder buffer occupancy.
func (in *Ingestor) Buffered() int {
	return in.pending.Len()
}

// release forwards buffered ticks that can no longer be displaced by a late
// arrival: anything at or before watermark − window. Force-releases the
// oldest entries beyond the buffer bound. Output order is non-decreasing by
// construction: a future accepted tick is never older than what we release.
func (in *Ingestor) release(all bool) {
	horizon := in.watermark.Add(-in.cfg.ReorderWindow)
	for in.pending.Len() > 0 {
		oldest := in.pending[0]
		if !all && oldest.TS.After(horizon) && in.pending.Len() <= in.cfg.MaxBuffered {
			return
		}
		heap.Pop(&in.pending)
		in.forward(oldest)
	}
}

func (in *Ingestor) reject(reason string) {
	if in.OnReject != nil {
		in.OnReject(reason)
	}
}

func validate(t model.Tick) error {
	switch {
	case t.Instrument == "":
		return fmt.Errorf("empty instrument: %w", model.ErrInvalidData)
	case t.TS.IsZero():
		return fmt.Errorf("zero timestamp: %w", model.ErrInvalidData)
	case t.Price <= 0:
		return fmt.Errorf("non-positive price %g: %w", t.Price, model.ErrInvalidData)
	case t.Volume <= 0:
		return fmt.Errorf("non-positive volume %g: %w", t.Volume, model.ErrInvalidData)
	}
	return nil
}

// tickHeap is a min-heap on tick timestamp.
type tickHeap []model.Tick

func (h tickHeap) Len() int            { return len(h) }
func (h tickHeap) Less(i, j int) bool  { return h[i].TS.Before(h[j].TS) }
func (h tickHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x interface{}) { *h = append(*h, x.(model.Tick)) }
func (h *tickHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}
