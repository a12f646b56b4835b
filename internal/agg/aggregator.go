// Package agg builds multi-timeframe OHLCV bars from one instrument's
// ordered tick stream. Each configured timeframe keeps exactly one open bar;
// merging a tick is O(1) per timeframe. A boundary crossing closes the
// current bar and emits it exactly once, synthesizing zero-volume bars for
// any empty buckets in between so closed bars tile the timeline with no gaps.
package agg

import (
	"time"

	"trading-corev1/internal/model"
)

// barState holds the open bar for one timeframe.
type barState struct {
	bucket  int64 // bucket start, Unix seconds, TF-aligned
	bar     model.Bar
	started bool
}

// Aggregator resamples ticks into bars for every configured timeframe of a
// single instrument. Designed for single-goroutine usage by the owning
// pipeline; no locks needed.
type Aggregator struct {
	instrument string
	tfs        []int
	states     []barState
	emit       func(model.Bar)

	// Metrics hooks (optional)
	OnLateTick  func()
	OnSynthetic func(tf int)
}

// New creates an Aggregator that emits closed bars via emit.
// tfs are timeframe durations in seconds.
func New(instrument string, tfs []int, emit func(model.Bar)) *Aggregator {
	return &Aggregator{
		instrument: instrument,
		tfs:        tfs,
		states:     make([]barState, len(tfs)),
		emit:       emit,
	}
}

// OnTick merges one tick into every timeframe's open bar, closing and
// emitting bars whose bucket boundary the tick has crossed. The hot path.
func (a *Aggregator) OnTick(t model.Tick) {
	ts := t.TS.Unix()

	for i, tf := range a.tfs {
		tf64 := int64(tf)
		bucket := ts - (ts % tf64) // align to TF boundary
		st := &a.states[i]

		if st.started && bucket < st.bucket {
			// behind the open bucket; cannot happen after the reorder stage
			if a.OnLateTick != nil {
				a.OnLateTick()
			}
			continue
		}

		if st.started && bucket > st.bucket {
			a.close(st)

			// fill empty buckets so downstream indicators never see gaps
			prevClose := st.bar.Close
			for b := st.bucket + tf64; b < bucket; b += tf64 {
				a.emit(a.synthesize(tf, b, prevClose))
				if a.OnSynthetic != nil {
					a.OnSynthetic(tf)
				}
			}
			st.started = false
		}

		if !st.started {
			st.bucket = bucket
			st.started = true
			st.bar = model.Bar{
				Instrument: a.instrument,
				TF:         tf,
				TS:         time.Unix(bucket, 0).UTC(),
				End:        time.Unix(bucket+tf64, 0).UTC(),
				Open:       t.Price,
				High:       t.Price,
				Low:        t.Price,
				Close:      t.Price,
				Volume:     t.Volume,
				Ticks:      1,
			}
			continue
		}

		// same bucket, O(1) merge
		b := &st.bar
		if t.Price > b.High {
			b.High = t.Price
		}
		if t.Price < b.Low {
			b.Low = t.Price
		}
		b.Close = t.Price
		b.Volume += t.Volume
		b.Ticks++
	}
}

// OpenBars returns snapshots of the currently forming bars, one per
// timeframe that has seen at least one tick. Copies are safe to retain.
func (a *Aggregator) OpenBars() []model.Bar {
	out := make([]model.Bar, 0, len(a.states))
	for i := range a.states {
		if a.states[i].started {
			out = append(out, a.states[i].bar)
		}
	}
	return out
}

// close marks the open bar immutable and emits it.
func (a *Aggregator) close(st *barState) {
	st.bar.Closed = true
	a.emit(st.bar)
}

// synthesize builds a closed zero-volume bar carrying forward the previous
// close across an empty bucket.
func (a *Aggregator) synthesize(tf int, bucket int64, prevClose float64) model.Bar {
	return model.Bar{
		Instrument: a.instrument,
		TF:         tf,
		TS:         time.Unix(bucket, 0).UTC(),
		End:        time.Unix(bucket+int64(tf), 0).UTC(),
		Open:       prevClose,
		High:       prevClose,
		Low:        prevClose,
		Close:      prevClose,
		Closed:     true,
		Synthetic:  true,
	}
}
