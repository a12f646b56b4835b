// Package bus broadcasts pipeline outputs (risk decisions, closed bars) to N
// subscribers (executor hand-off, journals, stream publishers). If a
// subscriber channel is full the value is dropped for that consumer so a
// slow sink never blocks the pipelines.
package bus

import (
	"context"
	"sync"
)

// FanOut broadcasts values from a single input channel to N output channels.
type FanOut[T any] struct {
	mu      sync.RWMutex
	outputs []chan T
	bufSize int

	// OnDrop is called when a value is dropped for a subscriber.
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New[T any](outputBufferSize int) *FanOut[T] {
	return &FanOut[T]{bufSize: outputBufferSize}
}

// Subscribe creates and returns a new output channel. Must be called before
// Run starts.
func (f *FanOut[T]) Subscribe() <-chan T {
	ch := make(chan T, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed, then closes all outputs.
func (f *FanOut[T]) Run(ctx context.Context, input <-chan T) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- d:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}
