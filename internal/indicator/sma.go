package indicator

import "trading-corev1/internal/model"

// SMA calculates Simple Moving Average over a rolling window of closes.
// Uses a preallocated circular buffer for a zero-allocation hot path.
type SMA struct {
	name    string
	period  int
	buf     []float64 // circular buffer of the last period closes
	idx     int       // current write position
	count   int       // total bars received
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		name:   "sma_" + itoa(period),
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return s.name }

func (s *SMA) Update(bar model.Bar) {
	price := bar.Close

	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = price
	s.sum += price
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }
