package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/markcheno/go-talib"

	"trading-corev1/internal/model"
)

const eps = 1e-9

// randomBars builds a reproducible random-walk bar series.
func randomBars(n int, seed int64) []model.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]model.Bar, n)
	price := 100.0
	for i := range bars {
		open := price
		price *= math.Exp(0.001 * rng.NormFloat64())
		high := math.Max(open, price) * (1 + 0.0005*rng.Float64())
		low := math.Min(open, price) * (1 - 0.0005*rng.Float64())
		bars[i] = model.Bar{Open: open, High: high, Low: low, Close: price, Closed: true}
	}
	return bars
}

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// The incremental indicators must agree with a brute-force recomputation
// over the full series at every bar.

func TestSMA_MatchesBruteForce(t *testing.T) {
	bars := randomBars(300, 1)
	want := talib.Sma(closes(bars), 20)

	sma := NewSMA(20)
	for i, b := range bars {
		sma.Update(b)
		if i < 19 {
			if sma.Ready() {
				t.Fatalf("bar %d: SMA ready before 20 bars", i)
			}
			continue
		}
		if diff := math.Abs(sma.Value() - want[i]); diff > eps {
			t.Fatalf("bar %d: sma=%v want=%v (diff %g)", i, sma.Value(), want[i], diff)
		}
	}
}

func TestEMA_MatchesBruteForce(t *testing.T) {
	bars := randomBars(300, 2)
	want := talib.Ema(closes(bars), 20)

	ema := NewEMA(20)
	for i, b := range bars {
		ema.Update(b)
		if i < 19 {
			continue
		}
		if diff := math.Abs(ema.Value() - want[i]); diff > eps {
			t.Fatalf("bar %d: ema=%v want=%v (diff %g)", i, ema.Value(), want[i], diff)
		}
	}
}

func TestRSI_MatchesBruteForce(t *testing.T) {
	bars := randomBars(300, 3)
	want := talib.Rsi(closes(bars), 14)

	rsi := NewRSI(14)
	for i, b := range bars {
		rsi.Update(b)
		if i < 14 {
			if rsi.Ready() {
				t.Fatalf("bar %d: RSI ready before period+1 bars", i)
			}
			continue
		}
		if diff := math.Abs(rsi.Value() - want[i]); diff > 1e-6 {
			t.Fatalf("bar %d: rsi=%v want=%v (diff %g)", i, rsi.Value(), want[i], diff)
		}
		if rsi.Value() < 0 || rsi.Value() > 100 {
			t.Fatalf("bar %d: rsi=%v out of [0,100]", i, rsi.Value())
		}
	}
}

func TestATR_MatchesBruteForce(t *testing.T) {
	bars := randomBars(300, 4)
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i], lows[i] = b.High, b.Low
	}
	want := talib.Atr(highs, lows, closes(bars), 14)

	atr := NewATR(14)
	for i, b := range bars {
		atr.Update(b)
		if i < 14 {
			continue
		}
		if diff := math.Abs(atr.Value() - want[i]); diff > 1e-6 {
			t.Fatalf("bar %d: atr=%v want=%v (diff %g)", i, atr.Value(), want[i], diff)
		}
		if atr.Value() < 0 {
			t.Fatalf("bar %d: negative atr %v", i, atr.Value())
		}
	}
}

// bruteMACD recomputes the MACD histogram from scratch with the same
// SMA-seeded EMA convention the incremental path uses.
func bruteMACD(prices []float64, fast, slow, signal int) (hist []float64, validFrom int) {
	ema := func(in []float64, period int) []float64 {
		out := make([]float64, len(in))
		mult := 2.0 / float64(period+1)
		sum := 0.0
		for i, v := range in {
			if i < period {
				sum += v
				if i == period-1 {
					out[i] = sum / float64(period)
				}
				continue
			}
			out[i] = v*mult + out[i-1]*(1-mult)
		}
		return out
	}

	fastE, slowE := ema(prices, fast), ema(prices, slow)
	line := make([]float64, 0, len(prices))
	for i := slow - 1; i < len(prices); i++ {
		line = append(line, fastE[i]-slowE[i])
	}
	sigE := ema(line, signal)

	validFrom = slow - 1 + signal - 1
	hist = make([]float64, len(prices))
	for i := validFrom; i < len(prices); i++ {
		j := i - (slow - 1)
		hist[i] = line[j] - sigE[j]
	}
	return hist, validFrom
}

func TestMACD_MatchesBruteForce(t *testing.T) {
	bars := randomBars(300, 5)
	want, validFrom := bruteMACD(closes(bars), 12, 26, 9)

	macd := NewMACD(12, 26, 9)
	for i, b := range bars {
		macd.Update(b)
		if i < validFrom {
			if macd.Ready() {
				t.Fatalf("bar %d: MACD ready before %d bars", i, validFrom+1)
			}
			continue
		}
		if !macd.Ready() {
			t.Fatalf("bar %d: MACD not ready", i)
		}
		if diff := math.Abs(macd.Value() - want[i]); diff > eps {
			t.Fatalf("bar %d: macd=%v want=%v (diff %g)", i, macd.Value(), want[i], diff)
		}
	}
}

func TestSMMA_WilderSmoothing(t *testing.T) {
	bars := randomBars(100, 6)

	// oracle: explicit recursion
	var want float64
	sum := 0.0
	smma := NewSMMA(7)
	for i, b := range bars {
		smma.Update(b)
		if i < 7 {
			sum += b.Close
			if i == 6 {
				want = sum / 7
			}
		} else {
			want = (want*6 + b.Close) / 7
		}
		if i >= 6 {
			if diff := math.Abs(smma.Value() - want); diff > eps {
				t.Fatalf("bar %d: smma=%v want=%v", i, smma.Value(), want)
			}
		}
	}
}
