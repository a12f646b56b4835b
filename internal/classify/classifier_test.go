package classify

import (
	"errors"
	"testing"
	"time"

	"trading-corev1/internal/model"
)

func testConfig() Config {
	return Config{
		FastKey:          "sma_20",
		SlowKey:          "sma_50",
		ATRKey:           "atr_14",
		SidewaysBand:     0.1,
		StrengthScale:    4.0,
		PatternLookback:  32,
		PatternTolerance: 0.0025,
	}
}

func snapshot(values map[string]float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Instrument: "SIM-A",
		TF:         60,
		TS:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Values:     values,
	}
}

func flatBars(n int, close float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{High: close, Low: close, Close: close, Closed: true}
	}
	return bars
}

func TestClassify_InsufficientHistory(t *testing.T) {
	_, err := Classify(testConfig(), snapshot(map[string]float64{"sma_20": 100}), nil)
	if !errors.Is(err, model.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestClassify_Directions(t *testing.T) {
	cases := []struct {
		name string
		fast float64
		slow float64
		want model.Direction
	}{
		{"up", 102, 100, model.DirUp},
		{"down", 98, 100, model.DirDown},
		{"sideways inside band", 100.05, 100, model.DirSideways},
	}
	for _, tc := range cases {
		snap := snapshot(map[string]float64{
			"sma_20": tc.fast,
			"sma_50": tc.slow,
			"atr_14": 1.0,
		})
		ts, err := Classify(testConfig(), snap, flatBars(10, 100))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if ts.Direction != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, ts.Direction)
		}
	}
}

func TestClassify_StrengthNormalization(t *testing.T) {
	cfg := testConfig()

	// same absolute spread, different volatility: strength must differ
	lowVol := snapshot(map[string]float64{"sma_20": 102, "sma_50": 100, "atr_14": 1.0})
	highVol := snapshot(map[string]float64{"sma_20": 102, "sma_50": 100, "atr_14": 10.0})

	a, err := Classify(cfg, lowVol, flatBars(10, 100))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Classify(cfg, highVol, flatBars(10, 100))
	if err != nil {
		t.Fatal(err)
	}

	if a.Strength <= b.Strength {
		t.Errorf("low-vol strength %g must exceed high-vol strength %g", a.Strength, b.Strength)
	}

	// spread 2, scale 4, atr 1 → 0.5
	if a.Strength != 0.5 {
		t.Errorf("expected strength 0.5, got %g", a.Strength)
	}
}

func TestClassify_StrengthClamped(t *testing.T) {
	snap := snapshot(map[string]float64{"sma_20": 200, "sma_50": 100, "atr_14": 1.0})
	ts, err := Classify(testConfig(), snap, flatBars(10, 100))
	if err != nil {
		t.Fatal(err)
	}
	if ts.Strength != 1 {
		t.Errorf("expected strength clamped to 1, got %g", ts.Strength)
	}
}

func TestClassify_VolatilityFallback(t *testing.T) {
	// no ATR: fall back to log-return stddev over the window
	snap := snapshot(map[string]float64{"sma_20": 102, "sma_50": 100})

	bars := make([]model.Bar, 20)
	price := 100.0
	for i := range bars {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		bars[i] = model.Bar{High: price, Low: price, Close: price, Closed: true}
	}

	ts, err := Classify(testConfig(), snap, bars)
	if err != nil {
		t.Fatalf("fallback should classify, got %v", err)
	}
	if ts.Strength <= 0 {
		t.Errorf("expected positive strength from fallback, got %g", ts.Strength)
	}

	// constant closes give zero variance; spread cannot be normalized
	flat, err := Classify(testConfig(), snap, flatBars(20, 100))
	if err != nil {
		t.Fatalf("unexpected error on flat window: %v", err)
	}
	if flat.Direction != model.DirSideways || flat.Strength != 0 {
		t.Errorf("flat window: expected sideways/0, got %s/%g", flat.Direction, flat.Strength)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	snap := snapshot(map[string]float64{"sma_20": 102, "sma_50": 100, "atr_14": 1.0})
	bars := flatBars(10, 100)

	first, err := Classify(testConfig(), snap, bars)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Classify(testConfig(), snap, bars)
		if err != nil {
			t.Fatal(err)
		}
		if again.Direction != first.Direction || again.Strength != first.Strength {
			t.Fatal("classification must be deterministic for identical inputs")
		}
	}
}
