package pipeline

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-corev1/internal/classify"
	"trading-corev1/internal/indicator"
	"trading-corev1/internal/ingest"
	"trading-corev1/internal/model"
	"trading-corev1/internal/risk"
	"trading-corev1/internal/signalgen"
)

// testConfig uses 1s/2s timeframes and short warm-ups so a ramp of a few
// dozen ticks drives the full chain end to end.
func testConfig() Config {
	tfs := []int{1, 2}
	return Config{
		Timeframes:   tfs,
		RingSize:     1024,
		PollInterval: time.Millisecond,
		Ingest:       ingest.Config{},
		Indicator: indicator.Config{
			FastPeriod: 3, SlowPeriod: 5, EMAPeriod: 3, SMMAPeriod: 3,
			RSIPeriod: 3, ATRPeriod: 3,
			MACDFast: 3, MACDSlow: 6, MACDSignal: 3,
			HistoryBars: 32,
			Levels:      indicator.LevelConfig{Window: 2, Tolerance: 0.0025},
		},
		Classify: classify.Config{
			FastKey: "sma_3", SlowKey: "sma_5", ATRKey: "atr_3",
			SidewaysBand: 0.1, StrengthScale: 2.0,
			PatternLookback: 16, PatternTolerance: 0.0025,
		},
		Signal: signalgen.Config{
			Timeframes:   tfs,
			MinStrength:  0.2,
			Majority:     0.6,
			DebounceBars: 2,
			CooldownBars: 2,
		},
		Risk: risk.Config{
			RewardMultiple: 2.0, MinRiskReward: 1.5, MinUnit: 1,
		},
		Equity:       10000,
		RiskFraction: 0.01,
	}
}

func TestPipeline_RampProducesBuyDecision(t *testing.T) {
	mgr := NewManager(testConfig(), 64, zerolog.Nop(), nil)
	defer mgr.Close()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// steady ramp, one tick per second: every timeframe trends up
	for i := 0; i < 40; i++ {
		mgr.Push(model.Tick{
			Instrument: "SIM-A",
			TS:         base.Add(time.Duration(i) * time.Second),
			Price:      100 + float64(i),
			Volume:     1,
		})
	}

	var d model.RiskDecision
	select {
	case d = <-mgr.Decisions():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a decision")
	}

	if d.Signal.Instrument != "SIM-A" {
		t.Errorf("expected SIM-A, got %s", d.Signal.Instrument)
	}
	if d.Signal.Action != model.ActionBuy {
		t.Errorf("uptrend ramp: expected buy, got %s", d.Signal.Action)
	}
	if d.Verdict != model.VerdictAccepted {
		t.Errorf("expected accepted, got %s (%s)", d.Verdict, d.Reason)
	}
	if d.Size <= 0 {
		t.Errorf("expected positive size, got %g", d.Size)
	}
	if d.StopLoss >= d.Signal.Price || d.TakeProfit <= d.Signal.Price {
		t.Errorf("buy levels inverted: stop=%g entry=%g target=%g",
			d.StopLoss, d.Signal.Price, d.TakeProfit)
	}

	// no second entry without a close in between
	select {
	case extra := <-mgr.Decisions():
		if extra.Signal.Action == model.ActionBuy || extra.Signal.Action == model.ActionSell {
			t.Errorf("second entry %s without an intervening close", extra.Signal.Action)
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestPipeline_QueryInterface(t *testing.T) {
	mgr := NewManager(testConfig(), 64, zerolog.Nop(), nil)
	defer mgr.Close()

	if _, ok := mgr.LatestTrend("SIM-A", 1); ok {
		t.Error("unknown instrument must report no trend")
	}
	if _, ok := mgr.LatestSignal("SIM-A"); ok {
		t.Error("unknown instrument must report no signal")
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		mgr.Push(model.Tick{
			Instrument: "SIM-A",
			TS:         base.Add(time.Duration(i) * time.Second),
			Price:      100 + float64(i),
			Volume:     1,
		})
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if ts, ok := mgr.LatestTrend("SIM-A", 1); ok {
			if ts.Direction != model.DirUp {
				t.Errorf("ramp: expected up trend, got %s", ts.Direction)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a trend state")
		}
		time.Sleep(5 * time.Millisecond)
	}

	for {
		if sig, ok := mgr.LatestSignal("SIM-A"); ok {
			if sig.Action != model.ActionBuy {
				t.Errorf("expected buy signal, got %s", sig.Action)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a signal")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPipeline_PerInstrumentIsolation(t *testing.T) {
	mgr := NewManager(testConfig(), 64, zerolog.Nop(), nil)
	defer mgr.Close()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		mgr.Push(model.Tick{Instrument: "SIM-A", TS: ts, Price: 100 + float64(i), Volume: 1})
		mgr.Push(model.Tick{Instrument: "SIM-B", TS: ts, Price: 100 - float64(i), Volume: 1})
	}

	got := map[string]model.Action{}
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case d := <-mgr.Decisions():
			if _, seen := got[d.Signal.Instrument]; !seen {
				got[d.Signal.Instrument] = d.Signal.Action
			}
		case <-deadline:
			t.Fatalf("timed out; first decisions so far: %v", got)
		}
	}

	if got["SIM-A"] != model.ActionBuy {
		t.Errorf("SIM-A ramp up: expected buy, got %s", got["SIM-A"])
	}
	if got["SIM-B"] != model.ActionSell {
		t.Errorf("SIM-B ramp down: expected sell, got %s", got["SIM-B"])
	}
}

func TestManager_StopDiscardsPipeline(t *testing.T) {
	mgr := NewManager(testConfig(), 64, zerolog.Nop(), nil)
	defer mgr.Close()

	mgr.Start("SIM-A")
	if n := len(mgr.Instruments()); n != 1 {
		t.Fatalf("expected 1 pipeline, got %d", n)
	}

	mgr.Stop("SIM-A")
	if n := len(mgr.Instruments()); n != 0 {
		t.Fatalf("expected 0 pipelines after Stop, got %d", n)
	}
	if _, ok := mgr.LatestTrend("SIM-A", 1); ok {
		t.Error("stopped instrument must report no trend")
	}
}
