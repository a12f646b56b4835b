package bus

import (
	"context"
	"testing"
	"time"

	"trading-corev1/internal/model"
)

func decision(instrument string) model.RiskDecision {
	return model.RiskDecision{
		Signal:  model.Signal{Seq: 1, Instrument: instrument, Action: model.ActionBuy},
		Verdict: model.VerdictAccepted,
		Size:    2,
	}
}

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New[model.RiskDecision](10)
	out1 := fo.Subscribe()
	out2 := fo.Subscribe()

	input := make(chan model.RiskDecision, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	input <- decision("SIM-A")

	for i, out := range []<-chan model.RiskDecision{out1, out2} {
		select {
		case d := <-out:
			if d.Signal.Instrument != "SIM-A" {
				t.Errorf("out%d: expected SIM-A, got %s", i+1, d.Signal.Instrument)
			}
		case <-time.After(time.Second):
			t.Fatalf("out%d: timed out waiting for decision", i+1)
		}
	}
}

func TestFanOut_DropsForSlowSubscriber(t *testing.T) {
	fo := New[model.RiskDecision](1)

	dropped := make(chan int, 10)
	fo.OnDrop = func(idx int) { dropped <- idx }

	slow := fo.Subscribe()

	input := make(chan model.RiskDecision, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	// nobody reads slow; second decision must be dropped, not block Run
	input <- decision("SIM-A")
	input <- decision("SIM-B")

	select {
	case idx := <-dropped:
		if idx != 0 {
			t.Errorf("expected drop for subscriber 0, got %d", idx)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for drop callback")
	}

	// the first decision is still delivered
	select {
	case d := <-slow:
		if d.Signal.Instrument != "SIM-A" {
			t.Errorf("expected SIM-A, got %s", d.Signal.Instrument)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for buffered decision")
	}
}

func TestFanOut_ClosesOutputsOnInputClose(t *testing.T) {
	fo := New[model.RiskDecision](1)
	out := fo.Subscribe()

	input := make(chan model.RiskDecision)
	done := make(chan struct{})
	go func() {
		fo.Run(context.Background(), input)
		close(done)
	}()

	close(input)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return on input close")
	}

	if _, ok := <-out; ok {
		t.Error("output channel must be closed after Run exits")
	}
}

func TestFanOut_GenericOverBars(t *testing.T) {
	fo := New[model.Bar](4)
	out := fo.Subscribe()

	input := make(chan model.Bar, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	input <- model.Bar{Instrument: "SIM-A", TF: 60, Close: 101, Closed: true}

	select {
	case b := <-out:
		if b.Instrument != "SIM-A" || b.TF != 60 {
			t.Errorf("unexpected bar %+v", b)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bar")
	}
}
