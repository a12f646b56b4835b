package ingest

import (
	"errors"
	"testing"
	"time"

	"trading-corev1/internal/model"
)

func tick(ts time.Time, price float64) model.Tick {
	return model.Tick{Instrument: "SIM-A", TS: ts, Price: price, Volume: 1}
}

func TestIngest_RejectsInvalidData(t *testing.T) {
	in := New(Config{}, func(model.Tick) {})
	now := time.Now().UTC()

	cases := []struct {
		name string
		t    model.Tick
	}{
		{"empty instrument", model.Tick{TS: now, Price: 1, Volume: 1}},
		{"zero timestamp", model.Tick{Instrument: "SIM-A", Price: 1, Volume: 1}},
		{"zero price", model.Tick{Instrument: "SIM-A", TS: now, Volume: 1}},
		{"negative price", model.Tick{Instrument: "SIM-A", TS: now, Price: -5, Volume: 1}},
		{"zero volume", model.Tick{Instrument: "SIM-A", TS: now, Price: 1}},
	}
	for _, tc := range cases {
		if err := in.Ingest(tc.t); !errors.Is(err, model.ErrInvalidData) {
			t.Errorf("%s: expected ErrInvalidData, got %v", tc.name, err)
		}
	}
	if in.Watermark() != (time.Time{}) {
		t.Error("rejected ticks must not advance the watermark")
	}
}

func TestIngest_RejectsBehindWatermark(t *testing.T) {
	in := New(Config{ReorderWindow: 2 * time.Second}, func(model.Tick) {})
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := in.Ingest(tick(base.Add(10*time.Second), 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// inside the window: accepted
	if err := in.Ingest(tick(base.Add(9*time.Second), 99)); err != nil {
		t.Errorf("tick inside reorder window rejected: %v", err)
	}

	// beyond the window: rejected, watermark untouched
	err := in.Ingest(tick(base.Add(7*time.Second), 98))
	if !errors.Is(err, model.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
	if got := in.Watermark(); !got.Equal(base.Add(10 * time.Second)) {
		t.Errorf("watermark moved to %v", got)
	}
}

func TestIngest_ForwardsInOrder(t *testing.T) {
	var out []model.Tick
	in := New(Config{ReorderWindow: 3 * time.Second}, func(t model.Tick) { out = append(out, t) })

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	offsets := []int{0, 2, 1, 5, 4, 3, 8, 7, 9, 6, 12, 11, 10, 15}
	for _, off := range offsets {
		if err := in.Ingest(tick(base.Add(time.Duration(off)*time.Second), 100)); err != nil {
			t.Fatalf("offset %d: unexpected error: %v", off, err)
		}
	}
	in.Flush()

	if len(out) != len(offsets) {
		t.Fatalf("expected %d forwarded ticks, got %d", len(offsets), len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].TS.Before(out[i-1].TS) {
			t.Fatalf("forwarded order regressed at %d: %v after %v", i, out[i].TS, out[i-1].TS)
		}
	}
}

func TestIngest_BufferBound(t *testing.T) {
	var out []model.Tick
	in := New(Config{ReorderWindow: time.Hour, MaxBuffered: 4},
		func(t model.Tick) { out = append(out, t) })

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := in.Ingest(tick(base.Add(time.Duration(i)*time.Second), 100)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if in.Buffered() > 4 {
		t.Errorf("buffer exceeded bound: %d", in.Buffered())
	}
	if len(out)+in.Buffered() != 10 {
		t.Errorf("ticks lost: forwarded=%d buffered=%d", len(out), in.Buffered())
	}
}

func TestIngest_RejectHook(t *testing.T) {
	in := New(Config{}, func(model.Tick) {})

	var reasons []string
	in.OnReject = func(r string) { reasons = append(reasons, r) }

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_ = in.Ingest(model.Tick{})                   // invalid
	_ = in.Ingest(tick(base.Add(time.Minute), 1)) // ok
	_ = in.Ingest(tick(base, 1))                  // behind watermark, window 0

	want := []string{"invalid_data", "out_of_order"}
	if len(reasons) != len(want) {
		t.Fatalf("expected %d rejections, got %v", len(want), reasons)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Errorf("rejection %d: expected %q, got %q", i, want[i], reasons[i])
		}
	}
}
