package audio

import (
	"testing"
	"time"
)

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestRingPreservesWriteOrder(t *testing.T) {
	r := NewRing(64)
	r.Write(seq(0, 10))
	r.Write(seq(10, 20))
	r.Write(seq(30, 14))

	out := make([]float32, 44)
	if n := r.Read(out); n != 44 {
		t.Fatalf("expected full read of 44, got %d", n)
	}
	for i, v := range out {
		if v != float32(i) {
			t.Fatalf("sample %d out of order: got %f", i, v)
		}
	}
	if r.Overflowed() {
		t.Fatal("no overflow expected for writes within capacity")
	}
}

func TestRingReadIsAllOrNothing(t *testing.T) {
	r := NewRing(16)
	r.Write(seq(0, 5))

	out := make([]float32, 8)
	if n := r.Read(out); n != 0 {
		t.Fatalf("expected 0 for short buffer, got %d", n)
	}
	if r.Available() != 5 {
		t.Fatalf("failed read must not consume data, available=%d", r.Available())
	}
}

func TestRingOverflowKeepsMostRecent(t *testing.T) {
	r := NewRing(8)
	r.Write(seq(0, 6))
	r.Write(seq(6, 6)) // exceeds capacity by 4, oldest 4 drop

	if !r.Overflowed() {
		t.Fatal("expected overflow flag")
	}
	out := make([]float32, 8)
	if n := r.Read(out); n != 8 {
		t.Fatalf("expected capacity-sized read, got %d", n)
	}
	// Exactly the most recent 8 samples remain: 4..11.
	for i, v := range out {
		if v != float32(4+i) {
			t.Fatalf("sample %d: expected %f, got %f", i, float32(4+i), v)
		}
	}
}

func TestRingWriteLargerThanCapacity(t *testing.T) {
	r := NewRing(4)
	r.Write(seq(0, 10))

	if !r.Overflowed() {
		t.Fatal("expected overflow flag")
	}
	out := make([]float32, 4)
	if n := r.Read(out); n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	for i, v := range out {
		if v != float32(6+i) {
			t.Fatalf("expected tail samples 6..9, got %f at %d", v, i)
		}
	}
}

func TestRingWaitForDataTimesOut(t *testing.T) {
	r := NewRing(32)
	start := time.Now()
	if r.WaitForData(10, 30*time.Millisecond) {
		t.Fatal("expected timeout with empty ring")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("returned before timeout: %v", elapsed)
	}
}

func TestRingWaitForDataWakesOnWrite(t *testing.T) {
	r := NewRing(32)
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Write(seq(0, 16))
	}()
	if !r.WaitForData(16, time.Second) {
		t.Fatal("expected wait to succeed once data arrived")
	}
}

func TestRingWaitForDataImmediate(t *testing.T) {
	r := NewRing(32)
	r.Write(seq(0, 8))
	if !r.WaitForData(8, 0) {
		t.Fatal("expected immediate success when data already buffered")
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(8)
	r.Write(seq(0, 12)) // forces overflow
	r.Clear()

	if r.Available() != 0 {
		t.Fatalf("expected empty ring, available=%d", r.Available())
	}
	if r.Overflowed() {
		t.Fatal("clear must reset overflow flag")
	}
}

func TestRingTakeOverflowResets(t *testing.T) {
	r := NewRing(4)
	r.Write(seq(0, 8))

	if !r.TakeOverflow() {
		t.Fatal("expected overflow on first take")
	}
	if r.TakeOverflow() {
		t.Fatal("overflow flag should be cleared after take")
	}
}
