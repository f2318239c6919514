package audio

import "testing"

func TestChunkZeroFilled(t *testing.T) {
	c := NewChunk(320)
	if c.Len() != 320 {
		t.Fatalf("expected 320 samples, got %d", c.Len())
	}
	for i, v := range c.Samples() {
		if v != 0 {
			t.Fatalf("sample %d not zero: %f", i, v)
		}
	}
}

func TestChunkTakeTransfersOwnership(t *testing.T) {
	src := NewChunkFromSamples([]float32{0.1, -0.2, 0.3})
	moved := src.Take()

	if src.Len() != 0 {
		t.Fatalf("moved-from chunk should be empty, has %d samples", src.Len())
	}
	want := []float32{0.1, -0.2, 0.3}
	if moved.Len() != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), moved.Len())
	}
	for i, v := range moved.Samples() {
		if v != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], v)
		}
	}
}

func TestChunkCloneIsIndependent(t *testing.T) {
	src := NewChunkFromSamples([]float32{0.5, 0.5})
	dup := src.Clone()
	dup.Samples()[0] = -1

	if src.Samples()[0] != 0.5 {
		t.Fatalf("clone mutation leaked into source: %f", src.Samples()[0])
	}
}

func TestChunkFromSamplesCopies(t *testing.T) {
	backing := []float32{1, 2, 3}
	c := NewChunkFromSamples(backing)
	backing[0] = 99

	if c.Samples()[0] != 1 {
		t.Fatalf("chunk should not alias caller's slice")
	}
}
