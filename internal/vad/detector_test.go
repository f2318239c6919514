package vad

import (
	"math"
	"testing"
)

const (
	testRate  = 16000
	testFrame = 20 // ms -> 320 samples
)

func sineFrame(amplitude float64, freq float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

func noiseFrame(amplitude float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		// Deterministic low-level wideband signal.
		if i%2 == 0 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out
}

func TestNewDetectorValidation(t *testing.T) {
	cases := []struct {
		name           string
		rate, frame    int
		aggressiveness int
		wantErr        bool
	}{
		{"valid", 16000, 20, 2, false},
		{"bad rate", 44100, 20, 2, true},
		{"bad frame", 16000, 25, 2, true},
		{"aggressiveness low", 16000, 20, -1, true},
		{"aggressiveness high", 16000, 20, 4, true},
	}
	for _, tc := range cases {
		_, err := NewDetector(tc.rate, tc.frame, tc.aggressiveness)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestFrameSize(t *testing.T) {
	d, err := NewDetector(testRate, testFrame, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FrameSize() != 320 {
		t.Fatalf("expected 320-sample frames, got %d", d.FrameSize())
	}
}

func TestMismatchedFrameSizeIsNotSpeech(t *testing.T) {
	d, _ := NewDetector(testRate, testFrame, 0)
	if d.IsSpeech(make([]float32, 100)) {
		t.Fatal("wrong-sized frame must classify as non-speech")
	}
	if d.IsSpeech(nil) {
		t.Fatal("nil frame must classify as non-speech")
	}
}

func TestSilenceStaysSilent(t *testing.T) {
	d, _ := NewDetector(testRate, testFrame, 0)
	frame := noiseFrame(0.0005, d.FrameSize())

	prev := math.Inf(1)
	for i := 0; i < 50; i++ {
		if d.IsSpeech(frame) {
			t.Fatalf("near-silence classified as speech on frame %d", i)
		}
		bg := d.BackgroundEnergy()
		if bg > prev*1.01 && i > 5 {
			t.Fatalf("background energy diverging: %g -> %g", prev, bg)
		}
		prev = bg
	}
}

func TestSpeechAfterSilenceCalibration(t *testing.T) {
	d, _ := NewDetector(testRate, testFrame, 2)

	if d.IsSpeech(make([]float32, d.FrameSize())) {
		t.Fatal("all-zero frame must not be speech")
	}
	if !d.IsSpeech(sineFrame(0.8, 440, d.FrameSize())) {
		t.Fatal("loud tonal frame after silence calibration must be speech")
	}
}

func TestAggressivenessOrdering(t *testing.T) {
	relaxed, _ := NewDetector(testRate, testFrame, 0)
	strict, _ := NewDetector(testRate, testFrame, 3)

	frames := [][]float32{
		make([]float32, 320),
		noiseFrame(0.001, 320),
		sineFrame(0.2, 300, 320),
		sineFrame(0.5, 440, 320),
		sineFrame(0.8, 440, 320),
		sineFrame(0.8, 440, 320),
		noiseFrame(0.001, 320),
	}

	var relaxedHits, strictHits int
	for _, f := range frames {
		if relaxed.IsSpeech(f) {
			relaxedHits++
		}
		if strict.IsSpeech(f) {
			strictHits++
		}
	}
	if relaxedHits < strictHits {
		t.Fatalf("aggressiveness 0 detected %d frames, 3 detected %d; ordering violated",
			relaxedHits, strictHits)
	}
}

func TestSetAggressivenessIgnoresOutOfRange(t *testing.T) {
	d, _ := NewDetector(testRate, testFrame, 1)

	d.SetAggressiveness(3)
	if d.Aggressiveness() != 3 {
		t.Fatalf("expected level 3, got %d", d.Aggressiveness())
	}
	d.SetAggressiveness(-1)
	if d.Aggressiveness() != 3 {
		t.Fatalf("out-of-range level must be ignored, got %d", d.Aggressiveness())
	}
	d.SetAggressiveness(7)
	if d.Aggressiveness() != 3 {
		t.Fatalf("out-of-range level must be ignored, got %d", d.Aggressiveness())
	}
}

func TestBackgroundHoldsDuringSpeech(t *testing.T) {
	d, _ := NewDetector(testRate, testFrame, 0)

	// Calibrate on silence.
	for i := 0; i < 5; i++ {
		d.IsSpeech(noiseFrame(0.0005, d.FrameSize()))
	}
	floor := d.BackgroundEnergy()

	// A burst of loud speech must not raise the floor.
	for i := 0; i < 10; i++ {
		if !d.IsSpeech(sineFrame(0.8, 440, d.FrameSize())) {
			t.Fatalf("expected speech on frame %d", i)
		}
	}
	if d.BackgroundEnergy() > floor*1.0001 {
		t.Fatalf("background rose during speech: %g -> %g", floor, d.BackgroundEnergy())
	}
}
