// Package vad classifies fixed-duration audio frames as speech or
// non-speech using frame energy and spectral flatness with an adaptive
// background-noise estimate.
package vad

import (
	"fmt"
	"math"
)

const (
	bandCount   = 8
	historySize = 15

	// Probability smoothing: mostly the previous estimate, so a single
	// noisy frame cannot flip the decision back and forth.
	smoothPrev = 0.7
	smoothNew  = 0.3

	// Background energy adapts slowly, and only during silence, so
	// speech bursts cannot raise the floor.
	backgroundPrev = 0.95
	backgroundNew  = 0.05

	energyWeight   = 0.7
	flatnessWeight = 0.3

	// A frame needs roughly this multiple of the background energy for
	// the energy score alone to saturate.
	energyRatioScale = 10.0

	epsilon = 1e-10
)

// thresholds maps aggressiveness 0..3 to the smoothed-probability cut.
var thresholds = [4]float64{0.5, 0.6, 0.7, 0.8}

var supportedRates = map[int]bool{8000: true, 16000: true, 32000: true, 48000: true}

// Detector holds per-session VAD state. Not safe for concurrent use;
// the pipeline owns one detector per capture stream.
type Detector struct {
	sampleRate     int
	frameDuration  int
	frameSize      int
	aggressiveness int

	background  float64
	calibrated  bool
	probability float64
	history     []float64
}

// NewDetector validates the session parameters and returns a detector.
// frameDurationMS must be 10, 20 or 30; aggressiveness 0..3.
func NewDetector(sampleRate, frameDurationMS, aggressiveness int) (*Detector, error) {
	if !supportedRates[sampleRate] {
		return nil, fmt.Errorf("unsupported sample rate %d", sampleRate)
	}
	switch frameDurationMS {
	case 10, 20, 30:
	default:
		return nil, fmt.Errorf("frame duration must be 10, 20 or 30 ms, got %d", frameDurationMS)
	}
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness must be 0..3, got %d", aggressiveness)
	}
	return &Detector{
		sampleRate:     sampleRate,
		frameDuration:  frameDurationMS,
		frameSize:      sampleRate * frameDurationMS / 1000,
		aggressiveness: aggressiveness,
		history:        make([]float64, 0, historySize),
	}, nil
}

// FrameSize returns the expected number of samples per frame.
func (d *Detector) FrameSize() int { return d.frameSize }

// Aggressiveness returns the current level.
func (d *Detector) Aggressiveness() int { return d.aggressiveness }

// SetAggressiveness updates the detection threshold. Out-of-range
// values are ignored.
func (d *Detector) SetAggressiveness(level int) {
	if level < 0 || level > 3 {
		return
	}
	d.aggressiveness = level
}

// IsSpeech classifies one frame. Frames of the wrong size are treated
// as non-speech rather than reported as errors.
func (d *Detector) IsSpeech(samples []float32) bool {
	if len(samples) != d.frameSize {
		return false
	}

	energy := meanSquareEnergy(samples)
	flatness := spectralFlatness(samples, d.sampleRate)

	d.pushHistory(energy)
	if !d.calibrated {
		d.background = d.historyAverage()
		d.calibrated = true
	}

	ratio := energy / math.Max(d.background, epsilon)
	energyScore := ratio / energyRatioScale
	instant := energyWeight*energyScore + flatnessWeight*(1-flatness)

	d.probability = smoothPrev*d.probability + smoothNew*instant
	if d.probability > 1 {
		d.probability = 1
	} else if d.probability < 0 {
		d.probability = 0
	}

	speech := d.probability > thresholds[d.aggressiveness]
	if !speech {
		d.background = backgroundPrev*d.background + backgroundNew*energy
	}
	return speech
}

// Probability returns the current smoothed speech probability.
func (d *Detector) Probability() float64 { return d.probability }

// BackgroundEnergy returns the adaptive noise-floor estimate.
func (d *Detector) BackgroundEnergy() float64 { return d.background }

func (d *Detector) pushHistory(energy float64) {
	if len(d.history) == historySize {
		copy(d.history, d.history[1:])
		d.history[historySize-1] = energy
		return
	}
	d.history = append(d.history, energy)
}

func (d *Detector) historyAverage() float64 {
	if len(d.history) == 0 {
		return 0
	}
	var sum float64
	for _, e := range d.history {
		sum += e
	}
	return sum / float64(len(d.history))
}

func meanSquareEnergy(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}

// spectralFlatness estimates tonality as the geometric-to-arithmetic
// mean ratio of eight band powers spread across the spectrum. Near 1 for
// noise-like frames, near 0 for tonal (voiced) frames.
func spectralFlatness(samples []float32, sampleRate int) float64 {
	nyquist := float64(sampleRate) / 2

	var logSum, sum float64
	for band := 0; band < bandCount; band++ {
		center := (float64(band) + 0.5) * nyquist / bandCount
		power := goertzelPower(samples, sampleRate, center) + epsilon
		logSum += math.Log(power)
		sum += power
	}

	geometric := math.Exp(logSum / bandCount)
	arithmetic := sum / bandCount
	if arithmetic <= 0 {
		return 1
	}
	flatness := geometric / arithmetic
	if flatness > 1 {
		flatness = 1
	}
	return flatness
}

// goertzelPower computes signal power at one frequency without a full
// FFT, keeping the per-frame cost linear in the frame size.
func goertzelPower(samples []float32, sampleRate int, freq float64) float64 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s1, s2 float64
	for _, x := range samples {
		s0 := float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		return 0
	}
	return power / float64(len(samples))
}
