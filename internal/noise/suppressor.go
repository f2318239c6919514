// Package noise implements an energy-based noise gate and spectral
// subtraction stage fed by a noise-floor estimate learned from silent
// frames.
package noise

import "math"

const (
	defaultThreshold  = 0.05
	defaultWindowSize = 10

	// gateHeadroom scales the floor when deciding whether a frame gets
	// the soft gate; frames below floor*gateHeadroom are attenuated.
	gateHeadroom = 1.5

	// Floor updates blend slowly once calibrated.
	floorPrev = 0.9
	floorNew  = 0.1

	// minCalibrationFrames silent frames must accumulate before the
	// running average becomes the floor.
	minCalibrationFrames = 3

	// subtractionFactor of the floor is removed from each sample's
	// magnitude; residualGain further shrinks samples still under the
	// floor afterwards.
	subtractionFactor = 0.5
	residualGain      = 0.1
)

// Suppressor estimates a background noise floor and attenuates samples
// below it. Not safe for concurrent use.
type Suppressor struct {
	threshold  float64
	windowSize int

	floor      float64
	calibrated bool
	history    []float64
}

// NewSuppressor returns a suppressor with the default gate threshold
// and calibration window.
func NewSuppressor() *Suppressor {
	return &Suppressor{
		threshold:  defaultThreshold,
		windowSize: defaultWindowSize,
	}
}

// Calibrate hard-resets the noise floor to the energy of the given
// chunk, which the caller asserts is silence.
func (s *Suppressor) Calibrate(samples []float32) {
	if len(samples) == 0 {
		return
	}
	s.floor = frameEnergy(samples)
	s.history = s.history[:0]
	s.calibrated = true
}

// AutoCalibrate feeds one frame and the VAD's verdict for it. Silent
// frames accumulate in a bounded history; once enough are collected the
// floor tracks their running average.
func (s *Suppressor) AutoCalibrate(samples []float32, isSpeech bool) {
	if len(samples) == 0 || isSpeech {
		return
	}

	s.history = append(s.history, frameEnergy(samples))
	if len(s.history) > s.windowSize {
		s.history = s.history[1:]
	}
	if len(s.history) < minCalibrationFrames {
		return
	}

	var sum float64
	for _, e := range s.history {
		sum += e
	}
	avg := sum / float64(len(s.history))

	if !s.calibrated {
		s.floor = avg
		s.calibrated = true
	} else {
		s.floor = floorPrev*s.floor + floorNew*avg
	}
}

// Calibrated reports whether a floor estimate exists.
func (s *Suppressor) Calibrated() bool { return s.calibrated }

// NoiseFloor returns the current estimate.
func (s *Suppressor) NoiseFloor() float64 { return s.floor }

// SetThreshold overrides the gate threshold.
func (s *Suppressor) SetThreshold(threshold float64) {
	s.threshold = threshold
}

// Filter attenuates noise in place: a soft gate scales whole frames
// whose energy sits under the floor headroom, then spectral subtraction
// shrinks each sample's magnitude by part of the floor.
func (s *Suppressor) Filter(samples []float32) {
	if len(samples) == 0 {
		return
	}

	energy := frameEnergy(samples)

	bound := s.floor * gateHeadroom
	if bound > 0 && energy < bound {
		reduction := math.Min(1, energy/bound)
		reduction *= reduction
		for i := range samples {
			samples[i] *= float32(reduction)
		}
	}

	if !s.calibrated {
		return
	}
	for i, sample := range samples {
		sign := float32(1)
		if sample < 0 {
			sign = -1
		}
		magnitude := math.Abs(float64(sample))
		filtered := math.Max(0, magnitude-s.floor*subtractionFactor)
		if magnitude < s.floor {
			filtered *= residualGain
		}
		samples[i] = sign * float32(filtered)
	}
}

func frameEnergy(samples []float32) float64 {
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return sum / float64(len(samples))
}
