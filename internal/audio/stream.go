package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ringFrames sizes the ring buffer as a multiple of frames-per-buffer,
// roughly two seconds of audio at 16 kHz / 320-sample frames.
const ringFrames = 100

// Stream owns a PortAudio input stream and the ring buffer its callback
// writes into. Device id, sample rate and frames-per-buffer are fixed at
// construction; Start and Stop manage the hardware handle.
type Stream struct {
	deviceID        int
	sampleRate      int
	framesPerBuffer int
	log             *slog.Logger

	mu      sync.Mutex
	handle  paStream
	active  bool
	lastErr string

	paused atomic.Bool
	ring   *Ring
}

// paStream is the slice of the PortAudio stream surface the Stream
// drives, split out so lifecycle logic is testable without hardware.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

// Hardware-facing calls go through these variables so lifecycle tests
// can swap them out and run without a sound card.
var (
	openStream        = openPortAudioStream
	ensureInitialized = EnsureInitialized
	checkDevice       = CheckDeviceCompatibility
)

// NewStream builds an inactive capture stream. Nothing touches the
// hardware until Start.
func NewStream(deviceID, sampleRate, framesPerBuffer int, log *slog.Logger) *Stream {
	return &Stream{
		deviceID:        deviceID,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		log:             log,
		ring:            NewRing(ringFrames * framesPerBuffer),
	}
}

func (s *Stream) DeviceID() int        { return s.deviceID }
func (s *Stream) SampleRate() int      { return s.sampleRate }
func (s *Stream) FramesPerBuffer() int { return s.framesPerBuffer }

// Ring exposes the capture buffer so the pipeline can observe overflow.
func (s *Stream) Ring() *Ring { return s.ring }

// LastError returns the message recorded by the most recent failing
// operation.
func (s *Stream) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Stream) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// Start validates the device and format, opens the hardware handle bound
// to the capture callback, and activates it. Errors are recorded in
// LastError and returned; the stream stays inactive on failure.
func (s *Stream) Start() error {
	s.Stop()

	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.ring.Clear()
	s.paused.Store(false)

	if err := ensureInitialized(); err != nil {
		s.setError(err.Error())
		return err
	}
	if !checkDevice(s.deviceID, s.sampleRate) {
		err := fmt.Errorf("device %d does not support input at %d Hz", s.deviceID, s.sampleRate)
		s.setError(err.Error())
		return err
	}

	handle, err := openStream(s)
	if err != nil {
		err = fmt.Errorf("open stream: %w", err)
		s.setError(err.Error())
		return err
	}
	if err := handle.Start(); err != nil {
		_ = handle.Close()
		err = fmt.Errorf("start stream: %w", err)
		s.setError(err.Error())
		return err
	}

	s.mu.Lock()
	s.handle = handle
	s.active = true
	s.mu.Unlock()

	s.log.Info("capture stream started",
		slog.Int("device", s.deviceID),
		slog.Int("sample_rate", s.sampleRate),
		slog.Int("frames_per_buffer", s.framesPerBuffer))
	return nil
}

// callback runs on the real-time thread. It must return promptly: while
// paused it discards input to keep the hardware stream alive, otherwise
// it performs one bounded copy into the ring.
func (s *Stream) callback(in []float32) {
	if s.paused.Load() {
		return
	}
	s.ring.Write(in)
}

// Stop deactivates and releases the hardware handle and clears the
// buffer. Idempotent; partial failures are logged and cleanup proceeds.
func (s *Stream) Stop() {
	s.mu.Lock()
	handle := s.handle
	s.handle = nil
	s.active = false
	s.mu.Unlock()

	if handle != nil {
		if err := handle.Stop(); err != nil {
			s.setError(fmt.Sprintf("stop stream: %v", err))
			s.log.Warn("failed to stop capture stream", slog.String("error", err.Error()))
		}
		if err := handle.Close(); err != nil {
			s.setError(fmt.Sprintf("close stream: %v", err))
			s.log.Warn("failed to close capture stream", slog.String("error", err.Error()))
		}
	}

	s.ring.Clear()
	s.paused.Store(false)
}

// Pause keeps the hardware stream running but makes the callback discard
// incoming data.
func (s *Stream) Pause() {
	s.paused.Store(true)
}

// Resume re-enables buffering after Pause.
func (s *Stream) Resume() {
	s.paused.Store(false)
}

// Paused reports whether the stream is discarding input.
func (s *Stream) Paused() bool {
	return s.paused.Load()
}

// Active reports whether the hardware handle is open and running.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NextChunk waits up to timeout for a full frames-per-buffer block and
// returns it as a freshly allocated chunk. Returns false when the stream
// is inactive or paused, or when the timeout elapses first.
func (s *Stream) NextChunk(timeout time.Duration) (*Chunk, bool) {
	if !s.Active() || s.paused.Load() {
		return nil, false
	}
	if !s.ring.WaitForData(s.framesPerBuffer, timeout) {
		return nil, false
	}
	chunk := NewChunk(s.framesPerBuffer)
	if s.ring.Read(chunk.Samples()) != s.framesPerBuffer {
		return nil, false
	}
	return chunk, true
}
