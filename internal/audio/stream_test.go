package audio

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeHandle stands in for the PortAudio stream handle.
type fakeHandle struct {
	startErr error
	stopped  bool
	closed   bool
}

func (f *fakeHandle) Start() error { return f.startErr }
func (f *fakeHandle) Stop() error  { f.stopped = true; return nil }
func (f *fakeHandle) Close() error { f.closed = true; return nil }

// withFakeHardware reroutes the hardware-facing seams for one test.
func withFakeHardware(t *testing.T, handle *fakeHandle, openErr error) {
	t.Helper()
	origOpen, origInit, origCheck := openStream, ensureInitialized, checkDevice
	openStream = func(s *Stream) (paStream, error) {
		if openErr != nil {
			return nil, openErr
		}
		return handle, nil
	}
	ensureInitialized = func() error { return nil }
	checkDevice = func(deviceID, sampleRate int) bool { return true }
	t.Cleanup(func() {
		openStream, ensureInitialized, checkDevice = origOpen, origInit, origCheck
	})
}

func TestStartActivatesStream(t *testing.T) {
	handle := &fakeHandle{}
	withFakeHardware(t, handle, nil)

	s := NewStream(0, 16000, 320, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Active() {
		t.Fatal("expected active stream after start")
	}
	if s.LastError() != "" {
		t.Fatalf("unexpected recorded error: %q", s.LastError())
	}

	s.callback(make([]float32, 320))
	chunk, ok := s.NextChunk(10 * time.Millisecond)
	if !ok || chunk.Len() != 320 {
		t.Fatal("expected a full chunk from the started stream")
	}

	s.Stop()
	if !handle.stopped || !handle.closed {
		t.Fatal("stop must stop and close the hardware handle")
	}
	if s.Active() {
		t.Fatal("expected inactive stream after stop")
	}
}

func TestStartRecordsOpenFailure(t *testing.T) {
	withFakeHardware(t, nil, errHardware)

	s := NewStream(0, 16000, 320, testLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail when the stream cannot open")
	}
	if s.Active() {
		t.Fatal("stream must stay inactive on open failure")
	}
	if s.LastError() == "" {
		t.Fatal("open failure must be recorded in LastError")
	}
}

func TestStartClosesHandleOnStartFailure(t *testing.T) {
	handle := &fakeHandle{startErr: errHardware}
	withFakeHardware(t, handle, nil)

	s := NewStream(0, 16000, 320, testLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail when the handle cannot start")
	}
	if !handle.closed {
		t.Fatal("failed handle must be closed")
	}
	if s.Active() {
		t.Fatal("stream must stay inactive on start failure")
	}
	if s.LastError() == "" {
		t.Fatal("start failure must be recorded in LastError")
	}
}

func TestStartRejectsIncompatibleDevice(t *testing.T) {
	withFakeHardware(t, &fakeHandle{}, nil)
	checkDevice = func(deviceID, sampleRate int) bool { return false }

	s := NewStream(0, 16000, 320, testLogger())
	if err := s.Start(); err == nil {
		t.Fatal("expected start to fail for an incompatible device")
	}
	if s.LastError() == "" {
		t.Fatal("compatibility failure must be recorded in LastError")
	}
}

var errHardware = &hardwareError{}

type hardwareError struct{}

func (*hardwareError) Error() string { return "device unavailable" }

func TestNextChunkInactiveStream(t *testing.T) {
	s := NewStream(0, 16000, 320, testLogger())
	if _, ok := s.NextChunk(10 * time.Millisecond); ok {
		t.Fatal("inactive stream must not return chunks")
	}
}

func TestCallbackDiscardsWhilePaused(t *testing.T) {
	s := NewStream(0, 16000, 320, testLogger())

	s.Pause()
	s.callback(make([]float32, 320))
	if s.Ring().Available() != 0 {
		t.Fatalf("paused callback must discard input, buffered %d", s.Ring().Available())
	}

	s.Resume()
	s.callback(make([]float32, 320))
	if s.Ring().Available() != 320 {
		t.Fatalf("expected 320 buffered samples after resume, got %d", s.Ring().Available())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewStream(0, 16000, 320, testLogger())
	s.callback(make([]float32, 320))
	s.Pause()

	s.Stop()
	s.Stop()

	if s.Ring().Available() != 0 {
		t.Fatal("stop must clear the ring")
	}
	if s.Paused() {
		t.Fatal("stop must reset pause state")
	}
}

func TestStreamParametersImmutable(t *testing.T) {
	s := NewStream(3, 48000, 480, testLogger())
	if s.DeviceID() != 3 || s.SampleRate() != 48000 || s.FramesPerBuffer() != 480 {
		t.Fatalf("constructor parameters not preserved: %d %d %d",
			s.DeviceID(), s.SampleRate(), s.FramesPerBuffer())
	}
}
