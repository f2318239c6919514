package asr

import (
	"fmt"

	"github.com/harklabs/hark/internal/config"
)

// Session is one recognizer instance. Implementations return results as
// JSON payloads in the vosk shape ("text" for finals, "partial" for
// hypotheses, optional "result" word list with per-word "conf"), which
// parseResult understands regardless of backend.
type Session interface {
	// AcceptWaveform feeds little-endian 16-bit PCM and reports whether
	// the recognizer finalized an utterance on this frame.
	AcceptWaveform(pcm []byte) (bool, error)

	// Result returns the payload for the last finalized utterance.
	Result() string

	// PartialResult returns the payload for the hypothesis in flight.
	PartialResult() string

	// FinalResult flushes any buffered audio and returns the closing
	// payload for the current utterance.
	FinalResult() string

	// Reset discards recognizer state between utterances.
	Reset()

	Close() error
}

// openSession builds a Session for the configured backend. Overridable
// for tests.
var openSession = func(cfg config.EngineConfig) (Session, error) {
	switch cfg.Mode {
	case "vosk":
		return newVoskSession(cfg)
	case "whisper":
		return newWhisperSession(cfg)
	case "exec":
		return newExecSession(cfg)
	case "mock":
		return newMockSession(), nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}
