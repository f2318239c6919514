package asr

import (
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/harklabs/hark/internal/config"
)

type voskSession struct {
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

func newVoskSession(cfg config.EngineConfig) (Session, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("vosk model path: %w", err)
	}

	model, err := vosk.NewModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(cfg.SampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}
	// Word-level output carries per-word confidence.
	rec.SetWords(1)

	return &voskSession{model: model, recognizer: rec}, nil
}

func (s *voskSession) AcceptWaveform(pcm []byte) (bool, error) {
	return s.recognizer.AcceptWaveform(pcm) != 0, nil
}

func (s *voskSession) Result() string {
	return s.recognizer.Result()
}

func (s *voskSession) PartialResult() string {
	return s.recognizer.PartialResult()
}

func (s *voskSession) FinalResult() string {
	return s.recognizer.FinalResult()
}

func (s *voskSession) Reset() {
	s.recognizer.Reset()
}

func (s *voskSession) Close() error {
	if s.recognizer != nil {
		s.recognizer.Free()
		s.recognizer = nil
	}
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}
