package asr

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/harklabs/hark/internal/config"
)

// whisperSession adapts whisper.cpp, which has no streaming decoder, to
// the Session contract: audio accumulates until FinalResult runs a full
// pass over the buffered utterance. Partial payloads stay empty.
type whisperSession struct {
	mu       sync.Mutex
	model    whisper.Model
	language string
	samples  []float32
}

func newWhisperSession(cfg config.EngineConfig) (Session, error) {
	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &whisperSession{model: model, language: cfg.Language}, nil
}

func (s *whisperSession) AcceptWaveform(pcm []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, floatFromPCM16(pcm)...)
	return false, nil
}

func (s *whisperSession) Result() string {
	return `{"text": ""}`
}

func (s *whisperSession) PartialResult() string {
	return `{"partial": ""}`
}

func (s *whisperSession) FinalResult() string {
	s.mu.Lock()
	samples := s.samples
	s.samples = nil
	s.mu.Unlock()

	text, err := s.decode(samples)
	if err != nil {
		return `{"text": ""}`
	}
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return `{"text": ""}`
	}
	return string(payload)
}

func (s *whisperSession) decode(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	ctx, err := s.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}
	ctx.SetTranslate(false)
	if s.language != "" {
		if err := ctx.SetLanguage(s.language); err != nil {
			return "", fmt.Errorf("whisper language: %w", err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var text strings.Builder
	for {
		segment, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		text.WriteString(segment.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

func (s *whisperSession) Reset() {
	s.mu.Lock()
	s.samples = nil
	s.mu.Unlock()
}

func (s *whisperSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		err := s.model.Close()
		s.model = nil
		return err
	}
	return nil
}
