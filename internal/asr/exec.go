package asr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/harklabs/hark/internal/config"
)

// execSession shells out to an external recognizer once per utterance.
// Audio accumulates until FinalResult writes it to a temporary WAV file
// and runs the configured command, which must print JSON with "text"
// and optional "confidence" on stdout.
type execSession struct {
	mu         sync.Mutex
	cmd        []string
	modelPath  string
	language   string
	sampleRate int
	pcm        []byte
}

type execPayload struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

func newExecSession(cfg config.EngineConfig) (Session, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &execSession{
		cmd:        args,
		modelPath:  cfg.ModelPath,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
	}, nil
}

func (s *execSession) AcceptWaveform(pcm []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcm = append(s.pcm, pcm...)
	return false, nil
}

func (s *execSession) Result() string {
	return `{"text": ""}`
}

func (s *execSession) PartialResult() string {
	return `{"partial": ""}`
}

func (s *execSession) FinalResult() string {
	s.mu.Lock()
	pcm := s.pcm
	s.pcm = nil
	s.mu.Unlock()

	payload, err := s.run(pcm)
	if err != nil {
		return `{"text": ""}`
	}
	return payload
}

func (s *execSession) run(pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return `{"text": ""}`, nil
	}

	file, err := os.CreateTemp("", "hark_asr_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writePCMToWav(file, pcm, s.sampleRate); err != nil {
		return "", err
	}

	args := append([]string{}, s.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if s.modelPath != "" {
		args = append(args, "--model", s.modelPath)
	}
	if s.language != "" {
		args = append(args, "--language", s.language)
	}

	command := exec.Command(s.cmd[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("engine command failed: %w: %s", err, stderr.String())
	}

	var resp execPayload
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode engine response: %w", err)
	}

	out := map[string]any{"text": resp.Text}
	if resp.Confidence != nil {
		out["result"] = []map[string]float64{{"conf": *resp.Confidence}}
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(encoded), nil
}

func (s *execSession) Reset() {
	s.mu.Lock()
	s.pcm = nil
	s.mu.Unlock()
}

func (s *execSession) Close() error {
	return nil
}

func writePCMToWav(file *os.File, pcm []byte, sampleRate int) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buffer := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   samples,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
