package archive

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Archive writes finalized utterance audio to WAV files for later
// inspection.
type Archive struct {
	dir        string
	sampleRate int
	log        *slog.Logger
	clock      func() time.Time
}

func New(dir string, sampleRate int, log *slog.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Archive{dir: dir, sampleRate: sampleRate, log: log, clock: time.Now}, nil
}

// Save writes one utterance as a mono 16-bit WAV file and returns its
// path. Empty utterances are skipped.
func (a *Archive) Save(utteranceID string, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("%s_%s.wav", a.clock().UTC().Format("20060102T150405"), utteranceID)
	path := filepath.Join(a.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer file.Close()

	data := make([]int, len(samples))
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		data[i] = int(int16(sample * math.MaxInt16))
	}
	buffer := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: a.sampleRate},
		Data:   data,
	}

	enc := wav.NewEncoder(file, a.sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return "", fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("close wav encoder: %w", err)
	}

	a.log.Debug("archived utterance", slog.String("path", path), slog.Int("samples", len(samples)))
	return path, nil
}
