package archive

import (
	"io"
	"log/slog"
	"os"
	"testing"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveWritesWav(t *testing.T) {
	a, err := New(t.TempDir(), 16000, newLogger())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}

	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.25
	}
	path, err := a.Save("utt-1", samples)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path == "" {
		t.Fatal("expected a file path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive file: %v", err)
	}
	if len(data) < 44 {
		t.Fatalf("file too small for a wav header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a wav file: %q %q", data[0:4], data[8:12])
	}
}

func TestSaveSkipsEmptyUtterance(t *testing.T) {
	a, err := New(t.TempDir(), 16000, newLogger())
	if err != nil {
		t.Fatalf("new archive: %v", err)
	}
	path, err := a.Save("utt-empty", nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path for empty utterance, got %q", path)
	}
}
