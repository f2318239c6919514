package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/harklabs/hark/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenDisabled(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Enabled: false}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Append(context.Background(), Utterance{SessionID: "s", Text: "ignored"}); err != nil {
		t.Fatalf("append on disabled store: %v", err)
	}
	got, err := s.List(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("list on disabled store: %v", err)
	}
	if got != nil {
		t.Fatalf("disabled store must return nothing, got %v", got)
	}
}

func TestAppendAndList(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.StoreConfig{Enabled: true, Path: filepath.Join(tmp, "transcripts.db")}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	u := Utterance{
		SessionID:   "session-1",
		UtteranceID: "utt-1",
		Text:        "hello world",
		Confidence:  0.92,
	}
	if err := s.Append(context.Background(), u); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := s.List(context.Background(), "session-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	if got[0].Text != "hello world" || got[0].UtteranceID != "utt-1" {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestPruneByAgeAndCount(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.StoreConfig{
		Enabled:       true,
		Path:          filepath.Join(tmp, "transcripts.db"),
		RetentionDays: 1,
		MaxUtterances: 1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Utterance{SessionID: "s", UtteranceID: "old", Text: "old"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Utterance{SessionID: "s", UtteranceID: "new", Text: "new"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	got, err := s.List(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].UtteranceID != "new" {
		t.Fatalf("expected only the recent utterance, got %+v", got)
	}
}
