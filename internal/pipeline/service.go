package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/harklabs/hark/internal/asr"
	"github.com/harklabs/hark/internal/audio"
	"github.com/harklabs/hark/internal/protocol"
	"github.com/harklabs/hark/internal/store"
)

// ChunkSource hands out captured audio chunks.
type ChunkSource interface {
	NextChunk(timeout time.Duration) (*audio.Chunk, bool)
}

// SpeechDetector classifies one frame as speech or silence.
type SpeechDetector interface {
	IsSpeech(frame []float32) bool
}

// Transcriber turns gated audio frames into transcription results.
type Transcriber interface {
	TranscribeWithNoiseFiltering(chunk *audio.Chunk, isSpeech bool) (asr.Result, error)
}

// Publisher broadcasts transcripts to interested consumers.
type Publisher interface {
	PublishTranscript(t protocol.Transcript) error
}

// TranscriptStore persists finalized utterances.
type TranscriptStore interface {
	Append(ctx context.Context, u store.Utterance) error
}

// Archiver keeps the raw audio of finalized utterances.
type Archiver interface {
	Save(utteranceID string, samples []float32) (string, error)
}

// Service runs the capture-to-transcript loop: pull a chunk, gate it
// through the speech detector, feed the recognizer and fan finalized
// utterances out to the bus, the store and the archive.
type Service struct {
	source      ChunkSource
	detector    SpeechDetector
	transcriber Transcriber
	publisher   Publisher
	transcripts TranscriptStore
	archive     Archiver
	overflowed  func() bool
	log         *slog.Logger

	chunkTimeout time.Duration
	sessionID    string

	utteranceID string
	utterance   []float32

	chunksTotal    metric.Int64Counter
	speechFrames   metric.Int64Counter
	utterancesDone metric.Int64Counter
	overflows      metric.Int64Counter
}

// Options carries the optional pipeline collaborators. Nil fields
// disable the corresponding fan-out.
type Options struct {
	Publisher   Publisher
	Transcripts TranscriptStore
	Archive     Archiver
	Overflowed  func() bool
}

func New(source ChunkSource, detector SpeechDetector, transcriber Transcriber, chunkTimeout time.Duration, opts Options, log *slog.Logger) *Service {
	meter := otel.Meter("github.com/harklabs/hark/pipeline")
	chunksTotal, _ := meter.Int64Counter("hark.pipeline.chunks", metric.WithDescription("Audio chunks processed"))
	speechFrames, _ := meter.Int64Counter("hark.pipeline.speech_frames", metric.WithDescription("Chunks classified as speech"))
	utterancesDone, _ := meter.Int64Counter("hark.pipeline.utterances", metric.WithDescription("Finalized utterances"))
	overflows, _ := meter.Int64Counter("hark.pipeline.overflows", metric.WithDescription("Ring buffer overflows observed"))

	return &Service{
		source:         source,
		detector:       detector,
		transcriber:    transcriber,
		publisher:      opts.Publisher,
		transcripts:    opts.Transcripts,
		archive:        opts.Archive,
		overflowed:     opts.Overflowed,
		log:            log,
		chunkTimeout:   chunkTimeout,
		sessionID:      uuid.NewString(),
		chunksTotal:    chunksTotal,
		speechFrames:   speechFrames,
		utterancesDone: utterancesDone,
		overflows:      overflows,
	}
}

// SessionID identifies this capture session on the bus and in the
// store.
func (s *Service) SessionID() string {
	return s.sessionID
}

// Run processes chunks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("pipeline started", slog.String("session_id", s.sessionID))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("pipeline stopped", slog.String("session_id", s.sessionID))
			return ctx.Err()
		default:
		}
		s.step(ctx)
	}
}

func (s *Service) step(ctx context.Context) {
	chunk, ok := s.source.NextChunk(s.chunkTimeout)
	if !ok {
		return
	}
	s.chunksTotal.Add(ctx, 1)

	if s.overflowed != nil && s.overflowed() {
		s.overflows.Add(ctx, 1)
		s.log.Warn("capture ring overflowed, oldest audio dropped")
	}

	isSpeech := s.detector.IsSpeech(chunk.Samples())
	if isSpeech {
		s.speechFrames.Add(ctx, 1)
		if s.utteranceID == "" {
			s.utteranceID = uuid.NewString()
		}
		s.utterance = append(s.utterance, chunk.Samples()...)
	}

	result, err := s.transcriber.TranscribeWithNoiseFiltering(chunk, isSpeech)
	if err != nil {
		s.log.Warn("transcription failed", slog.String("error", err.Error()))
		return
	}

	if result.ProcessedText != "" {
		s.publish(result)
	}
	if result.Final {
		s.finishUtterance(ctx, result)
	}
}

func (s *Service) publish(result asr.Result) {
	if s.publisher == nil {
		return
	}
	t := protocol.Transcript{
		SessionID:   s.sessionID,
		UtteranceID: s.utteranceID,
		Text:        result.ProcessedText,
		Partial:     !result.Final,
		Confidence:  result.Confidence,
		Timestamp:   time.UnixMilli(result.TimestampMS).UTC(),
	}
	if err := s.publisher.PublishTranscript(t); err != nil {
		s.log.Warn("failed to publish transcript", slog.String("error", err.Error()))
	}
}

func (s *Service) finishUtterance(ctx context.Context, result asr.Result) {
	defer func() {
		s.utteranceID = ""
		s.utterance = nil
	}()

	if result.ProcessedText == "" {
		return
	}
	s.utterancesDone.Add(ctx, 1)

	if s.transcripts != nil {
		u := store.Utterance{
			SessionID:   s.sessionID,
			UtteranceID: s.utteranceID,
			Text:        result.ProcessedText,
			Confidence:  result.Confidence,
		}
		if err := s.transcripts.Append(ctx, u); err != nil {
			s.log.Warn("failed to store transcript", slog.String("error", err.Error()))
		}
	}
	if s.archive != nil {
		if _, err := s.archive.Save(s.utteranceID, s.utterance); err != nil {
			s.log.Warn("failed to archive utterance", slog.String("error", err.Error()))
		}
	}
}
