package asr

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harklabs/hark/internal/audio"
	"github.com/harklabs/hark/internal/config"
	"github.com/harklabs/hark/internal/noise"
)

// closeWait bounds how long Close waits for a model load still in
// flight before abandoning it.
const closeWait = 5 * time.Second

// Load progress checkpoints reported while the model initializes.
const (
	progressStarted    = 0.1
	progressValidating = 0.2
	progressModel      = 0.7
	progressLoaded     = 0.9
	progressReady      = 1.0
)

// Engine drives a recognizer Session through the utterance lifecycle:
// model loading in the background, frame-by-frame transcription, the
// speech/silence state machine, and optional noise filtering in front
// of the recognizer.
type Engine struct {
	cfg config.EngineConfig
	log *slog.Logger

	loading  atomic.Bool
	loaded   atomic.Bool
	progress atomic.Uint64
	loadDone chan struct{}

	mu           sync.Mutex
	session      Session
	loadErr      error
	speechActive bool

	suppressor   *noise.Suppressor
	noiseEnabled atomic.Bool
}

// NewEngine starts loading the configured backend in the background and
// returns immediately. Transcribe reports placeholder results until the
// load completes.
func NewEngine(cfg config.EngineConfig, log *slog.Logger) *Engine {
	e := &Engine{
		cfg:        cfg,
		log:        log,
		loadDone:   make(chan struct{}),
		suppressor: noise.NewSuppressor(),
	}
	e.loading.Store(true)
	e.setProgress(progressStarted)
	go e.loadModel()
	return e
}

func (e *Engine) loadModel() {
	defer close(e.loadDone)
	defer e.loading.Store(false)

	e.setProgress(progressValidating)
	e.log.Info("loading recognizer", slog.String("mode", e.cfg.Mode), slog.String("model", e.cfg.ModelPath))

	session, err := openSession(e.cfg)
	if err != nil {
		e.mu.Lock()
		e.loadErr = fmt.Errorf("load recognizer: %w", err)
		e.mu.Unlock()
		e.log.Error("recognizer load failed", slog.String("error", err.Error()))
		return
	}
	e.setProgress(progressModel)

	e.mu.Lock()
	e.session = session
	e.mu.Unlock()
	e.setProgress(progressLoaded)

	// Progress reaches completion before Ready flips.
	e.setProgress(progressReady)
	e.loaded.Store(true)
	e.log.Info("recognizer ready", slog.String("mode", e.cfg.Mode))
}

func (e *Engine) setProgress(p float64) {
	e.progress.Store(math.Float64bits(p))
}

// LoadProgress reports model load progress in [0, 1].
func (e *Engine) LoadProgress() float64 {
	return math.Float64frombits(e.progress.Load())
}

// Loading reports whether the model load is still in flight.
func (e *Engine) Loading() bool {
	return e.loading.Load()
}

// Ready reports whether the recognizer accepts audio.
func (e *Engine) Ready() bool {
	return e.loaded.Load()
}

// LoadError returns the load failure, if any.
func (e *Engine) LoadError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// SpeechActive reports whether the engine is inside an utterance.
func (e *Engine) SpeechActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speechActive
}

func (e *Engine) loadingResult() Result {
	pct := int(e.LoadProgress() * 100)
	return textResult(fmt.Sprintf("Loading model... %d%%", pct))
}

// Transcribe feeds one chunk to the recognizer unconditionally and
// returns the partial or final hypothesis it produced.
func (e *Engine) Transcribe(chunk *audio.Chunk) (Result, error) {
	if e.Loading() {
		return e.loadingResult(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return emptyResult(), e.loadErr
	}
	return e.transcribeLocked(chunk)
}

func (e *Engine) transcribeLocked(chunk *audio.Chunk) (Result, error) {
	pcm := pcm16FromFloat(chunk.Samples())

	final, err := e.session.AcceptWaveform(pcm)
	if err != nil {
		return emptyResult(), fmt.Errorf("accept waveform: %w", err)
	}

	var payload string
	if final {
		payload = e.session.Result()
	} else {
		payload = e.session.PartialResult()
	}
	return e.parsePayload(payload)
}

func (e *Engine) parsePayload(payload string) (Result, error) {
	result, err := parseResult(payload)
	if err != nil {
		e.log.Warn("malformed recognizer payload", slog.String("error", err.Error()))
		return result, fmt.Errorf("parse recognizer payload: %w", err)
	}
	return result, nil
}

// TranscribeWithVAD runs the speech gate in front of the recognizer.
// The recognizer resets once when silence turns into speech, sees only
// speech frames, and flushes a single final result when speech turns
// back into silence. Silence outside an utterance yields empty results.
func (e *Engine) TranscribeWithVAD(chunk *audio.Chunk, isSpeech bool) (Result, error) {
	if e.Loading() {
		return e.loadingResult(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return emptyResult(), e.loadErr
	}

	switch {
	case isSpeech && !e.speechActive:
		e.session.Reset()
		e.speechActive = true
		return e.transcribeLocked(chunk)
	case isSpeech:
		return e.transcribeLocked(chunk)
	case e.speechActive:
		e.speechActive = false
		return e.parsePayload(e.session.FinalResult())
	default:
		return emptyResult(), nil
	}
}

// EnableNoiseFiltering toggles the suppression pass in front of the
// recognizer. Filtering still requires a calibrated noise floor.
func (e *Engine) EnableNoiseFiltering(enabled bool) {
	e.noiseEnabled.Store(enabled)
}

// NoiseFilteringEnabled reports whether the suppression pass is on.
func (e *Engine) NoiseFilteringEnabled() bool {
	return e.noiseEnabled.Load()
}

// CalibrateNoiseFilter resets the noise floor from a known-silent frame.
func (e *Engine) CalibrateNoiseFilter(frame []float32) {
	e.suppressor.Calibrate(frame)
}

// NoiseFilterCalibrated reports whether a noise floor is established.
func (e *Engine) NoiseFilterCalibrated() bool {
	return e.suppressor.Calibrated()
}

// TranscribeWithNoiseFiltering is TranscribeWithVAD with the noise
// suppressor applied first. The input chunk is left untouched; the
// filter runs on a copy. Silent frames keep the floor calibrated.
func (e *Engine) TranscribeWithNoiseFiltering(chunk *audio.Chunk, isSpeech bool) (Result, error) {
	filtered := chunk.Clone()
	e.suppressor.AutoCalibrate(filtered.Samples(), isSpeech)
	if e.noiseEnabled.Load() && e.suppressor.Calibrated() {
		e.suppressor.Filter(filtered.Samples())
	}
	return e.TranscribeWithVAD(filtered, isSpeech)
}

// Reset discards recognizer and utterance state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Reset()
	}
	e.speechActive = false
}

// Close waits briefly for an in-flight model load, then releases the
// recognizer. A load that outlives the wait is abandoned.
func (e *Engine) Close() error {
	select {
	case <-e.loadDone:
	case <-time.After(closeWait):
		e.log.Warn("model load still in flight, abandoning", slog.String("mode", e.cfg.Mode))
		return errors.New("close timed out waiting for model load")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		err := e.session.Close()
		e.session = nil
		return err
	}
	return nil
}
