package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harklabs/hark/internal/archive"
	"github.com/harklabs/hark/internal/asr"
	"github.com/harklabs/hark/internal/audio"
	"github.com/harklabs/hark/internal/bus"
	"github.com/harklabs/hark/internal/config"
	"github.com/harklabs/hark/internal/natsserver"
	"github.com/harklabs/hark/internal/pipeline"
	"github.com/harklabs/hark/internal/store"
	"github.com/harklabs/hark/internal/vad"
)

// Runtime wires the dictation daemon together: telemetry, the optional
// embedded bus, the transcript store, audio capture and the pipeline.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	httpServer *http.Server
	tel        *telemetry
	bus        *bus.Client
	engine     *asr.Engine
	stream     *audio.Stream
	ready      atomic.Bool
	wg         sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings every component up, runs until the context is canceled
// and tears everything down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tel = tel

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	if r.cfg.Bus.Enabled {
		r.bus, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		defer r.bus.Close()
	}

	transcripts, err := store.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}
	defer transcripts.Close()

	detector, err := vad.NewDetector(r.cfg.Capture.SampleRate, r.cfg.VAD.FrameDurationMS, r.cfg.VAD.Aggressiveness)
	if err != nil {
		return fmt.Errorf("failed to create voice activity detector: %w", err)
	}
	if detector.FrameSize() != r.cfg.Capture.FramesPerBuffer {
		return fmt.Errorf("frames_per_buffer %d does not match the %dms detector frame of %d samples",
			r.cfg.Capture.FramesPerBuffer, r.cfg.VAD.FrameDurationMS, detector.FrameSize())
	}

	r.engine = asr.NewEngine(r.cfg.Engine, r.logger)
	r.engine.EnableNoiseFiltering(r.cfg.Noise.Enabled)
	defer func() {
		if err := r.engine.Close(); err != nil {
			r.logger.Error("engine shutdown error", slog.String("error", err.Error()))
		}
	}()

	r.stream = audio.NewStream(r.cfg.Capture.DeviceID, r.cfg.Capture.SampleRate, r.cfg.Capture.FramesPerBuffer, r.logger)
	if err := r.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	defer func() {
		r.stream.Stop()
		audio.Terminate()
	}()

	opts := pipeline.Options{
		Overflowed: r.stream.Ring().TakeOverflow,
	}
	if r.bus != nil {
		opts.Publisher = r.bus
	}
	if r.cfg.Store.Enabled {
		opts.Transcripts = transcripts
	}
	if r.cfg.Archive.Enabled {
		arch, err := archive.New(r.cfg.Archive.Directory, r.cfg.Capture.SampleRate, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create utterance archive: %w", err)
		}
		opts.Archive = arch
	}

	svc := pipeline.New(
		r.stream,
		detector,
		r.engine,
		time.Duration(r.cfg.Capture.ChunkTimeoutMS)*time.Millisecond,
		opts,
		r.logger,
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("pipeline failed", slog.String("error", err.Error()))
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	r.tel.mount(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("session_id", svc.SessionID()),
		slog.String("engine_mode", r.cfg.Engine.Mode))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	r.wg.Wait()

	if r.tel != nil {
		if err := r.tel.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	busOK := !r.cfg.Bus.Enabled || r.bus.Healthy()
	if r.ready.Load() && r.engine != nil && r.engine.Ready() && busOK {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
