package runtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harklabs/hark/internal/asr"
	"github.com/harklabs/hark/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyStatus(r *Runtime) int {
	rec := httptest.NewRecorder()
	r.handleReady(rec, nil)
	return rec.Code
}

func TestReadinessProbe(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Enabled = false
	rt := New(cfg, testLogger())

	if readyStatus(rt) != http.StatusServiceUnavailable {
		t.Fatal("runtime without an engine must not report ready")
	}

	rt.engine = asr.NewEngine(config.EngineConfig{Mode: "mock", SampleRate: 16000}, testLogger())
	t.Cleanup(func() { _ = rt.engine.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for !rt.engine.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("engine never became ready")
		}
		time.Sleep(time.Millisecond)
	}

	if readyStatus(rt) != http.StatusServiceUnavailable {
		t.Fatal("runtime must not report ready before startup completes")
	}

	rt.ready.Store(true)
	if readyStatus(rt) != http.StatusOK {
		t.Fatal("expected ready with a loaded engine and the bus disabled")
	}

	// An enabled bus with no live connection fails the probe.
	rt.cfg.Bus.Enabled = true
	if readyStatus(rt) != http.StatusServiceUnavailable {
		t.Fatal("enabled bus without a connection must fail readiness")
	}
}

func TestHealthEndpoint(t *testing.T) {
	rt := New(config.Default(), testLogger())
	rec := httptest.NewRecorder()
	rt.handleHealth(rec, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", rec.Code)
	}
}
