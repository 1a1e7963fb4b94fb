package transcribe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/transcribe"
	"meeting-transcription-engine/internal/transcribe/simulated"
)

func newClient(fallbacks ...string) *transcribe.Client {
	return transcribe.NewClient(transcribe.Options{
		CallTimeout:   time.Second,
		LoadAttempts:  2,
		LoadBackoff:   time.Millisecond,
		FallbackOrder: fallbacks,
	})
}

func TestModelStatus_String(t *testing.T) {
	tests := []struct {
		status transcribe.ModelStatus
		want   string
	}{
		{transcribe.StatusUnloaded, "UNLOADED"},
		{transcribe.StatusLoading, "LOADING"},
		{transcribe.StatusReady, "READY"},
		{transcribe.StatusError, "ERROR"},
		{transcribe.ModelStatus(42), "UNKNOWN(42)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String(%d) = %s, want %s", int(tt.status), got, tt.want)
		}
	}
}

func TestLoadModel_RetriesWithinBudget(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", 1, errors.New("transient"))

	c := newClient()
	c.Register("whisper-base", p)

	if err := c.LoadModel(context.Background(), "whisper-base"); err != nil {
		t.Fatalf("expected load to succeed on second attempt, got %v", err)
	}
	if got := c.Status("whisper-base"); got != transcribe.StatusReady {
		t.Errorf("expected READY after load, got %s", got)
	}
}

func TestLoadModel_ExhaustsBudget(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", -1, errors.New("provider down"))

	c := newClient()
	c.Register("whisper-base", p)

	err := c.LoadModel(context.Background(), "whisper-base")
	if !errors.Is(err, transcribe.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if got := c.Status("whisper-base"); got != transcribe.StatusError {
		t.Errorf("expected ERROR after exhausted budget, got %s", got)
	}
}

func TestLoadModel_UnknownModel(t *testing.T) {
	c := newClient()
	if err := c.LoadModel(context.Background(), "no-such-model"); !errors.Is(err, transcribe.ErrModelUnknown) {
		t.Fatalf("expected ErrModelUnknown, got %v", err)
	}
}

func TestEnsureLoaded_SkipsReadyModel(t *testing.T) {
	p := simulated.New()
	c := newClient()
	c.Register("whisper-base", p)

	if err := c.LoadModel(context.Background(), "whisper-base"); err != nil {
		t.Fatalf("load: %v", err)
	}

	// A ready model must not be probed again: injected failures would
	// surface if EnsureLoaded re-ran the probe.
	p.FailModel("whisper-base", -1, errors.New("must not be called"))
	if err := c.EnsureLoaded(context.Background(), "whisper-base"); err != nil {
		t.Fatalf("expected EnsureLoaded to be a no-op on ready model, got %v", err)
	}
}

func TestTranscribe_FallsBackOnce(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", -1, errors.New("primary down"))

	c := newClient("whisper-base", "whisper-tiny")
	c.Register("whisper-base", p)
	c.Register("whisper-tiny", p)

	res, err := c.Transcribe(context.Background(), transcribe.Request{
		Model:      "whisper-base",
		Audio:      transcribe.SmokeAudio(16000),
		SampleRate: 16000,
	})
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if res.Model != "whisper-tiny" {
		t.Errorf("expected result from fallback model whisper-tiny, got %s", res.Model)
	}
	if res.Text == "" {
		t.Error("expected non-empty fallback transcription")
	}
}

func TestTranscribe_FallbackFailureSurfacesOriginalError(t *testing.T) {
	p := simulated.New()
	original := errors.New("primary exploded")
	p.FailModel("whisper-base", -1, original)
	p.FailModel("whisper-tiny", -1, errors.New("fallback exploded"))

	c := newClient("whisper-base", "whisper-tiny")
	c.Register("whisper-base", p)
	c.Register("whisper-tiny", p)

	_, err := c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"})
	if !errors.Is(err, original) {
		t.Fatalf("expected the original error surfaced, got %v", err)
	}
}

func TestTranscribe_NoFallbackConfigured(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", -1, errors.New("down"))

	c := newClient()
	c.Register("whisper-base", p)

	if _, err := c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"}); err == nil {
		t.Fatal("expected error with no fallback configured")
	}
}

func TestTranscribe_InvalidAudioIsNotRetried(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", -1, transcribe.ErrInvalidAudio)

	c := newClient("whisper-base", "whisper-tiny")
	c.Register("whisper-base", p)
	c.Register("whisper-tiny", p)

	_, err := c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"})
	if !errors.Is(err, transcribe.ErrInvalidAudio) {
		t.Fatalf("expected ErrInvalidAudio surfaced, got %v", err)
	}
	if perf := c.PerformanceSnapshot()["whisper-tiny"]; perf.UsageCount != 0 {
		t.Errorf("expected fallback untouched for invalid audio, got %d attempts", perf.UsageCount)
	}
}

func TestTranscribe_TimeoutClassified(t *testing.T) {
	p := simulated.New()
	p.SetLatency(200 * time.Millisecond)

	c := transcribe.NewClient(transcribe.Options{
		CallTimeout:  20 * time.Millisecond,
		LoadAttempts: 1,
		LoadBackoff:  time.Millisecond,
	})
	c.Register("whisper-base", p)

	_, err := c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := transcribe.Classify(err); kind != models.FailureTimeout {
		t.Errorf("expected FailureTimeout, got %s (err: %v)", kind, err)
	}
}

func TestPerformance_FailuresDoNotUpdateConfidence(t *testing.T) {
	p := simulated.New()
	p.FailModel("whisper-base", -1, errors.New("down"))

	c := newClient()
	c.Register("whisper-base", p)

	for i := 0; i < 3; i++ {
		c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"})
	}

	perf := c.PerformanceSnapshot()["whisper-base"]
	if perf.UsageCount != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", perf.UsageCount)
	}
	if perf.SuccessRate != 0 {
		t.Errorf("expected success rate 0, got %v", perf.SuccessRate)
	}
	if perf.EMAConfidence != 0 {
		t.Errorf("expected confidence untouched by failures, got %v", perf.EMAConfidence)
	}
	if perf.EMALatencySeconds <= 0 {
		t.Errorf("expected latency recorded for failed attempts, got %v", perf.EMALatencySeconds)
	}
}

func TestGetBestPerformingModel(t *testing.T) {
	healthy := simulated.New()
	flaky := simulated.New()
	flaky.FailModel("whisper-tiny", -1, errors.New("down"))

	c := newClient()
	c.Register("whisper-base", healthy)
	c.Register("whisper-tiny", flaky)

	if _, ok := c.GetBestPerformingModel(); ok {
		t.Fatal("expected no best model before any load")
	}

	if err := c.LoadModel(context.Background(), "whisper-base"); err != nil {
		t.Fatalf("load whisper-base: %v", err)
	}

	// Drive traffic so the composite score separates the models.
	for i := 0; i < 4; i++ {
		c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-base"})
		c.Transcribe(context.Background(), transcribe.Request{Model: "whisper-tiny"})
	}

	best, ok := c.GetBestPerformingModel()
	if !ok {
		t.Fatal("expected a best model")
	}
	if best != "whisper-base" {
		t.Errorf("expected whisper-base to outrank the failing model, got %s", best)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.FailureKind
	}{
		{"timeout", transcribe.ErrModelTimeout, models.FailureTimeout},
		{"deadline", context.DeadlineExceeded, models.FailureTimeout},
		{"rate limited", transcribe.ErrRateLimited, models.FailureRateLimited},
		{"network", transcribe.ErrNetwork, models.FailureNetwork},
		{"invalid audio", transcribe.ErrInvalidAudio, models.FailureInvalidAudio},
		{"unavailable", transcribe.ErrModelUnavailable, models.FailureModelUnavailable},
		{"unknown model", transcribe.ErrModelUnknown, models.FailureModelUnavailable},
		{"anything else", errors.New("boom"), models.FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transcribe.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
