package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/observability/metrics"
)

// ModelStatus represents the lifecycle state of a model within the client.
type ModelStatus int

const (
	// StatusUnloaded - Model is registered but has never been loaded.
	StatusUnloaded ModelStatus = iota
	// StatusLoading - A load is in progress.
	StatusLoading
	// StatusReady - The readiness probe passed; the model serves calls.
	StatusReady
	// StatusError - The last load failed after the retry budget.
	StatusError
)

// String returns the string representation of the status.
func (s ModelStatus) String() string {
	switch s {
	case StatusUnloaded:
		return "UNLOADED"
	case StatusLoading:
		return "LOADING"
	case StatusReady:
		return "READY"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// emaAlpha is the smoothing factor for latency and confidence averages.
// The first observation seeds the average directly.
const emaAlpha = 0.2

// Performance is the running performance record for one model.
type Performance struct {
	UsageCount        int64     `json:"usageCount"`
	SuccessCount      int64     `json:"successCount"`
	SuccessRate       float64   `json:"successRate"`
	EMALatencySeconds float64   `json:"emaLatencySeconds"`
	EMAConfidence     float64   `json:"emaConfidence"`
	LastUsedAt        time.Time `json:"lastUsedAt"`
}

// Composite score weights for GetBestPerformingModel.
const (
	scoreWeightSuccess    = 0.5
	scoreWeightConfidence = 0.3
	scoreWeightLatency    = 0.2
)

// score folds success rate, confidence, and inverse latency into one number.
func (p Performance) score() float64 {
	latencyScore := 1.0 / (1.0 + p.EMALatencySeconds)
	return scoreWeightSuccess*p.SuccessRate +
		scoreWeightConfidence*p.EMAConfidence +
		scoreWeightLatency*latencyScore
}

// Options bounds client behavior.
type Options struct {
	// CallTimeout caps a single provider call. A hung external model must
	// never block a session: exceeding it is a transcription failure
	// eligible for fallback.
	CallTimeout time.Duration
	// LoadAttempts is the readiness retry budget per LoadModel call.
	LoadAttempts int
	// LoadBackoff is the pause between readiness attempts.
	LoadBackoff time.Duration
	// FallbackOrder is the static ranked ordering tried when a call fails.
	FallbackOrder []string
}

// DefaultOptions returns the bounds used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		CallTimeout:  15 * time.Second,
		LoadAttempts: 2,
		LoadBackoff:  250 * time.Millisecond,
	}
}

// Client routes transcription calls to registered providers by model name and
// maintains per-model status and performance tables. The tables are shared
// across sessions: all mutation happens behind the client mutex, concurrent
// reads take snapshot copies.
type Client struct {
	mu        sync.RWMutex
	providers map[string]Provider
	status    map[string]ModelStatus
	perf      map[string]*Performance
	opts      Options
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewClient creates a client with no registered models.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.LoadAttempts <= 0 {
		opts.LoadAttempts = def.LoadAttempts
	}
	if opts.LoadBackoff <= 0 {
		opts.LoadBackoff = def.LoadBackoff
	}
	return &Client{
		providers: make(map[string]Provider),
		status:    make(map[string]ModelStatus),
		perf:      make(map[string]*Performance),
		opts:      opts,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("transcribe"),
	}
}

// Register binds a model name to the provider that serves it. Re-registering
// a model resets its status to unloaded.
func (c *Client) Register(model string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[model] = p
	c.status[model] = StatusUnloaded
	if _, ok := c.perf[model]; !ok {
		c.perf[model] = &Performance{}
	}
	c.log.Info().Str("model", model).Str("provider", p.Name()).Msg("model registered")
}

// Models returns the registered model names, sorted.
func (c *Client) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.providers))
	for m := range c.providers {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Status returns the model's current status. Unregistered models report
// StatusUnloaded.
func (c *Client) Status(model string) ModelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status[model]
}

// EnsureLoaded loads the model unless it is already ready.
func (c *Client) EnsureLoaded(ctx context.Context, model string) error {
	if c.Status(model) == StatusReady {
		return nil
	}
	return c.LoadModel(ctx, model)
}

// LoadModel marks the model loading, runs the provider readiness probe with
// the configured retry budget, and marks it ready or errored. Loading is
// synchronous: StartSession blocks on it.
func (c *Client) LoadModel(ctx context.Context, model string) error {
	p, err := c.provider(model)
	if err != nil {
		return err
	}
	c.setStatus(model, StatusLoading)

	var lastErr error
	for attempt := 1; attempt <= c.opts.LoadAttempts; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		err := p.Ready(probeCtx, model)
		cancel()
		if err == nil {
			c.setStatus(model, StatusReady)
			c.metrics.RecordModelLoad(model, true)
			c.log.Info().Str("model", model).Int("attempt", attempt).Msg("model ready")
			return nil
		}
		lastErr = err
		c.log.Warn().Err(err).Str("model", model).Int("attempt", attempt).Msg("model readiness probe failed")

		if attempt < c.opts.LoadAttempts {
			select {
			case <-time.After(c.opts.LoadBackoff):
			case <-ctx.Done():
				c.setStatus(model, StatusError)
				c.metrics.RecordModelLoad(model, false)
				return fmt.Errorf("load model %s: %w", model, ctx.Err())
			}
		}
	}

	c.setStatus(model, StatusError)
	c.metrics.RecordModelLoad(model, false)
	return fmt.Errorf("load model %s after %d attempts: %v: %w",
		model, c.opts.LoadAttempts, lastErr, ErrModelUnavailable)
}

// Transcribe runs one inference call against the requested model, bounded by
// the call timeout. On failure it tries the next model from the static
// fallback ordering once, then surfaces the original error. Every attempt
// updates the performance table; failed attempts do not touch confidence.
func (c *Client) Transcribe(ctx context.Context, req Request) (Result, error) {
	res, err := c.call(ctx, req)
	if err == nil {
		return res, nil
	}

	fallback, ok := c.nextFallback(req.Model)
	if !ok || !Classify(err).Retryable() {
		return Result{}, err
	}

	c.log.Warn().Err(err).
		Str("model", req.Model).
		Str("fallback", fallback).
		Msg("model call failed, trying fallback")

	fbReq := req
	fbReq.Model = fallback
	if res, fbErr := c.call(ctx, fbReq); fbErr == nil {
		return res, nil
	}
	return Result{}, fmt.Errorf("model %s failed (fallback %s also failed): %w", req.Model, fallback, err)
}

// call performs a single bounded provider call and records the attempt.
func (c *Client) call(ctx context.Context, req Request) (Result, error) {
	p, err := c.provider(req.Model)
	if err != nil {
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.Transcribe(callCtx, req)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrModelTimeout) {
			err = fmt.Errorf("model %s: %v: %w", req.Model, err, ErrModelTimeout)
		}
		c.recordAttempt(req.Model, elapsed, 0, false)
		c.metrics.RecordTranscribe(req.Model, err, Classify(err).String(), elapsed.Seconds())
		return Result{}, err
	}

	c.recordAttempt(req.Model, elapsed, resp.Confidence, true)
	c.metrics.RecordTranscribe(req.Model, nil, "", elapsed.Seconds())
	return Result{
		Text:           resp.Text,
		Confidence:     resp.Confidence,
		Model:          req.Model,
		ProcessingTime: elapsed,
	}, nil
}

// GetBestPerformingModel returns the ready model with the highest composite
// score of success rate, confidence, and inverse latency. ok is false when no
// model is ready.
func (c *Client) GetBestPerformingModel() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best, bestScore := "", -1.0
	for model, st := range c.status {
		if st != StatusReady {
			continue
		}
		score := c.perf[model].score()
		if score > bestScore {
			best, bestScore = model, score
		}
	}
	return best, best != ""
}

// PerformanceSnapshot returns a copy of the per-model performance table.
func (c *Client) PerformanceSnapshot() map[string]Performance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Performance, len(c.perf))
	for model, p := range c.perf {
		out[model] = *p
	}
	return out
}

// nextFallback returns the first model from the static ordering that differs
// from the failed model and has a registered provider.
func (c *Client) nextFallback(failed string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.opts.FallbackOrder {
		if m == failed {
			continue
		}
		if _, ok := c.providers[m]; ok {
			return m, true
		}
	}
	return "", false
}

func (c *Client) provider(model string) (Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[model]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", model, ErrModelUnknown)
	}
	return p, nil
}

func (c *Client) setStatus(model string, s ModelStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[model] = s
}

// recordAttempt folds one call into the model's performance record.
func (c *Client) recordAttempt(model string, latency time.Duration, confidence float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.perf[model]
	if !ok {
		p = &Performance{}
		c.perf[model] = p
	}

	p.UsageCount++
	if success {
		p.SuccessCount++
	}
	p.SuccessRate = float64(p.SuccessCount) / float64(p.UsageCount)
	p.LastUsedAt = time.Now()

	sec := latency.Seconds()
	if p.UsageCount == 1 {
		p.EMALatencySeconds = sec
	} else {
		p.EMALatencySeconds = emaAlpha*sec + (1-emaAlpha)*p.EMALatencySeconds
	}

	if success {
		if p.SuccessCount == 1 {
			p.EMAConfidence = confidence
		} else {
			p.EMAConfidence = emaAlpha*confidence + (1-emaAlpha)*p.EMAConfidence
		}
	}
}
