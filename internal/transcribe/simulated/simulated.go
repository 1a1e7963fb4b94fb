// Package simulated provides an in-process transcription provider for
// development and tests without external inference services. It cycles
// through canned meeting utterances deterministically and supports per-model
// failure and latency injection.
package simulated

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meeting-transcription-engine/internal/transcribe"
)

// Utterance is one canned transcription result.
type Utterance struct {
	Text       string
	Confidence float64
}

// DefaultUtterances provides sample meeting utterances for simulation.
var DefaultUtterances = []Utterance{
	{Text: "Good morning everyone, let's get started", Confidence: 0.95},
	{Text: "Can you share the latest numbers", Confidence: 0.92},
	{Text: "Revenue is up eight percent quarter over quarter", Confidence: 0.94},
	{Text: "I think we should revisit the timeline", Confidence: 0.89},
	{Text: "Let's take that offline and move on", Confidence: 0.96},
	{Text: "Any other questions before we wrap up", Confidence: 0.93},
}

// Provider implements transcribe.Provider with canned responses.
type Provider struct {
	mu         sync.Mutex
	utterances []Utterance
	next       int
	latency    time.Duration

	// failures maps model name to remaining injected failures; a negative
	// count fails forever.
	failures map[string]int
	failErr  map[string]error
}

// New creates a provider cycling through the default utterances.
func New() *Provider {
	return &Provider{
		utterances: DefaultUtterances,
		failures:   make(map[string]int),
		failErr:    make(map[string]error),
	}
}

// NewWithUtterances creates a provider cycling through the given utterances.
func NewWithUtterances(utterances []Utterance) *Provider {
	p := New()
	if len(utterances) > 0 {
		p.utterances = utterances
	}
	return p
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "simulated"
}

// SetLatency makes every call take at least d.
func (p *Provider) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// FailModel injects failures for one model: the next times calls against it
// return err. A negative times fails every call.
func (p *Provider) FailModel(model string, times int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[model] = times
	p.failErr[model] = err
}

// Ready succeeds unless the model has an injected failure pending.
func (p *Provider) Ready(ctx context.Context, model string) error {
	_, err := p.Transcribe(ctx, transcribe.Request{
		Model:      model,
		Audio:      transcribe.SmokeAudio(16000),
		SampleRate: 16000,
	})
	return err
}

// Transcribe returns the next canned utterance, honoring injected latency and
// failures.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Response, error) {
	p.mu.Lock()
	latency := p.latency
	p.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return transcribe.Response{}, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if remaining, ok := p.failures[req.Model]; ok && remaining != 0 {
		if remaining > 0 {
			p.failures[req.Model] = remaining - 1
		}
		err := p.failErr[req.Model]
		if err == nil {
			err = fmt.Errorf("injected failure for model %s: %w", req.Model, transcribe.ErrNetwork)
		}
		return transcribe.Response{}, err
	}

	u := p.utterances[p.next%len(p.utterances)]
	p.next++
	return transcribe.Response{Text: u.Text, Confidence: u.Confidence}, nil
}
