// Package transcribe implements the model transcription client: provider
// adapters for external speech-to-text services, per-model status and
// performance tracking, and the static fallback ordering tried when a model
// call fails.
package transcribe

import (
	"context"
	"time"
)

// Request carries one chunk of conditioned session audio to a provider.
// Audio is little-endian 16-bit mono PCM at SampleRate.
type Request struct {
	Model      string
	Audio      []byte
	SampleRate int
	Language   string
}

// Response is what a provider returns for one request.
type Response struct {
	Text       string
	Confidence float64
}

// Provider adapts one external inference service (simulated, HTTP, Google).
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe runs one request/response inference call.
	Transcribe(ctx context.Context, req Request) (Response, error)

	// Ready probes that the provider can serve the model, typically with a
	// smoke transcription. Used by LoadModel before a model is marked ready.
	Ready(ctx context.Context, model string) error
}

// smokeAudioMs is the duration of silence sent as a readiness probe.
const smokeAudioMs = 200

// SmokeAudio returns smokeAudioMs of 16-bit mono PCM silence at the given
// rate, for readiness probes.
func SmokeAudio(sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return make([]byte, 2*sampleRate*smokeAudioMs/1000)
}

// Result is a successful transcription attributed to the model that actually
// produced it, which differs from the requested model when the client fell
// back within the call.
type Result struct {
	Text           string
	Confidence     float64
	Model          string
	ProcessingTime time.Duration
}
