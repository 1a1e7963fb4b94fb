// Package google provides a Google Cloud Speech-to-Text transcription
// provider using batch recognition per chunk.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meeting-transcription-engine/internal/transcribe"
)

// Config holds recognition settings applied to every request.
type Config struct {
	LanguageCode  string
	SampleRateHz  int
	AudioEncoding string
}

// DefaultConfig returns the recognition settings used when fields are left
// zero. Requests carry their own language and sample rate; these are the
// fallbacks.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
	}
}

// parseAudioEncoding maps an encoding name to the API enum, falling back to
// LINEAR16 for anything unrecognized.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch name {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

// Provider implements transcribe.Provider using Google Cloud Speech-to-Text.
type Provider struct {
	client *speech.Client
	cfg    Config
}

// New creates a provider. Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	def := DefaultConfig()
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = def.LanguageCode
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = def.SampleRateHz
	}
	if cfg.AudioEncoding == "" {
		cfg.AudioEncoding = def.AudioEncoding
	}
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Provider{client: c, cfg: cfg}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "google"
}

// Ready smoke-tests recognition with a short silence request.
func (p *Provider) Ready(ctx context.Context, model string) error {
	_, err := p.Transcribe(ctx, transcribe.Request{
		Model:      model,
		Audio:      transcribe.SmokeAudio(p.cfg.SampleRateHz),
		SampleRate: p.cfg.SampleRateHz,
	})
	return err
}

// Transcribe runs one batch Recognize call for the chunk. Results are joined
// in order; confidence is the mean over result alternatives.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Response, error) {
	language := req.Language
	if language == "" {
		language = p.cfg.LanguageCode
	}
	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = p.cfg.SampleRateHz
	}

	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        parseAudioEncoding(p.cfg.AudioEncoding),
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return transcribe.Response{}, mapError(err)
	}

	var parts []string
	var confSum float64
	var confCount int
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		parts = append(parts, alt.Transcript)
		confSum += float64(alt.Confidence)
		confCount++
	}

	out := transcribe.Response{Text: strings.Join(parts, " ")}
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	return out, nil
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// mapError translates gRPC status codes onto the client's error taxonomy.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("recognize: %v: %w", err, transcribe.ErrModelTimeout)
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("recognize: %v: %w", err, transcribe.ErrModelTimeout)
	case codes.ResourceExhausted:
		return fmt.Errorf("recognize: %v: %w", err, transcribe.ErrRateLimited)
	case codes.Unavailable:
		return fmt.Errorf("recognize: %v: %w", err, transcribe.ErrNetwork)
	case codes.InvalidArgument:
		return fmt.Errorf("recognize: %v: %w", err, transcribe.ErrInvalidAudio)
	default:
		return fmt.Errorf("recognize: %w", err)
	}
}
