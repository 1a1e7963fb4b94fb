// Package httpapi provides a transcription provider for whisper-server-style
// HTTP inference endpoints: it posts chunk audio as a multipart WAV upload
// and reads a JSON transcription back.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/audio"
	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/transcribe"
)

// defaultConfidence stands in when the endpoint reports no confidence
// (whisper-server style endpoints usually return text only).
const defaultConfidence = 0.85

// Config holds the endpoint settings.
type Config struct {
	// Endpoint is the full URL of the transcription resource.
	Endpoint string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
}

// Provider implements transcribe.Provider over an HTTP inference endpoint.
type Provider struct {
	endpoint string
	apiKey   string
	hc       *http.Client
	log      zerolog.Logger
}

// New creates a provider for the endpoint. Call deadlines come from the
// request context; the HTTP client itself sets no timeout.
func New(cfg Config) *Provider {
	return &Provider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		hc:       &http.Client{},
		log:      logging.WithComponent("httpapi"),
	}
}

// Name identifies the provider.
func (p *Provider) Name() string {
	return "httpapi"
}

// Ready smoke-tests the endpoint with a short silence transcription.
func (p *Provider) Ready(ctx context.Context, model string) error {
	_, err := p.Transcribe(ctx, transcribe.Request{
		Model:      model,
		Audio:      transcribe.SmokeAudio(16000),
		SampleRate: 16000,
	})
	return err
}

// apiResponse is the JSON body returned by the endpoint.
type apiResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe uploads the chunk as a multipart WAV file and decodes the JSON
// reply. HTTP statuses map onto the client's error taxonomy: 429 is a rate
// limit, other 4xx reject the audio, 5xx and transport failures are network
// errors, and a hit deadline is a timeout.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Response, error) {
	wavBytes, err := audio.EncodeWAV(audio.DecodePCM16(req.Audio), audio.Format{
		SampleRate:    req.SampleRate,
		Channels:      1,
		BitsPerSample: 16,
	})
	if err != nil {
		return transcribe.Response{}, fmt.Errorf("encode chunk: %v: %w", err, transcribe.ErrInvalidAudio)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", req.Model); err != nil {
		return transcribe.Response{}, err
	}
	if req.Language != "" {
		if err := mw.WriteField("language", req.Language); err != nil {
			return transcribe.Response{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return transcribe.Response{}, err
	}
	if _, err := fw.Write(wavBytes); err != nil {
		return transcribe.Response{}, err
	}
	if err := mw.Close(); err != nil {
		return transcribe.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return transcribe.Response{}, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return transcribe.Response{}, fmt.Errorf("inference call: %v: %w", err, transcribe.ErrModelTimeout)
		}
		return transcribe.Response{}, fmt.Errorf("inference call: %v: %w", err, transcribe.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transcribe.Response{}, statusError(resp.StatusCode, b)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcribe.Response{}, fmt.Errorf("decode inference response: %v: %w", err, transcribe.ErrNetwork)
	}
	if out.Confidence == 0 {
		out.Confidence = defaultConfidence
	}
	return transcribe.Response{Text: out.Text, Confidence: out.Confidence}, nil
}

// statusError maps a non-200 status onto the error taxonomy.
func statusError(code int, body []byte) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("inference http %d: %s: %w", code, body, transcribe.ErrRateLimited)
	case code >= 400 && code < 500:
		return fmt.Errorf("inference http %d: %s: %w", code, body, transcribe.ErrInvalidAudio)
	default:
		return fmt.Errorf("inference http %d: %s: %w", code, body, transcribe.ErrNetwork)
	}
}
