// Package app wires the transcription engine's components together for the
// daemon: logging, the event hub, the model client and its providers, the
// Kafka publisher, and the session engine itself.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/audio"
	"meeting-transcription-engine/internal/config"
	"meeting-transcription-engine/internal/diarize"
	"meeting-transcription-engine/internal/events"
	"meeting-transcription-engine/internal/hub"
	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/quality"
	"meeting-transcription-engine/internal/session"
	"meeting-transcription-engine/internal/transcribe"
	"meeting-transcription-engine/internal/transcribe/google"
	"meeting-transcription-engine/internal/transcribe/httpapi"
	"meeting-transcription-engine/internal/transcribe/simulated"
)

// warmLoadTimeout bounds the default model load at startup. A slow load is
// logged and retried lazily on the first session instead of blocking boot.
const warmLoadTimeout = 10 * time.Second

// Per-audio-minute cost of the Google provider; simulated models cost
// nothing. Models with no explicit rate use the aggregator default.
const googleRateUSDPerMinute = 0.009

// Application holds process-wide state for the engine daemon.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config
	Log         zerolog.Logger

	Hub         *hub.Hub
	Publisher   *events.Publisher
	Transcriber *transcribe.Client
	Quality     *quality.Aggregator
	Engine      *session.Engine
}

// New constructs the application from configuration: global logging first,
// then every component the session engine depends on.
func New(cfg *config.Config) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg: cfg,
		Log: logging.WithComponent("application"),
	}

	a.Hub = hub.NewHub(0)
	a.Quality = quality.NewAggregator()
	a.Transcriber = a.buildTranscriber()

	a.Publisher = events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicCompleted:   cfg.Kafka.TopicCompleted,
		TopicPostProcess: cfg.Kafka.TopicPostProcess,
		Principal:        cfg.Kafka.Principal,
	})

	a.Engine = session.NewEngine(session.Deps{
		Transcriber: a.Transcriber,
		Events:      a.Hub,
		Scheduler:   a.Publisher,
		Preprocessor: audio.NewPreprocessor(audio.Options{
			Normalize:        cfg.Audio.Normalize,
			NoiseReduction:   cfg.Audio.NoiseReduction,
			EchoCancellation: cfg.Audio.EchoCancellation,
			TargetRMS:        cfg.Audio.TargetRMS,
		}),
		Diarizer: diarize.New(diarize.Config{
			SampleRate:          cfg.Pipeline.SampleRateHz,
			SimilarityThreshold: cfg.Diarization.SimilarityThreshold,
			MaxSpeakers:         cfg.Diarization.MaxSpeakers,
			MinSpeakerSeconds:   cfg.Diarization.MinSpeakerSeconds,
			VADEnergyThreshold:  cfg.Diarization.VADEnergyThreshold,
		}),
		Quality: a.Quality,
		Defaults: session.Config{
			Model:               cfg.Transcribe.DefaultModel,
			FallbackModels:      cfg.Transcribe.FallbackModels,
			Language:            cfg.Transcribe.Language,
			Diarization:         cfg.Diarization.Enabled,
			ChunkSize:           cfg.Pipeline.ChunkSize,
			OverlapSize:         cfg.Pipeline.OverlapSize,
			SampleRate:          cfg.Pipeline.SampleRateHz,
			Channels:            cfg.Pipeline.Channels,
			BitsPerSample:       cfg.Pipeline.BitsPerSample,
			ConfidenceThreshold: cfg.Pipeline.ConfidenceThreshold,
		},
		EvictionGrace: cfg.Pipeline.EvictionGrace,
	})

	a.Log.Info().
		Str("defaultModel", cfg.Transcribe.DefaultModel).
		Strs("fallbackModels", cfg.Transcribe.FallbackModels).
		Bool("diarization", cfg.Diarization.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Msg("transcription engine application created")
	return a
}

// buildTranscriber creates the model client and registers a provider for
// every configured model name. The simulated provider backs the default
// chain; the HTTP and Google providers are attached only when configured.
func (a *Application) buildTranscriber() *transcribe.Client {
	cfg := a.Cfg
	client := transcribe.NewClient(transcribe.Options{
		CallTimeout:   cfg.Transcribe.CallTimeout,
		LoadAttempts:  cfg.Transcribe.LoadAttempts,
		LoadBackoff:   cfg.Transcribe.LoadBackoff,
		FallbackOrder: cfg.Transcribe.FallbackModels,
	})

	sim := simulated.New()
	client.Register(cfg.Transcribe.DefaultModel, sim)
	a.Quality.SetRate(cfg.Transcribe.DefaultModel, 0)
	for _, model := range cfg.Transcribe.FallbackModels {
		client.Register(model, sim)
		a.Quality.SetRate(model, 0)
	}

	if cfg.Transcribe.HTTPEndpoint != "" {
		client.Register(cfg.Transcribe.HTTPModel, httpapi.New(httpapi.Config{
			Endpoint: cfg.Transcribe.HTTPEndpoint,
			APIKey:   cfg.Transcribe.HTTPAPIKey,
		}))
		a.Log.Info().
			Str("model", cfg.Transcribe.HTTPModel).
			Str("endpoint", cfg.Transcribe.HTTPEndpoint).
			Msg("HTTP transcription provider registered")
	}

	if cfg.Transcribe.GoogleEnabled {
		gp, err := google.New(context.Background(), google.Config{
			LanguageCode: cfg.Transcribe.Language,
			SampleRateHz: cfg.Pipeline.SampleRateHz,
		})
		if err != nil {
			a.Log.Warn().Err(err).Msg("Google Speech provider unavailable, continuing without it")
		} else {
			client.Register(cfg.Transcribe.GoogleModel, gp)
			a.Quality.SetRate(cfg.Transcribe.GoogleModel, googleRateUSDPerMinute)
			a.Log.Info().
				Str("model", cfg.Transcribe.GoogleModel).
				Msg("Google Speech provider registered")
		}
	}

	return client
}

// Start performs startup work before serving traffic: it stamps the startup
// time and warm-loads the default model so the first session does not pay
// the load latency. A failed warm load is not fatal; StartSession retries.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), warmLoadTimeout)
	defer cancel()
	if err := a.Transcriber.EnsureLoaded(ctx, a.Cfg.Transcribe.DefaultModel); err != nil {
		a.Log.Warn().
			Err(err).
			Str("model", a.Cfg.Transcribe.DefaultModel).
			Msg("default model warm load failed")
	}

	a.Log.Info().
		Time("startupTime", a.StartupTime).
		Msg("transcription engine starting")
	return nil
}

// Ready reports whether the application has completed startup.
func (a *Application) Ready() bool {
	return !a.StartupTime.IsZero()
}

// Shutdown cancels all live sessions and closes the publisher.
func (a *Application) Shutdown() {
	a.Log.Info().Int("liveSessions", a.Engine.Live()).Msg("transcription engine shutting down")
	a.Engine.CancelAll()
	if err := a.Publisher.Close(); err != nil {
		a.Log.Error().Err(err).Msg("publisher close failed")
	}
}
