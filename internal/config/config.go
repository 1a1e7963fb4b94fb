// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the transcription engine.
type Config struct {
	Service       ServiceConfig
	Pipeline      PipelineConfig
	Audio         AudioConfig
	Diarization   DiarizationConfig
	Transcribe    TranscribeConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service and its listen ports.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
}

// PipelineConfig holds session defaults for chunk windowing and sample format.
type PipelineConfig struct {
	ChunkSize           int
	OverlapSize         int
	SampleRateHz        int
	Channels            int
	BitsPerSample       int
	ConfidenceThreshold float64
	EvictionGrace       time.Duration
}

// AudioConfig toggles the preprocessor stages.
type AudioConfig struct {
	Normalize        bool
	NoiseReduction   bool
	EchoCancellation bool
	TargetRMS        float64
}

// DiarizationConfig tunes voice activity detection and speaker clustering.
type DiarizationConfig struct {
	Enabled             bool
	SimilarityThreshold float64
	MaxSpeakers         int
	MinSpeakerSeconds   float64
	VADEnergyThreshold  float64
}

// TranscribeConfig selects the model chain and bounds model calls.
type TranscribeConfig struct {
	DefaultModel   string
	FallbackModels []string
	Language       string
	CallTimeout    time.Duration
	LoadAttempts   int
	LoadBackoff    time.Duration
	HTTPEndpoint   string
	HTTPAPIKey     string
	HTTPModel      string
	GoogleEnabled  bool
	GoogleModel    string
}

// KafkaConfig configures the event publisher.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicCompleted   string
	TopicPostProcess string
	Principal        string
}

// ObservabilityConfig configures logging and the metrics listener.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from the environment, falling back to defaults for
// unset or unparseable values.
func Load() *Config {
	cfg := &Config{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-transcription-engine"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		Pipeline: PipelineConfig{
			ChunkSize:           envOrDefaultInt("PIPELINE_CHUNK_SIZE", 16384),
			OverlapSize:         envOrDefaultInt("PIPELINE_OVERLAP_SIZE", 2048),
			SampleRateHz:        envOrDefaultInt("PIPELINE_SAMPLE_RATE_HZ", 16000),
			Channels:            envOrDefaultInt("PIPELINE_CHANNELS", 1),
			BitsPerSample:       envOrDefaultInt("PIPELINE_BITS_PER_SAMPLE", 16),
			ConfidenceThreshold: envOrDefaultFloat("PIPELINE_CONFIDENCE_THRESHOLD", 0.4),
			EvictionGrace:       envOrDefaultDuration("SESSION_EVICTION_GRACE", 30*time.Second),
		},
		Audio: AudioConfig{
			Normalize:        envOrDefaultBool("AUDIO_NORMALIZE", true),
			NoiseReduction:   envOrDefaultBool("AUDIO_NOISE_REDUCTION", true),
			EchoCancellation: envOrDefaultBool("AUDIO_ECHO_CANCEL", false),
			TargetRMS:        envOrDefaultFloat("AUDIO_TARGET_RMS", 0.2),
		},
		Diarization: DiarizationConfig{
			Enabled:             envOrDefaultBool("DIARIZATION_ENABLED", true),
			SimilarityThreshold: envOrDefaultFloat("DIARIZATION_SIMILARITY_THRESHOLD", 0.75),
			MaxSpeakers:         envOrDefaultInt("DIARIZATION_MAX_SPEAKERS", 8),
			MinSpeakerSeconds:   envOrDefaultFloat("DIARIZATION_MIN_SPEAKER_SECONDS", 1.0),
			VADEnergyThreshold:  envOrDefaultFloat("DIARIZATION_VAD_THRESHOLD", 0.01),
		},
		Transcribe: TranscribeConfig{
			DefaultModel:   envOrDefault("TRANSCRIBE_DEFAULT_MODEL", "whisper-base"),
			FallbackModels: envOrDefaultList("TRANSCRIBE_FALLBACK_MODELS", []string{"whisper-tiny"}),
			Language:       envOrDefault("TRANSCRIBE_LANGUAGE", "en-US"),
			CallTimeout:    envOrDefaultDuration("TRANSCRIBE_CALL_TIMEOUT", 15*time.Second),
			LoadAttempts:   envOrDefaultInt("TRANSCRIBE_LOAD_ATTEMPTS", 2),
			LoadBackoff:    envOrDefaultDuration("TRANSCRIBE_LOAD_BACKOFF", 250*time.Millisecond),
			HTTPEndpoint:   envOrDefault("TRANSCRIBE_HTTP_ENDPOINT", ""),
			HTTPAPIKey:     envOrDefault("TRANSCRIBE_HTTP_API_KEY", ""),
			HTTPModel:      envOrDefault("TRANSCRIBE_HTTP_MODEL", "whisper-remote"),
			GoogleEnabled:  envOrDefaultBool("TRANSCRIBE_GOOGLE_ENABLED", false),
			GoogleModel:    envOrDefault("TRANSCRIBE_GOOGLE_MODEL", "google-speech"),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultList("KAFKA_BROKERS", nil),
			TopicCompleted:   envOrDefault("KAFKA_TOPIC_COMPLETED", "transcripts.completed"),
			TopicPostProcess: envOrDefault("KAFKA_TOPIC_POSTPROCESS", "postprocess.jobs"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}

	// Kafka principal falls back to the service principal.
	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
