package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "HTTP_PORT", "GRPC_PORT", "LOG_LEVEL",
		"PIPELINE_CHUNK_SIZE", "PIPELINE_OVERLAP_SIZE", "PIPELINE_SAMPLE_RATE_HZ",
		"PIPELINE_CHANNELS", "PIPELINE_BITS_PER_SAMPLE", "PIPELINE_CONFIDENCE_THRESHOLD",
		"DIARIZATION_ENABLED", "DIARIZATION_SIMILARITY_THRESHOLD", "DIARIZATION_MAX_SPEAKERS",
		"TRANSCRIBE_DEFAULT_MODEL", "TRANSCRIBE_FALLBACK_MODELS", "TRANSCRIBE_CALL_TIMEOUT",
		"TRANSCRIBE_HTTP_MODEL", "TRANSCRIBE_GOOGLE_ENABLED", "TRANSCRIBE_GOOGLE_MODEL",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL", "METRICS_PORT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-transcription-engine" {
		t.Errorf("expected default principal 'svc-transcription-engine', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default gRPC port '50051', got %s", cfg.Service.GRPCPort)
	}

	// Pipeline defaults
	if cfg.Pipeline.ChunkSize != 16384 {
		t.Errorf("expected default chunk size 16384, got %d", cfg.Pipeline.ChunkSize)
	}
	if cfg.Pipeline.OverlapSize != 2048 {
		t.Errorf("expected default overlap 2048, got %d", cfg.Pipeline.OverlapSize)
	}
	if cfg.Pipeline.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Pipeline.SampleRateHz)
	}
	if cfg.Pipeline.Channels != 1 {
		t.Errorf("expected default channels 1, got %d", cfg.Pipeline.Channels)
	}
	if cfg.Pipeline.BitsPerSample != 16 {
		t.Errorf("expected default bits per sample 16, got %d", cfg.Pipeline.BitsPerSample)
	}

	// Diarization defaults
	if !cfg.Diarization.Enabled {
		t.Error("expected diarization enabled by default")
	}
	if cfg.Diarization.SimilarityThreshold != 0.75 {
		t.Errorf("expected default similarity threshold 0.75, got %v", cfg.Diarization.SimilarityThreshold)
	}
	if cfg.Diarization.MaxSpeakers != 8 {
		t.Errorf("expected default max speakers 8, got %d", cfg.Diarization.MaxSpeakers)
	}

	// Transcribe defaults
	if cfg.Transcribe.DefaultModel != "whisper-base" {
		t.Errorf("expected default model 'whisper-base', got %s", cfg.Transcribe.DefaultModel)
	}
	if len(cfg.Transcribe.FallbackModels) != 1 || cfg.Transcribe.FallbackModels[0] != "whisper-tiny" {
		t.Errorf("expected default fallback [whisper-tiny], got %v", cfg.Transcribe.FallbackModels)
	}
	if cfg.Transcribe.CallTimeout != 15*time.Second {
		t.Errorf("expected default call timeout 15s, got %v", cfg.Transcribe.CallTimeout)
	}
	if cfg.Transcribe.LoadAttempts != 2 {
		t.Errorf("expected default load attempts 2, got %d", cfg.Transcribe.LoadAttempts)
	}
	if cfg.Transcribe.HTTPModel != "whisper-remote" {
		t.Errorf("expected default HTTP model 'whisper-remote', got %s", cfg.Transcribe.HTTPModel)
	}
	if cfg.Transcribe.GoogleEnabled {
		t.Error("expected google provider disabled by default")
	}
	if cfg.Transcribe.GoogleModel != "google-speech" {
		t.Errorf("expected default google model 'google-speech', got %s", cfg.Transcribe.GoogleModel)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected kafka disabled by default")
	}
	if cfg.Kafka.TopicCompleted != "transcripts.completed" {
		t.Errorf("expected default completed topic, got %s", cfg.Kafka.TopicCompleted)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9090" {
		t.Errorf("expected default metrics port '9090', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9090")
	os.Setenv("PIPELINE_CHUNK_SIZE", "32768")
	os.Setenv("PIPELINE_OVERLAP_SIZE", "4096")
	os.Setenv("PIPELINE_SAMPLE_RATE_HZ", "8000")
	os.Setenv("DIARIZATION_ENABLED", "false")
	os.Setenv("DIARIZATION_SIMILARITY_THRESHOLD", "0.9")
	os.Setenv("TRANSCRIBE_DEFAULT_MODEL", "google-speech")
	os.Setenv("TRANSCRIBE_FALLBACK_MODELS", "whisper-base, whisper-tiny")
	os.Setenv("TRANSCRIBE_CALL_TIMEOUT", "30s")
	os.Setenv("TRANSCRIBE_GOOGLE_ENABLED", "true")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("METRICS_PORT", "9191")

	defer func() {
		for _, v := range []string{
			"SERVICE_PRINCIPAL", "HTTP_PORT", "PIPELINE_CHUNK_SIZE", "PIPELINE_OVERLAP_SIZE",
			"PIPELINE_SAMPLE_RATE_HZ", "DIARIZATION_ENABLED", "DIARIZATION_SIMILARITY_THRESHOLD",
			"TRANSCRIBE_DEFAULT_MODEL", "TRANSCRIBE_FALLBACK_MODELS", "TRANSCRIBE_CALL_TIMEOUT",
			"TRANSCRIBE_GOOGLE_ENABLED", "KAFKA_ENABLED", "KAFKA_BROKERS", "LOG_LEVEL", "METRICS_PORT",
		} {
			os.Unsetenv(v)
		}
	}()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9090" {
		t.Errorf("expected HTTP port '9090', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Pipeline.ChunkSize != 32768 {
		t.Errorf("expected chunk size 32768, got %d", cfg.Pipeline.ChunkSize)
	}
	if cfg.Pipeline.OverlapSize != 4096 {
		t.Errorf("expected overlap 4096, got %d", cfg.Pipeline.OverlapSize)
	}
	if cfg.Pipeline.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.Pipeline.SampleRateHz)
	}
	if cfg.Diarization.Enabled {
		t.Error("expected diarization disabled")
	}
	if cfg.Diarization.SimilarityThreshold != 0.9 {
		t.Errorf("expected similarity threshold 0.9, got %v", cfg.Diarization.SimilarityThreshold)
	}
	if cfg.Transcribe.DefaultModel != "google-speech" {
		t.Errorf("expected model 'google-speech', got %s", cfg.Transcribe.DefaultModel)
	}
	want := []string{"whisper-base", "whisper-tiny"}
	if len(cfg.Transcribe.FallbackModels) != 2 ||
		cfg.Transcribe.FallbackModels[0] != want[0] || cfg.Transcribe.FallbackModels[1] != want[1] {
		t.Errorf("expected fallbacks %v, got %v", want, cfg.Transcribe.FallbackModels)
	}
	if cfg.Transcribe.CallTimeout != 30*time.Second {
		t.Errorf("expected call timeout 30s, got %v", cfg.Transcribe.CallTimeout)
	}
	if !cfg.Transcribe.GoogleEnabled {
		t.Error("expected google provider enabled")
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Errorf("expected brokers [k1:9092 k2:9092], got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if cfg.Observability.MetricsPort != "9191" {
		t.Errorf("expected metrics port '9191', got %s", cfg.Observability.MetricsPort)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	os.Setenv("PIPELINE_CHUNK_SIZE", "not-a-number")
	os.Setenv("DIARIZATION_ENABLED", "invalid")
	os.Setenv("DIARIZATION_SIMILARITY_THRESHOLD", "invalid")
	os.Setenv("TRANSCRIBE_CALL_TIMEOUT", "invalid")

	defer func() {
		os.Unsetenv("PIPELINE_CHUNK_SIZE")
		os.Unsetenv("DIARIZATION_ENABLED")
		os.Unsetenv("DIARIZATION_SIMILARITY_THRESHOLD")
		os.Unsetenv("TRANSCRIBE_CALL_TIMEOUT")
	}()

	cfg := Load()

	if cfg.Pipeline.ChunkSize != 16384 {
		t.Errorf("expected default chunk size on invalid input, got %d", cfg.Pipeline.ChunkSize)
	}
	if !cfg.Diarization.Enabled {
		t.Error("expected default diarization enabled on invalid input")
	}
	if cfg.Diarization.SimilarityThreshold != 0.75 {
		t.Errorf("expected default similarity threshold on invalid input, got %v", cfg.Diarization.SimilarityThreshold)
	}
	if cfg.Transcribe.CallTimeout != 15*time.Second {
		t.Errorf("expected default call timeout on invalid input, got %v", cfg.Transcribe.CallTimeout)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	defer os.Unsetenv("SERVICE_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	key := "TEST_LIST_VAR"

	os.Setenv(key, " a ,b,, c")
	defer os.Unsetenv(key)

	got := envOrDefaultList(key, []string{"def"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected [a b c], got %v", got)
	}

	os.Setenv(key, " , ,")
	if got := envOrDefaultList(key, []string{"def"}); len(got) != 1 || got[0] != "def" {
		t.Errorf("expected fallback to default on blank list, got %v", got)
	}
}
