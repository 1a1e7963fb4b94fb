package session

import (
	"errors"
	"testing"
)

func defaultTestConfig() Config {
	return Config{
		Model:               "sim-small",
		Language:            "en-US",
		ChunkSize:           16384,
		OverlapSize:         2048,
		SampleRate:          16000,
		Channels:            1,
		BitsPerSample:       16,
		ConfidenceThreshold: 0.5,
		FallbackModels:      []string{"sim-large"},
	}
}

func TestConfigApplyDefaultsFillsZeroFields(t *testing.T) {
	def := defaultTestConfig()

	var cfg Config
	if err := cfg.applyDefaults(def); err != nil {
		t.Fatalf("applyDefaults() error = %v", err)
	}
	if cfg.Model != def.Model {
		t.Errorf("Model = %q, want %q", cfg.Model, def.Model)
	}
	if cfg.ChunkSize != def.ChunkSize || cfg.OverlapSize != def.OverlapSize {
		t.Errorf("window = %d/%d, want %d/%d", cfg.ChunkSize, cfg.OverlapSize, def.ChunkSize, def.OverlapSize)
	}
	if cfg.SampleRate != def.SampleRate || cfg.Channels != 1 || cfg.BitsPerSample != 16 {
		t.Errorf("format = %d/%d/%d, want %d/1/16", cfg.SampleRate, cfg.Channels, cfg.BitsPerSample, def.SampleRate)
	}
	if len(cfg.FallbackModels) != 1 || cfg.FallbackModels[0] != "sim-large" {
		t.Errorf("FallbackModels = %v, want [sim-large]", cfg.FallbackModels)
	}
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Model:               "google-speech",
		Language:            "de-DE",
		ChunkSize:           8192,
		OverlapSize:         1024,
		SampleRate:          8000,
		Channels:            2,
		BitsPerSample:       16,
		ConfidenceThreshold: 0.8,
	}
	if err := cfg.applyDefaults(defaultTestConfig()); err != nil {
		t.Fatalf("applyDefaults() error = %v", err)
	}
	if cfg.Model != "google-speech" || cfg.Language != "de-DE" {
		t.Errorf("explicit fields overridden: %+v", cfg)
	}
	if cfg.ChunkSize != 8192 || cfg.SampleRate != 8000 || cfg.Channels != 2 {
		t.Errorf("explicit format overridden: %+v", cfg)
	}
}

func TestConfigExplicitEmptyFallbacksMeanNone(t *testing.T) {
	cfg := Config{FallbackModels: []string{}}
	if err := cfg.applyDefaults(defaultTestConfig()); err != nil {
		t.Fatalf("applyDefaults() error = %v", err)
	}
	if len(cfg.FallbackModels) != 0 {
		t.Errorf("FallbackModels = %v, want empty", cfg.FallbackModels)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	base := defaultTestConfig()
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no model", func(c *Config) { c.Model = "" }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = -1 }},
		{"negative overlap", func(c *Config) { c.OverlapSize = -1 }},
		{"overlap equals chunk size", func(c *Config) { c.OverlapSize = c.ChunkSize }},
		{"zero sample rate", func(c *Config) { c.SampleRate = -8000 }},
		{"three channels", func(c *Config) { c.Channels = 3 }},
		{"8-bit samples", func(c *Config) { c.BitsPerSample = 8 }},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base.clone()
			tt.mutate(&cfg)
			err := cfg.validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	cfg := defaultTestConfig()
	dup := cfg.clone()
	dup.FallbackModels[0] = "changed"
	if cfg.FallbackModels[0] != "sim-large" {
		t.Errorf("clone shares FallbackModels with the original")
	}
}
