package session

import "fmt"

// Config is the per-session pipeline configuration supplied at start.
// Zero-valued fields are filled from the engine defaults.
type Config struct {
	Model               string   `json:"model"`
	Language            string   `json:"language"`
	Diarization         bool     `json:"diarization"`
	ChunkSize           int      `json:"chunkSize"`
	OverlapSize         int      `json:"overlapSize"`
	SampleRate          int      `json:"sampleRate"`
	Channels            int      `json:"channels"`
	BitsPerSample       int      `json:"bitsPerSample"`
	ConfidenceThreshold float64  `json:"confidenceThreshold"`
	FallbackModels      []string `json:"fallbackModels,omitempty"`
}

// applyDefaults fills unset fields from the engine defaults and validates
// the result. FallbackModels defaults only when nil: an explicit empty
// slice means "no fallbacks".
func (c *Config) applyDefaults(def Config) error {
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.OverlapSize == 0 {
		c.OverlapSize = def.OverlapSize
	}
	if c.SampleRate == 0 {
		c.SampleRate = def.SampleRate
	}
	if c.Channels == 0 {
		c.Channels = def.Channels
	}
	if c.BitsPerSample == 0 {
		c.BitsPerSample = def.BitsPerSample
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.FallbackModels == nil {
		c.FallbackModels = append([]string(nil), def.FallbackModels...)
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required: %w", ErrInvalidConfig)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size %d: %w", c.ChunkSize, ErrInvalidConfig)
	}
	if c.OverlapSize < 0 || c.OverlapSize >= c.ChunkSize {
		return fmt.Errorf("overlap %d must be in [0, chunk size): %w", c.OverlapSize, ErrInvalidConfig)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate %d: %w", c.SampleRate, ErrInvalidConfig)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels %d (mono or stereo only): %w", c.Channels, ErrInvalidConfig)
	}
	if c.BitsPerSample != 16 {
		return fmt.Errorf("bits per sample %d (16-bit PCM only): %w", c.BitsPerSample, ErrInvalidConfig)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v: %w", c.ConfidenceThreshold, ErrInvalidConfig)
	}
	return nil
}

// clone returns a deep copy of the config.
func (c Config) clone() Config {
	out := c
	out.FallbackModels = append([]string(nil), c.FallbackModels...)
	return out
}
