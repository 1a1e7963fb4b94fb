package audio

import (
	"math"

	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/observability/logging"
)

// minFrameMs is the shortest input the preprocessor conditions; anything
// shorter passes through untouched with quality 0.
const minFrameMs = 25

// highPassCutoffHz is the noise-reduction cutoff. Speech fundamentals sit
// above 85 Hz, so everything below 80 Hz is rumble.
const highPassCutoffHz = 80.0

// Gain bounds for volume normalization.
const (
	minGain = 0.25
	maxGain = 4.0
)

// Enhancement reports the quality delta contributed by one processing stage.
type Enhancement struct {
	Stage string  `json:"stage"`
	Delta float64 `json:"delta"`
}

// Result is the output of one preprocessing pass.
type Result struct {
	Bytes        []byte        `json:"-"`
	Format       Format        `json:"format"`
	QualityScore float64       `json:"qualityScore"`
	Enhancements []Enhancement `json:"enhancements,omitempty"`
}

// Options toggles the preprocessing stages.
type Options struct {
	Normalize        bool
	NoiseReduction   bool
	EchoCancellation bool
	TargetRMS        float64
}

// DefaultOptions returns the stage configuration used when none is supplied.
func DefaultOptions() Options {
	return Options{
		Normalize:      true,
		NoiseReduction: true,
		TargetRMS:      0.2,
	}
}

// Preprocessor conditions raw chunk audio for the downstream pipeline:
// container decode, conversion to the session sample format, volume
// normalization, and noise reduction.
type Preprocessor struct {
	opts Options
	log  zerolog.Logger
}

// NewPreprocessor creates a preprocessor with the given stage options.
func NewPreprocessor(opts Options) *Preprocessor {
	if opts.TargetRMS <= 0 {
		opts.TargetRMS = DefaultOptions().TargetRMS
	}
	return &Preprocessor{
		opts: opts,
		log:  logging.WithComponent("preprocessor"),
	}
}

// MinInputBytes returns the passthrough threshold for a format: one 25 ms frame.
func MinInputBytes(f Format) int {
	return f.BytesPerSecond() * minFrameMs / 1000
}

// Process runs the enabled stages over raw audio and returns conditioned
// 16-bit mono PCM at the target sample rate. WAV and MP3 containers are
// detected and decoded; anything else is treated as raw PCM already in the
// target format. Inputs shorter than one frame pass through with quality 0.
func (p *Preprocessor) Process(raw []byte, target Format) (Result, error) {
	if len(raw) < MinInputBytes(target) {
		return Result{Bytes: raw, Format: target, QualityScore: 0}, nil
	}

	samples, src, err := p.decode(raw, target)
	if err != nil {
		return Result{}, err
	}

	var enhancements []Enhancement
	score := qualityScore(samples, p.opts.TargetRMS)

	if src.SampleRate != target.SampleRate || src.Channels > 1 {
		samples = foldToMono(samples, src.Channels)
		samples = resampleLinear(samples, src.SampleRate, target.SampleRate)
		next := qualityScore(samples, p.opts.TargetRMS)
		enhancements = append(enhancements, Enhancement{Stage: "format_conversion", Delta: next - score})
		score = next
	}

	if p.opts.Normalize {
		samples = normalizeVolume(samples, p.opts.TargetRMS)
		next := qualityScore(samples, p.opts.TargetRMS)
		enhancements = append(enhancements, Enhancement{Stage: "normalization", Delta: next - score})
		score = next
	}

	if p.opts.NoiseReduction {
		samples = highPass(samples, target.SampleRate)
		next := qualityScore(samples, p.opts.TargetRMS)
		enhancements = append(enhancements, Enhancement{Stage: "noise_reduction", Delta: next - score})
		score = next
	}

	if p.opts.EchoCancellation {
		samples = cancelEcho(samples)
		enhancements = append(enhancements, Enhancement{Stage: "echo_cancellation", Delta: 0})
	}

	p.log.Debug().
		Int("inBytes", len(raw)).
		Int("outSamples", len(samples)).
		Float64("quality", score).
		Msg("chunk preprocessed")

	return Result{
		Bytes:        EncodePCM16(samples),
		Format:       Format{SampleRate: target.SampleRate, Channels: 1, BitsPerSample: 16},
		QualityScore: score,
		Enhancements: enhancements,
	}, nil
}

// decode sniffs the container and returns samples plus their source format.
// Raw PCM is assumed to already match the target format.
func (p *Preprocessor) decode(raw []byte, target Format) ([]float64, Format, error) {
	switch {
	case isWAV(raw):
		return DecodeWAV(raw)
	case isMP3(raw):
		return DecodeMP3(raw)
	default:
		return DecodePCM16(raw), target, nil
	}
}

// normalizeVolume scales samples toward the target RMS level.
// The gain is clamped so silence is not blown up into noise and hot signals
// are not crushed; the output is hard-clipped at full scale.
func normalizeVolume(samples []float64, targetRMS float64) []float64 {
	rms := RMS(samples)
	if rms == 0 {
		return samples
	}
	gain := targetRMS / rms
	if gain < minGain {
		gain = minGain
	} else if gain > maxGain {
		gain = maxGain
	}

	out := make([]float64, len(samples))
	for i, s := range samples {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	return out
}

// highPass applies a single-pole high-pass IIR filter:
//
//	y[i] = α(y[i−1] + x[i] − x[i−1]),  α = RC/(RC+dt),  RC = 1/(2π·cutoff)
func highPass(samples []float64, sampleRate int) []float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return samples
	}
	rc := 1.0 / (2 * math.Pi * highPassCutoffHz)
	dt := 1.0 / float64(sampleRate)
	alpha := rc / (rc + dt)

	out := make([]float64, len(samples))
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = alpha * (out[i-1] + samples[i] - samples[i-1])
	}
	return out
}

// cancelEcho is the echo-cancellation stage. Currently a passthrough sized so
// an NLMS canceller can replace it without contract changes.
func cancelEcho(samples []float64) []float64 {
	return samples
}

// qualityScore blends signal level, clipping, and zero-crossing plausibility
// into a single [0,1] score.
func qualityScore(samples []float64, targetRMS float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	rms := RMS(samples)
	var level float64
	if rms > 0 {
		level = math.Min(rms, targetRMS) / math.Max(rms, targetRMS)
	}

	clip := 1 - math.Min(1, clippingRatio(samples)*10)

	// Speech zero-crossing rates live roughly in [0.01, 0.35]; score falls off
	// linearly outside the band.
	zcr := zeroCrossRate(samples)
	var zcrScore float64
	switch {
	case zcr >= 0.01 && zcr <= 0.35:
		zcrScore = 1
	case zcr < 0.01:
		zcrScore = zcr / 0.01
	default:
		zcrScore = math.Max(0, 1-(zcr-0.35)/0.35)
	}

	score := 0.5*level + 0.3*clip + 0.2*zcrScore
	return math.Max(0, math.Min(1, score))
}
