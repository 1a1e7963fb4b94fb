// Package audio implements the chunk preprocessor: container decoding, format
// conversion, and signal conditioning ahead of diarization and transcription.
package audio

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Format describes raw PCM audio parameters.
type Format struct {
	SampleRate    int `json:"sampleRate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bitsPerSample"`
}

// BytesPerSecond returns the byte rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// DecodePCM16 converts little-endian 16-bit PCM bytes to samples in [-1, 1).
// A trailing odd byte is ignored.
func DecodePCM16(raw []byte) []float64 {
	n := len(raw) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}

// EncodePCM16 converts samples to little-endian 16-bit PCM bytes,
// hard-clipping anything outside [-1, 1].
func EncodePCM16(samples []float64) []byte {
	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}
	return raw
}

// RMS returns the root-mean-square level of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}

// zeroCrossRate returns the fraction of adjacent sample pairs that change sign.
func zeroCrossRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// clippingRatio returns the fraction of samples at or beyond full scale.
func clippingRatio(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	clipped := 0
	for _, s := range samples {
		if s >= 0.999 || s <= -0.999 {
			clipped++
		}
	}
	return float64(clipped) / float64(len(samples))
}

// foldToMono averages interleaved channels down to a single channel.
func foldToMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	n := len(samples) / channels
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// resampleLinear converts samples from one rate to another by linear
// interpolation. Good enough for speech model input.
func resampleLinear(samples []float64, from, to int) []float64 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}
	outLen := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if outLen == 0 {
		return nil
	}
	out := make([]float64, outLen)
	ratio := float64(len(samples)-1) / float64(outLen-1)
	if outLen == 1 {
		ratio = 0
	}
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
