package diarize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"meeting-transcription-engine/internal/models"
)

// Embedding layout: 16 log-spaced band energies describing timbre, 8 frame
// envelope statistics, and 8 adjacent-band balance ratios. The whole vector is
// L2-normalized so cosine similarity is a plain dot product.
const (
	bandCount    = 16
	bandLowHz    = 100.0
	bandHighHz   = 3800.0
	envelopeDims = 8
	ratioDims    = 8
)

// bandCenters holds the geometrically spaced analysis frequencies.
var bandCenters = func() [bandCount]float64 {
	var centers [bandCount]float64
	for i := range centers {
		centers[i] = bandLowHz * math.Pow(bandHighHz/bandLowHz, float64(i)/float64(bandCount-1))
	}
	return centers
}()

// ExtractFeatures computes a fixed 32-dimension voice embedding from mono
// samples. Returns nil when the input is shorter than one analysis frame.
func ExtractFeatures(samples []float64, sampleRate int) []float64 {
	if sampleRate <= 0 {
		return nil
	}
	frame := sampleRate * frameMs / 1000
	hop := sampleRate * hopMs / 1000
	if frame == 0 || len(samples) < frame {
		return nil
	}

	// One pass over 25 ms frames: band energies are measured per frame and
	// averaged, which widens the Goertzel lobes enough to cover the gaps
	// between band centers.
	var bandSums [bandCount]float64
	var frameLevels, frameZCRs []float64
	for start := 0; start+frame <= len(samples); start += hop {
		f := samples[start : start+frame]
		for i, freq := range bandCenters {
			bandSums[i] += goertzelPower(f, sampleRate, freq)
		}
		frameLevels = append(frameLevels, frameRMS(f))
		frameZCRs = append(frameZCRs, frameZeroCrossRate(f))
	}
	frames := float64(len(frameLevels))

	features := make([]float64, models.ProfileDim)

	// Band energies normalized to describe spectral shape, not loudness.
	bands := features[:bandCount]
	for i := range bands {
		bands[i] = bandSums[i] / frames
	}
	if total := floats.Sum(bands); total > 0 {
		floats.Scale(1/total, bands)
	}

	// Frame envelope statistics.
	meanLevel, stdLevel := stat.MeanStdDev(frameLevels, nil)
	meanZCR, stdZCR := stat.MeanStdDev(frameZCRs, nil)
	if len(frameLevels) < 2 {
		stdLevel, stdZCR = 0, 0
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	quiet := 0
	for _, l := range frameLevels {
		if l < meanLevel/2 {
			quiet++
		}
	}

	env := features[bandCount : bandCount+envelopeDims]
	env[0] = meanLevel
	env[1] = stdLevel
	env[2] = meanZCR
	env[3] = stdZCR
	env[4] = peak
	env[5] = floats.Max(frameLevels) - floats.Min(frameLevels)
	env[6] = spectralCentroidProxy(samples)
	env[7] = float64(quiet) / frames

	// Adjacent-band balance: pitch and formant placement shifts these ratios
	// between speakers even when overall spectral shape is similar. Pairs
	// with no energy contribute nothing.
	ratios := features[bandCount+envelopeDims:]
	for i := 0; i < ratioDims; i++ {
		lo, hi := bands[2*i], bands[2*i+1]
		if lo+hi > 1e-9 {
			ratios[i] = lo / (lo + hi)
		}
	}

	if n := floats.Norm(features, 2); n > 0 {
		floats.Scale(1/n, features)
	}
	return features
}

// CosineSimilarity returns the cosine of the angle between two embeddings,
// or 0 when either is empty or zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// goertzelPower measures signal power at a single frequency without a full
// spectral transform.
func goertzelPower(samples []float64, sampleRate int, freq float64) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(w)
	var s1, s2 float64
	for _, x := range samples {
		s0 := x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return power / float64(len(samples))
}

// spectralCentroidProxy estimates spectral brightness as the mean absolute
// first difference over the mean absolute level.
func spectralCentroidProxy(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var diff, level float64
	for i := 1; i < len(samples); i++ {
		diff += math.Abs(samples[i] - samples[i-1])
		level += math.Abs(samples[i])
	}
	if level == 0 {
		return 0
	}
	return diff / level
}

func frameZeroCrossRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}
