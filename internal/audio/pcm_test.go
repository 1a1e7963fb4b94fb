package audio

import (
	"math"
	"testing"
)

// sine generates n samples of a sine wave at freq Hz with the given amplitude.
func sine(n int, freq float64, sampleRate int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestPCM16_RoundTrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.25, -1, 1}

	out := DecodePCM16(EncodePCM16(in))

	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-3 {
			t.Errorf("sample %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}

func TestEncodePCM16_ClampsOutOfRange(t *testing.T) {
	out := DecodePCM16(EncodePCM16([]float64{2.0, -3.0}))

	if out[0] < 0.99 {
		t.Errorf("expected positive overdrive clamped to full scale, got %v", out[0])
	}
	if out[1] > -0.99 {
		t.Errorf("expected negative overdrive clamped to full scale, got %v", out[1])
	}
}

func TestRMS(t *testing.T) {
	// A full-scale square wave has RMS 1.
	square := []float64{1, -1, 1, -1, 1, -1}
	if got := RMS(square); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected RMS 1 for square wave, got %v", got)
	}
	// A sine wave of amplitude A has RMS A/sqrt(2).
	s := sine(16000, 440, 16000, 0.5)
	want := 0.5 / math.Sqrt2
	if got := RMS(s); math.Abs(got-want) > 1e-2 {
		t.Errorf("expected RMS %v for sine, got %v", want, got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("expected RMS 0 for empty input, got %v", got)
	}
}

func TestFoldToMono(t *testing.T) {
	stereo := []float64{1, 0, 0.5, 0.5, -1, 1}

	mono := foldToMono(stereo, 2)

	want := []float64{0.5, 0.5, 0}
	if len(mono) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(mono))
	}
	for i := range want {
		if math.Abs(mono[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], mono[i])
		}
	}
}

func TestResampleLinear(t *testing.T) {
	s := sine(8000, 200, 8000, 0.5)

	up := resampleLinear(s, 8000, 16000)
	if got, want := len(up), 16000; math.Abs(float64(got-want)) > 2 {
		t.Errorf("expected ~%d samples after upsample, got %d", want, got)
	}
	// Energy should survive resampling.
	if math.Abs(RMS(up)-RMS(s)) > 0.02 {
		t.Errorf("upsample changed RMS: %v -> %v", RMS(s), RMS(up))
	}

	down := resampleLinear(s, 8000, 4000)
	if got, want := len(down), 4000; math.Abs(float64(got-want)) > 2 {
		t.Errorf("expected ~%d samples after downsample, got %d", want, got)
	}

	same := resampleLinear(s, 8000, 8000)
	if len(same) != len(s) {
		t.Errorf("expected identity resample to keep length, got %d", len(same))
	}
}
