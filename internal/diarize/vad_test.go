package diarize

import (
	"math"
	"testing"
)

const testSampleRate = 16000

// tone synthesizes n samples mixing the given frequencies at equal amplitude.
func tone(freqs []float64, amp float64, n int) []float64 {
	out := make([]float64, n)
	for _, f := range freqs {
		for i := range out {
			out[i] += amp * math.Sin(2*math.Pi*f*float64(i)/float64(testSampleRate))
		}
	}
	return out
}

// harmonicVoice synthesizes a harmonic stack on the fundamental f0, which is
// spectrally rich enough to behave like a distinct voice in tests.
func harmonicVoice(f0 float64, n int) []float64 {
	out := make([]float64, n)
	for k := 1; k <= 12; k++ {
		freq := f0 * float64(k)
		if freq >= float64(testSampleRate)/2 {
			break
		}
		amp := 0.3 / float64(k)
		for i := range out {
			out[i] += amp * math.Sin(2*math.Pi*freq*float64(i)/float64(testSampleRate))
		}
	}
	return out
}

func seconds(d float64) int {
	return int(d * testSampleRate)
}

func TestDetectVoice_Silence(t *testing.T) {
	samples := make([]float64, seconds(2))
	if got := DetectVoice(samples, testSampleRate, 0.01); got != nil {
		t.Errorf("DetectVoice on silence = %v, want nil", got)
	}
}

func TestDetectVoice_SustainedSpeech(t *testing.T) {
	// 0.5s silence, 1s voice, 0.5s silence.
	samples := make([]float64, seconds(2))
	copy(samples[seconds(0.5):], harmonicVoice(110, seconds(1)))

	segs := DetectVoice(samples, testSampleRate, 0.01)
	if len(segs) != 1 {
		t.Fatalf("DetectVoice returned %d segments, want 1", len(segs))
	}
	seg := segs[0]
	if seg.StartMs < 450 || seg.StartMs > 550 {
		t.Errorf("StartMs = %d, want ~500", seg.StartMs)
	}
	if seg.EndMs < 1450 || seg.EndMs > 1600 {
		t.Errorf("EndMs = %d, want ~1500", seg.EndMs)
	}
	if seg.Energy <= 0.01 {
		t.Errorf("Energy = %f, want above threshold", seg.Energy)
	}
	if seg.StartSample >= seg.EndSample || seg.EndSample > len(samples) {
		t.Errorf("sample bounds [%d, %d) invalid for %d samples", seg.StartSample, seg.EndSample, len(samples))
	}
}

func TestDetectVoice_DropsShortBlips(t *testing.T) {
	// A 200ms blip is below the minimum voiced run and must be discarded.
	samples := make([]float64, seconds(2))
	copy(samples[seconds(0.5):], harmonicVoice(110, seconds(0.2)))

	if got := DetectVoice(samples, testSampleRate, 0.01); len(got) != 0 {
		t.Errorf("DetectVoice returned %d segments for a 200ms blip, want 0", len(got))
	}
}

func TestDetectVoice_BridgesBriefPauses(t *testing.T) {
	// Two 600ms bursts separated by 20ms of silence stay one segment; the gap
	// is shorter than the silence hangover.
	samples := make([]float64, seconds(2))
	copy(samples[seconds(0.2):], harmonicVoice(110, seconds(0.6)))
	copy(samples[seconds(0.82):], harmonicVoice(110, seconds(0.6)))

	segs := DetectVoice(samples, testSampleRate, 0.01)
	if len(segs) != 1 {
		t.Fatalf("DetectVoice returned %d segments, want 1 bridged segment", len(segs))
	}
	if got := segs[0].DurationMs(); got < 1100 {
		t.Errorf("bridged segment duration = %dms, want >= 1100", got)
	}
}

func TestDetectVoice_SplitsOnRealPauses(t *testing.T) {
	// A 400ms gap exceeds the hangover and must split the runs.
	samples := make([]float64, seconds(3))
	copy(samples[seconds(0.2):], harmonicVoice(110, seconds(0.8)))
	copy(samples[seconds(1.4):], harmonicVoice(220, seconds(0.8)))

	segs := DetectVoice(samples, testSampleRate, 0.01)
	if len(segs) != 2 {
		t.Fatalf("DetectVoice returned %d segments, want 2", len(segs))
	}
	if segs[0].EndMs >= segs[1].StartMs {
		t.Errorf("segments overlap: first ends %d, second starts %d", segs[0].EndMs, segs[1].StartMs)
	}
}

func TestVoiceSegmentDurationMs(t *testing.T) {
	seg := VoiceSegment{StartMs: 250, EndMs: 1250}
	if got := seg.DurationMs(); got != 1000 {
		t.Errorf("DurationMs() = %d, want 1000", got)
	}
}
