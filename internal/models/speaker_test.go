package models

import (
	"math"
	"testing"
)

func TestNewVoiceProfile_Normalizes(t *testing.T) {
	obs := make([]float64, ProfileDim)
	for i := range obs {
		obs[i] = float64(i + 1)
	}

	p := NewVoiceProfile(obs, 0.8)

	if got := p.Norm(); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected unit norm after construction, got %v", got)
	}
	if p.SampleCount != 1 {
		t.Errorf("expected sample count 1, got %d", p.SampleCount)
	}
	if p.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", p.Confidence)
	}
	// Construction must not alias the caller's slice.
	obs[0] = 999
	if p.Features[0] == 999 {
		t.Error("profile aliases the observation slice")
	}
}

func TestVoiceProfile_BlendKeepsUnitNorm(t *testing.T) {
	obs := make([]float64, ProfileDim)
	obs[0] = 1
	p := NewVoiceProfile(obs, 0.9)

	// Blend a series of very different observations; the norm must hold
	// within 1e-6 after every single update.
	for i := 0; i < 50; i++ {
		next := make([]float64, ProfileDim)
		next[i%ProfileDim] = 1
		next[(i*7+3)%ProfileDim] = 0.5
		p.Blend(next)

		if got := p.Norm(); math.Abs(got-1) > 1e-6 {
			t.Fatalf("update %d: expected unit norm, got %v", i, got)
		}
	}
	if p.SampleCount != 51 {
		t.Errorf("expected sample count 51, got %d", p.SampleCount)
	}
}

func TestVoiceProfile_BlendWeights(t *testing.T) {
	// Profile starts as e0, observation is e1. The blend is
	// normalize(0.9*e0 + 0.1*e1), so the component ratio must be 9:1.
	obs := make([]float64, ProfileDim)
	obs[0] = 1
	p := NewVoiceProfile(obs, 0.9)

	next := make([]float64, ProfileDim)
	next[1] = 1
	p.Blend(next)

	norm := math.Sqrt(0.9*0.9 + 0.1*0.1)
	want0 := 0.9 / norm
	want1 := 0.1 / norm

	if math.Abs(p.Features[0]-want0) > 1e-9 {
		t.Errorf("expected features[0]=%v, got %v", want0, p.Features[0])
	}
	if math.Abs(p.Features[1]-want1) > 1e-9 {
		t.Errorf("expected features[1]=%v, got %v", want1, p.Features[1])
	}
}

func TestVoiceProfile_BlendIgnoresWrongDimension(t *testing.T) {
	obs := make([]float64, ProfileDim)
	obs[0] = 1
	p := NewVoiceProfile(obs, 0.9)

	p.Blend([]float64{1, 2, 3})

	if p.SampleCount != 1 {
		t.Errorf("expected mismatched observation to be ignored, sample count %d", p.SampleCount)
	}
	if p.Features[0] != 1 {
		t.Errorf("expected features untouched, got %v", p.Features[0])
	}
}

func TestSpeaker_Attribute(t *testing.T) {
	s := Speaker{ID: "spk-1", Label: "Speaker 1"}

	s.Attribute(TranscriptSegment{ID: "seg-1", StartMs: 0, EndMs: 500, Confidence: 0.8})
	s.Attribute(TranscriptSegment{ID: "seg-2", StartMs: 500, EndMs: 1500, Confidence: 0.6})

	if s.TotalSpeechMs != 1500 {
		t.Errorf("expected total speech 1500ms, got %d", s.TotalSpeechMs)
	}
	if len(s.SegmentIDs) != 2 || s.SegmentIDs[0] != "seg-1" || s.SegmentIDs[1] != "seg-2" {
		t.Errorf("unexpected segment ids %v", s.SegmentIDs)
	}
	if math.Abs(s.AvgConfidence-0.7) > 1e-9 {
		t.Errorf("expected mean confidence 0.7, got %v", s.AvgConfidence)
	}
}

func TestSpeaker_CloneIsDeep(t *testing.T) {
	obs := make([]float64, ProfileDim)
	obs[0] = 1
	s := Speaker{ID: "spk-1", Label: "Speaker 1", Profile: NewVoiceProfile(obs, 0.9), SegmentIDs: []string{"seg-1"}}

	c := s.Clone()
	c.Profile.Features[0] = -1
	c.SegmentIDs[0] = "other"

	if s.Profile.Features[0] == -1 {
		t.Error("clone shares profile features with the original")
	}
	if s.SegmentIDs[0] != "seg-1" {
		t.Error("clone shares segment ids with the original")
	}
}
