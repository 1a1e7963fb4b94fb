package models

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// ProfileDim is the dimensionality of voice profile feature vectors.
const ProfileDim = 32

// profileBlendWeight is the weight of the existing profile when folding in a
// new observation; the observation carries the remainder.
const profileBlendWeight = 0.9

// SpeakerUnknown is the reserved speaker id used when diarization is disabled,
// fails, or detects no voice in a chunk. It never has a Speaker entry.
const SpeakerUnknown = "unknown"

// VoiceProfile is a running acoustic fingerprint for one speaker. Features are
// kept at unit L2 norm so cosine similarity reduces to a dot product.
type VoiceProfile struct {
	Features    []float64 `json:"features"`
	Confidence  float64   `json:"confidence"`
	SampleCount int       `json:"sampleCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewVoiceProfile creates a profile from an initial observation.
// The observation is copied and normalized.
func NewVoiceProfile(observation []float64, confidence float64) VoiceProfile {
	f := make([]float64, len(observation))
	copy(f, observation)
	normalizeL2(f)
	return VoiceProfile{
		Features:    f,
		Confidence:  confidence,
		SampleCount: 1,
		UpdatedAt:   time.Now(),
	}
}

// Blend folds a new observation into the profile:
//
//	f = normalize(0.9·f_old + 0.1·f_new)
//
// The profile stays at unit L2 norm after every update. Observations of the
// wrong dimension are ignored.
func (p *VoiceProfile) Blend(observation []float64) {
	if len(observation) != len(p.Features) || len(observation) == 0 {
		return
	}
	floats.Scale(profileBlendWeight, p.Features)
	floats.AddScaled(p.Features, 1-profileBlendWeight, observation)
	normalizeL2(p.Features)
	p.SampleCount++
	p.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the profile.
func (p VoiceProfile) Clone() VoiceProfile {
	f := make([]float64, len(p.Features))
	copy(f, p.Features)
	return VoiceProfile{Features: f, Confidence: p.Confidence, SampleCount: p.SampleCount, UpdatedAt: p.UpdatedAt}
}

// Norm returns the L2 norm of the profile features.
func (p VoiceProfile) Norm() float64 {
	return floats.Norm(p.Features, 2)
}

func normalizeL2(f []float64) {
	n := floats.Norm(f, 2)
	if n == 0 {
		return
	}
	floats.Scale(1/n, f)
}

// Speaker is a participant identified within a session. Speakers are created
// on first detection, updated as more of their audio arrives, and never
// deleted within a session (merging retires one into another).
type Speaker struct {
	ID            string       `json:"id"`
	Label         string       `json:"label"`
	Profile       VoiceProfile `json:"profile"`
	TotalSpeechMs int64        `json:"totalSpeechMs"`
	SegmentIDs    []string     `json:"segmentIds,omitempty"`
	AvgConfidence float64      `json:"avgConfidence"`
}

// Attribute records a transcribed segment against the speaker: speaking time,
// segment membership, and the running mean confidence.
func (s *Speaker) Attribute(seg TranscriptSegment) {
	s.TotalSpeechMs += seg.EndMs - seg.StartMs
	s.SegmentIDs = append(s.SegmentIDs, seg.ID)
	n := float64(len(s.SegmentIDs))
	s.AvgConfidence += (seg.Confidence - s.AvgConfidence) / n
}

// Clone returns a deep copy of the speaker, profile included.
func (s Speaker) Clone() Speaker {
	c := s
	c.Profile = s.Profile.Clone()
	c.SegmentIDs = append([]string(nil), s.SegmentIDs...)
	return c
}
