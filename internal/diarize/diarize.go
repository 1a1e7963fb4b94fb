// Package diarize partitions audio by speaker: voice activity detection,
// fixed-size voice embeddings, greedy similarity clustering, and incremental
// identification against known voice profiles.
package diarize

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/observability/logging"
	"meeting-transcription-engine/internal/observability/metrics"
)

// ErrNoVoice is returned when a buffer contains no usable voice activity.
var ErrNoVoice = errors.New("no voice activity detected")

// Config tunes the diarization engine.
type Config struct {
	SampleRate          int
	SimilarityThreshold float64
	MaxSpeakers         int
	MinSpeakerSeconds   float64
	VADEnergyThreshold  float64
}

// DefaultConfig returns the tuning used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		SampleRate:          16000,
		SimilarityThreshold: 0.75,
		MaxSpeakers:         8,
		MinSpeakerSeconds:   1.0,
		VADEnergyThreshold:  0.01,
	}
}

// Result is the output of one full diarization pass.
type Result struct {
	Speakers   []models.Speaker
	Segments   []SpeakerSegment
	Confidence float64
}

// Engine performs speaker diarization over mono PCM sample buffers.
type Engine struct {
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates an engine, filling unset config fields with defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.MaxSpeakers <= 0 {
		cfg.MaxSpeakers = def.MaxSpeakers
	}
	if cfg.MinSpeakerSeconds <= 0 {
		cfg.MinSpeakerSeconds = def.MinSpeakerSeconds
	}
	if cfg.VADEnergyThreshold <= 0 {
		cfg.VADEnergyThreshold = def.VADEnergyThreshold
	}
	return &Engine{
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("diarize"),
	}
}

// Diarize detects voiced spans, embeds each, and clusters them into speakers.
// Returns ErrNoVoice when nothing voiced survives detection, and an empty
// speaker list when voiced spans exist but none accumulate enough speech to
// count as a speaker.
func (e *Engine) Diarize(samples []float64) (Result, error) {
	voiced := DetectVoice(samples, e.cfg.SampleRate, e.cfg.VADEnergyThreshold)
	if len(voiced) == 0 {
		return Result{}, ErrNoVoice
	}

	embeddings := make([][]float64, len(voiced))
	for i, seg := range voiced {
		embeddings[i] = ExtractFeatures(samples[seg.StartSample:seg.EndSample], e.cfg.SampleRate)
	}

	clusters := clusterSegments(embeddings, voiced, e.cfg.SimilarityThreshold, e.cfg.MaxSpeakers)
	clusters = pruneClusters(clusters, embeddings, voiced, int64(e.cfg.MinSpeakerSeconds*1000))
	if len(clusters) == 0 {
		return Result{}, nil
	}

	speakers := buildSpeakers(clusters)

	segments := make([]SpeakerSegment, 0, len(voiced))
	var cohesionSum, speechSum float64
	for ci, c := range clusters {
		for _, m := range c.members {
			segments = append(segments, SpeakerSegment{
				SpeakerID:  speakers[ci].ID,
				StartMs:    voiced[m].StartMs,
				EndMs:      voiced[m].EndMs,
				Similarity: CosineSimilarity(embeddings[m], c.mean),
			})
		}
		cohesionSum += c.cohesion() * float64(c.speechMs)
		speechSum += float64(c.speechMs)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].StartMs < segments[j].StartMs })

	speakers, segments = e.mergeConverged(speakers, segments)

	var confidence float64
	if speechSum > 0 {
		confidence = cohesionSum / speechSum
	}

	e.log.Debug().
		Int("voicedSpans", len(voiced)).
		Int("speakers", len(speakers)).
		Float64("confidence", confidence).
		Msg("diarization pass complete")

	return Result{Speakers: speakers, Segments: segments, Confidence: confidence}, nil
}

// mergeConverged folds speaker pairs whose final profiles sit within the
// clustering threshold of each other. The greedy pass can split one voice
// across two founders when its early segments differ; the running means
// then converge as members accumulate. Segments of a retired speaker are
// re-pointed at the merged id.
func (e *Engine) mergeConverged(speakers []models.Speaker, segments []SpeakerSegment) ([]models.Speaker, []SpeakerSegment) {
	merges := 0
	for i := 0; i < len(speakers); i++ {
		for j := i + 1; j < len(speakers); j++ {
			sim := CosineSimilarity(speakers[i].Profile.Features, speakers[j].Profile.Features)
			if sim < e.cfg.SimilarityThreshold {
				continue
			}
			merged := MergeSpeakers(speakers[i], speakers[j])
			for k := range segments {
				if segments[k].SpeakerID == speakers[i].ID || segments[k].SpeakerID == speakers[j].ID {
					segments[k].SpeakerID = merged.ID
				}
			}
			e.metrics.RecordSpeakersMerged()
			e.log.Debug().
				Str("into", merged.ID).
				Float64("similarity", sim).
				Msg("converged speakers merged")
			speakers[i] = merged
			speakers = append(speakers[:j], speakers[j+1:]...)
			merges++
			j = i // rescan against the merged profile
		}
	}
	if merges > 0 {
		for i := range speakers {
			speakers[i].Label = fmt.Sprintf("Speaker %d", i+1)
		}
	}
	return speakers, segments
}

// EmbedChunk returns a single embedding for all voiced audio in the buffer,
// for identification against known profiles, plus the voiced time it covers.
// ok is false when no voice is detected.
func (e *Engine) EmbedChunk(samples []float64) (embedding []float64, voicedMs int64, ok bool) {
	voiced := DetectVoice(samples, e.cfg.SampleRate, e.cfg.VADEnergyThreshold)
	if len(voiced) == 0 {
		return nil, 0, false
	}

	var speech []float64
	for _, seg := range voiced {
		speech = append(speech, samples[seg.StartSample:seg.EndSample]...)
		voicedMs += seg.DurationMs()
	}
	embedding = ExtractFeatures(speech, e.cfg.SampleRate)
	if embedding == nil {
		return nil, 0, false
	}
	return embedding, voicedMs, true
}
