package diarize

import (
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"meeting-transcription-engine/internal/models"
)

// SpeakerSegment attributes one voiced span to a clustered speaker.
type SpeakerSegment struct {
	SpeakerID  string  `json:"speakerId"`
	StartMs    int64   `json:"startMs"`
	EndMs      int64   `json:"endMs"`
	Similarity float64 `json:"similarity"`
}

// cluster is a speaker hypothesis built up during the greedy pass.
type cluster struct {
	mean     []float64 // running mean of member embeddings
	count    int
	speechMs int64
	members  []int
	simSum   float64 // similarity of absorbed members, founding member excluded
}

func (c *cluster) absorb(embedding []float64, sim float64, durationMs int64, member int) {
	n := float64(c.count)
	floats.Scale(n/(n+1), c.mean)
	floats.AddScaled(c.mean, 1/(n+1), embedding)
	c.count++
	c.speechMs += durationMs
	c.simSum += sim
	c.members = append(c.members, member)
}

// cohesion is the mean similarity of members to the cluster at absorption
// time; a single-member cluster is perfectly cohesive.
func (c *cluster) cohesion() float64 {
	if c.count <= 1 {
		return 1
	}
	return c.simSum / float64(c.count-1)
}

// clusterSegments runs the greedy pass: segments are visited in time order,
// each either absorbed by the most similar existing cluster or founding a new
// one. Founding stops at maxSpeakers; past the cap a segment joins its best
// match regardless of the threshold.
func clusterSegments(embeddings [][]float64, voiced []VoiceSegment, threshold float64, maxSpeakers int) []*cluster {
	var clusters []*cluster
	for i, emb := range embeddings {
		if emb == nil {
			continue
		}
		best, bestSim := -1, 0.0
		for j, c := range clusters {
			if sim := CosineSimilarity(emb, c.mean); sim > bestSim {
				best, bestSim = j, sim
			}
		}
		dur := voiced[i].DurationMs()
		switch {
		case best >= 0 && bestSim >= threshold:
			clusters[best].absorb(emb, bestSim, dur, i)
		case len(clusters) < maxSpeakers:
			mean := make([]float64, len(emb))
			copy(mean, emb)
			clusters = append(clusters, &cluster{
				mean:     mean,
				count:    1,
				speechMs: dur,
				members:  []int{i},
			})
		case best >= 0:
			clusters[best].absorb(emb, bestSim, dur, i)
		}
	}
	return clusters
}

// pruneClusters drops speaker hypotheses with less than minSpeechMs of voiced
// time and re-homes their members to the nearest survivor.
func pruneClusters(clusters []*cluster, embeddings [][]float64, voiced []VoiceSegment, minSpeechMs int64) []*cluster {
	var kept, dropped []*cluster
	for _, c := range clusters {
		if c.speechMs >= minSpeechMs {
			kept = append(kept, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	for _, d := range dropped {
		for _, m := range d.members {
			best, bestSim := kept[0], 0.0
			for _, c := range kept {
				if sim := CosineSimilarity(embeddings[m], c.mean); sim > bestSim {
					best, bestSim = c, sim
				}
			}
			best.absorb(embeddings[m], bestSim, voiced[m].DurationMs(), m)
		}
	}
	return kept
}

// buildSpeakers materializes clusters as speakers with fresh identities and
// unit-norm profiles. TotalSpeechMs here is voiced time within the analyzed
// buffer; session-level speaking time is tracked against transcript segments.
func buildSpeakers(clusters []*cluster) []models.Speaker {
	speakers := make([]models.Speaker, 0, len(clusters))
	for i, c := range clusters {
		profile := models.NewVoiceProfile(c.mean, c.cohesion())
		profile.SampleCount = c.count
		speakers = append(speakers, models.Speaker{
			ID:            uuid.NewString(),
			Label:         fmt.Sprintf("Speaker %d", i+1),
			Profile:       profile,
			TotalSpeechMs: c.speechMs,
		})
	}
	return speakers
}

// MergeSpeakers folds two speakers into one: element-mean profile features
// re-normalized, summed profile sample counts and speech time, concatenated
// segment membership, and a fresh identity. The sources are retired; the
// caller re-points their segments at the merged id.
func MergeSpeakers(a, b models.Speaker) models.Speaker {
	features := make([]float64, len(a.Profile.Features))
	if len(b.Profile.Features) == len(a.Profile.Features) {
		floats.AddTo(features, a.Profile.Features, b.Profile.Features)
		floats.Scale(0.5, features)
	} else {
		copy(features, a.Profile.Features)
	}

	profile := models.NewVoiceProfile(features, (a.Profile.Confidence+b.Profile.Confidence)/2)
	profile.SampleCount = a.Profile.SampleCount + b.Profile.SampleCount

	segmentIDs := make([]string, 0, len(a.SegmentIDs)+len(b.SegmentIDs))
	segmentIDs = append(segmentIDs, a.SegmentIDs...)
	segmentIDs = append(segmentIDs, b.SegmentIDs...)

	var avg float64
	if n := len(segmentIDs); n > 0 {
		avg = (a.AvgConfidence*float64(len(a.SegmentIDs)) + b.AvgConfidence*float64(len(b.SegmentIDs))) / float64(n)
	} else {
		avg = (a.AvgConfidence + b.AvgConfidence) / 2
	}

	return models.Speaker{
		ID:            uuid.NewString(),
		Label:         a.Label,
		Profile:       profile,
		TotalSpeechMs: a.TotalSpeechMs + b.TotalSpeechMs,
		SegmentIDs:    segmentIDs,
		AvgConfidence: avg,
	}
}
