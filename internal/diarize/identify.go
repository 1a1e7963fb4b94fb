package diarize

import "meeting-transcription-engine/internal/models"

// acceptSimilarity is the fixed acceptance threshold for matching a chunk
// embedding against known session profiles. Kept independent from the
// clustering threshold: identification answers "is this a voice we already
// know", which demands more evidence than grouping within one buffer.
const acceptSimilarity = 0.8

// IdentifySpeaker finds the nearest profile to the embedding by cosine
// similarity. The match is accepted only at or above the fixed 0.8 threshold;
// otherwise ok is false and the best similarity seen is still returned.
func IdentifySpeaker(embedding []float64, profiles map[string]models.VoiceProfile) (string, float64, bool) {
	var bestID string
	var best float64
	for id, p := range profiles {
		if sim := CosineSimilarity(embedding, p.Features); sim > best {
			best = sim
			bestID = id
		}
	}
	if bestID == "" || best < acceptSimilarity {
		return "", best, false
	}
	return bestID, best, true
}
