package diarize

import "math"

const (
	frameMs = 25
	hopMs   = 10

	// minVoiceRunMs drops voiced blips shorter than half a second; they carry
	// too little signal for a stable embedding.
	minVoiceRunMs = 500

	// silenceHangoverFrames keeps a run open across brief dips inside a word.
	silenceHangoverFrames = 3
)

// VoiceSegment is a contiguous span of detected speech within one buffer.
// Sample indexes are relative to the buffer handed to DetectVoice.
type VoiceSegment struct {
	StartMs     int64
	EndMs       int64
	StartSample int
	EndSample   int
	Energy      float64 // mean frame RMS
}

// DurationMs returns the voiced span length.
func (s VoiceSegment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// DetectVoice scans samples with 25 ms frames on a 10 ms hop and returns the
// voiced runs whose frame RMS clears the energy threshold. Runs shorter than
// half a second are discarded.
func DetectVoice(samples []float64, sampleRate int, energyThreshold float64) []VoiceSegment {
	if sampleRate <= 0 || len(samples) == 0 {
		return nil
	}
	frame := sampleRate * frameMs / 1000
	hop := sampleRate * hopMs / 1000
	if frame == 0 || hop == 0 || len(samples) < frame {
		return nil
	}

	toMs := func(sample int) int64 {
		return int64(sample) * 1000 / int64(sampleRate)
	}

	var segments []VoiceSegment
	var open bool
	var startSample, lastVoiceEnd int
	var energySum float64
	var voicedFrames, silentFrames int

	closeRun := func() {
		seg := VoiceSegment{
			StartMs:     toMs(startSample),
			EndMs:       toMs(lastVoiceEnd),
			StartSample: startSample,
			EndSample:   lastVoiceEnd,
		}
		if voicedFrames > 0 {
			seg.Energy = energySum / float64(voicedFrames)
		}
		if seg.DurationMs() >= minVoiceRunMs {
			segments = append(segments, seg)
		}
	}

	for start := 0; start+frame <= len(samples); start += hop {
		e := frameRMS(samples[start : start+frame])
		if e >= energyThreshold {
			if !open {
				open = true
				startSample = start
				energySum = 0
				voicedFrames = 0
			}
			lastVoiceEnd = start + frame
			energySum += e
			voicedFrames++
			silentFrames = 0
			continue
		}
		if open {
			silentFrames++
			if silentFrames > silenceHangoverFrames {
				closeRun()
				open = false
				silentFrames = 0
			}
		}
	}
	if open {
		closeRun()
	}

	return segments
}

func frameRMS(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}
