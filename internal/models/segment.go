// Package models defines the shared data structures for transcription sessions.
package models

import (
	"strings"
	"time"
)

// TranscriptSegment is a single transcribed span of session audio.
// Segments are immutable once appended to a session transcript.
type TranscriptSegment struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	ChunkID      string    `json:"chunkId"`
	Seq          int64     `json:"seq"`
	SpeakerID    string    `json:"speakerId"`
	Text         string    `json:"text"`
	Confidence   float64   `json:"confidence"`
	StartMs      int64     `json:"startMs"`
	EndMs        int64     `json:"endMs"`
	Model        string    `json:"model"`
	ProcessingMs int64     `json:"processingMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Words returns the number of whitespace-separated words in the segment text.
func (s TranscriptSegment) Words() int {
	return len(strings.Fields(s.Text))
}

// FullTranscript is the aggregate produced when a session is finalized.
type FullTranscript struct {
	SessionID         string              `json:"sessionId"`
	Language          string              `json:"language"`
	StartedAt         time.Time           `json:"startedAt"`
	CompletedAt       time.Time           `json:"completedAt"`
	DurationMs        int64               `json:"durationMs"`
	Segments          []TranscriptSegment `json:"segments"`
	Speakers          []Speaker           `json:"speakers"`
	WordCount         int                 `json:"wordCount"`
	AverageConfidence float64             `json:"averageConfidence"`
	ModelsUsed        []string            `json:"modelsUsed"`
	ModelSwitches     int                 `json:"modelSwitches"`
	EstimatedTokens   int64               `json:"estimatedTokens"`
	EstimatedCostUSD  float64             `json:"estimatedCostUsd"`
}
