package models

import "time"

// ModelUsage is the per-model slice of a session's quality metrics.
type ModelUsage struct {
	Attempts          int64   `json:"attempts"`
	Successes         int64   `json:"successes"`
	EMALatencySeconds float64 `json:"emaLatencySeconds"`
	EMAConfidence     float64 `json:"emaConfidence"`
}

// SessionQualityMetrics is a read-only snapshot of a session's quality and
// cost counters.
type SessionQualityMetrics struct {
	SessionID         string                `json:"sessionId"`
	ChunksProcessed   int64                 `json:"chunksProcessed"`
	ChunksFailed      int64                 `json:"chunksFailed"`
	AudioSeconds      float64               `json:"audioSeconds"`
	BytesProcessed    int64                 `json:"bytesProcessed"`
	EMAConfidence     float64               `json:"emaConfidence"`
	EMALatencySeconds float64               `json:"emaLatencySeconds"`
	WordCount         int64                 `json:"wordCount"`
	EstimatedTokens   int64                 `json:"estimatedTokens"`
	EstimatedCostUSD  float64               `json:"estimatedCostUsd"`
	FailuresByKind    map[string]int64      `json:"failuresByKind,omitempty"`
	Models            map[string]ModelUsage `json:"models,omitempty"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}
