package models

import "time"

// AudioChunk is one unit of session audio accepted into the pipeline.
// Seq is assigned at acceptance and increases monotonically per session;
// arrival order is authoritative for transcript ordering. Chunks are
// transient: the pipeline owns one for a single processing pass and does not
// retain it after the segment is emitted.
type AudioChunk struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	Seq           int64     `json:"seq"`
	Data          []byte    `json:"-"`
	SampleRate    int       `json:"sampleRate"`
	Channels      int       `json:"channels"`
	BitsPerSample int       `json:"bitsPerSample"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Processed     bool      `json:"processed"`
	SegmentID     string    `json:"segmentId,omitempty"`
}

// DurationMs returns the chunk's play duration derived from its PCM parameters.
func (c AudioChunk) DurationMs() int64 {
	bytesPerSecond := c.SampleRate * c.Channels * c.BitsPerSample / 8
	if bytesPerSecond <= 0 {
		return 0
	}
	return int64(len(c.Data)) * 1000 / int64(bytesPerSecond)
}
