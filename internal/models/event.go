package models

import (
	"errors"
	"time"
)

// EventType identifies the kind of session event fanned out to subscribers.
type EventType string

const (
	// EventSegment carries a newly transcribed segment.
	EventSegment EventType = "segment"
	// EventSpeakerUpdate carries a new or updated speaker.
	EventSpeakerUpdate EventType = "speaker_update"
	// EventStatus carries a session status change, including model switches.
	EventStatus EventType = "status"
	// EventError carries a pipeline failure report.
	EventError EventType = "error"
	// EventComplete carries the final transcript. It is the last event
	// delivered on a session channel.
	EventComplete EventType = "complete"
)

// Event is the envelope delivered to session subscribers.
// Exactly one payload field is set, matching Type.
type Event struct {
	Type       EventType          `json:"type"`
	SessionID  string             `json:"sessionId"`
	Timestamp  time.Time          `json:"timestamp"`
	Segment    *TranscriptSegment `json:"segment,omitempty"`
	Speaker    *Speaker           `json:"speaker,omitempty"`
	Status     *StatusChange      `json:"status,omitempty"`
	Error      *FailureReport     `json:"error,omitempty"`
	Transcript *FullTranscript    `json:"transcript,omitempty"`
}

// StatusChange reports a session status transition.
type StatusChange struct {
	Status      string `json:"status"`
	ActiveModel string `json:"activeModel,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// FailureReport describes a pipeline failure surfaced to subscribers.
type FailureReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	ChunkID string `json:"chunkId,omitempty"`
}

// Errors returned by Event.Validate.
var (
	ErrEventNoSession = errors.New("event has no session id")
	ErrEventBadType   = errors.New("unknown event type")
	ErrEventNoPayload = errors.New("event payload does not match type")
)

// Validate checks that the envelope is well formed before fan-out.
func (e Event) Validate() error {
	if e.SessionID == "" {
		return ErrEventNoSession
	}
	switch e.Type {
	case EventSegment:
		if e.Segment == nil {
			return ErrEventNoPayload
		}
	case EventSpeakerUpdate:
		if e.Speaker == nil {
			return ErrEventNoPayload
		}
	case EventStatus:
		if e.Status == nil {
			return ErrEventNoPayload
		}
	case EventError:
		if e.Error == nil {
			return ErrEventNoPayload
		}
	case EventComplete:
		if e.Transcript == nil {
			return ErrEventNoPayload
		}
	default:
		return ErrEventBadType
	}
	return nil
}
