package models

import "testing"

func TestEvent_Validate(t *testing.T) {
	seg := &TranscriptSegment{ID: "seg-1"}
	spk := &Speaker{ID: "spk-1"}

	tests := []struct {
		name    string
		event   Event
		wantErr error
	}{
		{"segment ok", Event{Type: EventSegment, SessionID: "s", Segment: seg}, nil},
		{"speaker ok", Event{Type: EventSpeakerUpdate, SessionID: "s", Speaker: spk}, nil},
		{"status ok", Event{Type: EventStatus, SessionID: "s", Status: &StatusChange{Status: "ACTIVE"}}, nil},
		{"error ok", Event{Type: EventError, SessionID: "s", Error: &FailureReport{Kind: "TIMEOUT"}}, nil},
		{"complete ok", Event{Type: EventComplete, SessionID: "s", Transcript: &FullTranscript{}}, nil},
		{"missing session", Event{Type: EventSegment, Segment: seg}, ErrEventNoSession},
		{"missing payload", Event{Type: EventSegment, SessionID: "s"}, ErrEventNoPayload},
		{"payload type mismatch", Event{Type: EventStatus, SessionID: "s", Segment: seg}, ErrEventNoPayload},
		{"unknown type", Event{Type: "bogus", SessionID: "s"}, ErrEventBadType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.event.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFailureKind_Retryable(t *testing.T) {
	// Invalid audio is the one kind another model cannot fix.
	for _, k := range []FailureKind{FailureUnknown, FailureTimeout, FailureRateLimited, FailureNetwork, FailureModelUnavailable} {
		if !k.Retryable() {
			t.Errorf("expected %s to be retryable", k)
		}
	}
	if FailureInvalidAudio.Retryable() {
		t.Error("expected INVALID_AUDIO to not be retryable")
	}
}

func TestFailureKind_String(t *testing.T) {
	if got := FailureTimeout.String(); got != "TIMEOUT" {
		t.Errorf("expected TIMEOUT, got %s", got)
	}
	if got := FailureKind(99).String(); got != "UNKNOWN(99)" {
		t.Errorf("expected UNKNOWN(99), got %s", got)
	}
}
