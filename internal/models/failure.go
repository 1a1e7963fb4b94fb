package models

import "fmt"

// FailureKind classifies pipeline failures for the fallback policy, metrics,
// and subscriber error events.
type FailureKind int

const (
	// FailureUnknown - unclassified error; treated as transient.
	FailureUnknown FailureKind = iota
	// FailureTimeout - the model call exceeded its deadline.
	FailureTimeout
	// FailureRateLimited - the provider rejected the call with a rate limit.
	FailureRateLimited
	// FailureNetwork - transport-level failure reaching the provider.
	FailureNetwork
	// FailureInvalidAudio - the provider rejected the audio payload itself.
	// Another model cannot fix the payload, so this is never retried.
	FailureInvalidAudio
	// FailureModelUnavailable - the model could not be loaded or is not ready.
	FailureModelUnavailable
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureUnknown:
		return "UNKNOWN"
	case FailureTimeout:
		return "TIMEOUT"
	case FailureRateLimited:
		return "RATE_LIMITED"
	case FailureNetwork:
		return "NETWORK"
	case FailureInvalidAudio:
		return "INVALID_AUDIO"
	case FailureModelUnavailable:
		return "MODEL_UNAVAILABLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// Retryable reports whether switching models and retrying the chunk can
// plausibly succeed.
func (k FailureKind) Retryable() bool {
	return k != FailureInvalidAudio
}
