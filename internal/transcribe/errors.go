package transcribe

import (
	"context"
	"errors"

	"meeting-transcription-engine/internal/models"
)

// Errors surfaced by the client and its providers. Providers wrap the
// matching sentinel so callers can classify failures without knowing the
// transport.
var (
	// ErrModelUnavailable - the model could not be loaded within the retry
	// budget. Fatal to StartSession.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelUnknown - no provider is registered for the model.
	ErrModelUnknown = errors.New("model not registered")
	// ErrModelTimeout - the inference call exceeded its deadline.
	ErrModelTimeout = errors.New("model call timed out")
	// ErrRateLimited - the provider rejected the call with a rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNetwork - transport-level failure reaching the provider.
	ErrNetwork = errors.New("network error")
	// ErrInvalidAudio - the provider rejected the audio payload itself.
	ErrInvalidAudio = errors.New("invalid audio format")
)

// Classify maps a transcription error to its failure kind. Unrecognized
// errors classify as FailureUnknown, which is retryable.
func Classify(err error) models.FailureKind {
	switch {
	case err == nil:
		return models.FailureUnknown
	case errors.Is(err, ErrModelTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, ErrRateLimited):
		return models.FailureRateLimited
	case errors.Is(err, ErrNetwork):
		return models.FailureNetwork
	case errors.Is(err, ErrInvalidAudio):
		return models.FailureInvalidAudio
	case errors.Is(err, ErrModelUnavailable), errors.Is(err, ErrModelUnknown):
		return models.FailureModelUnavailable
	default:
		return models.FailureUnknown
	}
}
