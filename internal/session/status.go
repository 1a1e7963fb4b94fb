// Package session owns transcription session state and orchestrates the
// per-chunk pipeline: preprocess, diarize, transcribe, append, distribute.
package session

import (
	"errors"
	"fmt"
)

// Status represents the lifecycle state of a session.
//
// Transitions:
//
//	INITIALIZING → ACTIVE ⇄ PAUSED
//	     │            │        │
//	     │            └───┬────┘
//	     │                ├──→ COMPLETED  (finalize)
//	     │                ├──→ CANCELLED  (cancel)
//	     │                └──→ ERROR
//	     └──→ ERROR | CANCELLED           (start failure / early cancel)
type Status int

const (
	// StatusInitializing - session allocated, model load in progress.
	StatusInitializing Status = iota
	// StatusActive - session accepts and processes chunks.
	StatusActive
	// StatusPaused - session retains all state but accepts no chunks.
	StatusPaused
	// StatusCompleted - transcript finalized. Terminal.
	StatusCompleted
	// StatusCancelled - session aborted, no transcript produced. Terminal.
	StatusCancelled
	// StatusError - a session-level operation failed. Terminal.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusActive:
		return "ACTIVE"
	case StatusPaused:
		return "PAUSED"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true once the session can never process another chunk.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// canTransition reports whether the move from s to next is legal.
func (s Status) canTransition(next Status) bool {
	switch s {
	case StatusInitializing:
		return next == StatusActive || next == StatusError || next == StatusCancelled
	case StatusActive:
		return next == StatusPaused || next == StatusCompleted ||
			next == StatusCancelled || next == StatusError
	case StatusPaused:
		return next == StatusActive || next == StatusCompleted ||
			next == StatusCancelled || next == StatusError
	default:
		return false
	}
}

// Errors surfaced by session operations.
var (
	// ErrSessionNotFound - no session with that id in the registry.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotActive - the operation needs an active session
	// (chunk on a paused session, resume of a non-paused one).
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionClosed - the session reached a terminal state; also used
	// when an in-flight chunk's result is discarded after cancellation.
	ErrSessionClosed = errors.New("session is closed")
	// ErrInvalidConfig - session configuration failed validation.
	ErrInvalidConfig = errors.New("invalid session config")
)
