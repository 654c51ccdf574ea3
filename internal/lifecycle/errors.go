package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the engine rejects the URL.
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrEmptyURL is returned for a blank URL. It wraps ErrInvalidURL.
	ErrEmptyURL = fmt.Errorf("%w: URL is empty", ErrInvalidURL)
	// ErrAlreadyRunning is returned when a job already occupies the slot.
	ErrAlreadyRunning = errors.New("a download is already in progress")
	// ErrInvalidRequest is returned for an unknown format or quality.
	ErrInvalidRequest = errors.New("invalid download request")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("download client closed")
)

// EngineError wraps a failed backend call.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
