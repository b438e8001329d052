package coreErrors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrSizeExceeded    = errors.New("document exceeds the maximum upload size")
	ErrFileNotFound    = errors.New("file not found")
	ErrEmptyFile       = errors.New("file is empty")
	ErrNotEnabled      = errors.New("chat security not enabled")
	ErrMismatch        = errors.New("mismatch")
	ErrNotFound        = errors.New("record not found")
)

type ExtractionFailedError struct {
	Cause error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Cause }

// WeakPasswordError carries the first strength rule the password broke.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + e.Reason
}

type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return "locked until " + e.Until.UTC().Format(time.RFC3339)
}

type GenerationFailedError struct {
	Cause error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Cause)
}

func (e *GenerationFailedError) Unwrap() error { return e.Cause }
