package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and handlers.
var (
	ErrTutorialNotFound = errors.New("tutorial not found")
	ErrStyleNotFound    = errors.New("style not found")
)

// ValidationError marks input that is rejected before any external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StructuringError is fatal to a whole tutorial request: the text service
// could not produce a usable step list.
type StructuringError struct {
	Err error
}

func (e *StructuringError) Error() string {
	return fmt.Sprintf("tutorial structuring failed: %v", e.Err)
}

func (e *StructuringError) Unwrap() error { return e.Err }

// ImageFailureKind classifies image generation failures for retry decisions.
type ImageFailureKind string

const (
	ImageFailureRateLimited     ImageFailureKind = "rate_limited"
	ImageFailureContentRejected ImageFailureKind = "content_rejected"
	ImageFailureTransient       ImageFailureKind = "transient"
	ImageFailureUnknown         ImageFailureKind = "unknown"
)

// ImageGenerationError is per-step and non-fatal to the request as a whole.
type ImageGenerationError struct {
	Kind ImageFailureKind
	Err  error
}

func (e *ImageGenerationError) Error() string {
	return fmt.Sprintf("image generation failed (%s): %v", e.Kind, e.Err)
}

func (e *ImageGenerationError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class permits another attempt.
func (e *ImageGenerationError) Retryable() bool {
	return e.Kind == ImageFailureRateLimited || e.Kind == ImageFailureTransient
}

// VideoGenerationError is recorded per step and only surfaces via status polling.
type VideoGenerationError struct {
	TimedOut bool
	Err      error
}

func (e *VideoGenerationError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("video generation timed out: %v", e.Err)
	}
	return fmt.Sprintf("video generation failed: %v", e.Err)
}

func (e *VideoGenerationError) Unwrap() error { return e.Err }

// StorageError wraps object store failures so callers can apply bounded retries.
type StorageError struct {
	Op  string // "upload", "download", "head", "delete"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
