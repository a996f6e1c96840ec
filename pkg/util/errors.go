// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for driver-level failures
var (
	ErrNotConnected      = errors.New("device agent not connected")
	ErrNotFound          = errors.New("entity not found")
	ErrTranslationFailed = errors.New("translation failed")
	ErrUnknownOperation  = errors.New("unknown group operation")
	ErrWriteFailed       = errors.New("device write failed")
	ErrInvalidPipeline   = errors.New("invalid pipeline model")
)

// TranslationError reports why an abstract group could not be converted to
// its device-specific form. No writes are issued when translation fails.
type TranslationError struct {
	Device string
	Group  string
	Reason string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translating group %s on %s: %s", e.Group, e.Device, e.Reason)
}

func (e *TranslationError) Unwrap() error {
	return ErrTranslationFailed
}

// NewTranslationError creates a translation error
func NewTranslationError(device, group, reason string) *TranslationError {
	return &TranslationError{Device: device, Group: group, Reason: reason}
}

// PipelineError reports a pipeline model that cannot be used by the driver.
type PipelineError struct {
	Pipeline string
	Reason   string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %s", e.Pipeline, e.Reason)
}

func (e *PipelineError) Unwrap() error {
	return ErrInvalidPipeline
}

// NewPipelineError creates a pipeline error
func NewPipelineError(pipeline, reason string) *PipelineError {
	return &PipelineError{Pipeline: pipeline, Reason: reason}
}
