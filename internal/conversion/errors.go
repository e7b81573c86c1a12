package conversion

import (
	"errors"
	"fmt"
	"strings"
)

// Stage markers. Pipeline errors wrap exactly one of them so callers can
// classify a failure with errors.Is.
var (
	ErrFetch     = errors.New("fetch failed")
	ErrTranscode = errors.New("transcode failed")
	ErrUpload    = errors.New("upload failed")

	// ErrConfiguration marks a request that cannot run because a folder id
	// or credential is missing.
	ErrConfiguration = errors.New("configuration error")
)

// Submission errors returned by Converter.Submit.
var (
	ErrQueueFull       = errors.New("conversion queue is full")
	ErrPoolStopped     = errors.New("conversion pool is stopped")
	ErrAlreadyInFlight = errors.New("conversion already in progress")
)

// Wrap builds an error that carries the stage marker, a short description of
// the failing operation and the underlying cause.
func Wrap(marker error, stage, operation string, err error) error {
	detail := buildDetail(stage, operation)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
