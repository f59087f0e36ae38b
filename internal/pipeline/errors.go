package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify pipeline failures. Acquisition strategies tag their
// failures with one of these markers so the coordinator can decide between
// fallback and termination without inspecting error strings.
var (
	// ErrCaptionsUnavailable is recoverable: the coordinator moves on to the
	// next acquisition strategy.
	ErrCaptionsUnavailable = errors.New("captions unavailable")
	// ErrTranscriptionFailed is fatal for the run; there is no further fallback.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrAcquisitionFailed wraps the terminal cause surfaced to callers.
	ErrAcquisitionFailed = errors.New("acquisition failed")
	// ErrConfiguration marks unusable runtime settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying within a strategy.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}

// AcquisitionError is the terminal failure returned by the coordinator. It
// records which strategy stage the run died in so callers can report whether
// captions were absent and transcription failed, or transcription alone was
// attempted.
type AcquisitionError struct {
	Stage   string
	Attempt []string
	Err     error
}

func (e *AcquisitionError) Error() string {
	if len(e.Attempt) > 1 {
		return fmt.Sprintf("%v: stage %s (after trying %s): %v",
			ErrAcquisitionFailed, e.Stage, strings.Join(e.Attempt, ", "), e.Err)
	}
	return fmt.Sprintf("%v: stage %s: %v", ErrAcquisitionFailed, e.Stage, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrAcquisitionFailed) match without if-chains.
func (e *AcquisitionError) Is(target error) bool { return target == ErrAcquisitionFailed }

// FailedStage extracts the stage attribution from a terminal acquisition
// error, or returns an empty string when err is not one.
func FailedStage(err error) string {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr.Stage
	}
	return ""
}
