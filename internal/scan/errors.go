package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrRendezvousTimeout is surfaced when no analysis arrives in time after the animation finished
	ErrRendezvousTimeout = errors.New("analysis did not arrive in time")
	// ErrInvalidImage is returned by StartScan for an empty payload
	ErrInvalidImage = errors.New("image payload is empty")
	// ErrNotInPreview is returned by CompleteReveal outside the Preview state
	ErrNotInPreview = errors.New("scan is not awaiting reveal")
	// ErrClosed is returned once the coordinator has been closed
	ErrClosed = errors.New("scan coordinator is closed")
)

// SubmissionError reports a transport failure talking to the analysis service
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %s", e.Reason)
}

// AnalysisError reports that the analysis service could not assess the image
type AnalysisError struct {
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}

// ErrorKind names the failure class of a terminal scan error
func ErrorKind(err error) string {
	var (
		submission *SubmissionError
		analysis   *AnalysisError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &submission):
		return "submission_failure"
	case errors.As(err, &analysis):
		return "analysis_failure"
	case errors.Is(err, ErrRendezvousTimeout):
		return "rendezvous_timeout"
	}
	return "unknown"
}
