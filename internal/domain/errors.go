package domain

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// Record-level errors are absorbed into the quarantine counter and never
// abort a run. Stage-level errors abort the current and remaining stages.
var (
	ErrMalformedRecord          = errors.New("malformed record")
	ErrLookupMiss               = errors.New("merchant category lookup miss")
	ErrScorerUnavailable        = errors.New("fraud scorer unavailable")
	ErrReferenceDataUnavailable = errors.New("reference data unavailable")
	ErrConfigurationInvalid     = errors.New("configuration invalid")
)

// StageError wraps a stage-fatal failure with the context the failure
// reporting collaborator needs.
type StageError struct {
	Stage          Stage
	ExecutionID    string
	ProcessingDate civil.Date
	Err            error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (execution %s, date %s): %v",
		e.Stage, e.ExecutionID, e.ProcessingDate, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
