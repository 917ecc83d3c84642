package pipeline

import (
	"errors"
	"fmt"
)

// Error carrying the pipeline stage that failed.
//
// The pipeline halts on the first stage failure; the stage tells the caller
// where, and Err why, so it can decide whether rerunning the whole pipeline
// makes sense. There are no automatic retries across stages.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Returns the failing stage of an error, or false when the error did not
// originate from a pipeline stage.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

var (
	ErrInvalidProfile = errors.New("invalid build profile")
	ErrInvalidJobs    = errors.New("job limit must be at least 1")
	ErrNoToolchain    = errors.New("no toolchain channel configured")
	ErrCompileFailed  = errors.New("compilation failed")
)
