package pipeline

import (
	"errors"
	"fmt"

	"github.com/tuannvm/engai/internal/protocol"
)

// ErrValidation is returned when a request is rejected before any stage
// runs. It matches protocol.ErrValidationFailed with errors.Is.
var ErrValidation = fmt.Errorf("pipeline: %w", protocol.ErrValidationFailed)

// StageError reports the stage that failed a run.
type StageError struct {
	Stage string
	Kind  protocol.ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("generation failed at %s stage: %s", e.Stage, e.Detail())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Detail returns the failure text without the stage prefix.
func (e *StageError) Detail() string {
	var callErr *protocol.CallError
	if errors.As(e.Err, &callErr) {
		return callErr.Detail
	}
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}
