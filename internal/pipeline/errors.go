package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecording    = errors.New("no recording to process")
	ErrAlreadyRunning = errors.New("pipeline run already in progress")
)

// StageError is the first failure of a run.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// detailer is implemented by remote errors that carry the service's own
// diagnostic message.
type detailer interface {
	Detail() string
}

func newStageError(stage Stage, err error) *StageError {
	msg := fmt.Sprintf("%s failed", stage.Label())

	var d detailer
	if errors.As(err, &d) && d.Detail() != "" {
		msg = d.Detail()
	}

	return &StageError{Stage: stage, Message: msg, Err: err}
}
