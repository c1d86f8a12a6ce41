package runs

import "errors"

var (
	ErrNotFound              = errors.New("run not found")
	ErrInvalidInput          = errors.New("invalid run input")
	ErrRunNotReady           = errors.New("run is not ready")
	ErrRunActive             = errors.New("run is active")
	ErrRunDiscarded          = errors.New("run is discarded")
	ErrConfirmationRequired  = errors.New("confirmation required")
	ErrDispatchNotConfigured = errors.New("dispatch not configured")
	ErrDispatchFailed        = errors.New("dispatch failed")
)

// DispatchError reports that the worker could not be reached for a run.
type DispatchError struct {
	RunID string
	Err   error
}

func (e *DispatchError) Error() string {
	return "dispatch run " + e.RunID + ": " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Is matches ErrDispatchFailed.
func (e *DispatchError) Is(target error) bool { return target == ErrDispatchFailed }
