package utils

import (
	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

// Exit codes of the cli
const (
	ExitSuccess = 0
	// general/unknown error
	ExitGeneralError = 1
	// invalid flags or configuration
	ExitInvalidArgs = 2
	// the run premise is broken: no boundary, no next day, empty roster
	ExitPreconditionFailed = 3
	// RPC unreachable after retries
	ExitNetworkError = 4
)

// ErrorWithCode is an error that carries an explicit exit code
type ErrorWithCode struct {
	Code  int
	Cause error
}

func (e *ErrorWithCode) Error() string {
	return e.Cause.Error()
}

func (e *ErrorWithCode) Unwrap() error {
	return e.Cause
}

func WithCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ErrorWithCode{Code: code, Cause: err}
}

// CodeForError returns the exit code for err. Explicit codes win, known fatal conditions map to
// ExitPreconditionFailed, anything else is a general error.
func CodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}
	switch {
	case errors.Is(err, model.ErrNoBoundary),
		errors.Is(err, model.ErrNoNextBoundary),
		errors.Is(err, model.ErrEmptyRoster):
		return ExitPreconditionFailed
	}
	return ExitGeneralError
}
