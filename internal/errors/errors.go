package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"

	// Estimator error taxonomy
	CodePrecondition   = "PRECONDITION_VIOLATION"
	CodeDegenerateFold = "DEGENERATE_FOLD"
	CodeOverTrimmed    = "OVER_TRIMMED"
	CodeLearnerFailure = "LEARNER_FAILURE"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// Precondition signals an input-contract violation detected before any
// fold is constructed.
func Precondition(message string) *AppError {
	return New(CodePrecondition, message)
}

// Preconditionf is Precondition with formatting
func Preconditionf(format string, args ...interface{}) *AppError {
	return New(CodePrecondition, fmt.Sprintf(format, args...))
}

// DegenerateFold signals that a training role lacks the observations a
// nuisance fit requires (e.g. no rows at the needed exposure level).
func DegenerateFold(pass int, message string) *AppError {
	return New(CodeDegenerateFold, fmt.Sprintf("pass %d: %s", pass, message))
}

// OverTrimmed signals that the trimming filter excluded every row
func OverTrimmed() *AppError {
	return New(CodeOverTrimmed, "no observations passed the trimming filter")
}

// LearnerFailure wraps an error propagated from a nuisance learner. The
// estimator never retries internally.
func LearnerFailure(target string, cause error) *AppError {
	return &AppError{
		Code:    CodeLearnerFailure,
		Message: fmt.Sprintf("nuisance fit %q failed", target),
		Cause:   cause,
	}
}
