package usecase

import "fmt"

// ErrorCode tags a dispatch failure with the collaborator that caused it.
// Callers never see the code; it exists for logs.
type ErrorCode string

const (
	ErrorPlatform   ErrorCode = "PLATFORM_ERROR"
	ErrorCompletion ErrorCode = "COMPLETION_ERROR"
	ErrorAttachment ErrorCode = "ATTACHMENT_ERROR"
	ErrorState      ErrorCode = "STATE_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
