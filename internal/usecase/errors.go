package usecase

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeMissingData      Code = "missing_data"
	CodeInvalidUserID    Code = "invalid_user_id"
	CodeUserNotFound     Code = "user_not_found"
	CodeRoleNotAllowed   Code = "role_not_allowed"
	CodeInvalidImage     Code = "invalid_image"
	CodeNoFaceDetected   Code = "no_face_detected"
	CodeNoRegisteredFace Code = "no_registered_face"
	CodeMismatch         Code = "verification_failed"
	CodePersistence      Code = "persistence_failure"
	CodeAttemptNotFound  Code = "attempt_not_found"
	CodeInternal         Code = "internal_error"
)

// Error is returned by every use case. Message is safe to show to clients; Err keeps
// the cause for logs and is never rendered.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the Code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return CodeInternal
}

// recoverInternal turns a panic in a use case into an internal error.
func recoverInternal(logger *zap.Logger, err *error, message string) {
	if r := recover(); r != nil {
		logger.Error("recovered from panic", zap.Any("panic", r), zap.Stack("stack"))
		*err = newError(CodeInternal, message, fmt.Errorf("panic: %v", r))
	}
}
