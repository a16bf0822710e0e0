// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	stderrors "errors"
	"fmt"
)

// GetErrCode returns the error code if the error, or any error
// it wraps, is associated to recognizable error types
func GetErrCode(err error) ErrCode {
	var val *Error
	if stderrors.As(err, &val) {
		return val.code
	}
	return Unknown
}

// base error structure
type Error struct {
	code  ErrCode
	msg   string
	cause error
}

// Error() prints out the error message string
func (e *Error) Error() string {
	if e.cause != nil && e.msg == "" {
		return e.cause.Error()
	}
	return e.msg
}

// Unwrap allows errors.Is and errors.As to look at the cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the recognized error code
func (e *Error) Code() ErrCode {
	return e.code
}

// Creates a new error msg without error code
func New(msg string) error {
	return &Error{
		msg: msg,
	}
}

// Wraps the error msg with recognized error codes
func Wrap(code ErrCode, msg string) error {
	return &Error{
		code: code,
		msg:  msg,
	}
}

// Wrapf wraps the formatted error msg with recognized error codes
func Wrapf(code ErrCode, format string, args ...any) error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// WrapErr associates an error code with an existing error, the
// existing error stays reachable through errors.Is and errors.As
func WrapErr(code ErrCode, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err)
	}
	return &Error{
		code:  code,
		msg:   msg,
		cause: err,
	}
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsNotFound returns true if err
// item isn't found in the space
func IsNotFound(err error) bool {
	return GetErrCode(err) == NotFound
}

// IsAlreadyExists returns true if err
// item already exists in the space
func IsAlreadyExists(err error) bool {
	return GetErrCode(err) == AlreadyExists
}

// IsInvalidArgument returns true if err
// item is invalid argument
func IsInvalidArgument(err error) bool {
	return GetErrCode(err) == InvalidArgument
}

// IsUnauthorized returns true if err
// caller could not be identified
func IsUnauthorized(err error) bool {
	return GetErrCode(err) == Unauthorized
}

// IsCapacityExceeded returns true if err
// is an admission refusal
func IsCapacityExceeded(err error) bool {
	return GetErrCode(err) == CapacityExceeded
}

// IsMalformedLimitValue returns true if err
// is a limit value parse failure
func IsMalformedLimitValue(err error) bool {
	return GetErrCode(err) == MalformedLimitValue
}

// IsConfigurationUnavailable returns true if err
// is a configuration source failure
func IsConfigurationUnavailable(err error) bool {
	return GetErrCode(err) == ConfigurationUnavailable
}

// IsCanceled returns true if err
// is a cancelled wait
func IsCanceled(err error) bool {
	return GetErrCode(err) == Canceled
}
