package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidParams ErrorCode = "INVALID_PARAMS"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeInternal      ErrorCode = "INTERNAL"
	CodeAuthFailure   ErrorCode = "AUTH_FAILURE"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
	CodeUnknown       ErrorCode = "UNKNOWN"
)

// Error is the structured failure value used across the dispatch pipeline.
// Code is drawn from the closed set above; Meta carries optional
// machine-readable detail such as the offending field.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

// Wrap attaches op context to err while preserving an existing structured
// error's code and message. A nil err yields nil.
func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
			Meta:    existing.Meta,
		}
	}
	return E(code, op, "", err)
}

// CodeOf classifies err into the closed code set. Raw errors that carry no
// structured code come back as CodeUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var structured *Error
	if errors.As(err, &structured) && structured.Code != "" {
		return structured.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeUnknown
}

// IsCode reports whether err classifies as code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
