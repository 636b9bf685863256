// Package gwerrors defines the structured *Error type and closed ErrorCode
// taxonomy shared across the gateway. It lives in its own internal package
// (rather than the root package) so internal/worker, internal/queuemanager
// and internal/bus can construct and inspect the same error values the
// root package exposes publicly — the root package type-aliases this
// package's exports in errors.go, so a gwerrors.Error built deep inside a
// DeviceWorker is, by the Go type system, exactly a *keepkey.Error.
package gwerrors

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is the structured error type returned across the gateway's external
// surface. It carries enough context (operation, device, request
// correlation) to let a caller log or branch on failures without parsing
// strings, mirroring how internal packages report failures up through the
// worker to whatever submitted the request.
type Error struct {
	Op        string        // operation that failed, e.g. "get_address", "write_report"
	UniqueID  string        // device unique_id, empty if not device-scoped
	RequestID string        // UI correlation id, empty if not prompt-scoped
	Code      ErrorCode
	Errno     syscall.Errno // kernel errno, 0 if not applicable
	Msg       string
	Inner     error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.UniqueID != "" {
		parts = append(parts, fmt.Sprintf("device=%s", e.UniqueID))
	}
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("request=%s", e.RequestID))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("keepkey: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("keepkey: %s", msg)
}

// Unwrap supports errors.Is/As against Inner.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by ErrorCode, matching the teacher's
// structured-error convention: two *Error values are "the same" error if
// their codes match, regardless of op/device/request context.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if code, ok := target.(ErrorCode); ok {
		return e.Code == code
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a closed set of high-level failure categories. String-typed
// (not iota) so log lines and event payloads render it directly.
type ErrorCode string

const (
	ErrCodeTimeout      ErrorCode = "timeout"
	ErrCodeAccess       ErrorCode = "access"
	ErrCodeDisconnected ErrorCode = "disconnected"
	ErrCodeIO           ErrorCode = "io"

	ErrCodeBusy      ErrorCode = "busy"
	ErrCodeCancelled ErrorCode = "cancelled"

	ErrCodeUnderflow         ErrorCode = "underflow"
	ErrCodeUnexpectedMessage ErrorCode = "unexpected_message"
	ErrCodeUnknownMessage    ErrorCode = "unknown_message"

	ErrCodeStaleRequest       ErrorCode = "stale_request"
	ErrCodeDeviceDisconnected ErrorCode = "device_disconnected"
	ErrCodeDeviceNotFound     ErrorCode = "device_not_found"

	ErrCodeInvalidPin        ErrorCode = "invalid_pin"
	ErrCodeInvalidPassphrase ErrorCode = "invalid_passphrase"
	ErrCodeInvalidState      ErrorCode = "invalid_state"

	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
)

// Error implements comparability against bare ErrorCode values so callers
// can write `errors.Is(err, keepkey.ErrCodeBusy)` without constructing an
// *Error.
func (c ErrorCode) Error() string { return string(c) }

// New constructs a bare operation-scoped error.
func New(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewDevice constructs a device-scoped error.
func NewDevice(op, uniqueID string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, UniqueID: uniqueID, Code: code, Msg: msg}
}

// NewRequest constructs a device+request-scoped error, used for failures
// surfaced through a specific pending correlation (prompt timeouts, stale UI
// commands).
func NewRequest(op, uniqueID, requestID string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, UniqueID: uniqueID, RequestID: requestID, Code: code, Msg: msg}
}

// NewErrno constructs a transport-level error from a kernel errno, mapping
// it to the nearest ErrorCode.
func NewErrno(op, uniqueID string, errno syscall.Errno) *Error {
	return &Error{
		Op:       op,
		UniqueID: uniqueID,
		Code:     MapErrnoToCode(errno),
		Errno:    errno,
		Msg:      errno.Error(),
	}
}

// Wrap wraps inner with gateway context, preserving its code if inner is
// already an *Error, mapping errno if inner is or wraps a syscall.Errno, or
// defaulting to ErrCodeIO otherwise.
func Wrap(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if e, ok := inner.(*Error); ok {
		return &Error{
			Op: op, UniqueID: e.UniqueID, RequestID: e.RequestID,
			Code: e.Code, Errno: e.Errno, Msg: e.Msg, Inner: e.Inner,
		}
	}
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{Op: op, Code: MapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: ErrCodeIO, Msg: inner.Error(), Inner: inner}
}

// MapErrnoToCode maps a raw kernel errno to the nearest ErrorCode.
func MapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ETIMEDOUT, syscall.EAGAIN:
		return ErrCodeTimeout
	case syscall.EACCES, syscall.EPERM:
		return ErrCodeAccess
	case syscall.ENODEV, syscall.ENXIO, syscall.ENOENT:
		return ErrCodeDisconnected
	default:
		return ErrCodeIO
	}
}

// IsCode reports whether err is a *Error (at any wrap depth) with the given
// code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
