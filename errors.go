package keepkey

import (
	"syscall"

	"github.com/keepkey/device-gateway/internal/gwerrors"
)

// Error is the structured error type returned across the gateway's external
// surface. Defined in internal/gwerrors so internal/worker and
// internal/queuemanager can build the exact same type without importing
// this package (which imports them).
type Error = gwerrors.Error

// ErrorCode is a closed set of high-level failure categories. String-typed
// (not iota) so log lines and event payloads render it directly.
type ErrorCode = gwerrors.ErrorCode

const (
	ErrCodeTimeout      = gwerrors.ErrCodeTimeout
	ErrCodeAccess       = gwerrors.ErrCodeAccess
	ErrCodeDisconnected = gwerrors.ErrCodeDisconnected
	ErrCodeIO           = gwerrors.ErrCodeIO

	ErrCodeBusy      = gwerrors.ErrCodeBusy
	ErrCodeCancelled = gwerrors.ErrCodeCancelled

	ErrCodeUnderflow         = gwerrors.ErrCodeUnderflow
	ErrCodeUnexpectedMessage = gwerrors.ErrCodeUnexpectedMessage
	ErrCodeUnknownMessage    = gwerrors.ErrCodeUnknownMessage

	ErrCodeStaleRequest       = gwerrors.ErrCodeStaleRequest
	ErrCodeDeviceDisconnected = gwerrors.ErrCodeDeviceDisconnected
	ErrCodeDeviceNotFound     = gwerrors.ErrCodeDeviceNotFound

	ErrCodeInvalidPin        = gwerrors.ErrCodeInvalidPin
	ErrCodeInvalidPassphrase = gwerrors.ErrCodeInvalidPassphrase
	ErrCodeInvalidState      = gwerrors.ErrCodeInvalidState

	ErrCodeInvalidTransition = gwerrors.ErrCodeInvalidTransition
)

// NewError constructs a bare operation-scoped error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return gwerrors.New(op, code, msg)
}

// NewDeviceError constructs a device-scoped error.
func NewDeviceError(op, uniqueID string, code ErrorCode, msg string) *Error {
	return gwerrors.NewDevice(op, uniqueID, code, msg)
}

// NewRequestError constructs a device+request-scoped error, used for
// failures surfaced through a specific pending correlation (prompt timeouts,
// stale UI commands).
func NewRequestError(op, uniqueID, requestID string, code ErrorCode, msg string) *Error {
	return gwerrors.NewRequest(op, uniqueID, requestID, code, msg)
}

// NewErrnoError constructs a transport-level error from a kernel errno,
// mapping it to the nearest ErrorCode.
func NewErrnoError(op, uniqueID string, errno syscall.Errno) *Error {
	return gwerrors.NewErrno(op, uniqueID, errno)
}

// WrapError wraps inner with gateway context, preserving its code if inner
// is already an *Error, mapping errno if inner is or wraps a syscall.Errno, or
// defaulting to ErrCodeIO otherwise.
func WrapError(op string, inner error) *Error {
	return gwerrors.Wrap(op, inner)
}

// IsCode reports whether err is a *Error (at any wrap depth) with the given
// code.
func IsCode(err error, code ErrorCode) bool {
	return gwerrors.IsCode(err, code)
}
