package keepkey

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_ErrorString(t *testing.T) {
	err := NewDeviceError("get_address", "dev-1", ErrCodeBusy, "device is in interactive prompt")
	require.Contains(t, err.Error(), "device is in interactive prompt")
	require.Contains(t, err.Error(), "op=get_address")
}

func TestError_Is_MatchesByCode(t *testing.T) {
	a := NewError("op1", ErrCodeBusy, "busy")
	b := NewError("op2", ErrCodeBusy, "different message, same code")
	require.True(t, errors.Is(a, b))

	c := NewError("op3", ErrCodeCancelled, "cancelled")
	require.False(t, errors.Is(a, c))
}

func TestError_Is_MatchesBareErrorCode(t *testing.T) {
	err := NewError("op", ErrCodeTimeout, "timed out")
	require.True(t, errors.Is(err, ErrCodeTimeout))
	require.False(t, errors.Is(err, ErrCodeIO))
}

func TestWrapError_PreservesInnerErrorCode(t *testing.T) {
	inner := NewRequestError("write_report", "dev-1", "req-1", ErrCodeDisconnected, "unplugged")
	wrapped := WrapError("exchange", inner)
	require.Equal(t, ErrCodeDisconnected, wrapped.Code)
	require.Equal(t, "dev-1", wrapped.UniqueID)
	require.Equal(t, "req-1", wrapped.RequestID)
	require.Equal(t, "exchange", wrapped.Op)
}

func TestWrapError_MapsErrno(t *testing.T) {
	wrapped := WrapError("read_report", syscall.ETIMEDOUT)
	require.Equal(t, ErrCodeTimeout, wrapped.Code)
	require.Equal(t, syscall.ETIMEDOUT, wrapped.Errno)
}

func TestWrapError_DefaultsToIO(t *testing.T) {
	wrapped := WrapError("op", errors.New("something broke"))
	require.Equal(t, ErrCodeIO, wrapped.Code)
}

func TestWrapError_NilIsNil(t *testing.T) {
	require.Nil(t, WrapError("op", nil))
}

func TestNewErrnoError_MapsAccessDenied(t *testing.T) {
	err := NewErrnoError("claim_interface", "dev-1", syscall.EACCES)
	require.Equal(t, ErrCodeAccess, err.Code)
}

func TestIsCode(t *testing.T) {
	err := NewDeviceError("op", "dev-1", ErrCodeInvalidPin, "empty pin")
	require.True(t, IsCode(err, ErrCodeInvalidPin))
	require.False(t, IsCode(err, ErrCodeInvalidPassphrase))
	require.False(t, IsCode(errors.New("plain"), ErrCodeInvalidPin))
}

func TestError_UnwrapChain(t *testing.T) {
	root := errors.New("root cause")
	wrapped := WrapError("op", root)
	require.ErrorIs(t, wrapped, root)
}
