package keepkey

import (
	"github.com/keepkey/device-gateway/internal/requestapi"
	"github.com/keepkey/device-gateway/internal/wire"
)

// RequestKind identifies which operation a DeviceRequest carries. Closed set
// mirroring spec §4.5's DeviceRequest variants. Defined in internal/requestapi
// so internal/worker can consume the same type without importing this
// package (which imports internal/worker).
type RequestKind = requestapi.Kind

const (
	RequestGetFeatures     = requestapi.GetFeatures
	RequestGetAddress      = requestapi.GetAddress
	RequestSignTransaction = requestapi.SignTransaction
	RequestGetXpub         = requestapi.GetXpub
	RequestApplySettings   = requestapi.ApplySettings
	RequestFirmwareErase   = requestapi.FirmwareErase
	RequestFirmwareUpload  = requestapi.FirmwareUpload
	RequestSendRaw         = requestapi.SendRaw
	RequestCancel          = requestapi.Cancel
)

// GetAddressParams parameterizes RequestGetAddress/RequestGetXpub.
type GetAddressParams = requestapi.GetAddressParams

// ApplySettingsParams parameterizes RequestApplySettings; nil fields mean
// "leave unchanged".
type ApplySettingsParams = requestapi.ApplySettingsParams

// SignTransactionParams parameterizes RequestSignTransaction.
type SignTransactionParams = requestapi.SignTransactionParams

// DeviceRequest is submitted to the Queue Manager (C6), which routes it by
// UniqueID to the matching DeviceWorker's mailbox.
type DeviceRequest = requestapi.Request

// Result is the terminal outcome of a DeviceRequest.
type Result = requestapi.Result

// NewGetFeaturesRequest builds a RequestGetFeatures request and its reply channel.
func NewGetFeaturesRequest(uniqueID string) (*DeviceRequest, chan Result) {
	return requestapi.NewGetFeaturesRequest(uniqueID)
}

// NewGetAddressRequest builds a RequestGetAddress request and its reply channel.
func NewGetAddressRequest(uniqueID string, params GetAddressParams) (*DeviceRequest, chan Result) {
	return requestapi.NewGetAddressRequest(uniqueID, params)
}

// NewGetXpubRequest builds a RequestGetXpub request and its reply channel.
func NewGetXpubRequest(uniqueID string, params GetAddressParams) (*DeviceRequest, chan Result) {
	return requestapi.NewGetXpubRequest(uniqueID, params)
}

// NewSignTransactionRequest builds a RequestSignTransaction request and its reply channel.
func NewSignTransactionRequest(uniqueID string, params SignTransactionParams) (*DeviceRequest, chan Result) {
	return requestapi.NewSignTransactionRequest(uniqueID, params)
}

// NewApplySettingsRequest builds a RequestApplySettings request and its reply channel.
func NewApplySettingsRequest(uniqueID string, params ApplySettingsParams) (*DeviceRequest, chan Result) {
	return requestapi.NewApplySettingsRequest(uniqueID, params)
}

// NewFirmwareEraseRequest builds a RequestFirmwareErase request and its reply channel.
func NewFirmwareEraseRequest(uniqueID string) (*DeviceRequest, chan Result) {
	return requestapi.NewFirmwareEraseRequest(uniqueID)
}

// NewFirmwareUploadRequest builds a RequestFirmwareUpload request and its reply channel.
func NewFirmwareUploadRequest(uniqueID string, firmware []byte) (*DeviceRequest, chan Result) {
	return requestapi.NewFirmwareUploadRequest(uniqueID, firmware)
}

// NewSendRawRequest builds a RequestSendRaw request carrying a pre-built wire
// message, which the worker writes as-is rather than building one from
// request parameters, for callers that need a message variant this
// package's request kinds don't cover.
func NewSendRawRequest(uniqueID string, msg wire.Message) (*DeviceRequest, chan Result) {
	return requestapi.NewSendRawRequest(uniqueID, msg)
}

// NewCancelRequest builds a RequestCancel request and its reply channel.
func NewCancelRequest(uniqueID string) (*DeviceRequest, chan Result) {
	return requestapi.NewCancelRequest(uniqueID)
}
