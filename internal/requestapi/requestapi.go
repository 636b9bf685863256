// Package requestapi defines the DeviceRequest/Result DTOs shared by the
// root package's public constructors and internal/worker's exchange loop.
// It exists as its own package (rather than living in internal/worker or
// the root package directly) purely to break the import cycle: the root
// package wires internal/worker into the Gateway facade, so internal/worker
// cannot import the root package for these types.
package requestapi

import "github.com/keepkey/device-gateway/internal/wire"

// Kind identifies which operation a DeviceRequest carries. Closed set
// mirroring spec §4.5's DeviceRequest variants.
type Kind int

const (
	GetFeatures Kind = iota
	GetAddress
	SignTransaction
	GetXpub
	ApplySettings
	FirmwareErase
	FirmwareUpload
	SendRaw
	Cancel
)

func (k Kind) String() string {
	switch k {
	case GetFeatures:
		return "get_features"
	case GetAddress:
		return "get_address"
	case SignTransaction:
		return "sign_transaction"
	case GetXpub:
		return "get_xpub"
	case ApplySettings:
		return "apply_settings"
	case FirmwareErase:
		return "firmware_erase"
	case FirmwareUpload:
		return "firmware_upload"
	case SendRaw:
		return "send_raw"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// NonEssential reports whether this kind is rejected while the worker is
// mid-interaction, per spec §4.5 admission control step 3.
func (k Kind) NonEssential() bool {
	switch k {
	case GetAddress, GetXpub, SignTransaction:
		return true
	default:
		return false
	}
}

// GetAddressParams parameterizes GetAddress/GetXpub.
type GetAddressParams struct {
	AddressN    []uint32
	CoinName    string
	ScriptType  string
	ShowDisplay bool
}

// ApplySettingsParams parameterizes ApplySettings; nil fields mean "leave
// unchanged".
type ApplySettingsParams struct {
	UsePassphrase *bool
	Label         *string
	Language      *string
}

// SignTransactionParams parameterizes SignTransaction. Inputs and outputs
// are supplied lazily via TxRequest/TxAck round trips driven by the device,
// so this only carries the counts and coin needed to start SignTx; see
// internal/sign for the supporting derivation-path and prevtx helpers.
type SignTransactionParams struct {
	CoinName     string
	InputsCount  uint32
	OutputsCount uint32
}

// Request is submitted to the Queue Manager (C6), which routes it by
// UniqueID to the matching DeviceWorker's mailbox. Reply is a
// buffered-size-1 channel the worker writes exactly once before returning
// control; callers must read it (or it is safe to let it be
// garbage-collected unread).
type Request struct {
	Kind     Kind
	UniqueID string

	GetAddress      *GetAddressParams
	SignTransaction *SignTransactionParams
	ApplySettings   *ApplySettingsParams
	FirmwareUpload  []byte
	SendRaw         wire.Message

	Reply chan Result
}

// Result is the terminal outcome of a Request.
type Result struct {
	Address  string
	Xpub     string
	Features *wire.Features
	Message  string
	Raw      wire.Message
	Err      error
}

func newRequest(kind Kind, uniqueID string) (*Request, chan Result) {
	reply := make(chan Result, 1)
	return &Request{Kind: kind, UniqueID: uniqueID, Reply: reply}, reply
}

func NewGetFeaturesRequest(uniqueID string) (*Request, chan Result) {
	return newRequest(GetFeatures, uniqueID)
}

func NewGetAddressRequest(uniqueID string, params GetAddressParams) (*Request, chan Result) {
	req, reply := newRequest(GetAddress, uniqueID)
	req.GetAddress = &params
	return req, reply
}

func NewGetXpubRequest(uniqueID string, params GetAddressParams) (*Request, chan Result) {
	req, reply := newRequest(GetXpub, uniqueID)
	req.GetAddress = &params
	return req, reply
}

func NewSignTransactionRequest(uniqueID string, params SignTransactionParams) (*Request, chan Result) {
	req, reply := newRequest(SignTransaction, uniqueID)
	req.SignTransaction = &params
	return req, reply
}

func NewApplySettingsRequest(uniqueID string, params ApplySettingsParams) (*Request, chan Result) {
	req, reply := newRequest(ApplySettings, uniqueID)
	req.ApplySettings = &params
	return req, reply
}

func NewFirmwareEraseRequest(uniqueID string) (*Request, chan Result) {
	return newRequest(FirmwareErase, uniqueID)
}

func NewFirmwareUploadRequest(uniqueID string, firmware []byte) (*Request, chan Result) {
	req, reply := newRequest(FirmwareUpload, uniqueID)
	req.FirmwareUpload = firmware
	return req, reply
}

func NewSendRawRequest(uniqueID string, msg wire.Message) (*Request, chan Result) {
	req, reply := newRequest(SendRaw, uniqueID)
	req.SendRaw = msg
	return req, reply
}

func NewCancelRequest(uniqueID string) (*Request, chan Result) {
	return newRequest(Cancel, uniqueID)
}
