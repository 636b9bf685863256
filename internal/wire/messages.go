package wire

import "fmt"

// Message is the closed variant model carried over the framing codec. Every
// concrete type below maps to exactly one Type tag; Unknown is the fallback
// for tags the gateway does not recognize, carried opaquely so the caller
// can still forward it (e.g. to a UI) without the codec having understood it.
type Message interface {
	Type() Type
	marshalPayload() []byte
}

// field tags, scoped per-message — reused across variants since each
// payload is decoded with knowledge of which variant it belongs to.
const (
	tagSessionID          = 1
	tagMessageText        = 1
	tagFailureCode        = 1
	tagFailureMessage     = 2
	tagVendorName         = 1
	tagMajorVersion       = 2
	tagMinorVersion       = 3
	tagPatchVersion       = 4
	tagDeviceID           = 5
	tagPinProtection      = 6
	tagPassphraseProtect  = 7
	tagLabel              = 8
	tagInitialized        = 9
	tagBootloaderMode     = 10
	tagPinCached          = 11
	tagPassphraseCached   = 12
	tagPinMatrixType      = 1
	tagPin                = 1
	tagUsePassphrase      = 1
	tagApplyLabel         = 2
	tagApplyLanguage      = 3
	tagButtonCode         = 1
	tagAddressN           = 1
	tagCoinName           = 2
	tagScriptType         = 3
	tagShowDisplay        = 4
	tagAddress            = 1
	tagXpub               = 1
	tagPassphrase         = 1
	tagFirmwarePayload    = 1
	tagFirmwareOffset     = 2
	tagSignInputsCount    = 1
	tagSignOutputsCount   = 2
	tagSignCoinName       = 3
	tagTxRequestType      = 1
	tagTxRequestDetailKey = 2
	tagTxRequestDetailVal = 3
	tagTxAckEntryKey      = 1
	tagTxAckEntryVal      = 2
)

// Initialize begins or resumes a session with the device.
type Initialize struct {
	SessionID []byte
}

func (Initialize) Type() Type { return TypeInitialize }
func (m Initialize) marshalPayload() []byte {
	w := &fieldWriter{}
	if len(m.SessionID) > 0 {
		w.Bytes(tagSessionID, m.SessionID)
	}
	return w.Finish()
}

// Success is the device's generic positive terminal response.
type Success struct {
	Message string
}

func (Success) Type() Type { return TypeSuccess }
func (m Success) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagMessageText, m.Message)
	return w.Finish()
}

// Failure is the device's generic negative terminal response.
type Failure struct {
	Code    string
	Message string
}

func (Failure) Type() Type { return TypeFailure }
func (m Failure) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagFailureCode, m.Code)
	w.String(tagFailureMessage, m.Message)
	return w.Finish()
}

// Features is the device's self-description, cached in the session whenever
// a Features response arrives and read from there by the policy gate (C9).
type Features struct {
	VendorName           string
	MajorVersion         uint32
	MinorVersion         uint32
	PatchVersion         uint32
	DeviceID             string
	PinProtection        bool
	PassphraseProtection bool
	Label                string
	Initialized          bool
	BootloaderMode       bool
	PinCached            bool
	PassphraseCached     bool
}

func (Features) Type() Type { return TypeFeatures }
func (m Features) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagVendorName, m.VendorName)
	w.Uint32(tagMajorVersion, m.MajorVersion)
	w.Uint32(tagMinorVersion, m.MinorVersion)
	w.Uint32(tagPatchVersion, m.PatchVersion)
	w.String(tagDeviceID, m.DeviceID)
	w.Bool(tagPinProtection, m.PinProtection)
	w.Bool(tagPassphraseProtect, m.PassphraseProtection)
	w.String(tagLabel, m.Label)
	w.Bool(tagInitialized, m.Initialized)
	w.Bool(tagBootloaderMode, m.BootloaderMode)
	w.Bool(tagPinCached, m.PinCached)
	w.Bool(tagPassphraseCached, m.PassphraseCached)
	return w.Finish()
}

// PinMatrixRequest asks the host to prompt for a PIN, entered against a
// scrambled matrix the device itself displays.
type PinMatrixRequest struct {
	MatrixType string // "Current", "NewFirst", "NewSecond"
}

func (PinMatrixRequest) Type() Type { return TypePinMatrixRequest }
func (m PinMatrixRequest) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagPinMatrixType, m.MatrixType)
	return w.Finish()
}

// PinMatrixAck carries the positions entered by the user back to the device.
type PinMatrixAck struct {
	Pin string
}

func (PinMatrixAck) Type() Type { return TypePinMatrixAck }
func (m PinMatrixAck) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagPin, m.Pin)
	return w.Finish()
}

// Cancel aborts whatever exchange is currently suspended awaiting a prompt.
type Cancel struct{}

func (Cancel) Type() Type                { return TypeCancel }
func (Cancel) marshalPayload() []byte    { return nil }

// ApplySettings updates device-resident configuration; every field is
// optional, so nil pointers mean "leave unchanged".
type ApplySettings struct {
	UsePassphrase *bool
	Label         *string
	Language      *string
}

func (ApplySettings) Type() Type { return TypeApplySettings }
func (m ApplySettings) marshalPayload() []byte {
	w := &fieldWriter{}
	if m.UsePassphrase != nil {
		w.Bool(tagUsePassphrase, *m.UsePassphrase)
	}
	if m.Label != nil {
		w.String(tagApplyLabel, *m.Label)
	}
	if m.Language != nil {
		w.String(tagApplyLanguage, *m.Language)
	}
	return w.Finish()
}

// ButtonRequest asks the host to tell the user to confirm on-device.
type ButtonRequest struct {
	Code string
}

func (ButtonRequest) Type() Type { return TypeButtonRequest }
func (m ButtonRequest) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagButtonCode, m.Code)
	return w.Finish()
}

// ButtonAck confirms the host has relayed the button prompt; the actual
// button press happens physically on the device, this just unblocks it.
type ButtonAck struct{}

func (ButtonAck) Type() Type             { return TypeButtonAck }
func (ButtonAck) marshalPayload() []byte { return nil }

// GetAddress requests the address for a BIP32 derivation path.
type GetAddress struct {
	AddressN    []uint32
	CoinName    string
	ScriptType  string
	ShowDisplay bool
}

func (GetAddress) Type() Type { return TypeGetAddress }
func (m GetAddress) marshalPayload() []byte {
	w := &fieldWriter{}
	for _, idx := range m.AddressN {
		w.Uint32(tagAddressN, idx)
	}
	w.String(tagCoinName, m.CoinName)
	w.String(tagScriptType, m.ScriptType)
	w.Bool(tagShowDisplay, m.ShowDisplay)
	return w.Finish()
}

// Address is the device's response to GetAddress.
type Address struct {
	Address string
}

func (Address) Type() Type { return TypeAddress }
func (m Address) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagAddress, m.Address)
	return w.Finish()
}

// PassphraseRequest asks the host to prompt for the BIP39 passphrase.
type PassphraseRequest struct{}

func (PassphraseRequest) Type() Type             { return TypePassphraseRequest }
func (PassphraseRequest) marshalPayload() []byte { return nil }

// PassphraseAck carries the passphrase back to the device. The gateway
// never persists this value past the single exchange it unblocks.
type PassphraseAck struct {
	Passphrase string
}

func (PassphraseAck) Type() Type { return TypePassphraseAck }
func (m PassphraseAck) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagPassphrase, m.Passphrase)
	return w.Finish()
}

// FirmwareErase requests the device clear its existing firmware image
// before a FirmwareUpload sequence begins.
type FirmwareErase struct{}

func (FirmwareErase) Type() Type             { return TypeFirmwareErase }
func (FirmwareErase) marshalPayload() []byte { return nil }

// FirmwareUpload carries one chunk of a firmware image at the given byte
// offset; a full image is sent as a sequence of these, each awaiting its
// own Success/ButtonRequest before the next is written (SPEC_FULL.md §13.2).
type FirmwareUpload struct {
	Payload []byte
	Offset  uint32
}

func (FirmwareUpload) Type() Type { return TypeFirmwareUpload }
func (m FirmwareUpload) marshalPayload() []byte {
	w := &fieldWriter{}
	w.Uint32(tagFirmwareOffset, m.Offset)
	w.Bytes(tagFirmwarePayload, m.Payload)
	return w.Finish()
}

// GetPublicKey requests the extended public key for a derivation path.
type GetPublicKey struct {
	AddressN   []uint32
	CoinName   string
	ScriptType string
}

func (GetPublicKey) Type() Type { return TypeGetPublicKey }
func (m GetPublicKey) marshalPayload() []byte {
	w := &fieldWriter{}
	for _, idx := range m.AddressN {
		w.Uint32(tagAddressN, idx)
	}
	w.String(tagCoinName, m.CoinName)
	w.String(tagScriptType, m.ScriptType)
	return w.Finish()
}

// PublicKey is the device's response to GetPublicKey.
type PublicKey struct {
	Xpub string
}

func (PublicKey) Type() Type { return TypePublicKey }
func (m PublicKey) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagXpub, m.Xpub)
	return w.Finish()
}

// SignTx begins a transaction-signing exchange; the device drives the rest
// of the conversation via a sequence of TxRequest/TxAck round trips.
type SignTx struct {
	InputsCount  uint32
	OutputsCount uint32
	CoinName     string
}

func (SignTx) Type() Type { return TypeSignTx }
func (m SignTx) marshalPayload() []byte {
	w := &fieldWriter{}
	w.Uint32(tagSignInputsCount, m.InputsCount)
	w.Uint32(tagSignOutputsCount, m.OutputsCount)
	w.String(tagSignCoinName, m.CoinName)
	return w.Finish()
}

// TxRequest asks the host for one more piece of transaction data (an input,
// an output, or previous-transaction metadata — RequestType distinguishes
// which) during a SignTx exchange.
type TxRequest struct {
	RequestType string
	Details     map[string]string
}

func (TxRequest) Type() Type { return TypeTxRequest }
func (m TxRequest) marshalPayload() []byte {
	w := &fieldWriter{}
	w.String(tagTxRequestType, m.RequestType)
	for k, v := range m.Details {
		w.String(tagTxRequestDetailKey, k)
		w.String(tagTxRequestDetailVal, v)
	}
	return w.Finish()
}

// TxAck answers one TxRequest with the requested transaction data.
type TxAck struct {
	Tx map[string]string
}

func (TxAck) Type() Type { return TypeTxAck }
func (m TxAck) marshalPayload() []byte {
	w := &fieldWriter{}
	for k, v := range m.Tx {
		w.String(tagTxAckEntryKey, k)
		w.String(tagTxAckEntryVal, v)
	}
	return w.Finish()
}

// Unknown wraps a payload whose type tag the gateway does not recognize.
// The gateway never introspects it — it only forwards or logs it.
type Unknown struct {
	WireType Type
	Bytes    []byte
}

func (u Unknown) Type() Type             { return u.WireType }
func (u Unknown) marshalPayload() []byte { return u.Bytes }

// Marshal encodes msg's payload fields, ready for Encode to frame.
func Marshal(msg Message) []byte {
	return msg.marshalPayload()
}

// Unmarshal decodes a payload of the given wire type into its concrete
// Message variant. Unrecognized types decode to Unknown rather than
// erroring — the gateway forwards what it does not understand.
func Unmarshal(typ Type, payload []byte) (Message, error) {
	r := newFieldReader(payload)
	switch typ {
	case TypeInitialize:
		var m Initialize
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagSessionID {
				b, err := r.Bytes()
				m.SessionID = b
				return err
			}
			return r.Skip(kind)
		})
	case TypeSuccess:
		var m Success
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagMessageText {
				v, err := r.String()
				m.Message = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeFailure:
		var m Failure
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagFailureCode:
				v, err := r.String()
				m.Code = v
				return err
			case tagFailureMessage:
				v, err := r.String()
				m.Message = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeFeatures:
		var m Features
		return m, decodeFields(r, func(tag, kind byte) error {
			var err error
			switch tag {
			case tagVendorName:
				m.VendorName, err = r.String()
			case tagMajorVersion:
				m.MajorVersion, err = r.Uint32()
			case tagMinorVersion:
				m.MinorVersion, err = r.Uint32()
			case tagPatchVersion:
				m.PatchVersion, err = r.Uint32()
			case tagDeviceID:
				m.DeviceID, err = r.String()
			case tagPinProtection:
				m.PinProtection, err = r.Bool()
			case tagPassphraseProtect:
				m.PassphraseProtection, err = r.Bool()
			case tagLabel:
				m.Label, err = r.String()
			case tagInitialized:
				m.Initialized, err = r.Bool()
			case tagBootloaderMode:
				m.BootloaderMode, err = r.Bool()
			case tagPinCached:
				m.PinCached, err = r.Bool()
			case tagPassphraseCached:
				m.PassphraseCached, err = r.Bool()
			default:
				return r.Skip(kind)
			}
			return err
		})
	case TypePinMatrixRequest:
		var m PinMatrixRequest
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagPinMatrixType {
				v, err := r.String()
				m.MatrixType = v
				return err
			}
			return r.Skip(kind)
		})
	case TypePinMatrixAck:
		var m PinMatrixAck
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagPin {
				v, err := r.String()
				m.Pin = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeCancel:
		return Cancel{}, nil
	case TypeApplySettings:
		var m ApplySettings
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagUsePassphrase:
				v, err := r.Bool()
				m.UsePassphrase = &v
				return err
			case tagApplyLabel:
				v, err := r.String()
				m.Label = &v
				return err
			case tagApplyLanguage:
				v, err := r.String()
				m.Language = &v
				return err
			}
			return r.Skip(kind)
		})
	case TypeButtonRequest:
		var m ButtonRequest
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagButtonCode {
				v, err := r.String()
				m.Code = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeButtonAck:
		return ButtonAck{}, nil
	case TypeGetAddress:
		var m GetAddress
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagAddressN:
				v, err := r.Uint32()
				m.AddressN = append(m.AddressN, v)
				return err
			case tagCoinName:
				v, err := r.String()
				m.CoinName = v
				return err
			case tagScriptType:
				v, err := r.String()
				m.ScriptType = v
				return err
			case tagShowDisplay:
				v, err := r.Bool()
				m.ShowDisplay = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeAddress:
		var m Address
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagAddress {
				v, err := r.String()
				m.Address = v
				return err
			}
			return r.Skip(kind)
		})
	case TypePassphraseRequest:
		return PassphraseRequest{}, nil
	case TypePassphraseAck:
		var m PassphraseAck
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagPassphrase {
				v, err := r.String()
				m.Passphrase = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeFirmwareErase:
		return FirmwareErase{}, nil
	case TypeFirmwareUpload:
		var m FirmwareUpload
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagFirmwareOffset:
				v, err := r.Uint32()
				m.Offset = v
				return err
			case tagFirmwarePayload:
				v, err := r.Bytes()
				m.Payload = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeGetPublicKey:
		var m GetPublicKey
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagAddressN:
				v, err := r.Uint32()
				m.AddressN = append(m.AddressN, v)
				return err
			case tagCoinName:
				v, err := r.String()
				m.CoinName = v
				return err
			case tagScriptType:
				v, err := r.String()
				m.ScriptType = v
				return err
			}
			return r.Skip(kind)
		})
	case TypePublicKey:
		var m PublicKey
		return m, decodeFields(r, func(tag, kind byte) error {
			if tag == tagXpub {
				v, err := r.String()
				m.Xpub = v
				return err
			}
			return r.Skip(kind)
		})
	case TypeSignTx:
		var m SignTx
		return m, decodeFields(r, func(tag, kind byte) error {
			var err error
			switch tag {
			case tagSignInputsCount:
				m.InputsCount, err = r.Uint32()
			case tagSignOutputsCount:
				m.OutputsCount, err = r.Uint32()
			case tagSignCoinName:
				m.CoinName, err = r.String()
			default:
				return r.Skip(kind)
			}
			return err
		})
	case TypeTxRequest:
		var m TxRequest
		m.Details = map[string]string{}
		var pendingKey string
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagTxRequestType:
				v, err := r.String()
				m.RequestType = v
				return err
			case tagTxRequestDetailKey:
				v, err := r.String()
				pendingKey = v
				return err
			case tagTxRequestDetailVal:
				v, err := r.String()
				if pendingKey != "" {
					m.Details[pendingKey] = v
					pendingKey = ""
				}
				return err
			}
			return r.Skip(kind)
		})
	case TypeTxAck:
		var m TxAck
		m.Tx = map[string]string{}
		var pendingKey string
		return m, decodeFields(r, func(tag, kind byte) error {
			switch tag {
			case tagTxAckEntryKey:
				v, err := r.String()
				pendingKey = v
				return err
			case tagTxAckEntryVal:
				v, err := r.String()
				if pendingKey != "" {
					m.Tx[pendingKey] = v
					pendingKey = ""
				}
				return err
			}
			return r.Skip(kind)
		})
	default:
		return Unknown{WireType: typ, Bytes: append([]byte(nil), payload...)}, nil
	}
}

func decodeFields(r *fieldReader, handle func(tag, kind byte) error) error {
	for {
		tag, kind, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := handle(tag, kind); err != nil {
			return fmt.Errorf("wire: decoding tag %d: %w", tag, err)
		}
	}
}
