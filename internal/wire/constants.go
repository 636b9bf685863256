package wire

// Type is the wire-level message type tag. Each Message variant maps to
// exactly one Type; unknown tags decode to Unknown rather than being
// rejected, per spec: "the Gateway never introspects unknown variants".
type Type uint16

// Wire type tags. Numbers matching spec.md §3 are used verbatim; tags for
// variants the spec names but does not number (FirmwareErase, FirmwareUpload,
// GetXpub/PublicKey, SignTx, TxRequest, TxAck) follow the device family's
// established numbering and are recorded here as the single source of truth.
const (
	TypeInitialize        Type = 0
	TypeSuccess           Type = 2
	TypeFailure           Type = 3
	TypeFirmwareErase     Type = 6
	TypeFirmwareUpload    Type = 7
	TypeGetPublicKey      Type = 11
	TypePublicKey         Type = 12
	TypeSignTx            Type = 15
	TypeFeatures          Type = 17
	TypePinMatrixRequest  Type = 18
	TypePinMatrixAck      Type = 19
	TypeCancel            Type = 20
	TypeTxRequest         Type = 21
	TypeTxAck             Type = 22
	TypeApplySettings     Type = 25
	TypeButtonRequest     Type = 26
	TypeButtonAck         Type = 27
	TypeGetAddress        Type = 29
	TypeAddress           Type = 30
	TypePassphraseRequest Type = 41
	TypePassphraseAck     Type = 42
)

var typeNames = map[Type]string{
	TypeInitialize:        "Initialize",
	TypeSuccess:           "Success",
	TypeFailure:           "Failure",
	TypeFirmwareErase:     "FirmwareErase",
	TypeFirmwareUpload:    "FirmwareUpload",
	TypeGetPublicKey:      "GetPublicKey",
	TypePublicKey:         "PublicKey",
	TypeSignTx:            "SignTx",
	TypeFeatures:          "Features",
	TypePinMatrixRequest:  "PinMatrixRequest",
	TypePinMatrixAck:      "PinMatrixAck",
	TypeCancel:            "Cancel",
	TypeTxRequest:         "TxRequest",
	TypeTxAck:             "TxAck",
	TypeApplySettings:     "ApplySettings",
	TypeButtonRequest:     "ButtonRequest",
	TypeButtonAck:         "ButtonAck",
	TypeGetAddress:        "GetAddress",
	TypeAddress:           "Address",
	TypePassphraseRequest: "PassphraseRequest",
	TypePassphraseAck:     "PassphraseAck",
}

// String renders the type's name if known, else a numeric fallback — used
// in error messages so ProtocolError::UnexpectedMessage{got,expected} is
// legible without a lookup table on the caller's side.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown(" + itoa(uint16(t)) + ")"
}

func itoa(v uint16) string {
	if v == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
