package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	payload := Marshal(msg)
	got, err := Unmarshal(msg.Type(), payload)
	require.NoError(t, err)
	return got
}

func TestRoundTrip_Initialize(t *testing.T) {
	msg := Initialize{SessionID: []byte{1, 2, 3, 4}}
	got := roundTrip(t, msg).(Initialize)
	require.Equal(t, msg.SessionID, got.SessionID)
}

func TestRoundTrip_Initialize_EmptySession(t *testing.T) {
	msg := Initialize{}
	got := roundTrip(t, msg).(Initialize)
	require.Empty(t, got.SessionID)
}

func TestRoundTrip_Features(t *testing.T) {
	msg := Features{
		VendorName:           "KeepKey",
		MajorVersion:         7,
		MinorVersion:         8,
		PatchVersion:         0,
		DeviceID:             "abc123",
		PinProtection:        true,
		PassphraseProtection: false,
		Label:                "my keepkey",
		Initialized:          true,
		BootloaderMode:       false,
		PinCached:            true,
		PassphraseCached:     false,
	}
	got := roundTrip(t, msg).(Features)
	require.Equal(t, msg, got)
}

func TestRoundTrip_Failure(t *testing.T) {
	msg := Failure{Code: "PinInvalid", Message: "wrong pin"}
	got := roundTrip(t, msg).(Failure)
	require.Equal(t, msg, got)
}

func TestRoundTrip_PinMatrixRequestAck(t *testing.T) {
	req := PinMatrixRequest{MatrixType: "Current"}
	gotReq := roundTrip(t, req).(PinMatrixRequest)
	require.Equal(t, req, gotReq)

	ack := PinMatrixAck{Pin: "1234"}
	gotAck := roundTrip(t, ack).(PinMatrixAck)
	require.Equal(t, ack, gotAck)
}

func TestRoundTrip_Cancel(t *testing.T) {
	got := roundTrip(t, Cancel{})
	require.Equal(t, TypeCancel, got.Type())
}

func TestRoundTrip_ApplySettings_PartialFields(t *testing.T) {
	label := "renamed"
	msg := ApplySettings{Label: &label}
	got := roundTrip(t, msg).(ApplySettings)
	require.Nil(t, got.UsePassphrase)
	require.NotNil(t, got.Label)
	require.Equal(t, "renamed", *got.Label)
	require.Nil(t, got.Language)
}

func TestRoundTrip_GetAddress_RepeatedPath(t *testing.T) {
	msg := GetAddress{
		AddressN:    []uint32{0x8000002C, 0x80000000, 0x80000000, 0, 0},
		CoinName:    "Bitcoin",
		ScriptType:  "p2pkh",
		ShowDisplay: true,
	}
	got := roundTrip(t, msg).(GetAddress)
	require.Equal(t, msg.AddressN, got.AddressN)
	require.Equal(t, msg.CoinName, got.CoinName)
	require.Equal(t, msg.ScriptType, got.ScriptType)
	require.True(t, got.ShowDisplay)
}

func TestRoundTrip_FirmwareUpload(t *testing.T) {
	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := FirmwareUpload{Payload: payload, Offset: 4096}
	got := roundTrip(t, msg).(FirmwareUpload)
	require.Equal(t, msg.Offset, got.Offset)
	require.Equal(t, msg.Payload, got.Payload)
}

func TestRoundTrip_TxRequestAck(t *testing.T) {
	req := TxRequest{RequestType: "TXINPUT", Details: map[string]string{"request_index": "0"}}
	gotReq := roundTrip(t, req).(TxRequest)
	require.Equal(t, req.RequestType, gotReq.RequestType)
	require.Equal(t, req.Details, gotReq.Details)

	ack := TxAck{Tx: map[string]string{"hash": "deadbeef"}}
	gotAck := roundTrip(t, ack).(TxAck)
	require.Equal(t, ack.Tx, gotAck.Tx)
}

func TestUnmarshal_UnknownType(t *testing.T) {
	got, err := Unmarshal(Type(9999), []byte{0xde, 0xad})
	require.NoError(t, err)
	unk, ok := got.(Unknown)
	require.True(t, ok)
	require.Equal(t, Type(9999), unk.WireType)
	require.Equal(t, []byte{0xde, 0xad}, unk.Bytes)
}

func TestUnmarshal_TruncatedPayload(t *testing.T) {
	_, err := Unmarshal(TypeFeatures, []byte{tagVendorName, wireBytes, 0xff})
	require.Error(t, err)
}

func TestTypeString_KnownAndUnknown(t *testing.T) {
	require.Equal(t, "Features", TypeFeatures.String())
	require.Contains(t, Type(777).String(), "777")
}
