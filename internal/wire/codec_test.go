package wire

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/stretchr/testify/require"
)

// rawTypeMessage lets tests build an inbound report sequence for an
// arbitrary (type, payload) pair without going through a concrete Message
// variant — needed for the malformed-header tests below.
type rawTypeMessage struct {
	typ     Type
	payload []byte
}

func (r rawTypeMessage) Type() Type             { return r.typ }
func (r rawTypeMessage) marshalPayload() []byte { return r.payload }

// buildInboundReports simulates what a device emits for (typ, payload),
// via the production EncodeDeviceReply path.
func buildInboundReports(typ Type, payload []byte) [][]byte {
	return EncodeDeviceReply(rawTypeMessage{typ: typ, payload: payload})
}

func readerFor(reports [][]byte) ReportReader {
	i := 0
	return func(timeout time.Duration) ([]byte, error) {
		if i >= len(reports) {
			return nil, errors.New("wire test: reports exhausted")
		}
		r := reports[i]
		i++
		return r, nil
	}
}

func TestDecode_BoundarySizes(t *testing.T) {
	sizes := []int{0, 55, 56, 63, 64, 126, 127, 10000, 577720}
	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}
		reports := buildInboundReports(TypeFirmwareUpload, payload)
		typ, got, err := Decode(readerFor(reports), time.Second, constants.DefaultMaxContinuationReports)
		require.NoError(t, err, "size=%d", size)
		require.Equal(t, TypeFirmwareUpload, typ)
		require.Equal(t, payload, got, "size=%d", size)
	}
}

func TestDecode_RejectsBadMarker(t *testing.T) {
	reports := buildInboundReports(TypeSuccess, []byte("hi"))
	reports[0][0] = 0x00
	_, _, err := Decode(readerFor(reports), time.Second, constants.DefaultMaxContinuationReports)
	require.Error(t, err)
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	reports := buildInboundReports(TypeSuccess, []byte("hi"))
	reports[0][1] = 0xAA
	_, _, err := Decode(readerFor(reports), time.Second, constants.DefaultMaxContinuationReports)
	require.Error(t, err)
}

func TestDecode_UnderflowWhenCeilingTooLow(t *testing.T) {
	payload := make([]byte, 1000) // needs several continuation reports
	reports := buildInboundReports(TypeFirmwareUpload, payload)
	_, _, err := Decode(readerFor(reports), time.Second, 2)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestDecode_PropagatesReadError(t *testing.T) {
	payload := make([]byte, 1000)
	reports := buildInboundReports(TypeFirmwareUpload, payload)
	truncated := reports[:1] // declares more bytes than we'll supply
	_, _, err := Decode(readerFor(truncated), time.Second, constants.DefaultMaxContinuationReports)
	require.Error(t, err)
}

func TestEncode_SingleReportForSmallMessage(t *testing.T) {
	msg := Success{Message: "ok"}
	reports := Encode(msg)
	require.Len(t, reports, 1)
	require.Equal(t, byte(constants.ReportSizeMarker), reports[0][0])
	require.Equal(t, byte(magicByte0), reports[0][1])
	require.Equal(t, byte(magicByte1), reports[0][2])
	gotType := binary.BigEndian.Uint16(reports[0][3:5])
	require.Equal(t, uint16(TypeSuccess), gotType)
}

func TestEncode_EmptyPayloadStillFramesOneReport(t *testing.T) {
	reports := Encode(Cancel{})
	require.Len(t, reports, 1)
	require.Equal(t, constants.ReportSize, len(reports[0]))
}

func TestEncode_MultiReportForLargePayload(t *testing.T) {
	payload := make([]byte, 577720) // a firmware-image-sized chunk
	msg := FirmwareUpload{Payload: payload, Offset: 0}
	reports := Encode(msg)
	require.Greater(t, len(reports), 1)
	for _, r := range reports {
		require.Equal(t, constants.ReportSize, len(r))
		require.Equal(t, byte(constants.ReportSizeMarker), r[0])
	}
}

func TestDecodeMessage_DispatchesToVariant(t *testing.T) {
	payload := Marshal(Address{Address: "1A1zP1..."})
	reports := buildInboundReports(TypeAddress, payload)
	msg, err := DecodeMessage(readerFor(reports), time.Second, constants.DefaultMaxContinuationReports)
	require.NoError(t, err)
	addr, ok := msg.(Address)
	require.True(t, ok)
	require.Equal(t, "1A1zP1...", addr.Address)
}
