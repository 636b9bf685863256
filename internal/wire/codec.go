package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/keepkey/device-gateway/internal/constants"
)

// Framing layout.
//
// Outbound (host -> device), per report of constants.ReportSize bytes:
//
//	report[0]      sizeMarker, always ReportSizeMarker (63): a fixed frame
//	               delimiter, not the count of stream bytes this report
//	               carries (the final report may carry fewer).
//	report[1:64]   63 bytes of the framed stream, zero-padded on the final
//	               report.
//
// The framed stream itself is: 2-byte magic (0x23 0x23), 2-byte big-endian
// type, 4-byte big-endian length, then length bytes of message payload.
//
// Inbound (device -> host), per report:
//
//	First report:  report[0]=0x3f marker, report[1:3]=magic, report[3:5]=type,
//	               report[5:9]=length, report[9:64] first payload slice.
//	Continuation:  the full 64 bytes are payload, no header.
//
// The asymmetry (host frames include a self-describing size marker, device
// frames are marked only on the first report) mirrors how the firmware
// actually emits reports; the Gateway's Encode/Decode pair matches both
// sides without trying to unify them into one shape.
const (
	magicByte0 = 0x23
	magicByte1 = 0x23

	outboundHeaderSize = 2 + 2 + 4 // magic + type + length
	inboundHeaderSize  = 1 + 2 + 2 + 4
)

// ErrUnderflow indicates the decoder exhausted its continuation-report
// ceiling before collecting the number of bytes the header declared.
var ErrUnderflow = fmt.Errorf("wire: underflow: declared length exceeds continuation-report ceiling")

// Encode frames a message into a sequence of transport reports, each
// exactly constants.ReportSize bytes, ready for Transport.WriteReport.
func Encode(msg Message) [][]byte {
	payload := Marshal(msg)
	stream := make([]byte, outboundHeaderSize+len(payload))
	stream[0] = magicByte0
	stream[1] = magicByte1
	binary.BigEndian.PutUint16(stream[2:4], uint16(msg.Type()))
	binary.BigEndian.PutUint32(stream[4:8], uint32(len(payload)))
	copy(stream[outboundHeaderSize:], payload)

	var reports [][]byte
	for offset := 0; offset < len(stream); offset += constants.ChunkPayloadSize {
		end := offset + constants.ChunkPayloadSize
		if end > len(stream) {
			end = len(stream)
		}
		report := make([]byte, constants.ReportSize)
		report[0] = constants.ReportSizeMarker
		copy(report[1:], stream[offset:end])
		reports = append(reports, report)
	}
	if len(reports) == 0 {
		// A message with an empty payload still frames as one report
		// carrying just the 8-byte header.
		report := make([]byte, constants.ReportSize)
		report[0] = constants.ReportSizeMarker
		copy(report[1:], stream)
		reports = [][]byte{report}
	}
	return reports
}

// EncodeDeviceReply frames msg the way the device itself would: a first
// report marked with the 0x3f inbound marker, continuation reports carrying
// raw payload bytes with no header. This is the mirror image of Encode and
// exists for device simulators (mock transports, integration harnesses)
// that need to hand a worker a scripted "response from the device".
func EncodeDeviceReply(msg Message) [][]byte {
	payload := Marshal(msg)
	header := make([]byte, inboundHeaderSize)
	header[0] = constants.InboundMarkerByte
	header[1] = magicByte0
	header[2] = magicByte1
	binary.BigEndian.PutUint16(header[3:5], uint16(msg.Type()))
	binary.BigEndian.PutUint32(header[5:9], uint32(len(payload)))

	stream := append(header, payload...)
	var reports [][]byte
	for offset := 0; offset < len(stream); {
		report := make([]byte, constants.ReportSize)
		end := offset + constants.ReportSize
		if offset == 0 {
			end = constants.ReportSize
		}
		if end > len(stream) {
			end = len(stream)
		}
		copy(report, stream[offset:end])
		reports = append(reports, report)
		offset = end
	}
	if len(reports) == 0 {
		reports = [][]byte{make([]byte, constants.ReportSize)}
	}
	return reports
}

// ReportReader reads one raw transport report, blocking up to timeout.
// Satisfied by interfaces.Transport.ReadReport.
type ReportReader func(timeout time.Duration) ([]byte, error)

// Decode reassembles one message from a sequence of reports read via read.
// The declared length is first checked against constants.MaxMessageBytes,
// rejecting a malformed or adversarial header before any buffer is sized
// off it; maxContinuationReports then bounds the number of reports it will
// consume reassembling the message before failing with ErrUnderflow
// (constants.DefaultMaxContinuationReports, unless the caller overrides
// it).
func Decode(read ReportReader, timeout time.Duration, maxContinuationReports int) (Type, []byte, error) {
	first, err := read(timeout)
	if err != nil {
		return 0, nil, err
	}
	if len(first) < inboundHeaderSize {
		return 0, nil, fmt.Errorf("wire: first report too short: %d bytes", len(first))
	}
	if first[0] != constants.InboundMarkerByte {
		return 0, nil, fmt.Errorf("wire: bad inbound marker byte 0x%02x", first[0])
	}
	if first[1] != magicByte0 || first[2] != magicByte1 {
		return 0, nil, fmt.Errorf("wire: bad magic bytes 0x%02x 0x%02x", first[1], first[2])
	}
	typ := Type(binary.BigEndian.Uint16(first[3:5]))
	length := binary.BigEndian.Uint32(first[5:9])
	if length > uint32(constants.MaxMessageBytes) {
		return 0, nil, fmt.Errorf("wire: declared length %d exceeds max message size %d", length, constants.MaxMessageBytes)
	}

	payload := GetBuffer(length)
	n := copy(payload, first[inboundHeaderSize:])
	reports := 1

	for uint32(n) < length {
		if reports >= maxContinuationReports {
			PutBuffer(payload)
			return 0, nil, ErrUnderflow
		}
		rep, err := read(timeout)
		if err != nil {
			PutBuffer(payload)
			return 0, nil, err
		}
		reports++
		remain := int(length) - n
		take := len(rep)
		if take > remain {
			take = remain
		}
		n += copy(payload[n:n+take], rep[:take])
	}

	out := append([]byte(nil), payload[:length]...)
	PutBuffer(payload)
	return typ, out, nil
}

// DecodeMessage reads and reassembles one report sequence, then decodes the
// resulting payload into its Message variant.
func DecodeMessage(read ReportReader, timeout time.Duration, maxContinuationReports int) (Message, error) {
	typ, payload, err := Decode(read, timeout, maxContinuationReports)
	if err != nil {
		return nil, err
	}
	return Unmarshal(typ, payload)
}
