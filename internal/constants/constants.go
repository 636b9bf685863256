package constants

import "time"

// Default configuration constants for the device gateway.
//
// These mirror the enumerated configuration in the gateway specification:
// timeouts and ceilings that govern how patiently a DeviceWorker waits on a
// report read before declaring the device wedged, and how many continuation
// reports a single framed message may span.
const (
	// DefaultReportReadTimeout is how long a single report read blocks before
	// returning TransportError{Timeout}. A lone timeout is not fatal; see
	// DefaultConsecutiveTimeoutsBeforeInvalidState.
	DefaultReportReadTimeout = 2000 * time.Millisecond

	// DefaultMaxContinuationReports bounds how many reports the framing codec
	// will read while reassembling one message before failing with
	// ProtocolError{Underflow}. Sized to comfortably cover MaxMessageBytes at
	// 64 payload bytes per continuation report (MaxMessageBytes/ReportSize ≈
	// 9375, plus headroom) rather than the smaller per-source ceilings (64,
	// 20) named in the source material: spec.md §8 requires a single
	// 577,720-byte firmware message to round-trip whole, not just the
	// library-side FirmwareUpload chunks §13.2 splits it into.
	DefaultMaxContinuationReports = 10_000

	// MaxMessageBytes is the largest single message the framing codec will
	// reassemble, checked against the header's declared length before any
	// buffer is allocated. Sized to the largest message spec.md §8 requires
	// to round-trip (a 577,720-byte firmware image) plus headroom; a
	// declared length above this is treated as malformed rather than a
	// legitimate giant message.
	MaxMessageBytes = 600_000

	// DefaultEnumerationPollInterval is the cadence of the enumerator's polling
	// fallback when the host OS offers no hotplug callback. Ignored once a
	// hotplug subscription is active.
	DefaultEnumerationPollInterval = 1000 * time.Millisecond

	// DefaultConsecutiveTimeoutsBeforeInvalidState is how many back-to-back
	// report-read timeouts, with no intervening bytes, promote a worker's
	// session into InvalidState (a wedged device).
	DefaultConsecutiveTimeoutsBeforeInvalidState = 3

	// VendorID is the fixed KeepKey USB vendor ID. Every enumerator pass
	// filters by this value; it is not configurable.
	VendorID = 0x2B24

	// FirmwareUploadChunkSize is the payload size a single FirmwareUpload
	// wire message carries. A full image is split into a sequence of these
	// (SPEC_FULL.md §13.2), each comfortably under the
	// DefaultMaxContinuationReports*ChunkPayloadSize ceiling so the
	// continuation-report cap stays a meaningful I/O bound rather than a
	// limit this one message type has to dodge.
	FirmwareUploadChunkSize = 2048
)

// Wire-level constants shared by the framing codec and the transport layer.
const (
	// ReportSize is the fixed size, in bytes, of a single USB/HID report on
	// the wire (64 bytes on this device family).
	ReportSize = 64

	// ReportSizeMarker is the literal byte value written into byte 0 of every
	// outbound report. It is a frame-delimiter constant, not the true
	// remaining chunk length.
	ReportSizeMarker = 63

	// ChunkPayloadSize is the number of payload bytes carried by each
	// outbound report after the size-marker byte.
	ChunkPayloadSize = ReportSize - 1

	// InboundMarkerByte precedes the "##" magic on the first inbound report
	// only; it is produced by the USB layer on the device side, never by this
	// codec's encoder.
	InboundMarkerByte = 0x3f
)
