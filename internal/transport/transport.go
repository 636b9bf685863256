// Package transport implements C1: the dual USB-bulk/HID transport
// abstraction, selected per device at open time and otherwise opaque to
// every caller above it (C2 framing only ever sees WriteReport/ReadReport).
package transport

import (
	"time"

	"github.com/keepkey/device-gateway/internal/interfaces"
)

// Kind records which physical transport backs a given open handle, for
// logging only — callers above this package interact exclusively through
// interfaces.Transport.
type Kind int

const (
	KindUnknown Kind = iota
	KindUsbBulk
	KindHid
)

func (k Kind) String() string {
	switch k {
	case KindUsbBulk:
		return "usb_bulk"
	case KindHid:
		return "hid"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one enumerated candidate device, enough to attempt
// opening it under either transport. The enumerator (C4) constructs these;
// this package never enumerates on its own.
type DeviceInfo struct {
	UniqueID  string
	VendorID  uint16
	ProductID uint16
	Serial    string
	OSPath    string

	// HasBulkInterface is true when the enumerator found a vendor-specific
	// bulk interface (composite firmware/bootloader mode); false means only
	// an HID interface is present.
	HasBulkInterface bool

	// BulkInPath/BulkOutPath are OS-specific endpoint/device-node paths used
	// only by the usbbulk backend; HID-only devices leave these empty.
	BulkInPath  string
	BulkOutPath string

	// BulkInterfaceNum, BulkEndpointIn and BulkEndpointOut identify the
	// vendor interface and its two bulk endpoints within the devfs node at
	// BulkInPath. Only meaningful when HasBulkInterface is true.
	BulkInterfaceNum uint8
	BulkEndpointIn   uint8
	BulkEndpointOut  uint8
}

// Open implements the selection policy from spec §4.1:
//  1. If the device advertises a bulk interface, attempt UsbBulk.
//  2. If bulk open fails with Access or the interface is already claimed, or
//     only an HID interface is present, attempt Hid.
//  3. hidMandatory (set true on platforms whose HID class driver can't be
//     detached, e.g. darwin) skips step 1 entirely.
func Open(info DeviceInfo, hidMandatory bool) (interfaces.Transport, Kind, error) {
	if info.HasBulkInterface && !hidMandatory {
		t, err := openUsbBulk(info)
		if err == nil {
			return t, KindUsbBulk, nil
		}
		if !isAccessOrBusy(err) {
			return nil, KindUnknown, err
		}
		// fall through to HID on permission/contention errors
	}
	t, err := openHid(info)
	if err != nil {
		return nil, KindUnknown, err
	}
	return t, KindHid, nil
}

// isAccessOrBusy reports whether err indicates the bulk interface is
// unavailable for reasons that make an HID fallback worth attempting,
// versus a hard failure that should propagate immediately.
func isAccessOrBusy(err error) bool {
	type coded interface{ TransportCode() string }
	if c, ok := err.(coded); ok {
		return c.TransportCode() == "access" || c.TransportCode() == "busy"
	}
	return true // unknown bulk-open failures are treated as fallback-worthy
}

// reportTimeout is the zero-value fallback when a caller passes timeout<=0
// to ReadReport; transports should treat 0 as "use the default", not as a
// non-blocking poll.
const reportTimeout = 2 * time.Second

func normalizeTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return reportTimeout
	}
	return timeout
}
