package transport

import (
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/interfaces"
)

// openHid opens info as an HID device, matching the enumerator's candidate
// against a fresh hid.Enumerate() pass by serial (preferred) or OS path.
func openHid(info DeviceInfo) (interfaces.Transport, error) {
	candidates, err := hid.Enumerate(info.VendorID, info.ProductID)
	if err != nil {
		return nil, wrapErr("hid_enumerate", "io", err.Error(), err)
	}

	var match *hid.DeviceInfo
	for i := range candidates {
		if info.Serial != "" && candidates[i].Serial == info.Serial {
			match = &candidates[i]
			break
		}
		if info.OSPath != "" && candidates[i].Path == info.OSPath {
			match = &candidates[i]
			break
		}
	}
	if match == nil {
		return nil, wrapErr("hid_open", "disconnected", "device not present in hid enumeration", nil)
	}

	dev, err := match.Open()
	if err != nil {
		return nil, wrapErr("hid_open", "access", err.Error(), err)
	}
	return &hidTransport{dev: dev}, nil
}

// hidTransport implements interfaces.Transport over a karalabe/hid.Device.
// HID reports carry a leading report-ID byte that this package's callers
// never see: it is injected as 0x00 on write and stripped on read.
type hidTransport struct {
	mu     sync.Mutex
	dev    hid.Device
	closed bool
}

func (t *hidTransport) WriteReport(report []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return wrapErr("write_report", "disconnected", "transport closed", nil)
	}
	buf := make([]byte, len(report)+1)
	buf[0] = 0x00
	copy(buf[1:], report)
	if _, err := t.dev.Write(buf); err != nil {
		return wrapErr("write_report", "io", err.Error(), err)
	}
	return nil
}

func (t *hidTransport) ReadReport(timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, wrapErr("read_report", "disconnected", "transport closed", nil)
	}
	timeout = normalizeTimeout(timeout)
	buf := make([]byte, constants.ReportSize+1)
	n, err := t.dev.ReadTimeout(buf, int(timeout/time.Millisecond))
	if err != nil {
		return nil, wrapErr("read_report", "io", err.Error(), err)
	}
	if n <= 1 {
		return nil, wrapErr("read_report", "timeout", "report read timed out", nil)
	}
	// Strip the leading report-ID byte; pad to ReportSize if the device
	// returned a short final read.
	out := make([]byte, constants.ReportSize)
	copy(out, buf[1:n])
	return out, nil
}

func (t *hidTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.dev.Close()
}
