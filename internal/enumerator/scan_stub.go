//go:build !linux

package enumerator

import (
	"fmt"

	"github.com/karalabe/hid"

	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/transport"
)

// HidScanner discovers KeepKeys through the HID enumeration API only; it is
// used on platforms (darwin, windows) where this package has no raw
// sysfs-equivalent bulk-interface probe, so HasBulkInterface is always
// false and Open always resolves to the HID transport on these platforms.
type HidScanner struct {
	VendorID uint16
}

func NewSysfsScanner() *HidScanner { return &HidScanner{VendorID: constants.VendorID} }

func (s *HidScanner) Scan() ([]transport.DeviceInfo, error) {
	candidates, err := hid.Enumerate(s.VendorID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]transport.DeviceInfo, 0, len(candidates))
	for _, c := range candidates {
		info := transport.DeviceInfo{
			VendorID:  c.VendorID,
			ProductID: c.ProductID,
			Serial:    c.Serial,
			OSPath:    c.Path,
		}
		if info.Serial != "" {
			info.UniqueID = fmt.Sprintf("%04x:%04x:%s", info.VendorID, info.ProductID, info.Serial)
		} else {
			info.UniqueID = fmt.Sprintf("%04x:%04x:path:%s", info.VendorID, info.ProductID, info.OSPath)
		}
		out = append(out, info)
	}
	return out, nil
}
