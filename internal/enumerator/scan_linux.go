//go:build linux

package enumerator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/keepkey/device-gateway/internal/constants"
	"github.com/keepkey/device-gateway/internal/transport"
)

const sysfsUSBPath = "/sys/bus/usb/devices"

// SysfsScanner discovers KeepKeys by walking /sys/bus/usb/devices directly,
// the same source ardnew-softusb's hal reads from. It never touches netlink;
// Enumerator's ticker supplies the polling cadence.
type SysfsScanner struct {
	VendorID uint16
}

func NewSysfsScanner() *SysfsScanner { return &SysfsScanner{VendorID: constants.VendorID} }

func (s *SysfsScanner) Scan() ([]transport.DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsUSBPath)
	if err != nil {
		return nil, err
	}

	var out []transport.DeviceInfo
	for _, entry := range entries {
		name := entry.Name()
		// USB devices are named "1-1", "1-1.2"; skip root hubs ("usb1") and
		// interface entries ("1-1:1.0").
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		devPath := filepath.Join(sysfsUSBPath, name)

		vendorID, err := readHex(filepath.Join(devPath, "idVendor"))
		if err != nil || vendorID != uint32(s.VendorID) {
			continue
		}
		productID, _ := readHex(filepath.Join(devPath, "idProduct"))
		busNum, _ := readUint(filepath.Join(devPath, "busnum"))
		devNum, _ := readUint(filepath.Join(devPath, "devnum"))
		serial, _ := readString(filepath.Join(devPath, "serial"))

		devfsPath := fmt.Sprintf("/dev/bus/usb/%03d/%03d", busNum, devNum)
		info := transport.DeviceInfo{
			VendorID:  uint16(vendorID),
			ProductID: uint16(productID),
			Serial:    serial,
			OSPath:    devfsPath,
		}
		info.UniqueID = deriveUniqueID(info, name)

		if iface, ok := findBulkInterface(devPath, name); ok {
			info.HasBulkInterface = true
			info.BulkInPath = devfsPath
			info.BulkInterfaceNum = iface.number
			info.BulkEndpointIn = iface.epIn
			info.BulkEndpointOut = iface.epOut
		}

		out = append(out, info)
	}
	return out, nil
}

// deriveUniqueID prefers the device's USB serial string (stable across
// reconnects to the same port or a different one); falls back to the sysfs
// device-path name when the device reports no serial, which is stable only
// across reconnects to the same physical port.
func deriveUniqueID(info transport.DeviceInfo, sysfsName string) string {
	if info.Serial != "" {
		return fmt.Sprintf("%04x:%04x:%s", info.VendorID, info.ProductID, info.Serial)
	}
	return fmt.Sprintf("%04x:%04x:path:%s", info.VendorID, info.ProductID, sysfsName)
}

type bulkInterface struct {
	number uint8
	epIn   uint8
	epOut  uint8
}

// findBulkInterface looks for a vendor-specific (bInterfaceClass 0xff)
// interface, which is how firmware-mode KeepKeys expose their bulk
// endpoints alongside (or instead of) the HID interface.
func findBulkInterface(devPath, deviceName string) (bulkInterface, bool) {
	entries, err := os.ReadDir(devPath)
	if err != nil {
		return bulkInterface{}, false
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, deviceName+":") {
			continue
		}
		ifacePath := filepath.Join(devPath, name)
		class, err := readHex(filepath.Join(ifacePath, "bInterfaceClass"))
		if err != nil || class != 0xff {
			continue
		}
		number, _ := readHex(filepath.Join(ifacePath, "bInterfaceNumber"))
		epIn, epOut, ok := findBulkEndpoints(ifacePath)
		if !ok {
			continue
		}
		return bulkInterface{number: uint8(number), epIn: epIn, epOut: epOut}, true
	}
	return bulkInterface{}, false
}

// findBulkEndpoints scans an interface's endpoint directories
// ("ep_81", "ep_01", ...) for the pair of bulk (transfer-type 2) endpoints.
func findBulkEndpoints(ifacePath string) (epIn, epOut uint8, ok bool) {
	entries, err := os.ReadDir(ifacePath)
	if err != nil {
		return 0, 0, false
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "ep_") {
			continue
		}
		epPath := filepath.Join(ifacePath, name)
		transferType, err := readHex(filepath.Join(epPath, "bmAttributes"))
		if err != nil || transferType&0x03 != 0x02 { // bulk
			continue
		}
		addr, err := readHex(filepath.Join(epPath, "bEndpointAddress"))
		if err != nil {
			continue
		}
		if addr&0x80 != 0 {
			epIn = uint8(addr)
		} else {
			epOut = uint8(addr)
		}
	}
	return epIn, epOut, epIn != 0 && epOut != 0
}

func readString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readUint(path string) (uint32, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

func readHex(path string) (uint32, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}
