// Package find locates the USB serial GPIB adapter.
package find

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Port describes a candidate serial port.
type Port struct {
	Dev      string // e.g. /dev/ttyUSB0 or COM3
	VID, PID string
	Product  string
	Serial   string
}

func (p Port) String() string {
	return fmt.Sprintf("dev %s pid/vid %s/%s prod %s serial %s", p.Dev, p.PID, p.VID, p.Product, p.Serial)
}

// FilterFn reports whether a port is the one wanted.
type FilterFn func(*Port) bool

// PrologixFilter matches the FTDI bridge used by Prologix GPIB-USB
// controllers.
func PrologixFilter(p *Port) bool {
	return strings.EqualFold(p.VID, "0403") && strings.EqualFold(p.PID, "6001") &&
		strings.Contains(strings.ToLower(p.Product), "prologix")
}

// ArduinoFilter matches AR488 adapters built on an Arduino.
func ArduinoFilter(p *Port) bool {
	return strings.EqualFold(p.VID, "2341") || strings.Contains(p.Product, "Arduino")
}

// SerialFilter matches a USB serial number.
func SerialFilter(s string) FilterFn {
	return func(p *Port) bool { return p.Serial == s }
}

// AnyOf matches ports accepted by any of fs.
func AnyOf(fs ...FilterFn) FilterFn {
	return func(p *Port) bool {
		for _, f := range fs {
			if f(p) {
				return true
			}
		}
		return false
	}
}

// lister is replaced in tests.
var lister = UsbPorts

// Find searches for a usb serial device. If filter is not nil,
// it is used to narrow choices down. The first device for which
// it returns true (if any) is chosen.
func Find(filter FilterFn) (string, error) {
	ports, err := lister()
	if err != nil {
		return "", err
	}
	return choose(ports, filter)
}

func choose(ports []Port, filter FilterFn) (string, error) {
	if filter != nil {
		for i := range ports {
			if filter(&ports[i]) {
				return ports[i].Dev, nil
			}
		}
		return "", fmt.Errorf("no matching ports among %d usb serial ports", len(ports))
	}
	switch len(ports) {
	case 0:
		return "", fmt.Errorf("no usb serial ports found")
	case 1:
		return ports[0].Dev, nil
	}
	return "", fmt.Errorf("multiple usb serial ports: %v", ports)
}

// UsbPorts lists serial ports backed by USB devices.
func UsbPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var ports []Port
	for _, d := range details {
		if !d.IsUSB {
			continue
		}
		ports = append(ports, Port{
			Dev:     d.Name,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
			Serial:  d.SerialNumber,
		})
	}
	return ports, nil
}
