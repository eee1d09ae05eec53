// Package params holds the per-device measurement parameters and the
// secondary (per-run) sweep settings.
package params

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the device parameter file is looked for when none is
// given.
const DefaultPath = "params.yaml"

// Device is the parameter record of one device type.
type Device struct {
	F     []float64   `yaml:"F" json:"F"`     // test frequencies, GHz
	Mul   float64     `yaml:"mul" json:"mul"` // frequency multiplier
	P1    float64     `yaml:"P1" json:"P1"`   // power thresholds, dBm
	P2    float64     `yaml:"P2" json:"P2"`
	Istat [3]*float64 `yaml:"Istat" json:"Istat"` // static current, per trial
	Idyn  [3]*float64 `yaml:"Idyn" json:"Idyn"`   // dynamic current, per trial
}

// Devices maps a device type label to its parameters.
type Devices map[string]Device

// Names returns the device labels in sorted order.
func (d Devices) Names() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DefaultDeviceName is the single built-in device.
const DefaultDeviceName = "Аналоговый фазовращатель"

// DefaultDevices returns the built-in parameter set used when no file is
// present.
func DefaultDevices() Devices {
	return Devices{
		DefaultDeviceName: {
			F:   []float64{1.15, 1.35, 1.75, 1.92, 2.25, 2.54, 2.7, 3, 3.47, 3.86, 4.25},
			Mul: 2,
			P1:  15,
			P2:  21,
		},
	}
}

const maxFileSize = 1 * 1024 * 1024

// LoadDevices reads a device parameter file. YAML and JSON are both
// accepted. Unknown fields, empty names, devices without frequencies and
// current triplets that do not have exactly three slots are rejected.
func LoadDevices(path string) (Devices, error) {
	cleanPath := filepath.Clean(path)
	fi, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat params file: %w", err)
	}
	if fi.Size() > maxFileSize {
		return nil, fmt.Errorf("params file too large: %d bytes (max %d)", fi.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	devs, err := ParseDevices(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return devs, nil
}

// ParseDevices decodes and validates a device parameter blob.
func ParseDevices(data []byte) (Devices, error) {
	// Decode triplets as slices first so that a wrong slot count is reported
	// rather than silently truncated.
	var raw map[string]struct {
		F     []float64  `yaml:"F"`
		Mul   float64    `yaml:"mul"`
		P1    float64    `yaml:"P1"`
		P2    float64    `yaml:"P2"`
		Istat []*float64 `yaml:"Istat"`
		Idyn  []*float64 `yaml:"Idyn"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no devices defined")
		}
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("no devices defined")
	}

	devs := make(Devices, len(raw))
	for name, r := range raw {
		if name == "" {
			return nil, errors.New("device with empty name")
		}
		if len(r.F) == 0 {
			return nil, fmt.Errorf("device %q: no frequencies", name)
		}
		d := Device{F: r.F, Mul: r.Mul, P1: r.P1, P2: r.P2}
		if err := triplet(&d.Istat, r.Istat); err != nil {
			return nil, fmt.Errorf("device %q: Istat: %w", name, err)
		}
		if err := triplet(&d.Idyn, r.Idyn); err != nil {
			return nil, fmt.Errorf("device %q: Idyn: %w", name, err)
		}
		devs[name] = d
	}
	return devs, nil
}

func triplet(dst *[3]*float64, src []*float64) error {
	if src == nil {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("want %d slots, got %d", len(dst), len(src))
	}
	copy(dst[:], src)
	return nil
}

// LoadOrDefault loads path if it exists and falls back to DefaultDevices
// otherwise. A file that exists but fails validation is an error.
func LoadOrDefault(path string) (Devices, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultDevices(), nil
	}
	return LoadDevices(path)
}
