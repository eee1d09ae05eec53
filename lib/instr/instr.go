// Package instr defines the capabilities the measurement engine needs from its
// two instruments, a DC source and a vector network analyzer, along with live
// SCPI implementations and mock implementations for hardware-free runs.
package instr

import "fmt"

// OutputState is the state of a source output channel.
type OutputState string

const (
	On  OutputState = "ON"
	Off OutputState = "OFF"
)

// StatusInfo describes one instrument as last seen by Find.
type StatusInfo struct {
	Name  string // logical name, e.g. "analyzer"
	Addr  string
	Found bool
	IDN   string // *IDN? reply, empty if not found
}

func (s StatusInfo) String() string {
	if !s.Found {
		return fmt.Sprintf("%s at %s: not found", s.Name, s.Addr)
	}
	return fmt.Sprintf("%s at %s: %s", s.Name, s.Addr, s.IDN)
}

// Instrument is the part common to both capability sets.
type Instrument interface {
	// Find attempts discovery at the configured address. A silent instrument
	// is a normal outcome and yields false, not an error.
	Find() bool
	Status() StatusInfo
	Addr() string
	SetAddr(addr string)
}

// Source is a programmable current/voltage source. Setters are plain command
// sends; they return transport errors only.
type Source interface {
	Instrument
	SetCurrent(channel int, value float64, unit string) error
	SetVoltage(channel int, value float64, unit string) error
	SetOutput(channel int, state OutputState) error
}

// NetworkAnalyzer is a VNA driven with SCPI text commands.
type NetworkAnalyzer interface {
	Instrument
	Send(cmd string) error
	Query(cmd string) (string, error)
}

// Transport carries SCPI text to one instrument. *psmeasure.Device satisfies
// it, as do the decorators in lib/cmdlog.
type Transport interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
}

// Dialer returns a transport for the instrument at addr.
type Dialer func(addr Address) (Transport, error)
