package instr

import (
	"errors"
	"log"
)

// Default logical names and addresses of the two required instruments.
const (
	AnalyzerName = "analyzer"
	SourceName   = "source"

	DefaultAnalyzerAddr = "GPIB1::9::INSTR"
	DefaultSourceAddr   = "GPIB1::4::INSTR"
)

// Factory builds the instrument set. Mock selects the recording mock
// implementations; otherwise Dial must be set.
type Factory struct {
	Mock bool
	Dial Dialer
	Logf func(format string, v ...any)
}

// NewAnalyzer returns the analyzer variant selected by f.
func (f Factory) NewAnalyzer(addr string) (NetworkAnalyzer, error) {
	if f.Mock {
		return NewMockAnalyzer(AnalyzerName, addr), nil
	}
	if f.Dial == nil {
		return nil, errors.New("live instruments need a dialer")
	}
	a := NewAnalyzer(AnalyzerName, addr, f.Dial)
	a.logf = f.logf()
	return a, nil
}

// NewSource returns the source variant selected by f.
func (f Factory) NewSource(addr string) (Source, error) {
	if f.Mock {
		return NewMockSource(SourceName, addr), nil
	}
	if f.Dial == nil {
		return nil, errors.New("live instruments need a dialer")
	}
	s := NewPowerSupply(SourceName, addr, f.Dial)
	s.logf = f.logf()
	return s, nil
}

func (f Factory) logf() func(string, ...any) {
	if f.Logf != nil {
		return f.Logf
	}
	return log.Printf
}
