package instr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records commands and answers queries from a table.
type fakeTransport struct {
	sent    []string
	replies map[string]string
	err     error
}

func (f *fakeTransport) Command(format string, a ...any) error {
	f.sent = append(f.sent, fmt.Sprintf(format, a...))
	return f.err
}

func (f *fakeTransport) Query(cmd string) (string, error) {
	f.sent = append(f.sent, cmd)
	return f.replies[cmd], f.err
}

func dialerFor(t Transport, got *Address) Dialer {
	return func(a Address) (Transport, error) {
		if got != nil {
			*got = a
		}
		return t, nil
	}
}

func quiet(string, ...any) {}

func TestLiveFind(t *testing.T) {
	ft := &fakeTransport{replies: map[string]string{"*IDN?": "Agilent Technologies,N5242A,MY1234,A.09\n"}}
	var dialed Address
	a := NewAnalyzer(AnalyzerName, "GPIB1::16::INSTR", dialerFor(ft, &dialed))
	a.logf = quiet

	require.True(t, a.Find())
	assert.Equal(t, Address{Board: 1, Primary: 16}, dialed)
	st := a.Status()
	assert.True(t, st.Found)
	assert.Equal(t, "Agilent Technologies,N5242A,MY1234,A.09", st.IDN)
	assert.Equal(t, "GPIB1::16::INSTR", st.Addr)

	// a new address forgets the old connection
	a.SetAddr("GPIB1::17::INSTR")
	assert.False(t, a.Status().Found)
	assert.Error(t, a.Send("SYST:PRES"))
}

func TestLiveFindFailures(t *testing.T) {
	silent := &fakeTransport{replies: map[string]string{}}
	broken := &fakeTransport{err: errors.New("timeout")}
	tests := map[string]*Analyzer{
		"bad address": NewAnalyzer(AnalyzerName, "COM3", dialerFor(silent, nil)),
		"dial error": NewAnalyzer(AnalyzerName, "9", func(Address) (Transport, error) {
			return nil, errors.New("no adapter")
		}),
		"empty reply": NewAnalyzer(AnalyzerName, "9", dialerFor(silent, nil)),
		"query error": NewAnalyzer(AnalyzerName, "9", dialerFor(broken, nil)),
	}
	for name, a := range tests {
		t.Run(name, func(t *testing.T) {
			a.logf = quiet
			assert.False(t, a.Find())
			assert.False(t, a.Status().Found)
			assert.Empty(t, a.Status().IDN)
		})
	}
}

func TestAnalyzerSendQuery(t *testing.T) {
	ft := &fakeTransport{replies: map[string]string{"*IDN?": "VNA", "*OPC?": "1\r\n"}}
	a := NewAnalyzer(AnalyzerName, "9", dialerFor(ft, nil))
	a.logf = quiet
	require.True(t, a.Find())

	require.NoError(t, a.Send(`CALC1:PAR:SEL "CH1_S21"`))
	s, err := a.Query("*OPC?")
	require.NoError(t, err)
	assert.Equal(t, "1", s)
	assert.Equal(t, []string{"*IDN?", `CALC1:PAR:SEL "CH1_S21"`, "*OPC?"}, ft.sent)
}

func TestPowerSupplyCommands(t *testing.T) {
	ft := &fakeTransport{replies: map[string]string{"*IDN?": "HEWLETT-PACKARD,E3631A,0,2.1-5.0-1.0"}}
	p := NewPowerSupply(SourceName, "GPIB1::4::INSTR", dialerFor(ft, nil))
	p.logf = quiet
	require.True(t, p.Find())
	ft.sent = nil

	require.NoError(t, p.SetCurrent(1, 10, "mA"))
	require.NoError(t, p.SetVoltage(2, 0.3, "V"))
	require.NoError(t, p.SetOutput(1, Off))
	assert.Equal(t, []string{
		"INST:NSEL 1", "CURR 10mA",
		"INST:NSEL 2", "VOLT 0.3V",
		"INST:NSEL 1", "OUTP OFF",
	}, ft.sent)
}

func TestPowerSupplyNotFound(t *testing.T) {
	p := NewPowerSupply(SourceName, "4", dialerFor(&fakeTransport{}, nil))
	assert.ErrorIs(t, p.SetVoltage(1, 0, "V"), errNotConnected)
}
