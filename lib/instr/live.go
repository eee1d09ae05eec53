package instr

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gotmc/query"
)

var errNotConnected = errors.New("instrument not connected")

// link holds the address and transport shared by the live instruments.
type link struct {
	name string
	addr string
	dial Dialer
	t    Transport
	idn  string
	logf func(format string, v ...any)
}

func (l *link) Addr() string { return l.addr }

// SetAddr changes the address used by the next Find and drops any transport
// opened for the previous one.
func (l *link) SetAddr(addr string) {
	if addr != l.addr {
		l.t = nil
		l.idn = ""
	}
	l.addr = addr
}

func (l *link) Find() bool {
	l.t, l.idn = nil, ""
	a, err := ParseAddress(l.addr)
	if err != nil {
		l.logf("%s: %s", l.name, err)
		return false
	}
	t, err := l.dial(a)
	if err != nil {
		l.logf("%s: dial %s: %s", l.name, a, err)
		return false
	}
	idn, err := query.String(t, "*IDN?")
	idn = strings.TrimSpace(idn)
	if err != nil || idn == "" {
		l.logf("%s: no reply at %s (err=%v)", l.name, a, err)
		return false
	}
	l.t, l.idn = t, idn
	l.logf("%s: found %s at %s", l.name, idn, a)
	return true
}

func (l *link) Status() StatusInfo {
	return StatusInfo{Name: l.name, Addr: l.addr, Found: l.t != nil, IDN: l.idn}
}

func (l *link) transport() (Transport, error) {
	if l.t == nil {
		return nil, fmt.Errorf("%s at %s: %w", l.name, l.addr, errNotConnected)
	}
	return l.t, nil
}

// Analyzer is a SCPI network analyzer reached through a Dialer.
type Analyzer struct{ link }

// NewAnalyzer returns an analyzer that will be dialed at addr by Find.
func NewAnalyzer(name, addr string, dial Dialer) *Analyzer {
	return &Analyzer{link{name: name, addr: addr, dial: dial, logf: log.Printf}}
}

func (a *Analyzer) Send(cmd string) error {
	t, err := a.transport()
	if err != nil {
		return err
	}
	return t.Command("%s", cmd)
}

func (a *Analyzer) Query(cmd string) (string, error) {
	t, err := a.transport()
	if err != nil {
		return "", err
	}
	s, err := t.Query(cmd)
	return strings.TrimSpace(s), err
}

// PowerSupply is a SCPI multi-channel DC source reached through a Dialer.
type PowerSupply struct{ link }

// NewPowerSupply returns a source that will be dialed at addr by Find.
func NewPowerSupply(name, addr string, dial Dialer) *PowerSupply {
	return &PowerSupply{link{name: name, addr: addr, dial: dial, logf: log.Printf}}
}

func (p *PowerSupply) channel(ch int) (Transport, error) {
	t, err := p.transport()
	if err != nil {
		return nil, err
	}
	if err := t.Command("INST:NSEL %d", ch); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *PowerSupply) SetCurrent(ch int, value float64, unit string) error {
	t, err := p.channel(ch)
	if err != nil {
		return err
	}
	return t.Command("CURR %s%s", formatValue(value), unit)
}

func (p *PowerSupply) SetVoltage(ch int, value float64, unit string) error {
	t, err := p.channel(ch)
	if err != nil {
		return err
	}
	return t.Command("VOLT %s%s", formatValue(value), unit)
}

func (p *PowerSupply) SetOutput(ch int, state OutputState) error {
	t, err := p.channel(ch)
	if err != nil {
		return err
	}
	return t.Command("OUTP %s", state)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
