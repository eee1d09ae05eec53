// Package cmdlog logs instrument traffic with terminal styling.
package cmdlog

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mpictor/psmeasure/lib/instr"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	NameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	CmdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	R1Style   = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	R2Style   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	ErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// maxShown limits how much of a long reply is logged.
const maxShown = 96

// Transport logs every command and query passing through to the wrapped
// transport.
type Transport struct {
	Name string
	Next instr.Transport
	Logf func(format string, v ...any)
}

// Wrap returns t decorated with logging under name.
func Wrap(name string, t instr.Transport) *Transport {
	return &Transport{Name: name, Next: t, Logf: log.Printf}
}

// Dialer decorates every transport returned by dial.
func Dialer(dial instr.Dialer) instr.Dialer {
	return func(a instr.Address) (instr.Transport, error) {
		t, err := dial(a)
		if err != nil {
			return nil, err
		}
		return Wrap(a.String(), t), nil
	}
}

func (t *Transport) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	err := t.Next.Command("%s", cmd)
	if err != nil {
		t.Logf("%s %s: %s", NameStyle.Render(t.Name), CmdStyle.Render(cmd), ErrStyle.Render(err.Error()))
	} else {
		t.Logf("%s %s()", NameStyle.Render(t.Name), CmdStyle.Render(cmd))
	}
	return err
}

func (t *Transport) Query(q string) (string, error) {
	a, err := t.Next.Query(q)
	name, qs := NameStyle.Render(t.Name), CmdStyle.Render(q)
	if err != nil {
		t.Logf("%s query %s: %s", name, qs, ErrStyle.Render(err.Error()))
		return a, err
	}
	t.Logf("%s %s: %s", name, qs, Describe(a))
	return a, nil
}

// Describe renders a reply for the log: quoted if printable, hex otherwise,
// truncated when long.
func Describe(a string) string {
	a = strings.TrimSuffix(a, "\n")
	if len(a) == 0 {
		return R1Style.Render("<no response>")
	}
	shown, more := a, ""
	if len(shown) > maxShown {
		shown, more = shown[:maxShown], R2Style.Render(fmt.Sprintf(" ... (%d more)", len(a)-maxShown))
	}
	if isAscii(a) {
		return fmt.Sprintf("[%d] %q%s", len(a), shown, more)
	}
	return fmt.Sprintf("[%d] % 2x%s", len(a), []byte(shown), more)
}
