// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort stands in for the adapter's serial port.
type fakePort struct {
	out bytes.Buffer
	in  *strings.Reader
}

func newFakePort(replies string) *fakePort {
	return &fakePort{in: strings.NewReader(replies)}
}

func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }

func (p *fakePort) lines() []string {
	return strings.Split(strings.TrimSuffix(p.out.String(), "\n"), "\n")
}

func TestNewController(t *testing.T) {
	p := newFakePort("")
	_, err := NewController(p)
	require.NoError(t, err)

	want := []string{
		"++verbose 0",
		"++savecfg 0",
		"++mode 1",
		"++auto 0",
		"++eoi 1",
		"++eos 0",
		"++read_tmo_ms 500",
		"++eot_char 10",
		"++eot_enable 1",
		"++savecfg 1",
	}
	if diff := cmp.Diff(want, p.lines()); diff != "" {
		t.Errorf("init sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestNewControllerAR488(t *testing.T) {
	p := newFakePort("")
	_, err := NewController(p, WithAR488(), WithGPIBTermination(AppendLF), WithReadTimeout(3000))
	require.NoError(t, err)
	out := p.out.String()
	assert.NotContains(t, out, "verbose")
	assert.NotContains(t, out, "savecfg")
	assert.Contains(t, out, "++eos 2\n")
	assert.Contains(t, out, "++read_tmo_ms 3000\n")
}

func TestNewControllerBadTimeout(t *testing.T) {
	for _, ms := range []int{0, 3001} {
		_, err := NewController(newFakePort(""), WithReadTimeout(ms))
		assert.Error(t, err, "%d ms", ms)
	}
}

func TestDeviceAddressing(t *testing.T) {
	p := newFakePort("")
	c, err := NewController(p)
	require.NoError(t, err)
	p.out.Reset()

	pna, err := c.Device(9)
	require.NoError(t, err)
	src, err := c.Device(4)
	require.NoError(t, err)
	assert.Equal(t, 9, pna.Address())

	require.NoError(t, pna.Command("SYST:PRES"))
	require.NoError(t, pna.Command("SENS1:SWE:POIN %d", 81))
	require.NoError(t, src.Command(" OUTP ON "))
	require.NoError(t, pna.Command("FORM:DATA ASCII"))

	assert.Equal(t, []string{
		"++addr 9",
		"SYST:PRES",
		"SENS1:SWE:POIN 81",
		"++addr 4",
		"OUTP ON",
		"++addr 9",
		"FORM:DATA ASCII",
	}, p.lines())

	_, err = c.Device(31)
	assert.Error(t, err)
}

func TestDeviceQuery(t *testing.T) {
	p := newFakePort("Agilent,N5242A,0,1\r\n1\n")
	c, err := NewController(p)
	require.NoError(t, err)
	p.out.Reset()

	d, err := c.Device(16)
	require.NoError(t, err)
	idn, err := d.Query("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "Agilent,N5242A,0,1", idn)
	opc, err := d.Query("*OPC?")
	require.NoError(t, err)
	assert.Equal(t, "1", opc)

	assert.Equal(t, []string{"++addr 16", "*IDN?", "++read eoi", "*OPC?", "++read eoi"}, p.lines())

	// no more data: the adapter timed out
	s, err := d.Query("*OPC?")
	assert.NoError(t, err)
	assert.Empty(t, s)
}

// silentPort behaves like a serial port whose read timeout expires with
// nothing received.
type silentPort struct {
	out   bytes.Buffer
	reads int
}

func (p *silentPort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *silentPort) Read([]byte) (int, error) {
	p.reads++
	return 0, nil
}

func TestQueryReadTimeout(t *testing.T) {
	p := &silentPort{}
	c, err := NewController(p)
	require.NoError(t, err)
	d, err := c.Device(9)
	require.NoError(t, err)

	s, err := d.Query("*IDN?")
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Empty(t, s)
	assert.Equal(t, 1, p.reads)

	_, err = d.Query("*IDN?")
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Equal(t, 2, p.reads)
}

func TestDebugLogsAdapterTraffic(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	p := newFakePort("1\n")
	c, err := NewController(p, WithDebug())
	require.NoError(t, err)
	d, err := c.Device(4)
	require.NoError(t, err)
	_, err = d.Query("*OPC?")
	require.NoError(t, err)

	out := logged.String()
	assert.Contains(t, out, "++addr 4")
	assert.Contains(t, out, "*OPC?")
	assert.Contains(t, out, `read data: "1\n"`)
}

func TestFrontPanel(t *testing.T) {
	p := newFakePort("")
	c, err := NewController(p)
	require.NoError(t, err)
	p.out.Reset()
	require.NoError(t, c.FrontPanel())
	assert.Equal(t, "++loc\n", p.out.String())
}

func TestGpibTermString(t *testing.T) {
	assert.Equal(t, `Append LF (\n) to instrument commands`, AppendLF.String())
}
