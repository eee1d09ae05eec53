// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrReadTimeout is returned by a query when the port reports a read
// timeout, i.e. nothing arrived from the adapter.
var ErrReadTimeout = errors.New("read timeout")

// Controller models a Prologix-compatible GPIB controller-in-charge shared by
// every instrument on the bus. Instruments are reached through Device handles,
// which re-address the bus as needed.
type Controller struct {
	rw         io.ReadWriter
	rd         *bufio.Reader
	mu         sync.Mutex
	addressed  int // primary address last sent with ++addr, -1 if none
	auto       bool
	usbTerm    byte
	eotChar    byte
	gpibTerm   GpibTerm
	readTmoMs  int
	writeDelay time.Duration
	debug      bool // if true, print controller commands before sending. Set via WithDebug().
	ar488      bool // compatibility with Arduino AR488 - see WithAR488 documentation for details.
}

// ControllerOption applies an option to the controller.
type ControllerOption func(*Controller)

// NewController configures the Prologix adapter reachable through rw as
// controller-in-charge. No instrument is addressed until the first Device
// handle is used.
func NewController(rw io.ReadWriter, opts ...ControllerOption) (*Controller, error) {
	c := Controller{
		rw:        rw,
		rd:        bufio.NewReader(timeoutReader{rw}),
		addressed: -1,
		usbTerm:   '\n',
		eotChar:   '\n',
		gpibTerm:  AppendCRLF,
		readTmoMs: 500,
	}

	for _, opt := range opts {
		opt(&c)
	}

	if c.readTmoMs < 1 || c.readTmoMs > 3000 {
		return nil, fmt.Errorf("invalid read timeout %d ms (must be 1-3000)", c.readTmoMs)
	}

	cmds := []string{}
	if !c.ar488 {
		cmds = append(cmds,
			"verbose 0", // turn off verbosity if on
			"savecfg 0", // Disable saving of configuration parameters in EPROM
		)
	}
	cmds = append(cmds,
		"mode 1",                                   // Switch to controller mode.
		"auto 0",                                   // Turn off read-after-write.
		"eoi 1",                                    // Enable EOI assertion with last character.
		fmt.Sprintf("eos %d", c.gpibTerm),          // Set GPIB termination.
		fmt.Sprintf("read_tmo_ms %d", c.readTmoMs), // Set the read timeout.
		fmt.Sprintf("eot_char %d", c.eotChar),      // Set the EOT char
		"eot_enable 1",                             // Append character when EOI detected?
	)
	if !c.ar488 {
		cmds = append(cmds,
			"savecfg 1", // Enable saving of configuration parameters in EPROM
		)
	}
	for _, cmd := range cmds {
		if err := c.CommandController(cmd); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// WithDebug causes commands and responses to be logged.
func WithDebug() ControllerOption { return func(c *Controller) { c.debug = true } }

// WithAR488 slightly alters the init commands, for compatiblity with the
// Arduino-based AR488. Specifically, we do not emit 'verbose 0', nor do
// we toggle savecfg.
func WithAR488() ControllerOption { return func(c *Controller) { c.ar488 = true } }

// WithWriteDelay pauses after every write to the adapter. Some older
// instruments drop commands that arrive back to back.
func WithWriteDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.writeDelay = d }
}

// WithGPIBTermination sets the terminator the adapter appends to data sent to
// instruments.
func WithGPIBTermination(term GpibTerm) ControllerOption {
	return func(c *Controller) { c.gpibTerm = term }
}

// WithReadTimeout sets the adapter's inter-character read timeout.
func WithReadTimeout(ms int) ControllerOption {
	return func(c *Controller) { c.readTmoMs = ms }
}

// Device returns a handle to the instrument at the given primary address.
func (c *Controller) Device(pad int) (*Device, error) {
	if !isPrimaryAddressValid(pad) {
		return nil, fmt.Errorf("invalid primary address %d (must by 0-30)", pad)
	}
	return &Device{c: c, pad: pad}, nil
}

// FrontPanel returns the currently addressed instrument to local control.
func (c *Controller) FrontPanel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CommandController("loc")
}

// CommandController sends the given command to the Prologix controller. To
// indicate this is a command for the Prologix controller, thereby not
// transmitting to the instrument over GPIB, two plus signs `++` are prepended.
// Addtionally, a new line is appended to act as the USB termination character.
func (c *Controller) CommandController(cmd string) error {
	cmd = fmt.Sprintf("++%s%c", strings.ToLower(strings.TrimSpace(cmd)), c.usbTerm)
	if c.debug {
		log.Printf("cmd %q (%2x)", cmd, cmd)
	}
	return c.write(cmd)
}

func (c *Controller) write(s string) error {
	_, err := io.WriteString(c.rw, s)
	if err == nil && c.writeDelay > 0 {
		time.Sleep(c.writeDelay)
	}
	return err
}

// selectLocked addresses pad unless it is already the listener. c.mu must be
// held.
func (c *Controller) selectLocked(pad int) error {
	if c.addressed == pad {
		return nil
	}
	if err := c.CommandController(fmt.Sprintf("addr %d", pad)); err != nil {
		return err
	}
	c.addressed = pad
	return nil
}

func (c *Controller) command(pad int, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.selectLocked(pad); err != nil {
		return err
	}
	cmd = fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.usbTerm)
	if c.debug {
		log.Printf("cmd %q (%x)", cmd, cmd)
	}
	return c.write(cmd)
}

// query sends cmd to the instrument at pad and reads one response. When data
// from host is received over USB, the Prologix controller removes all
// non-escaped LF, CR and ESC characters and appends the GPIB terminator, as
// specified by the `eos` command, before sending the data to instruments.
func (c *Controller) query(pad int, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.selectLocked(pad); err != nil {
		return "", err
	}
	cmd = fmt.Sprintf("%s%c", strings.TrimSpace(cmd), c.usbTerm)
	if c.debug {
		log.Printf("query: %q", cmd)
	}
	if err := c.write(cmd); err != nil {
		return "", fmt.Errorf("error writing command: %s", err)
	}
	// If read-after-write is disabled, need to tell the Prologix controller to
	// read.
	if !c.auto {
		readCmd := "++read eoi"
		if err := c.write(fmt.Sprintf("%s%c", readCmd, c.usbTerm)); err != nil {
			return "", fmt.Errorf("error sending `%s` command: %s", readCmd, err)
		}
	}
	s, err := c.rd.ReadString(c.eotChar)
	if c.debug {
		log.Printf("read data: %q", s)
	}
	if err == io.EOF {
		err = nil
	}
	return strings.TrimRight(s, "\r\n"), err
}

// timeoutReader reports a zero-byte read as ErrReadTimeout. Serial ports
// signal an expired read timeout with (0, nil), which bufio would retry.
type timeoutReader struct{ r io.Reader }

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}

// Device is an instrument at a fixed primary address on a Controller's bus.
type Device struct {
	c   *Controller
	pad int
}

// Address returns the primary GPIB address of the device.
func (d *Device) Address() int { return d.pad }

// Command formats according to a format specifier if provided and sends a
// SCPI/ASCII command to the device. All leading and trailing whitespace is
// removed before appending the USB terminator.
func (d *Device) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	return d.c.command(d.pad, cmd)
}

// Query sends a SCPI/ASCII query to the device and returns its response with
// the line terminator removed.
func (d *Device) Query(cmd string) (string, error) {
	return d.c.query(d.pad, cmd)
}

// GpibTerm provides the type for the available GPIB terminators.
type GpibTerm int

// Available GPIB terminators for the Prologix Controller.
const (
	AppendCRLF GpibTerm = iota
	AppendCR
	AppendLF
	AppendNothing
)

var gpibTermDesc = map[GpibTerm]string{
	AppendCRLF:    `Append CR+LF (\r\n) to instrument commands`,
	AppendCR:      `Append CR (\r) to instrument commands`,
	AppendLF:      `Append LF (\n) to instrument commands`,
	AppendNothing: `Do not append anything to instrument commands`,
}

func (term GpibTerm) String() string {
	return gpibTermDesc[term]
}

// isPrimaryAddressValid checks that the primary GPIB address is between 0 and
// 30, inclusive.
func isPrimaryAddressValid(addr int) bool {
	if addr < 0 || addr > 30 {
		return false
	}
	return true
}
