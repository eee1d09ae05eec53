// Package connutil wires the GPIB adapter and the instrument addresses to
// command-line flags.
package connutil

import (
	"flag"
	"log"
	"time"

	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/mpictor/psmeasure"
	"github.com/mpictor/psmeasure/lib/cmdlog"
	"github.com/mpictor/psmeasure/lib/find"
	"github.com/mpictor/psmeasure/lib/instr"
)

type Conn struct {
	SerialPort   string // empty: locate the adapter by USB id
	USBSerial    string // narrows adapter discovery to one USB serial number
	Baud         int
	Delay        time.Duration
	ReadTimeout  time.Duration
	AR488        bool
	Debug        bool // log instrument traffic
	DebugBus     bool // log raw adapter commands
	AnalyzerAddr string
	SourceAddr   string

	find func(find.FilterFn) (string, error)
}

// defaultPort is used when discovery fails.
const defaultPort = "/dev/ttyUSB0"

// AddFlags is to be called before [flag.Parse].
func (c *Conn) AddFlags(fs *flag.FlagSet) {
	if c.Baud == 0 {
		c.Baud = 115200
	}
	if c.ReadTimeout == 0 {
		// just above the adapter's 500 ms read_tmo_ms, so a silent
		// instrument costs one timeout per query
		c.ReadTimeout = time.Second
	}
	if c.AnalyzerAddr == "" {
		c.AnalyzerAddr = instr.DefaultAnalyzerAddr
	}
	if c.SourceAddr == "" {
		c.SourceAddr = instr.DefaultSourceAddr
	}

	fs.StringVar(&c.SerialPort, "port", c.SerialPort, "Serial port for Prologix VCP GPIB controller (default: auto-detect)")
	fs.StringVar(&c.USBSerial, "serial", c.USBSerial, "USB serial number of the adapter to auto-detect")
	fs.IntVar(&c.Baud, "baud", c.Baud, "serial baud rate")
	fs.DurationVar(&c.Delay, "delay", c.Delay, "delay between writes")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "serial read timeout")
	fs.BoolVar(&c.AR488, "ar488", c.AR488, "adapter is an AR488 rather than a Prologix")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log instrument traffic")
	fs.BoolVar(&c.DebugBus, "debug-bus", c.DebugBus, "log raw adapter commands and replies")
	fs.StringVar(&c.AnalyzerAddr, "analyzer", c.AnalyzerAddr, "GPIB resource of the network analyzer")
	fs.StringVar(&c.SourceAddr, "source", c.SourceAddr, "GPIB resource of the source")
}

// port returns the serial port to open: -port if given, else the adapter
// found by USB id (or by -serial), else a guess.
func (c *Conn) port() string {
	if c.SerialPort != "" {
		return c.SerialPort
	}
	filter := find.AnyOf(find.PrologixFilter, find.ArduinoFilter)
	if c.USBSerial != "" {
		filter = find.SerialFilter(c.USBSerial)
	}
	locate := c.find
	if locate == nil {
		locate = find.Find
	}
	tty, err := locate(filter)
	if err != nil {
		log.Printf("locating serial port failed, guessing %s: %s", defaultPort, err)
		return defaultPort
	}
	return tty
}

// controllerOptions translates the flags into controller options.
func (c *Conn) controllerOptions() []psmeasure.ControllerOption {
	var opts []psmeasure.ControllerOption
	if c.Delay > 0 {
		opts = append(opts, psmeasure.WithWriteDelay(c.Delay))
	}
	if c.AR488 {
		opts = append(opts, psmeasure.WithAR488())
	}
	if c.DebugBus {
		opts = append(opts, psmeasure.WithDebug())
	}
	return opts
}

// Addrs returns the address overrides for Engine.Connect.
func (c *Conn) Addrs() map[string]string {
	return map[string]string{
		instr.AnalyzerName: c.AnalyzerAddr,
		instr.SourceName:   c.SourceAddr,
	}
}

// Setup is to be called after both [(Conn).AddFlags] and [flag.Parse]. It
// opens the serial port, configures the adapter and returns a Dialer for the
// instruments on its bus.
func (c *Conn) Setup(opts ...psmeasure.ControllerOption) (dial instr.Dialer, cleanup func() error, err error) {
	nocleanup := func() error { return nil }

	tty := c.port()
	log.Printf("Serial port = %s", tty)

	port, err := serial.Open(tty, &serial.Mode{BaudRate: c.Baud})
	if err != nil {
		return nil, nocleanup, err
	}
	if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
		port.Close()
		return nil, nocleanup, err
	}

	opts = append(c.controllerOptions(), opts...)
	gpib, err := psmeasure.NewController(port, opts...)
	if err != nil {
		port.Close()
		return nil, nocleanup, err
	}

	dial = func(a instr.Address) (instr.Transport, error) {
		d, err := gpib.Device(a.Primary)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	if c.Debug {
		dial = cmdlog.Dialer(dial)
	}

	cleanup = func() error {
		// Return local control to the front panel, discard anything unread,
		// then close.
		return multierr.Combine(
			gpib.FrontPanel(),
			port.ResetInputBuffer(),
			port.Close(),
		)
	}
	return dial, cleanup, nil
}
