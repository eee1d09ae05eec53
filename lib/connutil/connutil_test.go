package connutil

import (
	"bytes"
	"errors"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpictor/psmeasure"
	"github.com/mpictor/psmeasure/lib/find"
	"github.com/mpictor/psmeasure/lib/instr"
)

var ports = []find.Port{
	{Dev: "/dev/ttyUSB0", VID: "0403", PID: "6001", Product: "Prologix GPIB-USB Controller", Serial: "PX0001"},
	{Dev: "/dev/ttyUSB1", VID: "0403", PID: "6001", Product: "Prologix GPIB-USB Controller", Serial: "PX0002"},
}

func fakeFind(filter find.FilterFn) (string, error) {
	for i := range ports {
		if filter(&ports[i]) {
			return ports[i].Dev, nil
		}
	}
	return "", errors.New("no matching ports")
}

func TestAddFlags(t *testing.T) {
	var c Conn
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"-serial", "PX0002", "-debug-bus", "-ar488", "-source", "GPIB0::5::INSTR"}))

	assert.Equal(t, "PX0002", c.USBSerial)
	assert.True(t, c.DebugBus)
	assert.True(t, c.AR488)
	assert.False(t, c.Debug)
	assert.Equal(t, time.Second, c.ReadTimeout)
	assert.Equal(t, 115200, c.Baud)
	assert.Empty(t, c.SerialPort)
	assert.Equal(t, map[string]string{
		instr.AnalyzerName: instr.DefaultAnalyzerAddr,
		instr.SourceName:   "GPIB0::5::INSTR",
	}, c.Addrs())
}

func TestPort(t *testing.T) {
	c := Conn{find: fakeFind}
	assert.Equal(t, "/dev/ttyUSB0", c.port())

	c.USBSerial = "PX0002"
	assert.Equal(t, "/dev/ttyUSB1", c.port())

	c.USBSerial = "nope"
	assert.Equal(t, defaultPort, c.port())

	c.SerialPort = "/dev/ttyS3"
	assert.Equal(t, "/dev/ttyS3", c.port())
}

type sink struct{ bytes.Buffer }

func (s *sink) Read([]byte) (int, error) { return 0, errors.New("no data") }

func TestControllerOptions(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	c := Conn{AR488: true, DebugBus: true}
	port := &sink{}
	_, err := psmeasure.NewController(port, c.controllerOptions()...)
	require.NoError(t, err)

	assert.NotContains(t, port.String(), "++verbose")
	assert.Contains(t, logged.String(), "++mode 1")

	logged.Reset()
	c = Conn{}
	_, err = psmeasure.NewController(&sink{}, c.controllerOptions()...)
	require.NoError(t, err)
	assert.Empty(t, logged.String())
}
