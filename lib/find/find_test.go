package find

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	prologix = Port{Dev: "/dev/ttyUSB0", VID: "0403", PID: "6001", Product: "Prologix GPIB-USB Controller", Serial: "PX1234"}
	ftdi     = Port{Dev: "/dev/ttyUSB1", VID: "0403", PID: "6001", Product: "FT232R USB UART", Serial: "A50285BI"}
	arduino  = Port{Dev: "/dev/ttyACM0", VID: "2341", PID: "0043", Product: "Arduino Uno", Serial: "7593"}
)

func TestFilters(t *testing.T) {
	assert.True(t, PrologixFilter(&prologix))
	assert.False(t, PrologixFilter(&ftdi))
	assert.True(t, ArduinoFilter(&arduino))
	assert.False(t, ArduinoFilter(&prologix))
	assert.True(t, SerialFilter("A50285BI")(&ftdi))
	assert.True(t, AnyOf(PrologixFilter, ArduinoFilter)(&arduino))
	assert.False(t, AnyOf()(&arduino))
}

func TestChoose(t *testing.T) {
	dev, err := choose([]Port{ftdi, arduino, prologix}, PrologixFilter)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", dev)

	dev, err = choose([]Port{arduino}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", dev)

	_, err = choose(nil, nil)
	assert.Error(t, err)
	_, err = choose([]Port{ftdi, arduino}, nil)
	assert.Error(t, err)
	_, err = choose([]Port{ftdi}, PrologixFilter)
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	defer func(l func() ([]Port, error)) { lister = l }(lister)

	lister = func() ([]Port, error) { return []Port{ftdi, prologix}, nil }
	dev, err := Find(AnyOf(PrologixFilter, ArduinoFilter))
	require.NoError(t, err)
	assert.Equal(t, prologix.Dev, dev)

	lister = func() ([]Port, error) { return nil, errors.New("permission denied") }
	_, err = Find(nil)
	assert.Error(t, err)
}
