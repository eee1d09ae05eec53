package instr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"GPIB1::9::INSTR", Address{Board: 1, Primary: 9}},
		{"gpib0::4::instr", Address{Board: 0, Primary: 4}},
		{"GPIB::22::INSTR", Address{Primary: 22}},
		{"GPIB0::4::96::INSTR", Address{Primary: 4, Secondary: 96}},
		{"GPIB2::30", Address{Board: 2, Primary: 30}},
		{" 9 ", Address{Primary: 9}},
	}
	for _, tc := range tests {
		got, err := ParseAddress(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseAddressErrors(t *testing.T) {
	for _, in := range []string{
		"", "TCPIP0::10.0.0.1::INSTR", "GPIB1::31::INSTR", "-1",
		"GPIBx::9::INSTR", "GPIB1::nine::INSTR", "GPIB0::4::12::INSTR", "GPIB1::INSTR",
	} {
		_, err := ParseAddress(in)
		assert.Error(t, err, in)
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "GPIB1::9::INSTR", Address{Board: 1, Primary: 9}.String())
	assert.Equal(t, "GPIB0::4::96::INSTR", Address{Primary: 4, Secondary: 96}.String())
}
