package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloatList(t *testing.T) {
	got, err := ParseFloatList("1.0,2.5,-3.25")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.5, -3.25}, got)

	got, err = ParseFloatList(" 4e+09, -0.0 ,1E-3\r\n")
	require.NoError(t, err)
	assert.Equal(t, []float64{4e9, 0, 1e-3}, got)

	for _, bad := range []string{"1.0,x,3", "", "1,,2", "1;2"} {
		_, err := ParseFloatList(bad)
		assert.ErrorIs(t, err, ErrParse, "%q", bad)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "out_s00.50.s2p", FixtureName(0.5))
	assert.Equal(t, "out_s00.00.s2p", FixtureName(0))
	assert.Equal(t, "out_s12.30.s2p", FixtureName(12.3))
	assert.Equal(t, "s0_5.s2p", SnapshotName(0.5))
	assert.Equal(t, "s0_0.s2p", SnapshotName(0))
	assert.Equal(t, "s10_0.s2p", SnapshotName(10))
}
