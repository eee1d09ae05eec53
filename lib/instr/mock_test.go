package instr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCallLog(t *testing.T) {
	src := NewMockSource(SourceName, DefaultSourceAddr)
	require.True(t, src.Find())
	require.NoError(t, src.SetCurrent(1, 10, "mA"))
	require.NoError(t, src.SetOutput(1, On))

	assert.Equal(t, []Call{
		{Method: "Find"},
		{Method: "SetCurrent", Args: []any{1, 10.0, "mA"}},
		{Method: "SetOutput", Args: []any{1, On}},
	}, src.Calls())
	assert.Equal(t, "SetOutput[1 ON]", src.Calls()[2].String())

	src.Reset()
	assert.Empty(t, src.Calls())
}

func TestMockAbsent(t *testing.T) {
	pna := NewMockAnalyzer(AnalyzerName, DefaultAnalyzerAddr)
	pna.SetAbsent(true)
	assert.False(t, pna.Find())
	assert.Equal(t, StatusInfo{Name: AnalyzerName, Addr: DefaultAnalyzerAddr}, pna.Status())
	assert.Equal(t, "analyzer at GPIB1::9::INSTR: not found", pna.Status().String())

	pna.SetAbsent(false)
	assert.True(t, pna.Find())
	assert.Equal(t, "MOCK,analyzer,0,0", pna.Status().IDN)
}

func TestMockAnalyzerReplies(t *testing.T) {
	pna := NewMockAnalyzer(AnalyzerName, DefaultAnalyzerAddr)
	s, err := pna.Query("*OPC?")
	require.NoError(t, err)
	assert.Equal(t, "1", s)

	pna.SetReply("CALC1:DATA:SNP? 2", "1,2,3")
	s, _ = pna.Query("CALC1:DATA:SNP? 2")
	assert.Equal(t, "1,2,3", s)

	s, _ = pna.Query("SYST:ERR?")
	assert.Empty(t, s)
}

func TestFactory(t *testing.T) {
	pna, err := Factory{Mock: true}.NewAnalyzer("GPIB0::16::INSTR")
	require.NoError(t, err)
	assert.IsType(t, &MockAnalyzer{}, pna)
	assert.Equal(t, "GPIB0::16::INSTR", pna.Addr())

	_, err = Factory{}.NewSource(DefaultSourceAddr)
	assert.Error(t, err)

	src, err := Factory{Dial: dialerFor(&fakeTransport{}, nil), Logf: quiet}.NewSource(DefaultSourceAddr)
	require.NoError(t, err)
	assert.IsType(t, &PowerSupply{}, src)
}
