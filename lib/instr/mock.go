package instr

import (
	"fmt"
	"sync"
)

// Call is one recorded instrument call.
type Call struct {
	Method string
	Args   []any
}

func (c Call) String() string { return fmt.Sprintf("%s%v", c.Method, c.Args) }

// CallLog records calls in order. It is safe for concurrent use.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

func (l *CallLog) record(method string, args ...any) {
	l.mu.Lock()
	l.calls = append(l.calls, Call{Method: method, Args: args})
	l.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Reset forgets all recorded calls.
func (l *CallLog) Reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

type mockBase struct {
	CallLog
	name   string
	addr   string
	absent bool
	found  bool
}

func (m *mockBase) Addr() string        { return m.addr }
func (m *mockBase) SetAddr(addr string) { m.addr = addr }

func (m *mockBase) Find() bool {
	m.record("Find")
	m.found = !m.absent
	return m.found
}

func (m *mockBase) Status() StatusInfo {
	s := StatusInfo{Name: m.name, Addr: m.addr, Found: m.found}
	if m.found {
		s.IDN = "MOCK," + m.name + ",0,0"
	}
	return s
}

// SetAbsent makes later Find calls fail, as if nothing answered at the
// address.
func (m *mockBase) SetAbsent(absent bool) { m.absent = absent }

// MockSource is a Source that only records calls.
type MockSource struct{ mockBase }

func NewMockSource(name, addr string) *MockSource {
	return &MockSource{mockBase{name: name, addr: addr}}
}

func (m *MockSource) SetCurrent(ch int, value float64, unit string) error {
	m.record("SetCurrent", ch, value, unit)
	return nil
}

func (m *MockSource) SetVoltage(ch int, value float64, unit string) error {
	m.record("SetVoltage", ch, value, unit)
	return nil
}

func (m *MockSource) SetOutput(ch int, state OutputState) error {
	m.record("SetOutput", ch, state)
	return nil
}

// MockAnalyzer is a NetworkAnalyzer that records calls and answers a few
// common queries. Replies may be overridden per command.
type MockAnalyzer struct {
	mockBase
	mu      sync.Mutex
	replies map[string]string
}

func NewMockAnalyzer(name, addr string) *MockAnalyzer {
	return &MockAnalyzer{
		mockBase: mockBase{name: name, addr: addr},
		replies: map[string]string{
			"*OPC?": "1",
			"*IDN?": "MOCK," + name + ",0,0",
		},
	}
}

// SetReply sets the response returned for cmd.
func (m *MockAnalyzer) SetReply(cmd, reply string) {
	m.mu.Lock()
	m.replies[cmd] = reply
	m.mu.Unlock()
}

func (m *MockAnalyzer) Send(cmd string) error {
	m.record("Send", cmd)
	return nil
}

func (m *MockAnalyzer) Query(cmd string) (string, error) {
	m.record("Query", cmd)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replies[cmd], nil
}
