// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mpictor/psmeasure/lib/instr"
	"github.com/mpictor/psmeasure/lib/params"
	"github.com/mpictor/psmeasure/lib/sweep"
)

// ErrDiscovery is recorded (see Engine.Err) when Connect does not find both
// instruments. Connect itself does not return it.
var ErrDiscovery = errors.New("instrument discovery failed")

// PresenceProbe decides whether a device under test is connected. It may
// talk to the instruments.
type PresenceProbe func(dev params.Device, sec params.Secondary, pna instr.NetworkAnalyzer, src instr.Source) (bool, error)

// AlwaysPresent is the default PresenceProbe.
func AlwaysPresent(params.Device, params.Secondary, instr.NetworkAnalyzer, instr.Source) (bool, error) {
	return true, nil
}

// Archiver stores completed results.
type Archiver interface {
	Save(r *Result) error
}

// Engine owns the instruments and runs the connect, check and measure
// workflow. Operations are meant to be called one at a time (see
// lib/task); the state projections may be read from any goroutine.
type Engine struct {
	analyzer instr.NetworkAnalyzer
	source   instr.Source
	devices  params.Devices
	sweepCfg sweep.Config
	probe    PresenceProbe
	archive  Archiver
	logf     func(format string, v ...any)
	now      func() time.Time

	mu        sync.Mutex // guards the fields below
	state     State
	hasResult bool
	result    *Result
	err       error
}

// EngineOption applies an option to the engine.
type EngineOption func(*Engine)

// WithPresenceProbe replaces AlwaysPresent.
func WithPresenceProbe(p PresenceProbe) EngineOption { return func(e *Engine) { e.probe = p } }

// WithArchive saves every valid result to a.
func WithArchive(a Archiver) EngineOption { return func(e *Engine) { e.archive = a } }

// WithSweepConfig replaces sweep.DefaultConfig.
func WithSweepConfig(c sweep.Config) EngineOption { return func(e *Engine) { e.sweepCfg = c } }

// WithLogf redirects the engine's log output.
func WithLogf(f func(format string, v ...any)) EngineOption {
	return func(e *Engine) { e.logf = f }
}

// New returns an engine driving the given instruments.
func New(pna instr.NetworkAnalyzer, src instr.Source, devices params.Devices, opts ...EngineOption) *Engine {
	e := &Engine{
		analyzer: pna,
		source:   src,
		devices:  devices,
		sweepCfg: sweep.DefaultConfig(),
		probe:    AlwaysPresent,
		logf:     log.Printf,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sweepCfg.Logf == nil {
		e.sweepCfg.Logf = e.logf
	}
	return e
}

// NewEngine builds the instruments with f at their default addresses. Mock
// mode needs recorded data, so f.Mock requires a sweep config with Fixtures.
func NewEngine(f instr.Factory, devices params.Devices, opts ...EngineOption) (*Engine, error) {
	pna, err := f.NewAnalyzer(instr.DefaultAnalyzerAddr)
	if err != nil {
		return nil, err
	}
	src, err := f.NewSource(instr.DefaultSourceAddr)
	if err != nil {
		return nil, err
	}
	e := New(pna, src, devices, opts...)
	if f.Mock && e.sweepCfg.Fixtures == nil {
		return nil, errors.New("mock mode requires fixture data")
	}
	return e, nil
}

// instruments returns the instruments in connection order.
func (e *Engine) instruments() []instr.Instrument {
	return []instr.Instrument{e.analyzer, e.source}
}

func (e *Engine) byName(name string) instr.Instrument {
	switch name {
	case instr.AnalyzerName:
		return e.analyzer
	case instr.SourceName:
		return e.source
	}
	return nil
}

// begin moves to next if ok allows the current state. It holds no lock on
// return.
func (e *Engine) begin(op string, ok func(State) bool, next State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !ok(e.state) {
		err := preconditionError(op, e.state)
		e.err = err
		return err
	}
	e.state = next
	e.err = nil
	return nil
}

func (e *Engine) fail(err error) error {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	return err
}

func idle(s State) bool {
	return s != Connecting && s != Checking && s != Measuring
}

// Connect applies address overrides, keyed by instrument name ("analyzer",
// "source"), then looks for both instruments. Found reports the outcome; a
// missing instrument is not an error.
func (e *Engine) Connect(addrs map[string]string) error {
	e.logf("searching for %v", addrs)
	for name := range addrs {
		if e.byName(name) == nil {
			return e.fail(&ConfigurationError{Kind: "instrument", Name: name})
		}
	}
	if err := e.begin("connect", idle, Connecting); err != nil {
		return err
	}
	e.mu.Lock()
	e.result, e.hasResult = nil, false
	e.mu.Unlock()

	for name, addr := range addrs {
		e.byName(name).SetAddr(addr)
	}
	var missing []string
	for _, in := range e.instruments() {
		if !in.Find() {
			missing = append(missing, in.Status().Name)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(missing) > 0 {
		e.state = Disconnected
		e.err = fmt.Errorf("%w: %s", ErrDiscovery, strings.Join(missing, ", "))
		e.logf("%s", e.err)
		return nil
	}
	e.state = Ready
	return nil
}

func (e *Engine) device(name string) (params.Device, error) {
	dev, ok := e.devices[name]
	if !ok {
		return params.Device{}, e.fail(&ConfigurationError{Kind: "device", Name: name})
	}
	return dev, nil
}

// Check runs the presence probe for the named device. Present reports the
// outcome.
func (e *Engine) Check(device string, sec params.Secondary) error {
	e.logf("call check with %q", device)
	dev, err := e.device(device)
	if err != nil {
		return err
	}
	if err := e.begin("check", State.canCheck, Checking); err != nil {
		return err
	}

	present, err := e.runProbe(dev, sec)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil || !present {
		e.state = SampleNotFound
		e.err = err
		e.logf("sample not found (err=%v)", err)
		return err
	}
	e.state = SampleFound
	return nil
}

// runProbe calls the presence probe, turning a panic into an error so the
// workflow leaves Checking.
func (e *Engine) runProbe(dev params.Device, sec params.Secondary) (present bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			present, err = false, fmt.Errorf("presence probe panicked: %v", p)
		}
	}()
	return e.probe(dev, sec, e.analyzer, e.source)
}

// Measure sweeps the control voltage over sec's range and stores the result.
// The source is shut down afterwards whether or not the sweep succeeded.
func (e *Engine) Measure(device string, sec params.Secondary) error {
	e.logf("call measure with %q", device)
	if _, err := e.device(device); err != nil {
		return err
	}
	if err := sec.Validate(); err != nil {
		return e.fail(fmt.Errorf("secondary parameters: %w", err))
	}
	if err := e.begin("measure", State.canMeasure, Measuring); err != nil {
		return err
	}
	e.mu.Lock()
	e.result, e.hasResult = nil, false
	e.mu.Unlock()

	res, err := e.measure(device, sec)

	e.mu.Lock()
	e.result = res
	e.hasResult = err == nil && res.Valid()
	if e.hasResult {
		e.state = MeasureComplete
	} else {
		e.state = MeasureFailed
		if err == nil {
			err = errors.New("sweep produced no samples")
		}
		e.err = err
	}
	ok := e.hasResult
	e.mu.Unlock()

	if ok && e.archive != nil {
		if aerr := e.archive.Save(res); aerr != nil {
			e.logf("archive: %s", aerr)
		}
	}
	return err
}

func (e *Engine) measure(device string, sec params.Secondary) (res *Result, err error) {
	eng := sweep.Engine{Analyzer: e.analyzer, Source: e.source, Config: e.sweepCfg}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sweep panicked: %v", p)
		}
		if serr := sweep.Shutdown(e.source); serr != nil {
			err = multierr.Append(err, fmt.Errorf("source shutdown: %w", serr))
		}
	}()

	if err := eng.Init(sec); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	axis, samples, err := eng.Run(sec)
	return NewResult(uuid.NewString(), device, e.now(), sec, axis, samples), err
}

// Status describes each instrument, analyzer first.
func (e *Engine) Status() []instr.StatusInfo {
	ins := e.instruments()
	out := make([]instr.StatusInfo, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Status())
	}
	return out
}

// State returns the current workflow state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Found reports whether the last Connect found both instruments.
func (e *Engine) Found() bool { return e.State().connected() }

// Present reports whether the last Check found the device under test.
func (e *Engine) Present() bool {
	switch e.State() {
	case SampleFound, Measuring, MeasureComplete, MeasureFailed:
		return true
	}
	return false
}

// HasResult reports whether the last Measure produced a valid result.
func (e *Engine) HasResult() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasResult
}

// Result returns the result of the last Measure, which may be partial if it
// failed, or nil.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Err returns the reason the last operation did not succeed, or nil.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Devices returns the names of the configured devices.
func (e *Engine) Devices() []string { return e.devices.Names() }
