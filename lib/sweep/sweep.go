package sweep

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strconv"
	"time"

	"github.com/gotmc/query"
	"go.uber.org/multierr"

	"github.com/mpictor/psmeasure/lib/instr"
	"github.com/mpictor/psmeasure/lib/params"
)

// ErrFixtureMissing is returned in mock mode when no recorded data exists
// for a control voltage.
var ErrFixtureMissing = errors.New("fixture missing")

const (
	// Trace is the analyzer measurement defined by Init and read at each step.
	Trace = "CH1_S21"

	// StartupCurrent is applied to source channel 1 by Init, in mA.
	StartupCurrent = 10

	channel = 1
)

// Config holds the settings that do not change between runs.
type Config struct {
	CalSet string        // analyzer calibration set activated by Init
	Settle time.Duration // wait after setting a voltage and after reading

	// Fixtures, when set, selects mock mode: data is read from
	// FixtureName(v) in Fixtures instead of from the analyzer, and settle
	// waits are skipped.
	Fixtures fs.FS

	// Analyzer-side directories for the per-step snapshot saves. An empty
	// directory disables that save.
	PortsSaveDir string
	StoreDir     string

	Logf func(format string, v ...any)
}

// DefaultConfig returns the live-mode settings.
func DefaultConfig() Config {
	return Config{
		CalSet:       "Upr_tst",
		Settle:       500 * time.Millisecond,
		PortsSaveDir: "d:/ksa/psm_analog_s2p",
		StoreDir:     "d:/ksa/psm_analog_ports2",
		Logf:         log.Printf,
	}
}

// Sample is the analyzer data captured at one control voltage.
type Sample struct {
	Voltage float64
	Values  []float64
}

// Engine runs sweeps against one analyzer and one source.
type Engine struct {
	Analyzer instr.NetworkAnalyzer
	Source   instr.Source
	Config   Config
}

func (e *Engine) logf(format string, v ...any) {
	if e.Config.Logf != nil {
		e.Config.Logf(format, v...)
	}
}

func (e *Engine) mock() bool { return e.Config.Fixtures != nil }

func (e *Engine) settle() {
	if !e.mock() && e.Config.Settle > 0 {
		time.Sleep(e.Config.Settle)
	}
}

func (e *Engine) waitOPC() error {
	done, err := query.Bool(e.Analyzer, "*OPC?")
	if err != nil {
		return fmt.Errorf("*OPC?: %w", err)
	}
	if !done {
		return errors.New("*OPC?: operation not complete")
	}
	return nil
}

// Init puts the analyzer in a known state and programs the S21 trace,
// calibration, sweep points and frequency window from sec, then energizes
// the source at the startup current with 0 V.
func (e *Engine) Init(sec params.Secondary) error {
	pna, src := e.Analyzer, e.Source

	if err := pna.Send("SYST:PRES"); err != nil {
		return err
	}
	if err := e.waitOPC(); err != nil {
		return err
	}

	cmds := []string{
		fmt.Sprintf(`CALC1:PAR:DEF "%s",S21`, Trace),
		fmt.Sprintf(`SENS1:CORR:CSET:ACT "%s",1`, e.Config.CalSet),
		fmt.Sprintf("SENS1:SWE:POIN %d", sec.Points),
		fmt.Sprintf("SENS1:FREQ:STAR %sGHz", ghz(sec.F1)),
		fmt.Sprintf("SENS1:FREQ:STOP %sGHz", ghz(sec.F2)),
		"SENS1:SWE:MODE CONT",
		"FORM:DATA ASCII",
	}
	for _, cmd := range cmds {
		if err := pna.Send(cmd); err != nil {
			return err
		}
	}

	if err := src.SetCurrent(channel, StartupCurrent, "mA"); err != nil {
		return err
	}
	if err := src.SetVoltage(channel, 0, "V"); err != nil {
		return err
	}
	return src.SetOutput(channel, instr.On)
}

func ghz(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Run steps the source through Voltages(sec.U1, sec.U2, sec.Ustep) and
// captures the analyzer data at each step. The returned axis holds every
// voltage that was started, so after a failure it is longer than samples.
func (e *Engine) Run(sec params.Secondary) (axis []float64, samples []Sample, err error) {
	values, err := Voltages(sec.U1, sec.U2, sec.Ustep)
	if err != nil {
		return nil, nil, err
	}
	e.logf("sweep: %d steps from %g V to %g V", len(values), sec.U1, sec.U2)

	axis = make([]float64, 0, len(values))
	samples = make([]Sample, 0, len(values))
	for _, v := range values {
		axis = append(axis, v)
		s, err := e.step(v)
		if err != nil {
			return axis, samples, fmt.Errorf("step %g V: %w", v, err)
		}
		samples = append(samples, s)
	}
	return axis, samples, nil
}

func (e *Engine) step(v float64) (Sample, error) {
	pna := e.Analyzer

	if err := e.Source.SetVoltage(channel, v, "V"); err != nil {
		return Sample{}, err
	}
	e.settle()

	if err := pna.Send(fmt.Sprintf(`CALC1:PAR:SEL "%s"`, Trace)); err != nil {
		return Sample{}, err
	}
	if err := e.waitOPC(); err != nil {
		return Sample{}, err
	}

	var raw string
	if !e.mock() {
		var err error
		raw, err = pna.Query("CALC1:DATA:SNP? 2")
		if err != nil {
			return Sample{}, err
		}
	}

	e.saveSnapshot(v)

	if e.mock() {
		var err error
		raw, err = e.fixture(v)
		if err != nil {
			return Sample{}, err
		}
	}

	data, err := ParseFloatList(raw)
	if err != nil {
		return Sample{}, err
	}

	e.settle()
	return Sample{Voltage: v, Values: data}, nil
}

// saveSnapshot asks the analyzer to store the raw 2-port data for v. The
// saves are not verified and their failure does not fail the step.
func (e *Engine) saveSnapshot(v float64) {
	name := SnapshotName(v)
	var cmds []string
	if d := e.Config.PortsSaveDir; d != "" {
		cmds = append(cmds, fmt.Sprintf(`CALC:DATA:SNP:PORTs:Save "1,2", "%s/%s"`, d, name))
	}
	if d := e.Config.StoreDir; d != "" {
		cmds = append(cmds, fmt.Sprintf(`MMEM:STOR "%s/%s"`, d, name))
	}
	for _, cmd := range cmds {
		if err := e.Analyzer.Send(cmd); err != nil {
			e.logf("snapshot: %s: %s", cmd, err)
		}
	}
}

func (e *Engine) fixture(v float64) (string, error) {
	name := FixtureName(v)
	f, err := e.Config.Fixtures.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrFixtureMissing, name)
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return "", nil
	}
	return sc.Text(), nil
}

// Shutdown de-energizes the source: 0 mA, 0 V, output off. All three
// commands are attempted even if an earlier one fails.
func Shutdown(src instr.Source) error {
	return multierr.Combine(
		src.SetCurrent(channel, 0, "mA"),
		src.SetVoltage(channel, 0, "V"),
		src.SetOutput(channel, instr.Off),
	)
}
