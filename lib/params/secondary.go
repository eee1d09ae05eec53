package params

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Secondary holds the per-run settings the operator may change between
// measurements.
type Secondary struct {
	Pin      float64 `json:"Pin"`      // input power, dBm
	F1       float64 `json:"F1"`       // sweep start, GHz
	F2       float64 `json:"F2"`       // sweep stop, GHz
	Points   int     `json:"points"`   // analyzer sweep points
	U1       float64 `json:"U1"`       // control voltage start, V
	U2       float64 `json:"U2"`       // control voltage end, V
	Ustep    float64 `json:"Ustep"`    // control voltage step, V
	Kp       float64 `json:"kp"`       // gain compensation, dB
	Fborder1 float64 `json:"Fborder1"` // frequency band bounds, GHz
	Fborder2 float64 `json:"Fborder2"`
}

// DefaultSecondary returns the settings in effect at startup.
func DefaultSecondary() Secondary {
	return Secondary{
		Pin:      -10,
		F1:       4,
		F2:       8,
		Points:   81,
		U1:       0,
		U2:       1,
		Ustep:    0.1,
		Kp:       0,
		Fborder1: 4,
		Fborder2: 8,
	}
}

// Validate checks the settings before they reach the instruments.
func (s Secondary) Validate() error {
	var err error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"Pin", s.Pin}, {"F1", s.F1}, {"F2", s.F2}, {"U1", s.U1}, {"U2", s.U2},
		{"Ustep", s.Ustep}, {"kp", s.Kp}, {"Fborder1", s.Fborder1}, {"Fborder2", s.Fborder2},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			err = multierr.Append(err, fmt.Errorf("%s is %g, want a finite number", f.name, f.v))
		}
	}
	if s.Points < 1 {
		err = multierr.Append(err, fmt.Errorf("sweep points %d must be positive", s.Points))
	}
	if s.F2 < s.F1 {
		err = multierr.Append(err, fmt.Errorf("frequency stop %g below start %g", s.F2, s.F1))
	}
	if s.Ustep <= 0 {
		err = multierr.Append(err, fmt.Errorf("voltage step %g must be positive", s.Ustep))
	}
	if s.U2 < s.U1 {
		err = multierr.Append(err, fmt.Errorf("voltage end %g below start %g", s.U2, s.U1))
	}
	return err
}
