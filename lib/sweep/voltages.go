// Package sweep drives one control-voltage sweep: it programs the network
// analyzer, steps the source through the voltage sequence and collects the
// analyzer's network-parameter data at each step.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// MaxSteps bounds the length of a voltage sequence.
const MaxSteps = 10000

// ErrInvalidRange is returned by Voltages for a range it cannot step.
var ErrInvalidRange = errors.New("invalid voltage range")

// Voltages returns the control voltages for a sweep from u1 to u2. The count
// is floor((u2-u1)/step)+1, the values are evenly spaced and include both
// endpoints, and each is rounded to one decimal place.
func Voltages(u1, u2, step float64) ([]float64, error) {
	if !finite(u1) || !finite(u2) || !finite(step) {
		return nil, fmt.Errorf("%w: non-finite bounds %g..%g step %g", ErrInvalidRange, u1, u2, step)
	}
	if !(step > 0) {
		return nil, fmt.Errorf("%w: step %g must be positive", ErrInvalidRange, step)
	}
	if u2 < u1 {
		return nil, fmt.Errorf("%w: end %g below start %g", ErrInvalidRange, u2, u1)
	}
	n := math.Floor((u2-u1)/step) + 1
	if n > MaxSteps {
		return nil, fmt.Errorf("%w: %g steps (max %d)", ErrInvalidRange, n, MaxSteps)
	}

	vs := make([]float64, int(n))
	if len(vs) == 1 {
		vs[0] = u1
	} else {
		floats.Span(vs, u1, u2)
		// Span accumulates the last point; pin it to u2 exactly.
		vs[len(vs)-1] = u2
	}
	for i, v := range vs {
		vs[i] = round1(v)
	}
	return vs, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// round1 rounds to one decimal place by the exact decimal value of v, so
// 0.15 (stored as 0.1499...) becomes 0.1.
func round1(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return r
}
