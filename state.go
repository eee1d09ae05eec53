// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

// State is the phase of the connect, check, measure workflow.
type State int

const (
	Disconnected State = iota
	Connecting
	Ready
	Checking
	SampleFound
	SampleNotFound
	Measuring
	MeasureComplete
	MeasureFailed
)

var stateNames = [...]string{
	Disconnected:    "disconnected",
	Connecting:      "connecting",
	Ready:           "ready",
	Checking:        "checking",
	SampleFound:     "sample found",
	SampleNotFound:  "sample not found",
	Measuring:       "measuring",
	MeasureComplete: "measure complete",
	MeasureFailed:   "measure failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// connected reports whether both instruments were found.
func (s State) connected() bool { return s >= Ready }

// canCheck reports whether Check may start from s.
func (s State) canCheck() bool {
	switch s {
	case Ready, SampleFound, SampleNotFound, MeasureComplete, MeasureFailed:
		return true
	}
	return false
}

// canMeasure reports whether Measure may start from s.
func (s State) canMeasure() bool {
	switch s {
	case SampleFound, MeasureComplete, MeasureFailed:
		return true
	}
	return false
}
