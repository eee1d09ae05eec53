// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

import (
	"slices"
	"time"

	"github.com/mpictor/psmeasure/lib/params"
	"github.com/mpictor/psmeasure/lib/sweep"
)

// Result is the outcome of one Measure call. It is not modified after
// construction; accessors return copies.
type Result struct {
	id        string
	device    string
	created   time.Time
	points    int
	samples   []sweep.Sample
	voltages  []float64
	secondary params.Secondary
}

// NewResult bundles the data captured by one sweep.
func NewResult(id, device string, created time.Time, sec params.Secondary, voltages []float64, samples []sweep.Sample) *Result {
	return &Result{
		id:        id,
		device:    device,
		created:   created,
		points:    sec.Points,
		samples:   cloneSamples(samples),
		voltages:  slices.Clone(voltages),
		secondary: sec,
	}
}

func cloneSamples(in []sweep.Sample) []sweep.Sample {
	if in == nil {
		return nil
	}
	out := make([]sweep.Sample, len(in))
	for i, s := range in {
		out[i] = sweep.Sample{Voltage: s.Voltage, Values: slices.Clone(s.Values)}
	}
	return out
}

// Valid reports whether the result holds at least one sample and one sample
// per control voltage.
func (r *Result) Valid() bool {
	return r != nil && len(r.samples) > 0 && len(r.samples) == len(r.voltages)
}

func (r *Result) ID() string                  { return r.id }
func (r *Result) Device() string              { return r.device }
func (r *Result) Created() time.Time          { return r.created }
func (r *Result) Points() int                 { return r.points }
func (r *Result) Secondary() params.Secondary { return r.secondary }
func (r *Result) Samples() []sweep.Sample     { return cloneSamples(r.samples) }
func (r *Result) Voltages() []float64         { return slices.Clone(r.voltages) }
