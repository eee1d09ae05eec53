// Copyright (c) 2020–2024 The psmeasure developers. All rights reserved.
// Project site: https://github.com/mpictor/psmeasure
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package psmeasure

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition is returned when an operation is started from a
	// workflow state that does not allow it.
	ErrPrecondition = errors.New("precondition failed")
)

// ConfigurationError reports a request naming a device or instrument the
// engine has no parameters for.
type ConfigurationError struct {
	Kind string // "device" or "instrument"
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func preconditionError(op string, s State) error {
	return fmt.Errorf("%w: %s not allowed while %s", ErrPrecondition, op, s)
}
