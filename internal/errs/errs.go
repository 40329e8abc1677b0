// Package errs defines the error taxonomy shared across the simulator.
//
// Every failure surfaced to a caller wraps exactly one of these sentinels,
// so call sites can classify with errors.Is without depending on the
// package that produced the failure.
package errs

import "errors"

var (
	// ErrConfiguration marks invalid or unsupported configuration. It is
	// always raised before any simulation run starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataSource marks missing, empty, or unreadable input as well as
	// unwritable output. Raised at load/save boundaries.
	ErrDataSource = errors.New("data source error")

	// ErrSimulation marks a failure inside a simulation run. The wrapping
	// error carries the failing run id.
	ErrSimulation = errors.New("simulation error")
)
