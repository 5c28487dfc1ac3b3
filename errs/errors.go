// Package errs defines the sentinel errors shared by all linmix packages.
//
// Callers should match them with errors.Is; the packages that return them wrap the
// sentinel with context describing the offending variable, shape or option.
package errs

import "errors"

// Input validation errors.
var (
	// ErrShapeMismatch is returned when covariates, responses and their errors disagree in shape.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNegativeError is returned when a measurement error is negative.
	ErrNegativeError = errors.New("negative measurement error")
	// ErrInvalidInput is returned for empty or non-finite inputs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFitted is returned when a result is requested from a regressor that was never fitted.
	ErrNotFitted = errors.New("regressor not fitted")
)

// Model and configuration errors.
var (
	// ErrInvalidModel is returned when a model declaration is inconsistent.
	ErrInvalidModel = errors.New("invalid model")
	// ErrInvalidConfig is returned when a sampler configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid sampler configuration")
)

// Sampling errors. ErrSamplingFailure is always present on a failed run; the
// remaining sentinels describe the cause and may be combined.
var (
	ErrSamplingFailure     = errors.New("sampling failure")
	ErrDivergence          = errors.New("divergent transitions after tuning")
	ErrAcceptanceMismatch  = errors.New("mean acceptance probability below target")
	ErrPoorMixing          = errors.New("chains did not mix")
	ErrNonFiniteInitialLog = errors.New("non-finite log density at initial point")
)

// Trace snapshot errors.
var (
	ErrInvalidSnapshotHeader = errors.New("invalid snapshot header")
	ErrInvalidSnapshotIndex  = errors.New("invalid snapshot index")
	ErrSnapshotChecksum      = errors.New("snapshot checksum mismatch")
	ErrUnknownVariable       = errors.New("unknown variable")
)
