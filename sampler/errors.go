package sampler

import (
	"strings"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/trace"
)

// SamplingError reports a run whose diagnostics failed. The trace is complete but may
// not represent the posterior.
//
// errors.Is matches errs.ErrSamplingFailure and the sentinel of every warning
// (errs.ErrDivergence, errs.ErrAcceptanceMismatch, errs.ErrPoorMixing).
type SamplingError struct {
	Trace    *trace.Trace
	Warnings []error
}

func (e *SamplingError) Error() string {
	msgs := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		msgs = append(msgs, w.Error())
	}

	return errs.ErrSamplingFailure.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *SamplingError) Unwrap() []error {
	return append([]error{errs.ErrSamplingFailure}, e.Warnings...)
}
