// Package sampler draws posterior samples from a differentiable log density with the
// No-U-Turn Sampler.
//
// Each chain tunes its step size by dual averaging and its diagonal mass matrix over
// expanding windows, then records draws into a trace.Trace. Chains run in parallel and
// each chain's random stream is derived from the seed and the chain index, so a seeded
// run is reproducible.
//
// After sampling, Sample checks divergences, acceptance rates, and split R-hat. Failed
// checks are returned as a *SamplingError that carries the trace; the trace is usable
// but should be treated with suspicion.
package sampler
