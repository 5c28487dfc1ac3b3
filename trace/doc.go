// Package trace stores posterior draws and computes convergence diagnostics.
//
// A Trace holds, for every chain, the post-tuning draws of each reported variable
// together with per-draw sampler statistics. Draws of a variable are kept flat and
// row-major, one draw after another, so a variable of shape (N, D) contributes N*D
// values per draw.
//
// Diagnostics follow the usual MCMC conventions: split R-hat, effective sample size
// from FFT autocorrelations truncated by Geyer's initial monotone sequence, and the
// energy Bayesian fraction of missing information.
package trace
