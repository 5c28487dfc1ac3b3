package sampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/trace"
)

// minBFMI is the energy BFMI below which a chain is reported as poorly exploring.
const minBFMI = 0.3

// Target is a differentiable log density with a mapping from its unconstrained
// parameters to recorded draws. *model.Compiled implements it.
type Target interface {
	// Dim returns the number of unconstrained parameters.
	Dim() int
	// LogDensity returns the log density at theta and, when grad is non-nil, its gradient.
	// It must be safe for concurrent use.
	LogDensity(theta, grad []float64) float64
	// InitialPoint returns the starting point and which coordinates were set explicitly.
	InitialPoint() ([]float64, []bool)
	Outputs() []model.Output
	OutputSize() int
	// Draw writes the recorded values for theta into dst.
	Draw(theta []float64, src rand.Source, dst []float64)
}

var _ Target = (*model.Compiled)(nil)

// Sample runs cfg.Chains chains in parallel and returns their post-tuning draws.
//
// Parameters:
//   - ctx: cancels sampling between iterations
//   - target: log density to sample
//   - cfg: sampling configuration, validated before any work starts
//
// Returns:
//   - *trace.Trace: the draws, also returned alongside a *SamplingError
//   - error: errs.ErrInvalidConfig, errs.ErrNonFiniteInitialLog, a context error, or a
//     *SamplingError when diagnostics fail
func Sample(ctx context.Context, target Target, cfg Config) (*trace.Trace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if target.Dim() == 0 {
		return nil, fmt.Errorf("%w: target has no parameters", errs.ErrInvalidModel)
	}

	logger := cfg.logger()
	seed := cfg.Seed
	if !cfg.Seeded {
		seed = rand.Uint64()
	}

	tr := trace.New(cfg.Chains, cfg.Draws, cfg.Tune)
	rec, err := newRecorder(target, tr)
	if err != nil {
		return nil, err
	}

	logger.Debug("sampling",
		"run_id", tr.ID, "seed", seed, "chains", cfg.Chains, "tune", cfg.Tune, "draws", cfg.Draws,
		"dim", target.Dim(), "target_accept", cfg.TargetAccept)

	g, gctx := errgroup.WithContext(ctx)
	for c := range cfg.Chains {
		ch := newChain(c, seed, target, cfg)
		g.Go(func() error {
			return ch.run(gctx, rec)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	warnings := Check(tr, cfg)
	for _, w := range warnings {
		logger.Warn("sampling diagnostic failed", "run_id", tr.ID, "error", w)
	}
	for c, b := range tr.BFMI() {
		if b < minBFMI {
			logger.Warn("low energy BFMI", "run_id", tr.ID, "chain", c, "bfmi", b)
		}
	}

	if len(warnings) > 0 {
		return tr, &SamplingError{Trace: tr, Warnings: warnings}
	}

	return tr, nil
}

// Check runs the post-sampling diagnostics on a trace. Each returned error wraps
// errs.ErrDivergence, errs.ErrAcceptanceMismatch, or errs.ErrPoorMixing.
func Check(tr *trace.Trace, cfg Config) []error {
	var warnings []error

	if n := tr.Divergences(); n > 0 {
		warnings = append(warnings, fmt.Errorf("%w: %d divergent transitions after tuning", errs.ErrDivergence, n))
	}

	floor := cfg.TargetAccept - cfg.AcceptTolerance
	for c, acc := range tr.ChainMeanAccept() {
		if acc < floor {
			warnings = append(warnings, fmt.Errorf("%w: chain %d mean acceptance %.3f, target %.2f",
				errs.ErrAcceptanceMismatch, c, acc, cfg.TargetAccept))
		}
	}

	if tr.Chains > 1 {
		rhat, label := tr.MaxRHat()
		if !math.IsNaN(rhat) && rhat > cfg.MaxRHat {
			warnings = append(warnings, fmt.Errorf("%w: r-hat of %s is %.3f, above %.2f",
				errs.ErrPoorMixing, label, rhat, cfg.MaxRHat))
		}
	}

	return warnings
}
