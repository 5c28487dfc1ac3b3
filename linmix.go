// Package linmix fits linear regressions where both the covariates and the response
// carry known measurement errors.
//
// The model is the hierarchical errors-in-variables regression of Kelly (2007, ApJ 665,
// 1489): true covariates ksi are drawn from a Gaussian population N(mu, tau), true
// responses eta scatter around slope·ksi + intercept with intrinsic dispersion int_std,
// and the observations add their known errors on top. The joint posterior is sampled with
// the No-U-Turn Sampler.
//
// # Basic Usage
//
//	reg, err := linmix.Fit(ctx,
//	    []float64{1, 2, 3, 4, 5},      // x
//	    []float64{0.1, 0.1, 0.1, 0.1, 0.1}, // x errors
//	    []float64{2.1, 3.9, 6.2, 7.8, 10.1}, // y
//	    []float64{0.1, 0.1, 0.1, 0.1, 0.1}, // y errors
//	    sampler.WithSeed(42),
//	)
//	if errors.Is(err, errs.ErrSamplingFailure) {
//	    // the trace is kept on reg; inspect it before trusting the result
//	} else if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(reg.Trace().Summary("slope", "intercept", "int_std"))
//
// # Package Structure
//
// This package wraps the regression package for the common single-covariate case.
// The building blocks are public:
//
//   - regression: datasets, the model builder, the posterior and least-squares regressors
//   - model: the explicit graph builder and its compiled log density
//   - sampler: NUTS with step-size and mass-matrix adaptation, and run diagnostics
//   - trace: posterior draws, summaries, R-hat, ESS and HDI
//   - archive: compact binary snapshots of a trace
package linmix

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/regression"
	"github.com/arloliu/linmix/sampler"
)

// Fit runs an errors-in-variables fit of a single covariate with default regressor
// settings.
//
// Parameters:
//   - ctx: cancels sampling
//   - x, xErr: covariate values and their errors
//   - y, yErr: response values and their errors
//   - opts: sampler options (see sampler.WithDraws, sampler.WithSeed, ...)
//
// Returns:
//   - *regression.Regressor: the fitted regressor; also returned with a *sampler.SamplingError
//   - error: validation errors, or a *sampler.SamplingError when diagnostics fail
func Fit(ctx context.Context, x, xErr, y, yErr []float64, opts ...sampler.Option) (*regression.Regressor, error) {
	ds, err := regression.NewDataset1D(x, xErr, y, yErr)
	if err != nil {
		return nil, err
	}

	return fitDataset(ctx, ds, opts)
}

// FitMulti runs an errors-in-variables fit of D covariates given as D×N matrices.
//
// Example:
//
//	x, _ := tensor.AsRows(mass, age)
//	xErr, _ := tensor.AsRows(massErr, ageErr)
//	reg, err := linmix.FitMulti(ctx, x, xErr, y, yErr, sampler.WithChains(4))
func FitMulti(ctx context.Context, x, xErr *mat.Dense, y, yErr []float64, opts ...sampler.Option) (*regression.Regressor, error) {
	ds, err := regression.NewDataset(x, xErr, y, yErr)
	if err != nil {
		return nil, err
	}

	return fitDataset(ctx, ds, opts)
}

func fitDataset(ctx context.Context, ds regression.Dataset, opts []sampler.Option) (*regression.Regressor, error) {
	reg, err := regression.New()
	if err != nil {
		return nil, err
	}

	return reg.Fit(ctx, ds, opts...)
}
