// Package regression fits linear relations between noisy covariates and a noisy response.
//
// Two regressors are provided. LinearRegression is an ordinary (or inverse-variance
// weighted) least-squares fit that ignores covariate errors. Regressor is the
// errors-in-variables model of Kelly (2007): the true covariates are latent, drawn from a
// Gaussian population, and the response scatters around the regression line with an
// intrinsic dispersion on top of its measurement error. Its posterior is sampled with NUTS.
//
// # Data Layout
//
// Covariates are stored as a D×N matrix: one row per covariate dimension, one column per
// observation. A single covariate is promoted to a 1×N matrix by NewDataset1D.
// A zero measurement error marks the value as exact.
//
// # Usage Patterns
//
// ## Posterior Fit
//
//	ds, err := regression.NewDataset1D(x, xErr, y, yErr)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg, err := regression.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := reg.Fit(ctx, ds, sampler.WithDraws(1000), sampler.WithSeed(42)); err != nil {
//	    // a *sampler.SamplingError still leaves the trace on reg for inspection
//	    log.Print(err)
//	}
//
//	fmt.Println(reg.Trace().Summary("slope", "intercept", "int_std"))
//
// ## Point Estimate
//
//	var ols regression.LinearRegression
//	if err := ols.Fit(ds.X, ds.Y); err != nil {
//	    log.Fatal(err)
//	}
//	pred, _ := ols.Predict(ds.X)
//
// # Variables
//
// The posterior trace contains:
//
//   - slope (D): regression coefficients
//   - intercept: regression offset
//   - int_std: intrinsic scatter of the response around the line
//   - tau (D): dispersion of the covariate population
//   - mu (D): centre of the covariate population
//   - ksi (N, D): true covariate values
//   - eta (N): true response values
package regression
