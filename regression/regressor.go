package regression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/archive"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/internal/options"
	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/sampler"
	"github.com/arloliu/linmix/trace"
)

// PosteriorRegressor fits the full posterior of a linear relation.
type PosteriorRegressor interface {
	// Fit samples the posterior given ds and stores the trace on the receiver.
	Fit(ctx context.Context, ds Dataset, opts ...sampler.Option) (*Regressor, error)
	// Trace returns the posterior draws of the last fit.
	Trace() *trace.Trace
	// Predict evaluates the relation at the posterior-mean coefficients.
	Predict(x *mat.Dense) ([]float64, error)
}

var _ PosteriorRegressor = (*Regressor)(nil)

// Regressor is the errors-in-variables linear regression.
//
// A Regressor keeps the trace of its last fit. It is not safe for concurrent fits.
type Regressor struct {
	cfg   *regressorConfig
	point LinearRegression
	model *model.Model
	trace *trace.Trace
}

// New creates an unfitted regressor.
//
// Returns:
//   - *Regressor: the regressor
//   - error: if an option is invalid
func New(opts ...Option) (*Regressor, error) {
	cfg := defaultRegressorConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Regressor{cfg: cfg}, nil
}

// Fit samples the posterior of the model built from ds.
//
// The sampler configuration is built fresh for every call from sampler.DefaultConfig,
// the regressor's logger, the options given to New via WithSamplerOptions, and opts, in
// that order. sampler.WithConfig replaces the earlier settings but keeps the regressor's
// logger unless its Config carries one.
//
// Parameters:
//   - ctx: cancels sampling
//   - ds: observations and measurement errors
//   - opts: sampler options for this fit
//
// Returns:
//   - *Regressor: the receiver
//   - error: input validation errors before any sampling; a *sampler.SamplingError when
//     diagnostics fail, in which case the trace is still stored on the receiver
func (r *Regressor) Fit(ctx context.Context, ds Dataset, opts ...sampler.Option) (*Regressor, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	samplerOpts := make([]sampler.Option, 0, 1+len(r.cfg.samplerOptions)+len(opts))
	samplerOpts = append(samplerOpts, sampler.WithLogger(r.cfg.logger))
	samplerOpts = append(samplerOpts, r.cfg.samplerOptions...)
	samplerOpts = append(samplerOpts, opts...)
	cfg, err := sampler.NewConfig(samplerOpts...)
	if err != nil {
		return nil, err
	}

	m, err := BuildModel(ds)
	if err != nil {
		return nil, err
	}
	compiled, err := m.Compile(r.cfg.compileOptions...)
	if err != nil {
		return nil, err
	}

	d, n := ds.Dims()
	logger := r.cfg.logger
	if logger.Enabled(ctx, slog.LevelDebug) {
		var ols LinearRegression
		if err := ols.FitWeighted(ds.X, ds.Y, ds.YErr); err == nil {
			logger.Debug("least-squares reference", "fit", ols.String())
		}
	}

	logger.Info("fitting errors-in-variables regression",
		"covariates", d, "observations", n, "parameters", compiled.Dim(),
		"collapsed", compiled.Collapsed(), "chains", cfg.Chains, "draws", cfg.Draws, "tune", cfg.Tune)

	start := time.Now()
	tr, sampleErr := sampler.Sample(ctx, compiled, cfg)
	if tr == nil {
		return nil, sampleErr
	}

	point, err := pointFrom(tr)
	if err != nil {
		return nil, err
	}
	r.model = m
	r.trace = tr
	r.point = point

	slope, intercept, _ := r.Coefficients()
	logger.Info("fit complete",
		"run_id", tr.ID, "elapsed", time.Since(start), "slope", slope, "intercept", intercept,
		"divergences", tr.Divergences(), "mean_accept", tr.MeanAccept())

	var samplingErr *sampler.SamplingError
	if errors.As(sampleErr, &samplingErr) {
		logger.Warn("posterior may be unreliable", "run_id", tr.ID, "warnings", len(samplingErr.Warnings))
	}

	return r, sampleErr
}

// pointFrom composes the point estimate from the posterior means in tr.
func pointFrom(tr *trace.Trace) (LinearRegression, error) {
	var point LinearRegression
	slope, ok := tr.Variable(VarSlope)
	if !ok {
		return point, fmt.Errorf("%w: trace has no %s", errs.ErrUnknownVariable, VarSlope)
	}
	intercept, ok := tr.Variable(VarIntercept)
	if !ok {
		return point, fmt.Errorf("%w: trace has no %s", errs.ErrUnknownVariable, VarIntercept)
	}

	coeffs := append([]float64{intercept.Mean().Data[0]}, slope.Mean().Data...)
	if err := point.SetCoefficients(coeffs); err != nil {
		return LinearRegression{}, err
	}

	return point, nil
}

// Trace returns the posterior trace of the last fit, or nil before a fit.
func (r *Regressor) Trace() *trace.Trace {
	return r.trace
}

// Model returns the model declared by the last fit, or nil before a fit or after a restore.
func (r *Regressor) Model() *model.Model {
	return r.model
}

// Coefficients returns the posterior-mean slope and intercept.
func (r *Regressor) Coefficients() (slope []float64, intercept float64, err error) {
	if r.trace == nil {
		return nil, 0, errs.ErrNotFitted
	}

	return r.point.Slope(), r.point.Intercept(), nil
}

// Predict evaluates the posterior-mean relation at covariates x (D×N).
func (r *Regressor) Predict(x *mat.Dense) ([]float64, error) {
	if r.trace == nil {
		return nil, errs.ErrNotFitted
	}

	return r.point.Predict(x)
}

// Summary summarizes the population and regression parameters of the last fit.
// The per-observation latents ksi and eta are left out; use Trace().Summary for them.
func (r *Regressor) Summary() (trace.Summary, error) {
	if r.trace == nil {
		return nil, errs.ErrNotFitted
	}

	return r.trace.Summary(VarSlope, VarIntercept, VarIntStd, VarTau, VarMu), nil
}

// SnapshotTrace encodes the trace of the last fit.
//
// Parameters:
//   - opts: archive encoding and compression options
//
// Returns:
//   - []byte: the snapshot, restorable with RestoreTrace
//   - error: errs.ErrNotFitted before a fit, or an encoding error
func (r *Regressor) SnapshotTrace(opts ...archive.Option) ([]byte, error) {
	if r.trace == nil {
		return nil, errs.ErrNotFitted
	}

	return archive.Encode(r.trace, opts...)
}

// RestoreTrace replaces the fit state with a snapshot taken by SnapshotTrace.
// After a restore Predict and Coefficients use the restored posterior means.
func (r *Regressor) RestoreTrace(data []byte) error {
	tr, err := archive.Decode(data)
	if err != nil {
		return err
	}

	point, err := pointFrom(tr)
	if err != nil {
		return err
	}
	r.trace = tr
	r.point = point
	r.model = nil
	r.cfg.logger.Debug("trace restored", "run_id", tr.ID, "chains", tr.Chains, "draws", tr.Draws,
		slog.Int("variables", len(tr.Variables())))

	return nil
}
