package regression

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/archive"
	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/format"
	"github.com/arloliu/linmix/sampler"
	"github.com/arloliu/linmix/tensor"
	"github.com/arloliu/linmix/trace"
)

func quietRegressor(t *testing.T, opts ...Option) *Regressor {
	t.Helper()

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	reg, err := New(opts...)
	require.NoError(t, err)

	return reg
}

// fit runs a short seeded fit. Diagnostic failures are tolerated; the trace is checked instead.
func fit(t *testing.T, reg *Regressor, ds Dataset, opts ...sampler.Option) *trace.Trace {
	t.Helper()

	base := []sampler.Option{
		sampler.WithChains(2),
		sampler.WithTune(500),
		sampler.WithDraws(500),
		sampler.WithSeed(42),
	}
	got, err := reg.Fit(context.Background(), ds, append(base, opts...)...)
	if err != nil {
		var se *sampler.SamplingError
		require.ErrorAs(t, err, &se)
		require.ErrorIs(t, err, errs.ErrSamplingFailure)
		require.Same(t, reg.Trace(), se.Trace)
		t.Logf("diagnostics: %v", err)
	}
	require.Same(t, reg, got)
	require.NotNil(t, reg.Trace())

	return reg.Trace()
}

func TestRegressor_SingleCovariate(t *testing.T) {
	reg := quietRegressor(t)
	tr := fit(t, reg, exampleDataset(t, 0.1, 0.1))

	slope, intercept, err := reg.Coefficients()
	require.NoError(t, err)
	require.Len(t, slope, 1)
	assert.InDelta(t, 2.0, slope[0], 0.2)
	assert.InDelta(t, 0.0, intercept, 0.6)

	s, _ := tr.Variable(VarSlope)
	assert.InDelta(t, s.Mean().Data[0], slope[0], 1e-12)

	pred, err := reg.Predict(tensor.AtLeast2D([]float64{10}))
	require.NoError(t, err)
	assert.InDelta(t, intercept+10*slope[0], pred[0], 1e-9)

	summary, err := reg.Summary()
	require.NoError(t, err)
	require.Len(t, summary, 5)
	require.Equal(t, "slope[0]", summary[0].Label)
}

func TestRegressor_TraceShapes(t *testing.T) {
	reg := quietRegressor(t)
	tr := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(200), sampler.WithDraws(200))

	n := len(exampleX)
	want := map[string]tensor.Shape{
		VarSlope:     {1},
		VarIntercept: {},
		VarIntStd:    {},
		VarTau:       {1},
		VarMu:        {1},
		VarKsi:       {n, 1},
		VarEta:       {n},
	}

	names := make([]string, 0, len(tr.Variables()))
	for _, v := range tr.Variables() {
		names = append(names, v.Name)
		require.True(t, v.Shape.Equal(want[v.Name]), "%s has shape %s", v.Name, v.Shape)
		require.Equal(t, 2, len(v.Chains))
		require.Equal(t, 200, v.Draws())
	}
	require.Equal(t, LatentVariables, names)

	for _, name := range []string{VarIntStd, VarTau} {
		v, _ := tr.Variable(name)
		for _, x := range v.Values() {
			require.GreaterOrEqual(t, x, 0.0, name)
		}
	}
}

func TestRegressor_NearNoiselessMatchesOLS(t *testing.T) {
	ds := exampleDataset(t, 0.01, 0.01)

	var ols LinearRegression
	require.NoError(t, ols.Fit(ds.X, ds.Y))

	reg := quietRegressor(t)
	fit(t, reg, ds)

	slope, intercept, err := reg.Coefficients()
	require.NoError(t, err)
	assert.InDelta(t, ols.Slope()[0], slope[0], 0.15)
	assert.InDelta(t, ols.Intercept(), intercept, 0.5)
}

func TestRegressor_Reproducible(t *testing.T) {
	ds := exampleDataset(t, 0.1, 0.1)

	a := fit(t, quietRegressor(t), ds, sampler.WithTune(100), sampler.WithDraws(100))
	b := fit(t, quietRegressor(t), ds, sampler.WithTune(100), sampler.WithDraws(100))

	for _, name := range LatentVariables {
		va, _ := a.Variable(name)
		vb, _ := b.Variable(name)
		require.Equal(t, va.Values(), vb.Values(), name)
	}
}

func TestRegressor_ShapeErrorBeforeSampling(t *testing.T) {
	reg := quietRegressor(t)
	ds := exampleDataset(t, 0.1, 0.1)
	ds.Y = ds.Y[:4]

	got, err := reg.Fit(context.Background(), ds)
	require.ErrorIs(t, err, errs.ErrShapeMismatch)
	require.Nil(t, got)
	require.Nil(t, reg.Trace())
}

func TestRegressor_InvalidSamplerConfig(t *testing.T) {
	reg := quietRegressor(t, WithSamplerOptions(sampler.WithDraws(0)))

	_, err := reg.Fit(context.Background(), exampleDataset(t, 0.1, 0.1))
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestRegressor_Canceled(t *testing.T) {
	reg := quietRegressor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Fit(ctx, exampleDataset(t, 0.1, 0.1))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, reg.Trace())
}

func TestRegressor_NotFitted(t *testing.T) {
	reg := quietRegressor(t)

	_, _, err := reg.Coefficients()
	require.ErrorIs(t, err, errs.ErrNotFitted)
	_, err = reg.Predict(tensor.AtLeast2D(exampleX))
	require.ErrorIs(t, err, errs.ErrNotFitted)
	_, err = reg.Summary()
	require.ErrorIs(t, err, errs.ErrNotFitted)
	_, err = reg.SnapshotTrace()
	require.ErrorIs(t, err, errs.ErrNotFitted)
	require.Nil(t, reg.Model())
}

func TestRegressor_SnapshotRoundTrip(t *testing.T) {
	reg := quietRegressor(t)
	tr := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(100), sampler.WithDraws(100))

	data, err := reg.SnapshotTrace(archive.WithCompression(format.CompressionS2))
	require.NoError(t, err)

	restored := quietRegressor(t)
	require.NoError(t, restored.RestoreTrace(data))
	require.Equal(t, tr.ID, restored.Trace().ID)

	wantSlope, wantIntercept, _ := reg.Coefficients()
	slope, intercept, err := restored.Coefficients()
	require.NoError(t, err)
	require.Equal(t, wantSlope, slope)
	require.Equal(t, wantIntercept, intercept)

	for _, name := range LatentVariables {
		want, _ := tr.Variable(name)
		got, ok := restored.Trace().Variable(name)
		require.True(t, ok, name)
		require.Equal(t, want.Values(), got.Values(), name)
	}

	err = restored.RestoreTrace(data[:10])
	require.Error(t, err)
	require.Equal(t, tr.ID, restored.Trace().ID)
}

func TestRegressor_WithoutCollapse(t *testing.T) {
	reg := quietRegressor(t, WithoutCollapse())
	tr := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(200), sampler.WithDraws(200))

	eta, ok := tr.Variable(VarEta)
	require.True(t, ok)
	for _, v := range eta.Values() {
		require.False(t, math.IsNaN(v))
	}
}

func TestRegressor_WithoutCollapseNoiselessResponse(t *testing.T) {
	ds, err := NewDataset1D(exampleX, []float64{0.1, 0.1, 0.1, 0.1, 0.1}, exampleY, []float64{0.1, 0, 0.1, 0.1, 0.1})
	require.NoError(t, err)

	reg := quietRegressor(t, WithoutCollapse())
	tr := fit(t, reg, ds, sampler.WithTune(200), sampler.WithDraws(200))

	eta, ok := tr.Variable(VarEta)
	require.True(t, ok)
	size := eta.Size()
	for _, chain := range eta.Chains {
		for i := range eta.Draws() {
			require.Equal(t, exampleY[1], chain[i*size+1])
		}
	}
}

func TestNew_InvalidOption(t *testing.T) {
	_, err := New(WithLogger(nil))
	require.Error(t, err)
}

func TestRegressor_RestoreRejectsForeignTrace(t *testing.T) {
	tr := trace.New(1, 2, 0)
	_, err := tr.AddVariable("other", tensor.Shape{})
	require.NoError(t, err)
	data, err := archive.Encode(tr)
	require.NoError(t, err)

	reg := quietRegressor(t)
	require.ErrorIs(t, reg.RestoreTrace(data), errs.ErrUnknownVariable)
	require.Nil(t, reg.Trace())
}

func TestRegressor_RefitReplacesTrace(t *testing.T) {
	reg := quietRegressor(t)
	first := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(50), sampler.WithDraws(50))
	second := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(50), sampler.WithDraws(50))

	require.NotSame(t, first, second)
	require.Same(t, second, reg.Trace())
	require.NotNil(t, reg.Model())
}

func TestPointFrom(t *testing.T) {
	tr := trace.New(1, 2, 0)
	intercept, err := tr.AddVariable(VarIntercept, tensor.Shape{})
	require.NoError(t, err)

	_, err = pointFrom(tr)
	require.ErrorIs(t, err, errs.ErrUnknownVariable)

	slope, err := tr.AddVariable(VarSlope, tensor.Shape{1})
	require.NoError(t, err)
	for i := range 2 {
		intercept.Set(0, i, []float64{1})
		slope.Set(0, i, []float64{float64(i + 1)})
	}
	point, err := pointFrom(tr)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 1.5}, point.Coefficients())

	slope.Set(0, 1, []float64{math.NaN()})
	_, err = pointFrom(tr)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestRegressor_FailedRestoreKeepsFit(t *testing.T) {
	reg := quietRegressor(t)
	tr := fit(t, reg, exampleDataset(t, 0.1, 0.1), sampler.WithTune(50), sampler.WithDraws(50))
	wantSlope, wantIntercept, err := reg.Coefficients()
	require.NoError(t, err)

	foreign := trace.New(1, 2, 0)
	_, err = foreign.AddVariable(VarSlope, tensor.Shape{1})
	require.NoError(t, err)
	data, err := archive.Encode(foreign)
	require.NoError(t, err)

	require.ErrorIs(t, reg.RestoreTrace(data), errs.ErrUnknownVariable)
	require.Same(t, tr, reg.Trace())
	require.NotNil(t, reg.Model())
	slope, intercept, err := reg.Coefficients()
	require.NoError(t, err)
	require.Equal(t, wantSlope, slope)
	require.Equal(t, wantIntercept, intercept)
}
