package sampler

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/tensor"
	"github.com/arloliu/linmix/trace"
)

// gaussTarget is an independent normal density with the given means and deviations.
type gaussTarget struct {
	mu, sigma []float64
	broken    bool
}

func (g gaussTarget) Dim() int { return len(g.mu) }

func (g gaussTarget) LogDensity(theta, grad []float64) float64 {
	if g.broken {
		return math.Inf(-1)
	}

	lp := 0.0
	for i, x := range theta {
		z := (x - g.mu[i]) / g.sigma[i]
		lp -= z * z / 2
		if grad != nil {
			grad[i] = -z / g.sigma[i]
		}
	}

	return lp
}

func (g gaussTarget) InitialPoint() ([]float64, []bool) {
	return make([]float64, len(g.mu)), make([]bool, len(g.mu))
}

func (g gaussTarget) Outputs() []model.Output {
	return []model.Output{{Name: "x", Shape: tensor.Shape{len(g.mu)}}}
}

func (g gaussTarget) OutputSize() int { return len(g.mu) }

func (g gaussTarget) Draw(theta []float64, _ rand.Source, dst []float64) {
	copy(dst, theta)
}

func quickConfig(t *testing.T, opts ...Option) Config {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithDraws(500), WithTune(500), WithChains(2), WithSeed(11)}, opts...)...)
	require.NoError(t, err)

	return cfg
}

func TestSample_Gaussian(t *testing.T) {
	target := gaussTarget{mu: []float64{1, -2}, sigma: []float64{0.5, 3}}
	tr, err := Sample(context.Background(), target, quickConfig(t))
	require.NoError(t, err)

	x, ok := tr.Variable("x")
	require.True(t, ok)
	require.Equal(t, 1000, x.Len())

	mean := x.Mean()
	std := x.Std()
	assert.InDelta(t, 1, mean.Data[0], 0.1)
	assert.InDelta(t, -2, mean.Data[1], 0.6)
	assert.InDelta(t, 0.5, std.Data[0], 0.1)
	assert.InDelta(t, 3, std.Data[1], 0.6)

	assert.Equal(t, 0, tr.Divergences())
	assert.InDelta(t, 0.9, tr.MeanAccept(), 0.1)

	depth, ok := tr.Stat(trace.StatTreeDepth)
	require.True(t, ok)
	for _, d := range depth.Values() {
		require.GreaterOrEqual(t, d, 1.0)
		require.LessOrEqual(t, d, 10.0)
	}
}

func TestSample_Reproducible(t *testing.T) {
	target := gaussTarget{mu: []float64{0}, sigma: []float64{1}}
	cfg := quickConfig(t, WithDraws(50), WithTune(50))

	a, errA := Sample(context.Background(), target, cfg)
	b, errB := Sample(context.Background(), target, cfg)
	require.Equal(t, errA == nil, errB == nil)

	xa, _ := a.Variable("x")
	xb, _ := b.Variable("x")
	require.Equal(t, xa.Chains, xb.Chains)
	require.NotEqual(t, a.ID, b.ID)

	c, _ := Sample(context.Background(), target, quickConfig(t, WithDraws(50), WithTune(50), WithSeed(12)))
	xc, _ := c.Variable("x")
	require.NotEqual(t, xa.Chains, xc.Chains)
}

func TestSample_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sample(ctx, gaussTarget{mu: []float64{0}, sigma: []float64{1}}, quickConfig(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSample_NonFiniteStart(t *testing.T) {
	_, err := Sample(context.Background(), gaussTarget{mu: []float64{0}, sigma: []float64{1}, broken: true}, quickConfig(t))
	require.ErrorIs(t, err, errs.ErrNonFiniteInitialLog)
}

func TestSample_InvalidConfig(t *testing.T) {
	_, err := Sample(context.Background(), gaussTarget{mu: []float64{0}, sigma: []float64{1}}, Config{})
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestSample_CompiledModel(t *testing.T) {
	m := model.New()
	mu := m.Flat("mu", tensor.Shape{})
	sigma := m.HalfFlat("sigma", tensor.Shape{})
	m.Normal("y", mu, sigma, tensor.Shape{6}, model.Observed(tensor.Vector([]float64{4.8, 5.1, 5.3, 4.9, 5.0, 4.7})))
	compiled, err := m.Compile()
	require.NoError(t, err)

	tr, err := Sample(context.Background(), compiled, quickConfig(t, WithDraws(1000), WithTune(1000)))
	var serr *SamplingError
	if err != nil {
		require.ErrorAs(t, err, &serr)
	}

	muDraws, ok := tr.Variable("mu")
	require.True(t, ok)
	assert.InDelta(t, 4.97, muDraws.Mean().Data[0], 0.15)

	sigmaDraws, _ := tr.Variable("sigma")
	for _, v := range sigmaDraws.Pooled(0) {
		require.Greater(t, v, 0.0)
	}
}

func fakeTrace(t *testing.T, accept float64, divergent bool, shift float64) *trace.Trace {
	t.Helper()

	tr := trace.New(2, 100, 0)
	x, err := tr.AddVariable("x", tensor.Shape{})
	require.NoError(t, err)
	acc, err := tr.AddStat(trace.StatAccept)
	require.NoError(t, err)
	div, err := tr.AddStat(trace.StatDiverging)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for c := range 2 {
		for i := range 100 {
			x.Set(c, i, []float64{rng.NormFloat64() + shift*float64(c)})
			acc.Set(c, i, []float64{accept})
		}
	}
	if divergent {
		div.Set(1, 3, []float64{1})
	}

	return tr
}

func TestCheck(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	require.Empty(t, Check(fakeTrace(t, 0.9, false, 0), cfg))

	warnings := Check(fakeTrace(t, 0.6, true, 5), cfg)
	require.Len(t, warnings, 4)
	serr := &SamplingError{Warnings: warnings}

	var err2 error = serr
	require.ErrorIs(t, err2, errs.ErrSamplingFailure)
	require.ErrorIs(t, err2, errs.ErrDivergence)
	require.ErrorIs(t, err2, errs.ErrAcceptanceMismatch)
	require.ErrorIs(t, err2, errs.ErrPoorMixing)
	require.Contains(t, err2.Error(), "1 divergent transitions")

	var target *SamplingError
	require.True(t, errors.As(err2, &target))
}

func TestStepSizeAdapter(t *testing.T) {
	a := newStepSizeAdapter(1, 0.8)
	for range 50 {
		a.update(0.2)
	}
	require.Less(t, a.final(), 1.0)

	b := newStepSizeAdapter(1, 0.8)
	for range 50 {
		b.update(1)
	}
	require.Greater(t, b.final(), 1.0)

	require.InDelta(t, 0.5, newStepSizeAdapter(0.5, 0.8).final(), 1e-12)
}

func TestMassAdapter_Windows(t *testing.T) {
	a := newMassAdapter(1, 1000)
	var ends []int
	for i := range 1000 {
		if a.observe(i, []float64{float64(i % 7)}) != nil {
			ends = append(ends, i)
		}
	}
	require.Equal(t, []int{99, 149, 249, 449, 949}, ends)

	short := newMassAdapter(1, 100)
	ends = ends[:0]
	for i := range 100 {
		if short.observe(i, []float64{0}) != nil {
			ends = append(ends, i)
		}
	}
	require.Equal(t, []int{89}, ends)

	none := newMassAdapter(1, 10)
	for i := range 10 {
		require.Nil(t, none.observe(i, []float64{1}))
	}
}

func TestMassAdapter_Regularized(t *testing.T) {
	a := newMassAdapter(2, 1000)
	var got []float64
	for i := 0; got == nil; i++ {
		got = a.observe(i, []float64{3, float64(i % 2)})
	}

	// 25 draws from iterations 75..99: a constant column and a 0/1 column with 13 ones
	require.InDelta(t, 1e-3*5/30, got[0], 1e-15)
	variance := 0.52 * 0.48 * 25 / 24
	require.InDelta(t, 25.0/30*variance+1e-3*5/30, got[1], 1e-9)
}

func TestFindReasonableStepSize(t *testing.T) {
	target := gaussTarget{mu: []float64{0, 0}, sigma: []float64{1, 1}}
	src := rand.NewPCG(1, 1)
	s := &nuts{
		logDensity:   target.LogDensity,
		rng:          rand.New(src),
		src:          src,
		invMass:      []float64{1, 1},
		maxTreeDepth: 10,
	}

	q := []float64{0.3, -0.2}
	grad := make([]float64, 2)
	lp := target.LogDensity(q, grad)
	eps := s.findReasonableStepSize(point{q: q, grad: grad, logp: lp}, 1e-4)
	require.Greater(t, eps, 0.05)
	require.Less(t, eps, 10.0)
}
