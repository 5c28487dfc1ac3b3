package regression

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/linmix/model"
	"github.com/arloliu/linmix/tensor"
)

// Names of the model variables. The latent ones appear in the trace in this order.
const (
	VarSlope     = "slope"
	VarIntercept = "intercept"
	VarIntStd    = "int_std"
	VarTau       = "tau"
	VarMu        = "mu"
	VarKsi       = "ksi"
	VarEta       = "eta"
	VarX         = "x"
	VarY         = "y"
)

// LatentVariables lists the variables recorded in a fit trace.
var LatentVariables = []string{VarSlope, VarIntercept, VarIntStd, VarTau, VarMu, VarKsi, VarEta}

// BuildModel declares the errors-in-variables model for ds.
//
// With D covariates and N observations the model is
//
//	slope     ~ Flat                      (D)
//	intercept ~ Flat
//	int_std   ~ HalfFlat
//	tau       ~ HalfFlat                  (D)
//	mu        ~ Normal(0, tau)            (D)
//	ksi       ~ Normal(mu, tau)           (N, D)
//	eta       ~ Normal(ksi·slope + intercept, int_std)   (N)
//	x         ~ Normal(ksiᵀ, x_error)     (D, N) observed
//	y         ~ Normal(eta, y_error)      (N)    observed
//
// tau is the standard deviation of the covariate population for both mu and ksi.
// ksi starts at the observed covariates; elements with zero x_error are pinned there.
// Likewise eta is pinned to y wherever y_error is zero, which keeps the model finite when
// it is compiled without the collapse of eta.
// mu and tau start at the per-covariate sample mean and standard deviation.
//
// Returns:
//   - *model.Model: the declared model, ready to compile
//   - error: a validation error from ds, or errs.ErrInvalidModel
func BuildModel(ds Dataset) (*model.Model, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	d, n := ds.Dims()
	xt := tensor.FromDense(ds.X)
	xErr := tensor.FromDense(ds.XErr)

	// ksi is laid out (N, D): observation rows, covariate columns.
	ksiInit := xt.Transpose2D()
	pins := make([]bool, n*d)
	pinned := 0
	for i := range n {
		for j := range d {
			if ds.XErr.At(j, i) == 0 {
				pins[i*d+j] = true
				pinned++
			}
		}
	}

	muInit, tauInit := populationStart(ds.X)

	m := model.New()
	slope := m.Flat(VarSlope, tensor.Shape{d})
	intercept := m.Flat(VarIntercept, tensor.Shape{})
	intStd := m.HalfFlat(VarIntStd, tensor.Shape{})
	tau := m.HalfFlat(VarTau, tensor.Shape{d}, model.InitialValue(tensor.Vector(tauInit)))
	mu := m.Normal(VarMu, model.Const(tensor.Scalar(0)), tau, tensor.Shape{d},
		model.InitialValue(tensor.Vector(muInit)))

	ksiOpts := []model.VarOption{model.InitialValue(ksiInit)}
	if pinned > 0 {
		ksiOpts = append(ksiOpts, model.Pinned(pins, ksiInit))
	}
	ksi := m.Normal(VarKsi, mu, tau, tensor.Shape{n, d}, ksiOpts...)

	var etaOpts []model.VarOption
	if etaPins, ok := zeroMask(ds.YErr); ok {
		etaOpts = append(etaOpts, model.Pinned(etaPins, tensor.Vector(slices.Clone(ds.Y))))
	}
	eta := m.Normal(VarEta, model.Add(model.MatVec(ksi, slope), intercept), intStd, tensor.Shape{n}, etaOpts...)
	m.Normal(VarX, model.T(ksi), model.Const(xErr), tensor.Shape{d, n}, model.Observed(xt))
	m.Normal(VarY, eta, model.Const(tensor.Vector(slices.Clone(ds.YErr))), tensor.Shape{n},
		model.Observed(tensor.Vector(ds.Y)))

	if err := m.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// populationStart returns per-row means and standard deviations of x. A row with no
// spread gets a unit standard deviation so the start stays inside tau's support.
func populationStart(x *mat.Dense) (mu, sd []float64) {
	d, _ := x.Dims()
	mu = make([]float64, d)
	sd = make([]float64, d)
	for j := range d {
		m, v := stat.PopMeanVariance(x.RawRowView(j), nil)
		mu[j] = m
		sd[j] = math.Sqrt(v)
		if sd[j] == 0 || math.IsNaN(sd[j]) {
			sd[j] = 1
		}
	}

	return mu, sd
}

// zeroMask marks the zero entries of sd and reports whether there are any.
func zeroMask(sd []float64) ([]bool, bool) {
	mask := make([]bool, len(sd))
	found := false
	for i, e := range sd {
		if e == 0 {
			mask[i] = true
			found = true
		}
	}

	return mask, found
}
