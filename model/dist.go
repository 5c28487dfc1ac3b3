package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/linmix/tensor"
)

// Support is the set of values a distribution places mass on.
type Support int

const (
	// SupportReal is the whole real line.
	SupportReal Support = iota
	// SupportPositive is (0, +inf). Variables with this support are sampled on the log scale.
	SupportPositive
)

// Dist is a distribution family with its parameter expressions.
type Dist interface {
	fmt.Stringer

	Family() string
	Support() Support
	Params() []Expr

	// logp returns the log density of x. With gradients enabled it adds d/dx into gx
	// (when gx is non-nil) and propagates parameter adjoints through e.
	logp(e *env, x tensor.Tensor, gx []float64) float64
}

// Flat returns the improper uniform prior over the reals.
func Flat() Dist { return flatDist{} }

type flatDist struct{}

func (flatDist) String() string                              { return "Flat()" }
func (flatDist) Family() string                              { return "Flat" }
func (flatDist) Support() Support                            { return SupportReal }
func (flatDist) Params() []Expr                              { return nil }
func (flatDist) logp(*env, tensor.Tensor, []float64) float64 { return 0 }

// HalfFlat returns the improper uniform prior over the positive reals.
func HalfFlat() Dist { return halfFlatDist{} }

type halfFlatDist struct{}

func (halfFlatDist) String() string   { return "HalfFlat()" }
func (halfFlatDist) Family() string   { return "HalfFlat" }
func (halfFlatDist) Support() Support { return SupportPositive }
func (halfFlatDist) Params() []Expr   { return nil }

func (halfFlatDist) logp(_ *env, x tensor.Tensor, _ []float64) float64 {
	for _, v := range x.Data {
		if v < 0 {
			return math.Inf(-1)
		}
	}

	return 0
}

// Normal returns a Normal distribution parameterized by mean and standard deviation.
// Both parameters broadcast to the variable's shape.
//
// A zero standard deviation is a point mass. The log density is 0 at the mean and
// -Inf elsewhere, so noiseless observations pin their latent value instead of
// producing an infinite density.
func Normal(mu, sigma Expr) Dist {
	return normalDist{mu: mu, sigma: sigma}
}

type normalDist struct {
	mu, sigma Expr
}

func (n normalDist) String() string {
	return "Normal(mu=" + n.mu.String() + ", sigma=" + n.sigma.String() + ")"
}

func (normalDist) Family() string   { return "Normal" }
func (normalDist) Support() Support { return SupportReal }
func (n normalDist) Params() []Expr { return []Expr{n.mu, n.sigma} }

func (n normalDist) logp(e *env, x tensor.Tensor, gx []float64) float64 {
	mu := n.mu.eval(e)
	sigma := n.sigma.eval(e)
	mb, err := mu.BroadcastTo(x.Shape)
	if err != nil {
		panic("model: " + err.Error())
	}
	sb, err := sigma.BroadcastTo(x.Shape)
	if err != nil {
		panic("model: " + err.Error())
	}

	grad := e.wantGrad()
	var gm, gs tensor.Tensor
	if grad {
		gm = tensor.Zeros(x.Shape)
		gs = tensor.Zeros(x.Shape)
	}

	lp := 0.0
	for i, xv := range x.Data {
		s := sb.Data[i]
		d := xv - mb.Data[i]
		if !(s >= 0) || math.IsNaN(d) {
			return math.Inf(-1)
		}
		if s == 0 {
			if d != 0 {
				return math.Inf(-1)
			}

			continue
		}

		z := d / s
		lp += distuv.UnitNormal.LogProb(z) - math.Log(s)
		if grad {
			if gx != nil {
				gx[i] -= z / s
			}
			gm.Data[i] = z / s
			gs.Data[i] = (z*z - 1) / s
		}
	}

	if grad {
		n.mu.backward(e, gm.ReduceTo(mu.Shape))
		n.sigma.backward(e, gs.ReduceTo(sigma.Shape))
	}

	return lp
}
