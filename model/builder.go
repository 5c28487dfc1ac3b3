package model

import (
	"fmt"
	"math"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/internal/options"
	"github.com/arloliu/linmix/tensor"
)

// Variable is a named random variable of a Model.
type Variable struct {
	Name  string
	Dist  Dist
	Shape tensor.Shape

	// Observed holds the data of an observed variable, nil for latent ones.
	Observed *tensor.Tensor
	// Init is an explicit starting value. Elements without one are jittered by the sampler.
	Init *tensor.Tensor
	// Pinned marks elements fixed to PinnedValues instead of being sampled.
	Pinned       []bool
	PinnedValues []float64
}

// IsObserved reports whether the variable carries data.
func (v *Variable) IsObserved() bool {
	return v.Observed != nil
}

// PinnedCount returns the number of pinned elements.
func (v *Variable) PinnedCount() int {
	n := 0
	for _, p := range v.Pinned {
		if p {
			n++
		}
	}

	return n
}

// VarOption configures a variable at declaration.
type VarOption = options.Option[*Variable]

// Observed attaches data to the variable, making it part of the likelihood.
func Observed(data tensor.Tensor) VarOption {
	return options.NoError(func(v *Variable) {
		d := data.Clone()
		v.Observed = &d
	})
}

// InitialValue sets the starting value of a latent variable.
func InitialValue(t tensor.Tensor) VarOption {
	return options.NoError(func(v *Variable) {
		c := t.Clone()
		v.Init = &c
	})
}

// Pinned fixes the elements selected by mask to the matching elements of values.
// Pinned elements take no part in sampling but still appear in every draw.
func Pinned(mask []bool, values tensor.Tensor) VarOption {
	return options.New(func(v *Variable) error {
		if len(mask) != len(values.Data) {
			return fmt.Errorf("pin mask has %d elements, values have %d", len(mask), len(values.Data))
		}
		v.Pinned = append([]bool(nil), mask...)
		v.PinnedValues = append([]float64(nil), values.Data...)

		return nil
	})
}

// Model is an ordered set of named random variables.
type Model struct {
	vars  []*Variable
	index map[string]int
	err   error
}

// New returns an empty model.
func New() *Model {
	return &Model{index: make(map[string]int)}
}

// Flat declares a variable with an improper uniform prior over the reals.
func (m *Model) Flat(name string, shape tensor.Shape, opts ...VarOption) Expr {
	return m.Declare(name, Flat(), shape, opts...)
}

// HalfFlat declares a variable with an improper uniform prior over the positive reals.
func (m *Model) HalfFlat(name string, shape tensor.Shape, opts ...VarOption) Expr {
	return m.Declare(name, HalfFlat(), shape, opts...)
}

// Normal declares a Normal variable with mean mu and standard deviation sigma.
func (m *Model) Normal(name string, mu, sigma Expr, shape tensor.Shape, opts ...VarOption) Expr {
	return m.Declare(name, Normal(mu, sigma), shape, opts...)
}

// Declare adds a variable and returns a reference to it.
//
// Parameters:
//   - name: unique variable name
//   - dist: distribution whose parameters may only reference earlier variables
//   - shape: variable shape; parameter shapes must broadcast to it
//   - opts: observed data, initial value, pinned elements
//
// Returns:
//   - Expr: a reference usable in later declarations, returned even on error
//
// The first declaration error is kept and reported by Err and Compile; later
// declarations are ignored once the model is in error.
func (m *Model) Declare(name string, dist Dist, shape tensor.Shape, opts ...VarOption) Expr {
	ref := Ref(name)
	if m.err != nil {
		return ref
	}

	v := &Variable{Name: name, Dist: dist, Shape: shape.Clone()}
	if err := options.Apply(v, opts...); err != nil {
		m.err = fmt.Errorf("%w: variable %q: %w", errs.ErrInvalidModel, name, err)
		return ref
	}
	if err := m.check(v); err != nil {
		m.err = fmt.Errorf("%w: variable %q: %w", errs.ErrInvalidModel, name, err)
		return ref
	}

	m.index[name] = len(m.vars)
	m.vars = append(m.vars, v)

	return ref
}

func (m *Model) check(v *Variable) error {
	if v.Name == "" {
		return fmt.Errorf("empty name")
	}
	if _, dup := m.index[v.Name]; dup {
		return fmt.Errorf("duplicate name")
	}
	if v.Dist == nil {
		return fmt.Errorf("nil distribution")
	}
	if !v.Shape.Valid() {
		return fmt.Errorf("invalid shape %s", v.Shape)
	}

	for _, p := range v.Dist.Params() {
		ps, err := p.shape(m)
		if err != nil {
			return err
		}
		if !ps.BroadcastableTo(v.Shape) {
			return fmt.Errorf("parameter %s of shape %s does not broadcast to %s", p, ps, v.Shape)
		}
	}

	positive := v.Dist.Support() == SupportPositive
	if v.Observed != nil {
		if v.Dist.Params() == nil {
			return fmt.Errorf("improper %s prior cannot be observed", v.Dist.Family())
		}
		if !v.Observed.Shape.Equal(v.Shape) {
			return fmt.Errorf("observed shape %s, declared %s", v.Observed.Shape, v.Shape)
		}
		if !allFinite(v.Observed.Data) {
			return fmt.Errorf("observed data is not finite")
		}
		if v.Init != nil || v.Pinned != nil {
			return fmt.Errorf("observed variable cannot have an initial value or pins")
		}
	}

	if v.Init != nil {
		if !v.Init.Shape.Equal(v.Shape) {
			return fmt.Errorf("initial value shape %s, declared %s", v.Init.Shape, v.Shape)
		}
		if !inSupport(v.Init.Data, positive) {
			return fmt.Errorf("initial value outside the support of %s", v.Dist.Family())
		}
	}

	if v.Pinned != nil {
		if len(v.Pinned) != v.Shape.Size() {
			return fmt.Errorf("pin mask has %d elements, shape %s has %d", len(v.Pinned), v.Shape, v.Shape.Size())
		}
		for i, p := range v.Pinned {
			if p && !inSupport(v.PinnedValues[i:i+1], positive) {
				return fmt.Errorf("pinned value %g outside the support of %s", v.PinnedValues[i], v.Dist.Family())
			}
		}
	}

	return nil
}

func allFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func inSupport(data []float64, positive bool) bool {
	if !allFinite(data) {
		return false
	}
	if positive {
		for _, v := range data {
			if v <= 0 {
				return false
			}
		}
	}

	return true
}

// Err returns the first declaration error, if any.
func (m *Model) Err() error {
	return m.err
}

// Variable looks up a declared variable.
func (m *Model) Variable(name string) (*Variable, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}

	return m.vars[i], true
}

// Variables returns all variables in declaration order.
func (m *Model) Variables() []*Variable {
	return append([]*Variable(nil), m.vars...)
}

// Latent returns the unobserved variables in declaration order.
func (m *Model) Latent() []*Variable {
	var out []*Variable
	for _, v := range m.vars {
		if !v.IsObserved() {
			out = append(out, v)
		}
	}

	return out
}
