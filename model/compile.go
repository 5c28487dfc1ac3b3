package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/internal/options"
	"github.com/arloliu/linmix/tensor"
)

// CompileOption configures Compile.
type CompileOption = options.Option[*compileConfig]

type compileConfig struct {
	collapse bool
}

// WithoutCollapse keeps every latent Normal in the sampled parameter vector.
func WithoutCollapse() CompileOption {
	return options.NoError(func(c *compileConfig) {
		c.collapse = false
	})
}

// Output describes one variable reported for every posterior draw.
type Output struct {
	Name  string
	Shape tensor.Shape
}

// block maps a latent variable to its slice of the unconstrained vector.
type block struct {
	v        *Variable
	offset   int
	free     []int // element indices sampled, in order
	positive bool
}

// term is one additive piece of the log density.
type term struct {
	v    *Variable
	dist Dist
}

// collapsed is a latent Normal integrated out of an observed Normal's mean.
type collapsed struct {
	latent   *Variable
	observed *Variable
	mu       Expr // prior mean of latent
	sigma    Expr // prior sd of latent
	noise    Expr // sd of observed around latent
}

// Compiled is the differentiable log density of a Model over an unconstrained
// parameter vector. It is immutable and safe for concurrent use.
type Compiled struct {
	model     *Model
	blocks    []block
	terms     []term
	collapsed []collapsed
	outputs   []Output
	dim       int
}

// Compile validates the model and builds its log density.
//
// Returns:
//   - *Compiled: the compiled density
//   - error: errs.ErrInvalidModel if a declaration failed or nothing is left to sample
func (m *Model) Compile(opts ...CompileOption) (*Compiled, error) {
	if m.err != nil {
		return nil, m.err
	}

	cfg := &compileConfig{collapse: true}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	c := &Compiled{model: m}
	skip := make(map[string]*Variable)
	if cfg.collapse {
		for _, cv := range m.collapsible() {
			c.collapsed = append(c.collapsed, cv)
			skip[cv.latent.Name] = cv.observed
		}
	}

	for _, v := range m.vars {
		if !v.IsObserved() {
			c.outputs = append(c.outputs, Output{Name: v.Name, Shape: v.Shape.Clone()})
		}
		if _, ok := skip[v.Name]; ok {
			continue
		}

		if !v.IsObserved() {
			b := block{v: v, offset: c.dim, positive: v.Dist.Support() == SupportPositive}
			for i := range v.Shape.Size() {
				if v.Pinned == nil || !v.Pinned[i] {
					b.free = append(b.free, i)
				}
			}
			c.dim += len(b.free)
			c.blocks = append(c.blocks, b)
		}
		c.terms = append(c.terms, term{v: v, dist: v.Dist})
	}

	// Observed terms of collapsed latents get the marginal distribution.
	for i := range c.terms {
		for _, cv := range c.collapsed {
			if c.terms[i].v == cv.observed {
				c.terms[i].dist = Normal(cv.mu, Hypot(cv.sigma, cv.noise))
			}
		}
	}

	if c.dim == 0 {
		return nil, fmt.Errorf("%w: no free parameters to sample", errs.ErrInvalidModel)
	}

	return c, nil
}

// collapsible finds latent Normals whose only use is the mean of a single observed
// Normal of the same shape.
func (m *Model) collapsible() []collapsed {
	uses := make(map[string]int)
	for _, v := range m.vars {
		for _, p := range v.Dist.Params() {
			for _, name := range p.refs(nil) {
				uses[name]++
			}
		}
	}

	var out []collapsed
	for _, obs := range m.vars {
		if !obs.IsObserved() {
			continue
		}
		on, ok := obs.Dist.(normalDist)
		if !ok {
			continue
		}
		ref, ok := on.mu.(refExpr)
		if !ok || uses[ref.name] != 1 {
			continue
		}
		lat, _ := m.Variable(ref.name)
		ln, ok := lat.Dist.(normalDist)
		if !ok || lat.IsObserved() || !lat.Shape.Equal(obs.Shape) || !pinnedToData(lat, obs, on.sigma) {
			continue
		}
		out = append(out, collapsed{latent: lat, observed: obs, mu: ln.mu, sigma: ln.sigma, noise: on.sigma})
	}

	return out
}

// pinnedToData reports whether every pinned element of lat equals its observation under
// zero constant noise. Such a pin is what Recover produces anyway, so the marginal stays exact.
func pinnedToData(lat, obs *Variable, noise Expr) bool {
	if lat.Pinned == nil {
		return true
	}
	c, ok := noise.(constExpr)
	if !ok {
		return false
	}
	sd, err := c.t.BroadcastTo(lat.Shape)
	if err != nil {
		return false
	}
	for i, p := range lat.Pinned {
		if p && (sd.Data[i] != 0 || lat.PinnedValues[i] != obs.Observed.Data[i]) {
			return false
		}
	}

	return true
}

// Dim returns the length of the unconstrained parameter vector.
func (c *Compiled) Dim() int {
	return c.dim
}

// Outputs returns the latent variables reported per draw, in declaration order.
func (c *Compiled) Outputs() []Output {
	return append([]Output(nil), c.outputs...)
}

// OutputSize returns the total number of elements over all outputs.
func (c *Compiled) OutputSize() int {
	n := 0
	for _, o := range c.outputs {
		n += o.Shape.Size()
	}

	return n
}

// Collapsed returns the names of latent variables integrated out of the density.
func (c *Compiled) Collapsed() []string {
	names := make([]string, 0, len(c.collapsed))
	for _, cv := range c.collapsed {
		names = append(names, cv.latent.Name)
	}

	return names
}

// Model returns the model the density was compiled from.
func (c *Compiled) Model() *Model {
	return c.model
}

// InitialPoint returns the unconstrained starting point and, per coordinate, whether it
// came from an explicit initial value. Coordinates without one start at zero.
func (c *Compiled) InitialPoint() ([]float64, []bool) {
	theta := make([]float64, c.dim)
	explicit := make([]bool, c.dim)
	for _, b := range c.blocks {
		if b.v.Init == nil {
			continue
		}
		for k, idx := range b.free {
			x := b.v.Init.Data[idx]
			if b.positive {
				x = math.Log(x)
			}
			theta[b.offset+k] = x
			explicit[b.offset+k] = true
		}
	}

	return theta, explicit
}

// LogDensity evaluates the unnormalized log posterior at theta, including the
// log-Jacobian of the log transform. When grad is non-nil it receives the gradient
// with respect to theta. It returns -Inf outside the support.
func (c *Compiled) LogDensity(theta, grad []float64) float64 {
	if len(theta) != c.dim {
		panic(fmt.Sprintf("model: theta has %d elements, want %d", len(theta), c.dim))
	}

	e := &env{values: make(map[string]tensor.Tensor, len(c.blocks))}
	if grad != nil {
		e.grads = make(map[string]tensor.Tensor, len(c.blocks))
	}

	lp := 0.0
	for _, b := range c.blocks {
		val := c.constrain(b, theta)
		e.values[b.v.Name] = val
		if grad != nil {
			e.grads[b.v.Name] = tensor.Zeros(b.v.Shape)
		}
		if b.positive {
			for k := range b.free {
				lp += theta[b.offset+k]
			}
		}
	}

	for _, t := range c.terms {
		var x tensor.Tensor
		var gx []float64
		if t.v.IsObserved() {
			x = *t.v.Observed
		} else {
			x = e.values[t.v.Name]
			if grad != nil {
				gx = e.grads[t.v.Name].Data
			}
		}

		l := t.dist.logp(e, x, gx)
		if math.IsNaN(l) || math.IsInf(l, -1) {
			return math.Inf(-1)
		}
		lp += l
	}

	if grad != nil {
		for _, b := range c.blocks {
			g := e.grads[b.v.Name].Data
			val := e.values[b.v.Name].Data
			for k, idx := range b.free {
				if b.positive {
					// chain rule through exp plus the Jacobian term
					grad[b.offset+k] = g[idx]*val[idx] + 1
				} else {
					grad[b.offset+k] = g[idx]
				}
			}
		}
	}

	if math.IsNaN(lp) {
		return math.Inf(-1)
	}

	return lp
}

func (c *Compiled) constrain(b block, theta []float64) tensor.Tensor {
	val := tensor.Zeros(b.v.Shape)
	for i, p := range b.v.Pinned {
		if p {
			val.Data[i] = b.v.PinnedValues[i]
		}
	}
	for k, idx := range b.free {
		u := theta[b.offset+k]
		if b.positive {
			u = math.Exp(u)
		}
		val.Data[idx] = u
	}

	return val
}

// Unpack maps theta to constrained values of the sampled variables.
func (c *Compiled) Unpack(theta []float64) map[string]tensor.Tensor {
	out := make(map[string]tensor.Tensor, len(c.blocks))
	for _, b := range c.blocks {
		out[b.v.Name] = c.constrain(b, theta)
	}

	return out
}

// Draw maps theta to one posterior draw of every output, written to dst in output
// order. Collapsed latents are drawn from their exact conditional using src.
func (c *Compiled) Draw(theta []float64, src rand.Source, dst []float64) {
	values := c.Unpack(theta)
	for name, t := range c.Recover(values, src) {
		values[name] = t
	}

	off := 0
	for _, o := range c.outputs {
		off += copy(dst[off:], values[o.Name].Data)
	}
}

// Recover draws every collapsed latent given the sampled values.
//
// With prior N(m, s1) and observation o ~ N(latent, s2) the conditional is normal with
// precision 1/s1² + 1/s2² and mean (m/s1² + o/s2²)/precision. A zero s2 pins the latent
// to o; a zero s1 pins it to m.
func (c *Compiled) Recover(values map[string]tensor.Tensor, src rand.Source) map[string]tensor.Tensor {
	out := make(map[string]tensor.Tensor, len(c.collapsed))
	e := &env{values: values}
	for _, cv := range c.collapsed {
		shape := cv.latent.Shape
		m := broadcast(cv.mu.eval(e), shape)
		s1 := broadcast(cv.sigma.eval(e), shape)
		s2 := broadcast(cv.noise.eval(e), shape)
		o := cv.observed.Observed

		val := tensor.Zeros(shape)
		for i := range val.Data {
			switch {
			case s2.Data[i] == 0:
				val.Data[i] = o.Data[i]
			case s1.Data[i] == 0:
				val.Data[i] = m.Data[i]
			default:
				p1 := 1 / (s1.Data[i] * s1.Data[i])
				p2 := 1 / (s2.Data[i] * s2.Data[i])
				prec := p1 + p2
				mean := (m.Data[i]*p1 + o.Data[i]*p2) / prec
				val.Data[i] = distuv.Normal{Mu: mean, Sigma: math.Sqrt(1 / prec), Src: src}.Rand()
			}
		}
		out[cv.latent.Name] = val
	}

	return out
}

func broadcast(t tensor.Tensor, shape tensor.Shape) tensor.Tensor {
	out, err := t.BroadcastTo(shape)
	if err != nil {
		panic("model: " + err.Error())
	}

	return out
}
