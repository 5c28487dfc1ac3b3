package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/tensor"
)

// Expr is a differentiable expression used as a distribution parameter.
type Expr interface {
	fmt.Stringer

	// shape infers the result shape against the variables declared so far.
	shape(m *Model) (tensor.Shape, error)
	// refs appends the names of referenced variables to dst.
	refs(dst []string) []string
	eval(e *env) tensor.Tensor
	// backward propagates the adjoint of the result to referenced variables.
	backward(e *env, adj tensor.Tensor)
}

// env carries variable values and gradient accumulators for one evaluation.
type env struct {
	values map[string]tensor.Tensor
	grads  map[string]tensor.Tensor // nil when no gradient is wanted
}

func (e *env) wantGrad() bool {
	return e.grads != nil
}

// Const returns a constant expression.
func Const(t tensor.Tensor) Expr {
	return constExpr{t: t}
}

type constExpr struct {
	t tensor.Tensor
}

func (c constExpr) String() string {
	if c.t.Size() == 1 {
		return fmt.Sprintf("%g", c.t.Data[0])
	}

	return "const" + c.t.Shape.String()
}

func (c constExpr) shape(*Model) (tensor.Shape, error) { return c.t.Shape, nil }
func (c constExpr) refs(dst []string) []string         { return dst }
func (c constExpr) eval(*env) tensor.Tensor            { return c.t }
func (c constExpr) backward(*env, tensor.Tensor)       {}

// Ref refers to a declared variable by name.
func Ref(name string) Expr {
	return refExpr{name: name}
}

type refExpr struct {
	name string
}

func (r refExpr) String() string { return r.name }

func (r refExpr) shape(m *Model) (tensor.Shape, error) {
	v, ok := m.Variable(r.name)
	if !ok {
		return nil, fmt.Errorf("reference to undeclared variable %q", r.name)
	}

	return v.Shape, nil
}

func (r refExpr) refs(dst []string) []string { return append(dst, r.name) }

func (r refExpr) eval(e *env) tensor.Tensor {
	v, ok := e.values[r.name]
	if !ok {
		panic(fmt.Sprintf("model: no value for %q", r.name))
	}

	return v
}

func (r refExpr) backward(e *env, adj tensor.Tensor) {
	if g, ok := e.grads[r.name]; ok {
		g.AddInPlace(adj)
	}
}

// T transposes a rank-2 expression. Lower ranks pass through.
func T(x Expr) Expr {
	return transposeExpr{x: x}
}

type transposeExpr struct {
	x Expr
}

func (t transposeExpr) String() string { return "T(" + t.x.String() + ")" }

func (t transposeExpr) shape(m *Model) (tensor.Shape, error) {
	s, err := t.x.shape(m)
	if err != nil {
		return nil, err
	}

	return s.Transpose(), nil
}

func (t transposeExpr) refs(dst []string) []string { return t.x.refs(dst) }
func (t transposeExpr) eval(e *env) tensor.Tensor  { return t.x.eval(e).Transpose2D() }

func (t transposeExpr) backward(e *env, adj tensor.Tensor) {
	t.x.backward(e, adj.Transpose2D())
}

// MatVec multiplies an (N, D) matrix expression by a length-D vector expression.
func MatVec(a, v Expr) Expr {
	return matVecExpr{a: a, v: v}
}

type matVecExpr struct {
	a, v Expr
}

func (mv matVecExpr) String() string {
	return "matvec(" + mv.a.String() + ", " + mv.v.String() + ")"
}

func (mv matVecExpr) shape(m *Model) (tensor.Shape, error) {
	as, err := mv.a.shape(m)
	if err != nil {
		return nil, err
	}
	vs, err := mv.v.shape(m)
	if err != nil {
		return nil, err
	}
	if as.Rank() != 2 || vs.Rank() != 1 || as[1] != vs[0] {
		return nil, fmt.Errorf("matvec needs (N, D) x (D), got %s x %s", as, vs)
	}

	return tensor.Shape{as[0]}, nil
}

func (mv matVecExpr) refs(dst []string) []string {
	return mv.v.refs(mv.a.refs(dst))
}

func (mv matVecExpr) eval(e *env) tensor.Tensor {
	a := mv.a.eval(e)
	v := mv.v.eval(e)

	out := tensor.Zeros(tensor.Shape{a.Shape[0]})
	var res mat.VecDense
	res.MulVec(a.Dense(), mat.NewVecDense(v.Size(), v.Data))
	copy(out.Data, res.RawVector().Data)

	return out
}

func (mv matVecExpr) backward(e *env, adj tensor.Tensor) {
	a := mv.a.eval(e)
	v := mv.v.eval(e)
	n, d := a.Shape[0], a.Shape[1]
	adjVec := mat.NewVecDense(n, adj.Data)

	// d(Av)/dA = adj ⊗ v
	var outer mat.Dense
	outer.Outer(1, adjVec, mat.NewVecDense(d, v.Data))
	mv.a.backward(e, tensor.FromDense(&outer))

	// d(Av)/dv = Aᵀ adj
	gv := tensor.Zeros(v.Shape)
	var res mat.VecDense
	res.MulVec(a.Dense().T(), adjVec)
	copy(gv.Data, res.RawVector().Data)
	mv.v.backward(e, gv)
}

// Add adds two expressions with broadcasting.
func Add(a, b Expr) Expr {
	return addExpr{a: a, b: b}
}

type addExpr struct {
	a, b Expr
}

func (ad addExpr) String() string {
	return ad.a.String() + " + " + ad.b.String()
}

func (ad addExpr) shape(m *Model) (tensor.Shape, error) {
	return binaryShape(m, ad.a, ad.b)
}

func (ad addExpr) refs(dst []string) []string {
	return ad.b.refs(ad.a.refs(dst))
}

func (ad addExpr) eval(e *env) tensor.Tensor {
	a, b, out := broadcastPair(ad.a.eval(e), ad.b.eval(e))
	for i := range out.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}

	return out
}

func (ad addExpr) backward(e *env, adj tensor.Tensor) {
	ad.a.backward(e, adj.ReduceTo(ad.a.eval(e).Shape))
	ad.b.backward(e, adj.ReduceTo(ad.b.eval(e).Shape))
}

// Hypot is the elementwise sqrt(a² + b²) with broadcasting. It combines the
// standard deviations of independent Normal terms.
func Hypot(a, b Expr) Expr {
	return hypotExpr{a: a, b: b}
}

type hypotExpr struct {
	a, b Expr
}

func (h hypotExpr) String() string {
	return "hypot(" + h.a.String() + ", " + h.b.String() + ")"
}

func (h hypotExpr) shape(m *Model) (tensor.Shape, error) {
	return binaryShape(m, h.a, h.b)
}

func (h hypotExpr) refs(dst []string) []string {
	return h.b.refs(h.a.refs(dst))
}

func (h hypotExpr) eval(e *env) tensor.Tensor {
	a, b, out := broadcastPair(h.a.eval(e), h.b.eval(e))
	for i := range out.Data {
		out.Data[i] = math.Hypot(a.Data[i], b.Data[i])
	}

	return out
}

func (h hypotExpr) backward(e *env, adj tensor.Tensor) {
	ra, rb := h.a.eval(e), h.b.eval(e)
	a, b, out := broadcastPair(ra, rb)
	ga := tensor.Zeros(out.Shape)
	gb := tensor.Zeros(out.Shape)
	for i := range out.Data {
		r := math.Hypot(a.Data[i], b.Data[i])
		if r == 0 {
			continue
		}
		ga.Data[i] = adj.Data[i] * a.Data[i] / r
		gb.Data[i] = adj.Data[i] * b.Data[i] / r
	}
	h.a.backward(e, ga.ReduceTo(ra.Shape))
	h.b.backward(e, gb.ReduceTo(rb.Shape))
}

func binaryShape(m *Model, a, b Expr) (tensor.Shape, error) {
	as, err := a.shape(m)
	if err != nil {
		return nil, err
	}
	bs, err := b.shape(m)
	if err != nil {
		return nil, err
	}

	return tensor.BroadcastShapes(as, bs)
}

// broadcastPair expands a and b to their common shape and returns an output buffer of that shape.
func broadcastPair(a, b tensor.Tensor) (tensor.Tensor, tensor.Tensor, tensor.Tensor) {
	shape, err := tensor.BroadcastShapes(a.Shape, b.Shape)
	if err != nil {
		panic("model: " + err.Error()) // shapes are checked at declaration
	}
	ea, _ := a.BroadcastTo(shape)
	eb, _ := b.BroadcastTo(shape)

	return ea, eb, tensor.Zeros(shape)
}
