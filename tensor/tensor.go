package tensor

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense row-major array of float64.
type Tensor struct {
	Shape Shape
	Data  []float64
}

// New wraps data with shape. data is not copied.
func New(shape Shape, data []float64) (Tensor, error) {
	if !shape.Valid() {
		return Tensor{}, fmt.Errorf("invalid shape %s", shape)
	}
	if len(data) != shape.Size() {
		return Tensor{}, fmt.Errorf("shape %s needs %d elements, got %d", shape, shape.Size(), len(data))
	}

	return Tensor{Shape: shape.Clone(), Data: data}, nil
}

// Zeros returns a zero tensor of the given shape.
func Zeros(shape Shape) Tensor {
	return Tensor{Shape: shape.Clone(), Data: make([]float64, shape.Size())}
}

// Full returns a tensor of the given shape filled with v.
func Full(shape Shape, v float64) Tensor {
	t := Zeros(shape)
	for i := range t.Data {
		t.Data[i] = v
	}

	return t
}

// Scalar returns a rank-0 tensor.
func Scalar(v float64) Tensor {
	return Tensor{Shape: Shape{}, Data: []float64{v}}
}

// Vector returns a rank-1 tensor that shares v.
func Vector(v []float64) Tensor {
	return Tensor{Shape: Shape{len(v)}, Data: v}
}

// FromDense copies a matrix into a rank-2 tensor.
func FromDense(m mat.Matrix) Tensor {
	r, c := m.Dims()
	t := Zeros(Shape{r, c})
	for i := range r {
		for j := range c {
			t.Data[i*c+j] = m.At(i, j)
		}
	}

	return t
}

// Dense returns a rank-2 tensor as a *mat.Dense that shares its data.
func (t Tensor) Dense() *mat.Dense {
	if t.Shape.Rank() != 2 {
		panic(fmt.Sprintf("tensor: Dense on shape %s", t.Shape))
	}

	return mat.NewDense(t.Shape[0], t.Shape[1], t.Data)
}

// Size returns the number of elements.
func (t Tensor) Size() int {
	return len(t.Data)
}

// Clone returns a deep copy.
func (t Tensor) Clone() Tensor {
	return Tensor{Shape: t.Shape.Clone(), Data: slices.Clone(t.Data)}
}

// At returns the element at the given coordinates.
func (t Tensor) At(coords ...int) float64 {
	if len(coords) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d coordinates for shape %s", len(coords), t.Shape))
	}
	flat := 0
	for d, c := range coords {
		if c < 0 || c >= t.Shape[d] {
			panic(fmt.Sprintf("tensor: coordinate %v out of range for shape %s", coords, t.Shape))
		}
		flat = flat*t.Shape[d] + c
	}

	return t.Data[flat]
}

// Transpose2D returns the transpose of a rank-2 tensor. Lower ranks are returned as copies.
func (t Tensor) Transpose2D() Tensor {
	if t.Shape.Rank() != 2 {
		return t.Clone()
	}

	r, c := t.Shape[0], t.Shape[1]
	out := Zeros(Shape{c, r})
	for i := range r {
		for j := range c {
			out.Data[j*r+i] = t.Data[i*c+j]
		}
	}

	return out
}

// BroadcastTo expands t to target.
func (t Tensor) BroadcastTo(target Shape) (Tensor, error) {
	if !t.Shape.BroadcastableTo(target) {
		return Tensor{}, fmt.Errorf("cannot broadcast %s to %s", t.Shape, target)
	}
	if t.Shape.Equal(target) {
		return t, nil
	}

	out := Zeros(target)
	for i, j := range BroadcastIndex(t.Shape, target) {
		out.Data[i] = t.Data[j]
	}

	return out, nil
}

// ReduceTo sums t over the broadcast dimensions so the result has shape src.
// It is the adjoint of BroadcastTo.
func (t Tensor) ReduceTo(src Shape) Tensor {
	if t.Shape.Equal(src) {
		return t
	}

	out := Zeros(src)
	for i, j := range BroadcastIndex(src, t.Shape) {
		out.Data[j] += t.Data[i]
	}

	return out
}

// AddInPlace adds o, which must have the same size, into t.
func (t Tensor) AddInPlace(o Tensor) {
	floats.Add(t.Data, o.Data)
}

// AtLeast2D promotes a single covariate to a 1xN matrix.
func AtLeast2D(v []float64) *mat.Dense {
	return mat.NewDense(1, len(v), slices.Clone(v))
}

// AsRows stacks equally long rows into a len(rows)xN matrix.
func AsRows(rows ...[]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	n := len(rows[0])
	data := make([]float64, 0, n*len(rows))
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has length %d, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}

	return mat.NewDense(len(rows), n, data), nil
}
