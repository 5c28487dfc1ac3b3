package tensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Shape lists the dimensions of a tensor. The empty shape is a scalar.
type Shape []int

// Size returns the number of elements; a scalar has size 1.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}

	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Equal reports whether both shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	return slices.Equal(s, o)
}

// Clone returns a copy of s.
func (s Shape) Clone() Shape {
	if s == nil {
		return Shape{}
	}

	return slices.Clone(s)
}

// Transpose returns the reversed shape.
func (s Shape) Transpose() Shape {
	out := s.Clone()
	slices.Reverse(out)

	return out
}

// Valid reports whether every dimension is positive.
func (s Shape) Valid() bool {
	for _, d := range s {
		if d <= 0 {
			return false
		}
	}

	return true
}

// String renders the shape as "(5, 1)"; scalars render as "()".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// strides returns row-major strides for s.
func (s Shape) strides() []int {
	st := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= s[i]
	}

	return st
}

// BroadcastShapes returns the shape that a and b broadcast to under numpy rules:
// trailing dimensions are aligned and each pair must be equal or contain a 1.
func BroadcastShapes(a, b Shape) (Shape, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	for i := range n {
		da, db := 1, 1
		if j := len(a) - n + i; j >= 0 {
			da = a[j]
		}
		if j := len(b) - n + i; j >= 0 {
			db = b[j]
		}

		switch {
		case da == db:
			out[i] = da
		case da == 1:
			out[i] = db
		case db == 1:
			out[i] = da
		default:
			return nil, fmt.Errorf("shapes %s and %s are not broadcastable", a, b)
		}
	}

	return out, nil
}

// BroadcastableTo reports whether s broadcasts to target without changing target.
func (s Shape) BroadcastableTo(target Shape) bool {
	out, err := BroadcastShapes(s, target)
	return err == nil && out.Equal(target)
}

// BroadcastIndex maps every flat index of target to the flat index of src that supplies
// it under broadcasting. src must be broadcastable to target.
func BroadcastIndex(src, target Shape) []int {
	idx := make([]int, target.Size())
	if src.Size() == 1 {
		return idx
	}
	if src.Equal(target) {
		for i := range idx {
			idx[i] = i
		}

		return idx
	}

	srcStrides := src.strides()
	offset := len(target) - len(src)
	coord := make([]int, len(target))
	for flat := range idx {
		rem := flat
		for d := len(target) - 1; d >= 0; d-- {
			coord[d] = rem % target[d]
			rem /= target[d]
		}

		j := 0
		for d := range src {
			if src[d] != 1 {
				j += coord[d+offset] * srcStrides[d]
			}
		}
		idx[flat] = j
	}

	return idx
}
