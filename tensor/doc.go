// Package tensor provides the small array layer the model graph is built on.
//
// A Tensor is a row-major []float64 with a Shape. Only the operations the regression
// model needs are implemented: at-least-2D promotion, 2-D transpose, numpy-style
// broadcasting of trailing dimensions, and conversion to and from gonum matrices.
//
//	x := tensor.AtLeast2D([]float64{1, 2, 3}) // *mat.Dense, 1x3
//	t := tensor.FromDense(x).Transpose2D()    // shape (3, 1)
package tensor
