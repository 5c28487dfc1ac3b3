package regression

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/tensor"
)

// Dataset holds observations with their measurement errors.
//
// X and XErr are D×N (covariate dimension by observation); Y and YErr have length N.
type Dataset struct {
	X    *mat.Dense
	XErr *mat.Dense
	Y    []float64
	YErr []float64
}

// NewDataset validates and copies the inputs.
//
// Parameters:
//   - x: covariates, D×N
//   - xErr: covariate errors, same shape as x
//   - y: responses, length N
//   - yErr: response errors, length N
//
// Returns:
//   - Dataset: a validated copy
//   - error: errs.ErrShapeMismatch, errs.ErrNegativeError or errs.ErrInvalidInput
func NewDataset(x, xErr *mat.Dense, y, yErr []float64) (Dataset, error) {
	if x == nil || xErr == nil {
		return Dataset{}, fmt.Errorf("%w: nil covariate matrix", errs.ErrInvalidInput)
	}

	ds := Dataset{
		X:    mat.DenseCopyOf(x),
		XErr: mat.DenseCopyOf(xErr),
		Y:    slices.Clone(y),
		YErr: slices.Clone(yErr),
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}

	return ds, nil
}

// NewDataset1D builds a dataset with a single covariate.
func NewDataset1D(x, xErr, y, yErr []float64) (Dataset, error) {
	if len(x) == 0 || len(xErr) == 0 {
		return Dataset{}, fmt.Errorf("%w: empty covariates", errs.ErrInvalidInput)
	}

	return NewDataset(tensor.AtLeast2D(x), tensor.AtLeast2D(xErr), y, yErr)
}

// Dims returns the number of covariates D and observations N.
func (ds Dataset) Dims() (d, n int) {
	if ds.X == nil {
		return 0, 0
	}

	return ds.X.Dims()
}

// Validate checks shapes and error values.
func (ds Dataset) Validate() error {
	if ds.X == nil || ds.XErr == nil {
		return fmt.Errorf("%w: nil covariate matrix", errs.ErrInvalidInput)
	}

	d, n := ds.X.Dims()
	ed, en := ds.XErr.Dims()
	if d != ed || n != en {
		return fmt.Errorf("%w: x is %dx%d, x_error is %dx%d", errs.ErrShapeMismatch, d, n, ed, en)
	}
	if len(ds.Y) != n {
		return fmt.Errorf("%w: x has %d observations, y has %d", errs.ErrShapeMismatch, n, len(ds.Y))
	}
	if len(ds.YErr) != n {
		return fmt.Errorf("%w: y has %d observations, y_error has %d", errs.ErrShapeMismatch, n, len(ds.YErr))
	}
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 observations, got %d", errs.ErrInvalidInput, n)
	}

	if !finiteDense(ds.X) || !finite(ds.Y) {
		return fmt.Errorf("%w: observations must be finite", errs.ErrInvalidInput)
	}
	if !finiteDense(ds.XErr) || !finite(ds.YErr) {
		return fmt.Errorf("%w: measurement errors must be finite", errs.ErrInvalidInput)
	}

	for i := range d {
		for j := range n {
			if v := ds.XErr.At(i, j); v < 0 {
				return fmt.Errorf("%w: x_error[%d, %d] = %g", errs.ErrNegativeError, i, j, v)
			}
		}
	}
	for j, v := range ds.YErr {
		if v < 0 {
			return fmt.Errorf("%w: y_error[%d] = %g", errs.ErrNegativeError, j, v)
		}
	}

	return nil
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func finiteDense(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := range r {
		if !finite(m.RawRowView(i)) {
			return false
		}
	}

	return true
}
