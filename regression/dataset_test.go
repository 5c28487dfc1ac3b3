package regression

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/errs"
)

// TestNewDataset1D tests promotion of a single covariate to a 1xN matrix.
func TestNewDataset1D(t *testing.T) {
	x := []float64{1, 2, 3}
	ds, err := NewDataset1D(x, []float64{0.1, 0.1, 0.1}, []float64{2, 4, 6}, []float64{0.2, 0.2, 0.2})
	if err != nil {
		t.Fatalf("NewDataset1D failed: %v", err)
	}

	d, n := ds.Dims()
	if d != 1 || n != 3 {
		t.Fatalf("Expected dims (1, 3), got (%d, %d)", d, n)
	}

	x[0] = 100
	if ds.X.At(0, 0) != 1 {
		t.Errorf("Dataset shares memory with its input: X[0,0] = %g", ds.X.At(0, 0))
	}
}

// TestDataset_Validate tests every rejected input with its sentinel error.
func TestDataset_Validate(t *testing.T) {
	ones := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = 1
		}
		return v
	}

	tests := []struct {
		name string
		x    *mat.Dense
		xErr *mat.Dense
		y    []float64
		yErr []float64
		want error
	}{
		{
			name: "y shorter than x",
			x:    mat.NewDense(2, 10, nil),
			xErr: mat.NewDense(2, 10, nil),
			y:    ones(9),
			yErr: ones(9),
			want: errs.ErrShapeMismatch,
		},
		{
			name: "x_error rows differ",
			x:    mat.NewDense(2, 3, nil),
			xErr: mat.NewDense(1, 3, nil),
			y:    ones(3),
			yErr: ones(3),
			want: errs.ErrShapeMismatch,
		},
		{
			name: "y_error length differs",
			x:    mat.NewDense(1, 3, nil),
			xErr: mat.NewDense(1, 3, nil),
			y:    ones(3),
			yErr: ones(2),
			want: errs.ErrShapeMismatch,
		},
		{
			name: "negative x_error",
			x:    mat.NewDense(1, 3, nil),
			xErr: mat.NewDense(1, 3, []float64{0.1, -0.1, 0.1}),
			y:    ones(3),
			yErr: ones(3),
			want: errs.ErrNegativeError,
		},
		{
			name: "negative y_error",
			x:    mat.NewDense(1, 3, nil),
			xErr: mat.NewDense(1, 3, nil),
			y:    ones(3),
			yErr: []float64{1, 1, -1},
			want: errs.ErrNegativeError,
		},
		{
			name: "non-finite y",
			x:    mat.NewDense(1, 3, nil),
			xErr: mat.NewDense(1, 3, nil),
			y:    []float64{1, math.NaN(), 1},
			yErr: ones(3),
			want: errs.ErrInvalidInput,
		},
		{
			name: "infinite x_error",
			x:    mat.NewDense(1, 3, nil),
			xErr: mat.NewDense(1, 3, []float64{0, math.Inf(1), 0}),
			y:    ones(3),
			yErr: ones(3),
			want: errs.ErrInvalidInput,
		},
		{
			name: "single observation",
			x:    mat.NewDense(1, 1, nil),
			xErr: mat.NewDense(1, 1, nil),
			y:    ones(1),
			yErr: ones(1),
			want: errs.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset(tt.x, tt.xErr, tt.y, tt.yErr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestDataset_ZeroErrors tests that zero errors mean noiseless and are accepted.
func TestDataset_ZeroErrors(t *testing.T) {
	_, err := NewDataset1D([]float64{1, 2}, []float64{0, 0}, []float64{1, 2}, []float64{0, 0})
	if err != nil {
		t.Fatalf("Zero errors should be valid, got %v", err)
	}
}

// TestNewDataset1D_Empty tests the empty covariate guard.
func TestNewDataset1D_Empty(t *testing.T) {
	_, err := NewDataset1D(nil, nil, nil, nil)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
}
