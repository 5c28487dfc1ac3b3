package regression

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/linmix/errs"
)

// PointEstimateRegressor fits a single best estimate of a linear relation.
type PointEstimateRegressor interface {
	// Fit estimates the coefficients from covariates x (D×N) and responses y (N).
	Fit(x *mat.Dense, y []float64) error
	// Predict evaluates the fitted relation at covariates x (D×N).
	Predict(x *mat.Dense) ([]float64, error)
}

var _ PointEstimateRegressor = (*LinearRegression)(nil)

// LinearRegression is a least-squares fit of y = intercept + slope·x.
//
// The zero value is ready to fit. Coefficients are stored as [intercept, slope...].
type LinearRegression struct {
	coeffs []float64
}

// NewLinearRegression creates a regression with known coefficients.
//
// Parameters:
//   - intercept: constant term
//   - slope: one coefficient per covariate, at least one
//
// Returns:
//   - *LinearRegression: the regression, ready to predict
//   - error: if slope is empty or a coefficient is not finite
func NewLinearRegression(intercept float64, slope []float64) (*LinearRegression, error) {
	lr := &LinearRegression{}
	if err := lr.SetCoefficients(append([]float64{intercept}, slope...)); err != nil {
		return nil, err
	}

	return lr, nil
}

// Fit performs an ordinary least-squares fit.
//
// Parameters:
//   - x: covariates, D×N
//   - y: responses, length N
//
// Returns:
//   - error: errs.ErrShapeMismatch on inconsistent shapes, errs.ErrInvalidInput when
//     the design matrix is rank deficient
func (lr *LinearRegression) Fit(x *mat.Dense, y []float64) error {
	return lr.FitWeighted(x, y, nil)
}

// FitWeighted performs an inverse-variance weighted least-squares fit.
//
// Each observation is weighted by 1/yErr². When yErr is nil, or any error is zero,
// all observations are weighted equally.
//
// Parameters:
//   - x: covariates, D×N
//   - y: responses, length N
//   - yErr: response errors, length N, or nil
//
// Returns:
//   - error: errs.ErrShapeMismatch, errs.ErrNegativeError or errs.ErrInvalidInput
func (lr *LinearRegression) FitWeighted(x *mat.Dense, y, yErr []float64) error {
	if x == nil {
		return fmt.Errorf("%w: nil covariate matrix", errs.ErrInvalidInput)
	}
	d, n := x.Dims()
	if len(y) != n {
		return fmt.Errorf("%w: x has %d observations, y has %d", errs.ErrShapeMismatch, n, len(y))
	}
	if yErr != nil && len(yErr) != n {
		return fmt.Errorf("%w: y has %d observations, y_error has %d", errs.ErrShapeMismatch, n, len(yErr))
	}
	if n < d+1 {
		return fmt.Errorf("%w: %d observations cannot determine %d coefficients", errs.ErrInvalidInput, n, d+1)
	}

	weights := inverseVariance(yErr)
	if weights != nil {
		for i, e := range yErr {
			if e < 0 {
				return fmt.Errorf("%w: y_error[%d] = %g", errs.ErrNegativeError, i, e)
			}
		}
	}

	// Rows of the design matrix are [1, x_1j, ..., x_Dj], scaled by sqrt(w_j).
	a := mat.NewDense(n, d+1, nil)
	b := mat.NewVecDense(n, nil)
	for j := range n {
		w := 1.0
		if weights != nil {
			w = math.Sqrt(weights[j])
		}
		a.Set(j, 0, w)
		for i := range d {
			a.Set(j, i+1, w*x.At(i, j))
		}
		b.SetVec(j, w*y[j])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		return fmt.Errorf("%w: least-squares solve failed: %w", errs.ErrInvalidInput, err)
	}

	coeffs := make([]float64, d+1)
	for i := range coeffs {
		coeffs[i] = beta.AtVec(i)
	}
	if !finite(coeffs) {
		return fmt.Errorf("%w: least-squares solution is not finite", errs.ErrInvalidInput)
	}
	lr.coeffs = coeffs

	return nil
}

// inverseVariance returns 1/e² per error, or nil when unweighted.
func inverseVariance(yErr []float64) []float64 {
	if yErr == nil {
		return nil
	}

	w := make([]float64, len(yErr))
	for i, e := range yErr {
		if e == 0 {
			return nil
		}
		w[i] = 1 / (e * e)
	}

	return w
}

// Predict evaluates intercept + slope·x for each column of x.
//
// Returns:
//   - []float64: one prediction per observation
//   - error: errs.ErrNotFitted before a fit, errs.ErrShapeMismatch if x has the wrong
//     number of covariates
func (lr *LinearRegression) Predict(x *mat.Dense) ([]float64, error) {
	if lr.coeffs == nil {
		return nil, errs.ErrNotFitted
	}
	if x == nil {
		return nil, fmt.Errorf("%w: nil covariate matrix", errs.ErrInvalidInput)
	}

	d, n := x.Dims()
	if d != len(lr.coeffs)-1 {
		return nil, fmt.Errorf("%w: model has %d covariates, x has %d", errs.ErrShapeMismatch, len(lr.coeffs)-1, d)
	}

	slope := mat.NewVecDense(d, slices.Clone(lr.coeffs[1:]))
	var out mat.VecDense
	out.MulVec(x.T(), slope)

	pred := make([]float64, n)
	for j := range n {
		pred[j] = lr.coeffs[0] + out.AtVec(j)
	}

	return pred, nil
}

// Score returns the coefficient of determination and the root mean square error of the
// fit against observations.
func (lr *LinearRegression) Score(x *mat.Dense, y []float64) (r2, rmse float64, err error) {
	pred, err := lr.Predict(x)
	if err != nil {
		return 0, 0, err
	}
	if len(pred) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d predictions, %d observations", errs.ErrShapeMismatch, len(pred), len(y))
	}

	return RSquared(y, pred), RMSE(y, pred), nil
}

// Coefficients returns a copy of [intercept, slope...], or nil before a fit.
func (lr *LinearRegression) Coefficients() []float64 {
	return slices.Clone(lr.coeffs)
}

// SetCoefficients replaces the coefficients with [intercept, slope...].
//
// Returns:
//   - error: errs.ErrInvalidInput if fewer than two coefficients are given or one is
//     not finite
func (lr *LinearRegression) SetCoefficients(coeffs []float64) error {
	if len(coeffs) < 2 {
		return fmt.Errorf("%w: need an intercept and at least one slope, got %d coefficients", errs.ErrInvalidInput, len(coeffs))
	}
	if !finite(coeffs) {
		return fmt.Errorf("%w: coefficients must be finite", errs.ErrInvalidInput)
	}
	lr.coeffs = slices.Clone(coeffs)

	return nil
}

// Intercept returns the fitted constant term.
func (lr *LinearRegression) Intercept() float64 {
	if lr.coeffs == nil {
		return 0
	}

	return lr.coeffs[0]
}

// Slope returns a copy of the fitted covariate coefficients.
func (lr *LinearRegression) Slope() []float64 {
	if lr.coeffs == nil {
		return nil
	}

	return slices.Clone(lr.coeffs[1:])
}

// String returns the fitted formula, e.g. "y = 0.05 + 1.99*x0".
func (lr *LinearRegression) String() string {
	if lr.coeffs == nil {
		return "LinearRegression{unfitted}"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "y = %.4g", lr.coeffs[0])
	for i, c := range lr.coeffs[1:] {
		fmt.Fprintf(&sb, " + %.4g*x%d", c, i)
	}

	return sb.String()
}

// RSquared calculates the coefficient of determination.
//
// Formula: R² = 1 - SS_res / SS_tot, where SS_res sums the squared residuals and SS_tot
// the squared deviations of observed from its mean. It returns 0 when observed is empty
// or constant.
func RSquared(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}

	mean := floats.Sum(observed) / float64(len(observed))
	ssTot := 0.0
	ssRes := 0.0
	for i := range observed {
		ssTot += (observed[i] - mean) * (observed[i] - mean)
		ssRes += (observed[i] - predicted[i]) * (observed[i] - predicted[i])
	}

	if ssTot == 0 {
		return 0
	}

	return 1.0 - ssRes/ssTot
}

// RMSE calculates the root mean square error √(Σ(observed - predicted)² / n).
func RMSE(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}

	return floats.Distance(observed, predicted, 2) / math.Sqrt(float64(len(observed)))
}
