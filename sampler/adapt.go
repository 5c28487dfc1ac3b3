package sampler

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Dual averaging constants (Hoffman & Gelman 2014, section 3.2).
const (
	daGamma = 0.05
	daT0    = 10.0
	daKappa = 0.75
)

// stepSizeAdapter tunes the leapfrog step size by dual averaging toward a target
// acceptance statistic.
type stepSizeAdapter struct {
	target    float64
	mu        float64
	logEps    float64
	logEpsBar float64
	hBar      float64
	t         float64
}

func newStepSizeAdapter(eps, target float64) *stepSizeAdapter {
	a := &stepSizeAdapter{target: target}
	a.restart(eps)

	return a
}

// restart begins a new adaptation phase shrinking toward 10*eps.
func (a *stepSizeAdapter) restart(eps float64) {
	a.mu = math.Log(10 * eps)
	a.logEps = math.Log(eps)
	a.logEpsBar = 0
	a.hBar = 0
	a.t = 0
}

// update records the acceptance statistic of one transition and returns the next step size.
func (a *stepSizeAdapter) update(accept float64) float64 {
	if math.IsNaN(accept) {
		accept = 0
	}

	a.t++
	eta := 1 / (a.t + daT0)
	a.hBar = (1-eta)*a.hBar + eta*(a.target-accept)
	a.logEps = a.mu - math.Sqrt(a.t)/daGamma*a.hBar
	w := math.Pow(a.t, -daKappa)
	a.logEpsBar = w*a.logEps + (1-w)*a.logEpsBar

	return math.Exp(a.logEps)
}

// final returns the averaged step size used after tuning.
func (a *stepSizeAdapter) final() float64 {
	if a.t == 0 {
		return math.Exp(a.logEps)
	}

	return math.Exp(a.logEpsBar)
}

// Mass matrix window sizes, as in Stan.
const (
	initBuffer = 75
	termBuffer = 50
	baseWindow = 25
)

// massAdapter estimates a diagonal inverse mass matrix over expanding windows of the
// tuning phase: a fast initial buffer, slow windows of doubling size, and a final
// fast buffer. Only the slow windows feed the variance estimate.
type massAdapter struct {
	dim       int
	tune      int
	initBuf   int
	termBuf   int
	window    int
	windowEnd int
	buf       []float64 // draws of the current window, row-major
}

func newMassAdapter(dim, tune int) *massAdapter {
	a := &massAdapter{dim: dim, tune: tune, initBuf: initBuffer, termBuf: termBuffer, window: baseWindow}
	if tune < 20 {
		// too short to adapt anything but the step size
		a.windowEnd = -1
		return a
	}
	if initBuffer+termBuffer+baseWindow > tune {
		a.initBuf = int(0.15 * float64(tune))
		a.termBuf = int(0.1 * float64(tune))
		a.window = tune - a.initBuf - a.termBuf
	}
	a.windowEnd = a.initBuf + a.window - 1
	a.stretch()

	return a
}

// stretch extends the current window to the terminal buffer when the next one would not fit.
func (a *massAdapter) stretch() {
	nextEnd := a.windowEnd + 2*a.window
	if nextEnd >= a.tune-a.termBuf {
		a.windowEnd = a.tune - a.termBuf - 1
	}
}

// observe records the position after tuning iteration i. It returns a new inverse mass
// matrix at the end of a slow window, nil otherwise.
func (a *massAdapter) observe(i int, q []float64) []float64 {
	if a.windowEnd < 0 || i < a.initBuf || i > a.windowEnd {
		return nil
	}

	a.buf = append(a.buf, q...)
	if i < a.windowEnd {
		return nil
	}

	invMass := a.estimate()
	a.buf = a.buf[:0]
	a.window *= 2
	a.windowEnd = i + a.window
	a.stretch()

	return invMass
}

// estimate returns the regularized per-coordinate variance of the window.
func (a *massAdapter) estimate() []float64 {
	rows := len(a.buf) / a.dim
	draws := mat.NewDense(rows, a.dim, a.buf)
	n := float64(rows)

	out := make([]float64, a.dim)
	col := make([]float64, rows)
	for j := range a.dim {
		mat.Col(col, j, draws)
		v := 0.0
		if rows > 1 {
			v = stat.Variance(col, nil)
		}
		out[j] = n/(n+5)*v + 1e-3*5/(n+5)
	}

	return out
}
