package trace

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/linmix/tensor"
)

// Samples holds the draws of one variable or sampler statistic.
type Samples struct {
	Name  string
	Shape tensor.Shape
	// Chains holds, per chain, draws*Size values in draw-major order.
	Chains [][]float64
}

func newSamples(name string, shape tensor.Shape, chains, draws int) *Samples {
	s := &Samples{Name: name, Shape: shape.Clone(), Chains: make([][]float64, chains)}
	for c := range s.Chains {
		s.Chains[c] = make([]float64, draws*shape.Size())
	}

	return s
}

// Size returns the number of elements per draw.
func (s *Samples) Size() int {
	return s.Shape.Size()
}

// Draws returns the number of draws per chain.
func (s *Samples) Draws() int {
	if len(s.Chains) == 0 || s.Size() == 0 {
		return 0
	}

	return len(s.Chains[0]) / s.Size()
}

// Len returns the number of draws over all chains.
func (s *Samples) Len() int {
	return len(s.Chains) * s.Draws()
}

// Set stores draw i of chain c.
func (s *Samples) Set(c, i int, values []float64) {
	n := s.Size()
	copy(s.Chains[c][i*n:(i+1)*n], values)
}

// Draw returns draw i of chain c as a tensor sharing the trace's storage.
func (s *Samples) Draw(c, i int) tensor.Tensor {
	n := s.Size()
	return tensor.Tensor{Shape: s.Shape, Data: s.Chains[c][i*n : (i+1)*n]}
}

// Element returns the per-chain series of the element at flat index idx.
func (s *Samples) Element(idx int) [][]float64 {
	n := s.Size()
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("trace: element %d out of range for %s", idx, s.Shape))
	}

	out := make([][]float64, len(s.Chains))
	draws := s.Draws()
	for c, data := range s.Chains {
		series := make([]float64, draws)
		for i := range draws {
			series[i] = data[i*n+idx]
		}
		out[c] = series
	}

	return out
}

// Pooled returns the draws of element idx from all chains.
func (s *Samples) Pooled(idx int) []float64 {
	return slices.Concat(s.Element(idx)...)
}

// Values returns all draws of a scalar series, chains concatenated.
func (s *Samples) Values() []float64 {
	return s.Pooled(0)
}

// ElementLabel names the element at flat index idx, e.g. "ksi[3, 0]". Scalars use the bare name.
func (s *Samples) ElementLabel(idx int) string {
	if s.Shape.Rank() == 0 {
		return s.Name
	}

	coords := make([]string, s.Shape.Rank())
	for d := s.Shape.Rank() - 1; d >= 0; d-- {
		coords[d] = strconv.Itoa(idx % s.Shape[d])
		idx /= s.Shape[d]
	}

	return s.Name + "[" + strings.Join(coords, ", ") + "]"
}

// Mean returns the posterior mean of every element.
func (s *Samples) Mean() tensor.Tensor {
	return s.reduce(func(x []float64) float64 { return stat.Mean(x, nil) })
}

// Std returns the posterior standard deviation of every element.
func (s *Samples) Std() tensor.Tensor {
	return s.reduce(func(x []float64) float64 { return stat.PopStdDev(x, nil) })
}

// Quantile returns the p-quantile of every element, interpolating linearly between draws.
func (s *Samples) Quantile(p float64) tensor.Tensor {
	return s.reduce(func(x []float64) float64 {
		slices.Sort(x)
		return stat.Quantile(p, stat.LinInterp, x, nil)
	})
}

// HDI returns the bounds of the narrowest interval holding prob of the draws of every element.
func (s *Samples) HDI(prob float64) (lo, hi tensor.Tensor) {
	lo = tensor.Zeros(s.Shape)
	hi = tensor.Zeros(s.Shape)
	for idx := range s.Size() {
		lo.Data[idx], hi.Data[idx] = HDI(s.Pooled(idx), prob)
	}

	return lo, hi
}

func (s *Samples) reduce(fn func([]float64) float64) tensor.Tensor {
	out := tensor.Zeros(s.Shape)
	for idx := range s.Size() {
		out.Data[idx] = fn(s.Pooled(idx))
	}

	return out
}

// HDI returns the narrowest interval containing prob of the values. The input is not modified.
func HDI(values []float64, prob float64) (float64, float64) {
	n := len(values)
	if n == 0 || prob <= 0 || prob > 1 {
		return math.NaN(), math.NaN()
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	inc := int(math.Floor(prob * float64(n)))
	if inc >= n {
		return sorted[0], sorted[n-1]
	}

	best := 0
	width := math.Inf(1)
	for i := 0; i+inc < n; i++ {
		if w := sorted[i+inc] - sorted[i]; w < width {
			width = w
			best = i
		}
	}

	return sorted[best], sorted[best+inc]
}
