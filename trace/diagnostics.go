package trace

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/linmix/tensor"
)

// splitChains halves every chain, dropping the middle draw of odd lengths.
func splitChains(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		half := len(c) / 2
		out = append(out, c[:half], c[len(c)-half:])
	}

	return out
}

// SplitRHat returns the potential scale reduction factor over split chains.
// It is NaN for fewer than four draws per chain or when every draw is identical.
func SplitRHat(chains [][]float64) float64 {
	split := splitChains(chains)
	m := len(split)
	if m < 2 || len(split[0]) < 2 {
		return math.NaN()
	}
	n := float64(len(split[0]))

	means := make([]float64, m)
	w := 0.0
	for j, c := range split {
		mean, variance := stat.MeanVariance(c, nil)
		means[j] = mean
		w += variance
	}
	w /= float64(m)
	b := n * stat.Variance(means, nil)
	if w == 0 {
		return math.NaN()
	}

	varPlus := (n-1)/n*w + b/n

	return math.Sqrt(varPlus / w)
}

// ESS returns the effective sample size over split chains. Autocovariances come from
// an FFT of each zero-padded chain, and the autocorrelation sum is truncated with
// Geyer's initial monotone sequence.
func ESS(chains [][]float64) float64 {
	split := splitChains(chains)
	m := len(split)
	if m == 0 || len(split[0]) < 4 {
		return math.NaN()
	}
	n := len(split[0])

	acov := make([][]float64, m)
	means := make([]float64, m)
	for j, c := range split {
		acov[j] = autocovariance(c)
		means[j] = stat.Mean(c, nil)
	}

	nf := float64(n)
	meanVar := 0.0
	for j := range acov {
		meanVar += acov[j][0]
	}
	meanVar = meanVar / float64(m) * nf / (nf - 1)
	varPlus := meanVar * (nf - 1) / nf
	if m > 1 {
		varPlus += stat.Variance(means, nil)
	}
	if varPlus == 0 {
		return math.NaN()
	}

	rho := func(lag int) float64 {
		s := 0.0
		for j := range acov {
			s += acov[j][lag]
		}

		return 1 - (meanVar-s/float64(m))/varPlus
	}

	sum := 0.0
	prev := math.Inf(1)
	for k := 0; 2*k+1 < n; k++ {
		p := rho(2*k) + rho(2*k+1)
		if p <= 0 {
			break
		}
		p = math.Min(p, prev)
		sum += p
		prev = p
	}

	total := float64(m * n)
	tau := math.Max(-1+2*sum, 1/math.Log10(total))

	return total / tau
}

// autocovariance returns the biased autocovariance of x at every lag.
func autocovariance(x []float64) []float64 {
	n := len(x)
	size := 1
	for size < 2*n {
		size <<= 1
	}

	mean := stat.Mean(x, nil)
	padded := make([]float64, size)
	for i, v := range x {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(size)
	coeffs := fft.Coefficients(nil, padded)
	for i, c := range coeffs {
		coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	seq := fft.Sequence(nil, coeffs)

	// scale so that lag 0 is the biased variance
	var0 := 0.0
	for _, v := range padded[:n] {
		var0 += v * v
	}
	var0 /= float64(n)

	out := make([]float64, n)
	if seq[0] == 0 {
		return out
	}
	scale := var0 / seq[0]
	for i := range out {
		out[i] = seq[i] * scale
	}

	return out
}

// BFMI returns the energy Bayesian fraction of missing information of one chain.
// Values below 0.3 indicate that momentum resampling explores the energy poorly.
func BFMI(energy []float64) float64 {
	if len(energy) < 2 {
		return math.NaN()
	}

	num := 0.0
	for i := 1; i < len(energy); i++ {
		d := energy[i] - energy[i-1]
		num += d * d
	}
	num /= float64(len(energy))

	v := stat.PopVariance(energy, nil)
	if v == 0 {
		return math.NaN()
	}

	return num / v
}

// RHat returns the split R-hat of every element of a variable.
func (s *Samples) RHat() tensor.Tensor {
	out := tensor.Zeros(s.Shape)
	for idx := range s.Size() {
		out.Data[idx] = SplitRHat(s.Element(idx))
	}

	return out
}

// ESS returns the effective sample size of every element of a variable.
func (s *Samples) ESS() tensor.Tensor {
	out := tensor.Zeros(s.Shape)
	for idx := range s.Size() {
		out.Data[idx] = ESS(s.Element(idx))
	}

	return out
}

// BFMI returns the energy BFMI of every chain, or nil when energy was not recorded.
func (t *Trace) BFMI() []float64 {
	s, ok := t.Stat(StatEnergy)
	if !ok {
		return nil
	}

	out := make([]float64, 0, t.Chains)
	for _, series := range s.Element(0) {
		out = append(out, BFMI(series))
	}

	return out
}

// MaxRHat returns the largest finite split R-hat over all variable elements and the label
// of that element. Constant elements such as pinned values are skipped.
func (t *Trace) MaxRHat() (float64, string) {
	best, label := math.NaN(), ""
	for _, v := range t.vars {
		r := v.RHat()
		for idx, x := range r.Data {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				continue
			}
			if math.IsNaN(best) || x > best {
				best, label = x, v.ElementLabel(idx)
			}
		}
	}

	return best, label
}
