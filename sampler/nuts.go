package sampler

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxDeltaH is the energy error beyond which a trajectory is declared divergent.
const maxDeltaH = 1000

// point is a position on a Hamiltonian trajectory.
type point struct {
	q, p, grad []float64
	logp       float64
}

// subtree is the result of building a trajectory segment of 2^depth leapfrog steps.
type subtree struct {
	minus, plus point // leftmost and rightmost points
	proposal    point
	n           int // points inside the slice
	ok          bool
	alphaSum    float64
	alphaN      int
	diverging   bool
}

// transition is the outcome of one NUTS iteration.
type transition struct {
	point     point
	accept    float64
	depth     int
	energy    float64
	diverging bool
}

// nuts implements the No-U-Turn Sampler with slice sampling and a diagonal mass matrix
// (Hoffman & Gelman 2014, algorithm 6).
type nuts struct {
	logDensity   func(q, grad []float64) float64
	rng          *rand.Rand
	src          rand.Source
	invMass      []float64
	maxTreeDepth int
}

func (s *nuts) kinetic(p []float64) float64 {
	k := 0.0
	for i, v := range p {
		k += v * v * s.invMass[i]
	}

	return k / 2
}

func (s *nuts) hamiltonian(pt point) float64 {
	return -pt.logp + s.kinetic(pt.p)
}

func (s *nuts) momentum() []float64 {
	p := make([]float64, len(s.invMass))
	for i, m := range s.invMass {
		p[i] = distuv.Normal{Mu: 0, Sigma: 1 / math.Sqrt(m), Src: s.src}.Rand()
	}

	return p
}

// leapfrog advances pt by one step of size eps, which may be negative.
func (s *nuts) leapfrog(pt point, eps float64) point {
	next := point{
		q:    make([]float64, len(pt.q)),
		p:    make([]float64, len(pt.p)),
		grad: make([]float64, len(pt.q)),
	}

	copy(next.p, pt.p)
	floats.AddScaled(next.p, eps/2, pt.grad)
	copy(next.q, pt.q)
	for i := range next.q {
		next.q[i] += eps * s.invMass[i] * next.p[i]
	}
	next.logp = s.logDensity(next.q, next.grad)
	floats.AddScaled(next.p, eps/2, next.grad)

	return next
}

// uTurn reports whether the trajectory between minus and plus has started to double back.
func (s *nuts) uTurn(minus, plus point) bool {
	var fwd, bwd float64
	for i := range minus.q {
		dq := plus.q[i] - minus.q[i]
		fwd += dq * s.invMass[i] * plus.p[i]
		bwd += dq * s.invMass[i] * minus.p[i]
	}

	return fwd < 0 || bwd < 0
}

// step performs one NUTS transition from start with step size eps.
func (s *nuts) step(start point, eps float64) transition {
	start.p = s.momentum()
	h0 := s.hamiltonian(start)
	logu := -h0 + math.Log(s.rng.Float64())

	minus, plus := start, start
	proposal := start
	n := 1
	out := transition{}
	for depth := range s.maxTreeDepth {
		var t subtree
		if s.rng.Float64() < 0.5 {
			t = s.build(minus, logu, -1, depth, eps, h0)
			minus = t.minus
		} else {
			t = s.build(plus, logu, 1, depth, eps, h0)
			plus = t.plus
		}

		if t.ok && t.n > 0 && s.rng.Float64() < float64(t.n)/float64(n) {
			proposal = t.proposal
		}
		n += t.n
		out.depth = depth + 1
		out.accept = t.alphaSum / float64(t.alphaN)
		out.diverging = out.diverging || t.diverging
		if !t.ok || s.uTurn(minus, plus) {
			break
		}
	}

	out.point = proposal
	out.energy = s.hamiltonian(proposal)

	return out
}

// build grows a subtree of 2^depth steps from pt in direction dir.
func (s *nuts) build(pt point, logu, dir float64, depth int, eps, h0 float64) subtree {
	if depth == 0 {
		next := s.leapfrog(pt, dir*eps)
		h := s.hamiltonian(next)
		if math.IsNaN(h) {
			h = math.Inf(1)
		}

		t := subtree{minus: next, plus: next, proposal: next, alphaN: 1}
		if logu <= -h {
			t.n = 1
		}
		t.ok = logu < maxDeltaH-h
		t.diverging = !t.ok
		t.alphaSum = math.Min(1, math.Exp(h0-h))

		return t
	}

	t := s.build(pt, logu, dir, depth-1, eps, h0)
	if !t.ok {
		return t
	}

	var sub subtree
	if dir < 0 {
		sub = s.build(t.minus, logu, dir, depth-1, eps, h0)
		t.minus = sub.minus
	} else {
		sub = s.build(t.plus, logu, dir, depth-1, eps, h0)
		t.plus = sub.plus
	}

	if sub.n > 0 && s.rng.Float64()*float64(t.n+sub.n) < float64(sub.n) {
		t.proposal = sub.proposal
	}
	t.n += sub.n
	t.alphaSum += sub.alphaSum
	t.alphaN += sub.alphaN
	t.diverging = t.diverging || sub.diverging
	t.ok = sub.ok && !s.uTurn(t.minus, t.plus)

	return t
}

// findReasonableStepSize doubles or halves eps until the acceptance probability of a
// single leapfrog step crosses one half (Hoffman & Gelman 2014, algorithm 4).
func (s *nuts) findReasonableStepSize(start point, eps float64) float64 {
	start.p = s.momentum()
	h0 := s.hamiltonian(start)

	logRatio := func(eps float64) float64 {
		h := s.hamiltonian(s.leapfrog(start, eps))
		if math.IsNaN(h) {
			return math.Inf(-1)
		}

		return h0 - h
	}

	dir := 1.0
	if !(logRatio(eps) > math.Log(0.5)) {
		dir = -1
	}

	for range 100 {
		r := logRatio(eps)
		if !(dir*r > -dir*math.Ln2) {
			break
		}
		next := eps * math.Pow(2, dir)
		if next < 1e-10 || next > 1e7 {
			break
		}
		eps = next
	}

	return eps
}
