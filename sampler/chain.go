package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/arloliu/linmix/errs"
	"github.com/arloliu/linmix/trace"
)

// maxInitAttempts bounds the jittered restarts while looking for a finite starting density.
const maxInitAttempts = 20

// recorder writes draws of one run into a trace. Chains write disjoint slices.
type recorder struct {
	vars    []*trace.Samples
	offsets []int
	stats   map[string]*trace.Samples
}

func newRecorder(target Target, tr *trace.Trace) (*recorder, error) {
	r := &recorder{stats: make(map[string]*trace.Samples)}
	off := 0
	for _, o := range target.Outputs() {
		s, err := tr.AddVariable(o.Name, o.Shape)
		if err != nil {
			return nil, err
		}
		r.vars = append(r.vars, s)
		r.offsets = append(r.offsets, off)
		off += o.Shape.Size()
	}

	for _, name := range []string{
		trace.StatAccept, trace.StatStepSize, trace.StatTreeDepth,
		trace.StatEnergy, trace.StatDiverging, trace.StatLogDensity,
	} {
		s, err := tr.AddStat(name)
		if err != nil {
			return nil, err
		}
		r.stats[name] = s
	}

	return r, nil
}

func (r *recorder) record(c, i int, draw []float64, tr transition, eps float64) {
	for k, s := range r.vars {
		s.Set(c, i, draw[r.offsets[k]:r.offsets[k]+s.Size()])
	}

	diverging := 0.0
	if tr.diverging {
		diverging = 1
	}
	r.stats[trace.StatAccept].Set(c, i, []float64{tr.accept})
	r.stats[trace.StatStepSize].Set(c, i, []float64{eps})
	r.stats[trace.StatTreeDepth].Set(c, i, []float64{float64(tr.depth)})
	r.stats[trace.StatEnergy].Set(c, i, []float64{tr.energy})
	r.stats[trace.StatDiverging].Set(c, i, []float64{diverging})
	r.stats[trace.StatLogDensity].Set(c, i, []float64{tr.point.logp})
}

// chain runs one Markov chain: initialization, tuning, and recorded draws.
type chain struct {
	idx    int
	target Target
	cfg    Config
	logger *slog.Logger
	src    rand.Source
	rng    *rand.Rand
}

func newChain(idx int, seed uint64, target Target, cfg Config) *chain {
	src := rand.NewPCG(seed, uint64(idx))

	return &chain{
		idx:    idx,
		target: target,
		cfg:    cfg,
		logger: cfg.logger().With("chain", idx),
		src:    src,
		rng:    rand.New(src),
	}
}

// initialPoint returns a starting point with a finite log density and gradient.
func (c *chain) initialPoint() (point, error) {
	theta, explicit := c.target.InitialPoint()
	jitter := distuv.Uniform{Min: -1, Max: 1, Src: c.src}

	for attempt := range maxInitAttempts {
		q := append([]float64(nil), theta...)
		if c.cfg.Jitter {
			for i := range q {
				if !explicit[i] {
					q[i] += jitter.Rand()
				}
			}
		}

		grad := make([]float64, len(q))
		logp := c.target.LogDensity(q, grad)
		if isFinite(logp) && allFinite(grad) {
			return point{q: q, p: make([]float64, len(q)), grad: grad, logp: logp}, nil
		}

		c.logger.Debug("non-finite initial log density", "attempt", attempt, "logp", logp)
		if !c.cfg.Jitter {
			break
		}
	}

	return point{}, fmt.Errorf("%w: chain %d", errs.ErrNonFiniteInitialLog, c.idx)
}

func (c *chain) run(ctx context.Context, rec *recorder) error {
	start, err := c.initialPoint()
	if err != nil {
		return err
	}

	dim := len(start.q)
	invMass := make([]float64, dim)
	for i := range invMass {
		invMass[i] = 1
	}

	s := &nuts{
		logDensity:   c.target.LogDensity,
		rng:          c.rng,
		src:          c.src,
		invMass:      invMass,
		maxTreeDepth: c.cfg.MaxTreeDepth,
	}

	eps := s.findReasonableStepSize(start, 1)
	stepAdapt := newStepSizeAdapter(eps, c.cfg.TargetAccept)
	massAdapt := newMassAdapter(dim, c.cfg.Tune)
	c.logger.Debug("chain started", "dim", dim, "step_size", eps)

	draw := make([]float64, c.target.OutputSize())
	total := c.cfg.Tune + c.cfg.Draws
	progressEvery := max(total/10, 1)
	cur := start
	divergentTune := 0

	for i := range total {
		if err := ctx.Err(); err != nil {
			return err
		}

		tr := s.step(cur, eps)
		cur = tr.point

		if i < c.cfg.Tune {
			if tr.diverging {
				divergentTune++
			}
			eps = stepAdapt.update(tr.accept)
			if m := massAdapt.observe(i, cur.q); m != nil {
				s.invMass = m
				eps = s.findReasonableStepSize(cur, eps)
				stepAdapt.restart(eps)
			}
			if i == c.cfg.Tune-1 {
				eps = stepAdapt.final()
				c.logger.Debug("tuning finished", "step_size", eps, "divergences", divergentTune)
			}
		} else {
			c.target.Draw(cur.q, c.src, draw)
			rec.record(c.idx, i-c.cfg.Tune, draw, tr, eps)
		}

		if (i+1)%progressEvery == 0 {
			phase := "draw"
			if i < c.cfg.Tune {
				phase = "tune"
			}
			c.logger.Debug("chain progress", "iteration", i+1, "total", total, "phase", phase,
				"step_size", eps, "tree_depth", tr.depth)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}

	return true
}
