package trace

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/linmix/tensor"
)

// Names of the per-draw sampler statistics.
const (
	StatAccept     = "accept"
	StatStepSize   = "step_size"
	StatTreeDepth  = "tree_depth"
	StatEnergy     = "energy"
	StatDiverging  = "diverging"
	StatLogDensity = "lp"
)

// Trace is the posterior sample of one sampling run.
type Trace struct {
	// ID identifies the run. It survives snapshots.
	ID     uuid.UUID
	Chains int
	Draws  int
	Tune   int

	vars  []*Samples
	stats []*Samples
	index map[string]*Samples
}

// New returns an empty trace with a fresh time-ordered run ID.
func New(chains, draws, tune int) *Trace {
	return NewWithID(uuid.Must(uuid.NewV7()), chains, draws, tune)
}

// NewWithID returns an empty trace with the given run ID.
func NewWithID(id uuid.UUID, chains, draws, tune int) *Trace {
	return &Trace{
		ID:     id,
		Chains: chains,
		Draws:  draws,
		Tune:   tune,
		index:  make(map[string]*Samples),
	}
}

// AddVariable allocates storage for a variable of the given shape.
func (t *Trace) AddVariable(name string, shape tensor.Shape) (*Samples, error) {
	s, err := t.add(name, shape)
	if err != nil {
		return nil, err
	}
	t.vars = append(t.vars, s)

	return s, nil
}

// AddStat allocates storage for a scalar sampler statistic.
func (t *Trace) AddStat(name string) (*Samples, error) {
	s, err := t.add(name, tensor.Shape{})
	if err != nil {
		return nil, err
	}
	t.stats = append(t.stats, s)

	return s, nil
}

func (t *Trace) add(name string, shape tensor.Shape) (*Samples, error) {
	if name == "" {
		return nil, fmt.Errorf("empty series name")
	}
	if _, dup := t.index[name]; dup {
		return nil, fmt.Errorf("duplicate series %q", name)
	}
	s := newSamples(name, shape, t.Chains, t.Draws)
	t.index[name] = s

	return s, nil
}

// Variables returns the variables in the order they were added.
func (t *Trace) Variables() []*Samples {
	return append([]*Samples(nil), t.vars...)
}

// Variable looks up a variable by name.
func (t *Trace) Variable(name string) (*Samples, bool) {
	s, ok := t.index[name]
	if !ok || !t.isVariable(s) {
		return nil, false
	}

	return s, true
}

// Stats returns the sampler statistics in the order they were added.
func (t *Trace) Stats() []*Samples {
	return append([]*Samples(nil), t.stats...)
}

// Stat looks up a sampler statistic by name.
func (t *Trace) Stat(name string) (*Samples, bool) {
	s, ok := t.index[name]
	if !ok || t.isVariable(s) {
		return nil, false
	}

	return s, true
}

func (t *Trace) isVariable(s *Samples) bool {
	for _, v := range t.vars {
		if v == s {
			return true
		}
	}

	return false
}

// Divergences counts divergent transitions after tuning.
func (t *Trace) Divergences() int {
	s, ok := t.Stat(StatDiverging)
	if !ok {
		return 0
	}

	n := 0
	for _, v := range s.Values() {
		if v != 0 {
			n++
		}
	}

	return n
}

// MeanAccept returns the mean acceptance statistic over all chains.
func (t *Trace) MeanAccept() float64 {
	s, ok := t.Stat(StatAccept)
	if !ok {
		return 0
	}

	return s.Mean().Data[0]
}

// ChainMeanAccept returns the mean acceptance statistic of each chain.
func (t *Trace) ChainMeanAccept() []float64 {
	s, ok := t.Stat(StatAccept)
	if !ok {
		return nil
	}

	out := make([]float64, 0, t.Chains)
	for _, series := range s.Element(0) {
		sum := 0.0
		for _, v := range series {
			sum += v
		}
		out = append(out, sum/float64(len(series)))
	}

	return out
}
