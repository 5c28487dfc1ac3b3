package trace

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// SummaryRow holds the posterior summary of one variable element.
type SummaryRow struct {
	Label  string
	Mean   float64
	SD     float64
	HDILow float64
	HDIHi  float64
	ESS    float64
	RHat   float64
}

// Summary is a per-element posterior summary in trace order.
type Summary []SummaryRow

// SummaryHDIProb is the probability mass of the interval reported by Summary.
const SummaryHDIProb = 0.94

// Summary summarizes the named variables, or every variable when no names are given.
// Unknown names are ignored.
func (t *Trace) Summary(names ...string) Summary {
	vars := t.vars
	if len(names) > 0 {
		vars = nil
		for _, name := range names {
			if v, ok := t.Variable(name); ok {
				vars = append(vars, v)
			}
		}
	}

	var out Summary
	for _, v := range vars {
		mean := v.Mean()
		sd := v.Std()
		lo, hi := v.HDI(SummaryHDIProb)
		ess := v.ESS()
		rhat := v.RHat()
		for idx := range v.Size() {
			out = append(out, SummaryRow{
				Label:  v.ElementLabel(idx),
				Mean:   mean.Data[idx],
				SD:     sd.Data[idx],
				HDILow: lo.Data[idx],
				HDIHi:  hi.Data[idx],
				ESS:    ess.Data[idx],
				RHat:   rhat.Data[idx],
			})
		}
	}

	return out
}

// String renders the summary as an aligned table.
func (s Summary) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tmean\tsd\thdi_3%\thdi_97%\tess\tr_hat\t")
	for _, r := range s {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.0f\t%.2f\t\n",
			r.Label, r.Mean, r.SD, r.HDILow, r.HDIHi, r.ESS, r.RHat)
	}
	_ = w.Flush()

	return sb.String()
}
