package coxph

import "math"

// RiskSet holds the running risk-set aggregates for one stratum.  Rows
// are visited in descending time order with ascending original row
// index breaking ties; S[k] and H[k] are the prefix sums of the hazard
// weights exp(β·x) and the weighted covariate vectors x·exp(β·x) over
// rows[0..k].  Every row therefore includes itself and all rows at or
// after it in the descending order.  The risk set is transient: it is
// materialized once per stratum and discarded after the sandwich
// contributions are formed.
type RiskSet struct {

	// The row indices in visit order
	rows []int

	// S[k] is the cumulative hazard weight through position k
	S []float64

	// H[k] is the cumulative weighted covariate sum through position k
	H [][]float64

	// elp[k] is the hazard weight exp(β·x) of the row at position k
	elp []float64
}

// buildRiskSet runs the descending-time pass over one stratum,
// producing the per-row (H, S) prefix aggregates.
func (m *Model) buildRiskSet(rows []int) *RiskSet {

	p := len(m.xpos)
	n := len(rows)

	rs := &RiskSet{
		rows: rows,
		S:    make([]float64, n),
		H:    make([][]float64, n),
		elp:  make([]float64, n),
	}

	var s float64
	h := make([]float64, p)

	for k, i := range rows {
		w := math.Exp(m.linpred(i))
		s += w
		for j, c := range m.xpos {
			h[j] += w * float64(m.data[c][i])
		}

		rs.S[k] = s
		hk := make([]float64, p)
		copy(hk, h)
		rs.H[k] = hk
		rs.elp[k] = w
	}

	return rs
}

// tieBlock returns the position of the first row in the tie block
// ending at position hi, i.e. the smallest lo such that all rows in
// [lo, hi] share the same time.
func (m *Model) tieBlock(rows []int, hi int) int {

	time := m.data[m.timepos]
	t := time[rows[hi]]

	lo := hi
	for lo > 0 && time[rows[lo-1]] == t {
		lo--
	}

	return lo
}
