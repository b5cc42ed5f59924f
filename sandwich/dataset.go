// Package sandwich implements the Huber-White robust ("sandwich")
// covariance estimator for fitted regression models.  The estimator has
// the form B⁻¹·M·B⁻¹, where the bread B is the model's own
// Hessian/information matrix at the fitted coefficients and the meat M
// is the accumulated outer product of per-observation score
// contributions.  Model-specific score construction lives in the coxph
// and mlogit packages; this package provides the shared data
// structures, the meat accumulator, and the final assembly.
package sandwich

import (
	"fmt"
	"sort"
)

// Dtype is the type used for all data values.
type Dtype = float64

// Dataset holds a rectangular data set in column-major form.  The
// order of names agrees with the order of the data columns.
type Dataset struct {
	names []string
	data  [][]Dtype
}

// NewDataset creates a Dataset from the given columns and variable names.
func NewDataset(data [][]Dtype, names []string) (Dataset, error) {

	if len(data) != len(names) {
		return Dataset{}, fmt.Errorf("sandwich: %d data columns but %d variable names", len(data), len(names))
	}
	if len(data) == 0 {
		return Dataset{}, fmt.Errorf("sandwich: dataset has no columns")
	}

	n := len(data[0])
	seen := make(map[string]bool)
	for j, col := range data {
		if len(col) != n {
			return Dataset{}, fmt.Errorf("sandwich: column '%s' has %d values, expected %d", names[j], len(col), n)
		}
		if seen[names[j]] {
			return Dataset{}, fmt.Errorf("sandwich: duplicate variable name '%s'", names[j])
		}
		seen[names[j]] = true
	}

	return Dataset{names: names, data: data}, nil
}

// Names returns the variable names, in column order.
func (ds Dataset) Names() []string {
	return ds.names
}

// Data returns the data columns.
func (ds Dataset) Data() [][]Dtype {
	return ds.data
}

// NumObs returns the number of observations (rows) in the dataset.
func (ds Dataset) NumObs() int {
	return len(ds.data[0])
}

// Pos returns the column position of the named variable, or -1 if it
// is not in the dataset.
func (ds Dataset) Pos(name string) int {
	for j, na := range ds.names {
		if na == name {
			return j
		}
	}
	return -1
}

// GroupByKeys partitions the rows 0..nobs-1 by equality of the key
// tuples formed from the given columns.  It returns the row indices
// sorted so that equal tuples are contiguous, together with the
// [start, end) ranges of the groups.  With no key columns there is a
// single implicit group containing every row.  The sort is stable, so
// rows within a group keep their original relative order.
func GroupByKeys(keys [][]Dtype, nobs int) ([]int, [][2]int) {

	inds := make([]int, nobs)
	for i := range inds {
		inds[i] = i
	}

	if len(keys) == 0 {
		return inds, [][2]int{{0, nobs}}
	}

	sort.SliceStable(inds, func(a, b int) bool {
		for _, k := range keys {
			if k[inds[a]] != k[inds[b]] {
				return k[inds[a]] < k[inds[b]]
			}
		}
		return false
	})

	same := func(a, b int) bool {
		for _, k := range keys {
			if k[a] != k[b] {
				return false
			}
		}
		return true
	}

	var ix [][2]int
	var i0 int
	for i := 1; i <= nobs; i++ {
		if i == nobs || !same(inds[i-1], inds[i]) {
			ix = append(ix, [2]int{i0, i})
			i0 = i
		}
	}

	return inds, ix
}
