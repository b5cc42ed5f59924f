package mlogit

import (
	"fmt"

	"github.com/statkit/robust/sandwich"
)

// Results contains the robust variance estimates for a fitted
// multinomial logistic regression model, as flattened vectors with one
// block of length NumFeatures per non-reference category.
type Results struct {
	*sandwich.RobustResults

	// Covariate names, in block order
	names []string

	labels []float64
	ref    float64
	refix  int
	nfeat  int
}

// Names returns the covariate names for the variables in the model.
func (r *Results) Names() []string {
	return r.names
}

// CategoryResult is the reported record for one non-reference category.
type CategoryResult struct {

	// The category this row describes
	Category float64

	// The reference category of the model
	RefCategory float64

	// Per-feature values for this category
	Coef    []float64
	StdErr  []float64
	ZStats  []float64
	PValues []float64
}

// Reshape splits the flattened coefficient, robust standard error,
// Z-statistic and p-value vectors into one row per category.  The
// mapping from category to block follows ascending category-label
// order with the reference category's position skipped, so exactly
// K-1 rows are produced and never one for the reference category
// (whose coefficients are implicitly zero).
func (r *Results) Reshape() []CategoryResult {

	p := r.nfeat
	se := r.RobustSE()
	z := r.RobustZ()
	pv := r.RobustP()
	coef := r.Coef()

	var out []CategoryResult
	b := 0
	for k, lab := range r.labels {
		if k == r.refix {
			continue
		}
		lo, hi := b*p, (b+1)*p
		out = append(out, CategoryResult{
			Category:    lab,
			RefCategory: r.ref,
			Coef:        coef[lo:hi],
			StdErr:      se[lo:hi],
			ZStats:      z[lo:hi],
			PValues:     pv[lo:hi],
		})
		b++
	}

	return out
}

// Summary displays a summary table of the robust variance results,
// one block of rows per non-reference category.
func (r *Results) Summary() string {

	rows := r.Reshape()

	var cat, vna []string
	var coef, se, z, pv []float64
	for _, cr := range rows {
		for j := range cr.Coef {
			cat = append(cat, fmt.Sprintf("%v", cr.Category))
			vna = append(vna, r.names[j])
			coef = append(coef, cr.Coef[j])
			se = append(se, cr.StdErr[j])
			z = append(z, cr.ZStats[j])
			pv = append(pv, cr.PValues[j])
		}
	}

	sum := &sandwich.SummaryTable{
		Title: "Multinomial logistic regression with robust variance",
		Top: []string{
			fmt.Sprintf("  Categories:         %6d", len(r.labels)),
			fmt.Sprintf("  Reference category: %6v", r.ref),
		},
		ColNames: []string{"Category", "Variable", "Coefficient", "Robust SE", "Robust Z", "Robust P"},
		Cols: [][]string{
			sandwich.FmtStrings(cat, "Category"),
			sandwich.FmtStrings(vna, "Variable"),
			sandwich.FmtFloats(coef),
			sandwich.FmtFloats(se),
			sandwich.FmtFloats(z),
			sandwich.FmtFloats(pv),
		},
	}

	return sum.String()
}
