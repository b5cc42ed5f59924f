package mlogit

import (
	"testing"

	"github.com/statkit/robust/sandwich"
)

// The reshaper emits exactly K-1 rows in ascending category order and
// never a row for the reference category.
func TestReshape(t *testing.T) {

	labels := []float64{1, 2, 3, 4}
	coef := []float64{1, 2, 3, 4, 5, 6}

	r := &Results{
		RobustResults: sandwich.NewRobustResults(coef, 0, nil, eye(6)),
		names:         []string{"X1", "X2"},
		labels:        labels,
		ref:           2,
		refix:         1,
		nfeat:         2,
	}

	rows := r.Reshape()
	if len(rows) != len(labels)-1 {
		t.Fatalf("expected %d rows, got %d", len(labels)-1, len(rows))
	}

	expectedCats := []float64{1, 3, 4}
	for i, cr := range rows {
		if cr.Category == 2 {
			t.Error("reshaper emitted a row for the reference category")
		}
		if cr.Category != expectedCats[i] {
			t.Errorf("row %d: got category %v, expected %v", i, cr.Category, expectedCats[i])
		}
		if cr.RefCategory != 2 {
			t.Errorf("row %d: ref category %v", i, cr.RefCategory)
		}
	}

	// Block mapping is order-stable: category 3 holds the second block.
	if rows[1].Coef[0] != 3 || rows[1].Coef[1] != 4 {
		t.Errorf("category 3 coefficients: got %v", rows[1].Coef)
	}

	// With an identity covariance the robust SE is 1 and z equals coef.
	for _, cr := range rows {
		for j := range cr.Coef {
			if cr.StdErr[j] != 1 {
				t.Errorf("robust SE: got %v", cr.StdErr[j])
			}
			if cr.ZStats[j] != cr.Coef[j] {
				t.Errorf("z: got %v for coef %v", cr.ZStats[j], cr.Coef[j])
			}
		}
	}
}

// End to end: a three-category model produces two output rows with the
// reference excluded.
func TestReshapeEndToEnd(t *testing.T) {

	da := [][]sandwich.Dtype{
		{0, 1, 2, 0, 1, 2},
		{1, 1, 1, 1, 1, 1},
	}
	varnames := []string{"Y", "X"}

	fm := &sandwich.FittedModel{
		Coef:    []float64{0.1, -0.2},
		Hessian: eye(2),
	}

	m, err := New(mlogitData(t, da, varnames), "Y", []string{"X"}, fm, nil)
	if err != nil {
		t.Fatal(err)
	}

	rslt, err := m.Robust()
	if err != nil {
		t.Fatal(err)
	}

	rows := rslt.Reshape()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, cr := range rows {
		if cr.Category == 0 {
			t.Error("reference category was emitted")
		}
		if cr.RefCategory != 0 {
			t.Errorf("ref category: got %v", cr.RefCategory)
		}
	}

	if rslt.Summary() == "" {
		t.Error("empty summary")
	}
}
