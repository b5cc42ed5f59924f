package coxph

import (
	"math"
	"testing"

	"github.com/statkit/robust/sandwich"
)

func coxData(t *testing.T, da [][]sandwich.Dtype, varnames []string) sandwich.Dataset {
	t.Helper()
	ds, err := sandwich.NewDataset(da, varnames)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func coxModel(t *testing.T, da [][]sandwich.Dtype, varnames []string, fm *sandwich.FittedModel, config *Config) *Model {
	t.Helper()
	m, err := New(coxData(t, da, varnames), "Time", []string{"X"}, fm, config)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// The running risk-set prefix for four observations with a tied time,
// beta = 0.5.  Reading in time-descending order, the cumulative hazard
// weights must be exactly [e^0.5, 2e^0.5, 2e^0.5+1, 2e^0.5+2].
func TestRiskSetPrefix(t *testing.T) {

	da := [][]sandwich.Dtype{
		{5, 3, 3, 1},
		{1, 0, 1, 1},
		{1, 1, 0, 0},
	}
	varnames := []string{"Time", "Status", "X"}

	fm := &sandwich.FittedModel{
		Coef:    []float64{0.5},
		Hessian: []float64{1},
	}

	config := DefaultConfig()
	config.StatusVar = "Status"
	m := coxModel(t, da, varnames, fm, config)

	if len(m.order) != 1 {
		t.Fatalf("expected 1 stratum, got %d", len(m.order))
	}

	rs := m.buildRiskSet(m.order[0])

	e05 := math.Exp(0.5)
	expected := []float64{e05, 2 * e05, 2*e05 + 1, 2*e05 + 2}

	for k := range expected {
		if math.Abs(rs.S[k]-expected[k]) > 1e-12 {
			t.Errorf("S[%d]: got %v, expected %v", k, rs.S[k], expected[k])
		}
	}

	// H accumulates only the x=1 rows under this covariate pattern.
	expectedH := []float64{e05, 2 * e05, 2 * e05, 2 * e05}
	for k := range expectedH {
		if math.Abs(rs.H[k][0]-expectedH[k]) > 1e-12 {
			t.Errorf("H[%d]: got %v, expected %v", k, rs.H[k][0], expectedH[k])
		}
	}
}

// Reversing the order of rows with identical times must not change the
// S and H totals, and with tie-pooled event updates the accumulated
// meat matrix is identical as well.
func TestTieOrderInvariance(t *testing.T) {

	da1 := [][]sandwich.Dtype{
		{5, 3, 3, 1},
		{1, 0, 1, 1},
		{1, 1, 0, 0},
	}
	// The two tied rows appear in the opposite input order.
	da2 := [][]sandwich.Dtype{
		{5, 3, 3, 1},
		{1, 1, 0, 1},
		{1, 0, 1, 0},
	}
	varnames := []string{"Time", "Status", "X"}

	fm := &sandwich.FittedModel{
		Coef:    []float64{0.5},
		Hessian: []float64{1},
	}

	config := DefaultConfig()
	config.StatusVar = "Status"

	m1 := coxModel(t, da1, varnames, fm, config)
	m2 := coxModel(t, da2, varnames, fm, config)

	rs1 := m1.buildRiskSet(m1.order[0])
	rs2 := m2.buildRiskSet(m2.order[0])

	n := len(rs1.S)
	if math.Abs(rs1.S[n-1]-rs2.S[n-1]) > 1e-12 {
		t.Errorf("S totals differ: %v != %v", rs1.S[n-1], rs2.S[n-1])
	}
	if math.Abs(rs1.H[n-1][0]-rs2.H[n-1][0]) > 1e-12 {
		t.Errorf("H totals differ: %v != %v", rs1.H[n-1][0], rs2.H[n-1][0])
	}

	mt1 := m1.stratumMeat(m1.order[0])
	mt2 := m2.stratumMeat(m2.order[0])
	if math.Abs(mt1[0]-mt2[0]) > 1e-12 {
		t.Errorf("meat differs across tie orders: %v != %v", mt1[0], mt2[0])
	}
}

func TestDataValidation(t *testing.T) {

	varnames := []string{"Time", "Status", "X"}
	fm := &sandwich.FittedModel{
		Coef:    []float64{0.5},
		Hessian: []float64{1},
	}

	type tcase struct {
		da     [][]sandwich.Dtype
		status string
	}

	for _, tc := range []tcase{
		// Status value outside {0, 1}
		{[][]sandwich.Dtype{{1, 2}, {1, 2}, {1, 0}}, "Status"},
		// Negative time
		{[][]sandwich.Dtype{{1, -2}, {1, 0}, {1, 0}}, "Status"},
		// Missing status variable
		{[][]sandwich.Dtype{{1, 2}, {1, 0}, {1, 0}}, "NoSuchVar"},
	} {
		config := DefaultConfig()
		config.StatusVar = tc.status
		_, err := New(coxData(t, tc.da, varnames), "Time", []string{"X"}, fm, config)
		if err == nil {
			t.Errorf("expected error for %v", tc)
		}
	}

	// No status variable configured at all
	_, err := New(coxData(t, [][]sandwich.Dtype{{1, 2}, {1, 0}, {1, 0}}, varnames),
		"Time", []string{"X"}, fm, nil)
	if err == nil {
		t.Error("expected error for missing status configuration")
	}

	// Coefficient count does not match predictors
	config := DefaultConfig()
	config.StatusVar = "Status"
	fm2 := &sandwich.FittedModel{
		Coef:    []float64{0.5, 1},
		Hessian: []float64{1, 0, 0, 1},
	}
	_, err = New(coxData(t, [][]sandwich.Dtype{{1, 2}, {1, 0}, {1, 0}}, varnames),
		"Time", []string{"X"}, fm2, config)
	if err == nil {
		t.Error("expected error for coefficient/predictor mismatch")
	}
}
