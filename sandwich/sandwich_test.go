package sandwich

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestMeatAccumulator(t *testing.T) {

	acc := NewMeatAccumulator(2)
	acc.Fold([]float64{1, 2})
	acc.Fold([]float64{3, -1})

	// [1 2]'[1 2] + [3 -1]'[3 -1]
	expected := []float64{10, -1, -1, 5}
	meat := acc.Finalize()

	for i := range expected {
		if meat[i] != expected[i] {
			t.Errorf("meat[%d]: got %v, expected %v", i, meat[i], expected[i])
		}
	}
}

// Folding all scores into one accumulator equals folding disjoint
// subsets separately and reducing with AddMeat.
func TestAddMeatAdditivity(t *testing.T) {

	scores := [][]float64{
		{1, 0.5}, {-2, 1}, {0.3, -0.7}, {1.5, 2}, {-1, -1},
	}

	whole := NewMeatAccumulator(2)
	for _, u := range scores {
		whole.Fold(u)
	}

	a := NewMeatAccumulator(2)
	b := NewMeatAccumulator(2)
	for i, u := range scores {
		if i < 2 {
			a.Fold(u)
		} else {
			b.Fold(u)
		}
	}

	total := make([]float64, 4)
	AddMeat(total, a.Finalize())
	AddMeat(total, b.Finalize())

	for i, w := range whole.Finalize() {
		if math.Abs(total[i]-w) > 1e-12 {
			t.Errorf("element %d: got %v, expected %v", i, total[i], w)
		}
	}
}

// An identity bread and identity meat collapse the sandwich to the
// model-based variance.
func TestRobustVcovIdentity(t *testing.T) {

	eye := []float64{1, 0, 0, 1}
	vcov, err := RobustVcov(eye, eye, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i, w := range eye {
		if math.Abs(vcov[i]-w) > 1e-12 {
			t.Errorf("vcov[%d]: got %v, expected %v", i, vcov[i], w)
		}
	}

	rr := NewRobustResults([]float64{1, 2}, 0, []float64{1, 1}, vcov)
	se := rr.RobustSE()
	for i := range se {
		if math.Abs(se[i]-rr.StdErr()[i]) > 1e-12 {
			t.Errorf("robust SE %d: got %v, expected %v", i, se[i], rr.StdErr()[i])
		}
	}
}

func TestRobustVcovDiagonal(t *testing.T) {

	bread := []float64{2, 0, 0, 4}
	meat := []float64{8, 0, 0, 16}

	vcov, err := RobustVcov(bread, meat, 2)
	if err != nil {
		t.Fatal(err)
	}

	expected := []float64{2, 0, 0, 1}
	for i := range expected {
		if math.Abs(vcov[i]-expected[i]) > 1e-12 {
			t.Errorf("vcov[%d]: got %v, expected %v", i, vcov[i], expected[i])
		}
	}
}

// The sign of the bread cancels.
func TestRobustVcovSign(t *testing.T) {

	bread := []float64{2, 0.5, 0.5, 4}
	neg := []float64{-2, -0.5, -0.5, -4}
	meat := []float64{3, 1, 1, 5}

	v1, err := RobustVcov(bread, meat, 2)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := RobustVcov(neg, meat, 2)
	if err != nil {
		t.Fatal(err)
	}

	for i := range v1 {
		if math.Abs(v1[i]-v2[i]) > 1e-12 {
			t.Errorf("vcov[%d]: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestRobustVcovSingular(t *testing.T) {

	bread := []float64{1, 1, 1, 1}
	meat := []float64{1, 0, 0, 1}

	vcov, err := RobustVcov(bread, meat, 2)
	if err == nil {
		t.Fatal("expected an error for a singular bread matrix")
	}
	if vcov != nil {
		t.Error("expected nil vcov on failure")
	}
	if !IsConditionError(err) {
		t.Errorf("expected a condition error, got %v", err)
	}
}

// The inversion must not clobber the caller's Hessian, which passes
// through to the output unchanged.
func TestRobustVcovPreservesBread(t *testing.T) {

	bread := []float64{2, 0, 0, 4}
	orig := make([]float64, len(bread))
	copy(orig, bread)

	if _, err := RobustVcov(bread, []float64{1, 0, 0, 1}, 2); err != nil {
		t.Fatal(err)
	}

	for i := range bread {
		if bread[i] != orig[i] {
			t.Fatalf("bread was modified at %d", i)
		}
	}
}

func TestRobustZP(t *testing.T) {

	vcov := []float64{1, 0, 0, 1}
	rr := NewRobustResults([]float64{1, -2}, 0, nil, vcov)

	z := rr.RobustZ()
	if math.Abs(z[0]-1) > 1e-12 || math.Abs(z[1]+2) > 1e-12 {
		t.Errorf("z: got %v", z)
	}

	// Cross-check the normal CDF against distuv.
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := rr.RobustP()
	for i := range p {
		want := 2 * norm.CDF(-math.Abs(z[i]))
		if math.Abs(p[i]-want) > 1e-10 {
			t.Errorf("p[%d]: got %v, expected %v", i, p[i], want)
		}
	}

	if math.Abs(p[0]-0.31731050786291415) > 1e-10 {
		t.Errorf("p[0]: got %v", p[0])
	}
}

func TestFittedModelCheck(t *testing.T) {

	good := &FittedModel{
		Coef:    []float64{1, 2},
		Hessian: []float64{1, 0, 0, 1},
		StdErr:  []float64{1, 1},
	}
	if err := good.Check(); err != nil {
		t.Fatal(err)
	}

	for _, fm := range []*FittedModel{
		{},
		{Coef: []float64{1}, Hessian: []float64{1, 2}},
		{Coef: []float64{math.NaN()}, Hessian: []float64{1}},
		{Coef: []float64{1}, Hessian: []float64{math.NaN()}},
		{Coef: []float64{1}, Hessian: []float64{1}, StdErr: []float64{1, 2}},
	} {
		if err := fm.Check(); err == nil {
			t.Errorf("expected error for %+v", fm)
		}
	}
}

func TestGroupByKeys(t *testing.T) {

	keys := [][]Dtype{{1, 1, 2, 2, 1}}
	inds, ix := GroupByKeys(keys, 5)

	if len(ix) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(ix))
	}

	// Stable: rows keep their original relative order within a group.
	expected := []int{0, 1, 4, 2, 3}
	for i := range expected {
		if inds[i] != expected[i] {
			t.Errorf("inds[%d]: got %d, expected %d", i, inds[i], expected[i])
		}
	}
	if ix[0] != [2]int{0, 3} || ix[1] != [2]int{3, 5} {
		t.Errorf("ranges: got %v", ix)
	}

	// Multi-column keys
	keys = [][]Dtype{{1, 1, 1, 2}, {1, 2, 1, 1}}
	_, ix = GroupByKeys(keys, 4)
	if len(ix) != 3 {
		t.Errorf("expected 3 groups, got %d", len(ix))
	}

	// No keys: a single implicit group
	_, ix = GroupByKeys(nil, 3)
	if len(ix) != 1 || ix[0] != [2]int{0, 3} {
		t.Errorf("implicit group: got %v", ix)
	}
}

func TestNewDataset(t *testing.T) {

	da := [][]Dtype{{1, 2}, {3, 4}}

	ds, err := NewDataset(da, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if ds.NumObs() != 2 || ds.Pos("B") != 1 || ds.Pos("C") != -1 {
		t.Error("dataset accessors")
	}

	if _, err := NewDataset(da, []string{"A"}); err == nil {
		t.Error("expected error for name/column mismatch")
	}
	if _, err := NewDataset([][]Dtype{{1, 2}, {3}}, []string{"A", "B"}); err == nil {
		t.Error("expected error for ragged columns")
	}
	if _, err := NewDataset(da, []string{"A", "A"}); err == nil {
		t.Error("expected error for duplicate names")
	}
}
