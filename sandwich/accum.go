package sandwich

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Accumulator folds per-observation score contributions into a meat
// matrix.  Fold may be called any number of times; Finalize returns the
// accumulated matrix and may be called once folding is complete.
// Accumulators are not safe for concurrent use; each stratum owns its
// own accumulator exclusively until the final reduction.
type Accumulator interface {
	Fold(score []float64)
	Finalize() []float64
}

// MeatAccumulator accumulates the sum of outer products u·uᵀ of score
// vectors.  The zero accumulator for p parameters is obtained from
// NewMeatAccumulator(p).
type MeatAccumulator struct {
	p    int
	meat []float64
}

// NewMeatAccumulator returns an empty accumulator for score vectors of
// length p.
func NewMeatAccumulator(p int) *MeatAccumulator {
	return &MeatAccumulator{
		p:    p,
		meat: make([]float64, p*p),
	}
}

// Fold adds the outer product of u with itself to the accumulated matrix.
func (ma *MeatAccumulator) Fold(u []float64) {

	if len(u) != ma.p {
		msg := fmt.Sprintf("sandwich: score vector has length %d, expected %d", len(u), ma.p)
		panic(msg)
	}

	p := ma.p
	for j1 := 0; j1 < p; j1++ {
		v := u[j1]
		if v == 0 {
			continue
		}
		for j2 := 0; j2 <= j1; j2++ {
			w := v * u[j2]
			ma.meat[j1*p+j2] += w
			if j2 != j1 {
				ma.meat[j2*p+j1] += w
			}
		}
	}
}

// Finalize returns the accumulated meat matrix, vectorized row-major.
func (ma *MeatAccumulator) Finalize() []float64 {
	return ma.meat
}

// AddMeat adds src into dst elementwise.  This is the cross-stratum
// reduction; it is associative and commutative, so the order in which
// stratum results arrive does not matter.
func AddMeat(dst, src []float64) {
	floats.Add(dst, src)
}
