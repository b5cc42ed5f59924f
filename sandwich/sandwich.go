package sandwich

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ConditionError reports that the bread matrix is singular or too
// ill-conditioned to invert.  The robust covariance cannot be formed in
// that case; failing here keeps NaN and Inf out of the reported
// standard errors.
type ConditionError struct {
	err error
}

func (e *ConditionError) Error() string {
	return e.err.Error()
}

func (e *ConditionError) Unwrap() error {
	return e.err
}

// IsConditionError reports whether err indicates a singular or
// near-singular bread matrix.
func IsConditionError(err error) bool {
	var ce *ConditionError
	return errors.As(err, &ce)
}

// RobustVcov assembles the robust covariance matrix V = B⁻¹·M·B⁻¹ from
// the bread matrix (the model's Hessian or information matrix) and the
// accumulated meat matrix, both vectorized row-major with dimension p.
// The bread appears twice, so its sign cancels: passing the Hessian of
// the log-likelihood or the (negated) observed information gives the
// same result.  Inversion happens exactly once per run; a singular or
// near-singular bread is reported as a ConditionError.
func RobustVcov(bread, meat []float64, p int) ([]float64, error) {

	if len(bread) != p*p || len(meat) != p*p {
		return nil, fmt.Errorf("sandwich: bread has %d elements and meat has %d, expected %d",
			len(bread), len(meat), p*p)
	}

	// Inverse may clobber its receiver's backing array, so work on a copy
	// and leave the caller's Hessian untouched for pass-through reporting.
	bc := make([]float64, p*p)
	copy(bc, bread)
	bmat := mat.NewDense(p, p, bc)

	binv := mat.NewDense(p, p, make([]float64, p*p))
	if err := binv.Inverse(bmat); err != nil {
		return nil, &ConditionError{
			err: fmt.Errorf("sandwich: cannot invert hessian: %w", err),
		}
	}

	mmat := mat.NewDense(p, p, meat)
	t := mat.NewDense(p, p, make([]float64, p*p))
	t.Mul(binv, mmat)
	v := mat.NewDense(p, p, make([]float64, p*p))
	v.Mul(t, binv)

	vcov := v.RawMatrix().Data
	for _, x := range vcov {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &ConditionError{
				err: fmt.Errorf("sandwich: hessian is too ill-conditioned, covariance is not finite"),
			}
		}
	}

	return vcov, nil
}
