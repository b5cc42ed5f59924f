package sandwich

import (
	"fmt"
	"math"
)

// FittedModel contains the outputs of an already-estimated regression
// model.  It is produced once by an external fitting procedure and is
// an immutable input to the robust variance computation; nothing here
// re-fits the model.
type FittedModel struct {

	// The estimated coefficients.  For a multinomial model this is
	// the flattened (features x non-reference categories) vector.
	Coef []float64

	// The Hessian or Fisher information matrix at the fitted
	// coefficients, vectorized row-major.  Square, with dimension
	// equal to len(Coef).
	Hessian []float64

	// The log-likelihood at the fitted coefficients.
	LogLike float64

	// Model-based (non-robust) standard errors, optional.
	StdErr []float64
}

// Check validates the shape and contents of the fitted model outputs.
// Missing values are represented as NaN in memory; a NaN anywhere in
// the coefficients or Hessian means the fit did not produce a usable
// estimate and the run must abort before any numeric work begins.
func (fm *FittedModel) Check() error {

	if len(fm.Coef) == 0 {
		return fmt.Errorf("sandwich: model has no coefficients")
	}

	p := len(fm.Coef)
	if len(fm.Hessian) != p*p {
		return fmt.Errorf("sandwich: hessian has %d elements, expected %d x %d", len(fm.Hessian), p, p)
	}

	for j, c := range fm.Coef {
		if math.IsNaN(c) {
			return fmt.Errorf("sandwich: coefficient %d is null", j)
		}
	}

	for j, h := range fm.Hessian {
		if math.IsNaN(h) {
			return fmt.Errorf("sandwich: hessian element %d is null", j)
		}
	}

	if fm.StdErr != nil && len(fm.StdErr) != p {
		return fmt.Errorf("sandwich: std_err has %d elements, expected %d", len(fm.StdErr), p)
	}

	return nil
}
