package sandwich

import "math"

// RobustResults holds the robust covariance matrix for a fitted model
// together with the pass-through values from the original fit.  The
// derived quantities (robust standard errors, Z-scores, p-values) are
// computed lazily and cached.
type RobustResults struct {
	coef    []float64
	loglike float64
	stderr  []float64
	vcov    []float64

	robustSE []float64
	robustZ  []float64
	robustP  []float64
}

// NewRobustResults returns a RobustResults for the given fitted
// coefficients and robust covariance matrix.  The coefficients,
// log-likelihood, and model-based standard errors pass through from
// the original fit unchanged.
func NewRobustResults(coef []float64, loglike float64, stderr, vcov []float64) *RobustResults {
	return &RobustResults{
		coef:    coef,
		loglike: loglike,
		stderr:  stderr,
		vcov:    vcov,
	}
}

// Coef returns the fitted coefficients.
func (rr *RobustResults) Coef() []float64 {
	return rr.coef
}

// LogLike returns the log-likelihood of the original fit.
func (rr *RobustResults) LogLike() float64 {
	return rr.loglike
}

// StdErr returns the model-based standard errors from the original fit,
// or nil if they were not provided.
func (rr *RobustResults) StdErr() []float64 {
	return rr.stderr
}

// VCov returns the robust covariance matrix, vectorized to one dimension.
func (rr *RobustResults) VCov() []float64 {
	return rr.vcov
}

// RobustSE returns the robust standard errors (the square roots of the
// diagonal of the robust covariance matrix).
func (rr *RobustResults) RobustSE() []float64 {

	if rr.robustSE != nil {
		return rr.robustSE
	}

	p := len(rr.coef)
	rr.robustSE = make([]float64, p)
	for i := range rr.robustSE {
		rr.robustSE[i] = math.Sqrt(rr.vcov[i*p+i])
	}

	return rr.robustSE
}

// RobustZ returns the Z-scores formed from the coefficients and the
// robust standard errors.
func (rr *RobustResults) RobustZ() []float64 {

	if rr.robustZ != nil {
		return rr.robustZ
	}

	se := rr.RobustSE()
	rr.robustZ = make([]float64, len(se))
	for i := range se {
		rr.robustZ[i] = rr.coef[i] / se[i]
	}

	return rr.robustZ
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// RobustP returns the two-sided p-values for the null hypothesis that
// each coefficient's population value is zero, based on the robust
// Z-scores and the standard normal distribution.
func (rr *RobustResults) RobustP() []float64 {

	if rr.robustP != nil {
		return rr.robustP
	}

	z := rr.RobustZ()
	rr.robustP = make([]float64, len(z))
	for i := range z {
		rr.robustP[i] = 2 * normcdf(-math.Abs(z[i]))
	}

	return rr.robustP
}
