// Package coxph computes Huber-White robust variance estimates for
// fitted Cox proportional hazards regression models with right
// censoring and optional stratification.  The model itself is fit
// elsewhere; this package consumes the fitted coefficients and Hessian
// together with the original observation table and produces the
// sandwich covariance matrix and derived statistics.
package coxph

import (
	"fmt"
	"log"
	"sort"

	"github.com/statkit/robust/sandwich"
)

// Config defines configuration parameters for the Cox robust variance
// computation.
type Config struct {

	// StatusVar is the name of the right-censoring indicator
	// variable: 1 for an observed event, 0 for a censored time.
	StatusVar string

	// StrataVars names the stratification variables, if any.  Rows
	// are grouped by equality of the stratum key tuple; with no
	// strata there is a single implicit group.
	StrataVars []string

	// Log, if not nil, receives diagnostic messages.
	Log *log.Logger
}

// DefaultConfig returns a default configuration for the Cox robust
// variance computation.
func DefaultConfig() *Config {
	return &Config{}
}

// Model holds a fitted Cox proportional hazards model together with
// the observation table it was fit to, prepared for the two ordered
// risk-set passes.
type Model struct {

	// The names of the variables.  The order agrees with the order of 'data'.
	varnames []string

	// The data to which the model was fit
	data [][]sandwich.Dtype

	// Positions of the time and status variables
	timepos   int
	statuspos int

	// Positions of the stratification variables
	stratapos []int

	// Positions of the covariates
	xpos []int

	// order[s] lists the row indices of stratum s, sorted by
	// descending time with ascending original row index breaking
	// ties.  Both risk-set passes walk this one total order; the
	// ascending pass walks it in reverse.
	order [][]int

	// The fitted coefficients and Hessian
	coef []float64
	hess []float64

	// Model-based results passed through to the output
	loglike float64
	stderr  []float64

	log *log.Logger
}

// NumObs returns the number of observations in the data set.
func (m *Model) NumObs() int {
	return len(m.data[0])
}

// NumParams returns the number of model parameters (regression coefficients).
func (m *Model) NumParams() int {
	return len(m.xpos)
}

// NumStrata returns the number of strata.
func (m *Model) NumStrata() int {
	return len(m.order)
}

// New prepares a robust variance computation for a fitted Cox model.
// 'time' names the duration variable and 'predictors' names the
// covariates, in the order matching the fitted coefficient vector.
func New(data sandwich.Dataset, time string, predictors []string, model *sandwich.FittedModel, config *Config) (*Model, error) {

	if config == nil {
		config = DefaultConfig()
	}
	if config.StatusVar == "" {
		return nil, fmt.Errorf("coxph: no status variable given")
	}

	if err := model.Check(); err != nil {
		return nil, err
	}
	if len(model.Coef) != len(predictors) {
		return nil, fmt.Errorf("coxph: model has %d coefficients but %d predictors were given",
			len(model.Coef), len(predictors))
	}

	getpos := func(vn string) (int, error) {
		p := data.Pos(vn)
		if p == -1 {
			return -1, fmt.Errorf("coxph: variable '%s' not found in dataset", vn)
		}
		return p, nil
	}

	timepos, err := getpos(time)
	if err != nil {
		return nil, err
	}
	statuspos, err := getpos(config.StatusVar)
	if err != nil {
		return nil, err
	}

	var xpos []int
	for _, xna := range predictors {
		xp, err := getpos(xna)
		if err != nil {
			return nil, err
		}
		xpos = append(xpos, xp)
	}

	var stratapos []int
	for _, sna := range config.StrataVars {
		sp, err := getpos(sna)
		if err != nil {
			return nil, err
		}
		stratapos = append(stratapos, sp)
	}

	m := &Model{
		varnames:  data.Names(),
		data:      data.Data(),
		timepos:   timepos,
		statuspos: statuspos,
		stratapos: stratapos,
		xpos:      xpos,
		coef:      model.Coef,
		hess:      model.Hessian,
		loglike:   model.LogLike,
		stderr:    model.StdErr,
		log:       config.Log,
	}

	if err := m.checkData(); err != nil {
		return nil, err
	}
	m.setupOrder()

	return m, nil
}

func (m *Model) checkData() error {

	time := m.data[m.timepos]
	status := m.data[m.statuspos]

	for i := range time {
		if time[i] < 0 {
			return fmt.Errorf("coxph: time variable '%s' has a negative value", m.varnames[m.timepos])
		}
		if status[i] != 0 && status[i] != 1 {
			return fmt.Errorf("coxph: status variable '%s' has values other than 0 and 1",
				m.varnames[m.statuspos])
		}
	}

	return nil
}

// setupOrder groups the rows by stratum, then orders each stratum by
// descending time, breaking ties by ascending original row index.
func (m *Model) setupOrder() {

	var keys [][]sandwich.Dtype
	for _, sp := range m.stratapos {
		keys = append(keys, m.data[sp])
	}

	inds, ix := sandwich.GroupByKeys(keys, m.NumObs())
	time := m.data[m.timepos]

	for _, r := range ix {
		rows := make([]int, r[1]-r[0])
		copy(rows, inds[r[0]:r[1]])
		sort.SliceStable(rows, func(a, b int) bool {
			if time[rows[a]] != time[rows[b]] {
				return time[rows[a]] > time[rows[b]]
			}
			return rows[a] < rows[b]
		})
		m.order = append(m.order, rows)
	}
}

// linpred returns the linear predictor for row i at the fitted coefficients.
func (m *Model) linpred(i int) float64 {
	var lp float64
	for j, k := range m.xpos {
		lp += m.coef[j] * float64(m.data[k][i])
	}
	return lp
}
