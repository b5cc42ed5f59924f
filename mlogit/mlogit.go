// Package mlogit computes Huber-White robust variance estimates for
// fitted multinomial logistic regression models.  The coefficients are
// expressed relative to a reference category, which has an implicit
// zero coefficient block; the flattened coefficient vector holds one
// block of length p (the number of features) per non-reference
// category, with blocks in ascending category-label order.
package mlogit

import (
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/statkit/robust/sandwich"
)

// Config defines configuration parameters for the multinomial robust
// variance computation.
type Config struct {

	// RefCategory is the reference category label.  If nil, the
	// lowest category label is used.
	RefCategory *float64

	// Categories optionally fixes the full category label set.  If
	// nil, the labels are the sorted distinct values of the response
	// in the dataset.  When given, every category must appear at
	// least once in the data.
	Categories []float64

	// Log, if not nil, receives diagnostic messages.
	Log *log.Logger
}

// DefaultConfig returns a default configuration for the multinomial
// robust variance computation.
func DefaultConfig() *Config {
	return &Config{}
}

// Model holds a fitted multinomial logistic regression model together
// with the observation table it was fit to.
type Model struct {

	// The names of the variables.  The order agrees with the order of 'data'.
	varnames []string

	// The data to which the model was fit
	data [][]sandwich.Dtype

	// Position of the response variable
	ypos int

	// Positions of the covariates
	xpos []int

	// The category labels, sorted ascending
	labels []float64

	// The reference category and its index in labels
	ref   float64
	refix int

	// The fitted coefficients (length p*(K-1)) and Hessian
	coef []float64
	hess []float64

	loglike float64
	stderr  []float64

	log *log.Logger
}

// NumObs returns the number of observations in the data set.
func (m *Model) NumObs() int {
	return len(m.data[0])
}

// NumFeatures returns the number of features (covariates).
func (m *Model) NumFeatures() int {
	return len(m.xpos)
}

// NumCategories returns the number of response categories, including
// the reference category.
func (m *Model) NumCategories() int {
	return len(m.labels)
}

// RefCategory returns the reference category label.
func (m *Model) RefCategory() float64 {
	return m.ref
}

// New prepares a robust variance computation for a fitted multinomial
// logistic regression model.  'response' names the categorical outcome
// variable and 'predictors' names the covariates, in the order matching
// the per-category blocks of the fitted coefficient vector.
func New(data sandwich.Dataset, response string, predictors []string, model *sandwich.FittedModel, config *Config) (*Model, error) {

	if config == nil {
		config = DefaultConfig()
	}

	getpos := func(vn string) (int, error) {
		p := data.Pos(vn)
		if p == -1 {
			return -1, fmt.Errorf("mlogit: variable '%s' not found in dataset", vn)
		}
		return p, nil
	}

	ypos, err := getpos(response)
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

	y := data.Data()[ypos]
	counts := make(map[float64]int)
	for i := range y {
		counts[y[i]]++
	}

	labels := config.Categories
	if labels == nil {
		for lab := range counts {
			labels = append(labels, lab)
		}
	} else {
		labels = append([]float64(nil), labels...)
	}
	sort.Float64s(labels)

	if len(labels) < 2 {
		return nil, fmt.Errorf("mlogit: response variable '%s' has fewer than two categories", response)
	}

	known := make(map[float64]bool)
	for _, lab := range labels {
		known[lab] = true
		if counts[lab] == 0 {
			return nil, fmt.Errorf("mlogit: category %v has no observations", lab)
		}
	}
	for lab := range counts {
		if !known[lab] {
			return nil, fmt.Errorf("mlogit: response value %v is not among the model categories", lab)
		}
	}

	ref := labels[0]
	if config.RefCategory != nil {
		ref = *config.RefCategory
	}
	refix := -1
	for k, lab := range labels {
		if lab == ref {
			refix = k
		}
	}
	if refix == -1 {
		return nil, fmt.Errorf("mlogit: invalid reference category %v", ref)
	}

	if err := model.Check(); err != nil {
		return nil, err
	}
	p := len(xpos)
	d := p * (len(labels) - 1)
	if len(model.Coef) != d {
		return nil, fmt.Errorf("mlogit: model has %d coefficients, expected %d features x %d categories = %d",
			len(model.Coef), p, len(labels)-1, d)
	}

	return &Model{
		varnames: data.Names(),
		data:     data.Data(),
		ypos:     ypos,
		xpos:     xpos,
		labels:   labels,
		ref:      ref,
		refix:    refix,
		coef:     model.Coef,
		hess:     model.Hessian,
		loglike:  model.LogLike,
		stderr:   model.StdErr,
		log:      config.Log,
	}, nil
}

// probs fills pr with the softmax probabilities of every category for
// row i, the reference category included.  The linear predictor of the
// reference category is fixed at zero; the largest predictor is
// subtracted before exponentiating for numerical stability.
func (m *Model) probs(i int, pr []float64) {

	b := 0
	p := len(m.xpos)
	for k := range m.labels {
		if k == m.refix {
			pr[k] = 0
			continue
		}
		var eta float64
		for j, c := range m.xpos {
			eta += m.coef[b*p+j] * float64(m.data[c][i])
		}
		pr[k] = eta
		b++
	}

	mx := floats.Max(pr)
	var tot float64
	for k := range pr {
		pr[k] = math.Exp(pr[k] - mx)
		tot += pr[k]
	}
	floats.Scale(1/tot, pr)
}

// score fills u (length p*(K-1)) with the per-observation score
// contribution for row i: the outer product of the indicator-minus-
// probability vector with the feature vector, flattened in the same
// block layout as the coefficients.
func (m *Model) score(i int, pr, u []float64) {

	m.probs(i, pr)

	y := m.data[m.ypos][i]
	p := len(m.xpos)

	b := 0
	for k, lab := range m.labels {
		if k == m.refix {
			continue
		}
		ind := 0.0
		if y == lab {
			ind = 1
		}
		resid := ind - pr[k]
		for j, c := range m.xpos {
			u[b*p+j] = resid * float64(m.data[c][i])
		}
		b++
	}
}

// Robust computes the sandwich covariance matrix for the model.
func (m *Model) Robust() (*Results, error) {

	d := len(m.coef)
	acc := sandwich.NewMeatAccumulator(d)

	pr := make([]float64, len(m.labels))
	u := make([]float64, d)
	for i := 0; i < m.NumObs(); i++ {
		m.score(i, pr, u)
		acc.Fold(u)
	}

	vcov, err := sandwich.RobustVcov(m.hess, acc.Finalize(), d)
	if err != nil {
		return nil, fmt.Errorf("mlogit: %w", err)
	}

	var names []string
	for _, k := range m.xpos {
		names = append(names, m.varnames[k])
	}

	return &Results{
		RobustResults: sandwich.NewRobustResults(m.coef, m.loglike, m.stderr, vcov),
		names:         names,
		labels:        m.labels,
		ref:           m.ref,
		refix:         m.refix,
		nfeat:         len(m.xpos),
	}, nil
}
