package mlogit

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/optimize"
)

// FitConfig holds the optimizer settings recognized for the external
// multinomial fitting procedure.  The robust variance computation never
// re-fits the model; these settings validate caller input and are
// handed to the fitting collaborator.
type FitConfig struct {

	// Maximum number of optimizer iterations
	MaxIter int

	// Optimizer name: "irls", or "newton" as an alias of "irls"
	Optimizer string

	// Convergence tolerance
	Tolerance float64
}

// DefaultFitConfig returns the default optimizer settings.
func DefaultFitConfig() *FitConfig {
	return &FitConfig{
		MaxIter:   20,
		Optimizer: "irls",
		Tolerance: 1e-4,
	}
}

// ParseFitParams builds a FitConfig from string-valued parameters.
// Recognized keys are max_iter, optimizer and tolerance; the legacy
// aliases max_num_iterations and precision are honored when the
// canonical key is absent.  Unrecognized keys are an error.
func ParseFitParams(params map[string]string) (*FitConfig, error) {

	fc := DefaultFitConfig()

	for key := range params {
		switch key {
		case "max_iter", "max_num_iterations", "optimizer", "tolerance", "precision":
		default:
			return nil, fmt.Errorf("mlogit: unrecognized parameter '%s'", key)
		}
	}

	lookup := func(key, alias string) (string, bool) {
		if v, ok := params[key]; ok {
			return v, true
		}
		if alias != "" {
			if v, ok := params[alias]; ok {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := lookup("max_iter", "max_num_iterations"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("mlogit: max_iter must be an integer, got '%s'", v)
		}
		fc.MaxIter = n
	}

	if v, ok := lookup("optimizer", ""); ok {
		fc.Optimizer = v
	}

	if v, ok := lookup("tolerance", "precision"); ok {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("mlogit: tolerance must be a number, got '%s'", v)
		}
		fc.Tolerance = x
	}

	if err := fc.Check(); err != nil {
		return nil, err
	}

	return fc, nil
}

// Check validates the settings.  The optimizer name is normalized to
// lower case, with "newton" treated as an alias of "irls".
func (fc *FitConfig) Check() error {

	if fc.MaxIter <= 0 {
		return fmt.Errorf("mlogit: max_iter must be positive, got %d", fc.MaxIter)
	}

	if fc.Tolerance < 0 {
		return fmt.Errorf("mlogit: tolerance must be non-negative, got %v", fc.Tolerance)
	}

	switch strings.ToLower(fc.Optimizer) {
	case "irls":
		fc.Optimizer = "irls"
	case "newton":
		fc.Optimizer = "irls"
	default:
		return fmt.Errorf("mlogit: unknown optimizer '%s'", fc.Optimizer)
	}

	return nil
}

// OptSettings translates the fit configuration into Gonum optimization
// settings for the fitting collaborator.
func (fc *FitConfig) OptSettings() *optimize.Settings {
	return &optimize.Settings{
		MajorIterations:   fc.MaxIter,
		GradientThreshold: fc.Tolerance,
	}
}
