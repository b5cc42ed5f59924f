package relstore

import (
	"encoding/json"
	"fmt"
)

// CoxOutput is the single output row of a Cox robust variance run.
// The coefficients, log-likelihood, model standard errors and Hessian
// pass through from the original fit unchanged.
type CoxOutput struct {
	Coef     []float64
	LogLike  float64
	StdErr   []float64
	RobustSE []float64
	RobustZ  []float64
	RobustP  []float64
	Hessian  []float64
}

// MLogitOutputRow is one output row of a multinomial robust variance
// run, describing one non-reference category.
type MLogitOutputRow struct {
	Category    float64
	RefCategory float64
	Coef        []float64
	StdErr      []float64
	ZStats      []float64
	PValues     []float64
}

func encode(v []float64) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("relstore: %w", err)
	}
	return string(b), nil
}

// requireAbsent returns a distinct error if the output relation
// already exists; the caller must choose a fresh name or drop the
// table explicitly.
func (s *Store) requireAbsent(table string) error {
	ok, err := s.TableExists(table)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("relstore: output table '%s' already exists", table)
	}
	return nil
}

// WriteCoxOutput creates the named output relation and writes the
// single Cox result row.  It fails, creating nothing, if the relation
// already exists; if the insert fails the partially created relation
// is dropped so that no side effects remain.
func (s *Store) WriteCoxOutput(table string, row *CoxOutput) error {

	if err := s.requireAbsent(table); err != nil {
		return err
	}

	cols := map[string]string{}
	for name, v := range map[string][]float64{
		"coef": row.Coef, "std_err": row.StdErr, "robust_se": row.RobustSE,
		"robust_z": row.RobustZ, "robust_p": row.RobustP, "hessian": row.Hessian,
	} {
		enc, err := encode(v)
		if err != nil {
			return err
		}
		cols[name] = enc
	}

	q := fmt.Sprintf(
		`CREATE TABLE %s (coef TEXT, loglikelihood REAL, std_err TEXT,
		 robust_se TEXT, robust_z TEXT, robust_p TEXT, hessian TEXT)`, quoteIdent(table))
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("relstore: cannot create '%s': %w", table, err)
	}

	q = fmt.Sprintf(`INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?)`, quoteIdent(table))
	_, err := s.db.Exec(q, cols["coef"], row.LogLike, cols["std_err"],
		cols["robust_se"], cols["robust_z"], cols["robust_p"], cols["hessian"])
	if err != nil {
		s.DropTable(table)
		return fmt.Errorf("relstore: cannot write '%s': %w", table, err)
	}

	return nil
}

// WriteMLogitOutput creates the named output relation and writes one
// row per non-reference category.  It fails, creating nothing, if the
// relation already exists; on a failed insert the partially created
// relation is dropped.
func (s *Store) WriteMLogitOutput(table string, rows []MLogitOutputRow) error {

	if err := s.requireAbsent(table); err != nil {
		return err
	}

	q := fmt.Sprintf(
		`CREATE TABLE %s (category REAL, ref_category REAL, coef TEXT,
		 std_err TEXT, z_stats TEXT, p_values TEXT)`, quoteIdent(table))
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("relstore: cannot create '%s': %w", table, err)
	}

	ins := fmt.Sprintf(`INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?)`, quoteIdent(table))
	for _, r := range rows {
		var enc [4]string
		var err error
		for i, v := range [][]float64{r.Coef, r.StdErr, r.ZStats, r.PValues} {
			if enc[i], err = encode(v); err != nil {
				s.DropTable(table)
				return err
			}
		}
		_, err = s.db.Exec(ins, r.Category, r.RefCategory, enc[0], enc[1], enc[2], enc[3])
		if err != nil {
			s.DropTable(table)
			return fmt.Errorf("relstore: cannot write '%s': %w", table, err)
		}
	}

	return nil
}
