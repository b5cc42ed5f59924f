package relstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// CoxSummary describes how a Cox proportional hazards model was fit:
// the source table and the variable roles.  It must reference the same
// source table and variables the model outputs were produced from;
// that correspondence is not separately verifiable here.
type CoxSummary struct {
	SourceTable string
	TimeVar     string
	StatusVar   string
	IndepVars   []string
	StrataVars  []string
}

// MLogitSummary describes how a multinomial logistic regression model
// was fit.
type MLogitSummary struct {
	SourceTable string
	ResponseVar string
	IndepVars   []string
	RefCategory float64
}

func decodeNames(table, col string, raw sql.NullString) ([]string, error) {

	if !raw.Valid {
		return nil, nil
	}

	var v []string
	if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
		return nil, fmt.Errorf("relstore: cannot decode '%s.%s': %w", table, col, err)
	}

	return v, nil
}

// ReadCoxSummary reads the fit metadata for a Cox model.  The table
// must have the columns source_table, dependent_varname,
// independent_varname, status_varname and strata_colnames; the
// variable-list columns are JSON encoded and strata_colnames may be
// NULL for an unstratified fit.
func (s *Store) ReadCoxSummary(table string) (*CoxSummary, error) {

	err := s.RequireColumns(table,
		"source_table", "dependent_varname", "independent_varname", "status_varname", "strata_colnames")
	if err != nil {
		return nil, err
	}

	var src, dep, status sql.NullString
	var indep, strata sql.NullString
	q := fmt.Sprintf(
		`SELECT source_table, dependent_varname, independent_varname, status_varname, strata_colnames
		 FROM %s ORDER BY rowid LIMIT 1`, quoteIdent(table))
	if err := s.db.QueryRow(q).Scan(&src, &dep, &indep, &status, &strata); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("relstore: summary table '%s' is empty", table)
		}
		return nil, fmt.Errorf("relstore: %w", err)
	}

	for col, v := range map[string]sql.NullString{
		"source_table": src, "dependent_varname": dep, "status_varname": status, "independent_varname": indep,
	} {
		if !v.Valid {
			return nil, fmt.Errorf("relstore: '%s.%s' is null", table, col)
		}
	}

	cs := &CoxSummary{
		SourceTable: src.String,
		TimeVar:     dep.String,
		StatusVar:   status.String,
	}
	if cs.IndepVars, err = decodeNames(table, "independent_varname", indep); err != nil {
		return nil, err
	}
	if cs.StrataVars, err = decodeNames(table, "strata_colnames", strata); err != nil {
		return nil, err
	}

	return cs, nil
}

// ReadMLogitSummary reads the fit metadata for a multinomial logistic
// regression model.  The table must have the columns source_table,
// dependent_varname, independent_varname and ref_category.
func (s *Store) ReadMLogitSummary(table string) (*MLogitSummary, error) {

	err := s.RequireColumns(table,
		"source_table", "dependent_varname", "independent_varname", "ref_category")
	if err != nil {
		return nil, err
	}

	var src, dep, indep sql.NullString
	var ref sql.NullFloat64
	q := fmt.Sprintf(
		`SELECT source_table, dependent_varname, independent_varname, ref_category
		 FROM %s ORDER BY rowid LIMIT 1`, quoteIdent(table))
	if err := s.db.QueryRow(q).Scan(&src, &dep, &indep, &ref); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("relstore: summary table '%s' is empty", table)
		}
		return nil, fmt.Errorf("relstore: %w", err)
	}

	for col, v := range map[string]sql.NullString{
		"source_table": src, "dependent_varname": dep, "independent_varname": indep,
	} {
		if !v.Valid {
			return nil, fmt.Errorf("relstore: '%s.%s' is null", table, col)
		}
	}
	if !ref.Valid {
		return nil, fmt.Errorf("relstore: '%s.ref_category' is null", table)
	}

	ms := &MLogitSummary{
		SourceTable: src.String,
		ResponseVar: dep.String,
		RefCategory: ref.Float64,
	}
	if ms.IndepVars, err = decodeNames(table, "independent_varname", indep); err != nil {
		return nil, err
	}

	return ms, nil
}
