// Package relstore reads robust variance inputs from, and writes
// results to, a SQLite relation store.  It implements the
// schema/metadata surface of the computation: relation and column
// existence checks, observation-table reads, fitted-model reads, and
// output-relation creation.  Vector and matrix valued columns are
// stored as JSON-encoded arrays.
package relstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/statkit/robust/sandwich"
)

// Store is a handle to a SQLite relation store.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("relstore: cannot open '%s': %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableExists reports whether the named table exists.
func (s *Store) TableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("relstore: %w", err)
	}
	return n > 0, nil
}

// RequireTable returns a distinct error if the named table does not exist.
func (s *Store) RequireTable(name string) error {
	ok, err := s.TableExists(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("relstore: table '%s' does not exist", name)
	}
	return nil
}

// RequireColumns returns a distinct error naming the first requested
// column that is missing from the table.
func (s *Store) RequireColumns(table string, cols ...string) error {

	if err := s.RequireTable(table); err != nil {
		return err
	}

	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("relstore: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("relstore: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("relstore: %w", err)
	}

	for _, c := range cols {
		if !have[c] {
			return fmt.Errorf("relstore: table '%s' has no column '%s'", table, c)
		}
	}

	return nil
}

// DropTable drops the named table if it exists.
func (s *Store) DropTable(name string) error {
	_, err := s.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name)))
	if err != nil {
		return fmt.Errorf("relstore: cannot drop '%s': %w", name, err)
	}
	return nil
}

// ReadDataset reads the requested columns of a table into a
// column-major Dataset.  Rows with a NULL in any requested column
// carry no information for the estimator and are excluded.
func (s *Store) ReadDataset(table string, columns []string) (sandwich.Dataset, error) {

	if err := s.RequireColumns(table, columns...); err != nil {
		return sandwich.Dataset{}, err
	}

	var qc []string
	for _, c := range columns {
		qc = append(qc, quoteIdent(c))
	}
	q := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(qc, ", "), quoteIdent(table))

	rows, err := s.db.Query(q)
	if err != nil {
		return sandwich.Dataset{}, fmt.Errorf("relstore: %w", err)
	}
	defer rows.Close()

	data := make([][]sandwich.Dtype, len(columns))
	vals := make([]sql.NullFloat64, len(columns))
	ptrs := make([]interface{}, len(columns))
	for j := range vals {
		ptrs[j] = &vals[j]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return sandwich.Dataset{}, fmt.Errorf("relstore: %w", err)
		}
		ok := true
		for j := range vals {
			if !vals[j].Valid {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for j := range vals {
			data[j] = append(data[j], vals[j].Float64)
		}
	}
	if err := rows.Err(); err != nil {
		return sandwich.Dataset{}, fmt.Errorf("relstore: %w", err)
	}

	if len(data[0]) == 0 {
		return sandwich.Dataset{}, fmt.Errorf("relstore: table '%s' has no complete rows", table)
	}

	return sandwich.NewDataset(data, columns)
}

// decodeVector decodes a JSON array column, rejecting SQL NULL and
// null entries inside the array with distinct messages.
func decodeVector(table, col string, raw sql.NullString) ([]float64, error) {

	if !raw.Valid {
		return nil, fmt.Errorf("relstore: '%s.%s' is null", table, col)
	}

	var vp []*float64
	if err := json.Unmarshal([]byte(raw.String), &vp); err != nil {
		return nil, fmt.Errorf("relstore: cannot decode '%s.%s': %w", table, col, err)
	}

	v := make([]float64, len(vp))
	for i, x := range vp {
		if x == nil {
			return nil, fmt.Errorf("relstore: '%s.%s' contains a null entry", table, col)
		}
		v[i] = *x
	}

	return v, nil
}

// ReadModel reads the fitted model outputs from the named table, which
// must have the columns coef, loglikelihood, std_err and hessian, with
// the array-valued columns JSON encoded.  If the table holds more than
// one row, the first row by rowid is used; the returned count lets the
// caller surface a warning for that ambiguity.  The selection is
// deterministic but the extra rows are a modeling error upstream.
func (s *Store) ReadModel(table string) (*sandwich.FittedModel, int, error) {

	if err := s.RequireColumns(table, "coef", "loglikelihood", "std_err", "hessian"); err != nil {
		return nil, 0, err
	}

	var n int
	if err := s.db.QueryRow(fmt.Sprintf(`SELECT count(*) FROM %s`, quoteIdent(table))).Scan(&n); err != nil {
		return nil, 0, fmt.Errorf("relstore: %w", err)
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("relstore: model table '%s' is empty", table)
	}

	var coef, se, hess sql.NullString
	var ll sql.NullFloat64
	q := fmt.Sprintf(`SELECT coef, loglikelihood, std_err, hessian FROM %s ORDER BY rowid LIMIT 1`,
		quoteIdent(table))
	if err := s.db.QueryRow(q).Scan(&coef, &ll, &se, &hess); err != nil {
		return nil, 0, fmt.Errorf("relstore: %w", err)
	}

	fm := &sandwich.FittedModel{}
	var err error

	if fm.Coef, err = decodeVector(table, "coef", coef); err != nil {
		return nil, 0, err
	}
	if fm.Hessian, err = decodeVector(table, "hessian", hess); err != nil {
		return nil, 0, err
	}
	if se.Valid {
		if fm.StdErr, err = decodeVector(table, "std_err", se); err != nil {
			return nil, 0, err
		}
	}
	if ll.Valid {
		fm.LogLike = ll.Float64
	}

	if err := fm.Check(); err != nil {
		return nil, 0, err
	}

	return fm, n, nil
}
