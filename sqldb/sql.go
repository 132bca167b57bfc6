package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Dialect is a supported SQL dialect.
type Dialect int

const (
	// MySQL is the production dialect.
	MySQL Dialect = iota
	// SQLite is supported for local use and testing.
	SQLite
)

// DialectOf returns the Dialect of a "database/sql" driver name.
func DialectOf(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return 0, errors.Errorf("unsupported database driver %q", driver)
	}
}

// maxParams bounds the number of bind parameters of one INSERT statement.
// SQLite's default limit is 32766; MySQL's is 65535.
const maxParams = 30000

// SQL is a DB implementation which utilizes a database having a
// "database/sql" compatible driver.
type SQL struct {
	DB      *sqlx.DB
	Dialect Dialect
}

var _ DB = &SQL{} // SQL is-a DB.

// Open a SQL of the driver and data source name.
func Open(driver, dsn string) (*SQL, error) {
	var dialect, err = DialectOf(driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithMessagef(err, "opening %s database", driver)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WithMessagef(err, "connecting to %s database", driver)
	}
	return &SQL{DB: db, Dialect: dialect}, nil
}

// Close the underlying *DB.
func (s *SQL) Close() error { return s.DB.Close() }

// Quote |ident| as an identifier. Both dialects accept backtick quoting.
func Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Query runs |query| and returns its Rows.
func (s *SQL) Query(ctx context.Context, query string, args ...interface{}) ([]*Row, error) {
	return queryRows(ctx, s.DB, query, args...)
}

// Exec runs a statement which returns no rows.
func (s *SQL) Exec(ctx context.Context, query string, args ...interface{}) error {
	var _, err = s.DB.ExecContext(ctx, query, args...)
	return errors.WithMessage(err, "exec")
}

// Begin a transaction.
func (s *SQL) Begin(ctx context.Context) (Tx, error) {
	var txn, err = s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "begin")
	}
	return &sqlTx{txn: txn, dialect: s.Dialect}, nil
}

// TableExists is true if |table| exists in the current database.
func (s *SQL) TableExists(ctx context.Context, table string) (bool, error) {
	var query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	if s.Dialect == SQLite {
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	var n int
	if err := s.DB.QueryRowxContext(ctx, query, table).Scan(&n); err != nil {
		return false, errors.WithMessagef(err, "checking existence of table %s", table)
	}
	return n != 0, nil
}

// TotalRowCount returns the number of rows of |table|.
func (s *SQL) TotalRowCount(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.DB.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+Quote(table)).Scan(&n); err != nil {
		return 0, errors.WithMessagef(err, "counting rows of %s", table)
	}
	return n, nil
}

// DeleteAll removes every row of |table|.
func (s *SQL) DeleteAll(ctx context.Context, table string) error {
	var res, err = s.DB.ExecContext(ctx, "DELETE FROM "+Quote(table))
	if err != nil {
		return errors.WithMessagef(err, "clearing table %s", table)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.WithFields(log.Fields{"table": table, "rows": n}).Debug("cleared table")
	}
	return nil
}

// ExecAll runs each of |stmts| in order, stopping at the first error.
func (s *SQL) ExecAll(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessagef(err, "exec %q", firstLine(stmt))
		}
	}
	return nil
}

type sqlTx struct {
	txn     *sqlx.Tx
	dialect Dialect
}

// BatchInsert inserts |rows| into |table| using multi-row INSERT statements.
func (t *sqlTx) BatchInsert(ctx context.Context, table string, rows []*Row) error {
	if len(rows) == 0 {
		return nil
	}
	// Union of columns, in order of first appearance.
	var cols []string
	var seen = make(map[string]struct{})
	for _, r := range rows {
		for _, c := range r.Columns() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				cols = append(cols, c)
			}
		}
	}
	if len(cols) == 0 {
		return t.insertDefaults(ctx, table, len(rows))
	}

	var perStmt = maxParams / len(cols)
	if perStmt == 0 {
		perStmt = 1
	}
	for len(rows) != 0 {
		var n = min(perStmt, len(rows))
		if err := t.insert(ctx, table, cols, rows[:n]); err != nil {
			return err
		}
		rows = rows[n:]
	}
	return nil
}

func (t *sqlTx) insert(ctx context.Context, table string, cols []string, rows []*Row) error {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(Quote(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(Quote(c))
	}
	b.WriteString(") VALUES ")

	var tuple = "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	var args = make([]interface{}, 0, len(cols)*len(rows))

	for i, r := range rows {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)

		for _, c := range cols {
			if v := r.Value(c); v != nil {
				args = append(args, *v)
			} else {
				args = append(args, nil)
			}
		}
	}
	if _, err := t.txn.ExecContext(ctx, b.String(), args...); err != nil {
		return errors.WithMessagef(err, "inserting %d rows into %s", len(rows), table)
	}
	return nil
}

// insertDefaults inserts |n| rows having only default column values.
// SQLite has no multi-row form of DEFAULT VALUES.
func (t *sqlTx) insertDefaults(ctx context.Context, table string, n int) error {
	var stmts []string
	if t.dialect == SQLite {
		for i := 0; i != n; i++ {
			stmts = append(stmts, "INSERT INTO "+Quote(table)+" DEFAULT VALUES")
		}
	} else {
		stmts = append(stmts, "INSERT INTO "+Quote(table)+" () VALUES "+
			strings.TrimSuffix(strings.Repeat("(), ", n), ", "))
	}
	for _, stmt := range stmts {
		if _, err := t.txn.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessagef(err, "inserting %d default rows into %s", n, table)
		}
	}
	return nil
}

func (t *sqlTx) Commit() error   { return errors.WithMessage(t.txn.Commit(), "commit") }
func (t *sqlTx) Rollback() error { return errors.WithMessage(t.txn.Rollback(), "rollback") }

type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

func queryRows(ctx context.Context, q queryer, query string, args ...interface{}) ([]*Row, error) {
	var rows, err = q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "query %q", firstLine(query))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.WithMessage(err, "reading result columns")
	}

	var out []*Row
	for rows.Next() {
		var vals, err = rows.SliceScan()
		if err != nil {
			return nil, errors.WithMessage(err, "scanning row")
		}
		var row = NewRow()
		for i, c := range cols {
			row.SetValue(c, toText(vals[i]))
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.WithMessagef(err, "query %q", firstLine(query))
	}
	return out, nil
}

// toText maps a scanned driver value to its textual representation.
func toText(v interface{}) *string {
	var s string

	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		s = string(t)
	case string:
		s = t
	case int64:
		s = strconv.FormatInt(t, 10)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.Format("2006-01-02 15:04:05")
	case sql.RawBytes:
		s = string(t)
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if ind := strings.IndexByte(s, '\n'); ind != -1 {
		return s[:ind] + " ..."
	}
	return s
}
