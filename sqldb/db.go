// Package sqldb is the narrow persistence interface consumed by the exporter
// and importer, and its implementation over "database/sql". Connection pooling
// and credentials are the concern of the caller which constructs the *sqlx.DB.
package sqldb

import "context"

// DB is the set of database operations required to convert between documents
// and tables.
type DB interface {
	// Query runs |query| and returns all resulting Rows, with columns in
	// the order of the result set.
	Query(ctx context.Context, query string, args ...interface{}) ([]*Row, error)
	// Exec runs a statement which returns no rows.
	Exec(ctx context.Context, query string, args ...interface{}) error
	// Begin a transaction.
	Begin(ctx context.Context) (Tx, error)
	// TableExists is true if |table| exists in the current database.
	TableExists(ctx context.Context, table string) (bool, error)
	// TotalRowCount returns the number of rows of |table|.
	TotalRowCount(ctx context.Context, table string) (int, error)
	// DeleteAll removes every row of |table|.
	DeleteAll(ctx context.Context, table string) error
}

// Tx is a database transaction.
type Tx interface {
	// BatchInsert inserts |rows| into |table|. Rows may have differing
	// columns: the insert covers the union of columns, and absent values
	// are NULL.
	BatchInsert(ctx context.Context, table string, rows []*Row) error
	Commit() error
	Rollback() error
}
