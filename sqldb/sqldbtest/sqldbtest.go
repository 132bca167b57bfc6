// Package sqldbtest provides test support for packages which consume a
// sqldb.DB: a file-backed SQLite database, and a DB wrapper which injects
// batch insert failures.
package sqldbtest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
)

// NewSQLite returns a SQL of a new SQLite database within the test's
// temporary directory, having executed |ddl| statements. The database is
// closed when the test completes.
func NewSQLite(t testing.TB, ddl ...string) *sqldb.SQL {
	var path = filepath.Join(t.TempDir(), "test.db")

	var db, err = sqldb.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ExecAll(context.Background(), ddl))
	return db
}

// Count returns the number of rows of |table|, failing the test on error.
func Count(t testing.TB, db sqldb.DB, table string) int {
	var n, err = db.TotalRowCount(context.Background(), table)
	require.NoError(t, err)
	return n
}

// FailingDB wraps a DB, failing the FailAt'th call (one-based) of
// Tx.BatchInsert across all transactions it begins.
type FailingDB struct {
	sqldb.DB
	FailAt int

	mu    sync.Mutex
	calls int
}

// ErrInjected is returned by the failing BatchInsert.
var ErrInjected = errors.New("injected batch failure")

// Begin a transaction of the wrapped DB.
func (f *FailingDB) Begin(ctx context.Context) (sqldb.Tx, error) {
	var txn, err = f.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: txn, db: f}, nil
}

// Calls returns the number of BatchInsert calls observed.
func (f *FailingDB) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingTx struct {
	sqldb.Tx
	db *FailingDB
}

func (t *failingTx) BatchInsert(ctx context.Context, table string, rows []*sqldb.Row) error {
	t.db.mu.Lock()
	t.db.calls++
	var fail = t.db.calls == t.db.FailAt
	t.db.mu.Unlock()

	// Insert first, so that a rollback is actually required to undo the batch.
	if err := t.Tx.BatchInsert(ctx, table, rows); err != nil {
		return err
	} else if fail {
		return ErrInjected
	}
	return nil
}
