// Package preload bulk-loads the child tables of a mapping ahead of export,
// indexing their rows by association value. A preloaded table answers the
// per-parent-row lookups of the exporter from memory, in place of one
// query per parent row.
package preload

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/task"
)

// Options of Load.
type Options struct {
	// MapType substituted into node SQL.
	MapType string
	// Workers bounds the number of concurrent table queries.
	// If zero, tables are loaded one at a time.
	Workers int
}

// Cache of preloaded child tables. A Cache is immutable once loaded, and
// is safe for concurrent use.
type Cache struct {
	tables map[string]*table
}

type table struct {
	sortField string
	desc      bool
	groups    map[string][]*sqldb.Row
	rows      int
}

// Load every child table of |cfg|. The WHERE clause of each child's SQL is
// stripped, while its ORDER BY is retained, and resulting rows are grouped on
// the child's association column. Grouping preserves query order, so each
// group is ordered exactly as the per-row query of the child would order it. Tables of world configurations are not
// preloaded: their association values are not stored columns, and they're
// always queried per parent row.
func Load(ctx context.Context, db sqldb.DB, cfg *mapping.TableConfig, opts Options) (*Cache, error) {
	var c = &Cache{tables: make(map[string]*table)}
	if cfg.IsWorld() {
		return c, nil
	}
	var mu sync.Mutex
	var group = task.NewGroup(ctx, max(opts.Workers, 1))

	for _, n := range cfg.Nodes() {
		if n.Parent == nil {
			continue
		}
		n := n
		group.Queue("preloading "+n.TableName, func(ctx context.Context) error {
			var t, err = loadTable(ctx, db, n, opts.MapType)
			if err != nil {
				return err
			}
			mu.Lock()
			c.tables[n.TableName] = t
			mu.Unlock()
			return nil
		})
	}
	group.GoRun()

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func loadTable(ctx context.Context, db sqldb.DB, n *mapping.Node, mapType string) (*table, error) {
	var started = time.Now()
	var query = mapping.Substitute(mapping.StripWhere(n.SQL), "", mapType)

	var rows, err = db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	var t = &table{groups: make(map[string][]*sqldb.Row), rows: len(rows)}
	t.sortField, t.desc = mapping.SortField(n.SQL)

	for _, r := range rows {
		// Rows having a NULL association can never be looked up.
		if v, ok := r.Get(n.Association.Local); ok {
			t.groups[v] = append(t.groups[v], r)
		}
	}

	log.WithFields(log.Fields{
		"table":   n.TableName,
		"rows":    len(rows),
		"groups":  len(t.groups),
		"sort":    t.sortField,
		"elapsed": time.Since(started),
	}).Debug("preloaded table")

	return t, nil
}

// Has is true if |table| was preloaded.
func (c *Cache) Has(table string) bool {
	var _, ok = c.tables[table]
	return ok
}

// Get returns the rows of |table| having association |value|, in the order
// of the table's SQL. The returned slice must not be modified.
func (c *Cache) Get(table, value string) []*sqldb.Row {
	if t, ok := c.tables[table]; ok {
		return t.groups[value]
	}
	return nil
}

// SortField returns the ORDER BY field of |table|, and whether it's
// descending.
func (c *Cache) SortField(table string) (string, bool) {
	if t, ok := c.tables[table]; ok {
		return t.sortField, t.desc
	}
	return "", false
}

// Rows returns the number of rows preloaded for |table|.
func (c *Cache) Rows(table string) int {
	if t, ok := c.tables[table]; ok {
		return t.rows
	}
	return 0
}
