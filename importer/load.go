package importer

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/metrics"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
)

// load inserts the rows of |w| table by table, in configuration order.
func (im *Importer) load(ctx context.Context, w *walker) error {
	for _, n := range w.order {
		var table, rows = w.tables[n], w.rows[n]

		for off, batch := 0, 0; off < len(rows); off, batch = off+im.opts.BatchSize, batch+1 {
			var end = min(off+im.opts.BatchSize, len(rows))

			var err = im.batch(ctx, table, rows[off:end])
			metrics.ImportBatchesTotal.WithLabelValues(metrics.StatusOf(err)).Inc()

			if err != nil {
				return errors.WithMessagef(err, "table %s batch %d (rows %d-%d)", table, batch, off, end)
			}
			metrics.ImportRowsTotal.WithLabelValues(table).Add(float64(end - off))
			im.progress.Add(int64(end - off))
		}
		if len(rows) != 0 {
			log.WithFields(log.Fields{"table": table, "rows": len(rows)}).Debug("imported table")
		}
	}
	return nil
}

// batch inserts |rows| into |table| within a single transaction.
func (im *Importer) batch(ctx context.Context, table string, rows []*sqldb.Row) error {
	var txn, err = im.db.Begin(ctx)
	if err != nil {
		return err
	}
	if err = txn.BatchInsert(ctx, table, rows); err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			log.WithFields(log.Fields{"table": table, "err": rbErr}).Warn("failed to roll back batch")
		}
		return err
	}
	return txn.Commit()
}
