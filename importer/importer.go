// Package importer loads a forest of tables from a document, as the inverse
// of package export.
//
// An import first clears every table of the mapping. The document is then
// walked depth-first, producing one row per mapped element, and rows are
// inserted table by table in batches having a transaction each. If any batch
// fails, every table of the mapping is cleared again: an import either
// loads the complete document, or leaves its tables empty.
package importer

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/metrics"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// Options of an Importer.
type Options struct {
	// BatchSize is the number of rows inserted by each transaction.
	BatchSize int `long:"batch-size" default:"500" description:"Number of rows inserted by each transaction"`
	// MapType substituted into table names.
	MapType string `long:"map-type" description:"Map type variant substituted into table names"`
}

// DefaultBatchSize is used for a zero-valued Options.BatchSize.
const DefaultBatchSize = 500

// Importer loads documents into tables.
type Importer struct {
	db       sqldb.DB
	fs       afero.Fs
	opts     Options
	progress *metrics.Progress
}

// New returns an Importer which writes to |db|, and reads files from |fs|.
func New(db sqldb.DB, fs afero.Fs, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Importer{db: db, fs: fs, opts: opts, progress: new(metrics.Progress)}
}

// Progress of the current (or last) import, in inserted rows.
func (im *Importer) Progress() *metrics.Progress { return im.progress }

// ImportFile imports the document at |path|, or at the configuration's
// FilePath if |path| is empty.
func (im *Importer) ImportFile(ctx context.Context, cfg *mapping.TableConfig, path string) error {
	if path == "" {
		path = cfg.FilePath
	}
	if path == "" {
		return errors.Errorf("table %s: no input path and no file_path", cfg.TableName)
	}
	var f, err = im.fs.Open(path)
	if err != nil {
		return errors.WithMessagef(err, "opening %s", path)
	}
	defer f.Close()

	return errors.WithMessagef(im.Import(ctx, cfg, f), "importing %s", path)
}

// Import the document read from |r| into the tables of |cfg|.
func (im *Importer) Import(ctx context.Context, cfg *mapping.TableConfig, r io.Reader) error {
	var started = time.Now()
	var tables = im.tableNames(cfg)
	im.progress.Reset()

	if err := im.clear(ctx, tables); err != nil {
		return err
	}
	var root, err = xmltree.Parse(r)
	if err != nil {
		return errors.WithMessagef(err, "importing %s", cfg.TableName)
	} else if root.Tag != cfg.XMLRootTag {
		return errors.Errorf("importing %s: document root <%s> is not <%s>",
			cfg.TableName, root.Tag, cfg.XMLRootTag)
	}

	var w = newWalker(cfg, im.opts.MapType)
	for _, item := range items(cfg, root) {
		w.row(&cfg.Node, item, nil)
	}

	var total = w.total()
	im.progress.SetTotal(int64(total))

	if err = im.load(ctx, w); err != nil {
		metrics.ImportClearsTotal.Inc()

		if clearErr := im.clear(ctx, tables); clearErr != nil {
			log.WithFields(log.Fields{"table": cfg.TableName, "err": clearErr}).
				Error("failed to clear tables after failed import")
			err = errors.WithMessagef(err, "clearing tables also failed (%v)", clearErr)
		}
		return errors.WithMessagef(err, "importing %s", cfg.TableName)
	}

	log.WithFields(log.Fields{
		"table":   cfg.TableName,
		"tables":  len(tables),
		"rows":    total,
		"elapsed": time.Since(started),
	}).Info("imported document")

	return nil
}

// tableNames returns the tables of |cfg|, having the map type substituted.
func (im *Importer) tableNames(cfg *mapping.TableConfig) []string {
	var out = cfg.TableNames()
	for i := range out {
		out[i] = mapping.Substitute(out[i], "", im.opts.MapType)
	}
	return out
}

// clear all rows of |tables|, longest name first so that child tables are
// cleared before their parents.
func (im *Importer) clear(ctx context.Context, tables []string) error {
	var order = append([]string(nil), tables...)
	sort.SliceStable(order, func(i, j int) bool { return len(order[i]) > len(order[j]) })

	for _, t := range order {
		if err := im.db.DeleteAll(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// items returns the elements of root table rows: the item elements beneath
// the root wrappers, or the root itself if the configuration has no item tag.
func items(cfg *mapping.TableConfig, root *xmltree.Element) []*xmltree.Element {
	if cfg.XMLItemTag == "" {
		return []*xmltree.Element{root}
	}
	var out []*xmltree.Element
	for _, container := range root.Descend(cfg.Wrappers...) {
		out = append(out, container.ChildrenByTag(cfg.XMLItemTag)...)
	}
	return out
}
