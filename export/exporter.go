// Package export converts a forest of tables into a document.
//
// The root table is split into pages of fixed size. Each page is converted
// by its own task, which queries its slice of root rows, builds a private
// document fragment, and writes it to a temporary file. Once all pages are
// complete, fragments are merged in page order into the final document.
//
// Within a page, the child tables of each row are populated recursively,
// from rows preloaded by package preload or (for world configurations) by a
// query per parent row. Sub-trees near the document root are populated
// concurrently through a depth-bounded task.Pool, and each is attached to its
// parent element only after it's complete.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/metrics"
	"github.com/xiaohan1105/axmltools-sub005/preload"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/task"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// Options of an Exporter.
type Options struct {
	// PageSize is the number of root rows of each page.
	PageSize int `long:"page-size" default:"1000" description:"Number of root rows exported by each page task"`
	// Workers bounds the number of concurrent page tasks.
	Workers int `long:"workers" default:"4" description:"Maximum number of concurrent page tasks"`
	// SubtreeWorkers bounds the number of concurrent sub-tree tasks.
	SubtreeWorkers int `long:"subtree-workers" default:"4" description:"Maximum number of concurrent sub-tree tasks"`
	// AsyncDepth is the depth from which sub-trees are populated inline.
	AsyncDepth int `long:"async-depth" default:"2" description:"Depth at which sub-tree population becomes synchronous"`
	// MapType substituted into configuration SQL.
	MapType string `long:"map-type" description:"Map type variant substituted into configuration SQL"`
	// TempDir of page files. If empty, the default temporary directory.
	TempDir string `long:"temp-dir" description:"Directory of temporary page files"`
	// Encoding of the exported document.
	Encoding xmltree.Encoding `no-flag:"true"`
}

// Defaults of Options which are zero-valued. Zero SubtreeWorkers or
// AsyncDepth populate all sub-trees inline.
var defaultOptions = Options{
	PageSize: 1000,
	Workers:  4,
}

// Exporter converts tables into documents. An Exporter may run one export
// at a time.
type Exporter struct {
	db       sqldb.DB
	fs       afero.Fs
	opts     Options
	progress *metrics.Progress

	mu    sync.Mutex
	stats task.Stats

	// pageHook, if non-nil, is invoked by each page task before its query.
	pageHook func(page int)
}

// New returns an Exporter which reads from |db| and writes temporary and
// output files to |fs|.
func New(db sqldb.DB, fs afero.Fs, opts Options) *Exporter {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultOptions.PageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultOptions.Workers
	}
	if opts.SubtreeWorkers < 0 {
		opts.SubtreeWorkers = 0
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Exporter{db: db, fs: fs, opts: opts, progress: new(metrics.Progress)}
}

// Progress of the current (or last) export, in root rows.
func (e *Exporter) Progress() *metrics.Progress { return e.progress }

// SubtreeStats returns sub-tree dispatch statistics of the last export.
func (e *Exporter) SubtreeStats() task.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ExportFile exports |cfg| to |path|, or to the configuration's FilePath if
// |path| is empty. A partially written file is removed on error.
func (e *Exporter) ExportFile(ctx context.Context, cfg *mapping.TableConfig, path string) error {
	if path == "" {
		path = cfg.FilePath
	}
	if path == "" {
		return errors.Errorf("table %s: no output path and no file_path", cfg.TableName)
	}
	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithMessagef(err, "creating directory of %s", path)
	}
	var f, err = e.fs.Create(path)
	if err != nil {
		return errors.WithMessagef(err, "creating %s", path)
	}
	if err = e.Export(ctx, cfg, f); err == nil {
		err = f.Close()
	} else {
		_ = f.Close()
	}
	if err != nil {
		_ = e.fs.Remove(path)
		return errors.WithMessagef(err, "exporting %s", path)
	}
	return nil
}

// job is the state of a single export.
type job struct {
	*Exporter
	cfg   *mapping.TableConfig
	cache *preload.Cache
	pool  *task.Pool
}

// Export |cfg| as a document written to |w|.
func (e *Exporter) Export(ctx context.Context, cfg *mapping.TableConfig, w io.Writer) error {
	var started = time.Now()
	var table = rootTable(cfg, e.opts.MapType)
	e.progress.Reset()

	var cache, err = preload.Load(ctx, e.db, cfg, preload.Options{
		MapType: e.opts.MapType,
		Workers: e.opts.Workers,
	})
	if err != nil {
		return errors.WithMessagef(err, "preloading sub-tables of %s", cfg.TableName)
	}
	total, err := e.db.TotalRowCount(ctx, table)
	if err != nil {
		return errors.WithMessagef(err, "exporting %s", cfg.TableName)
	}

	var pageSize = e.opts.PageSize
	if cfg.XMLItemTag == "" {
		// The root element is itself the single row.
		pageSize, total = 1, min(total, 1)
	}
	var pages = max((total+pageSize-1)/pageSize, 1)

	e.progress.SetTotal(int64(total))

	dir, err := afero.TempDir(e.fs, e.opts.TempDir, "axmltools-export-")
	if err != nil {
		return errors.WithMessage(err, "creating page directory")
	}
	defer func() {
		if err := e.fs.RemoveAll(dir); err != nil {
			log.WithFields(log.Fields{"dir": dir, "err": err}).Warn("failed to remove page directory")
		}
	}()

	var j = &job{
		Exporter: e,
		cfg:      cfg,
		cache:    cache,
		pool:     task.NewPool(e.opts.SubtreeWorkers, e.opts.AsyncDepth),
	}
	// Pages are independent: a failed page doesn't interrupt the others.
	var group = task.NewIndependentGroup(ctx, e.opts.Workers)
	var paths = make([]string, pages)

	for p := 0; p != pages; p++ {
		p := p
		paths[p] = filepath.Join(dir, fmt.Sprintf("page-%05d.xml", p))
		group.Queue(fmt.Sprintf("page %d", p), func(ctx context.Context) error {
			var err = j.page(ctx, p, pageSize, paths[p])
			metrics.ExportPagesTotal.WithLabelValues(metrics.StatusOf(err)).Inc()
			return err
		})
	}
	group.GoRun()
	err = group.Wait()
	j.recordStats()

	if err != nil {
		return errors.WithMessagef(err, "exporting %s", cfg.TableName)
	}
	root, err := j.merge(paths)
	if err != nil {
		return errors.WithMessagef(err, "merging pages of %s", cfg.TableName)
	}
	if err = xmltree.Write(w, root, e.opts.Encoding); err != nil {
		return errors.WithMessagef(err, "writing %s", cfg.TableName)
	}

	metrics.ExportRowsTotal.WithLabelValues(cfg.TableName).Add(float64(total))
	metrics.ExportDurationSeconds.Observe(time.Since(started).Seconds())

	log.WithFields(log.Fields{
		"table":   cfg.TableName,
		"rows":    total,
		"pages":   pages,
		"elapsed": time.Since(started),
	}).Info("exported document")

	return nil
}

// page converts root rows of page |p| into a fragment written to |path|.
func (j *job) page(ctx context.Context, p, pageSize int, path string) error {
	if j.pageHook != nil {
		j.pageHook(p)
	}
	var query = mapping.Paginate(
		mapping.Substitute(j.cfg.SQL, "", j.opts.MapType), pageSize, p*pageSize)

	var rows, err = j.db.Query(ctx, query)
	if err != nil {
		return err
	}

	var frag = xmltree.New(j.cfg.XMLRootTag)
	for _, row := range rows {
		var tag = j.cfg.XMLItemTag
		if tag == "" {
			tag = j.cfg.XMLRootTag
		}
		var el, err = j.row(ctx, &j.cfg.Node, tag, row, nil, 0)
		if err != nil {
			return err
		}
		frag.Append(el)
	}

	f, err := j.fs.Create(path)
	if err != nil {
		return errors.WithMessage(err, "creating page file")
	}
	if err = xmltree.Write(f, frag, xmltree.UTF16); err != nil {
		_ = f.Close()
		return errors.WithMessage(err, "writing page file")
	}
	if err = f.Close(); err != nil {
		return errors.WithMessage(err, "closing page file")
	}

	j.progress.Add(int64(len(rows)))
	log.WithFields(log.Fields{
		"table": j.cfg.TableName,
		"page":  p,
		"rows":  len(rows),
	}).Debug("exported page")

	return nil
}

// merge page fragments at |paths|, in order, into the final document.
func (j *job) merge(paths []string) (*xmltree.Element, error) {
	var root = xmltree.New(j.cfg.XMLRootTag)
	var items []*xmltree.Element

	for _, path := range paths {
		var f, err = j.fs.Open(path)
		if err != nil {
			return nil, errors.WithMessage(err, "opening page file")
		}
		frag, err := xmltree.Parse(f)
		_ = f.Close()

		if err != nil {
			return nil, errors.WithMessagef(err, "reading page file %s", filepath.Base(path))
		}
		items = append(items, frag.Children...)
	}

	if j.cfg.XMLItemTag == "" {
		// The single row element, if any, is the document root.
		if len(items) != 0 {
			root = items[0]
		}
	} else if len(items) != 0 {
		root.Ensure(j.cfg.Wrappers...).Append(items...)
	}
	if attr, ok := j.cfg.RootAttr(); ok {
		root.SetAttr(attr.Name, attr.Value)
	}
	return root, nil
}

func (j *job) recordStats() {
	var stats = j.pool.Stats()
	metrics.ExportSubtreesTotal.WithLabelValues(metrics.Async).Add(float64(stats.Async))
	metrics.ExportSubtreesTotal.WithLabelValues(metrics.Inline).Add(float64(stats.Inline))

	j.mu.Lock()
	j.stats = stats
	j.mu.Unlock()
}

// rootTable returns the database table of the root rows of |cfg|.
func rootTable(cfg *mapping.TableConfig, mapType string) string {
	var name = cfg.TableName
	if cfg.RealTableName != "" {
		name = cfg.RealTableName
	}
	return mapping.Substitute(name, "", mapType)
}
