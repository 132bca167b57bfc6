package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/schema"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

type cmdInfer struct {
	Samples   []string `long:"sample" short:"s" required:"true" description:"Sample document from which a mapping and tables are inferred. May be repeated"`
	Corpus    []string `long:"corpus" description:"Additional documents scanned for maximum field lengths. May be repeated, and may be a glob"`
	RootTable string   `long:"root-table" description:"Name of the root table. Defaults to the document root tag. Requires a single --sample"`
	NameLimit int      `long:"name-limit" default:"60" description:"Maximum length of table names"`
	Dialect   string   `long:"dialect" default:"mysql" choice:"mysql" choice:"sqlite3" description:"SQL dialect of generated DDL. With --apply, the dialect of --db.driver is used"`
	ConfigOut string   `long:"config-out" description:"Path of the inferred mapping configuration, encoded as YAML for a .yaml or .yml extension, or else JSON. If empty, it's written to stdout. Requires a single --sample"`
	DDLOut    string   `long:"ddl-out" description:"Path of the DDL script. If empty, it's written to stdout. Requires a single --sample"`
	OutDir    string   `long:"out-dir" description:"Directory into which each sample's configuration and DDL are written, as <table>.json and <table>.sql"`
	Apply     bool     `long:"apply" description:"Execute the DDL against the configured database, replacing existing tables"`
}

func init() {
	commands.AddCommand("", "infer", "Infer mappings and tables from sample documents", `
Infer a mapping configuration, and DDL of its tables, from each sample document.

Leaf elements and attributes become columns. An element enclosing only
instances of a single complex element is a wrapper: it's skipped, and recorded
as the addDataNode path of the table beneath it. Every other element having
attributes or child elements becomes a table. Column types are sized by the
longest value observed within the samples and any --corpus documents.

Documents which can't be read or inferred are logged and skipped, and the
command fails after processing the remaining documents.

Generate a configuration and DDL script:
>    axmltools infer --sample client/npcs.xml --corpus 'client/npcs_*.xml' \
>        --config-out configs/npcs.json --ddl-out ddl/npcs.sql

Generate configurations of many samples, and create their tables:
>    axmltools infer --db.dsn ... --sample client/npcs.xml --sample client/items.xml \
>        --out-dir configs --apply
`, &cmdInfer{})
}

func (cmd *cmdInfer) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var db *sqldb.SQL
	if cmd.Apply {
		db = baseCfg.DB.MustOpen()
		defer db.Close()
	}
	return cmd.run(ctx, afero.NewOsFs(), db)
}

// run inference of each sample, continuing past samples which fail. DDL is
// applied to |db| if it's non-nil.
func (cmd *cmdInfer) run(ctx context.Context, fs afero.Fs, db *sqldb.SQL) error {
	if len(cmd.Samples) > 1 && (cmd.ConfigOut != "" || cmd.DDLOut != "" || cmd.RootTable != "") {
		return errors.New("--config-out, --ddl-out and --root-table require a single --sample (use --out-dir)")
	}
	var opts = schema.Options{
		RootTableName: cmd.RootTable,
		NameLimit:     cmd.NameLimit,
	}
	var err error
	if db != nil {
		opts.Dialect = db.Dialect
	} else if opts.Dialect, err = sqldb.DialectOf(cmd.Dialect); err != nil {
		return err
	}

	var paths = append([]string(nil), cmd.Samples...)
	for _, pattern := range cmd.Corpus {
		var m, err = afero.Glob(fs, pattern)
		if err != nil {
			return errors.WithMessagef(err, "expanding %q", pattern)
		}
		paths = append(paths, m...)
	}
	paths = dedupe(paths)

	var failed map[string]error
	opts.ObservedLengths, failed = collectLengths(fs, paths)
	var errs = len(failed)

	for _, sample := range cmd.Samples {
		if _, ok := failed[sample]; ok {
			continue // Already logged.
		}
		if err := cmd.inferSample(ctx, fs, db, sample, opts); err != nil {
			log.WithFields(log.Fields{"sample": sample, "err": err}).Error("inference failed")
			errs += 1
		}
	}
	if errs != 0 {
		return errors.Errorf("%d of %d documents failed", errs, len(paths))
	}
	return nil
}

func (cmd *cmdInfer) inferSample(ctx context.Context, fs afero.Fs, db *sqldb.SQL, sample string, opts schema.Options) error {
	var root, err = readDocument(fs, sample)
	if err != nil {
		return err
	}
	res, err := schema.Infer(root, opts)
	if err != nil {
		return errors.WithMessagef(err, "inferring %s", sample)
	}
	res.Config.FilePath = sample

	var configOut, ddlOut = cmd.ConfigOut, cmd.DDLOut
	if cmd.OutDir != "" {
		configOut = filepath.Join(cmd.OutDir, res.Config.TableName+".json")
		ddlOut = filepath.Join(cmd.OutDir, res.Config.TableName+".sql")
	}

	if err = writeOutput(fs, configOut, func(w io.Writer) error {
		return mapping.Encode(w, res.Config, mapping.FormatOf(configOut))
	}); err != nil {
		return errors.WithMessage(err, "writing configuration")
	}
	if err = writeOutput(fs, ddlOut, func(w io.Writer) error {
		var _, err = io.WriteString(w, res.Script())
		return err
	}); err != nil {
		return errors.WithMessage(err, "writing DDL")
	}

	if db != nil {
		if err = db.ExecAll(ctx, res.DDL()); err != nil {
			return errors.WithMessage(err, "applying DDL")
		}
	}

	var names []string
	for _, t := range res.Tables {
		names = append(names, t.Name)
	}
	log.WithFields(log.Fields{
		"sample":  sample,
		"tables":  strings.Join(names, ","),
		"applied": db != nil,
	}).Info("inferred schema")

	return nil
}

func readDocument(fs afero.Fs, path string) (*xmltree.Element, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := xmltree.Parse(f)
	return root, errors.WithMessagef(err, "reading %s", path)
}

// collectLengths of documents at |paths|, which are read one at a time.
// Documents which fail to scan are logged, and returned with their error.
func collectLengths(fs afero.Fs, paths []string) (map[string]int, map[string]error) {
	var out = make(map[string]int)
	var failed = make(map[string]error)

	for _, path := range paths {
		var lengths, err = scanLengths(fs, path)
		if err != nil {
			log.WithFields(log.Fields{"path": path, "err": err}).Error("failed to scan document")
			failed[path] = err
			continue
		}
		for name, n := range lengths {
			if n > out[name] {
				out[name] = n
			}
		}
	}
	return out, failed
}

func scanLengths(fs afero.Fs, path string) (map[string]int, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lengths, err := schema.CollectLengths(f)
	return lengths, errors.WithMessagef(err, "scanning %s", path)
}

func dedupe(paths []string) []string {
	var out []string
	var seen = make(map[string]struct{}, len(paths))

	for _, p := range paths {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// writeOutput invokes |fn| with the file at |path|, or with stdout if
// |path| is empty.
func writeOutput(fs afero.Fs, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var f, err = fs.Create(path)
	if err != nil {
		return err
	}
	if err = fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
