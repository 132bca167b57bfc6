package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xiaohan1105/axmltools-sub005/export"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

type cmdExport struct {
	ConfigSelection
	ProgressConfig
	export.Options

	Out    string `long:"out" short:"o" description:"Output document path. Valid only with a single configuration. Defaults to the configuration's file_path"`
	OutDir string `long:"out-dir" description:"Directory of output documents, which are named by the base name of each configuration's file_path"`
	UTF8   bool   `long:"utf8" description:"Write UTF-8 rather than UTF-16 documents"`
}

func init() {
	commands.AddCommand("", "export", "Export tables to documents", `
Export the tables of mapping configurations to documents.

Root table rows are exported in pages of --page-size rows, by up to --workers
concurrent page tasks. Sub-tables are preloaded in full before pages begin
(except for world configurations, which query sub-tables per row), and the
sub-trees of each row are populated by up to --subtree-workers concurrent
tasks for rows shallower than --async-depth.

Export a single configuration:
>    axmltools export --db.dsn ... --config npcs.json --out npcs.xml

Export every configuration of a directory, to a distinct output directory:
>    axmltools export --db.dsn ... --config-dir ./configs --out-dir ./client

A failed configuration is logged, and doesn't prevent the export of others.
The command exits non-zero if any configuration failed.
`, &cmdExport{})
}

func (cmd *cmdExport) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var cfgs, failed, err = cmd.load()
	if err != nil {
		return err
	} else if cmd.Out != "" && len(cfgs)+len(failed) != 1 {
		return errors.New("--out requires exactly one configuration")
	}
	if cmd.UTF8 {
		cmd.Encoding = xmltree.UTF8
	}

	var db = baseCfg.DB.MustOpen()
	defer db.Close()

	var fs = afero.NewOsFs()
	var bars = newBars(ctx, cmd.ProgressConfig)
	defer bars.wait()

	return runAll(ctx, "export", cfgs, failed, func(ctx context.Context, cfg *mapping.TableConfig) error {
		var path = documentPath(cfg, cmd.Out, cmd.OutDir)
		var e = export.New(db, fs, cmd.Options)
		var started = time.Now()

		var done = bars.watch(cfg.TableName, e.Progress())
		var err = e.ExportFile(ctx, cfg, path)
		done(err == nil)

		if err != nil {
			return err
		}
		var fields = log.Fields{
			"table":   cfg.TableName,
			"path":    path,
			"elapsed": time.Since(started).Round(time.Millisecond),
		}
		if info, err := fs.Stat(path); err == nil {
			fields["size"] = humanize.Bytes(uint64(info.Size()))
		}
		log.WithFields(fields).Info("wrote document")
		return nil
	})
}

// documentPath of a document of |cfg|: |out| if set, or else the configuration's
// FilePath, relocated to |dir| if set. An empty result defers to the
// configuration's FilePath.
func documentPath(cfg *mapping.TableConfig, out, dir string) string {
	if out != "" {
		return out
	} else if dir == "" || cfg.FilePath == "" {
		return cfg.FilePath
	}
	return filepath.Join(dir, filepath.Base(cfg.FilePath))
}
