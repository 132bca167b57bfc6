package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/xiaohan1105/axmltools-sub005/importer"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

type cmdImport struct {
	ConfigSelection
	ProgressConfig
	importer.Options

	In    string `long:"in" short:"i" description:"Input document path. Valid only with a single configuration. Defaults to the configuration's file_path"`
	InDir string `long:"in-dir" description:"Directory of input documents, which are named by the base name of each configuration's file_path"`
}

func init() {
	commands.AddCommand("", "import", "Import documents into tables", `
Import documents into the tables of mapping configurations.

An import clears every table of the configuration, and then inserts rows in
transactions of --batch-size rows. If any transaction fails, every table of
the configuration is cleared: tables hold either the complete document, or
nothing.

Import a single document:
>    axmltools import --db.dsn ... --config npcs.json --in npcs.xml

Import documents of a client directory, for every configuration:
>    axmltools import --db.dsn ... --config-dir ./configs --in-dir ./client
`, &cmdImport{})
}

func (cmd *cmdImport) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var cfgs, failed, err = cmd.load()
	if err != nil {
		return err
	} else if cmd.In != "" && len(cfgs)+len(failed) != 1 {
		return errors.New("--in requires exactly one configuration")
	}

	var db = baseCfg.DB.MustOpen()
	defer db.Close()

	var fs = afero.NewOsFs()
	var bars = newBars(ctx, cmd.ProgressConfig)
	defer bars.wait()

	return runAll(ctx, "import", cfgs, failed, func(ctx context.Context, cfg *mapping.TableConfig) error {
		var path = documentPath(cfg, cmd.In, cmd.InDir)
		var im = importer.New(db, fs, cmd.Options)
		var started = time.Now()

		var done = bars.watch(cfg.TableName, im.Progress())
		var err = im.ImportFile(ctx, cfg, path)
		done(err == nil)

		if err != nil {
			return err
		}
		var rows, _ = im.Progress().Snapshot()
		log.WithFields(log.Fields{
			"table":   cfg.TableName,
			"path":    path,
			"rows":    humanize.Comma(rows),
			"elapsed": time.Since(started).Round(time.Millisecond),
		}).Info("imported document")
		return nil
	})
}
