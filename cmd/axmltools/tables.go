package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	mbp "github.com/xiaohan1105/axmltools-sub005/mainboilerplate"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

type cmdTables struct {
	ConfigSelection
	MapType string `long:"map-type" description:"Map type variant substituted into table names"`
	Rows    bool   `long:"rows" short:"r" description:"Show a row count column, which requires a database"`
}

func init() {
	commands.AddCommand("", "tables", "List tables of mapping configurations", `
List the tables mapped by configurations, with their depth, element path and
association. Configurations which fail to load are listed with their error.

>    axmltools tables --config-dir ./configs
>    axmltools tables --db.dsn ... --config npcs.json --rows
`, &cmdTables{})
}

func (cmd *cmdTables) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var cfgs, failed, err = cmd.load()
	if err != nil {
		return err
	}

	var counter = func(string) string { return "" }
	if cmd.Rows {
		var db = baseCfg.DB.MustOpen()
		defer db.Close()

		counter = func(table string) string {
			if ok, err := db.TableExists(ctx, table); err != nil {
				return "<" + err.Error() + ">"
			} else if !ok {
				return "<missing>"
			}
			var n, err = db.TotalRowCount(ctx, table)
			mbp.Must(err, "failed to count rows", "table", table)
			return humanize.Comma(int64(n))
		}
	}

	var table = tablewriter.NewWriter(os.Stdout)
	var headers = []string{"Config", "Table", "Depth", "Element", "Association", "Preloaded"}
	if cmd.Rows {
		headers = append(headers, "Rows")
	}
	table.SetHeader(headers)

	for _, cfg := range cfgs {
		cfg.Node.Walk(func(n *mapping.Node, depth int) {
			var name = mapping.Substitute(n.TableName, "", cmd.MapType)
			var row = []string{
				cfg.Source,
				strings.Repeat("  ", depth) + name,
				strconv.Itoa(depth),
				elementPath(cfg, n),
				n.Association.String(),
				strconv.FormatBool(n.Parent != nil && !cfg.IsWorld()),
			}
			if cmd.Rows {
				row = append(row, counter(name))
			}
			table.Append(row)
		})
	}
	for path, err := range failed {
		var row = []string{path, "<" + err.Error() + ">", "", "", "", ""}
		if cmd.Rows {
			row = append(row, "")
		}
		table.Append(row)
	}
	table.Render()

	return nil
}

// elementPath returns the element path of rows of |n|, relative to the
// element of its parent's rows (or to the document root).
func elementPath(cfg *mapping.TableConfig, n *mapping.Node) string {
	var parts = append([]string(nil), n.Wrappers...)

	if n.Parent != nil {
		parts = append(parts, n.XMLTag)
	} else if cfg.XMLItemTag != "" {
		parts = append([]string{cfg.XMLRootTag}, append(parts, cfg.XMLItemTag)...)
	} else {
		parts = []string{cfg.XMLRootTag}
	}
	return strings.Join(parts, "/")
}
