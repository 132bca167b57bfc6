package main

import (
	"os"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type cmdLengths struct {
	Args struct {
		Documents []string `positional-arg-name:"DOCUMENT" required:"1" description:"Documents to scan"`
	} `positional-args:"yes"`
}

func init() {
	commands.AddCommand("", "lengths", "Report maximum field lengths of documents", `
Scan documents and report the maximum text length of each field, where
attributes are reported with an "_attr_" prefix. Fields are identified by
name alone, regardless of the element path at which they occur.

>    axmltools lengths client/npcs.xml client/npcs_abyss.xml
`, &cmdLengths{})
}

func (cmd *cmdLengths) Execute([]string) error {
	var _, cancel = startup()
	defer cancel()

	var fs = afero.NewOsFs()
	var lengths, failed = collectLengths(fs, cmd.Args.Documents)

	var size int64
	for _, path := range cmd.Args.Documents {
		if info, err := fs.Stat(path); err == nil {
			size += info.Size()
		}
	}
	log.WithFields(log.Fields{
		"documents": len(cmd.Args.Documents),
		"failed":    len(failed),
		"size":      humanize.Bytes(uint64(size)),
		"fields":    len(lengths),
	}).Info("scanned documents")

	var names = make([]string, 0, len(lengths))
	for name := range lengths {
		names = append(names, name)
	}
	sort.Strings(names)

	var table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Max Length"})
	for _, name := range names {
		table.Append([]string{name, strconv.Itoa(lengths[name])})
	}
	table.Render()

	if len(failed) != 0 {
		return errors.Errorf("%d of %d documents failed to scan", len(failed), len(cmd.Args.Documents))
	}
	return nil
}
