package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	mbp "github.com/xiaohan1105/axmltools-sub005/mainboilerplate"
)

const iniFilename = "axmltools.ini"

var (
	baseCfg = new(struct {
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		DB          mbp.DBConfig          `group:"Database" namespace:"db" env-namespace:"DB"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})

	// Commands register themselves from init functions of their files.
	commands = mbp.NewCommandRegistry()
)

func main() {
	defer mbp.LogPanic()
	var parser = flags.NewParser(baseCfg, flags.Default)

	parser.LongDescription = `axmltools converts between hierarchical game client documents and
relational tables, as directed by JSON (or YAML) mapping configurations.

See --help pages of each sub-command for documentation and usage examples.
Optionally configure axmltools with an '` + iniFilename + `' file in the current working
directory, or with '~/.config/axmltools/` + iniFilename + `'. Use the 'print-config'
sub-command to inspect the tool's current configuration.
`
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(commands.AddCommands("", parser.Command, true), "could not add subcommand")

	mbp.MustParseConfig(parser, iniFilename)
}

// startup initializes logging and diagnostics, and returns a context which
// is cancelled on interrupt.
func startup() (context.Context, context.CancelFunc) {
	mbp.InitLog(baseCfg.Log)
	mbp.InitDiagnostics(baseCfg.Diagnostics)

	return signal.NotifyContext(context.Background(), os.Interrupt)
}
