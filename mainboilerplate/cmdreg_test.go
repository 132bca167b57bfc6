package mainboilerplate

import (
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCommand struct {
	Flag bool `long:"flag"`
}

func (nopCommand) Execute([]string) error { return nil }

func TestCommandRegistryNesting(t *testing.T) {
	var cr = NewCommandRegistry()
	cr.AddCommand("", "tables", "short", "long", &nopCommand{})
	cr.AddCommand("tables", "list", "short", "long", &nopCommand{})
	cr.AddCommand("tables.list", "deep", "short", "long", &nopCommand{})

	var parser = flags.NewParser(nil, flags.None)
	require.NoError(t, cr.AddCommands("", parser.Command, true))

	var tables = parser.Find("tables")
	require.NotNil(t, tables)
	var list = tables.Find("list")
	require.NotNil(t, list)
	assert.NotNil(t, list.Find("deep"))

	// Without recursion, only direct commands are added.
	parser = flags.NewParser(nil, flags.None)
	require.NoError(t, cr.AddCommands("", parser.Command, false))
	require.NotNil(t, parser.Find("tables"))
	assert.Nil(t, parser.Find("tables").Find("list"))
}
