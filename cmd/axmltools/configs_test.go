package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

const npcsConfig = `{
  "table_name": "npcs",
  "xml_root_tag": "npcs",
  "xml_item_tag": "npc",
  "file_path": "client/data/npcs.xml",
  "sql": "SELECT * FROM npcs",
  "list": [{
    "table_name": "npcs__drop",
    "xml_tag": "drop",
    "addDataNode": "drops:group",
    "associatedFiled": "id>__parent_id",
    "sql": "SELECT * FROM npcs__drop WHERE __parent_id = '#associated_value#'"
  }]
}`

func writeConfigs(t *testing.T, files map[string]string) string {
	var dir = t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestConfigSelection(t *testing.T) {
	var dir = writeConfigs(t, map[string]string{
		"npcs.json":   npcsConfig,
		"broken.json": `{"table_name": "broken"}`,
		"notes.txt":   "ignored",
	})

	// All configurations of the directory.
	var cfgs, failed, err = ConfigSelection{Dir: dir}.load()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "npcs", cfgs[0].TableName)
	assert.Contains(t, failed, filepath.Join(dir, "broken.json"))

	// Relative paths resolve against the directory.
	cfgs, failed, err = ConfigSelection{Dir: dir, Configs: []string{"npcs.json"}}.load()
	require.NoError(t, err)
	assert.Len(t, cfgs, 1)
	assert.Empty(t, failed)

	// Without a directory, paths are loaded directly.
	cfgs, failed, err = ConfigSelection{Configs: []string{
		filepath.Join(dir, "npcs.json"),
		filepath.Join(dir, "missing.json"),
	}}.load()
	require.NoError(t, err)
	assert.Len(t, cfgs, 1)
	assert.Len(t, failed, 1)

	_, _, err = ConfigSelection{}.load()
	assert.Error(t, err)
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	var cfgs []*mapping.TableConfig
	for _, name := range []string{"a", "b", "c"} {
		cfgs = append(cfgs, &mapping.TableConfig{Node: mapping.Node{TableName: name}})
	}
	var visited []string

	var err = runAll(context.Background(), "export", cfgs,
		map[string]error{"d.json": errors.New("bad config")},
		func(_ context.Context, cfg *mapping.TableConfig) error {
			visited = append(visited, cfg.TableName)
			if cfg.TableName == "b" {
				return errors.New("boom")
			}
			return nil
		})

	assert.Equal(t, []string{"a", "b", "c"}, visited)
	require.Error(t, err)
	assert.Equal(t, "2 of 4 configurations failed to export", err.Error())

	assert.NoError(t, runAll(context.Background(), "import", cfgs, nil,
		func(context.Context, *mapping.TableConfig) error { return nil }))
}

func TestDocumentAndElementPaths(t *testing.T) {
	var cfg, err = mapping.Parse([]byte(npcsConfig), mapping.JSON)
	require.NoError(t, err)

	assert.Equal(t, "out.xml", documentPath(cfg, "out.xml", "dir"))
	assert.Equal(t, "client/data/npcs.xml", documentPath(cfg, "", ""))
	assert.Equal(t, filepath.Join("export", "npcs.xml"), documentPath(cfg, "", "export"))

	assert.Equal(t, "npcs/npc", elementPath(cfg, &cfg.Node))
	assert.Equal(t, "drops/group/drop", elementPath(cfg, cfg.Children[0]))

	cfg.XMLItemTag = ""
	assert.Equal(t, "npcs", elementPath(cfg, &cfg.Node))
}
