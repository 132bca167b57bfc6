package mapping

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

const npcsJSON = `{
  "file_path": "/data/npcs.xml",
  "table_name": "npcs",
  "xml_root_tag": "npcs",
  "xml_root_attr": "version = \"3\"",
  "xml_item_tag": "npc",
  "sql": "SELECT * FROM npcs ORDER BY CAST(id AS UNSIGNED)",
  "list": [{
    "table_name": "npcs__drop",
    "associatedFiled": "id>__parent_id",
    "xml_tag": "drop",
    "addDataNode": "drops:group",
    "fileds": "item, _attr_chance",
    "sql": "SELECT * FROM npcs__drop WHERE __parent_id = '#associated_value#' ORDER BY __order_id",
    "list": [{
      "table_name": "npcs__drop__cond",
      "associatedFiled": "id",
      "xml_tag": "cond",
      "exclude_fileds": ["note"],
      "sql": "SELECT * FROM npcs__drop__cond WHERE id = '#associated_value#'"
    }]
  }]
}`

func TestParseJSONConfig(t *testing.T) {
	var cfg, err = Parse([]byte(npcsJSON), JSON)
	require.NoError(t, err)

	assert.Equal(t, "/data/npcs.xml", cfg.FilePath)
	assert.Equal(t, []string{"npcs", "npcs__drop", "npcs__drop__cond"}, cfg.TableNames())
	assert.False(t, cfg.IsWorld())

	var attr, ok = cfg.RootAttr()
	assert.True(t, ok)
	assert.Equal(t, xmltree.Attr{Name: "version", Value: "3"}, attr)

	var drop = cfg.Children[0]
	assert.Equal(t, Association{Kind: Inherited, Ancestor: "id", Local: "__parent_id"}, drop.Association)
	assert.Equal(t, []string{"drops", "group"}, drop.Wrappers)
	assert.Equal(t, FieldList{"item", "_attr_chance"}, drop.Fields)
	assert.Equal(t, &cfg.Node, drop.Parent)
	assert.Equal(t, "drops", drop.Anchor())
	assert.Equal(t, "drops", drop.OuterTag())

	var cond = drop.Children[0]
	assert.Equal(t, Association{Kind: Direct, Ancestor: "id", Local: "id"}, cond.Association)
	assert.Equal(t, FieldList{"note"}, cond.ExcludeFields)
	assert.Equal(t, drop, cond.Parent)
	assert.Equal(t, "cond", cond.Anchor())
}

func TestYAMLRoundTrip(t *testing.T) {
	var cfg, err = Parse([]byte(npcsJSON), JSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg, YAML))

	out, err := Parse(buf.Bytes(), YAML)
	require.NoError(t, err)
	assert.Equal(t, cfg.TableNames(), out.TableNames())
	assert.Equal(t, cfg.Children[0].Association, out.Children[0].Association)
	assert.Equal(t, cfg.Children[0].Fields, out.Children[0].Fields)

	buf.Reset()
	require.NoError(t, Encode(&buf, out, JSON))
	again, err := Parse(buf.Bytes(), JSON)
	require.NoError(t, err)
	assert.Equal(t, cfg.Children[0].Children[0].SQL, again.Children[0].Children[0].SQL)
}

func TestConfigValidation(t *testing.T) {
	for _, tc := range []struct {
		doc string
		err string
	}{
		{``, "mapping configuration is empty"},
		{`{}`, "mapping configuration is empty"},
		{`{"table_name": "a"}`, "table a: xml_root_tag is required"},
		{`{"table_name": "a", "xml_root_tag": "a", "xml_root_attr": "=x"}`,
			`xml_root_attr "=x" is not of the form key=value`},
		{`{"table_name": "a", "xml_root_tag": "a", "list": [{"table_name": "a", "xml_tag": "b"}]}`,
			"table a is mapped more than once"},
		{`{"table_name": "a", "xml_root_tag": "a", "list": [{"table_name": "b", "sql": "x", "associatedFiled": "id"}]}`,
			"table b: xml_tag is required"},
		{`{"table_name": "a", "xml_root_tag": "a", "list": [{"table_name": "b", "sql": "x", "xml_tag": "b"}]}`,
			"table b: associatedFiled is required"},
		{`{"table_name": "a", "xml_root_tag": "a", "list": [{"table_name": "b", "xml_tag": "b", "associatedFiled": "x>y>z"}]}`,
			`table b: association chain "x>y>z" has more than one '>'`},
	} {
		var _, err = Parse([]byte(tc.doc), JSON)
		assert.EqualError(t, err, tc.err, tc.doc)
	}
}

func TestLoadIdentifiesFile(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	var _, err = Load(path)
	assert.EqualError(t, err, "configuration "+path+": mapping configuration is empty")
	assert.Equal(t, ErrEmptyConfig, errors.Cause(err))
}

func TestAssociationResolve(t *testing.T) {
	var root, mid, leaf = sqldb.NewRow(), sqldb.NewRow(), sqldb.NewRow()
	root.Set("id", "root-id")
	root.Set("a", "root-a")
	mid.Set("a", "mid-a")
	mid.SetNull("n")
	var chain = []*sqldb.Row{root, mid, leaf}

	var a, _ = ParseAssociation("a>b")
	var v, err = a.Resolve(chain)
	require.NoError(t, err)
	assert.Equal(t, "mid-a", *v) // Nearest ancestor wins.

	a, _ = ParseAssociation("id")
	v, err = a.Resolve(chain)
	require.NoError(t, err)
	assert.Equal(t, "root-id", *v)

	// Present, but NULL.
	a, _ = ParseAssociation("n>m")
	v, err = a.Resolve(chain)
	assert.NoError(t, err)
	assert.Nil(t, v)

	a, _ = ParseAssociation("missing>m")
	_, err = a.Resolve(chain)
	assert.EqualError(t, err, `resolving "missing>m": association field not present on any ancestor row`)
	assert.Equal(t, ErrUnresolvedAssociation, errors.Cause(err))
}

func TestFieldFilters(t *testing.T) {
	var n = Node{Fields: FieldList{"name", "id"}, ExcludeFields: FieldList{"id"}}
	assert.True(t, n.Includes("name"))
	assert.True(t, n.Includes("_attr_name"))
	assert.False(t, n.Includes("id"))
	assert.False(t, n.Includes("other"))

	n = Node{ExcludeFields: FieldList{"_attr_x"}}
	assert.False(t, n.Includes("_attr_x"))
	assert.True(t, n.Includes("y"))
}

func TestWorldDetection(t *testing.T) {
	var cfg = &TableConfig{Node: Node{TableName: "World_Spawns"}, XMLRootTag: "spawns"}
	require.NoError(t, cfg.Init())
	assert.True(t, cfg.IsWorld())
}

func TestParseWrappers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseWrappers(" a :: b: "))
	assert.Nil(t, ParseWrappers(""))
}
