package schema

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/sqldb/sqldbtest"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

const npcsDoc = `<?xml version="1.0" encoding="UTF-8"?>
<npcs>
  <npc id="1">
    <name>Guard</name>
    <level>10</level>
    <drops>
      <drop><item>sword</item><chance>5</chance></drop>
      <drop><item>shield</item><chance>3</chance></drop>
    </drops>
    <skills><skill>slash</skill><skill>parry</skill></skills>
  </npc>
  <npc id="2"><name>Orc</name><level>3</level></npc>
</npcs>`

func parse(t *testing.T, doc string) *xmltree.Element {
	var root, err = xmltree.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return root
}

func TestInferConfig(t *testing.T) {
	var res, err = Infer(parse(t, npcsDoc), Options{})
	require.NoError(t, err)

	var cfg = res.Config
	assert.Equal(t, "npcs", cfg.XMLRootTag)
	assert.Equal(t, "npc", cfg.XMLItemTag)
	assert.Equal(t, "SELECT * FROM `npcs` ORDER BY `__order_id`", cfg.SQL)
	assert.Equal(t, []string{"npcs", "npcs__drop", "npcs__skills"}, cfg.TableNames())

	var drop = cfg.Children[0]
	assert.Equal(t, "drop", drop.XMLTag)
	assert.Equal(t, []string{"drops"}, drop.Wrappers)
	assert.Equal(t, mapping.Association{
		Kind:     mapping.Inherited,
		Ancestor: "_attr_id",
		Local:    "__parent__attr_id",
	}, drop.Association)
	assert.Equal(t, "SELECT * FROM `npcs__drop` WHERE `__parent__attr_id` = '#associated_value#' ORDER BY `__order_id`", drop.SQL)

	// A container of a single leaf type is a table of that leaf.
	var skills = cfg.Children[1]
	assert.Equal(t, "skills", skills.XMLTag)
	assert.Empty(t, skills.Wrappers)

	var field, desc = mapping.SortField(drop.SQL)
	assert.Equal(t, mapping.OrderColumn, field)
	assert.False(t, desc)

	var names []string
	for _, c := range res.Tables[0].Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"_attr_id", "name", "level"}, names)
	assert.Equal(t, []Column{{Name: "skill", Type: "VARCHAR(64)"}}, res.Tables[2].Columns)
	assert.Equal(t, res.Tables[0], res.Tables[1].Parent)
}

func TestInferRootAsSingleRow(t *testing.T) {
	var res, err = Infer(parse(t, `<settings version="2"><lang>en</lang><zone>3</zone></settings>`),
		Options{RootTableName: "client_settings"})
	require.NoError(t, err)

	assert.Equal(t, "settings", res.Config.XMLRootTag)
	assert.Equal(t, "", res.Config.XMLItemTag)
	assert.Equal(t, "client_settings", res.Config.TableName)
	assert.Len(t, res.Tables[0].Columns, 3)
}

func TestInferRootWrappers(t *testing.T) {
	var res, err = Infer(parse(t, `<data><list><item a="1"/><item a="2"/></list></data>`), Options{})
	require.NoError(t, err)

	assert.Equal(t, "item", res.Config.XMLItemTag)
	assert.Equal(t, []string{"list"}, res.Config.Wrappers)
}

func TestInferFieldlessTablesKeyOnRowID(t *testing.T) {
	var res, err = Infer(parse(t, `<quests>
	  <quest><step><a>1</a></step><reward><c>2</c></reward></quest>
	  <quest><step><a>3</a></step><reward><c>4</c></reward></quest>
	</quests>`), Options{})
	require.NoError(t, err)

	var quest = res.Tables[0]
	assert.Empty(t, quest.Columns)
	assert.Equal(t, mapping.RowIDColumn, quest.Key)
	assert.Equal(t, mapping.RowIDColumn, quest.IDColumn)
	assert.Contains(t, quest.Create(sqldb.MySQL), "`__row_id` VARCHAR(36) DEFAULT NULL")

	for _, c := range res.Config.Children {
		assert.Equal(t, "__row_id>__parent___row_id", c.Association.String())
	}
	// Tables having fields need no identifier.
	assert.Equal(t, "a", res.Tables[1].Key)
	assert.Empty(t, res.Tables[1].IDColumn)
}

func TestInferWorldSchema(t *testing.T) {
	var res, err = Infer(parse(t, `<world_spawns>
	  <spawn><map>a</map><npc><id>1</id></npc></spawn>
	  <spawn><map>a</map><npc><id>2</id></npc></spawn>
	</world_spawns>`), Options{})
	require.NoError(t, err)
	require.True(t, res.Config.IsWorld())

	for _, tbl := range res.Tables {
		assert.Equal(t, mapping.WorldRowIDColumn, tbl.IDColumn, tbl.Name)
		assert.Equal(t, mapping.WorldRowIDColumn, tbl.Key, tbl.Name)
	}
	assert.Equal(t, "__world_row_id>__parent___world_row_id", res.Config.Children[0].Association.String())
}

func TestInferEmptyRoot(t *testing.T) {
	var _, err = Infer(parse(t, `<npcs>  </npcs>`), Options{})
	assert.EqualError(t, err, "<npcs>: document root element is empty")
	assert.Equal(t, ErrEmptyRoot, errors.Cause(err))
}

func TestColumnTyping(t *testing.T) {
	var build = func(n int) string {
		var b strings.Builder
		b.WriteString("<row>")
		for i := 0; i != n; i++ {
			fmt.Fprintf(&b, "<f%d>v</f%d>", i, i)
		}
		b.WriteString("</row>")
		return b.String()
	}

	for _, tc := range []struct {
		fields    int
		typ       string
		rowFormat string
	}{
		{3, "VARCHAR(64)", ""},
		{50, "VARCHAR(64)", ""},
		{51, Text, RowFormatDynamic},
		{100, Text, RowFormatDynamic},
		{101, MediumText, RowFormatCompressed},
	} {
		var res, err = Infer(parse(t, build(tc.fields)), Options{})
		require.NoError(t, err)

		var table = res.Tables[0]
		assert.Len(t, table.Columns, tc.fields)
		assert.Equal(t, tc.typ, table.Columns[0].Type, "fields %d", tc.fields)
		assert.Equal(t, tc.rowFormat, table.RowFormat, "fields %d", tc.fields)
	}
}

func TestObservedLengths(t *testing.T) {
	var res, err = Infer(parse(t, npcsDoc), Options{
		ObservedLengths: map[string]int{"name": 300, "level": 100, "_attr_id": 12},
	})
	require.NoError(t, err)

	assert.Equal(t, []Column{
		{Name: "_attr_id", Type: "VARCHAR(64)"},
		{Name: "name", Type: Text},
		{Name: "level", Type: "VARCHAR(100)"},
	}, res.Tables[0].Columns)
}

func TestMySQLDDL(t *testing.T) {
	var res, err = Infer(parse(t, npcsDoc), Options{})
	require.NoError(t, err)

	var ddl = res.DDL()
	require.Len(t, ddl, 6)
	assert.Equal(t, []string{
		"DROP TABLE IF EXISTS `npcs__skills`",
		"DROP TABLE IF EXISTS `npcs__drop`",
		"DROP TABLE IF EXISTS `npcs`",
	}, ddl[:3])
	assert.Equal(t, "CREATE TABLE `npcs` (\n"+
		"  `__order_id` BIGINT NOT NULL AUTO_INCREMENT,\n"+
		"  `_attr_id` VARCHAR(64) DEFAULT NULL,\n"+
		"  `name` VARCHAR(64) DEFAULT NULL,\n"+
		"  `level` VARCHAR(64) DEFAULT NULL,\n"+
		"  PRIMARY KEY (`__order_id`)\n"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", ddl[3])
	assert.Contains(t, ddl[4], "`__parent__attr_id` VARCHAR(255) DEFAULT NULL")
	assert.Contains(t, ddl[4], "KEY `ix__parent__attr_id` (`__parent__attr_id`)")
	assert.True(t, strings.HasSuffix(res.Script(), "utf8mb4;\n"))
}

func TestSQLiteDDLExecutes(t *testing.T) {
	var res, err = Infer(parse(t, npcsDoc), Options{Dialect: sqldb.SQLite})
	require.NoError(t, err)

	var db = sqldbtest.NewSQLite(t)
	var ctx = context.Background()
	require.NoError(t, db.ExecAll(ctx, res.DDL()))
	// Re-running drops and re-creates.
	require.NoError(t, db.ExecAll(ctx, res.DDL()))

	for _, name := range res.Config.TableNames() {
		var ok, err = db.TableExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
}

func TestShortenName(t *testing.T) {
	var name = strings.Repeat("a", 40) + "__" + strings.Repeat("b", 30) + "__c"
	var short = ShortenName(name, 60)

	assert.Len(t, short, 60)
	assert.True(t, strings.HasPrefix(short, strings.Repeat("a", 24)+"__"+strings.Repeat("b", 24)+"__c_"), short)
	assert.Equal(t, short, ShortenName(name, 60))  // Deterministic.
	assert.Equal(t, short, ShortenName(short, 60)) // Idempotent.
	assert.Len(t, strings.Split(short, "__"), 3)

	// Names within the limit are unchanged.
	assert.Equal(t, "npcs__drop", ShortenName("npcs__drop", 60))
	// Names differing only in their tails remain distinct.
	assert.NotEqual(t, short, ShortenName(name+"d", 60))
}

func TestShortenNameProperties(t *testing.T) {
	for _, name := range []string{
		strings.Repeat("x", 61),
		strings.Repeat("segment_", 8) + "__" + strings.Repeat("q", 20),
		"client_world_spawn_points__territory_npc_spawn_groups__conditions__time_windows",
		"a__b__c__d__e__" + strings.Repeat("uvwxyz", 10),
	} {
		var short = ShortenName(name, DefaultNameLimit)
		assert.LessOrEqual(t, len(short), DefaultNameLimit, name)
		assert.Equal(t, short, ShortenName(name, DefaultNameLimit), name)
		assert.Equal(t, short, ShortenName(short, DefaultNameLimit), name)
		assert.Equal(t, len(strings.Split(name, "__")), len(strings.Split(short, "__")), name)
	}
}

func TestNamerResolvesCollisions(t *testing.T) {
	var n = newNamer(20)
	assert.Equal(t, "items", n.assign("items"))
	assert.Equal(t, "items_2", n.assign("items"))
	assert.Equal(t, "items_3", n.assign("items"))

	var long = strings.Repeat("z", 30)
	var first, second = n.assign(long), n.assign(long)
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, len(first), 20)
	assert.LessOrEqual(t, len(second), 20)
}

func TestInferShortensDeepNames(t *testing.T) {
	var doc = `<root><territory_spawn_definitions id="1">` +
		`<npc_spawn_group_conditions k="1"><seasonal_time_windows_configuration a="1"/></npc_spawn_group_conditions>` +
		`</territory_spawn_definitions><territory_spawn_definitions id="2"/></root>`

	var res, err = Infer(parse(t, doc), Options{})
	require.NoError(t, err)

	require.Len(t, res.Tables, 3)
	for _, table := range res.Tables {
		assert.LessOrEqual(t, len(table.Name), DefaultNameLimit, table.Name)
	}
	assert.Equal(t, "territory_spawn_definitions", res.Config.XMLItemTag)
	assert.Equal(t, "seasonal_time_windows_configuration", res.Config.Children[0].Children[0].XMLTag)
}

func TestCollectLengths(t *testing.T) {
	var doc = `<npcs><npc id="1"><name>Guard</name></npc>` +
		`<npc id="22"><name lang="en">Orcish</name><title>Ωμέγα</title></npc></npcs>`

	var lengths, err = CollectLengths(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"_attr_id":   2,
		"name":       6,
		"_attr_lang": 2,
		"title":      5,
	}, lengths)
}

func TestCollectLengthsOfUTF16(t *testing.T) {
	var root = xmltree.New("npcs")
	var npc = xmltree.New("npc")
	npc.SetAttr("id", "1234")
	npc.AddLeaf("name", "Guard")
	root.Append(npc)

	var buf bytes.Buffer
	require.NoError(t, xmltree.Write(&buf, root, xmltree.UTF16))

	var lengths, err = CollectLengths(&buf, strings.NewReader(`<npcs><npc><name>Longer name</name></npc></npcs>`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"_attr_id": 4, "name": 11}, lengths)
}

func TestFieldOf(t *testing.T) {
	for path, field := range map[string]string{
		"npcs.npc[3].-id":                "_attr_id",
		"npcs.npc.name.#text":            "name",
		"npcs.npc[0].drops.drop[1].item": "item",
		"root":                           "root",
	} {
		assert.Equal(t, field, fieldOf(path), path)
	}
}
