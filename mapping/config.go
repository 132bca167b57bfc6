// Package mapping models the declarative configuration which maps a forest of
// tables onto a hierarchical document, and back.
//
// A TableConfig is the root of the mapping: it names the document's root
// element, the per-row item element, and the root table's query. Its Node,
// and each nested child Node, describes one table: which element represents
// one of its rows, which intermediate wrapper elements enclose those rows,
// how the table's rows associate with a row of an ancestor table, and the
// query which selects them. Configurations are JSON (or YAML) documents:
//
//	{
//	  "table_name": "npcs",
//	  "xml_root_tag": "npcs",
//	  "xml_item_tag": "npc",
//	  "sql": "SELECT * FROM npcs ORDER BY `__order_id`",
//	  "list": [{
//	    "table_name": "npcs__drop",
//	    "xml_tag": "drop",
//	    "addDataNode": "drops",
//	    "associatedFiled": "id>__parent_id",
//	    "sql": "SELECT * FROM npcs__drop WHERE `__parent_id` = '#associated_value#' ORDER BY `__order_id`"
//	  }]
//	}
//
// String-encoded paths of the configuration (the ">" association chain and
// the ":" wrapper path) are parsed once, when the configuration is loaded.
package mapping

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// Reserved names and tokens shared by the exporter, importer and inference.
const (
	// AssociationToken within a Node's SQL is replaced by the resolved
	// association value of the parent row.
	AssociationToken = "#associated_value#"
	// MapTypeToken within SQL is replaced by the active map-type variant.
	MapTypeToken = "#map_type#"
	// AttrPrefix marks a column which round-trips as an XML attribute.
	AttrPrefix = "_attr_"
	// ValueSeparator joins the values of a leaf element which repeats
	// within a single row element.
	ValueSeparator = "|@|"
	// SyntheticPrefix marks columns which are maintained by the tooling,
	// and never appear in a document.
	SyntheticPrefix = "__"
	// OrderColumn is the synthetic, auto-incremented insertion order column.
	OrderColumn = "__order_id"
	// ParentKeyPrefix prefixes inferred association columns.
	ParentKeyPrefix = "__parent_"
	// RowIDColumn holds a synthetic row identifier, injected on import
	// into rows of tables whose children associate through it. Inference
	// keys tables having no fields of their own on this column.
	RowIDColumn = "__row_id"
	// WorldRowIDColumn holds the synthetic row identifier injected into
	// rows of world tables.
	WorldRowIDColumn = "__world_row_id"
	// WorldTablePrefix identifies world tables, whose natural keys are not
	// unique across the forest and whose sub-tables are always queried
	// per-row.
	WorldTablePrefix = "world"
	// TableSeparator joins parent and child table names.
	TableSeparator = "__"
)

// ErrEmptyConfig is returned for a configuration which maps no table.
var ErrEmptyConfig = errors.New("mapping configuration is empty")

// Node maps one table onto document elements.
type Node struct {
	TableName       string    `json:"table_name" yaml:"table_name"`
	AssociatedField string    `json:"associatedFiled,omitempty" yaml:"associatedFiled,omitempty"`
	DBColumn        string    `json:"db_column,omitempty" yaml:"db_column,omitempty"`
	XMLTag          string    `json:"xml_tag,omitempty" yaml:"xml_tag,omitempty"`
	AddDataNode     string    `json:"addDataNode,omitempty" yaml:"addDataNode,omitempty"`
	Fields          FieldList `json:"fileds,omitempty" yaml:"fileds,omitempty"`
	ExcludeFields   FieldList `json:"exclude_fileds,omitempty" yaml:"exclude_fileds,omitempty"`
	SQL             string    `json:"sql" yaml:"sql"`
	Children        []*Node   `json:"list,omitempty" yaml:"list,omitempty"`

	// Association parsed from AssociatedField.
	Association Association `json:"-" yaml:"-"`
	// Wrappers parsed from AddDataNode.
	Wrappers []string `json:"-" yaml:"-"`
	// Parent Node, or nil for the root Node of a TableConfig.
	Parent *Node `json:"-" yaml:"-"`
}

// TableConfig is the root of a mapping.
type TableConfig struct {
	Node `yaml:",inline"`

	// FilePath is the path of the mapped document.
	FilePath      string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	RealTableName string `json:"real_table_name,omitempty" yaml:"real_table_name,omitempty"`
	XMLRootTag    string `json:"xml_root_tag" yaml:"xml_root_tag"`
	// XMLRootAttr is an optional "key=value" attribute of the root element.
	XMLRootAttr string `json:"xml_root_attr,omitempty" yaml:"xml_root_attr,omitempty"`
	// XMLItemTag is the element of each root table row. If empty, the root
	// element is itself the single row.
	XMLItemTag string `json:"xml_item_tag,omitempty" yaml:"xml_item_tag,omitempty"`

	// Source is the path from which the TableConfig was loaded, if any.
	Source string `json:"-" yaml:"-"`

	rootAttr *xmltree.Attr
}

// Init parses and validates the TableConfig. It must be called before use
// of a TableConfig which was not built by Parse or Load.
func (c *TableConfig) Init() error {
	if c.TableName == "" {
		return ErrEmptyConfig
	} else if c.XMLRootTag == "" {
		return errors.Errorf("table %s: xml_root_tag is required", c.TableName)
	}
	c.rootAttr = nil

	if c.XMLRootAttr != "" {
		var ind = strings.IndexByte(c.XMLRootAttr, '=')
		if ind <= 0 {
			return errors.Errorf("xml_root_attr %q is not of the form key=value", c.XMLRootAttr)
		}
		c.rootAttr = &xmltree.Attr{
			Name:  strings.TrimSpace(c.XMLRootAttr[:ind]),
			Value: strings.Trim(strings.TrimSpace(c.XMLRootAttr[ind+1:]), `"'`),
		}
	}

	var seen = make(map[string]struct{})
	return c.Node.init(nil, seen)
}

func (n *Node) init(parent *Node, seen map[string]struct{}) error {
	var err error
	n.Parent = parent

	if n.TableName == "" {
		return errors.Errorf("mapping under table %s has no table_name", parent.TableName)
	} else if _, ok := seen[n.TableName]; ok {
		return errors.Errorf("table %s is mapped more than once", n.TableName)
	}
	seen[n.TableName] = struct{}{}

	if n.Association, err = ParseAssociation(n.AssociatedField); err != nil {
		return errors.WithMessagef(err, "table %s", n.TableName)
	}
	n.Wrappers = ParseWrappers(n.AddDataNode)

	if parent != nil {
		if n.XMLTag == "" {
			return errors.Errorf("table %s: xml_tag is required", n.TableName)
		} else if n.Association.IsZero() {
			return errors.Errorf("table %s: associatedFiled is required", n.TableName)
		} else if n.SQL == "" {
			return errors.Errorf("table %s: sql is required", n.TableName)
		}
	}
	for _, c := range n.Children {
		if err = c.init(n, seen); err != nil {
			return err
		}
	}
	return nil
}

// RootAttr returns the parsed XMLRootAttr, if any.
func (c *TableConfig) RootAttr() (xmltree.Attr, bool) {
	if c.rootAttr == nil {
		return xmltree.Attr{}, false
	}
	return *c.rootAttr, true
}

// IsWorld is true if the TableConfig maps world tables.
func (c *TableConfig) IsWorld() bool {
	return strings.HasPrefix(strings.ToLower(c.TableName), WorldTablePrefix)
}

// Nodes returns all Nodes of the TableConfig, depth-first from the root.
func (c *TableConfig) Nodes() []*Node {
	var out []*Node
	c.Node.Walk(func(n *Node, _ int) { out = append(out, n) })
	return out
}

// TableNames returns the names of all tables of the TableConfig, depth-first
// from the root table.
func (c *TableConfig) TableNames() []string {
	var out []string
	c.Node.Walk(func(n *Node, _ int) { out = append(out, n.TableName) })
	return out
}

// Walk calls |fn| with the Node and each descendant, depth-first and
// pre-order, with the depth of each (the receiver is depth zero).
func (n *Node) Walk(fn func(n *Node, depth int)) { n.walk(fn, 0) }

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Includes is true if column |name| passes the Node's field filters. A
// filter entry may name the column, or (for attribute columns) the bare
// attribute name.
func (n *Node) Includes(name string) bool {
	var bare = strings.TrimPrefix(name, AttrPrefix)

	if len(n.Fields) != 0 && !n.Fields.Contains(name) && !n.Fields.Contains(bare) {
		return false
	}
	return !n.ExcludeFields.Contains(name) && !n.ExcludeFields.Contains(bare)
}

// Anchor returns the parent column at whose position the Node's elements
// are placed within the parent row's element: DBColumn if set, or else the
// outermost element of the Node.
func (n *Node) Anchor() string {
	if n.DBColumn != "" {
		return n.DBColumn
	} else if len(n.Wrappers) != 0 {
		return n.Wrappers[0]
	}
	return n.XMLTag
}

// OuterTag returns the outermost element tag of the Node within its parent's
// row element: the first wrapper, or XMLTag.
func (n *Node) OuterTag() string {
	if len(n.Wrappers) != 0 {
		return n.Wrappers[0]
	}
	return n.XMLTag
}

// ParseWrappers parses a ":"-delimited wrapper path. Empty components are
// dropped.
func ParseWrappers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ":") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsSynthetic is true if |column| is maintained by the tooling and never
// appears in a document.
func IsSynthetic(column string) bool { return strings.HasPrefix(column, SyntheticPrefix) }
