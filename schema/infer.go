// Package schema infers a mapping configuration, and the DDL of its tables,
// from a sample document.
//
// All instances of an element path are first merged into a shape, which
// records the union of attributes and child elements seen at that path. Each
// child shape is then classified by an ordered table of rules: a plain leaf
// becomes a column; a wrapper (an element enclosing only instances of one
// complex element) is skipped and recorded as the addDataNode path of the
// table beneath it; anything else becomes a table. Tables are named by
// joining parent and child with "__", and are shortened to fit database
// identifier limits.
package schema

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// ErrEmptyRoot is returned when the root element of a sample document has
// neither attributes nor child elements, and no table can be inferred.
var ErrEmptyRoot = errors.New("document root element is empty")

// Options of Infer.
type Options struct {
	// ObservedLengths maps column names to their maximum observed text
	// length, typically collected over a larger corpus than the sample
	// document (see CollectLengths).
	ObservedLengths map[string]int
	// RootTableName overrides the name of the root table, which is
	// otherwise the root element tag.
	RootTableName string
	// Dialect of rendered DDL.
	Dialect sqldb.Dialect
	// NameLimit is the maximum length of a table name. If zero,
	// DefaultNameLimit is used.
	NameLimit int
}

// Result of Infer.
type Result struct {
	// Config maps the inferred tables onto the document.
	Config *mapping.TableConfig
	// Tables in creation order: each parent precedes its children.
	Tables []*Table
	// Dialect of DDL.
	Dialect sqldb.Dialect
}

// Infer a mapping configuration and tables from sample document |root|.
func Infer(root *xmltree.Element, opts Options) (*Result, error) {
	if len(root.Attrs) == 0 && len(root.Children) == 0 {
		return nil, errors.WithMessagef(ErrEmptyRoot, "<%s>", root.Tag)
	}
	if opts.NameLimit == 0 {
		opts.NameLimit = DefaultNameLimit
	}
	var rs = newShape(root.Tag)
	rs.merge(root)

	var rootName = opts.RootTableName
	if rootName == "" {
		rootName = root.Tag
	}
	var b = &builder{
		opts:  opts,
		names: newNamer(opts.NameLimit),
		world: strings.HasPrefix(strings.ToLower(rootName), mapping.WorldTablePrefix),
	}
	var item, wrappers = rootItem(rs)
	var cfg = &mapping.TableConfig{
		XMLRootTag: root.Tag,
		XMLItemTag: "",
	}
	if item != rs {
		cfg.XMLItemTag = item.tag
		cfg.AddDataNode = strings.Join(wrappers, ":")
	}
	b.table(item, rootName, nil, &cfg.Node)

	if err := cfg.Init(); err != nil {
		return nil, errors.WithMessage(err, "inferred configuration")
	}
	log.WithFields(log.Fields{
		"root":   root.Tag,
		"tables": len(b.tables),
	}).Debug("inferred schema")

	return &Result{Config: cfg, Tables: b.tables, Dialect: opts.Dialect}, nil
}

// shape is the union of all instances of an element path.
type shape struct {
	tag      string
	attrs    []string
	children []*shape
	// Maximum text length of any instance.
	maxText int
	// Repeated is true if the shape occurs more than once within a single
	// instance of its parent.
	repeated bool

	attrLen    map[string]int
	childIndex map[string]*shape
}

func newShape(tag string) *shape {
	return &shape{
		tag:        tag,
		attrLen:    make(map[string]int),
		childIndex: make(map[string]*shape),
	}
}

func (s *shape) merge(el *xmltree.Element) {
	for _, a := range el.Attrs {
		var cur, ok = s.attrLen[a.Name]
		if !ok {
			s.attrs = append(s.attrs, a.Name)
		}
		if n := utf8.RuneCountInString(a.Value); n > cur || !ok {
			s.attrLen[a.Name] = n
		}
	}
	if n := utf8.RuneCountInString(el.Text); n > s.maxText {
		s.maxText = n
	}

	var counts = make(map[string]int)
	for _, c := range el.Children {
		var cs, ok = s.childIndex[c.Tag]
		if !ok {
			cs = newShape(c.Tag)
			s.childIndex[c.Tag] = cs
			s.children = append(s.children, cs)
		}
		if counts[c.Tag]++; counts[c.Tag] > 1 {
			cs.repeated = true
		}
		cs.merge(c)
	}
}

func (s *shape) isLeaf() bool { return len(s.attrs) == 0 && len(s.children) == 0 }

// isWrapper is true if the shape only encloses instances of a single, complex
// element. Its text, if any, is insignificant.
func (s *shape) isWrapper() bool {
	return len(s.attrs) == 0 && len(s.children) == 1 && !s.children[0].isLeaf()
}

// outcome of classifying a child shape.
type outcome int

const (
	asColumn outcome = iota
	asWrapper
	asTable
)

// classifyRules are evaluated in order. The first matching rule applies.
var classifyRules = []struct {
	when func(*shape) bool
	then outcome
}{
	{(*shape).isLeaf, asColumn},
	{(*shape).isWrapper, asWrapper},
	{func(*shape) bool { return true }, asTable},
}

func classify(s *shape) outcome {
	for _, r := range classifyRules {
		if r.when(s) {
			return r.then
		}
	}
	panic("not reached")
}

// rootItem returns the shape of root table rows, and the wrapper path from
// the root to it. If the root is not a wrapper, it's itself the only row.
func rootItem(root *shape) (*shape, []string) {
	var wrappers []string
	for cur := root; cur.isWrapper(); {
		var next = cur.children[0]
		if next.repeated || !next.isWrapper() {
			return next, wrappers
		}
		wrappers = append(wrappers, next.tag)
		cur = next
	}
	return root, nil
}

type builder struct {
	opts  Options
	names *namer
	// World schemas key every table on the injected world row identifier.
	world  bool
	tables []*Table
}

// table builds the Table of shape |s| into |node|, and recursively builds
// its child tables.
func (b *builder) table(s *shape, base string, parent *Table, node *mapping.Node) *Table {
	var t = &Table{Name: b.names.assign(base), Parent: parent}
	b.tables = append(b.tables, t)

	node.TableName = t.Name
	node.SQL = "SELECT * FROM " + sqldb.Quote(t.Name)

	if parent != nil {
		t.ParentColumn = mapping.ParentKeyPrefix + parent.Key
		node.AssociatedField = parent.Key + ">" + t.ParentColumn
		node.SQL += " WHERE " + sqldb.Quote(t.ParentColumn) + " = '" + mapping.AssociationToken + "'"
	}
	node.SQL += " ORDER BY " + sqldb.Quote(mapping.OrderColumn)

	type pending struct {
		s        *shape
		wrappers []string
	}
	var children []pending
	var fields []field

	for _, a := range s.attrs {
		fields = append(fields, field{name: mapping.AttrPrefix + a, sampled: s.attrLen[a]})
	}
	for _, c := range s.children {
		switch classify(c) {
		case asColumn:
			fields = append(fields, field{name: c.tag, sampled: c.maxText})
		case asWrapper:
			var wrappers []string
			for c.isWrapper() {
				wrappers = append(wrappers, c.tag)
				c = c.children[0]
			}
			children = append(children, pending{s: c, wrappers: wrappers})
		case asTable:
			children = append(children, pending{s: c})
		}
	}
	t.Columns, t.RowFormat = typeColumns(fields, b.opts.ObservedLengths)

	// Children associate through the first field, or through an identifier
	// injected on import if the table has none.
	switch {
	case b.world:
		t.IDColumn = mapping.WorldRowIDColumn
		t.Key = t.IDColumn
	case len(fields) != 0:
		t.Key = fields[0].name
	default:
		t.IDColumn = mapping.RowIDColumn
		t.Key = t.IDColumn
	}

	for _, p := range children {
		var cn = &mapping.Node{
			XMLTag:      p.s.tag,
			AddDataNode: strings.Join(p.wrappers, ":"),
		}
		node.Children = append(node.Children, cn)
		b.table(p.s, t.Name+mapping.TableSeparator+p.s.tag, t, cn)
	}
	return t
}
