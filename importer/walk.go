package importer

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// walker converts elements into rows, grouped by table.
type walker struct {
	world   bool
	tables  map[*mapping.Node]string
	order   []*mapping.Node
	rows    map[*mapping.Node][]*sqldb.Row
	skipped map[string]struct{}

	// Nodes whose children associate through a row identifier.
	ids map[*mapping.Node]bool
}

func newWalker(cfg *mapping.TableConfig, mapType string) *walker {
	var w = &walker{
		world:   cfg.IsWorld(),
		tables:  make(map[*mapping.Node]string),
		ids:     make(map[*mapping.Node]bool),
		order:   cfg.Nodes(),
		rows:    make(map[*mapping.Node][]*sqldb.Row),
		skipped: make(map[string]struct{}),
	}
	for _, n := range w.order {
		w.tables[n] = mapping.Substitute(n.TableName, "", mapType)

		if n.Parent != nil && n.Association.Ancestor == mapping.RowIDColumn {
			w.ids[n.Parent] = true
		}
	}
	return w
}

// row converts |el|, an element of Node |n| having ancestor rows |ancestors|
// ordered from the root, and then recurses into elements of child Nodes.
func (w *walker) row(n *mapping.Node, el *xmltree.Element, ancestors []*sqldb.Row) {
	var row = sqldb.NewRow()

	var nested = make(map[string]struct{}, len(n.Children))
	for _, c := range n.Children {
		nested[c.OuterTag()] = struct{}{}
	}

	for _, attr := range el.Attrs {
		if col := mapping.AttrPrefix + attr.Name; n.Includes(col) {
			row.Set(col, attr.Value)
		}
	}
	for _, child := range el.Children {
		if _, ok := nested[child.Tag]; ok {
			continue
		} else if !child.IsLeaf() {
			w.skip(n, child.Tag)
			continue
		} else if n.Includes(child.Tag) {
			row.Append(child.Tag, child.Text, mapping.ValueSeparator)
		}
	}

	// An association value overrides a like-named element of the row.
	if n.Parent != nil {
		if value, err := n.Association.Resolve(ancestors); err == nil {
			row.SetValue(n.Association.Local, value)
		} else {
			log.WithFields(log.Fields{"table": n.TableName, "err": err}).
				Debug("importing row without association value")
		}
	}
	if w.world && !row.Has(mapping.WorldRowIDColumn) {
		row.Set(mapping.WorldRowIDColumn, uuid.NewString())
	}
	if w.ids[n] && !row.Has(mapping.RowIDColumn) {
		row.Set(mapping.RowIDColumn, uuid.NewString())
	}
	w.rows[n] = append(w.rows[n], row)

	var chain = make([]*sqldb.Row, len(ancestors)+1)
	copy(chain, ancestors)
	chain[len(ancestors)] = row

	for _, c := range n.Children {
		var path = append(append([]string(nil), c.Wrappers...), c.XMLTag)
		for _, cel := range el.Descend(path...) {
			w.row(c, cel, chain)
		}
	}
}

// skip logs, once per tag, an unmapped element having children.
func (w *walker) skip(n *mapping.Node, tag string) {
	var key = n.TableName + "/" + tag
	if _, ok := w.skipped[key]; ok {
		return
	}
	w.skipped[key] = struct{}{}

	log.WithFields(log.Fields{"table": n.TableName, "tag": tag}).
		Warn("skipping unmapped element having children")
}

// total number of rows of all tables.
func (w *walker) total() int {
	var n int
	for _, rows := range w.rows {
		n += len(rows)
	}
	return n
}
