package export

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
	"github.com/xiaohan1105/axmltools-sub005/xmltree"
)

// row builds the element |tag| of |row|, a row of Node |n| at |depth|,
// having ancestor rows |ancestors| ordered from the root. Columns are
// emitted in row order. A child Node anchored on a column of the row is
// emitted at that column's position; other children follow, in
// configuration order.
func (j *job) row(ctx context.Context, n *mapping.Node, tag string, row *sqldb.Row,
	ancestors []*sqldb.Row, depth int) (*xmltree.Element, error) {

	var chain = make([]*sqldb.Row, len(ancestors)+1)
	copy(chain, ancestors)
	chain[len(ancestors)] = row

	// Populate each child Node's elements into a private slot, then attach.
	var slots = make([][]*xmltree.Element, len(n.Children))
	var join = j.pool.Join()

	for i, c := range n.Children {
		i, c := i, c
		join.Go(depth, "populating "+c.TableName, func() error {
			var els, err = j.children(ctx, c, chain, depth+1)
			slots[i] = els
			return err
		})
	}
	if err := join.Wait(); err != nil {
		return nil, err
	}

	var el = xmltree.New(tag)
	var anchored = make(map[string][]int)
	for i, c := range n.Children {
		if row.Has(c.Anchor()) {
			anchored[c.Anchor()] = append(anchored[c.Anchor()], i)
		}
	}
	var attached = make([]bool, len(n.Children))
	var attach = func(i int) {
		attached[i] = true
		if len(slots[i]) != 0 {
			el.Ensure(n.Children[i].Wrappers...).Append(slots[i]...)
		}
	}

	for _, col := range row.Columns() {
		if ind, ok := anchored[col]; ok {
			for _, i := range ind {
				attach(i)
			}
			continue
		}
		var v, ok = row.Get(col)
		if !ok || mapping.IsSynthetic(col) || !n.Includes(col) {
			continue
		} else if n.Parent != nil && col == n.Association.Local {
			continue
		}

		if name := strings.TrimPrefix(col, mapping.AttrPrefix); name != col {
			el.SetAttr(name, v)
		} else {
			for _, part := range strings.Split(v, mapping.ValueSeparator) {
				el.AddLeaf(col, part)
			}
		}
	}
	for i := range n.Children {
		if !attached[i] {
			attach(i)
		}
	}
	return el, nil
}

// children returns elements of the rows of child Node |c| which associate
// with the final row of |chain|.
func (j *job) children(ctx context.Context, c *mapping.Node, chain []*sqldb.Row, depth int) ([]*xmltree.Element, error) {
	var value, err = c.Association.Resolve(chain)
	if err != nil {
		return nil, errors.WithMessagef(err, "table %s", c.TableName)
	} else if value == nil {
		return nil, nil // NULL association: no children.
	}

	var rows []*sqldb.Row
	if j.cache.Has(c.TableName) {
		rows = j.cache.Get(c.TableName, *value)
	} else if rows, err = j.db.Query(ctx, mapping.Substitute(c.SQL, *value, j.opts.MapType)); err != nil {
		return nil, errors.WithMessagef(err, "querying %s", c.TableName)
	}

	var out = make([]*xmltree.Element, 0, len(rows))
	for _, r := range rows {
		var el, err = j.row(ctx, c, c.XMLTag, r, chain, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}
