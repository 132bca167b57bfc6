// Package forest derives parent / child relationships of tables from one or
// more TableConfigs. A Forest answers which table is the ultimate root of a
// given table, and which TableConfig (and therefore which configuration file)
// maps a table. It carries no column semantics.
package forest

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/xiaohan1105/axmltools-sub005/mapping"
)

// Node is a table of a Forest.
type Node struct {
	Name     string
	Parent   *Node
	Children []*Node
	// Config is the TableConfig which maps the table.
	Config *mapping.TableConfig
}

// Forest is a set of root table Nodes and an index of all Nodes by name.
type Forest struct {
	Roots []*Node
	index map[string]*Node
}

// Build a Forest from |configs|. For each TableConfig, a Node is created or
// reused for its own table and then, depth-first, for each child mapping.
// A table referenced as the child of another is not a root. A table which is
// the child of two different parents is an error.
func Build(configs ...*mapping.TableConfig) (*Forest, error) {
	var f = &Forest{index: make(map[string]*Node)}
	var order []*Node

	var get = func(name string, cfg *mapping.TableConfig) *Node {
		if n, ok := f.index[name]; ok {
			return n
		}
		var n = &Node{Name: name, Config: cfg}
		f.index[name] = n
		order = append(order, n)
		return n
	}

	var link func(parent *Node, m *mapping.Node, cfg *mapping.TableConfig) error
	link = func(parent *Node, m *mapping.Node, cfg *mapping.TableConfig) error {
		for _, cm := range m.Children {
			var child = get(cm.TableName, cfg)

			if child.Parent != nil && child.Parent != parent {
				return errors.Errorf("table %s has conflicting parents %s and %s",
					child.Name, child.Parent.Name, parent.Name)
			} else if child == parent || isAncestor(child, parent) {
				return errors.Errorf("table %s is its own ancestor", child.Name)
			} else if child.Parent == nil {
				child.Parent = parent
				parent.Children = append(parent.Children, child)
			}
			if err := link(child, cm, cfg); err != nil {
				return err
			}
		}
		return nil
	}

	for _, cfg := range configs {
		var root = get(cfg.TableName, cfg)
		if err := link(root, &cfg.Node, cfg); err != nil {
			if cfg.Source != "" {
				err = errors.WithMessagef(err, "configuration %s", cfg.Source)
			}
			return nil, err
		}
	}

	for _, n := range order {
		if n.Parent == nil {
			f.Roots = append(f.Roots, n)
		}
	}
	return f, nil
}

func isAncestor(n, of *Node) bool {
	for p := of.Parent; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Lookup returns the Node of |table|, or nil.
func (f *Forest) Lookup(table string) *Node { return f.index[table] }

// Root returns the ultimate root table of |table|, by walking parents.
func (f *Forest) Root(table string) (*Node, error) {
	var n = f.index[table]
	if n == nil {
		return nil, errors.Errorf("table %s is not in the forest", table)
	}
	for n.Parent != nil {
		n = n.Parent
	}
	return n, nil
}

// ConfigOf returns the TableConfig which maps |table|: that of its first
// mapping, which for a child table is the TableConfig of its root.
func (f *Forest) ConfigOf(table string) (*mapping.TableConfig, error) {
	var root, err = f.Root(table)
	if err != nil {
		return nil, err
	}
	return root.Config, nil
}

// IsRoot is true if |table| is a root table of the Forest.
func (f *Forest) IsRoot(table string) bool {
	var n = f.index[table]
	return n != nil && n.Parent == nil
}

// Tables returns the names of all tables of the Forest, sorted.
func (f *Forest) Tables() []string {
	var out = make([]string, 0, len(f.index))
	for name := range f.index {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
