// Package xmltree is a small, order-preserving element tree for the documents
// exchanged with the game client. Unlike decoding into a map, an Element keeps
// its attributes and children in document order, which is required both for
// reproducing item ordering on export and for sampling a document's shape
// during schema inference.
//
// Whitespace-only character data is dropped and leaf text is trimmed. Comments,
// processing instructions and directives are not retained.
package xmltree

// Attr is a single attribute of an Element.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the document tree.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []*Element
	// Text is the (trimmed) character data of the Element. It's meaningful
	// only for leaf Elements.
	Text string
}

// New returns an empty Element with the given tag.
func New(tag string) *Element { return &Element{Tag: tag} }

// NewLeaf returns an Element with the given tag and text.
func NewLeaf(tag, text string) *Element { return &Element{Tag: tag, Text: text} }

// Attr returns the value of attribute |name|, and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets attribute |name|, replacing a current value if present.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// Append children to the Element, in order.
func (e *Element) Append(children ...*Element) { e.Children = append(e.Children, children...) }

// AddLeaf appends and returns a new leaf child.
func (e *Element) AddLeaf(tag, text string) *Element {
	var c = NewLeaf(tag, text)
	e.Children = append(e.Children, c)
	return c
}

// IsLeaf is true if the Element has no child Elements.
func (e *Element) IsLeaf() bool { return len(e.Children) == 0 }

// ChildrenByTag returns child Elements having |tag|, in document order.
func (e *Element) ChildrenByTag(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// LastChild returns the final child having |tag|, or nil.
func (e *Element) LastChild(tag string) *Element {
	for i := len(e.Children) - 1; i >= 0; i-- {
		if e.Children[i].Tag == tag {
			return e.Children[i]
		}
	}
	return nil
}

// Descend returns all Elements reached by following |path| from the Element,
// where each path component selects every child having that tag. An empty
// path returns the Element itself.
func (e *Element) Descend(path ...string) []*Element {
	var cur = []*Element{e}
	for _, tag := range path {
		var next []*Element
		for _, el := range cur {
			next = append(next, el.ChildrenByTag(tag)...)
		}
		cur = next
	}
	return cur
}

// Ensure returns the Element reached by following |path| from the Element,
// descending into the last existing child of each tag or creating it.
func (e *Element) Ensure(path ...string) *Element {
	var cur = e
	for _, tag := range path {
		var next = cur.LastChild(tag)
		if next == nil {
			next = New(tag)
			cur.Append(next)
		}
		cur = next
	}
	return cur
}

// Walk calls |fn| for the Element and each descendant, depth-first and
// pre-order, with the Element's depth (the receiver is depth zero).
func (e *Element) Walk(fn func(el *Element, depth int)) { e.walk(fn, 0) }

func (e *Element) walk(fn func(*Element, int), depth int) {
	fn(e, depth)
	for _, c := range e.Children {
		c.walk(fn, depth+1)
	}
}
