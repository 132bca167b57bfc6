package mapping

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
)

// AssociationKind discriminates forms of an Association.
type AssociationKind int

const (
	// NoAssociation is the zero AssociationKind, used by root Nodes.
	NoAssociation AssociationKind = iota
	// Direct associations read and write the same field name: the child's
	// column is populated from the like-named field of an ancestor row.
	Direct
	// Inherited associations read field Ancestor of an ancestor row into
	// the child's own column Local (written "Ancestor>Local").
	Inherited
)

// Association of a child table's rows with a row of an ancestor table.
type Association struct {
	Kind AssociationKind
	// Ancestor is the field read from ancestor rows.
	Ancestor string
	// Local is the column of the child table holding the value.
	Local string
}

// ParseAssociation parses "field" (Direct) or "ancestor>local" (Inherited).
// An empty string parses as the zero Association.
func ParseAssociation(s string) (Association, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Association{}, nil
	}
	var parts = strings.Split(s, ">")

	switch len(parts) {
	case 1:
		return Association{Kind: Direct, Ancestor: s, Local: s}, nil
	case 2:
		var a, l = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if a == "" || l == "" {
			return Association{}, errors.Errorf("invalid association chain %q", s)
		}
		return Association{Kind: Inherited, Ancestor: a, Local: l}, nil
	default:
		return Association{}, errors.Errorf("association chain %q has more than one '>'", s)
	}
}

// IsZero is true if the Association is NoAssociation.
func (a Association) IsZero() bool { return a.Kind == NoAssociation }

// String returns the configuration form of the Association.
func (a Association) String() string {
	switch a.Kind {
	case Direct:
		return a.Local
	case Inherited:
		return a.Ancestor + ">" + a.Local
	default:
		return ""
	}
}

// ErrUnresolvedAssociation is returned when no ancestor row carries the
// association's Ancestor field at all.
var ErrUnresolvedAssociation = errors.New("association field not present on any ancestor row")

// Resolve the Association against |ancestors|, ordered from the root row to
// the immediate parent row. The nearest ancestor carrying the Ancestor field
// supplies its value. If that value is NULL, Resolve returns (nil, nil). If
// no ancestor carries the field, ErrUnresolvedAssociation is returned.
func (a Association) Resolve(ancestors []*sqldb.Row) (*string, error) {
	for i := len(ancestors) - 1; i >= 0; i-- {
		if ancestors[i].Has(a.Ancestor) {
			return ancestors[i].Value(a.Ancestor), nil
		}
	}
	return nil, errors.WithMessagef(ErrUnresolvedAssociation, "resolving %q", a.String())
}
