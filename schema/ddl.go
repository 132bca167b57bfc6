package schema

import (
	"fmt"
	"strings"

	"github.com/xiaohan1105/axmltools-sub005/mapping"
	"github.com/xiaohan1105/axmltools-sub005/sqldb"
)

// Table is an inferred table.
type Table struct {
	Name string
	// Parent table, or nil for the root table.
	Parent *Table
	// ParentColumn holds the associated key of a Parent row.
	ParentColumn string
	// Key is the field through which child tables associate with rows of
	// this table.
	Key string
	// IDColumn is a synthetic identifier column populated on import, or
	// empty if the table has none.
	IDColumn string
	// Columns of the document, excluding synthetic columns.
	Columns []Column
	// RowFormat of the table, or empty for the default.
	RowFormat string
}

// Column is a typed column of a Table.
type Column struct {
	Name string
	Type string
}

// field is a column prior to typing.
type field struct {
	name    string
	sampled int
}

// Text types and row formats.
const (
	MediumText = "MEDIUMTEXT"
	Text       = "TEXT"

	RowFormatCompressed = "COMPRESSED"
	RowFormatDynamic    = "DYNAMIC"
)

// minVarchar is the minimum VARCHAR width, and maxVarchar the width beyond
// which TEXT is used instead.
const (
	minVarchar = 64
	maxVarchar = 255
)

// typeRules select the column type and row format of a table by its number
// of fields. They're evaluated in order, and the first matching rule applies.
var typeRules = []struct {
	when      func(fields int) bool
	rowFormat string
	typeOf    func(length int) string
}{
	{func(n int) bool { return n > 100 }, RowFormatCompressed, func(int) string { return MediumText }},
	{func(n int) bool { return n > 50 }, RowFormatDynamic, func(int) string { return Text }},
	{func(int) bool { return true }, "", varchar},
}

func varchar(length int) string {
	if length > maxVarchar {
		return Text
	}
	return fmt.Sprintf("VARCHAR(%d)", length)
}

// typeColumns types |fields|, returning Columns and the table row format.
func typeColumns(fields []field, observed map[string]int) ([]Column, string) {
	for _, r := range typeRules {
		if !r.when(len(fields)) {
			continue
		}
		var out = make([]Column, len(fields))
		for i, f := range fields {
			var length = max(observed[f.name], f.sampled, minVarchar)
			out[i] = Column{Name: f.name, Type: r.typeOf(length)}
		}
		return out, r.rowFormat
	}
	panic("not reached")
}

// DDL returns DROP and CREATE statements for the Result's tables, in an
// order suited for execution: tables are dropped children first, and
// created parents first.
func (r *Result) DDL() []string {
	var out []string
	for i := len(r.Tables) - 1; i >= 0; i-- {
		out = append(out, "DROP TABLE IF EXISTS "+sqldb.Quote(r.Tables[i].Name))
	}
	for _, t := range r.Tables {
		out = append(out, t.Create(r.Dialect))
	}
	return out
}

// Script returns the DDL as one ";"-terminated script.
func (r *Result) Script() string {
	var b strings.Builder
	for _, stmt := range r.DDL() {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}

// Create returns the CREATE TABLE statement of the Table.
func (t *Table) Create(d sqldb.Dialect) string {
	var lines []string

	switch d {
	case sqldb.SQLite:
		lines = append(lines, sqldb.Quote(mapping.OrderColumn)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	default:
		lines = append(lines, sqldb.Quote(mapping.OrderColumn)+" BIGINT NOT NULL AUTO_INCREMENT")
	}
	if t.ParentColumn != "" {
		lines = append(lines, sqldb.Quote(t.ParentColumn)+" VARCHAR(255) DEFAULT NULL")
	}
	if t.IDColumn != "" {
		lines = append(lines, sqldb.Quote(t.IDColumn)+" VARCHAR(36) DEFAULT NULL")
	}
	for _, c := range t.Columns {
		lines = append(lines, sqldb.Quote(c.Name)+" "+c.Type+" DEFAULT NULL")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(sqldb.Quote(t.Name))
	b.WriteString(" (\n  ")

	if d == sqldb.SQLite {
		b.WriteString(strings.Join(lines, ",\n  "))
		b.WriteString("\n)")
		return b.String()
	}

	lines = append(lines, "PRIMARY KEY ("+sqldb.Quote(mapping.OrderColumn)+")")
	if t.ParentColumn != "" {
		lines = append(lines, "KEY "+sqldb.Quote("ix"+t.ParentColumn)+" ("+sqldb.Quote(t.ParentColumn)+")")
	}
	b.WriteString(strings.Join(lines, ",\n  "))
	b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")

	if t.RowFormat != "" {
		b.WriteString(" ROW_FORMAT=")
		b.WriteString(t.RowFormat)
	}
	return b.String()
}
