package sqldb

// Row is an ordered set of named, nullable column values. Values are held as
// text: documents carry no type information, and every column produced by
// schema inference is a character type.
type Row struct {
	cols []string
	vals map[string]*string
}

// NewRow returns an empty Row.
func NewRow() *Row { return &Row{vals: make(map[string]*string)} }

// Columns returns column names of the Row, in insertion order.
func (r *Row) Columns() []string { return r.cols }

// Len is the number of columns of the Row.
func (r *Row) Len() int { return len(r.cols) }

// Has is true if the Row has column |name|, which may be NULL.
func (r *Row) Has(name string) bool {
	var _, ok = r.vals[name]
	return ok
}

// Get returns the value of column |name|. It returns false if the column
// is absent or is NULL.
func (r *Row) Get(name string) (string, bool) {
	if v := r.vals[name]; v != nil {
		return *v, true
	}
	return "", false
}

// Value returns the value of column |name|, or nil if absent or NULL.
func (r *Row) Value(name string) *string { return r.vals[name] }

// Set column |name| to |value|, which replaces a current value.
func (r *Row) Set(name, value string) { r.SetValue(name, &value) }

// SetNull sets column |name| to NULL.
func (r *Row) SetNull(name string) { r.SetValue(name, nil) }

// SetValue sets column |name| to |value|, where nil is NULL.
func (r *Row) SetValue(name string, value *string) {
	if _, ok := r.vals[name]; !ok {
		r.cols = append(r.cols, name)
	}
	r.vals[name] = value
}

// Append |value| to column |name|, joining with |sep| if the column already
// has a non-NULL value.
func (r *Row) Append(name, value, sep string) {
	if cur, ok := r.Get(name); ok {
		r.Set(name, cur+sep+value)
	} else {
		r.Set(name, value)
	}
}

// Map returns the non-NULL values of the Row, keyed on column name.
func (r *Row) Map() map[string]string {
	var out = make(map[string]string, len(r.cols))
	for _, c := range r.cols {
		if v := r.vals[c]; v != nil {
			out[c] = *v
		}
	}
	return out
}
