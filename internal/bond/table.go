// Package bond models scraped instrument attributes and the cleaning rules that
// turn them into a filtered, typed table with per-country yield envelopes.
package bond

// Record maps attribute labels to raw cell text for one instrument.
// Labels keep the order in which they were first set; setting an existing
// label overwrites its value in place.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from alternating label/value pairs.
// A trailing label without a value is ignored.
func NewRecord(pairs ...string) *Record {
	r := &Record{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Set stores value under label.
func (r *Record) Set(label, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[label]; !ok {
		r.keys = append(r.keys, label)
	}
	r.values[label] = value
}

// Get returns the value for label and whether it was present.
func (r *Record) Get(label string) (string, bool) {
	v, ok := r.values[label]
	return v, ok
}

// Value returns the value for label, or "" when absent.
func (r *Record) Value(label string) string {
	return r.values[label]
}

// Keys returns the labels in first-set order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len reports the number of labels.
func (r *Record) Len() int {
	return len(r.keys)
}

// Table is an ordered collection of records with a shared, non-strict column set.
// The column set is the union of every appended record's labels, in first-seen order.
type Table struct {
	columns []string
	seen    map[string]struct{}
	rows    []*Record
}

// NewTable creates an empty table with the given leading columns.
func NewTable(columns ...string) *Table {
	t := &Table{seen: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// URLTable builds the single-column table used for discovered instrument URLs.
func URLTable(urls []string) *Table {
	t := NewTable(URLColumn)
	for _, u := range urls {
		t.Append(NewRecord(URLColumn, u))
	}
	return t
}

// URLColumn is the header of the URL list snapshot.
const URLColumn = "url"

// Append adds a row and extends the column set with any new labels.
func (t *Table) Append(r *Record) {
	for _, k := range r.keys {
		t.addColumn(k)
	}
	t.rows = append(t.rows, r)
}

func (t *Table) addColumn(name string) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	if _, ok := t.seen[name]; ok {
		return
	}
	t.seen[name] = struct{}{}
	t.columns = append(t.columns, name)
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether any row (or the header) carries name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.seen[name]
	return ok
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() []*Record {
	return t.rows
}

// Len reports the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Column returns one column's values, with "" for rows that lack it.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Value(name)
	}
	return out
}
