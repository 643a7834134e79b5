// Package table provides the in-memory, column-ordered tables that flow
// through the reconciliation pipeline.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over rows of Values.
// Methods that change shape or content mutate the receiver; callers that
// must not affect a sibling stage work on a Clone.
type Table struct {
	Name    string
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns. Duplicate column
// names get a ".N" suffix.
func New(name string, columns []string) *Table {
	t := &Table{Name: name, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.columns = append(t.columns, t.uniqueName(c))
		t.index[t.columns[len(t.columns)-1]] = len(t.columns) - 1
	}
	return t
}

// FromRows builds a table from raw string rows where rows[0] is the header.
// Fully blank rows are skipped and blank cells become Missing.
func FromRows(name string, rows [][]string) *Table {
	if len(rows) == 0 {
		return New(name, nil)
	}
	t := New(name, rows[0])
	for _, raw := range rows[1:] {
		vals := make([]Value, len(t.columns))
		blank := true
		for j := range vals {
			if j < len(raw) {
				vals[j] = Cell(raw[j])
				if vals[j].Valid() {
					blank = false
				}
			}
		}
		if blank {
			continue
		}
		t.rows = append(t.rows, vals)
	}
	return t
}

func (t *Table) uniqueName(c string) string {
	if _, ok := t.index[c]; !ok {
		return c
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", c, n)
		if _, ok := t.index[candidate]; !ok {
			return candidate
		}
	}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append adds a row. Short rows are padded with Missing; long rows panic.
func (t *Table) Append(vals ...Value) {
	if len(vals) > len(t.columns) {
		panic(fmt.Sprintf("table %s: row has %d values for %d columns", t.Name, len(vals), len(t.columns)))
	}
	row := make([]Value, len(t.columns))
	copy(row, vals)
	t.rows = append(t.rows, row)
}

// AppendMap adds a row from a column→value map. Unknown columns are ignored.
func (t *Table) AppendMap(m map[string]Value) {
	row := make([]Value, len(t.columns))
	for c, v := range m {
		if j, ok := t.index[c]; ok {
			row[j] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Get returns the value at row i of col, or Missing if the column is absent.
func (t *Table) Get(i int, col string) Value {
	j, ok := t.index[col]
	if !ok {
		return Missing
	}
	return t.rows[i][j]
}

// Set writes a value, adding the column if needed.
func (t *Table) Set(i int, col string, v Value) {
	if !t.Has(col) {
		t.AddColumn(col, Missing)
	}
	t.rows[i][t.index[col]] = v
}

// Column returns a copy of a column's values. Absent columns yield all Missing.
func (t *Table) Column(col string) []Value {
	out := make([]Value, len(t.rows))
	j, ok := t.index[col]
	if !ok {
		return out
	}
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// AddColumn appends a column filled with fill. Existing columns are left alone.
func (t *Table) AddColumn(col string, fill Value) {
	if t.Has(col) {
		return
	}
	t.index[col] = len(t.columns)
	t.columns = append(t.columns, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
}

// SetColumn replaces (or adds) a column with vals, which must have Len entries.
func (t *Table) SetColumn(col string, vals []Value) {
	if len(vals) != len(t.rows) {
		panic(fmt.Sprintf("table %s: column %s has %d values for %d rows", t.Name, col, len(vals), len(t.rows)))
	}
	t.AddColumn(col, Missing)
	j := t.index[col]
	for i := range t.rows {
		t.rows[i][j] = vals[i]
	}
}

// DropColumn removes a column if present.
func (t *Table) DropColumn(col string) {
	j, ok := t.index[col]
	if !ok {
		return
	}
	t.columns = append(t.columns[:j], t.columns[j+1:]...)
	for i, r := range t.rows {
		t.rows[i] = append(r[:j], r[j+1:]...)
	}
	t.reindex()
}

// RenameColumn renames from to to. It is an error if to already exists.
func (t *Table) RenameColumn(from, to string) error {
	if from == to {
		return nil
	}
	j, ok := t.index[from]
	if !ok {
		return fmt.Errorf("table %s: column %q not found", t.Name, from)
	}
	if t.Has(to) {
		return fmt.Errorf("table %s: column %q already exists", t.Name, to)
	}
	t.columns[j] = to
	t.reindex()
	return nil
}

// MoveFirst moves col to position 0.
func (t *Table) MoveFirst(col string) {
	j, ok := t.index[col]
	if !ok || j == 0 {
		return
	}
	order := append([]string{col}, append(t.Columns()[:j], t.columns[j+1:]...)...)
	*t = *t.Select(order...)
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for j, c := range t.columns {
		t.index[c] = j
	}
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{Name: t.Name, columns: t.Columns(), rows: make([][]Value, len(t.rows))}
	c.reindex()
	for i, r := range t.rows {
		c.rows[i] = append([]Value(nil), r...)
	}
	return c
}

// Select returns a new table with the given columns in order. Columns
// missing from t are skipped.
func (t *Table) Select(cols ...string) *Table {
	var present []string
	for _, c := range cols {
		if t.Has(c) {
			present = append(present, c)
		}
	}
	out := New(t.Name, present)
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		row := make([]Value, len(present))
		for j, c := range present {
			row[j] = r[t.index[c]]
		}
		out.rows[i] = row
	}
	return out
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row's position in its table.
func (r Row) Index() int { return r.i }

// Get returns the value of col in this row.
func (r Row) Get(col string) Value { return r.t.Get(r.i, col) }

// Rows returns views over every row in order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	for i := range t.rows {
		out[i] = Row{t: t, i: i}
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.Name, t.columns)
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			out.rows = append(out.rows, append([]Value(nil), r...))
		}
	}
	return out
}

// Strings returns the table as header plus string rows, missing cells as "".
func (t *Table) Strings() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, r := range t.rows {
		row := make([]string, len(r))
		for j, v := range r {
			row[j] = v.String()
		}
		out = append(out, row)
	}
	return out
}

// Concat appends tables in argument order. The result's columns are the
// union of the inputs' columns in first-seen order; absent cells are Missing.
func Concat(name string, tables ...*Table) *Table {
	var cols []string
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	out := New(name, cols)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for i := range t.rows {
			row := make([]Value, len(cols))
			for j, c := range cols {
				row[j] = t.Get(i, c)
			}
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// String renders a compact description for logs.
func (t *Table) String() string {
	return fmt.Sprintf("%s[%d rows: %s]", t.Name, len(t.rows), strings.Join(t.columns, ", "))
}
