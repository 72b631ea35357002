package frame

import (
	"fmt"
	"time"
)

// Row maps column names to values. Missing columns and SQL NULLs read as nil.
type Row map[string]any

// Frame is an ordered, column-addressable batch of rows.
type Frame struct {
	Columns []string
	Rows    []Row
}

// New builds an empty frame with the given column order.
func New(columns ...string) *Frame {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols}
}

// Len returns the number of rows; a nil frame is empty.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Has reports whether the column exists.
func (f *Frame) Has(column string) bool {
	if f == nil {
		return false
	}
	for _, c := range f.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Column returns every value of a column in row order.
func (f *Frame) Column(name string) ([]any, error) {
	if !f.Has(name) {
		return nil, fmt.Errorf("column %s not found", name)
	}
	values := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[name]
	}
	return values, nil
}

// Append adds a row and registers any column the frame does not know yet.
func (f *Frame) Append(row Row) {
	for col := range row {
		if !f.Has(col) {
			f.Columns = append(f.Columns, col)
		}
	}
	f.Rows = append(f.Rows, row)
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	out := New(f.Columns...)
	for _, row := range f.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// WithColumns returns the column list extended by the given names, keeping order.
func (f *Frame) WithColumns(extra ...string) []string {
	cols := make([]string, len(f.Columns), len(f.Columns)+len(extra))
	copy(cols, f.Columns)
	for _, c := range extra {
		if !f.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String renders a cell as text; nil becomes the empty string.
func (r Row) String(column string) string {
	return Stringify(r[column])
}

// Stringify renders any cell value as text.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
