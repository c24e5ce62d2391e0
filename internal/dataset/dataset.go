// Package dataset defines the tabular data model shared by the inference
// engine and the store adapter.
//
// A Dataset is an ordered set of column labels plus ordered rows. Each row maps
// an original column label to a Cell. Cells carry an explicit missing marker
// instead of borrowing a not-a-number convention from a numeric library, so
// null handling is uniform across text, numeric, and date values.
//
// Column order and row order are preserved end-to-end: loaders emit them in
// source order, and nothing in this package deduplicates or sorts.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnonymousPrefix marks auto-generated labels for headerless input.
// Loaders emit "Unnamed: 0", "Unnamed: 1", ... when no header row is present;
// the inference engine keys off this prefix on the first label only.
const AnonymousPrefix = "Unnamed"

// Kind identifies the scalar variant stored in a Cell.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindTime
)

// String returns a short label for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cell is one scalar value with an explicit missing marker.
//
// The zero value is the null cell. Cells are immutable once constructed.
type Cell struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
}

// Null returns the missing-value cell.
func Null() Cell { return Cell{} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{kind: KindText, s: s} }

// Int returns an integer cell.
func Int(i int64) Cell { return Cell{kind: KindInt, i: i} }

// Float returns a floating-point cell.
func Float(f float64) Cell { return Cell{kind: KindFloat, f: f} }

// Time returns a native date/timestamp cell.
func Time(t time.Time) Cell { return Cell{kind: KindTime, t: t} }

// Kind reports the variant stored in the cell.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether the cell holds the missing marker.
func (c Cell) IsNull() bool { return c.kind == KindNull }

// Text returns the text payload. ok is false unless Kind is KindText.
func (c Cell) Text() (string, bool) { return c.s, c.kind == KindText }

// Int returns the integer payload. ok is false unless Kind is KindInt.
func (c Cell) Int() (int64, bool) { return c.i, c.kind == KindInt }

// Float returns the float payload. ok is false unless Kind is KindFloat.
func (c Cell) Float() (float64, bool) { return c.f, c.kind == KindFloat }

// Time returns the time payload. ok is false unless Kind is KindTime.
func (c Cell) Time() (time.Time, bool) { return c.t, c.kind == KindTime }

// CanonicalTimeLayout is the ISO-8601 form used whenever a native
// date/timestamp value is rendered to text (storage binding, uniqueness
// canonicalization). Seconds precision, no zone.
const CanonicalTimeLayout = "2006-01-02T15:04:05"

// Canonical returns the canonical string form of the cell's value, used for
// uniqueness comparison so that e.g. integer 1 and text "1" collide the same
// way they would after storage round-trips. Null cells return "".
func (c Cell) Canonical() string {
	switch c.kind {
	case KindNull:
		return ""
	case KindText:
		return strings.TrimSpace(c.s)
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	case KindTime:
		return c.t.Format(CanonicalTimeLayout)
	default:
		return ""
	}
}

// Row maps an original column label to its cell. Ordering lives in
// Dataset.Columns, not in the map.
type Row map[string]Cell

// Dataset is an ordered tabular sample: labels in source order, rows in source
// order. Duplicate labels are allowed and not deduplicated here.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// ColumnCells returns the cells of one column in row order. Rows missing the
// label contribute a null cell, keeping the slice aligned with Rows.
func (d *Dataset) ColumnCells(label string) []Cell {
	if d == nil {
		return nil
	}
	out := make([]Cell, 0, len(d.Rows))
	for _, r := range d.Rows {
		out = append(out, r[label])
	}
	return out
}

// Relabel returns a dataset with columns renamed positionally: names[i]
// replaces Columns[i] in every row. The receiver is not mutated; rows are
// shallow-copied with re-keyed cells.
//
// Errors:
//   - Returns an error if len(names) != NumColumns.
func (d *Dataset) Relabel(names []string) (*Dataset, error) {
	if len(names) != d.NumColumns() {
		return nil, fmt.Errorf("relabel: %d names for %d columns", len(names), d.NumColumns())
	}

	out := &Dataset{
		Columns: append([]string(nil), names...),
		Rows:    make([]Row, 0, len(d.Rows)),
	}
	for _, r := range d.Rows {
		nr := make(Row, len(names))
		for i, old := range d.Columns {
			nr[names[i]] = r[old]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}
