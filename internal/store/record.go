package store

import (
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
)

// Field is one named value in a Record.
type Field struct {
	Column string
	Value  dataset.Cell
}

// Record is an ordered field mapping for single-row CRUD.
//
// Order matters: when a record carries no "id" field, the primary-key column
// is resolved as the record's FIRST field. A Go map has no stable first key,
// so Record keeps fields in insertion order.
//
// Setting a column that is already present overwrites its value in place and
// keeps its original position.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{index: map[string]int{}}
}

// Set assigns a value to a column and returns the record for chaining.
func (r *Record) Set(column string, value dataset.Cell) *Record {
	if i, ok := r.index[column]; ok {
		r.fields[i].Value = value
		return r
	}
	r.index[column] = len(r.fields)
	r.fields = append(r.fields, Field{Column: column, Value: value})
	return r
}

// Get returns the value for a column and whether the column is present.
func (r *Record) Get(column string) (dataset.Cell, bool) {
	if r == nil {
		return dataset.Null(), false
	}
	i, ok := r.index[column]
	if !ok {
		return dataset.Null(), false
	}
	return r.fields[i].Value, true
}

// Columns returns the column names in insertion order.
func (r *Record) Columns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Column
	}
	return out
}

// Fields returns a copy of the fields in insertion order.
func (r *Record) Fields() []Field {
	if r == nil {
		return nil
	}
	return append([]Field(nil), r.fields...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}
