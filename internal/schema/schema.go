// Package schema defines the inferred relational schema descriptor.
//
// A Descriptor is produced once per ingested dataset and never mutated; the
// store adapter derives all DDL and DML from it. The logical type is a tagged
// variant rather than a free-form string so unmapped types cannot be
// constructed outside this package.
package schema

import (
	"fmt"
	"strings"
)

// Type is the logical column type, independent of any engine's type system.
type Type int

const (
	// Text is the fallback type: any value can be stored as text.
	Text Type = iota
	// Integer holds whole numbers.
	Integer
	// Float holds fractional numbers.
	Float
	// Date holds calendar dates or timestamps, persisted as ISO-8601 text.
	Date
)

// String returns the canonical lowercase name.
func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Date:
		return "date"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType resolves a canonical name back to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "bigint":
		return Integer, nil
	case "float", "real", "double":
		return Float, nil
	case "date", "timestamp", "datetime":
		return Date, nil
	case "text", "str", "string":
		return Text, nil
	default:
		return Text, fmt.Errorf("schema: unknown type %q", s)
	}
}

// SyntheticKey is the sentinel primary-key name meaning "no natural unique
// column; the engine assigns an autoincrement integer not present in the
// source data".
const SyntheticKey = "id"

// Descriptor is the immutable inferred schema for one dataset: ordered
// sanitized column names, a type per column, and a primary-key designation.
type Descriptor struct {
	columns []string
	types   map[string]Type
	primary string
}

// NewDescriptor validates and builds a descriptor.
//
// Invariants enforced:
//   - every name in columns has an entry in types
//   - primaryKey is SyntheticKey or a member of columns
//
// Duplicate column names are the caller's responsibility and are not rejected
// here; they share one types entry.
func NewDescriptor(columns []string, types map[string]Type, primaryKey string) (Descriptor, error) {
	for _, c := range columns {
		if _, ok := types[c]; !ok {
			return Descriptor{}, fmt.Errorf("schema: column %q has no type", c)
		}
	}
	if primaryKey != SyntheticKey && !contains(columns, primaryKey) {
		return Descriptor{}, fmt.Errorf("schema: primary key %q is not a column", primaryKey)
	}

	cp := make(map[string]Type, len(types))
	for k, v := range types {
		cp[k] = v
	}
	return Descriptor{
		columns: append([]string(nil), columns...),
		types:   cp,
		primary: primaryKey,
	}, nil
}

// Columns returns the sanitized column names in source order. The returned
// slice is a copy.
func (d Descriptor) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Type returns the logical type of a column. Unknown columns report Text and
// ok=false.
func (d Descriptor) Type(column string) (Type, bool) {
	t, ok := d.types[column]
	return t, ok
}

// PrimaryKey returns the primary-key column name, or SyntheticKey.
func (d Descriptor) PrimaryKey() string { return d.primary }

// HasSyntheticKey reports whether the primary key is engine-assigned rather
// than a source column.
func (d Descriptor) HasSyntheticKey() bool { return d.primary == SyntheticKey }

// NumColumns returns the column count.
func (d Descriptor) NumColumns() int { return len(d.columns) }

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
