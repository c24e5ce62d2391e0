package store

import "fmt"

// SchemaError reports a descriptor or record that cannot be mapped onto the
// managed table. It is returned before any SQL is executed.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "store: schema: " + e.Reason }

// StoreError wraps a backend failure with the adapter operation that produced
// it ("create_table", "bulk_load", ...). Use errors.As to detect it and
// Unwrap to reach the driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
