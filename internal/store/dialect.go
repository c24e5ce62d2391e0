package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// Querier is the subset of *sql.DB / *sql.Tx needed for metadata lookups.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures what differs between relational engines. The adapter
// assembles statements from these pieces; each backend implements the
// engine-assigned-key insert and primary key discovery in its own
// idiomatic way (RETURNING, OUTPUT INSERTED, LastInsertId).
type Dialect interface {
	// Name is the registry kind, e.g. "sqlite".
	Name() string

	// DriverName is the database/sql driver to open connections with.
	DriverName() string

	// QuoteIdent quotes a column or table identifier.
	QuoteIdent(ident string) string

	// Placeholder renders the n-th bind parameter of a statement (1-based).
	Placeholder(n int) string

	// ColumnType maps a logical type to the engine's column type.
	// Unrecognized logical types map to the engine's text type.
	ColumnType(t schema.Type) string

	// MaxBindParams is the engine's bind-parameter ceiling per statement.
	// Bulk inserts are chunked so no single statement exceeds it.
	MaxBindParams() int

	// AutoIncrementPK renders the DDL fragment for an engine-assigned
	// integer primary key column.
	AutoIncrementPK(column string) string

	// InsertReturningKey inserts one row and returns the value of keyColumn
	// for the new row. args align positionally with columns.
	InsertReturningKey(ctx context.Context, tx *sql.Tx, table string, columns []string, args []any, keyColumn string) (int64, error)

	// PrimaryKeyColumn discovers the declared primary key column of a table
	// from engine metadata. Returns "" when the table has none.
	PrimaryKeyColumn(ctx context.Context, q Querier, table string) (string, error)
}

type dialectFactory func() Dialect

var (
	dialectMu        sync.RWMutex
	dialectFactories = map[string]dialectFactory{}
)

// Register registers a backend dialect under a kind (e.g. "postgres").
//
// Call Register from an init() function in a backend package. Registering the
// same kind more than once panics, to fail fast on ambiguous backend selection.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f dialectFactory) {
	dialectMu.Lock()
	defer dialectMu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := dialectFactories[kind]; exists {
		panic(fmt.Sprintf("store: dialect already registered for kind=%q", kind))
	}

	dialectFactories[kind] = f
}

func lookupDialect(kind string) (Dialect, error) {
	if kind == "" {
		return nil, fmt.Errorf("store: missing Kind")
	}

	dialectMu.RLock()
	f := dialectFactories[kind]
	dialectMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("store: unsupported kind=%s", kind)
	}
	return f(), nil
}
