// Package mssql is the SQL Server store backend.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/store"
)

// Dialect implements store.Dialect for SQL Server.
//
// Text columns map to NVARCHAR(450) rather than NVARCHAR(MAX): the 900-byte
// index key limit would otherwise make a text column ineligible as a
// primary key.
type Dialect struct{}

func init() {
	store.Register("mssql", func() store.Dialect { return Dialect{} })
}

func (Dialect) Name() string { return "mssql" }

func (Dialect) DriverName() string { return "sqlserver" }

func (Dialect) QuoteIdent(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (Dialect) ColumnType(t schema.Type) string {
	switch t {
	case schema.Integer:
		return "BIGINT"
	case schema.Float:
		return "FLOAT"
	case schema.Date:
		return "NVARCHAR(64)"
	default:
		return "NVARCHAR(450)"
	}
}

func (d Dialect) AutoIncrementPK(column string) string {
	return d.QuoteIdent(column) + " BIGINT IDENTITY(1,1) PRIMARY KEY"
}

// SQL Server rejects RPC calls with more than 2100 parameters.
func (Dialect) MaxBindParams() int { return 2100 }

// InsertReturningKey inserts one row and returns the key via an
// OUTPUT INSERTED clause, which also covers IDENTITY-assigned values.
func (d Dialect) InsertReturningKey(ctx context.Context, tx *sql.Tx, table string, columns []string, args []any, keyColumn string) (int64, error) {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
		placeholders[i] = d.Placeholder(i + 1)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.%s VALUES (%s)",
		d.QuoteIdent(table),
		strings.Join(quoted, ", "),
		d.QuoteIdent(keyColumn),
		strings.Join(placeholders, ", "),
	)

	var key int64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&key); err != nil {
		return 0, err
	}
	return key, nil
}

// PrimaryKeyColumn reads the first primary key column from the
// INFORMATION_SCHEMA views. Returns "" when no primary key is declared.
func (Dialect) PrimaryKeyColumn(ctx context.Context, q store.Querier, table string) (string, error) {
	const query = `
SELECT TOP 1 kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
 AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_NAME = @p1 AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
ORDER BY kcu.ORDINAL_POSITION`

	var name string
	err := q.QueryRowContext(ctx, query, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

var _ store.Dialect = Dialect{}
