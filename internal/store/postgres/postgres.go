// Package postgres is the PostgreSQL store backend, using pgx through its
// database/sql adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/store"
)

// Dialect implements store.Dialect for PostgreSQL.
type Dialect struct{}

func init() {
	store.Register("postgres", func() store.Dialect { return Dialect{} })
}

func (Dialect) Name() string { return "postgres" }

func (Dialect) DriverName() string { return "pgx" }

func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Dialect) ColumnType(t schema.Type) string {
	switch t {
	case schema.Integer:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Date:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (d Dialect) AutoIncrementPK(column string) string {
	return d.QuoteIdent(column) + " BIGSERIAL PRIMARY KEY"
}

// The extended-query protocol carries a uint16 parameter count.
func (Dialect) MaxBindParams() int { return 65535 }

// InsertReturningKey inserts one row and returns the key via RETURNING.
func (d Dialect) InsertReturningKey(ctx context.Context, tx *sql.Tx, table string, columns []string, args []any, keyColumn string) (int64, error) {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
		placeholders[i] = d.Placeholder(i + 1)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		d.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		d.QuoteIdent(keyColumn),
	)

	var key int64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&key); err != nil {
		return 0, err
	}
	return key, nil
}

// PrimaryKeyColumn reads the first column of the table's primary key index
// from pg_index/pg_attribute. Returns "" when no primary key is declared.
func (Dialect) PrimaryKeyColumn(ctx context.Context, q store.Querier, table string) (string, error) {
	const query = `
SELECT a.attname
FROM pg_index i
JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
WHERE i.indrelid = $1::regclass AND i.indisprimary
ORDER BY a.attnum
LIMIT 1`

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
