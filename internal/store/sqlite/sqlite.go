// Package sqlite is the default store backend, using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/store"
)

// Dialect implements store.Dialect for SQLite.
//
// Key points vs the server backends:
//   - "INTEGER PRIMARY KEY" is special in SQLite: it aliases the rowid and
//     auto-generates values, so the synthetic key maps onto it directly.
//   - Dates are stored with TEXT affinity; the adapter binds them as
//     canonical ISO-8601 strings, which sort and compare correctly.
type Dialect struct{}

func init() {
	store.Register("sqlite", func() store.Dialect { return Dialect{} })
}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) DriverName() string { return "sqlite" }

func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) ColumnType(t schema.Type) string {
	switch t {
	case schema.Integer:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Date:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (d Dialect) AutoIncrementPK(column string) string {
	return d.QuoteIdent(column) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

// SQLITE_MAX_VARIABLE_NUMBER default since 3.32.
func (Dialect) MaxBindParams() int { return 32766 }

// InsertReturningKey inserts one row and reads the assigned rowid back via
// LastInsertId. keyColumn is unused: SQLite reports the rowid regardless of
// the declared key name.
func (d Dialect) InsertReturningKey(ctx context.Context, tx *sql.Tx, table string, columns []string, args []any, keyColumn string) (int64, error) {
	_ = keyColumn

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), placeholders)

	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PrimaryKeyColumn reads the declared primary key from PRAGMA table_info.
// Returns "" when the table has no declared key or does not exist.
func (d Dialect) PrimaryKeyColumn(ctx context.Context, q store.Querier, table string) (string, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+d.QuoteIdent(table)+")")
	if err != nil {
		return "", err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return "", err
		}
		if pk == 1 {
			return name, nil
		}
	}
	return "", rows.Err()
}

var _ store.Dialect = Dialect{}
