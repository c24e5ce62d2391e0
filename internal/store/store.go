// Package store is a dynamic relational adapter: it manages one table whose
// shape is decided at runtime by an inferred schema descriptor, and exposes
// generic CRUD over it. Statement text interpolates identifiers only; every
// data value travels as a bound parameter.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/infer"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/metrics"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// DefaultTable is the managed table name when Config.Table is empty.
const DefaultTable = "data"

// Adapter operation names, used in errors and metric labels.
const (
	OpCreateTable  = "create_table"
	OpBulkLoad     = "bulk_load"
	OpCreateRecord = "create_record"
	OpReadAll      = "read_all"
	OpUpdateRecord = "update_record"
	OpDeleteRecord = "delete_record"
)

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must match a registered dialect ("sqlite", "postgres", "mssql").
//   - Table defaults to DefaultTable.
//   - Logger defaults to zap.NewNop(), Metrics to metrics.Nop.
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Logger  *zap.Logger
	Metrics metrics.Backend
}

// Adapter performs CRUD against one managed table.
//
// Every operation acquires its own transaction, commits or rolls back, and
// returns; nothing is cached between calls, so ReadAll always observes the
// latest committed state. Failures carry the operation name via *StoreError.
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	table   string
	logger  *zap.Logger
	metrics metrics.Backend

	now func() time.Time
}

// Open connects to the configured backend and returns an adapter bound to
// the managed table. The connection is verified with a ping.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	d, err := lookupDialect(cfg.Kind)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Kind, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Kind, err)
	}

	return newAdapter(db, d, cfg), nil
}

func newAdapter(db *sql.DB, d Dialect, cfg Config) *Adapter {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := cfg.Metrics
	if backend == nil {
		backend = metrics.Nop{}
	}
	return &Adapter{
		db:      db,
		dialect: d,
		table:   table,
		logger:  logger,
		metrics: backend,
		now:     time.Now,
	}
}

// Close releases the database connection. Call once at shutdown.
func (a *Adapter) Close() error { return a.db.Close() }

// Table returns the managed table name.
func (a *Adapter) Table() string { return a.table }

// CreateTable creates the managed table from a schema descriptor if it does
// not already exist. A synthetic "id" key becomes an engine-assigned
// autoincrement integer; a natural key becomes a native-type primary key on
// the matching column. Idempotent against a compatible existing table.
func (a *Adapter) CreateTable(ctx context.Context, desc schema.Descriptor) error {
	start := a.now()

	ddl, err := buildCreateTableSQL(a.dialect, a.table, desc)
	if err != nil {
		a.observe(OpCreateTable, start, err)
		return err
	}

	err = a.inTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, ddl)
		return execErr
	})
	a.observe(OpCreateTable, start, err)
	if err != nil {
		return &StoreError{Op: OpCreateTable, Err: err}
	}

	a.logger.Info("table ready",
		zap.String("table", a.table),
		zap.String("primary_key", desc.PrimaryKey()),
		zap.Int("columns", desc.NumColumns()),
	)
	return nil
}

// BulkLoad inserts every dataset row inside one transaction and returns the
// number of rows inserted. The insert is chunked into multi-row statements
// sized to the engine's bind-parameter ceiling; either every chunk commits or
// none does.
//
// Binding rules:
//   - missing cells bind as NULL
//   - native timestamps and date-typed text bind as canonical ISO-8601 text
//   - numeric-typed text is coerced to the native numeric before binding
func (a *Adapter) BulkLoad(ctx context.Context, desc schema.Descriptor, ds *dataset.Dataset) (int64, error) {
	start := a.now()

	if ds == nil || ds.NumRows() == 0 {
		a.observe(OpBulkLoad, start, nil)
		return 0, nil
	}

	// Descriptor columns mirror the dataset, so a synthetic key the input
	// never carried is naturally absent and the engine assigns it.
	columns := desc.Columns()
	if len(columns) == 0 {
		err := &SchemaError{Reason: "descriptor has no loadable columns"}
		a.observe(OpBulkLoad, start, err)
		return 0, err
	}

	batch := bulkBatchSize(len(columns), a.dialect.MaxBindParams(), len(ds.Rows))

	var inserted int64
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		for lo := 0; lo < len(ds.Rows); lo += batch {
			hi := lo + batch
			if hi > len(ds.Rows) {
				hi = len(ds.Rows)
			}
			query, args := buildBulkInsertSQL(a.dialect, a.table, columns, desc, ds.Rows[lo:hi])
			res, execErr := tx.ExecContext(ctx, query, args...)
			if execErr != nil {
				return execErr
			}
			n, _ := res.RowsAffected()
			inserted += n
		}
		return nil
	})
	a.observe(OpBulkLoad, start, err)
	if err != nil {
		return 0, &StoreError{Op: OpBulkLoad, Err: err}
	}

	a.metrics.IncCounter(metrics.StoreRowsTotal, float64(inserted), metrics.Labels{"op": OpBulkLoad})
	a.logger.Info("rows loaded", zap.String("table", a.table), zap.Int64("rows", inserted))
	return inserted, nil
}

// CreateRecord inserts one record and returns the engine-assigned row key.
// The key column is discovered from table metadata, falling back to "id".
func (a *Adapter) CreateRecord(ctx context.Context, rec *Record) (int64, error) {
	start := a.now()

	if rec.Len() == 0 {
		err := &SchemaError{Reason: "record has no fields"}
		a.observe(OpCreateRecord, start, err)
		return 0, err
	}

	columns := make([]string, 0, rec.Len())
	args := make([]any, 0, rec.Len())
	for _, f := range rec.Fields() {
		columns = append(columns, f.Column)
		args = append(args, bindCell(f.Value))
	}

	var key int64
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		keyCol, pkErr := a.dialect.PrimaryKeyColumn(ctx, tx, a.table)
		if pkErr != nil || keyCol == "" {
			keyCol = schema.SyntheticKey
		}
		var insErr error
		key, insErr = a.dialect.InsertReturningKey(ctx, tx, a.table, columns, args, keyCol)
		return insErr
	})
	a.observe(OpCreateRecord, start, err)
	if err != nil {
		return 0, &StoreError{Op: OpCreateRecord, Err: err}
	}

	a.metrics.IncCounter(metrics.StoreRowsTotal, 1, metrics.Labels{"op": OpCreateRecord})
	return key, nil
}

// ReadAll returns every row of the managed table as a dataset, columns in
// physical table order. Always re-queries the store.
func (a *Adapter) ReadAll(ctx context.Context) (*dataset.Dataset, error) {
	start := a.now()

	query := "SELECT * FROM " + a.dialect.QuoteIdent(a.table)

	var out *dataset.Dataset
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		rows, qErr := tx.QueryContext(ctx, query)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		var scanErr error
		out, scanErr = scanDataset(rows)
		return scanErr
	})
	a.observe(OpReadAll, start, err)
	if err != nil {
		return nil, &StoreError{Op: OpReadAll, Err: err}
	}
	return out, nil
}

// UpdateRecord updates one row. The primary-key column is resolved from the
// record by convention: the "id" field if present, else the record's first
// field. Every other field lands in the SET clause; key selects the row.
//
// A record carrying only the key field is a logged no-op, not an error.
func (a *Adapter) UpdateRecord(ctx context.Context, key any, rec *Record) error {
	start := a.now()

	if rec.Len() == 0 {
		err := &SchemaError{Reason: "record has no fields"}
		a.observe(OpUpdateRecord, start, err)
		return err
	}

	pkCol := recordKeyColumn(rec)
	query, args := buildUpdateSQL(a.dialect, a.table, pkCol, rec, key)
	if query == "" {
		a.observe(OpUpdateRecord, start, nil)
		a.logger.Info("update skipped, no fields besides the key",
			zap.String("table", a.table), zap.String("key_column", pkCol))
		return nil
	}

	err := a.inTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, query, args...)
		return execErr
	})
	a.observe(OpUpdateRecord, start, err)
	if err != nil {
		return &StoreError{Op: OpUpdateRecord, Err: err}
	}
	return nil
}

// DeleteRecord deletes one row by key. The fast path assumes an "id"
// column; when it misses (no rows, or no such column at all), the declared
// primary key column is rediscovered from table metadata and the delete is
// retried against it.
//
// The two attempts run in separate transactions: an engine like Postgres
// aborts a transaction on the fast path's column error, so the retry cannot
// share it.
func (a *Adapter) DeleteRecord(ctx context.Context, key any) error {
	start := a.now()

	affected, fastErr := a.deleteBy(ctx, schema.SyntheticKey, key)
	if fastErr == nil && affected > 0 {
		a.observe(OpDeleteRecord, start, nil)
		return nil
	}

	pkCol, pkErr := a.dialect.PrimaryKeyColumn(ctx, a.db, a.table)
	if pkErr != nil {
		err := pkErr
		if fastErr != nil {
			err = fastErr
		}
		a.observe(OpDeleteRecord, start, err)
		return &StoreError{Op: OpDeleteRecord, Err: err}
	}
	if pkCol == "" || pkCol == schema.SyntheticKey {
		// Nothing better to retry on. A clean zero-row fast path is a
		// successful delete of an absent key; a failed one is an error.
		a.observe(OpDeleteRecord, start, fastErr)
		if fastErr != nil {
			return &StoreError{Op: OpDeleteRecord, Err: fastErr}
		}
		return nil
	}

	a.logger.Debug("delete fast path missed, retrying on declared key",
		zap.String("table", a.table), zap.String("key_column", pkCol))
	_, err := a.deleteBy(ctx, pkCol, key)
	a.observe(OpDeleteRecord, start, err)
	if err != nil {
		return &StoreError{Op: OpDeleteRecord, Err: err}
	}
	return nil
}

// deleteBy runs one delete in its own transaction and reports affected rows.
func (a *Adapter) deleteBy(ctx context.Context, column string, key any) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		a.dialect.QuoteIdent(a.table), a.dialect.QuoteIdent(column), a.dialect.Placeholder(1))

	var n int64
	err := a.inTx(ctx, func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, query, key)
		if execErr != nil {
			return execErr
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}

// inTx runs fn inside a transaction with commit-or-rollback semantics.
func (a *Adapter) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (a *Adapter) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.IncCounter(metrics.StoreOpsTotal, 1, metrics.Labels{"op": op, "status": status})
	a.metrics.ObserveHistogram(metrics.StoreOpDurationSeconds, a.now().Sub(start).Seconds(), metrics.Labels{"op": op})
}

// ---- statement assembly ----

// buildCreateTableSQL renders idempotent DDL for the descriptor.
//
// With a synthetic key, the "id" column is prepended unless the dataset
// already carried one, in which case that column becomes the autoincrement
// key in place.
func buildCreateTableSQL(d Dialect, table string, desc schema.Descriptor) (string, error) {
	columns := desc.Columns()
	if len(columns) == 0 {
		return "", &SchemaError{Reason: "descriptor has no columns"}
	}
	pk := desc.PrimaryKey()

	parts := make([]string, 0, len(columns)+1)

	if desc.HasSyntheticKey() && !containsColumn(columns, schema.SyntheticKey) {
		parts = append(parts, d.AutoIncrementPK(schema.SyntheticKey))
	}

	for _, col := range columns {
		t, ok := desc.Type(col)
		if !ok {
			return "", &SchemaError{Reason: fmt.Sprintf("column %q has no type", col)}
		}
		switch {
		case desc.HasSyntheticKey() && col == schema.SyntheticKey:
			parts = append(parts, d.AutoIncrementPK(col))
		case col == pk:
			parts = append(parts, fmt.Sprintf("%s %s PRIMARY KEY", d.QuoteIdent(col), d.ColumnType(t)))
		default:
			parts = append(parts, fmt.Sprintf("%s %s", d.QuoteIdent(col), d.ColumnType(t)))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		d.QuoteIdent(table), strings.Join(parts, ",\n  ")), nil
}

// bulkBatchSize is the number of rows per insert statement: the largest row
// count whose bind parameters fit under the dialect's ceiling, never zero.
func bulkBatchSize(numColumns, maxBindParams, numRows int) int {
	batch := maxBindParams / numColumns
	if batch < 1 {
		batch = 1
	}
	if batch > numRows {
		batch = numRows
	}
	return batch
}

// buildBulkInsertSQL renders one multi-row insert for a batch of rows and its
// bound args.
func buildBulkInsertSQL(d Dialect, table string, columns []string, desc schema.Descriptor, rows []dataset.Row) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.QuoteIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
			t, _ := desc.Type(col)
			args = append(args, bindTypedCell(row[col], t))
		}
		b.WriteString(")")
	}

	return b.String(), args
}

// buildUpdateSQL renders the SET/WHERE statement for one record. Returns an
// empty query when the record carries no fields besides the key column.
func buildUpdateSQL(d Dialect, table, pkCol string, rec *Record, key any) (string, []any) {
	setParts := make([]string, 0, rec.Len())
	args := make([]any, 0, rec.Len()+1)
	n := 1
	for _, f := range rec.Fields() {
		if f.Column == pkCol {
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = %s", d.QuoteIdent(f.Column), d.Placeholder(n)))
		args = append(args, bindCell(f.Value))
		n++
	}
	if len(setParts) == 0 {
		return "", nil
	}

	args = append(args, key)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.QuoteIdent(table), strings.Join(setParts, ", "), d.QuoteIdent(pkCol), d.Placeholder(n))
	return query, args
}

// recordKeyColumn resolves the primary-key column of a record: "id" when
// present, else the first field.
func recordKeyColumn(rec *Record) string {
	if _, ok := rec.Get(schema.SyntheticKey); ok {
		return schema.SyntheticKey
	}
	return rec.Fields()[0].Column
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// ---- value binding and scanning ----

// bindCell converts a cell to a driver argument by its own kind.
func bindCell(c dataset.Cell) any {
	switch c.Kind() {
	case dataset.KindNull:
		return nil
	case dataset.KindInt:
		v, _ := c.Int()
		return v
	case dataset.KindFloat:
		v, _ := c.Float()
		return v
	case dataset.KindTime:
		v, _ := c.Time()
		return v.Format(dataset.CanonicalTimeLayout)
	default:
		v, _ := c.Text()
		return v
	}
}

// bindTypedCell converts a cell to a driver argument, coercing text toward
// the column's logical type. Text that does not fit the type binds as-is;
// strict engines then surface the mismatch.
func bindTypedCell(c dataset.Cell, t schema.Type) any {
	if c.IsNull() {
		return nil
	}
	if c.Kind() != dataset.KindText {
		return bindCell(c)
	}

	s, _ := c.Text()
	trimmed := strings.TrimSpace(s)
	switch t {
	case schema.Integer:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f)
		}
	case schema.Float:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	case schema.Date:
		if ts, ok := infer.ParseDate(trimmed); ok {
			return ts.Format(dataset.CanonicalTimeLayout)
		}
	}
	return s
}

// scanDataset reads a result set into a dataset, preserving physical column
// order. Driver values map back onto cell kinds; anything unrecognized
// round-trips through its string form.
func scanDataset(rows *sql.Rows) (*dataset.Dataset, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &dataset.Dataset{Columns: append([]string(nil), columns...)}
	for rows.Next() {
		raw := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range raw {
			scan[i] = &raw[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}

		row := make(dataset.Row, len(columns))
		for i, col := range columns {
			row[col] = cellFromDriver(raw[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

func cellFromDriver(v any) dataset.Cell {
	switch val := v.(type) {
	case nil:
		return dataset.Null()
	case int64:
		return dataset.Int(val)
	case float64:
		return dataset.Float(val)
	case bool:
		return dataset.Text(strconv.FormatBool(val))
	case time.Time:
		return dataset.Time(val)
	case []byte:
		return dataset.Text(string(val))
	case string:
		return dataset.Text(val)
	default:
		return dataset.Text(fmt.Sprint(val))
	}
}
