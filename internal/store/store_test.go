package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/metrics"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// fakeDialect quotes like SQLite and numbers placeholders like Postgres, so
// builder tests can assert both identifier quoting and placeholder ordering.
type fakeDialect struct {
	pkColumn string
	pkErr    error
}

func (fakeDialect) Name() string       { return "fake" }
func (fakeDialect) DriverName() string { return "fake" }
func (fakeDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
func (fakeDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (fakeDialect) ColumnType(t schema.Type) string {
	switch t {
	case schema.Integer:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}
func (d fakeDialect) AutoIncrementPK(column string) string {
	return d.QuoteIdent(column) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}
func (fakeDialect) InsertReturningKey(ctx context.Context, tx *sql.Tx, table string, columns []string, args []any, keyColumn string) (int64, error) {
	return 1, nil
}
func (d fakeDialect) PrimaryKeyColumn(ctx context.Context, q Querier, table string) (string, error) {
	return d.pkColumn, d.pkErr
}
func (fakeDialect) MaxBindParams() int { return 1000 }

// recordingBackend captures metric calls for assertions.
type recordingBackend struct {
	counters   map[string]float64
	histograms map[string]int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, histograms: map[string]int{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	r.counters[name+"/"+labels["op"]+"/"+labels["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	r.histograms[name+"/"+labels["op"]]++
}

func mustDescriptor(t *testing.T, columns []string, types map[string]schema.Type, pk string) schema.Descriptor {
	t.Helper()
	desc, err := schema.NewDescriptor(columns, types, pk)
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	return desc
}

func TestRecordOrder(t *testing.T) {
	t.Parallel()

	rec := NewRecord().
		Set("name", dataset.Text("Alice")).
		Set("age", dataset.Int(25)).
		Set("name", dataset.Text("Bob"))

	if got := rec.Columns(); !reflect.DeepEqual(got, []string{"name", "age"}) {
		t.Fatalf("Columns() = %v, want insertion order with overwrite in place", got)
	}
	if v, _ := rec.Get("name"); v.Canonical() != "Bob" {
		t.Fatalf("Get(name) = %q after overwrite", v.Canonical())
	}
	if rec.Len() != 2 {
		t.Fatalf("Len() = %d", rec.Len())
	}
}

func TestRecordKeyColumn(t *testing.T) {
	t.Parallel()

	withID := NewRecord().
		Set("name", dataset.Text("x")).
		Set("id", dataset.Int(3))
	if got := recordKeyColumn(withID); got != "id" {
		t.Fatalf("recordKeyColumn = %q, want id whenever present", got)
	}

	noID := NewRecord().
		Set("sku", dataset.Text("a1")).
		Set("qty", dataset.Int(2))
	if got := recordKeyColumn(noID); got != "sku" {
		t.Fatalf("recordKeyColumn = %q, want first field", got)
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	d := fakeDialect{}

	t.Run("synthetic key prepended", func(t *testing.T) {
		t.Parallel()
		desc := mustDescriptor(t,
			[]string{"category", "value"},
			map[string]schema.Type{"category": schema.Text, "value": schema.Integer},
			schema.SyntheticKey,
		)
		got, err := buildCreateTableSQL(d, "data", desc)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		want := "CREATE TABLE IF NOT EXISTS \"data\" (\n" +
			"  \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
			"  \"category\" TEXT,\n" +
			"  \"value\" INTEGER\n)"
		if got != want {
			t.Fatalf("ddl mismatch:\n got: %s\nwant: %s", got, want)
		}
	})

	t.Run("natural key declared on its column", func(t *testing.T) {
		t.Parallel()
		desc := mustDescriptor(t,
			[]string{"sku", "qty"},
			map[string]schema.Type{"sku": schema.Text, "qty": schema.Integer},
			"sku",
		)
		got, err := buildCreateTableSQL(d, "data", desc)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(got, `"sku" TEXT PRIMARY KEY`) {
			t.Fatalf("missing natural pk clause: %s", got)
		}
		if strings.Contains(got, "AUTOINCREMENT") {
			t.Fatalf("natural key must not autoincrement: %s", got)
		}
	})

	t.Run("existing id column becomes autoincrement in place", func(t *testing.T) {
		t.Parallel()
		desc := mustDescriptor(t,
			[]string{"id", "name"},
			map[string]schema.Type{"id": schema.Integer, "name": schema.Text},
			schema.SyntheticKey,
		)
		got, err := buildCreateTableSQL(d, "data", desc)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if strings.Count(got, `"id"`) != 1 {
			t.Fatalf("id column duplicated:\n%s", got)
		}
		if !strings.Contains(got, `"id" INTEGER PRIMARY KEY AUTOINCREMENT`) {
			t.Fatalf("id column not the autoincrement key: %s", got)
		}
	})

	t.Run("empty descriptor rejected", func(t *testing.T) {
		t.Parallel()
		_, err := buildCreateTableSQL(d, "data", schema.Descriptor{})
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("error = %v, want *SchemaError", err)
		}
	})
}

func TestBuildBulkInsertSQL(t *testing.T) {
	t.Parallel()

	desc := mustDescriptor(t,
		[]string{"name", "joined"},
		map[string]schema.Type{"name": schema.Text, "joined": schema.Date},
		schema.SyntheticKey,
	)
	ds := &dataset.Dataset{
		Columns: []string{"name", "joined"},
		Rows: []dataset.Row{
			{"name": dataset.Text("Alice"), "joined": dataset.Text("2024-05-01")},
			{"name": dataset.Null(), "joined": dataset.Time(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))},
		},
	}

	query, args := buildBulkInsertSQL(fakeDialect{}, "data", desc.Columns(), desc, ds.Rows)

	want := `INSERT INTO "data" ("name", "joined") VALUES ($1, $2), ($3, $4)`
	if query != want {
		t.Fatalf("query = %s\nwant %s", query, want)
	}

	wantArgs := []any{"Alice", "2024-05-01T00:00:00", nil, "2024-05-02T00:00:00"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
}

func TestBulkBatchSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		numColumns    int
		maxBindParams int
		numRows       int
		want          int
	}{
		{"rows fit in one statement", 4, 1000, 100, 100},
		{"ceiling splits the load", 4, 1000, 10000, 250},
		{"never below one row", 50, 10, 3, 1},
		{"exact division", 2, 100, 200, 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := bulkBatchSize(tt.numColumns, tt.maxBindParams, tt.numRows); got != tt.want {
				t.Fatalf("bulkBatchSize(%d, %d, %d) = %d, want %d",
					tt.numColumns, tt.maxBindParams, tt.numRows, got, tt.want)
			}
		})
	}
}

func TestBuildUpdateSQL(t *testing.T) {
	t.Parallel()

	rec := NewRecord().
		Set("id", dataset.Int(1)).
		Set("name", dataset.Text("Alice")).
		Set("age", dataset.Int(26))

	query, args := buildUpdateSQL(fakeDialect{}, "data", "id", rec, int64(1))
	want := `UPDATE "data" SET "name" = $1, "age" = $2 WHERE "id" = $3`
	if query != want {
		t.Fatalf("query = %s\nwant %s", query, want)
	}
	if !reflect.DeepEqual(args, []any{"Alice", int64(26), int64(1)}) {
		t.Fatalf("args = %v", args)
	}

	keyOnly := NewRecord().Set("id", dataset.Int(1))
	if q, _ := buildUpdateSQL(fakeDialect{}, "data", "id", keyOnly, int64(1)); q != "" {
		t.Fatalf("key-only record produced SQL: %s", q)
	}
}

// TestUpdateRecordKeyOnlyNoop guards the contract that a record carrying only
// the key field executes no SQL and returns nil. The adapter gets a nil *sql.DB
// on purpose: touching the database would panic the test.
func TestUpdateRecordKeyOnlyNoop(t *testing.T) {
	t.Parallel()

	rb := newRecordingBackend()
	a := newAdapter(nil, fakeDialect{}, Config{Metrics: rb})

	rec := NewRecord().Set("id", dataset.Int(1))
	if err := a.UpdateRecord(context.Background(), int64(1), rec); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	if got := rb.counters[metrics.StoreOpsTotal+"/"+OpUpdateRecord+"/ok"]; got != 1 {
		t.Fatalf("ops counter = %v, want 1 ok", got)
	}
	if got := rb.histograms[metrics.StoreOpDurationSeconds+"/"+OpUpdateRecord]; got != 1 {
		t.Fatalf("duration observations = %d, want 1", got)
	}
}

func TestUpdateRecordEmptyRecord(t *testing.T) {
	t.Parallel()

	a := newAdapter(nil, fakeDialect{}, Config{})
	err := a.UpdateRecord(context.Background(), int64(1), NewRecord())
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SchemaError", err)
	}
}

func TestBindTypedCell(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cell dataset.Cell
		typ  schema.Type
		want any
	}{
		{name: "null", cell: dataset.Null(), typ: schema.Integer, want: nil},
		{name: "int passthrough", cell: dataset.Int(5), typ: schema.Integer, want: int64(5)},
		{name: "int text coerced", cell: dataset.Text("25"), typ: schema.Integer, want: int64(25)},
		{name: "whole float text to integer", cell: dataset.Text("25.0"), typ: schema.Integer, want: int64(25)},
		{name: "float text coerced", cell: dataset.Text("1.5"), typ: schema.Float, want: 1.5},
		{name: "date text normalized", cell: dataset.Text("01.05.2024"), typ: schema.Date, want: "2024-05-01T00:00:00"},
		{name: "unparseable stays text", cell: dataset.Text("n/a"), typ: schema.Integer, want: "n/a"},
		{name: "text column untouched", cell: dataset.Text("42"), typ: schema.Text, want: "42"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := bindTypedCell(tc.cell, tc.typ); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("bindTypedCell() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestCellFromDriver(t *testing.T) {
	t.Parallel()

	if !cellFromDriver(nil).IsNull() {
		t.Error("nil not null")
	}
	if v, _ := cellFromDriver(int64(3)).Int(); v != 3 {
		t.Error("int64 mismatch")
	}
	if v, _ := cellFromDriver(1.5).Float(); v != 1.5 {
		t.Error("float64 mismatch")
	}
	if v, _ := cellFromDriver([]byte("x")).Text(); v != "x" {
		t.Error("bytes mismatch")
	}
	if v, _ := cellFromDriver("y").Text(); v != "y" {
		t.Error("string mismatch")
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := error(&StoreError{Op: OpBulkLoad, Err: inner})

	var se *StoreError
	if !errors.As(err, &se) || se.Op != OpBulkLoad {
		t.Fatalf("errors.As failed: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatal("Unwrap does not reach the driver error")
	}
	if !strings.Contains(err.Error(), OpBulkLoad) {
		t.Fatalf("Error() = %q, missing op name", err.Error())
	}
}

func TestRegisterPanics(t *testing.T) {
	t.Parallel()

	mustPanic := func(name string, fn func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() { Register("", func() Dialect { return fakeDialect{} }) })
	mustPanic("nil factory", func() { Register("nil-factory", nil) })

	Register("dup-kind", func() Dialect { return fakeDialect{} })
	mustPanic("duplicate kind", func() { Register("dup-kind", func() Dialect { return fakeDialect{} }) })
}

func TestLookupDialect(t *testing.T) {
	t.Parallel()

	if _, err := lookupDialect(""); err == nil {
		t.Error("empty kind accepted")
	}
	if _, err := lookupDialect("no-such-backend"); err == nil {
		t.Error("unknown kind accepted")
	}
}
