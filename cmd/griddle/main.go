// Command griddle ingests tabular files (CSV, HTML tables), infers a
// relational schema from the data, and manages the resulting table with
// generic CRUD subcommands.
//
// Usage:
//
//	griddle infer data.csv
//	griddle load data.csv --dsn app.db
//	griddle rows --dsn app.db
//	griddle add name=Alice age=25 --dsn app.db
//	griddle set 1 age=26 --dsn app.db
//	griddle del 1 --dsn app.db
//
// Backend selection via --driver (sqlite, postgres, mssql), default sqlite.
// Flags fall back to GRIDDLE_DSN, GRIDDLE_DRIVER and GRIDDLE_TABLE.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/infer"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/metrics"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/metrics/datadog"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/store"
	_ "github.com/jarom-bradshaw/excel-to-streamlit/internal/store/mssql"
	_ "github.com/jarom-bradshaw/excel-to-streamlit/internal/store/postgres"
	_ "github.com/jarom-bradshaw/excel-to-streamlit/internal/store/sqlite"
)

const defaultMaxRows = 10000

type options struct {
	dsn    string
	driver string
	table  string

	delimiter string
	noHeader  bool
	encoding  string
	maxRows   int

	enableMetrics bool
	metricsTags   string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "griddle",
		Short:         "Infer a relational schema from tabular data and manage it with CRUD",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dsn, "dsn", envOr("GRIDDLE_DSN", "griddle.db"), "database connection string")
	pf.StringVar(&opts.driver, "driver", envOr("GRIDDLE_DRIVER", "sqlite"), "backend driver: sqlite, postgres, mssql")
	pf.StringVar(&opts.table, "table", envOr("GRIDDLE_TABLE", store.DefaultTable), "managed table name")
	pf.BoolVar(&opts.enableMetrics, "metrics", false, "submit operation metrics to Datadog")
	pf.StringVar(&opts.metricsTags, "metrics-tags", "", "extra Datadog tags, comma separated (env:prod,team:data)")

	root.AddCommand(
		newInferCmd(logger, opts),
		newLoadCmd(logger, opts),
		newRowsCmd(logger, opts),
		newAddCmd(logger, opts),
		newSetCmd(logger, opts),
		newDelCmd(logger, opts),
	)
	return root
}

func addIngestFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	f.BoolVar(&opts.noHeader, "no-header", false, "treat the first CSV row as data")
	f.StringVar(&opts.encoding, "encoding", "", "source encoding: utf-8, latin1, windows-1252")
	f.IntVar(&opts.maxRows, "max-rows", defaultMaxRows, "refuse inputs with more rows (0 = unlimited)")
}

func newInferCmd(logger *zap.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infer <file>",
		Short: "Print the schema inferred from a tabular file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readTabular(args[0], opts)
			if err != nil {
				return err
			}
			desc, err := infer.New(logger).Infer(ds)
			if err != nil {
				return err
			}
			printDescriptor(cmd, desc)
			return nil
		},
	}
	addIngestFlags(cmd, opts)
	return cmd
}

func newLoadCmd(logger *zap.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Infer a schema, create the table and load every row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readTabular(args[0], opts)
			if err != nil {
				return err
			}
			desc, err := infer.New(logger).Infer(ds)
			if err != nil {
				return err
			}

			adapter, cleanup, err := openAdapter(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := adapter.CreateTable(cmd.Context(), desc); err != nil {
				return err
			}
			if _, err := adapter.BulkLoad(cmd.Context(), desc, ds); err != nil {
				return err
			}

			// Read-back count confirms what actually landed, beyond the
			// driver's affected-rows report.
			stored, err := adapter.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("loaded %s: %d rows in table %q\n", filepath.Base(args[0]), stored.NumRows(), adapter.Table())
			return nil
		},
	}
	addIngestFlags(cmd, opts)
	return cmd
}

func newRowsCmd(logger *zap.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rows",
		Short: "Print every row of the managed table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, cleanup, err := openAdapter(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ds, err := adapter.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			return writeCSV(cmd, ds)
		},
	}
}

func newAddCmd(logger *zap.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add col=value ...",
		Short: "Insert one record and print its assigned key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args)
			if err != nil {
				return err
			}

			adapter, cleanup, err := openAdapter(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			key, err := adapter.CreateRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}
			cmd.Printf("%d\n", key)
			return nil
		},
	}
}

func newSetCmd(logger *zap.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> col=value ...",
		Short: "Update the record matching a key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[1:])
			if err != nil {
				return err
			}

			adapter, cleanup, err := openAdapter(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			return adapter.UpdateRecord(cmd.Context(), parseKey(args[0]), rec)
		},
	}
}

func newDelCmd(logger *zap.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete the record matching a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, cleanup, err := openAdapter(cmd.Context(), logger, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			return adapter.DeleteRecord(cmd.Context(), parseKey(args[0]))
		},
	}
}

func openAdapter(ctx context.Context, logger *zap.Logger, opts *options) (*store.Adapter, func(), error) {
	var backend metrics.Backend = metrics.Nop{}
	cleanupMetrics := func() {}
	if opts.enableMetrics {
		dd, err := datadog.NewBackend(ctx, datadog.Options{
			Tags: datadog.ParseTagsCSV(opts.metricsTags),
		})
		if err != nil {
			return nil, nil, err
		}
		backend = dd
		cleanupMetrics = func() {
			if err := dd.Close(); err != nil {
				logger.Warn("metrics flush failed", zap.Error(err))
			}
		}
	}

	adapter, err := store.Open(ctx, store.Config{
		Kind:    opts.driver,
		DSN:     opts.dsn,
		Table:   opts.table,
		Logger:  logger,
		Metrics: backend,
	})
	if err != nil {
		cleanupMetrics()
		return nil, nil, err
	}

	cleanup := func() {
		_ = adapter.Close()
		cleanupMetrics()
	}
	return adapter, cleanup, nil
}

// readTabular loads a file as a dataset, dispatching on extension: .html and
// .htm go through the HTML table loader, everything else is read as CSV.
func readTabular(path string, opts *options) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return dataset.ReadHTMLTable(f, dataset.HTMLOptions{
			MaxRows:   opts.maxRows,
			TrimSpace: true,
		})
	default:
		csvOpts := dataset.DefaultCSVOptions()
		csvOpts.HasHeader = !opts.noHeader
		csvOpts.MaxRows = opts.maxRows
		csvOpts.Encoding = opts.encoding
		if opts.delimiter != "" {
			csvOpts.Comma = rune(opts.delimiter[0])
		}
		return dataset.ReadCSV(f, csvOpts)
	}
}

// parseRecord turns "col=value" arguments into an ordered record. Values are
// coerced toward the narrowest fitting cell kind; an empty value means null.
func parseRecord(args []string) (*store.Record, error) {
	rec := store.NewRecord()
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("expected col=value, got %q", arg)
		}
		rec.Set(col, parseCell(val))
	}
	return rec, nil
}

func parseCell(s string) dataset.Cell {
	if s == "" {
		return dataset.Null()
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return dataset.Int(v)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return dataset.Float(f)
	}
	if t, ok := infer.ParseDate(s); ok {
		return dataset.Time(t)
	}
	return dataset.Text(s)
}

// parseKey keeps integer-looking keys numeric so autoincrement lookups match.
func parseKey(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return s
}

func printDescriptor(cmd *cobra.Command, desc schema.Descriptor) {
	sawKey := false
	for _, col := range desc.Columns() {
		t, _ := desc.Type(col)
		marker := ""
		if col == desc.PrimaryKey() {
			marker = "  (primary key)"
			sawKey = true
		}
		cmd.Printf("%-24s %s%s\n", col, t, marker)
	}
	if desc.HasSyntheticKey() && !sawKey {
		cmd.Printf("%-24s %s  (primary key, synthetic)\n", schema.SyntheticKey, schema.Integer)
	}
}

func writeCSV(cmd *cobra.Command, ds *dataset.Dataset) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write(ds.Columns); err != nil {
		return err
	}
	line := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, col := range ds.Columns {
			line[i] = row[col].Canonical()
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
