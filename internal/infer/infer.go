// Package infer derives a relational schema descriptor from a sampled tabular
// dataset: sanitized column names, a logical type per column, and a
// primary-key candidate.
//
// Inference is a pure function of the input dataset: no hidden state, fully
// re-runnable. It is best-effort only in the sense that it never guarantees
// future rows fit the inferred types; write-time mismatches belong to the
// store, not to this package.
package infer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// InferenceError reports a dataset that cannot be inferred at all: no rows or
// no columns. It is unrecoverable for that dataset and surfaced verbatim.
type InferenceError struct {
	Reason string
}

func (e *InferenceError) Error() string {
	return "infer: " + e.Reason
}

// Engine orchestrates name sanitization, type classification, and primary-key
// selection into one schema descriptor per dataset.
type Engine struct {
	logger *zap.Logger
}

// New constructs an Engine. A nil logger disables logging.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Infer produces the schema descriptor for a dataset.
//
// Steps:
//   - reject empty input (*InferenceError for zero rows or zero columns)
//   - synthesize Column1..ColumnN labels when the first label carries the
//     anonymous-column marker (headerless source)
//   - sanitize every label in order, without deduplicating collisions
//   - classify every column over its non-missing values
//   - select a primary key over the sanitized dataset
//
// The input dataset is not mutated.
func (e *Engine) Infer(ds *dataset.Dataset) (schema.Descriptor, error) {
	if ds == nil || ds.NumRows() == 0 {
		return schema.Descriptor{}, &InferenceError{Reason: "dataset contains no rows"}
	}
	if ds.NumColumns() == 0 {
		return schema.Descriptor{}, &InferenceError{Reason: "dataset has no columns"}
	}

	labels := ds.Columns
	if strings.HasPrefix(labels[0], dataset.AnonymousPrefix) {
		e.logger.Warn("no headers detected, generating column names",
			zap.Int("columns", len(labels)))
		labels = make([]string, ds.NumColumns())
		for i := range labels {
			labels[i] = fmt.Sprintf("Column%d", i+1)
		}
	}

	sanitized := make([]string, len(labels))
	for i, l := range labels {
		sanitized[i] = Sanitize(l)
	}

	work, err := ds.Relabel(sanitized)
	if err != nil {
		return schema.Descriptor{}, fmt.Errorf("infer: %w", err)
	}

	types := make(map[string]schema.Type, len(sanitized))
	for _, col := range sanitized {
		types[col] = Classify(work.ColumnCells(col))
	}

	pk := SelectPrimaryKey(work, sanitized)

	desc, err := schema.NewDescriptor(sanitized, types, pk)
	if err != nil {
		return schema.Descriptor{}, fmt.Errorf("infer: %w", err)
	}

	e.logger.Info("schema inferred",
		zap.Int("columns", desc.NumColumns()),
		zap.String("primary_key", pk))
	return desc, nil
}
