package infer

import (
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/dataset"
	"github.com/jarom-bradshaw/excel-to-streamlit/internal/schema"
)

// SelectPrimaryKey picks the primary-key column for a dataset.
//
// Columns are examined in declaration order; the first column whose
// non-missing values are all distinct (and non-empty in count) wins. The
// tie-break is position, never cardinality. When no column qualifies, or the
// dataset has no columns at all, the synthetic key is returned and the store
// will assign autoincrement integers.
//
// Missing values are excluded from both the distinct set and the denominator,
// so a column with nulls can still qualify as long as its present values never
// repeat.
func SelectPrimaryKey(ds *dataset.Dataset, columns []string) string {
	if ds == nil || len(columns) == 0 {
		return schema.SyntheticKey
	}

	for _, col := range columns {
		distinct := make(map[string]struct{})
		total := 0
		unique := true

		for _, row := range ds.Rows {
			c := row[col]
			if c.IsNull() {
				continue
			}
			total++
			k := c.Canonical()
			if _, seen := distinct[k]; seen {
				unique = false
				break
			}
			distinct[k] = struct{}{}
		}

		if unique && total > 0 {
			return col
		}
	}
	return schema.SyntheticKey
}
