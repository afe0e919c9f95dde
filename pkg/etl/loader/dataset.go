// Package loader implements the multi-target fan-out write path. One parsed
// dataset is distributed across N heterogeneous storage destinations with
// per-destination error isolation: a destination failing, even entirely, never
// prevents the others from receiving their writes.
package loader

import (
	"fmt"
)

// Dataset is one parsed tabular payload: ordered column headers plus
// homogeneous row maps keyed by column name. A nil map value is a null cell.
type Dataset struct {
	Columns []string
	Rows    []map[string]interface{}
}

// NewDataset creates a dataset from headers and rows.
func NewDataset(columns []string, rows []map[string]interface{}) *Dataset {
	if rows == nil {
		rows = make([]map[string]interface{}, 0)
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Validate checks the dataset is structurally usable by targets.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("dataset is nil")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}
	return nil
}
