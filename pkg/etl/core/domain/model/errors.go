package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Record-level error codes. Record-level errors are expected and recoverable:
// they are accumulated during a worker's act phase and drive the reflection's
// success/retry determination. They are never raised as Go errors.
const (
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeRowInsert   = "ROW_INSERT_ERROR"
	ErrCodeBatchInsert = "BATCH_INSERT_ERROR"
	ErrCodeEmbedding   = "EMBEDDING_ERROR"
	ErrCodeTarget      = "TARGET_ERROR"
	ErrCodeExecution   = "EXECUTION_ERROR"
	ErrCodePARLoop     = "PAR_LOOP_FAILED"
)

// ETLError describes a single record- or batch-level failure captured during
// a load. Row is 1-based; 0 means the error is not tied to a specific row.
type ETLError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Row     int                    `json:"row,omitempty"`
	Column  string                 `json:"column,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewETLError creates a record-level error value.
func NewETLError(code, message string) ETLError {
	return ETLError{Code: code, Message: message}
}

// NewRowError creates a record-level error tied to a specific row and column.
func NewRowError(code, message string, row int, column string) ETLError {
	return ETLError{Code: code, Message: message, Row: row, Column: column}
}

// String renders the error for logs.
func (e ETLError) String() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s (row %d, column %q): %s", e.Code, e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ETLErrorList is a JSON-persisted list of record-level errors.
type ETLErrorList []ETLError

// Value implements driver.Valuer, converting the list to a JSON string.
func (l ETLErrorList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner, converting a JSON string to an ETLErrorList.
func (l *ETLErrorList) Scan(value interface{}) error {
	if value == nil {
		*l = make(ETLErrorList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for ETLErrorList: %T", value)
	}
	if len(b) == 0 {
		*l = make(ETLErrorList, 0)
		return nil
	}
	if err := json.Unmarshal(b, l); err != nil {
		return fmt.Errorf("failed to unmarshal ETLErrorList JSON: %w", err)
	}
	return nil
}
