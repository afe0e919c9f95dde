package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ColumnType is an inferred logical column type. SQL targets map these to
// dialect-specific DDL types; other targets use them as hints.
type ColumnType string

const (
	ColumnTypeInteger ColumnType = "integer"
	ColumnTypeDecimal ColumnType = "decimal"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeUUID    ColumnType = "uuid"
	ColumnTypeText    ColumnType = "text"
)

// DefaultTypeSampleSize is the number of non-null values sampled per column.
const DefaultTypeSampleSize = 100

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

var booleanTokens = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "1": {}, "0": {},
}

// InferColumnTypes infers a type for every column by sampling the first
// sampleSize non-null values and applying ordered rules: number (decimal when
// any sampled value carries a fraction), then date, then boolean, then UUID,
// then free text. The result is deterministic for identical inputs. Columns
// with no non-null sample default to text.
func InferColumnTypes(ds *Dataset, sampleSize int) map[string]ColumnType {
	if sampleSize <= 0 {
		sampleSize = DefaultTypeSampleSize
	}
	types := make(map[string]ColumnType, len(ds.Columns))
	for _, col := range ds.Columns {
		types[col] = inferColumn(ds, col, sampleSize)
	}
	return types
}

func inferColumn(ds *Dataset, column string, sampleSize int) ColumnType {
	sample := make([]string, 0, sampleSize)
	for _, row := range ds.Rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			continue
		}
		sample = append(sample, s)
		if len(sample) >= sampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return ColumnTypeText
	}

	if allNumeric(sample) {
		for _, s := range sample {
			if strings.ContainsAny(s, ".eE") {
				return ColumnTypeDecimal
			}
		}
		return ColumnTypeInteger
	}
	if all(sample, isDate) {
		return ColumnTypeDate
	}
	if all(sample, isBooleanToken) {
		return ColumnTypeBoolean
	}
	if all(sample, isUUID) {
		return ColumnTypeUUID
	}
	return ColumnTypeText
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func all(sample []string, fn func(string) bool) bool {
	for _, s := range sample {
		if !fn(s) {
			return false
		}
	}
	return true
}

func allNumeric(sample []string) bool {
	for _, s := range sample {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
	}
	return true
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBooleanToken(s string) bool {
	_, ok := booleanTokens[strings.ToLower(s)]
	return ok
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
