package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
)

// ParsePayload parses a raw payload in the given format. An empty format
// defaults to JSON.
func ParsePayload(content, format string) (*loader.Dataset, []model.ETLError, error) {
	switch format {
	case "csv":
		return parseCSV(content)
	case "json", "":
		return parseJSON(content)
	default:
		return nil, nil, fmt.Errorf("unsupported payload format %q", format)
	}
}

// parseCSV parses CSV text into a dataset. The first record is the header.
// A record with the wrong field count is recorded as a PARSE_ERROR against its
// 1-based data row position and skipped; parsing continues.
func parseCSV(content string) (*loader.Dataset, []model.ETLError, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV payload: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("CSV payload is empty")
	}

	header := records[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var parseErrors []model.ETLError
	rows := make([]map[string]interface{}, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(columns) {
			parseErrors = append(parseErrors, model.NewRowError(model.ErrCodeParse,
				fmt.Sprintf("expected %d fields, got %d", len(columns), len(record)), i+1, ""))
			continue
		}
		row := make(map[string]interface{}, len(columns))
		for j, col := range columns {
			value := strings.TrimSpace(record[j])
			if value == "" {
				row[col] = nil
				continue
			}
			row[col] = value
		}
		rows = append(rows, row)
	}
	return loader.NewDataset(columns, rows), parseErrors, nil
}

// parseJSON parses a JSON payload into a dataset. Accepted shapes are a
// top-level array of objects or an object whose "data", "items", "records", or
// "results" key holds one. Column order is the sorted union of keys. Non-object
// array elements are recorded as PARSE_ERRORs and skipped.
func parseJSON(content string) (*loader.Dataset, []model.ETLError, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JSON payload: %w", err)
	}

	items, err := jsonItems(raw)
	if err != nil {
		return nil, nil, err
	}

	var parseErrors []model.ETLError
	columnSet := make(map[string]struct{})
	rows := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			parseErrors = append(parseErrors, model.NewRowError(model.ErrCodeParse,
				fmt.Sprintf("element is %T, expected an object", item), i+1, ""))
			continue
		}
		row := make(map[string]interface{}, len(obj))
		for k, v := range obj {
			columnSet[k] = struct{}{}
			switch v.(type) {
			case map[string]interface{}, []interface{}:
				// Nested structures are carried as their JSON text.
				nested, merr := json.Marshal(v)
				if merr != nil {
					row[k] = nil
					continue
				}
				row[k] = string(nested)
			default:
				row[k] = v
			}
		}
		rows = append(rows, row)
	}

	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return loader.NewDataset(columns, rows), parseErrors, nil
}

var jsonCollectionKeys = []string{"data", "items", "records", "results"}

func jsonItems(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range jsonCollectionKeys {
			if nested, ok := v[key].([]interface{}); ok {
				return nested, nil
			}
		}
		// A single object is a one-row dataset.
		return []interface{}{v}, nil
	default:
		return nil, fmt.Errorf("JSON payload is %T, expected an array or object", raw)
	}
}
