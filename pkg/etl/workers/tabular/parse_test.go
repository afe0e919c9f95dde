package tabular_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	"github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

func TestParseCSV(t *testing.T) {
	content := "sku,name,price\nA-1,Desk,349.99\nA-2,Shelf,\n"

	ds, parseErrors, err := tabular.ParsePayload(content, "csv")
	require.NoError(t, err)
	assert.Empty(t, parseErrors)
	assert.Equal(t, []string{"sku", "name", "price"}, ds.Columns)
	require.Equal(t, 2, ds.RowCount())
	assert.Equal(t, "Desk", ds.Rows[0]["name"])
	// Empty cells become null, not empty strings.
	assert.Nil(t, ds.Rows[1]["price"])
}

func TestParseCSVMalformedRow(t *testing.T) {
	content := "a,b\n1,2\n3\n4,5\n"

	ds, parseErrors, err := tabular.ParsePayload(content, "csv")
	require.NoError(t, err)
	// The short record is reported against its 1-based data position and skipped.
	require.Len(t, parseErrors, 1)
	assert.Equal(t, model.ErrCodeParse, parseErrors[0].Code)
	assert.Equal(t, 2, parseErrors[0].Row)
	assert.Equal(t, 2, ds.RowCount())
}

func TestParseCSVEmpty(t *testing.T) {
	_, _, err := tabular.ParsePayload("", "csv")
	assert.Error(t, err)
}

func TestParseJSONArray(t *testing.T) {
	content := `[{"id": 1, "name": "Desk"}, {"id": 2, "tags": ["a", "b"]}]`

	ds, parseErrors, err := tabular.ParsePayload(content, "json")
	require.NoError(t, err)
	assert.Empty(t, parseErrors)
	// Columns are the sorted union of keys.
	assert.Equal(t, []string{"id", "name", "tags"}, ds.Columns)
	require.Equal(t, 2, ds.RowCount())
	// Nested values are carried as JSON text.
	assert.Equal(t, `["a","b"]`, ds.Rows[1]["tags"])
}

func TestParseJSONWrappedCollection(t *testing.T) {
	content := `{"data": [{"id": 1}, {"id": 2}, {"id": 3}]}`

	ds, parseErrors, err := tabular.ParsePayload(content, "")
	require.NoError(t, err)
	assert.Empty(t, parseErrors)
	assert.Equal(t, 3, ds.RowCount())
}

func TestParseJSONSingleObject(t *testing.T) {
	ds, parseErrors, err := tabular.ParsePayload(`{"id": 1, "name": "Desk"}`, "json")
	require.NoError(t, err)
	assert.Empty(t, parseErrors)
	assert.Equal(t, 1, ds.RowCount())
}

func TestParseJSONNonObjectElements(t *testing.T) {
	ds, parseErrors, err := tabular.ParsePayload(`[{"id": 1}, "oops", {"id": 2}]`, "json")
	require.NoError(t, err)
	require.Len(t, parseErrors, 1)
	assert.Equal(t, model.ErrCodeParse, parseErrors[0].Code)
	assert.Equal(t, 2, parseErrors[0].Row)
	assert.Equal(t, 2, ds.RowCount())
}

func TestParseInvalidInput(t *testing.T) {
	_, _, err := tabular.ParsePayload("not json", "json")
	assert.Error(t, err)

	_, _, err = tabular.ParsePayload(`"just a string"`, "json")
	assert.Error(t, err)

	_, _, err = tabular.ParsePayload("x", "xml")
	assert.Error(t, err)
}
