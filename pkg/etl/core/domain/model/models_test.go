package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

func validDefinition() model.JobDefinition {
	return model.JobDefinition{
		JobType: model.JobTypeCSVImport,
		Name:    "orders",
		Source: model.SourceConfig{
			Kind:   model.SourceKindInline,
			Format: "csv",
			Inline: &model.InlineSource{Content: "a,b\n1,2\n"},
		},
	}
}

func TestJobDefinitionValidate(t *testing.T) {
	assert.NoError(t, validDefinition().Validate())

	def := validDefinition()
	def.JobType = ""
	assert.Error(t, def.Validate())

	def = validDefinition()
	def.Name = ""
	assert.Error(t, def.Validate())

	def = validDefinition()
	def.Source.Inline = nil
	assert.Error(t, def.Validate())

	def = validDefinition()
	def.Source.Kind = model.SourceKind("carrier_pigeon")
	assert.Error(t, def.Validate())
}

func TestSourceConfigValidateVariants(t *testing.T) {
	remote := model.SourceConfig{Kind: model.SourceKindRemote}
	assert.Error(t, remote.Validate())
	remote.Remote = &model.RemoteSource{URL: "https://api.example.com/items"}
	assert.NoError(t, remote.Validate())

	db := model.SourceConfig{Kind: model.SourceKindDatabase, Database: &model.DatabaseSource{Driver: "sqlite"}}
	assert.Error(t, db.Validate(), "database source requires a query")
	db.Database.Query = "SELECT 1"
	assert.NoError(t, db.Validate())
}

func TestTargetConfigNormalizeLegacyForm(t *testing.T) {
	tc := model.TargetConfig{Table: "orders", KeyColumn: "id"}

	targets := tc.Normalize()
	require.Len(t, targets, 1)
	assert.Equal(t, model.TargetKindSQLTable, targets[0].Kind)
	require.NotNil(t, targets[0].SQL)
	assert.Equal(t, "orders", targets[0].SQL.TableName)
	// Mode defaults to insert.
	assert.Equal(t, model.WriteModeInsert, targets[0].SQL.Mode)
}

func TestTargetConfigNormalizePrefersTargets(t *testing.T) {
	tc := model.TargetConfig{
		Table: "ignored",
		Targets: []model.StorageTargetConfig{
			{Kind: model.TargetKindParquetFile, Parquet: &model.ParquetFileTarget{Path: "out.parquet"}},
		},
	}
	targets := tc.Normalize()
	require.Len(t, targets, 1)
	assert.Equal(t, model.TargetKindParquetFile, targets[0].Kind)

	assert.Nil(t, model.TargetConfig{}.Normalize())
}

func TestStorageTargetName(t *testing.T) {
	sql := model.StorageTargetConfig{Kind: model.TargetKindSQLTable, SQL: &model.SQLTableTarget{TableName: "orders"}}
	assert.Equal(t, "sql_table:orders", sql.Name())

	bare := model.StorageTargetConfig{Kind: model.TargetKindVectorStore}
	assert.Equal(t, "vector_store", bare.Name())
}

func TestJobStatusTransitions(t *testing.T) {
	job := model.NewJob(validDefinition())
	assert.Equal(t, model.JobStatusPending, job.Status)

	require.NoError(t, job.TransitionTo(model.JobStatusRunning))
	require.NoError(t, job.TransitionTo(model.JobStatusCompleted))

	// A finished job may run again.
	require.NoError(t, job.TransitionTo(model.JobStatusRunning))
	require.NoError(t, job.TransitionTo(model.JobStatusFailed))

	// But cannot jump from PENDING to COMPLETED.
	fresh := model.NewJob(validDefinition())
	assert.Error(t, fresh.TransitionTo(model.JobStatusCompleted))
}

func TestDecodeJobDefinition(t *testing.T) {
	payload := map[string]interface{}{
		"job_type": "csv_import",
		"name":     "orders",
		"source": map[string]interface{}{
			"kind":   "inline",
			"format": "csv",
			"inline": map[string]interface{}{"content": "a,b\n1,2\n"},
		},
		"target": map[string]interface{}{
			"targets": []interface{}{
				map[string]interface{}{
					"kind": "sql_table",
					"sql":  map[string]interface{}{"table_name": "orders", "mode": "upsert", "key_column": "id"},
				},
			},
		},
	}

	def, err := model.DecodeJobDefinition(payload)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeCSVImport, def.JobType)
	require.Len(t, def.Target.Targets, 1)
	assert.Equal(t, model.WriteModeUpsert, def.Target.Targets[0].SQL.Mode)
}

func TestDecodeJobDefinitionInvalid(t *testing.T) {
	_, err := model.DecodeJobDefinition(map[string]interface{}{"job_type": "csv_import"})
	assert.Error(t, err)
}

func TestJobRunResult(t *testing.T) {
	run := model.NewJobRun("job-1")
	run.RecordsProcessed = 9
	run.RecordsFailed = 1
	run.Errors = append(run.Errors, model.NewRowError(model.ErrCodeRowInsert, "bad", 4, "price"))
	run.MarkAsFailed()

	result := run.Result()
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, run.ID, result.RunID)
	assert.Equal(t, model.JobStatusFailed, result.Status)
	assert.InDelta(t, 0.9, result.Metrics.SuccessRate(), 1e-9)
	assert.Contains(t, result.FirstErrorMessage(), "bad")
	require.NotNil(t, result.CompletedAt)
}
