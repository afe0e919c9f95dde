package tabular_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	"github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	"github.com/tigerroll/undertow/pkg/etl/loader"
	"github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

// countingTarget succeeds for every row except the listed 1-based positions.
type countingTarget struct {
	failRows map[int]struct{}
}

func (c *countingTarget) Load(ctx context.Context, ds *loader.Dataset, types map[string]loader.ColumnType) (*loader.TargetResult, error) {
	result := &loader.TargetResult{}
	for i := range ds.Rows {
		if _, fail := c.failRows[i+1]; fail {
			result.Failed++
			result.Errors = append(result.Errors,
				model.NewRowError(model.ErrCodeRowInsert, "constraint violation", i+1, ""))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// stubKnowledge records lookups and plays back canned records.
type stubKnowledge struct {
	patterns []string
	records  []*model.KnowledgeRecord
	err      error
}

func (s *stubKnowledge) AppendKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	return nil
}

func (s *stubKnowledge) FindKnowledgeByPattern(ctx context.Context, pattern string, limit int) ([]*model.KnowledgeRecord, error) {
	s.patterns = append(s.patterns, pattern)
	return s.records, s.err
}

func newWorkerWithTarget(t *testing.T, target loader.Target, content string) *tabular.Worker {
	t.Helper()
	return newWorkerWithKnowledge(t, target, content, nil)
}

func newWorkerWithKnowledge(t *testing.T, target loader.Target, content string, knowledge *stubKnowledge) *tabular.Worker {
	t.Helper()
	l := loader.NewMultiTargetLoader(0, nil)
	l.RegisterBuilder(model.TargetKindSQLTable, func(cfg model.StorageTargetConfig) (loader.Target, error) {
		return target, nil
	})

	def := model.JobDefinition{
		JobType: model.JobTypeCSVImport,
		Name:    "orders",
		Source: model.SourceConfig{
			Kind:   model.SourceKindInline,
			Format: "csv",
			Inline: &model.InlineSource{Content: content},
		},
		Target: model.TargetConfig{
			Targets: []model.StorageTargetConfig{
				{Kind: model.TargetKindSQLTable, SQL: &model.SQLTableTarget{TableName: "t"}},
			},
		},
	}
	var store repo.KnowledgeStore
	if knowledge != nil {
		store = knowledge
	}
	return tabular.NewWorker(def, tabular.NewSourceFetcher(), l, store, reflection.NewPolicy(0, 0), nil)
}

func csvRows(n int) string {
	content := "id\n"
	for i := 0; i < n; i++ {
		content += "1\n"
	}
	return content
}

func TestWorkerPerceiveActReflect(t *testing.T) {
	w := newWorkerWithTarget(t, &countingTarget{}, csvRows(10))
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Data.RowCount())

	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 10, action.Metrics.RecordsProcessed)
	assert.Zero(t, action.Metrics.RecordsFailed)

	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.False(t, r.Retry)
	assert.Nil(t, r.Adjustment)
}

func TestWorkerReflectProposesRowExclusions(t *testing.T) {
	// 10 rows, 7 of them failing: rate 0.3 is below the retry threshold.
	failing := map[int]struct{}{}
	for _, row := range []int{1, 2, 3, 4, 5, 6, 7} {
		failing[row] = struct{}{}
	}
	w := newWorkerWithTarget(t, &countingTarget{failRows: failing}, csvRows(10))
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, action.Metrics.RecordsProcessed)
	assert.Equal(t, 7, action.Metrics.RecordsFailed)

	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.True(t, r.Retry)
	require.NotNil(t, r.Adjustment)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, r.Adjustment.ExcludeRows)
	assert.NotEmpty(t, r.Improvements)
}

func TestWorkerActAppliesPreviousAdjustment(t *testing.T) {
	w := newWorkerWithTarget(t, &countingTarget{}, csvRows(10))
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	p.PreviousAdjustment = &tabular.Adjustment{ExcludeRows: []int{1, 5, 10}}

	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	// Excluded rows are dropped before loading.
	assert.Equal(t, 7, action.Metrics.RecordsProcessed)
}

func TestWorkerReflectMergesPreviousExclusions(t *testing.T) {
	failing := map[int]struct{}{1: {}, 2: {}, 3: {}, 4: {}}
	w := newWorkerWithTarget(t, &countingTarget{failRows: failing}, csvRows(5))
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	action, err := w.Act(ctx, p)
	require.NoError(t, err)

	// Exclusions already in force are carried into the next proposal.
	p.PreviousAdjustment = &tabular.Adjustment{ExcludeRows: []int{9}}
	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	require.NotNil(t, r.Adjustment)
	assert.Equal(t, []int{1, 2, 3, 4, 9}, r.Adjustment.ExcludeRows)
}

func TestWorkerPerceiveConsultsKnowledge(t *testing.T) {
	store := &stubKnowledge{records: []*model.KnowledgeRecord{
		model.NewKnowledgeRecord("csv_import:orders", "row 3 carries a malformed price"),
	}}
	w := newWorkerWithKnowledge(t, &countingTarget{}, csvRows(3), store)

	_, err := w.Perceive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"csv_import:orders"}, store.patterns)
}

func TestWorkerPerceiveToleratesKnowledgeFailure(t *testing.T) {
	store := &stubKnowledge{err: assert.AnError}
	w := newWorkerWithKnowledge(t, &countingTarget{}, csvRows(3), store)

	p, err := w.Perceive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Data.RowCount())
	assert.NotEmpty(t, store.patterns)
}

func TestWorkerReflectTranslatesRowsAfterExclusion(t *testing.T) {
	// Row 2 of the perceived dataset is already excluded, so the loader sees
	// rows [1 3 4 5]. A failure on its second row must come back as perceived
	// row 3, not row 2.
	w := newWorkerWithTarget(t, &countingTarget{failRows: map[int]struct{}{2: {}}}, csvRows(5))
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	p.PreviousAdjustment = &tabular.Adjustment{ExcludeRows: []int{2}}

	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, action.Metrics.RecordsProcessed)
	assert.Equal(t, 1, action.Metrics.RecordsFailed)

	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	require.NotNil(t, r.Adjustment)
	assert.Equal(t, []int{2, 3}, r.Adjustment.ExcludeRows)
}

func TestWorkerCountsParseErrorsAsFailures(t *testing.T) {
	// The malformed second record is dropped at perceive time but still
	// counted against the success rate.
	content := "a,b\n1,2\n3\n4,5\n"
	w := newWorkerWithTarget(t, &countingTarget{}, content)
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Data.RowCount())

	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, action.Metrics.RecordsProcessed)
	assert.Equal(t, 1, action.Metrics.RecordsFailed)
	require.NotEmpty(t, action.Errors)
	assert.Equal(t, model.ErrCodeParse, action.Errors[0].Code)
}
